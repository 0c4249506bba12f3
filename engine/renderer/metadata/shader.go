package metadata

/** @brief Fixed-function switches applied when a pipeline is built for a shader. */
type ShaderFlagBits uint32

const (
	SHADER_FLAG_NONE ShaderFlagBits = 0x0
	/** @brief Fragments are depth tested (less-or-equal). */
	SHADER_FLAG_DEPTH_TEST ShaderFlagBits = 0x1
	/** @brief Passing fragments write depth. */
	SHADER_FLAG_DEPTH_WRITE ShaderFlagBits = 0x2
)

/** @brief Shader stages available in the system. */
type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageFragment ShaderStage = 0x00000004
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vert"
	case ShaderStageFragment:
		return "frag"
	default:
		return "unknown"
	}
}

/**
 * @brief Identifies one stage of a pass: the binary it lives in and
 * the entry point to call.
 */
type ShaderStageConfig struct {
	/** @brief Name of the shader binary, e.g. "outline". */
	Name string
	/** @brief The pipeline stage. */
	Stage ShaderStage
	/** @brief Entry point inside the binary. */
	EntryPoint string
}

package toon

import (
	"embed"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gogpu/naga"
	"github.com/spaghettifunk/anima-toon/engine/assets"
	"github.com/spaghettifunk/anima-toon/engine/assets/loaders"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
)

// Shader binaries, one per pass. Each holds vs_main, fs_main or both.
const (
	ShaderFullscreen  = "fullscreen"
	ShaderGBuffer     = "gbuffer"
	ShaderGBufferMesh = "gbuffer_mesh"
	ShaderToon        = "toon"
	ShaderOutline     = "outline"
)

const (
	vertexEntryPoint   = "vs_main"
	fragmentEntryPoint = "fs_main"
)

// ShaderNames lists every binary a render call may ask for.
var ShaderNames = []string{ShaderFullscreen, ShaderGBuffer, ShaderGBufferMesh, ShaderToon, ShaderOutline}

// ShaderSource hands out SPIR-V words for a named shader binary.
type ShaderSource interface {
	SPIRV(name string) ([]uint32, error)
}

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// EmbeddedShaders compiles the embedded WGSL sources on first use. Only the
// CPU-side bytecode is memoized; GPU objects are still created per call.
type EmbeddedShaders struct {
	mu    sync.Mutex
	words map[string][]uint32
}

var defaultShaders = &EmbeddedShaders{}

// DefaultShaders is the process-wide embedded shader source.
func DefaultShaders() *EmbeddedShaders {
	return defaultShaders
}

// WGSL returns the embedded source of a shader.
func WGSL(name string) (string, error) {
	src, err := shaderFS.ReadFile("shaders/" + name + ".wgsl")
	if err != nil {
		return "", fmt.Errorf("%w: no embedded shader %q", core.ErrShaderModule, name)
	}
	return string(src), nil
}

// CompileWGSL turns WGSL source into SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	return loaders.BytesToBytecode(spirvBytes), nil
}

func (e *EmbeddedShaders) SPIRV(name string) ([]uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if code, ok := e.words[name]; ok {
		return code, nil
	}
	src, err := WGSL(name)
	if err != nil {
		return nil, err
	}
	code, err := CompileWGSL(src)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling %s: %v", core.ErrShaderModule, name, err)
	}
	if e.words == nil {
		e.words = map[string][]uint32{}
	}
	e.words[name] = code
	core.LogDebug("compiled shader %s (%d words)", name, len(code))
	return code, nil
}

// DirShaders reads precompiled <name>.spv files from Dir on every request, so
// edited binaries are picked up by the next render call.
type DirShaders struct {
	Dir    string
	Loader assets.Loader
}

func NewDirShaders(dir string) *DirShaders {
	return &DirShaders{Dir: dir, Loader: &loaders.BinaryLoader{}}
}

func (d *DirShaders) SPIRV(name string) ([]uint32, error) {
	path := filepath.Join(d.Dir, name+".spv")
	res, err := d.Loader.Load(path, metadata.ResourceTypeBinary, map[string]string{"name": name})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrShaderModule, err)
	}
	defer d.Loader.Unload(res)

	code, ok := res.Data.([]uint32)
	if !ok {
		return nil, fmt.Errorf("%w: %s did not load as SPIR-V words", core.ErrShaderModule, path)
	}
	return code, nil
}

// stageConfigs returns the vertex and fragment stage descriptions of a pass.
func stageConfigs(vertex, fragment string) []metadata.ShaderStageConfig {
	return []metadata.ShaderStageConfig{
		{Name: vertex, Stage: metadata.ShaderStageVertex, EntryPoint: vertexEntryPoint},
		{Name: fragment, Stage: metadata.ShaderStageFragment, EntryPoint: fragmentEntryPoint},
	}
}

package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
)

// SPIR-V magic number, first word of every module.
const spirvMagic uint32 = 0x07230203

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The shader module creation info. */
	CreateInfo vk.ShaderModuleCreateInfo
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

func shaderStageFlag(stage metadata.ShaderStage) (vk.ShaderStageFlagBits, error) {
	switch stage {
	case metadata.ShaderStageVertex:
		return vk.ShaderStageVertexBit, nil
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit, nil
	default:
		return 0, fmt.Errorf("%w: unsupported shader stage %s", core.ErrShaderModule, stage)
	}
}

// NewShaderModule wraps SPIR-V words in a shader module and prepares the stage
// description for pipeline creation.
func NewShaderModule(context *VulkanContext, config metadata.ShaderStageConfig, code []uint32) (*VulkanShaderStage, error) {
	if len(code) < 5 || code[0] != spirvMagic {
		return nil, fmt.Errorf("%w: %s.%s is not a SPIR-V module", core.ErrShaderModule, config.Name, config.Stage)
	}
	stageFlag, err := shaderStageFlag(config.Stage)
	if err != nil {
		return nil, err
	}
	entryPoint := config.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}

	stage := &VulkanShaderStage{}
	stage.CreateInfo = vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &stage.CreateInfo, context.Allocator, &module); res != vk.Success {
		return nil, resultError(core.ErrShaderModule, "vkCreateShaderModule "+config.Name, res)
	}
	stage.Handle = module

	// Shader stage info
	stage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stageFlag,
		Module: stage.Handle,
		PName:  VulkanSafeString(entryPoint),
	}

	return stage, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}

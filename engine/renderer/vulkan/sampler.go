package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

// SamplerCreate creates a linear, clamp-to-edge sampler without mipmapping.
func SamplerCreate(context *VulkanContext) (vk.Sampler, error) {
	samplerInfo := &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		MipLodBias:              0.0,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0.0,
		MaxLod:                  0.0,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, samplerInfo, context.Allocator, &sampler); res != vk.Success {
		return nil, resultError(core.ErrResourceCreation, "vkCreateSampler", res)
	}
	return sampler, nil
}

func SamplerDestroy(context *VulkanContext, sampler vk.Sampler) {
	if sampler != nil {
		vk.DestroySampler(context.Device.LogicalDevice, sampler, context.Allocator)
	}
}

package toon

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
)

// ClearColor is the background of the shaded image.
var ClearColor = math.NewVec4(0.04, 0.04, 0.06, 1)

const formatColor = vk.FormatR8g8b8a8Unorm

// Descriptor bindings of the toon pass.
const (
	bindingSampler uint32 = iota
	bindingAlbedo
	bindingNormal
	bindingMaterial
	bindingStyle
)

func toonDescriptorConfig() vulkan.VulkanDescriptorSetConfig {
	fragment := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	binding := func(b uint32, t vk.DescriptorType) vk.DescriptorSetLayoutBinding {
		return vk.DescriptorSetLayoutBinding{
			Binding:         b,
			DescriptorType:  t,
			DescriptorCount: 1,
			StageFlags:      fragment,
		}
	}
	return vulkan.VulkanDescriptorSetConfig{
		Bindings: []vk.DescriptorSetLayoutBinding{
			binding(bindingSampler, vk.DescriptorTypeSampler),
			binding(bindingAlbedo, vk.DescriptorTypeSampledImage),
			binding(bindingNormal, vk.DescriptorTypeSampledImage),
			binding(bindingMaterial, vk.DescriptorTypeSampledImage),
			binding(bindingStyle, vk.DescriptorTypeUniformBuffer),
		},
	}
}

func newColorTarget(rc *renderCall) (*vulkan.VulkanImage, error) {
	return rc.arena.Image(vulkan.ImageConfig{
		Name:     "toon.color",
		Width:    rc.width,
		Height:   rc.height,
		Format:   formatColor,
		Usage:    vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit),
		Aspect:   vk.ImageAspectFlags(vk.ImageAspectColorBit),
		Strategy: rc.opts.strategy,
	})
}

// toonPass moves the G-buffer colours to shader-read, shades every covered
// pixel into target and waits for the GPU. Uncovered pixels keep ClearColor.
func toonPass(rc *renderCall, gb *GBuffer, target *vulkan.VulkanImage, style ToonStyle) error {
	styleBuffer, err := rc.arena.Buffer("toon.style", StyleSize, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), vulkan.HostVisible, rc.opts.strategy)
	if err != nil {
		return err
	}
	if err := styleBuffer.Upload(rc.context, style.Bytes()); err != nil {
		return err
	}

	sampler, err := rc.arena.Sampler()
	if err != nil {
		return err
	}
	descriptors, err := rc.arena.DescriptorSet("toon", toonDescriptorConfig())
	if err != nil {
		return err
	}

	rp, err := rc.arena.Renderpass("toon", rc.width, rc.height, []vulkan.AttachmentConfig{{
		Format:        formatColor,
		Store:         true,
		InitialLayout: vk.ImageLayoutUndefined,
		FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
		Clear:         colorClear(ClearColor.X, ClearColor.Y, ClearColor.Z, ClearColor.W),
	}})
	if err != nil {
		return err
	}
	fb, err := rc.arena.Framebuffer("toon", rp, rc.width, rc.height, []*vulkan.VulkanImage{target})
	if err != nil {
		return err
	}

	stages, err := rc.stages(ShaderFullscreen, ShaderToon)
	if err != nil {
		return err
	}
	viewport, scissor := vulkan.FullViewport(rc.width, rc.height)
	pipeline, err := rc.arena.Pipeline("toon", &vulkan.VulkanPipelineConfig{
		Renderpass:           rp,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{descriptors.Layout},
		Stages:               stages,
		Viewport:             viewport,
		Scissor:              scissor,
		CullMode:             metadata.FaceCullModeNone,
		ShaderFlags:          metadata.SHADER_FLAG_NONE,
		PushConstantRanges:   []*metadata.MemoryRange{{Offset: 0, Size: OverrideSize}},
		PushConstantStages:   vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		ColorAttachmentCount: 1,
	})
	if err != nil {
		return err
	}

	override := rc.opts.overrideSlot().Bytes()

	return rc.submit(func(cb *vulkan.VulkanCommandBuffer) error {
		for _, img := range gb.Colors() {
			if err := vulkan.ImageTransition(cb, img, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutShaderReadOnlyOptimal, rc.tracker); err != nil {
				return err
			}
		}
		for _, img := range gb.Colors() {
			if err := rc.tracker.Require(img.Name, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
				return err
			}
		}
		descriptors.Update(rc.context,
			descriptors.WriteSampler(bindingSampler, sampler),
			descriptors.WriteSampledImage(bindingAlbedo, gb.Albedo),
			descriptors.WriteSampledImage(bindingNormal, gb.Normal),
			descriptors.WriteSampledImage(bindingMaterial, gb.Material),
			descriptors.WriteUniformBuffer(bindingStyle, styleBuffer),
		)

		if err := rc.tracker.RecordRenderpass(rp, []*vulkan.VulkanImage{target}); err != nil {
			return err
		}
		rp.RenderpassBegin(cb, fb)
		pipeline.Bind(cb, vk.PipelineBindPointGraphics)
		descriptors.Bind(cb, pipeline)
		pipeline.PushConstants(cb, override)
		vk.CmdDraw(cb.Handle, 3, 1, 0, 0)
		rp.RenderpassEnd(cb)
		return nil
	})
}

package toon

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
)

// OutlineWidth converts a stroke width in pixels to clip-space units along X.
func OutlineWidth(px float32, targetWidth uint32) float32 {
	if targetWidth == 0 {
		return 0
	}
	return px * (2 / float32(targetWidth))
}

// outlinePass draws the back faces of mesh pushed outward by width onto
// target, depth tested against the G-buffer depth without writing it.
// A zero width records the pass without a draw.
func outlinePass(rc *renderCall, gb *GBuffer, target *vulkan.VulkanImage, mesh *gpuMesh, mvp math.Mat4, width float32) error {
	rp, err := rc.arena.Renderpass("outline", rc.width, rc.height, []vulkan.AttachmentConfig{
		{
			Format:        formatColor,
			Load:          true,
			Store:         true,
			InitialLayout: vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
		},
		{
			Format:        formatDepth,
			Depth:         true,
			Load:          true,
			InitialLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:   vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	})
	if err != nil {
		return err
	}
	images := []*vulkan.VulkanImage{target, gb.Depth}
	fb, err := rc.arena.Framebuffer("outline", rp, rc.width, rc.height, images)
	if err != nil {
		return err
	}

	stages, err := rc.stages(ShaderOutline, ShaderOutline)
	if err != nil {
		return err
	}
	c := rc.opts.outlineColor
	push := pushBytes(outlinePush{MVP: mvp.Data, Color: [4]float32{c.X, c.Y, c.Z, c.W}, Width: width})

	viewport, scissor := vulkan.FullViewport(rc.width, rc.height)
	pipeline, err := rc.arena.Pipeline("outline", &vulkan.VulkanPipelineConfig{
		Renderpass:           rp,
		Stride:               meshVertexStride,
		Attributes:           meshVertexAttributes(),
		Stages:               stages,
		Viewport:             viewport,
		Scissor:              scissor,
		CullMode:             metadata.FaceCullModeFront,
		ShaderFlags:          metadata.SHADER_FLAG_DEPTH_TEST,
		PushConstantRanges:   []*metadata.MemoryRange{{Offset: 0, Size: uint64(len(push))}},
		PushConstantStages:   vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		ColorAttachmentCount: 1,
	})
	if err != nil {
		return err
	}

	return rc.submit(func(cb *vulkan.VulkanCommandBuffer) error {
		if err := rc.tracker.RecordRenderpass(rp, images); err != nil {
			return err
		}
		rp.RenderpassBegin(cb, fb)
		if width > 0 {
			pipeline.Bind(cb, vk.PipelineBindPointGraphics)
			pipeline.PushConstants(cb, push)
			mesh.draw(cb)
		}
		rp.RenderpassEnd(cb)
		return nil
	})
}

package toon

import (
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
)

const (
	formatAlbedo   = vk.FormatR8g8b8a8Unorm
	formatNormal   = vk.FormatR8g8b8a8Unorm
	formatMaterial = vk.FormatR8Uint
	formatDepth    = vk.FormatD32Sfloat
)

// GBuffer holds the attachments written by the geometry pass.
type GBuffer struct {
	Albedo   *vulkan.VulkanImage
	Normal   *vulkan.VulkanImage
	Material *vulkan.VulkanImage
	Depth    *vulkan.VulkanImage
}

func newGBuffer(rc *renderCall) (*GBuffer, error) {
	colorUsage := vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit)
	colorAspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	configs := []vulkan.ImageConfig{
		{Name: "gbuffer.albedo", Format: formatAlbedo, Usage: colorUsage, Aspect: colorAspect},
		{Name: "gbuffer.normal", Format: formatNormal, Usage: colorUsage, Aspect: colorAspect},
		{Name: "gbuffer.material", Format: formatMaterial, Usage: colorUsage, Aspect: colorAspect},
		{
			Name:   "gbuffer.depth",
			Format: formatDepth,
			Usage:  vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			Aspect: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		},
	}
	images := make([]*vulkan.VulkanImage, len(configs))
	for i, cfg := range configs {
		cfg.Width, cfg.Height = rc.width, rc.height
		cfg.Strategy = rc.opts.strategy
		img, err := rc.arena.Image(cfg)
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	return &GBuffer{Albedo: images[0], Normal: images[1], Material: images[2], Depth: images[3]}, nil
}

// Colors lists the sampled attachments in binding order.
func (g *GBuffer) Colors() []*vulkan.VulkanImage {
	return []*vulkan.VulkanImage{g.Albedo, g.Normal, g.Material}
}

func (g *GBuffer) attachments() []*vulkan.VulkanImage {
	return append(g.Colors(), g.Depth)
}

func colorClear(r, g, b, a float32) vk.ClearValue {
	var cv vk.ClearValue
	cv.SetColor([]float32{r, g, b, a})
	return cv
}

// The material attachment is an integer target: the clear value carries the
// raw id bits.
func materialClear(id uint8) vk.ClearValue {
	return colorClear(stdmath.Float32frombits(uint32(id)), 0, 0, 0)
}

func depthClear() vk.ClearValue {
	var cv vk.ClearValue
	cv.SetDepthStencil(1, 0)
	return cv
}

func gbufferAttachments(materialID uint8) []vulkan.AttachmentConfig {
	color := func(format vk.Format, clear vk.ClearValue) vulkan.AttachmentConfig {
		return vulkan.AttachmentConfig{
			Format:        format,
			Store:         true,
			InitialLayout: vk.ImageLayoutUndefined,
			FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
			Clear:         clear,
		}
	}
	return []vulkan.AttachmentConfig{
		color(formatAlbedo, colorClear(0, 0, 0, 0)),
		color(formatNormal, colorClear(0.5, 0.5, 1, 1)),
		color(formatMaterial, materialClear(materialID)),
		{
			Format:        formatDepth,
			Depth:         true,
			Store:         true,
			InitialLayout: vk.ImageLayoutUndefined,
			FinalLayout:   vk.ImageLayoutDepthStencilAttachmentOptimal,
			Clear:         depthClear(),
		},
	}
}

// gbufferPass rasterizes the mesh, or the placeholder impostor when mesh is
// nil, into the G-buffer and waits for the GPU.
func gbufferPass(rc *renderCall, gb *GBuffer, mesh *gpuMesh, mvp math.Mat4) error {
	materialID := rc.opts.resolvedMaterialID()
	rp, err := rc.arena.Renderpass("gbuffer", rc.width, rc.height, gbufferAttachments(materialID))
	if err != nil {
		return err
	}
	fb, err := rc.arena.Framebuffer("gbuffer", rp, rc.width, rc.height, gb.attachments())
	if err != nil {
		return err
	}

	viewport, scissor := vulkan.FullViewport(rc.width, rc.height)
	config := &vulkan.VulkanPipelineConfig{
		Renderpass:           rp,
		Viewport:             viewport,
		Scissor:              scissor,
		ShaderFlags:          metadata.SHADER_FLAG_DEPTH_TEST | metadata.SHADER_FLAG_DEPTH_WRITE,
		PushConstantStages:   vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		ColorAttachmentCount: 3,
	}

	albedo := [4]float32{rc.opts.albedo.X, rc.opts.albedo.Y, rc.opts.albedo.Z, rc.opts.albedo.W}
	var push []byte
	if mesh != nil {
		config.Stages, err = rc.stages(ShaderGBufferMesh, ShaderGBufferMesh)
		config.Stride = meshVertexStride
		config.Attributes = meshVertexAttributes()
		config.CullMode = metadata.FaceCullModeBack
		push = pushBytes(meshPush{MVP: mvp.Data, Albedo: albedo, Material: uint32(materialID)})
	} else {
		config.Stages, err = rc.stages(ShaderFullscreen, ShaderGBuffer)
		config.CullMode = metadata.FaceCullModeNone
		push = pushBytes(gbufferPush{Albedo: albedo, Material: uint32(materialID)})
	}
	if err != nil {
		return err
	}
	config.PushConstantRanges = []*metadata.MemoryRange{{Offset: 0, Size: uint64(len(push))}}

	pipeline, err := rc.arena.Pipeline("gbuffer", config)
	if err != nil {
		return err
	}

	return rc.submit(func(cb *vulkan.VulkanCommandBuffer) error {
		if err := rc.tracker.RecordRenderpass(rp, gb.attachments()); err != nil {
			return err
		}
		rp.RenderpassBegin(cb, fb)
		pipeline.Bind(cb, vk.PipelineBindPointGraphics)
		pipeline.PushConstants(cb, push)
		if mesh != nil {
			mesh.draw(cb)
		} else {
			vk.CmdDraw(cb.Handle, 3, 1, 0, 0)
		}
		rp.RenderpassEnd(cb)
		return nil
	})
}

package toon

import (
	"fmt"

	"github.com/charmbracelet/log"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
)

const bytesPerPixel = 4

// Result is the outcome of one render call.
type Result struct {
	// Row-major, top-to-bottom RGBA8, Width*Height*4 bytes.
	Pixels []byte
	Width  uint32
	Height uint32

	InvocationID string
	MaterialID   uint8
	// Clip-space outline width; zero when no outline was drawn.
	OutlineWidth float32
	Metrics      *core.RenderMetrics
	Transitions  []vulkan.Transition
}

// renderCall is the state of one invocation. Everything it creates belongs to
// arena.
type renderCall struct {
	context *vulkan.VulkanContext
	arena   *vulkan.Arena
	pool    vk.CommandPool
	tracker *vulkan.LayoutTracker
	metrics *core.RenderMetrics
	log     *log.Logger
	opts    renderOptions

	width, height uint32
}

// Render runs the G-buffer, toon, outline and readback passes against context
// and returns the shaded image. Each pass is submitted and waited on before
// the next one starts. Every GPU object created by the call is released
// before Render returns, on success and on error.
func Render(context *vulkan.VulkanContext, width, height uint32, style ToonStyle, opts ...RenderOption) (*Result, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", core.ErrInvalidDimensions, width, height)
	}
	if context == nil || context.Device == nil {
		return nil, fmt.Errorf("%w: nil context", core.ErrNoDevice)
	}

	id := core.NewInvocationID()
	rc := &renderCall{
		context: context,
		arena:   vulkan.NewArena(context),
		tracker: vulkan.NewLayoutTracker(),
		metrics: core.NewRenderMetrics(),
		log:     core.LogWith("invocation", id),
		opts:    newRenderOptions(opts),
		width:   width,
		height:  height,
	}
	defer rc.arena.Release()

	rc.log.Info("render started", "width", width, "height", height, "mesh", rc.opts.mesh != nil,
		"memory", rc.opts.strategy, "row_pitch", rc.opts.rowPitch)

	pixels, err := rc.run(style)
	rc.metrics.End()
	if err != nil {
		rc.log.Error("render failed", "err", err)
		return nil, err
	}

	result := &Result{
		Pixels:       pixels,
		Width:        width,
		Height:       height,
		InvocationID: id,
		MaterialID:   rc.opts.resolvedMaterialID(),
		Metrics:      rc.metrics,
		Transitions:  rc.tracker.Transitions(),
	}
	if rc.opts.outlineEnabled() {
		result.OutlineWidth = OutlineWidth(rc.opts.resolvedOutlinePx(), width)
	}
	rc.log.Info("render finished", "bytes", len(pixels), "passes", rc.metrics.String(), "total", rc.metrics.Total())
	return result, nil
}

func (rc *renderCall) run(style ToonStyle) ([]byte, error) {
	rc.metrics.Begin("resources")
	pool, err := rc.arena.CommandPool()
	if err != nil {
		return nil, err
	}
	rc.pool = pool

	gb, err := newGBuffer(rc)
	if err != nil {
		return nil, err
	}
	target, err := newColorTarget(rc)
	if err != nil {
		return nil, err
	}

	var mesh *gpuMesh
	mvp := math.NewMat4Identity()
	if rc.opts.mesh != nil {
		if mesh, err = uploadMesh(rc.context, rc.arena, rc.opts.mesh, rc.opts.strategy); err != nil {
			return nil, err
		}
		mvp = MeshMVP(rc.width, rc.height)
	}

	layout := vulkan.NewReadbackLayout(rc.width, rc.height, bytesPerPixel, rc.context.RowPitchAlignment(), rc.opts.rowPitch)
	readback, err := rc.arena.Buffer("readback", layout.Size, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), vulkan.HostVisible, rc.opts.strategy)
	if err != nil {
		return nil, err
	}

	rc.metrics.Begin("gbuffer")
	if err := gbufferPass(rc, gb, mesh, mvp); err != nil {
		return nil, fmt.Errorf("gbuffer pass: %w", err)
	}

	rc.metrics.Begin("toon")
	if err := toonPass(rc, gb, target, style); err != nil {
		return nil, fmt.Errorf("toon pass: %w", err)
	}

	if rc.opts.outlineEnabled() {
		rc.metrics.Begin("outline")
		width := OutlineWidth(rc.opts.resolvedOutlinePx(), rc.width)
		if err := outlinePass(rc, gb, target, mesh, mvp, width); err != nil {
			return nil, fmt.Errorf("outline pass: %w", err)
		}
	}

	rc.metrics.Begin("readback")
	pixels, err := readbackPass(rc, target, readback, layout)
	if err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return pixels, nil
}

// readbackPass copies target into the staging buffer and returns tightly
// packed rows.
func readbackPass(rc *renderCall, target *vulkan.VulkanImage, buf *vulkan.VulkanBuffer, layout vulkan.ReadbackLayout) ([]byte, error) {
	if err := rc.submit(func(cb *vulkan.VulkanCommandBuffer) error {
		if err := vulkan.ImageTransition(cb, target, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutTransferSrcOptimal, rc.tracker); err != nil {
			return err
		}
		return vulkan.CopyImageToBuffer(cb, target, buf, layout, rc.tracker)
	}); err != nil {
		return nil, err
	}

	raw, err := buf.Read(rc.context, layout.Size)
	if err != nil {
		return nil, err
	}
	return vulkan.PackRows(raw, int(layout.RowPitch), int(layout.RowBytes), int(layout.Height))
}

// submit records one single-use command buffer with record, submits it and
// blocks until the GPU is done.
func (rc *renderCall) submit(record func(cb *vulkan.VulkanCommandBuffer) error) error {
	cb, err := vulkan.AllocateAndBeginSingleUse(rc.context, rc.pool)
	if err != nil {
		return err
	}
	if err := record(cb); err != nil {
		cb.Free(rc.context, rc.pool)
		return err
	}
	return cb.EndSingleUse(rc.context, rc.pool, rc.context.Device.GraphicsQueue)
}

// stages creates the shader modules of a pass and returns their stage descriptions.
func (rc *renderCall) stages(vertex, fragment string) ([]vk.PipelineShaderStageCreateInfo, error) {
	var out []vk.PipelineShaderStageCreateInfo
	for _, cfg := range stageConfigs(vertex, fragment) {
		code, err := rc.opts.shaders.SPIRV(cfg.Name)
		if err != nil {
			return nil, err
		}
		stage, err := rc.arena.ShaderModule(cfg, code)
		if err != nil {
			return nil, err
		}
		out = append(out, stage.ShaderStageCreateInfo)
	}
	return out, nil
}

package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
)

type arenaEntry struct {
	name    string
	release func()
}

// Arena owns every GPU object created during one render invocation. Objects
// are registered as they are created and released in reverse order by a
// single Release call, whichever way the invocation exits.
type Arena struct {
	context  *VulkanContext
	entries  []arenaEntry
	released int
}

func NewArena(context *VulkanContext) *Arena {
	return &Arena{context: context}
}

// Defer registers release to run when the arena is released.
func (a *Arena) Defer(name string, release func()) {
	a.entries = append(a.entries, arenaEntry{name: name, release: release})
}

// Len is the number of registered, not yet released objects.
func (a *Arena) Len() int {
	return len(a.entries)
}

// Released is the total number of objects released so far.
func (a *Arena) Released() int {
	return a.released
}

// Release waits for the queue to drain, then runs every registered release in
// LIFO order. Calling it again is a no-op.
func (a *Arena) Release() {
	if len(a.entries) == 0 {
		return
	}
	if a.context != nil && a.context.Device != nil && a.context.Device.GraphicsQueue != nil {
		queue := a.context.Device.GraphicsQueue
		_ = a.context.locks.SafeQueueCall(uint32(a.context.Device.GraphicsQueueIndex), func() error {
			if res := vk.QueueWaitIdle(queue); res != vk.Success {
				core.LogWarn("queue failed to wait in idle mode: %s", VulkanResultString(res, false))
			}
			return nil
		})
	}
	for i := len(a.entries) - 1; i >= 0; i-- {
		e := a.entries[i]
		core.LogDebug("releasing %s", e.name)
		e.release()
		a.released++
	}
	a.entries = nil
}

func (a *Arena) Image(config ImageConfig) (*VulkanImage, error) {
	img, err := ImageCreate(a.context, config)
	if err != nil {
		return nil, err
	}
	a.Defer("image "+config.Name, func() { img.Destroy(a.context) })
	return img, nil
}

func (a *Arena) Buffer(name string, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags, strategy MemoryStrategy) (*VulkanBuffer, error) {
	buf, err := BufferCreate(a.context, name, size, usage, memoryFlags, strategy)
	if err != nil {
		return nil, err
	}
	a.Defer("buffer "+name, func() { buf.Destroy(a.context) })
	return buf, nil
}

func (a *Arena) CommandPool() (vk.CommandPool, error) {
	pool, err := CommandPoolCreate(a.context)
	if err != nil {
		return nil, err
	}
	a.Defer("command pool", func() { CommandPoolDestroy(a.context, pool) })
	return pool, nil
}

func (a *Arena) Sampler() (vk.Sampler, error) {
	sampler, err := SamplerCreate(a.context)
	if err != nil {
		return nil, err
	}
	a.Defer("sampler", func() { SamplerDestroy(a.context, sampler) })
	return sampler, nil
}

func (a *Arena) Renderpass(name string, w, h uint32, attachments []AttachmentConfig) (*VulkanRenderpass, error) {
	rp, err := RenderpassCreate(a.context, w, h, attachments)
	if err != nil {
		return nil, err
	}
	a.Defer("renderpass "+name, func() { rp.RenderpassDestroy(a.context) })
	return rp, nil
}

func (a *Arena) Framebuffer(name string, rp *VulkanRenderpass, w, h uint32, attachments []*VulkanImage) (*VulkanFramebuffer, error) {
	fb, err := FramebufferCreate(a.context, rp, w, h, attachments)
	if err != nil {
		return nil, err
	}
	a.Defer("framebuffer "+name, func() { fb.Destroy(a.context) })
	return fb, nil
}

func (a *Arena) ShaderModule(config metadata.ShaderStageConfig, code []uint32) (*VulkanShaderStage, error) {
	stage, err := NewShaderModule(a.context, config, code)
	if err != nil {
		return nil, err
	}
	a.Defer("shader "+config.Name+"."+config.Stage.String(), func() { stage.Destroy(a.context) })
	return stage, nil
}

func (a *Arena) Pipeline(name string, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	pipeline, err := NewGraphicsPipeline(a.context, config)
	if err != nil {
		return nil, err
	}
	a.Defer("pipeline "+name, func() { pipeline.Destroy(a.context) })
	return pipeline, nil
}

func (a *Arena) DescriptorSet(name string, config VulkanDescriptorSetConfig) (*VulkanDescriptorSet, error) {
	ds, err := DescriptorSetCreate(a.context, config)
	if err != nil {
		return nil, err
	}
	a.Defer("descriptor set "+name, func() { ds.Destroy(a.context) })
	return ds, nil
}

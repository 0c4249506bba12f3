package renderer

import (
	"github.com/spaghettifunk/anima-toon/engine/renderer/toon"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
)

// RendererBackend produces toon images. Implementations must allow concurrent
// Render calls.
type RendererBackend interface {
	Type() RendererType
	// DeviceName identifies what executes the passes.
	DeviceName() string
	Render(width, height uint32, style toon.ToonStyle, opts ...toon.RenderOption) (*toon.Result, error)
	Shutdown() error
}

type vulkanBackend struct {
	context *vulkan.VulkanContext
}

func newVulkanBackend(opts vulkan.ContextOptions) (*vulkanBackend, error) {
	vc, err := vulkan.NewHeadlessContext(opts)
	if err != nil {
		return nil, err
	}
	return &vulkanBackend{context: vc}, nil
}

func (b *vulkanBackend) Type() RendererType { return Vulkan }

func (b *vulkanBackend) DeviceName() string { return b.context.DeviceName() }

func (b *vulkanBackend) Render(width, height uint32, style toon.ToonStyle, opts ...toon.RenderOption) (*toon.Result, error) {
	return toon.Render(b.context, width, height, style, opts...)
}

func (b *vulkanBackend) Shutdown() error {
	b.context.Destroy()
	return nil
}

type softwareBackend struct{}

func (softwareBackend) Type() RendererType { return Software }

func (softwareBackend) DeviceName() string { return "cpu" }

func (softwareBackend) Render(width, height uint32, style toon.ToonStyle, opts ...toon.RenderOption) (*toon.Result, error) {
	return toon.RenderSoftware(width, height, style, opts...)
}

func (softwareBackend) Shutdown() error { return nil }

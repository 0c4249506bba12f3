package platform

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

func init() {
	// GLFW must be initialized and terminated on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the GLFW library when it is used as the Vulkan loader. No
// window is ever created.
type Platform struct {
	mu      sync.Mutex
	started bool
}

var (
	instance     *Platform
	initInstance sync.Once
)

// Get returns the process-wide platform.
func Get() *Platform {
	initInstance.Do(func() {
		instance = &Platform{}
	})
	return instance
}

// Startup initializes GLFW and checks it can find a Vulkan loader. Calling it
// again after a successful start is a no-op.
func (p *Platform) Startup() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("%w: glfw init: %v", core.ErrNoDevice, err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("%w: glfw reports no Vulkan loader", core.ErrNoDevice)
	}
	p.started = true
	core.LogDebug("glfw %s initialized", glfw.GetVersionString())
	return nil
}

// VulkanProcAddr is the vkGetInstanceProcAddr GLFW resolved.
func (p *Platform) VulkanProcAddr() (unsafe.Pointer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil, fmt.Errorf("%w: platform not started", core.ErrNoDevice)
	}
	addr := glfw.GetVulkanGetInstanceProcAddress()
	if addr == nil {
		return nil, fmt.Errorf("%w: GetInstanceProcAddress is nil", core.ErrNoDevice)
	}
	return addr, nil
}

func (p *Platform) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *Platform) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		glfw.Terminate()
		p.started = false
	}
	return nil
}

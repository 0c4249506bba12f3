package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

// VulkanContext is the GPU context a render call runs against. It is either
// created by NewHeadlessContext, in which case Destroy tears it down, or it
// wraps handles owned by the caller through WrapContext.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	// Serializes access to the graphics queue and pipeline creation when the
	// context is shared between goroutines.
	locks *VulkanLockPool

	ownsDevice   bool
	ownsInstance bool
}

// WrapContext adopts externally created handles. The returned context never
// destroys them; Destroy only releases the bookkeeping.
func WrapContext(instance vk.Instance, physicalDevice vk.PhysicalDevice, device vk.Device, queue vk.Queue, queueFamilyIndex uint32) (*VulkanContext, error) {
	if physicalDevice == nil || device == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil handle passed to WrapContext", core.ErrNoDevice)
	}
	vc := &VulkanContext{
		Instance: instance,
		Device: &VulkanDevice{
			PhysicalDevice:     physicalDevice,
			LogicalDevice:      device,
			GraphicsQueue:      queue,
			GraphicsQueueIndex: int32(queueFamilyIndex),
		},
		locks: NewVulkanLockPool(),
	}
	vc.locks.SetQueueFamily(queueFamilyIndex)
	vc.Device.queryProperties()
	return vc, nil
}

// Destroy releases everything the context owns, in reverse creation order.
func (vc *VulkanContext) Destroy() {
	if vc == nil {
		return
	}
	if vc.ownsDevice && vc.Device != nil {
		deviceDestroy(vc)
	}
	if vc.ownsInstance && vc.Instance != nil {
		if vc.debugMessenger != nil {
			vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
			vc.debugMessenger = nil
		}
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

// DeviceName is the human readable name of the selected physical device.
func (vc *VulkanContext) DeviceName() string {
	return vk.ToString(vc.Device.Properties.DeviceName[:])
}

// RowPitchAlignment reports the device's optimal buffer row pitch for image copies.
func (vc *VulkanContext) RowPitchAlignment() uint64 {
	return uint64(vc.Device.Properties.Limits.OptimalBufferCopyRowPitchAlignment)
}

// MemoryTypes flattens the device memory properties into the form the
// selection strategies work on.
func (vc *VulkanContext) MemoryTypes() []MemoryType {
	return memoryTypesFromProperties(vc.Device.Memory)
}

// FindMemoryIndex picks a memory type compatible with typeFilter that carries
// every flag in propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags, strategy MemoryStrategy) (uint32, error) {
	index, err := SelectMemoryType(vc.MemoryTypes(), typeFilter, propertyFlags, strategy)
	if err != nil {
		core.LogWarn("Unable to find suitable memory type!")
		return 0, err
	}
	return index, nil
}

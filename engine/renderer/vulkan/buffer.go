package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

// VulkanBuffer is a buffer and the memory bound to it.
type VulkanBuffer struct {
	Name   string
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags
}

// HostVisible is the property set of every buffer the CPU writes or reads.
const HostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

func BufferCreate(context *VulkanContext, name string, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags, strategy MemoryStrategy) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: buffer %s has zero size", core.ErrResourceCreation, name)
	}
	buf := &VulkanBuffer{
		Name:  name,
		Size:  size,
		Usage: usage,
	}
	device := context.Device.LogicalDevice

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(device, &bufferCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError(core.ErrResourceCreation, "vkCreateBuffer "+name, res)
	}
	buf.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buf.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryIndex, err := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, memoryFlags, strategy)
	if err != nil {
		buf.Destroy(context)
		return nil, fmt.Errorf("buffer %s: %w", name, err)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		buf.Destroy(context)
		return nil, resultError(core.ErrAllocation, "vkAllocateMemory "+name, res)
	}
	buf.Memory = memory

	if res := vk.BindBufferMemory(device, buf.Handle, buf.Memory, 0); res != vk.Success {
		buf.Destroy(context)
		return nil, resultError(core.ErrResourceCreation, "vkBindBufferMemory "+name, res)
	}
	return buf, nil
}

// Upload copies data into the start of a host-visible buffer.
func (b *VulkanBuffer) Upload(context *VulkanContext, data []byte) error {
	if uint64(len(data)) > b.Size {
		return fmt.Errorf("%w: %d bytes into %s of %d", core.ErrMapping, len(data), b.Name, b.Size)
	}
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, vk.DeviceSize(len(data)), 0, &pData); res != vk.Success {
		return resultError(core.ErrMapping, "vkMapMemory "+b.Name, res)
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	return nil
}

// Read maps the first n bytes of a host-visible buffer and copies them out.
func (b *VulkanBuffer) Read(context *VulkanContext, n uint64) ([]byte, error) {
	if n > b.Size {
		return nil, fmt.Errorf("%w: %d bytes from %s of %d", core.ErrMapping, n, b.Name, b.Size)
	}
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, vk.DeviceSize(n), 0, &pData); res != vk.Success {
		return nil, resultError(core.ErrMapping, "vkMapMemory "+b.Name, res)
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(pData), n))
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	return out, nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if b.Handle != nil {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		b.Handle = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(device, b.Memory, context.Allocator)
		b.Memory = nil
	}
}

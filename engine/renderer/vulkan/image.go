package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

// VulkanImage is a 2D attachment: the image, its backing memory and a view.
type VulkanImage struct {
	Name   string
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
	Usage  vk.ImageUsageFlags
	Aspect vk.ImageAspectFlags
}

// ImageConfig describes an attachment to create.
type ImageConfig struct {
	Name   string
	Width  uint32
	Height uint32
	Format vk.Format
	Usage  vk.ImageUsageFlags
	Aspect vk.ImageAspectFlags
	// Defaults to device-local.
	MemoryFlags vk.MemoryPropertyFlags
	Strategy    MemoryStrategy
}

// ImageCreate allocates a single-mip optimal-tiling 2D image, binds memory and
// creates a view. On failure nothing created here is left alive.
func ImageCreate(context *VulkanContext, config ImageConfig) (*VulkanImage, error) {
	if config.Width == 0 || config.Height == 0 {
		return nil, fmt.Errorf("%w: image %s is %dx%d", core.ErrInvalidDimensions, config.Name, config.Width, config.Height)
	}
	if config.MemoryFlags == 0 {
		config.MemoryFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}

	img := &VulkanImage{
		Name:   config.Name,
		Width:  config.Width,
		Height: config.Height,
		Format: config.Format,
		Usage:  config.Usage,
		Aspect: config.Aspect,
	}
	device := context.Device.LogicalDevice

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    config.Format,
		Extent: vk.Extent3D{
			Width:  config.Width,
			Height: config.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         config.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var handle vk.Image
	if res := vk.CreateImage(device, &imageCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError(core.ErrResourceCreation, "vkCreateImage "+config.Name, res)
	}
	img.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, img.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryIndex, err := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, config.MemoryFlags, config.Strategy)
	if err != nil {
		img.Destroy(context)
		return nil, fmt.Errorf("image %s: %w", config.Name, err)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryIndex,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		img.Destroy(context)
		return nil, resultError(core.ErrAllocation, "vkAllocateMemory "+config.Name, res)
	}
	img.Memory = memory

	if res := vk.BindImageMemory(device, img.Handle, img.Memory, 0); res != vk.Success {
		img.Destroy(context)
		return nil, resultError(core.ErrResourceCreation, "vkBindImageMemory "+config.Name, res)
	}

	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   config.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     config.Aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(device, &viewCreateInfo, context.Allocator, &view); res != vk.Success {
		img.Destroy(context)
		return nil, resultError(core.ErrResourceCreation, "vkCreateImageView "+config.Name, res)
	}
	img.View = view

	return img, nil
}

// Destroy releases the view, image and memory. Safe to call on a partially
// created image.
func (img *VulkanImage) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if img.View != nil {
		vk.DestroyImageView(device, img.View, context.Allocator)
		img.View = nil
	}
	if img.Handle != nil {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		img.Handle = nil
	}
	if img.Memory != nil {
		vk.FreeMemory(device, img.Memory, context.Allocator)
		img.Memory = nil
	}
}

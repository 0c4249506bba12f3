package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex int32
	GraphicsQueue      vk.Queue

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

// DeviceInfo summarizes one physical device for listing.
type DeviceInfo struct {
	Index         int
	Name          string
	Type          string
	APIVersion    string
	DriverVersion string
	GraphicsQueue bool
	MemoryTypes   []MemoryType
}

func (d *VulkanDevice) queryProperties() {
	vk.GetPhysicalDeviceProperties(d.PhysicalDevice, &d.Properties)
	d.Properties.Deref()
	d.Properties.Limits.Deref()

	vk.GetPhysicalDeviceFeatures(d.PhysicalDevice, &d.Features)
	d.Features.Deref()

	vk.GetPhysicalDeviceMemoryProperties(d.PhysicalDevice, &d.Memory)
	d.Memory.Deref()
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		d.Memory.MemoryTypes[i].Deref()
	}
	for i := uint32(0); i < d.Memory.MemoryHeapCount; i++ {
		d.Memory.MemoryHeaps[i].Deref()
	}
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "cpu"
	default:
		return "unknown"
	}
}

func versionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", vk.Version(v).Major(), vk.Version(v).Minor(), vk.Version(v).Patch())
}

func enumeratePhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, nil); res != vk.Success {
		return nil, resultError(core.ErrNoDevice, "vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		return nil, fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrNoDevice)
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return nil, resultError(core.ErrNoDevice, "vkEnumeratePhysicalDevices", res)
	}
	return physicalDevices[:physicalDeviceCount], nil
}

// graphicsQueueFamily returns the first queue family with graphics support.
func graphicsQueueFamily(device vk.PhysicalDevice) (uint32, bool) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

// selectPhysicalDevice picks the device at index, or when index is negative the
// first discrete GPU with a graphics queue, falling back to any device with one.
func selectPhysicalDevice(vc *VulkanContext, index int) error {
	physicalDevices, err := enumeratePhysicalDevices(vc.Instance)
	if err != nil {
		return err
	}

	if index >= 0 {
		if index >= len(physicalDevices) {
			return fmt.Errorf("%w: device index %d out of range (%d devices)", core.ErrNoDevice, index, len(physicalDevices))
		}
		family, ok := graphicsQueueFamily(physicalDevices[index])
		if !ok {
			return fmt.Errorf("%w: device %d has no graphics queue", core.ErrNoDevice, index)
		}
		useDevice(vc, physicalDevices[index], family)
		return nil
	}

	fallback := -1
	var fallbackFamily uint32
	for i, pd := range physicalDevices {
		family, ok := graphicsQueueFamily(pd)
		if !ok {
			core.LogDebug("Device %d has no graphics queue, skipping.", i)
			continue
		}
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()
		if properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			useDevice(vc, pd, family)
			return nil
		}
		if fallback < 0 {
			fallback = i
			fallbackFamily = family
		}
	}
	if fallback < 0 {
		return fmt.Errorf("%w: no physical devices were found which meet the requirements", core.ErrNoDevice)
	}
	useDevice(vc, physicalDevices[fallback], fallbackFamily)
	return nil
}

func useDevice(vc *VulkanContext, pd vk.PhysicalDevice, family uint32) {
	vc.Device.PhysicalDevice = pd
	vc.Device.GraphicsQueueIndex = int32(family)
	vc.Device.queryProperties()

	properties := vc.Device.Properties
	core.LogInfo("Selected device: '%s' (%s).", vk.ToString(properties.DeviceName[:]), deviceTypeName(properties.DeviceType))
	core.LogDebug("GPU Driver version: %s", versionString(properties.DriverVersion))
	core.LogDebug("Vulkan API version: %s", versionString(properties.ApiVersion))

	for j := uint32(0); j < vc.Device.Memory.MemoryHeapCount; j++ {
		heap := vc.Device.Memory.MemoryHeaps[j]
		memorySizeMib := uint64(heap.Size) / 1024 / 1024
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogDebug("Local GPU memory: %d MiB", memorySizeMib)
		} else {
			core.LogDebug("Shared System memory: %d MiB", memorySizeMib)
		}
	}
}

func deviceCreate(vc *VulkanContext) error {
	core.LogDebug("Creating logical device...")

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: uint32(vc.Device.GraphicsQueueIndex),
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	portabilityRequired := false
	var availableExtensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(vc.Device.PhysicalDevice, "", &availableExtensionCount, nil); res != vk.Success {
		return resultError(core.ErrNoDevice, "vkEnumerateDeviceExtensionProperties", res)
	}
	if availableExtensionCount != 0 {
		availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
		if res := vk.EnumerateDeviceExtensionProperties(vc.Device.PhysicalDevice, "", &availableExtensionCount, availableExtensions); res != vk.Success {
			return resultError(core.ErrNoDevice, "vkEnumerateDeviceExtensionProperties", res)
		}
		for i := range availableExtensions {
			availableExtensions[i].Deref()
			if vk.ToString(availableExtensions[i].ExtensionName[:]) == "VK_KHR_portability_subset" {
				core.LogDebug("Adding required extension 'VK_KHR_portability_subset'.")
				portabilityRequired = true
				break
			}
		}
	}

	extensionNames := []string{}
	if portabilityRequired {
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if res := vk.CreateDevice(vc.Device.PhysicalDevice, &deviceCreateInfo, vc.Allocator, &device); res != vk.Success {
		return resultError(core.ErrNoDevice, "vkCreateDevice", res)
	}
	vc.Device.LogicalDevice = device
	core.LogDebug("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(device, uint32(vc.Device.GraphicsQueueIndex), 0, &queue)
	vc.Device.GraphicsQueue = queue
	core.LogDebug("Queues obtained.")

	if err := checkFormatSupport(vc.Device.PhysicalDevice); err != nil {
		return err
	}
	return nil
}

// checkFormatSupport verifies the G-buffer formats can be rendered to and sampled.
func checkFormatSupport(pd vk.PhysicalDevice) error {
	required := []struct {
		format   vk.Format
		features vk.FormatFeatureFlagBits
	}{
		{vk.FormatR8g8b8a8Unorm, vk.FormatFeatureColorAttachmentBit | vk.FormatFeatureSampledImageBit},
		{vk.FormatR8Uint, vk.FormatFeatureColorAttachmentBit | vk.FormatFeatureSampledImageBit},
		{vk.FormatD32Sfloat, vk.FormatFeatureDepthStencilAttachmentBit},
	}
	for _, r := range required {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(pd, r.format, &properties)
		properties.Deref()
		if vk.FormatFeatureFlagBits(properties.OptimalTilingFeatures)&r.features != r.features {
			return fmt.Errorf("%w: format %d lacks required optimal tiling features", core.ErrNoDevice, r.format)
		}
	}
	return nil
}

func deviceDestroy(vc *VulkanContext) {
	if vc.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vc.Device.LogicalDevice)
		core.LogDebug("Destroying logical device...")
		vk.DestroyDevice(vc.Device.LogicalDevice, vc.Allocator)
		vc.Device.LogicalDevice = nil
	}
	vc.Device.GraphicsQueue = nil
	// Physical devices are not destroyed.
	vc.Device.PhysicalDevice = nil
	vc.Device.GraphicsQueueIndex = -1
}

// ListDevices enumerates the physical devices visible to the loader.
func ListDevices(opts ContextOptions) ([]DeviceInfo, error) {
	if err := initLoader(opts.Loader); err != nil {
		return nil, err
	}
	vc := &VulkanContext{ownsInstance: true}
	if err := createInstance(vc, opts); err != nil {
		return nil, err
	}
	defer vc.Destroy()

	physicalDevices, err := enumeratePhysicalDevices(vc.Instance)
	if err != nil {
		return nil, err
	}
	infos := make([]DeviceInfo, 0, len(physicalDevices))
	for i, pd := range physicalDevices {
		d := &VulkanDevice{PhysicalDevice: pd}
		d.queryProperties()
		_, hasGraphics := graphicsQueueFamily(pd)
		infos = append(infos, DeviceInfo{
			Index:         i,
			Name:          vk.ToString(d.Properties.DeviceName[:]),
			Type:          deviceTypeName(d.Properties.DeviceType),
			APIVersion:    versionString(d.Properties.ApiVersion),
			DriverVersion: versionString(d.Properties.DriverVersion),
			GraphicsQueue: hasGraphics,
			MemoryTypes:   memoryTypesFromProperties(d.Memory),
		})
	}
	return infos, nil
}

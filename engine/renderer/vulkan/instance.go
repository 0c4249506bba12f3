package vulkan

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/platform"
)

const (
	LoaderDefault = "default"
	LoaderGLFW    = "glfw"
)

// ContextOptions configures NewHeadlessContext.
type ContextOptions struct {
	AppName string
	// Enables VK_LAYER_KHRONOS_validation and routes its reports through the engine logger.
	Validation bool
	// Either LoaderDefault or LoaderGLFW. The GLFW loader must be initialized
	// from the main goroutine.
	Loader string
	// Physical device to use; negative picks automatically (discrete preferred).
	DeviceIndex int
}

var (
	loaderMu          sync.Mutex
	loaderInitialized bool
)

func initLoader(loader string) error {
	loaderMu.Lock()
	defer loaderMu.Unlock()

	if loaderInitialized {
		return nil
	}
	switch loader {
	case "", LoaderDefault:
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return fmt.Errorf("%w: failed to load Vulkan library: %v", core.ErrNoDevice, err)
		}
	case LoaderGLFW:
		p := platform.Get()
		if err := p.Startup(); err != nil {
			return err
		}
		procAddr, err := p.VulkanProcAddr()
		if err != nil {
			return err
		}
		vk.SetGetInstanceProcAddr(procAddr)
	default:
		return fmt.Errorf("%w: unknown loader %q", core.ErrInvalidConfig, loader)
	}
	if err := vk.Init(); err != nil {
		return fmt.Errorf("%w: failed to initialize vk: %v", core.ErrNoDevice, err)
	}
	loaderInitialized = true
	return nil
}

// NewHeadlessContext brings up an instance, picks a physical device with a
// graphics queue and creates a logical device on it. No surface or swapchain
// is involved.
func NewHeadlessContext(opts ContextOptions) (*VulkanContext, error) {
	if err := initLoader(opts.Loader); err != nil {
		return nil, err
	}

	vc := &VulkanContext{
		Allocator:    nil,
		Device:       &VulkanDevice{GraphicsQueueIndex: -1},
		locks:        NewVulkanLockPool(),
		ownsInstance: true,
	}
	if err := createInstance(vc, opts); err != nil {
		return nil, err
	}
	if opts.Validation {
		if err := createDebugCallback(vc); err != nil {
			// Validation output is optional; rendering still works without it.
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", err)
		}
	}

	if err := selectPhysicalDevice(vc, opts.DeviceIndex); err != nil {
		vc.Destroy()
		return nil, err
	}
	if err := deviceCreate(vc); err != nil {
		vc.Destroy()
		return nil, err
	}
	vc.ownsDevice = true
	vc.locks.SetQueueFamily(uint32(vc.Device.GraphicsQueueIndex))

	core.LogInfo("Vulkan headless context initialized on '%s'.", vc.DeviceName())
	return vc, nil
}

func createInstance(vc *VulkanContext, opts ContextOptions) error {
	appName := opts.AppName
	if appName == "" {
		appName = "anima-toon"
	}
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Anima Toon"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	requiredLayers := []string{}
	if opts.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		requiredLayers = append(requiredLayers, "VK_LAYER_KHRONOS_validation")
		if err := checkValidationLayers(requiredLayers); err != nil {
			return err
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	if res := vk.CreateInstance(&createInfo, vc.Allocator, &vc.Instance); res != vk.Success {
		return resultError(core.ErrNoDevice, "vkCreateInstance", res)
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		return fmt.Errorf("%w: %v", core.ErrNoDevice, err)
	}
	core.LogDebug("Vulkan Instance created.")
	return nil
}

func checkValidationLayers(required []string) error {
	core.LogDebug("Validation layers enabled. Enumerating...")

	var availableLayerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
		return resultError(core.ErrNoDevice, "vkEnumerateInstanceLayerProperties", res)
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
		return resultError(core.ErrNoDevice, "vkEnumerateInstanceLayerProperties", res)
	}

	for _, name := range required {
		found := false
		for j := range availableLayers {
			availableLayers[j].Deref()
			if name == vk.ToString(availableLayers[j].LayerName[:]) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: required validation layer is missing: %s", core.ErrInvalidConfig, name)
		}
	}
	core.LogDebug("All required validation layers are present.")
	return nil
}

func createDebugCallback(vc *VulkanContext) error {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, vc.Allocator, &dbg)); err != nil {
		return err
	}
	vc.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	logger := core.LogWith("layer", pLayerPrefix, "code", messageCode)
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		logger.Error(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		logger.Warn("performance: " + pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		logger.Warn(pMessage)
	default:
		logger.Debug(pMessage)
	}
	return vk.Bool32(vk.False)
}

package vulkan

import (
	"bytes"
	"errors"
	"reflect"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

var (
	deviceLocal  = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostVisible  = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	hostCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	hostCached   = vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit)
)

// A typical discrete GPU table: VRAM, BAR, system memory, cached system memory.
func discreteMemoryTypes() []MemoryType {
	return []MemoryType{
		{PropertyFlags: deviceLocal, HeapIndex: 0, HeapSize: 8 << 30, HeapDeviceLocal: true},
		{PropertyFlags: deviceLocal | hostVisible | hostCoherent, HeapIndex: 2, HeapSize: 256 << 20, HeapDeviceLocal: true},
		{PropertyFlags: hostVisible | hostCoherent, HeapIndex: 1, HeapSize: 16 << 30},
		{PropertyFlags: hostVisible | hostCoherent | hostCached, HeapIndex: 1, HeapSize: 16 << 30},
	}
}

func TestSelectMemoryType(t *testing.T) {
	types := discreteMemoryTypes()
	tests := []struct {
		name     string
		filter   uint32
		flags    vk.MemoryPropertyFlags
		strategy MemoryStrategy
		want     uint32
	}{
		{"first fit device local", 0xF, deviceLocal, MemoryFirstFit, 0},
		{"first fit staging takes BAR", 0xF, HostVisible, MemoryFirstFit, 1},
		{"scored staging avoids BAR", 0xF, HostVisible, MemoryScored, 2},
		{"filter excludes first", 0xE, deviceLocal, MemoryFirstFit, 1},
		{"scored device local", 0xF, deviceLocal, MemoryScored, 0},
		{"cached requested", 0xF, hostCached, MemoryScored, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectMemoryType(types, tt.filter, tt.flags, tt.strategy)
			if err != nil {
				t.Fatalf("SelectMemoryType() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SelectMemoryType() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelectMemoryTypeScoredPrefersLargerHeap(t *testing.T) {
	types := []MemoryType{
		{PropertyFlags: deviceLocal, HeapIndex: 0, HeapSize: 256 << 20, HeapDeviceLocal: true},
		{PropertyFlags: deviceLocal, HeapIndex: 1, HeapSize: 4 << 30, HeapDeviceLocal: true},
	}
	got, err := SelectMemoryType(types, 0x3, deviceLocal, MemoryScored)
	if err != nil {
		t.Fatalf("SelectMemoryType() error = %v", err)
	}
	if got != 1 {
		t.Errorf("SelectMemoryType() = %d, want 1", got)
	}
	got, _ = SelectMemoryType(types, 0x3, deviceLocal, MemoryFirstFit)
	if got != 0 {
		t.Errorf("SelectMemoryType(first fit) = %d, want 0", got)
	}
}

func TestSelectMemoryTypeNoMatch(t *testing.T) {
	types := discreteMemoryTypes()
	for _, strategy := range []MemoryStrategy{MemoryFirstFit, MemoryScored} {
		t.Run(strategy.String(), func(t *testing.T) {
			_, err := SelectMemoryType(types, 0x1, HostVisible, strategy)
			if !errors.Is(err, core.ErrAllocation) {
				t.Errorf("SelectMemoryType() error = %v, want ErrAllocation", err)
			}
			_, err = SelectMemoryType(nil, 0xFFFFFFFF, 0, strategy)
			if !errors.Is(err, core.ErrAllocation) {
				t.Errorf("SelectMemoryType(empty) error = %v, want ErrAllocation", err)
			}
		})
	}
}

func TestNewReadbackLayout(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		alignment     uint64
		mode          RowPitchMode
		wantRowLength uint32
		wantPitch     uint64
		wantSize      uint64
	}{
		{"tight", 64, 64, 256, RowPitchTight, 0, 256, 16384},
		{"aligned already multiple", 64, 2, 256, RowPitchAligned, 64, 256, 512},
		{"aligned pads", 10, 3, 256, RowPitchAligned, 64, 256, 768},
		{"aligned small alignment", 3, 2, 1, RowPitchAligned, 3, 12, 24},
		{"aligned non power of two", 5, 1, 24, RowPitchAligned, 6, 24, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewReadbackLayout(tt.width, tt.height, 4, tt.alignment, tt.mode)
			if got.RowLength != tt.wantRowLength {
				t.Errorf("RowLength = %d, want %d", got.RowLength, tt.wantRowLength)
			}
			if got.RowPitch != tt.wantPitch {
				t.Errorf("RowPitch = %d, want %d", got.RowPitch, tt.wantPitch)
			}
			if got.Size != tt.wantSize {
				t.Errorf("Size = %d, want %d", got.Size, tt.wantSize)
			}
			if got.RowBytes != uint64(tt.width)*4 {
				t.Errorf("RowBytes = %d, want %d", got.RowBytes, tt.width*4)
			}
		})
	}
}

func TestPackRows(t *testing.T) {
	src := []byte{
		1, 2, 3, 0, 0,
		4, 5, 6, 0, 0,
		7, 8, 9,
	}
	got, err := PackRows(src, 5, 3, 3)
	if err != nil {
		t.Fatalf("PackRows() error = %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	if !bytes.Equal(got, want) {
		t.Errorf("PackRows() = %v, want %v", got, want)
	}

	tight, err := PackRows(want, 3, 3, 3)
	if err != nil || !bytes.Equal(tight, want) {
		t.Errorf("PackRows(tight) = %v, %v, want %v", tight, err, want)
	}
	tight[0] = 42
	if want[0] != 1 {
		t.Errorf("PackRows(tight) aliases its input")
	}

	if _, err := PackRows(src, 2, 3, 3); !errors.Is(err, core.ErrMapping) {
		t.Errorf("PackRows(rowBytes > pitch) error = %v, want ErrMapping", err)
	}
	if _, err := PackRows(src[:8], 5, 3, 3); !errors.Is(err, core.ErrMapping) {
		t.Errorf("PackRows(short) error = %v, want ErrMapping", err)
	}
}

func TestLayoutTrackerOrder(t *testing.T) {
	tracker := NewLayoutTracker()
	steps := []struct {
		old, new vk.ImageLayout
	}{
		{vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal},
		{vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal},
		{vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutTransferSrcOptimal},
	}
	for _, s := range steps {
		if err := tracker.Transition("color", s.old, s.new, SourceBarrier); err != nil {
			t.Fatalf("Transition(%s, %s) error = %v", LayoutName(s.old), LayoutName(s.new), err)
		}
	}
	want := []vk.ImageLayout{vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutTransferSrcOptimal}
	if got := tracker.Sequence("color"); !reflect.DeepEqual(got, want) {
		t.Errorf("Sequence() = %v, want %v", got, want)
	}
	if n := len(tracker.Transitions()); n != 2 {
		t.Errorf("len(Transitions()) = %d, want 2", n)
	}
	if err := tracker.Require("color", vk.ImageLayoutTransferSrcOptimal); err != nil {
		t.Errorf("Require() error = %v", err)
	}
}

func TestLayoutTrackerRejects(t *testing.T) {
	tests := []struct {
		name string
		run  func(tr *LayoutTracker) error
	}{
		{"backwards", func(tr *LayoutTracker) error {
			_ = tr.Transition("a", vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, SourceBarrier)
			_ = tr.Transition("a", vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutShaderReadOnlyOptimal, SourceBarrier)
			return tr.Transition("a", vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutColorAttachmentOptimal, SourceBarrier)
		}},
		{"stale old layout", func(tr *LayoutTracker) error {
			return tr.Transition("a", vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutTransferSrcOptimal, SourceBarrier)
		}},
		{"sampled before barrier", func(tr *LayoutTracker) error {
			_ = tr.Transition("a", vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, SourceRenderpass)
			return tr.Require("a", vk.ImageLayoutShaderReadOnlyOptimal)
		}},
		{"read to read", func(tr *LayoutTracker) error {
			_ = tr.Transition("a", vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, SourceBarrier)
			_ = tr.Transition("a", vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutShaderReadOnlyOptimal, SourceBarrier)
			return tr.Transition("a", vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferSrcOptimal, SourceBarrier)
		}},
		{"unknown layout", func(tr *LayoutTracker) error {
			return tr.Transition("a", vk.ImageLayoutUndefined, vk.ImageLayoutGeneral, SourceBarrier)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(NewLayoutTracker())
			if !errors.Is(err, core.ErrLayoutOrder) {
				t.Errorf("error = %v, want ErrLayoutOrder", err)
			}
		})
	}
}

func TestLayoutTrackerRecordRenderpass(t *testing.T) {
	color := &VulkanImage{Name: "toon"}
	depth := &VulkanImage{Name: "depth"}
	clearPass := &VulkanRenderpass{Attachments: []AttachmentConfig{
		{InitialLayout: vk.ImageLayoutUndefined, FinalLayout: vk.ImageLayoutColorAttachmentOptimal},
		{Depth: true, InitialLayout: vk.ImageLayoutUndefined, FinalLayout: vk.ImageLayoutDepthStencilAttachmentOptimal},
	}}
	loadPass := &VulkanRenderpass{Attachments: []AttachmentConfig{
		{Load: true, InitialLayout: vk.ImageLayoutColorAttachmentOptimal, FinalLayout: vk.ImageLayoutColorAttachmentOptimal},
		{Depth: true, Load: true, InitialLayout: vk.ImageLayoutDepthStencilAttachmentOptimal, FinalLayout: vk.ImageLayoutDepthStencilAttachmentOptimal},
	}}

	tracker := NewLayoutTracker()
	if err := tracker.RecordRenderpass(loadPass, []*VulkanImage{color, depth}); !errors.Is(err, core.ErrLayoutOrder) {
		t.Errorf("RecordRenderpass(load before clear) error = %v, want ErrLayoutOrder", err)
	}

	tracker = NewLayoutTracker()
	if err := tracker.RecordRenderpass(clearPass, []*VulkanImage{color, depth}); err != nil {
		t.Fatalf("RecordRenderpass(clear) error = %v", err)
	}
	if err := tracker.RecordRenderpass(loadPass, []*VulkanImage{color, depth}); err != nil {
		t.Fatalf("RecordRenderpass(load) error = %v", err)
	}
	if got := tracker.Current("depth"); got != vk.ImageLayoutDepthStencilAttachmentOptimal {
		t.Errorf("Current(depth) = %s, want DEPTH_ATTACHMENT", LayoutName(got))
	}
	if n := len(tracker.Transitions()); n != 2 {
		t.Errorf("len(Transitions()) = %d, want 2", n)
	}
	if err := tracker.RecordRenderpass(clearPass, []*VulkanImage{color}); !errors.Is(err, core.ErrLayoutOrder) {
		t.Errorf("RecordRenderpass(mismatched images) error = %v, want ErrLayoutOrder", err)
	}
}

func TestArenaReleaseOrder(t *testing.T) {
	arena := NewArena(nil)
	var order []string
	for _, name := range []string{"pool", "image", "pipeline"} {
		name := name
		arena.Defer(name, func() { order = append(order, name) })
	}
	if arena.Len() != 3 {
		t.Errorf("Len() = %d, want 3", arena.Len())
	}
	arena.Release()
	arena.Release()

	want := []string{"pipeline", "image", "pool"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("release order = %v, want %v", order, want)
	}
	if arena.Released() != 3 || arena.Len() != 0 {
		t.Errorf("Released() = %d, Len() = %d, want 3, 0", arena.Released(), arena.Len())
	}
}

func TestVulkanResultString(t *testing.T) {
	tests := []struct {
		result   vk.Result
		extended bool
		want     string
	}{
		{vk.Success, false, "VK_SUCCESS"},
		{vk.ErrorDeviceLost, false, "VK_ERROR_DEVICE_LOST"},
		{vk.ErrorOutOfDeviceMemory, true, "VK_ERROR_OUT_OF_DEVICE_MEMORY A device memory allocation has failed."},
		{vk.Result(-123456), false, "VK_RESULT(-123456)"},
	}
	for _, tt := range tests {
		if got := VulkanResultString(tt.result, tt.extended); got != tt.want {
			t.Errorf("VulkanResultString(%d) = %q, want %q", tt.result, got, tt.want)
		}
	}
	if !VulkanResultIsSuccess(vk.Incomplete) || VulkanResultIsSuccess(vk.ErrorDeviceLost) {
		t.Errorf("VulkanResultIsSuccess() misclassifies results")
	}
	err := resultError(core.ErrSubmission, "vkQueueSubmit", vk.ErrorDeviceLost)
	if !errors.Is(err, core.ErrSubmission) {
		t.Errorf("resultError() = %v, want wrapped ErrSubmission", err)
	}
}

func TestVulkanSafeStrings(t *testing.T) {
	in := []string{"VK_LAYER_KHRONOS_validation", "ok\x00", ""}
	got := VulkanSafeStrings(in)
	want := []string{"VK_LAYER_KHRONOS_validation\x00", "ok\x00", "\x00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("VulkanSafeStrings() = %q, want %q", got, want)
	}
	if in[0] != "VK_LAYER_KHRONOS_validation" {
		t.Errorf("VulkanSafeStrings() modified its input")
	}
}

func TestLockPoolSerializesQueue(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)

	var wg sync.WaitGroup
	inside, maxInside := 0, 0
	var mu sync.Mutex
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(family uint32) {
			defer wg.Done()
			_ = pool.SafeQueueCall(family, func() error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}(0)
	}
	wg.Wait()
	if maxInside != 1 {
		t.Errorf("concurrent queue calls = %d, want 1", maxInside)
	}

	called := false
	if err := pool.SafeQueueCall(7, func() error { called = true; return nil }); err != nil || !called {
		t.Errorf("SafeQueueCall(unknown family) = %v, called %t", err, called)
	}
}

func TestHeadlessContext(t *testing.T) {
	vc, err := NewHeadlessContext(ContextOptions{AppName: "vulkan-test", DeviceIndex: -1})
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	defer vc.Destroy()

	if vc.DeviceName() == "" {
		t.Errorf("DeviceName() is empty")
	}
	if len(vc.MemoryTypes()) == 0 {
		t.Fatalf("MemoryTypes() is empty")
	}

	arena := NewArena(vc)
	defer arena.Release()

	img, err := arena.Image(ImageConfig{
		Name:   "probe",
		Width:  4,
		Height: 4,
		Format: vk.FormatR8g8b8a8Unorm,
		Usage:  vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit),
		Aspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if img.View == nil {
		t.Errorf("Image() view is nil")
	}
	buf, err := arena.Buffer("probe", 64, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), HostVisible, MemoryScored)
	if err != nil {
		t.Fatalf("Buffer() error = %v", err)
	}
	payload := bytes.Repeat([]byte{7}, 64)
	if err := buf.Upload(vc, payload); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	got, err := buf.Read(vc, 64)
	if err != nil || !bytes.Equal(got, payload) {
		t.Errorf("Read() = %v, %v, want %v", got, err, payload)
	}
	if _, err := arena.Image(ImageConfig{Name: "empty"}); !errors.Is(err, core.ErrInvalidDimensions) {
		t.Errorf("Image(0x0) error = %v, want ErrInvalidDimensions", err)
	}
}

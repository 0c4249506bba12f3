package vulkan

import (
	"fmt"
	"math/bits"
	"sort"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

// MemoryStrategy selects how a memory type is chosen among the compatible ones.
type MemoryStrategy int

const (
	// MemoryFirstFit takes the lowest compatible index.
	MemoryFirstFit MemoryStrategy = iota
	// MemoryScored prefers the fewest unrequested property flags, then device-local
	// heaps, then larger heaps, then the lower index.
	MemoryScored
)

func (s MemoryStrategy) String() string {
	switch s {
	case MemoryFirstFit:
		return "first-fit"
	case MemoryScored:
		return "scored"
	default:
		return "unknown"
	}
}

// MemoryType is one entry of the device memory type table together with the
// heap it allocates from.
type MemoryType struct {
	PropertyFlags   vk.MemoryPropertyFlags
	HeapIndex       uint32
	HeapSize        uint64
	HeapDeviceLocal bool
}

func memoryTypesFromProperties(props vk.PhysicalDeviceMemoryProperties) []MemoryType {
	types := make([]MemoryType, 0, props.MemoryTypeCount)
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		mt := props.MemoryTypes[i]
		t := MemoryType{
			PropertyFlags: mt.PropertyFlags,
			HeapIndex:     mt.HeapIndex,
		}
		if mt.HeapIndex < props.MemoryHeapCount {
			heap := props.MemoryHeaps[mt.HeapIndex]
			t.HeapSize = uint64(heap.Size)
			t.HeapDeviceLocal = vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0
		}
		types = append(types, t)
	}
	return types
}

func (t MemoryType) compatible(index int, typeFilter uint32, required vk.MemoryPropertyFlags) bool {
	return index < 32 && typeFilter&(1<<uint(index)) != 0 && t.PropertyFlags&required == required
}

// SelectMemoryType returns the index of the memory type to allocate from, or
// ErrAllocation when no type is both allowed by typeFilter and carries every
// required flag.
func SelectMemoryType(types []MemoryType, typeFilter uint32, required vk.MemoryPropertyFlags, strategy MemoryStrategy) (uint32, error) {
	candidates := make([]int, 0, len(types))
	for i, t := range types {
		if t.compatible(i, typeFilter, required) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("%w: filter 0x%x, flags 0x%x", core.ErrAllocation, typeFilter, uint32(required))
	}
	if strategy == MemoryFirstFit {
		return uint32(candidates[0]), nil
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		ta, tb := types[candidates[a]], types[candidates[b]]
		extraA := bits.OnesCount32(uint32(ta.PropertyFlags &^ required))
		extraB := bits.OnesCount32(uint32(tb.PropertyFlags &^ required))
		if extraA != extraB {
			return extraA < extraB
		}
		if ta.HeapDeviceLocal != tb.HeapDeviceLocal {
			return ta.HeapDeviceLocal
		}
		if ta.HeapSize != tb.HeapSize {
			return ta.HeapSize > tb.HeapSize
		}
		return candidates[a] < candidates[b]
	})
	return uint32(candidates[0]), nil
}

// PropertyFlagNames renders a memory property mask for device listings.
func PropertyFlagNames(flags vk.MemoryPropertyFlags) []string {
	names := []string{}
	table := []struct {
		bit  vk.MemoryPropertyFlagBits
		name string
	}{
		{vk.MemoryPropertyDeviceLocalBit, "device-local"},
		{vk.MemoryPropertyHostVisibleBit, "host-visible"},
		{vk.MemoryPropertyHostCoherentBit, "host-coherent"},
		{vk.MemoryPropertyHostCachedBit, "host-cached"},
		{vk.MemoryPropertyLazilyAllocatedBit, "lazily-allocated"},
	}
	for _, entry := range table {
		if flags&vk.MemoryPropertyFlags(entry.bit) != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

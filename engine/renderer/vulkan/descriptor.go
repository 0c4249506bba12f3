package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

// VULKAN_SHADER_MAX_BINDINGS bounds the bindings of one descriptor set.
const VULKAN_SHADER_MAX_BINDINGS = 8

/**
 * @brief The configuration for a descriptor set.
 */
type VulkanDescriptorSetConfig struct {
	/** @brief An array of binding layouts for this set. */
	Bindings []vk.DescriptorSetLayoutBinding
}

/**
 * @brief A descriptor set together with the layout and pool it came from.
 * All three are owned by the set and released by Destroy.
 */
type VulkanDescriptorSet struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Set    vk.DescriptorSet
}

// DescriptorSetCreate creates the layout, a pool sized for exactly one set of
// that layout, and allocates the set.
func DescriptorSetCreate(context *VulkanContext, config VulkanDescriptorSetConfig) (*VulkanDescriptorSet, error) {
	if len(config.Bindings) == 0 || len(config.Bindings) > VULKAN_SHADER_MAX_BINDINGS {
		return nil, fmt.Errorf("%w: descriptor set with %d bindings", core.ErrResourceCreation, len(config.Bindings))
	}
	device := context.Device.LogicalDevice
	out := &VulkanDescriptorSet{}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(config.Bindings)),
		PBindings:    config.Bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(device, &layoutInfo, context.Allocator, &layout); res != vk.Success {
		return nil, resultError(core.ErrResourceCreation, "vkCreateDescriptorSetLayout", res)
	}
	out.Layout = layout

	// One pool entry per descriptor type in use.
	counts := map[vk.DescriptorType]uint32{}
	order := []vk.DescriptorType{}
	for _, b := range config.Bindings {
		if _, ok := counts[b.DescriptorType]; !ok {
			order = append(order, b.DescriptorType)
		}
		counts[b.DescriptorType] += b.DescriptorCount
	}
	poolSizes := make([]vk.DescriptorPoolSize, 0, len(order))
	for _, t := range order {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: counts[t]})
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &pool); res != vk.Success {
		out.Destroy(context)
		return nil, resultError(core.ErrResourceCreation, "vkCreateDescriptorPool", res)
	}
	out.Pool = pool

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     out.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{out.Layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(device, &allocInfo, &(sets[0])); res != vk.Success {
		out.Destroy(context)
		return nil, resultError(core.ErrResourceCreation, "vkAllocateDescriptorSets", res)
	}
	out.Set = sets[0]
	return out, nil
}

// WriteSampler points binding at a standalone sampler.
func (ds *VulkanDescriptorSet) WriteSampler(binding uint32, sampler vk.Sampler) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          ds.Set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeSampler,
		PImageInfo:      []vk.DescriptorImageInfo{{Sampler: sampler}},
	}
}

// WriteSampledImage points binding at an image view in shader-read-only layout.
func (ds *VulkanDescriptorSet) WriteSampledImage(binding uint32, img *VulkanImage) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          ds.Set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeSampledImage,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   img.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}
}

// WriteUniformBuffer points binding at the whole of buf.
func (ds *VulkanDescriptorSet) WriteUniformBuffer(binding uint32, buf *VulkanBuffer) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          ds.Set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf.Handle,
			Offset: 0,
			Range:  vk.DeviceSize(buf.Size),
		}},
	}
}

func (ds *VulkanDescriptorSet) Update(context *VulkanContext, writes ...vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}

func (ds *VulkanDescriptorSet) Bind(commandBuffer *VulkanCommandBuffer, pipeline *VulkanPipeline) {
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{ds.Set}, 0, nil)
}

// Destroy releases the pool, which frees the set, then the layout.
func (ds *VulkanDescriptorSet) Destroy(context *VulkanContext) {
	if ds.Pool != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, ds.Pool, context.Allocator)
		ds.Pool = nil
		ds.Set = nil
	}
	if ds.Layout != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, ds.Layout, context.Allocator)
		ds.Layout = nil
	}
}

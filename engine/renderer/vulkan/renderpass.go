package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

type VulkanRenderPassState int

const (
	READY VulkanRenderPassState = iota
	RECORDING
	IN_RENDER_PASS
	RECORDING_ENDED
	SUBMITTED
	NOT_ALLOCATED
)

// AttachmentConfig describes one attachment of a single-subpass render pass.
// A Load attachment keeps its contents; otherwise it is cleared to Clear.
type AttachmentConfig struct {
	Format        vk.Format
	Depth         bool
	Load          bool
	Store         bool
	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout
	Clear         vk.ClearValue
}

// SubpassLayout is the layout the attachment is in while the subpass runs.
func (a AttachmentConfig) SubpassLayout() vk.ImageLayout {
	if a.Depth {
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	}
	return vk.ImageLayoutColorAttachmentOptimal
}

type VulkanRenderpass struct {
	Handle      vk.RenderPass
	X, Y, W, H  float32
	Attachments []AttachmentConfig
	State       VulkanRenderPassState
}

// RenderpassCreate builds a render pass with any number of color attachments
// followed by at most one depth attachment.
func RenderpassCreate(context *VulkanContext, w, h uint32, attachments []AttachmentConfig) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{
		X:           0,
		Y:           0,
		W:           float32(w),
		H:           float32(h),
		Attachments: attachments,
		State:       NOT_ALLOCATED,
	}

	attachmentDescriptions := make([]vk.AttachmentDescription, 0, len(attachments))
	colorAttachmentReferences := []vk.AttachmentReference{}
	var depthAttachmentReference *vk.AttachmentReference

	for i, a := range attachments {
		loadOp := vk.AttachmentLoadOpClear
		if a.Load {
			loadOp = vk.AttachmentLoadOpLoad
		}
		storeOp := vk.AttachmentStoreOpDontCare
		if a.Store {
			storeOp = vk.AttachmentStoreOpStore
		}
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         a.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp,
			StoreOp:        storeOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  a.InitialLayout,
			FinalLayout:    a.FinalLayout,
		})

		ref := vk.AttachmentReference{
			Attachment: uint32(i), // Attachment description array index
			Layout:     a.SubpassLayout(),
		}
		if a.Depth {
			depthAttachmentReference = &ref
		} else {
			colorAttachmentReferences = append(colorAttachmentReferences, ref)
		}
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorAttachmentReferences)),
		PColorAttachments:       colorAttachmentReferences,
		PDepthStencilAttachment: depthAttachmentReference,
	}

	attachmentStages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) |
		vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit) |
		vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit)
	attachmentWrites := vk.AccessFlags(vk.AccessColorAttachmentWriteBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit)

	// Earlier submissions wrote these attachments; later ones sample or copy them.
	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  attachmentStages,
			SrcAccessMask: attachmentWrites,
			DstStageMask:  attachmentStages,
			DstAccessMask: attachmentWrites |
				vk.AccessFlags(vk.AccessColorAttachmentReadBit) |
				vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit),
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  attachmentStages,
			SrcAccessMask: attachmentWrites,
			DstStageMask: vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit) |
				vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit) | vk.AccessFlags(vk.AccessTransferReadBit),
		},
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var pRenderPass vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &pRenderPass); res != vk.Success {
		return nil, resultError(core.ErrResourceCreation, "vkCreateRenderPass", res)
	}
	outRenderpass.Handle = pRenderPass
	outRenderpass.State = READY
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
	vr.State = NOT_ALLOCATED
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer *VulkanFramebuffer) {
	clearValues := make([]vk.ClearValue, len(vr.Attachments))
	for i, a := range vr.Attachments {
		clearValues[i] = a.Clear
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{
				X: int32(vr.X),
				Y: int32(vr.Y),
			},
			Extent: vk.Extent2D{
				Width:  uint32(vr.W),
				Height: uint32(vr.H),
			},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	vr.State = IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
	vr.State = RECORDING_ENDED
}

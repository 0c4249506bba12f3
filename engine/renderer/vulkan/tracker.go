package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

// TransitionSource tells whether a transition came from an explicit barrier
// or from a render pass's initial/final layouts.
type TransitionSource string

const (
	SourceBarrier    TransitionSource = "barrier"
	SourceRenderpass TransitionSource = "renderpass"
)

// Transition is one recorded layout change of a named image.
type Transition struct {
	Image  string
	Old    vk.ImageLayout
	New    vk.ImageLayout
	Source TransitionSource
}

func (tr Transition) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s)", tr.Image, LayoutName(tr.Old), LayoutName(tr.New), tr.Source)
}

// layoutStage orders the layouts an image may pass through:
// undefined, then attachment, then shader-read or transfer-source.
func layoutStage(layout vk.ImageLayout) int {
	switch layout {
	case vk.ImageLayoutUndefined:
		return 0
	case vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutDepthStencilAttachmentOptimal:
		return 1
	case vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferSrcOptimal:
		return 2
	default:
		return -1
	}
}

func LayoutName(layout vk.ImageLayout) string {
	switch layout {
	case vk.ImageLayoutUndefined:
		return "UNDEFINED"
	case vk.ImageLayoutColorAttachmentOptimal:
		return "COLOR_ATTACHMENT"
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return "DEPTH_ATTACHMENT"
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return "SHADER_READ_ONLY"
	case vk.ImageLayoutTransferSrcOptimal:
		return "TRANSFER_SRC"
	default:
		return fmt.Sprintf("LAYOUT(%d)", layout)
	}
}

// LayoutTracker follows the layout of every image of a render call and
// rejects transitions that go backwards or start from a stale layout.
type LayoutTracker struct {
	current     map[string]vk.ImageLayout
	transitions []Transition
}

func NewLayoutTracker() *LayoutTracker {
	return &LayoutTracker{current: map[string]vk.ImageLayout{}}
}

// Current is the tracked layout of image; untracked images are undefined.
func (t *LayoutTracker) Current(image string) vk.ImageLayout {
	if l, ok := t.current[image]; ok {
		return l
	}
	return vk.ImageLayoutUndefined
}

// Transition records image moving from oldLayout to newLayout. A no-op
// transition is accepted and not recorded.
func (t *LayoutTracker) Transition(image string, oldLayout, newLayout vk.ImageLayout, source TransitionSource) error {
	if current := t.Current(image); current != oldLayout {
		return fmt.Errorf("%w: %s expected in %s, tracked in %s", core.ErrLayoutOrder, image, LayoutName(oldLayout), LayoutName(current))
	}
	if oldLayout == newLayout {
		return nil
	}
	from, to := layoutStage(oldLayout), layoutStage(newLayout)
	if from < 0 || to < 0 || to <= from {
		return fmt.Errorf("%w: %s cannot go from %s to %s", core.ErrLayoutOrder, image, LayoutName(oldLayout), LayoutName(newLayout))
	}
	t.current[image] = newLayout
	t.transitions = append(t.transitions, Transition{Image: image, Old: oldLayout, New: newLayout, Source: source})
	return nil
}

// Require checks image is in layout before it is sampled, copied or rendered to.
func (t *LayoutTracker) Require(image string, layout vk.ImageLayout) error {
	if current := t.Current(image); current != layout {
		return fmt.Errorf("%w: %s used as %s while in %s", core.ErrLayoutOrder, image, LayoutName(layout), LayoutName(current))
	}
	return nil
}

// RecordRenderpass records the implicit transitions a render pass performs on
// its attachments: initial to subpass layout, then subpass to final layout.
func (t *LayoutTracker) RecordRenderpass(rp *VulkanRenderpass, images []*VulkanImage) error {
	if len(images) != len(rp.Attachments) {
		return fmt.Errorf("%w: %d images for %d attachments", core.ErrLayoutOrder, len(images), len(rp.Attachments))
	}
	for i, a := range rp.Attachments {
		name := images[i].Name
		if err := t.Transition(name, a.InitialLayout, a.SubpassLayout(), SourceRenderpass); err != nil {
			return err
		}
		if err := t.Transition(name, a.SubpassLayout(), a.FinalLayout, SourceRenderpass); err != nil {
			return err
		}
	}
	return nil
}

// Transitions returns every recorded transition in order.
func (t *LayoutTracker) Transitions() []Transition {
	out := make([]Transition, len(t.transitions))
	copy(out, t.transitions)
	return out
}

// Sequence lists the layouts image went through, starting with UNDEFINED.
func (t *LayoutTracker) Sequence(image string) []vk.ImageLayout {
	seq := []vk.ImageLayout{vk.ImageLayoutUndefined}
	for _, tr := range t.transitions {
		if tr.Image == image {
			seq = append(seq, tr.New)
		}
	}
	return seq
}

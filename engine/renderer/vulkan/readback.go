package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
)

// RowPitchMode controls how image rows are laid out in the readback buffer.
type RowPitchMode int

const (
	// RowPitchTight copies rows back to back with no padding.
	RowPitchTight RowPitchMode = iota
	// RowPitchAligned pads every row to the device's optimal copy pitch and
	// strips the padding on the host.
	RowPitchAligned
)

func (m RowPitchMode) String() string {
	switch m {
	case RowPitchTight:
		return "tight"
	case RowPitchAligned:
		return "aligned"
	default:
		return "unknown"
	}
}

// ReadbackLayout is the buffer side of an image-to-buffer copy.
type ReadbackLayout struct {
	// Row length in texels handed to the copy; zero means tightly packed.
	RowLength uint32
	RowPitch  uint64
	RowBytes  uint64
	Height    uint32
	Size      uint64
}

// NewReadbackLayout computes the staging layout of a width by height image.
// alignment is the device's optimal row pitch in bytes; values below the texel
// size are raised to it so the pitch is always a whole number of texels.
func NewReadbackLayout(width, height, bytesPerPixel uint32, alignment uint64, mode RowPitchMode) ReadbackLayout {
	rowBytes := uint64(width) * uint64(bytesPerPixel)
	layout := ReadbackLayout{
		RowPitch: rowBytes,
		RowBytes: rowBytes,
		Height:   height,
	}
	if mode == RowPitchAligned {
		if alignment < uint64(bytesPerPixel) {
			alignment = uint64(bytesPerPixel)
		}
		var pitch uint64
		if alignment&(alignment-1) == 0 {
			pitch = metadata.GetAligned(rowBytes, alignment)
		} else {
			pitch = (rowBytes + alignment - 1) / alignment * alignment
			pitch = (pitch + uint64(bytesPerPixel) - 1) / uint64(bytesPerPixel) * uint64(bytesPerPixel)
		}
		layout.RowPitch = pitch
		layout.RowLength = uint32(pitch / uint64(bytesPerPixel))
	}
	layout.Size = layout.RowPitch * uint64(height)
	return layout
}

// PackRows drops the padding at the end of every row of src.
func PackRows(src []byte, rowPitch, rowBytes, height int) ([]byte, error) {
	if rowBytes > rowPitch || rowBytes < 0 || height < 0 {
		return nil, fmt.Errorf("%w: row of %d bytes in pitch %d", core.ErrMapping, rowBytes, rowPitch)
	}
	if len(src) < rowPitch*(height-1)+rowBytes && height > 0 {
		return nil, fmt.Errorf("%w: %d bytes cannot hold %d rows of pitch %d", core.ErrMapping, len(src), height, rowPitch)
	}
	if rowPitch == rowBytes {
		out := make([]byte, rowBytes*height)
		copy(out, src)
		return out, nil
	}
	out := make([]byte, 0, rowBytes*height)
	for y := 0; y < height; y++ {
		start := y * rowPitch
		out = append(out, src[start:start+rowBytes]...)
	}
	return out, nil
}

// CopyImageToBuffer records the copy of a color image in TRANSFER_SRC layout
// into buf using layout.
func CopyImageToBuffer(commandBuffer *VulkanCommandBuffer, img *VulkanImage, buf *VulkanBuffer, layout ReadbackLayout, tracker *LayoutTracker) error {
	if err := tracker.Require(img.Name, vk.ImageLayoutTransferSrcOptimal); err != nil {
		return err
	}
	if buf.Size < layout.Size {
		return fmt.Errorf("%w: readback buffer of %d bytes for %d", core.ErrResourceCreation, buf.Size, layout.Size)
	}
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   layout.RowLength,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: img.Width, Height: img.Height, Depth: 1},
	}
	vk.CmdCopyImageToBuffer(commandBuffer.Handle, img.Handle, vk.ImageLayoutTransferSrcOptimal, buf.Handle, 1, []vk.BufferImageCopy{region})
	return nil
}

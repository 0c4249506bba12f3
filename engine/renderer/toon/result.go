package toon

import (
	"fmt"
	"image"
)

// Image wraps the pixels without copying. The shaded image is opaque, so
// straight and premultiplied alpha coincide.
func (r *Result) Image() (*image.NRGBA, error) {
	want := int(r.Width) * int(r.Height) * bytesPerPixel
	if len(r.Pixels) != want {
		return nil, fmt.Errorf("result holds %d bytes, want %d for %dx%d", len(r.Pixels), want, r.Width, r.Height)
	}
	return &image.NRGBA{
		Pix:    r.Pixels,
		Stride: int(r.Width) * bytesPerPixel,
		Rect:   image.Rect(0, 0, int(r.Width), int(r.Height)),
	}, nil
}

// Coverage is the fraction of pixels whose colour differs from the clear colour.
func (r *Result) Coverage() float64 {
	if len(r.Pixels) == 0 {
		return 0
	}
	bg := [3]uint8{unorm8(ClearColor.X), unorm8(ClearColor.Y), unorm8(ClearColor.Z)}
	covered := 0
	n := len(r.Pixels) / bytesPerPixel
	for i := 0; i < n; i++ {
		p := r.Pixels[i*bytesPerPixel:]
		if p[0] != bg[0] || p[1] != bg[1] || p[2] != bg[2] {
			covered++
		}
	}
	return float64(covered) / float64(n)
}

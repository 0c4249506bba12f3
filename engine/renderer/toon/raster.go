package toon

import (
	stdmath "math"

	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
)

type clipVertex struct {
	Position math.Vec4
	Normal   math.Vec3
}

type screenVertex struct {
	X, Y, Z float32
	InvW    float32
	Normal  math.Vec3
}

// fragmentFunc receives a covered pixel centre with its depth and the
// perspective-correct interpolated normal.
type fragmentFunc func(x, y int, depth float32, normal math.Vec3)

func edge(a, b screenVertex, px, py float32) float32 {
	return (b.X-a.X)*(py-a.Y) - (b.Y-a.Y)*(px-a.X)
}

// pixelBound converts a screen coordinate to a pixel index in [0, limit-1].
// The float is clamped first; near-zero w produces coordinates far outside
// the int range.
func pixelBound(v float32, limit int) int {
	if v != v {
		return 0
	}
	return int(math.Clamp(v, 0, float32(limit-1)))
}

// rasterize draws an indexed triangle list with the fixed-function rules of
// the GPU passes: counter-clockwise front faces in framebuffer space, pixel
// centre sampling and depth clipping to [0,1]. Triangles crossing w <= 0 are
// dropped.
func rasterize(width, height int, vertices []clipVertex, indices []uint32, cull metadata.FaceCullMode, fragment fragmentFunc) {
	screen := make([]screenVertex, len(vertices))
	behind := make([]bool, len(vertices))
	for i, v := range vertices {
		if v.Position.W <= 0 {
			behind[i] = true
			continue
		}
		invW := 1 / v.Position.W
		screen[i] = screenVertex{
			X:      (v.Position.X*invW*0.5 + 0.5) * float32(width),
			Y:      (v.Position.Y*invW*0.5 + 0.5) * float32(height),
			Z:      v.Position.Z * invW,
			InvW:   invW,
			Normal: v.Normal,
		}
	}

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if behind[i0] || behind[i1] || behind[i2] {
			continue
		}
		v0, v1, v2 := screen[i0], screen[i1], screen[i2]

		area := edge(v0, v1, v2.X, v2.Y)
		if area == 0 || stdmath.IsInf(float64(area), 0) || stdmath.IsNaN(float64(area)) {
			continue
		}
		// Framebuffer Y points down, so a counter-clockwise front face has a
		// negative signed area here.
		front := area < 0
		switch cull {
		case metadata.FaceCullModeBack:
			if !front {
				continue
			}
		case metadata.FaceCullModeFront:
			if front {
				continue
			}
		case metadata.FaceCullModeFrontAndBack:
			continue
		}

		minX := pixelBound(math.Min(v0.X, math.Min(v1.X, v2.X)), width)
		maxX := pixelBound(math.Max(v0.X, math.Max(v1.X, v2.X))+1, width)
		minY := pixelBound(math.Min(v0.Y, math.Min(v1.Y, v2.Y)), height)
		maxY := pixelBound(math.Max(v0.Y, math.Max(v1.Y, v2.Y))+1, height)

		for y := minY; y <= maxY; y++ {
			py := float32(y) + 0.5
			for x := minX; x <= maxX; x++ {
				px := float32(x) + 0.5
				l0 := edge(v1, v2, px, py) / area
				l1 := edge(v2, v0, px, py) / area
				l2 := edge(v0, v1, px, py) / area
				if l0 < 0 || l1 < 0 || l2 < 0 {
					continue
				}
				z := l0*v0.Z + l1*v1.Z + l2*v2.Z
				if z < 0 || z > 1 {
					continue
				}
				w0, w1, w2 := l0*v0.InvW, l1*v1.InvW, l2*v2.InvW
				sum := w0 + w1 + w2
				n := v0.Normal.MulScalar(w0 / sum).
					Add(v1.Normal.MulScalar(w1 / sum)).
					Add(v2.Normal.MulScalar(w2 / sum))
				fragment(x, y, z, n)
			}
		}
	}
}

package toon

import (
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
)

// Shading constants shared with toon.wgsl.
const (
	shadowDarken = 0.55
	specPower    = 32.0
	minSoftness  = 1e-4
	impostorSize = 0.35
)

var (
	lightDir = math.NewVec3(0.4, 0.6, 0.7).Normalize()
	viewDir  = math.NewVec3(0, 0, 1)
)

func mixVec3(a, b math.Vec3, t float32) math.Vec3 {
	return math.NewVec3(math.Mix(a.X, b.X, t), math.Mix(a.Y, b.Y, t), math.Mix(a.Z, b.Z, t))
}

func clampVec3(v math.Vec3) math.Vec3 {
	return math.NewVec3(math.Clamp(v.X, 0, 1), math.Clamp(v.Y, 0, 1), math.Clamp(v.Z, 0, 1))
}

// ShadePixel is the toon shading of one G-buffer sample: albedo in [0,1] and
// a unit normal. It mirrors the fragment shader of the toon pass.
func ShadePixel(albedo, normal math.Vec3, slot StyleSlot) math.Vec3 {
	s := math.Max(slot.BandSoftness, minSoftness)

	shadowC := math.ShiftHueSaturation(albedo, slot.HueShiftShadow, slot.SatScaleShadow).MulScalar(shadowDarken)
	litC := math.ShiftHueSaturation(albedo, slot.HueShiftLight, slot.SatScaleLight)

	ndl := normal.Dot(lightDir)
	t1 := math.Smoothstep(slot.ShadowThreshold-s, slot.ShadowThreshold+s, ndl)
	var c math.Vec3
	if slot.MidThreshold >= 0 {
		t2 := math.Smoothstep(slot.MidThreshold-s, slot.MidThreshold+s, ndl)
		midC := mixVec3(shadowC, litC, 0.5)
		c = mixVec3(mixVec3(shadowC, midC, t1), litC, t2)
	} else {
		c = mixVec3(shadowC, litC, t1)
	}

	rimW := math.Max(slot.RimWidth, minSoftness)
	ndv := math.Max(normal.Dot(viewDir), 0)
	c = c.Add(litC.MulScalar(math.Smoothstep(1-rimW, 1, 1-ndv) * slot.RimStrength))

	h := lightDir.Add(viewDir).Normalize()
	spec := math.Pow(math.Max(normal.Dot(h), 0), specPower)
	sp := math.Smoothstep(slot.SpecThreshold-s, slot.SpecThreshold+s, spec) * slot.SpecIntensity
	c = c.Add(math.NewVec3(sp, sp, sp))

	return clampVec3(c)
}

// unorm8 quantizes like an RGBA8 UNORM attachment store.
func unorm8(v float32) uint8 {
	return uint8(stdmath.Round(float64(math.Clamp(v, 0, 1) * 255)))
}

func quantize(v float32) float32 {
	return float32(unorm8(v)) / 255
}

// softwareGBuffer mirrors the G-buffer attachments; normals are stored
// encoded and quantized like the GPU attachment.
type softwareGBuffer struct {
	width, height int
	albedo        []math.Vec4
	normal        []math.Vec3
	material      []uint8
	depth         []float32
}

func newSoftwareGBuffer(width, height int, materialID uint8) *softwareGBuffer {
	n := width * height
	gb := &softwareGBuffer{
		width:    width,
		height:   height,
		albedo:   make([]math.Vec4, n),
		normal:   make([]math.Vec3, n),
		material: make([]uint8, n),
		depth:    make([]float32, n),
	}
	for i := 0; i < n; i++ {
		gb.normal[i] = math.NewVec3(0.5, 0.5, 1)
		gb.material[i] = materialID
		gb.depth[i] = 1
	}
	return gb
}

func (gb *softwareGBuffer) write(i int, albedo math.Vec4, n math.Vec3, materialID uint8) {
	gb.albedo[i] = math.NewVec4(quantize(albedo.X), quantize(albedo.Y), quantize(albedo.Z), quantize(albedo.W))
	gb.normal[i] = math.NewVec3(quantize(n.X*0.5+0.5), quantize(n.Y*0.5+0.5), quantize(n.Z*0.5+0.5))
	gb.material[i] = materialID
}

// RenderSoftware produces the same image as Render on the CPU. It accepts the
// same options; shader, memory and row pitch options have no effect.
func RenderSoftware(width, height uint32, style ToonStyle, opts ...RenderOption) (*Result, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", core.ErrInvalidDimensions, width, height)
	}
	o := newRenderOptions(opts)
	id := core.NewInvocationID()
	logger := core.LogWith("invocation", id, "backend", "software")
	metrics := core.NewRenderMetrics()
	w, h := int(width), int(height)
	materialID := o.resolvedMaterialID()

	metrics.Begin("gbuffer")
	gb := newSoftwareGBuffer(w, h, materialID)
	mvp := MeshMVP(width, height)
	if o.mesh != nil {
		verts := make([]clipVertex, len(o.mesh.Vertices))
		for i, v := range o.mesh.Vertices {
			verts[i] = clipVertex{Position: mvp.MulVec4(v.Position.ToVec4(1)), Normal: v.Normal}
		}
		rasterize(w, h, verts, o.mesh.Indices, metadata.FaceCullModeBack, func(x, y int, depth float32, n math.Vec3) {
			i := y*w + x
			if depth > gb.depth[i] {
				return
			}
			gb.depth[i] = depth
			gb.write(i, o.albedo, n.Normalize(), materialID)
		})
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				px := ((float32(x)+0.5)/float32(w) - 0.5) / impostorSize
				py := ((float32(y)+0.5)/float32(h) - 0.5) / impostorSize
				r2 := px*px + py*py
				if r2 > 1 {
					continue
				}
				i := y*w + x
				gb.depth[i] = 0
				gb.write(i, o.albedo, math.NewVec3(px, -py, float32(stdmath.Sqrt(float64(1-r2)))), materialID)
			}
		}
	}

	metrics.Begin("toon")
	color := make([]math.Vec4, w*h)
	override := o.overrideSlot()
	for i := range color {
		a := gb.albedo[i]
		if a.W < 0.5 {
			color[i] = ClearColor
			continue
		}
		slot := style.Slot(gb.material[i])
		if override.Active() {
			slot = override
		}
		enc := gb.normal[i]
		n := math.NewVec3(enc.X*2-1, enc.Y*2-1, enc.Z*2-1).Normalize()
		c := ShadePixel(a.ToVec3(), n, slot)
		color[i] = c.ToVec4(1)
	}

	var outlineWidth float32
	if o.outlineEnabled() {
		metrics.Begin("outline")
		outlineWidth = OutlineWidth(o.resolvedOutlinePx(), width)
		if outlineWidth > 0 {
			verts := make([]clipVertex, len(o.mesh.Vertices))
			for i, v := range o.mesh.Vertices {
				verts[i] = clipVertex{Position: outlineVertex(mvp, v, outlineWidth)}
			}
			rasterize(w, h, verts, o.mesh.Indices, metadata.FaceCullModeFront, func(x, y int, depth float32, _ math.Vec3) {
				i := y*w + x
				if depth <= gb.depth[i] {
					color[i] = o.outlineColor
				}
			})
		}
	}

	metrics.Begin("readback")
	pixels := make([]byte, 0, w*h*bytesPerPixel)
	for _, c := range color {
		pixels = append(pixels, unorm8(c.X), unorm8(c.Y), unorm8(c.Z), unorm8(c.W))
	}
	metrics.End()

	logger.Debug("software render finished", "bytes", len(pixels), "passes", metrics.String())
	return &Result{
		Pixels:       pixels,
		Width:        width,
		Height:       height,
		InvocationID: id,
		MaterialID:   materialID,
		OutlineWidth: outlineWidth,
		Metrics:      metrics,
	}, nil
}

// outlineVertex applies the outline vertex shader: the clip position pushed
// along the projected normal by width, scaled by w to stay constant on screen.
func outlineVertex(mvp math.Mat4, v math.MeshVertex, width float32) math.Vec4 {
	clip := mvp.MulVec4(v.Position.ToVec4(1))
	n := mvp.MulVec4(v.Normal.ToVec4(0))
	l := float32(stdmath.Sqrt(float64(n.X*n.X + n.Y*n.Y)))
	if l > 1e-6 {
		clip.X += n.X / l * width * clip.W
		clip.Y += n.Y / l * width * clip.W
	}
	return clip
}

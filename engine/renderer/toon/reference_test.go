package toon

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
)

const epsilon = 1e-5

func vec3Near(a, b math.Vec3) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

func TestShadePixelBands(t *testing.T) {
	albedo := math.NewVec3(0.8, 0.6, 0.5)
	slot := DefaultStyle().Slot(SlotCloth)
	litC := math.ShiftHueSaturation(albedo, slot.HueShiftLight, slot.SatScaleLight)
	shadowC := math.ShiftHueSaturation(albedo, slot.HueShiftShadow, slot.SatScaleShadow).MulScalar(shadowDarken)
	// Faces the viewer but turns away from the light: no rim, no highlight.
	away := math.NewVec3(-0.4, -0.6, 0.7).Normalize()

	tests := []struct {
		name   string
		normal math.Vec3
		want   math.Vec3
	}{
		{"facing light", lightDir, litC},
		{"facing away", away, shadowC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShadePixel(albedo, tt.normal, slot); !vec3Near(got, tt.want) {
				t.Errorf("ShadePixel() = %v, want %v", got, tt.want)
			}
		})
	}

	lit := ShadePixel(albedo, lightDir, slot)
	dark := ShadePixel(albedo, away, slot)
	if lit.X+lit.Y+lit.Z <= dark.X+dark.Y+dark.Z {
		t.Errorf("lit %v is not brighter than shadow %v", lit, dark)
	}
}

func TestShadePixelClamps(t *testing.T) {
	slot := DefaultStyle().Slot(SlotSkin)
	slot.SpecThreshold = 0
	slot.SpecIntensity = 1
	slot.BandSoftness = 0.01
	got := ShadePixel(math.NewVec3(0.8, 0.6, 0.5), lightDir, slot)
	if !vec3Near(got, math.NewVec3(1, 1, 1)) {
		t.Errorf("ShadePixel() = %v, want white", got)
	}
}

func TestShadePixelRim(t *testing.T) {
	albedo := math.NewVec3(0.3, 0.5, 0.7)
	slot := DefaultStyle().Slot(SlotHair)
	// Silhouette normal, perpendicular to the view direction.
	edge := math.NewVec3(1, 0, 0)
	without := slot
	without.RimStrength = 0
	if a, b := ShadePixel(albedo, edge, slot), ShadePixel(albedo, edge, without); a.X+a.Y+a.Z <= b.X+b.Y+b.Z {
		t.Errorf("rim %v does not brighten %v", a, b)
	}
}

func TestRasterizeCoverage(t *testing.T) {
	// Upper-left half of a 4x4 target, counter-clockwise on screen.
	vertices := []clipVertex{
		{Position: math.NewVec4(-1, -1, 0.5, 1), Normal: math.NewVec3(0, 0, 1)},
		{Position: math.NewVec4(-1, 1, 0.5, 1), Normal: math.NewVec3(0, 0, 1)},
		{Position: math.NewVec4(1, -1, 0.5, 1), Normal: math.NewVec3(0, 0, 1)},
	}
	tests := []struct {
		name    string
		indices []uint32
		cull    metadata.FaceCullMode
		want    int
	}{
		{"front kept", []uint32{0, 1, 2}, metadata.FaceCullModeBack, 10},
		{"front culled", []uint32{0, 1, 2}, metadata.FaceCullModeFront, 0},
		{"back culled", []uint32{0, 2, 1}, metadata.FaceCullModeBack, 0},
		{"back kept", []uint32{0, 2, 1}, metadata.FaceCullModeFront, 10},
		{"no culling", []uint32{0, 1, 2, 0, 2, 1}, metadata.FaceCullModeNone, 20},
		{"both culled", []uint32{0, 1, 2}, metadata.FaceCullModeFrontAndBack, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count := 0
			rasterize(4, 4, vertices, tt.indices, tt.cull, func(x, y int, depth float32, n math.Vec3) {
				count++
				if x+y > 3 {
					t.Errorf("fragment (%d,%d) outside the triangle", x, y)
				}
				if depth != 0.5 {
					t.Errorf("depth = %v, want 0.5", depth)
				}
				if !vec3Near(n, math.NewVec3(0, 0, 1)) {
					t.Errorf("normal = %v, want (0,0,1)", n)
				}
			})
			if count != tt.want {
				t.Errorf("fragments = %d, want %d", count, tt.want)
			}
		})
	}
}

func TestRasterizeDropsBehindCamera(t *testing.T) {
	vertices := []clipVertex{
		{Position: math.NewVec4(-1, -1, 0.5, 1)},
		{Position: math.NewVec4(-1, 1, 0.5, -1)},
		{Position: math.NewVec4(1, -1, 0.5, 1)},
	}
	rasterize(4, 4, vertices, []uint32{0, 1, 2}, metadata.FaceCullModeNone, func(x, y int, _ float32, _ math.Vec3) {
		t.Errorf("unexpected fragment (%d,%d)", x, y)
	})
}

func TestRasterizeNearZeroW(t *testing.T) {
	// The middle vertex lands around 1e19 pixels away, past the int range.
	vertices := []clipVertex{
		{Position: math.NewVec4(-1, -1, 0.5, 1)},
		{Position: math.NewVec4(1, 1, 0, 2e-19)},
		{Position: math.NewVec4(1, -1, 0.5, 1)},
	}
	count, lastColumn := 0, false
	rasterize(4, 4, vertices, []uint32{0, 1, 2}, metadata.FaceCullModeNone, func(x, y int, depth float32, _ math.Vec3) {
		count++
		if x < 0 || x >= 4 || y < 0 || y >= 4 {
			t.Errorf("fragment (%d,%d) outside the 4x4 target", x, y)
		}
		if !(depth >= 0 && depth <= 1) {
			t.Errorf("fragment (%d,%d) depth = %v, want [0,1]", x, y, depth)
		}
		if x == 3 {
			lastColumn = true
		}
	})
	if count == 0 || !lastColumn {
		t.Errorf("fragments = %d, last column reached = %v, want coverage up to x=3", count, lastColumn)
	}
}

func TestRenderSoftwareFullscreen(t *testing.T) {
	res, err := RenderSoftware(64, 64, DefaultStyle())
	if err != nil {
		t.Fatalf("RenderSoftware() error = %v", err)
	}
	if len(res.Pixels) != 64*64*4 {
		t.Fatalf("len(Pixels) = %d, want %d", len(res.Pixels), 64*64*4)
	}
	for i := 3; i < len(res.Pixels); i += 4 {
		if res.Pixels[i] != 255 {
			t.Fatalf("alpha at byte %d = %d, want 255", i, res.Pixels[i])
		}
	}
	// Top-left corner is background.
	if got := res.Pixels[:3]; !bytes.Equal(got, []byte{10, 10, 15}) {
		t.Errorf("corner = %v, want clear colour [10 10 15]", got)
	}
	if c := res.Coverage(); c < 0.3 || c > 0.45 {
		t.Errorf("Coverage() = %v, want about 0.38", c)
	}
	if res.MaterialID != 0 || res.OutlineWidth != 0 {
		t.Errorf("MaterialID = %d, OutlineWidth = %v, want 0 and 0", res.MaterialID, res.OutlineWidth)
	}
	if res.InvocationID == "" {
		t.Errorf("InvocationID is empty")
	}

	again, err := RenderSoftware(64, 64, DefaultStyle())
	if err != nil {
		t.Fatalf("RenderSoftware() error = %v", err)
	}
	if !bytes.Equal(res.Pixels, again.Pixels) {
		t.Errorf("RenderSoftware() is not deterministic")
	}
}

func TestRenderSoftwareOverride(t *testing.T) {
	grey := DefaultStyle().Slot(SlotSkin)
	grey.SatScaleShadow = 0
	grey.SatScaleLight = 0

	plain, err := RenderSoftware(32, 32, DefaultStyle())
	if err != nil {
		t.Fatalf("RenderSoftware() error = %v", err)
	}
	res, err := RenderSoftware(32, 32, DefaultStyle(), WithOverride(grey))
	if err != nil {
		t.Fatalf("RenderSoftware() error = %v", err)
	}
	center := (16*32 + 16) * 4
	if p := plain.Pixels[center:]; p[0] == p[1] && p[1] == p[2] {
		t.Errorf("centre without override is grey: %v", p[:4])
	}
	for i := 0; i < len(res.Pixels); i += 4 {
		p := res.Pixels[i : i+4]
		if bytes.Equal(p[:3], []byte{10, 10, 15}) {
			continue
		}
		if p[0] != p[1] || p[1] != p[2] {
			t.Fatalf("pixel %d = %v, want grey", i/4, p)
		}
	}
}

func TestRenderSoftwareMeshOutline(t *testing.T) {
	sphere, err := DefaultSphere()
	if err != nil {
		t.Fatalf("DefaultSphere() error = %v", err)
	}
	render := func(opts ...RenderOption) *Result {
		t.Helper()
		res, err := RenderSoftware(64, 64, DefaultStyle(), append([]RenderOption{WithMesh(sphere)}, opts...)...)
		if err != nil {
			t.Fatalf("RenderSoftware() error = %v", err)
		}
		return res
	}

	outlined := render()
	zero := render(WithOutlinePx(0))
	skipped := render(WithoutOutline())

	if outlined.MaterialID != SlotCloth {
		t.Errorf("MaterialID = %d, want %d", outlined.MaterialID, SlotCloth)
	}
	if outlined.OutlineWidth != OutlineWidth(DefaultOutlinePx, 64) {
		t.Errorf("OutlineWidth = %v, want %v", outlined.OutlineWidth, OutlineWidth(DefaultOutlinePx, 64))
	}
	if !bytes.Equal(zero.Pixels, skipped.Pixels) {
		t.Errorf("zero-width outline differs from no outline")
	}
	if outlined.Coverage() <= skipped.Coverage() {
		t.Errorf("Coverage() with outline = %v, without = %v, want larger", outlined.Coverage(), skipped.Coverage())
	}
	if skipped.Coverage() == 0 {
		t.Errorf("sphere left no coverage")
	}
}

func TestRenderSoftwareInvalidDimensions(t *testing.T) {
	for _, size := range [][2]uint32{{0, 16}, {16, 0}, {0, 0}} {
		if _, err := RenderSoftware(size[0], size[1], DefaultStyle()); !errors.Is(err, core.ErrInvalidDimensions) {
			t.Errorf("RenderSoftware(%d, %d) error = %v, want ErrInvalidDimensions", size[0], size[1], err)
		}
	}
}

func TestResultImage(t *testing.T) {
	res := &Result{Pixels: make([]byte, 2*3*4), Width: 2, Height: 3}
	img, err := res.Image()
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 3 {
		t.Errorf("Bounds() = %v, want 2x3", img.Bounds())
	}
	res.Pixels = res.Pixels[:5]
	if _, err := res.Image(); err == nil {
		t.Errorf("Image() on a short buffer returned no error")
	}
}

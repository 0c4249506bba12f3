package renderer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spaghettifunk/anima-toon/engine/assets"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/toon"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
)

func TestParseHardenedOptions(t *testing.T) {
	strategies := []struct {
		in   string
		want vulkan.MemoryStrategy
	}{
		{"", vulkan.MemoryFirstFit},
		{"first-fit", vulkan.MemoryFirstFit},
		{"scored", vulkan.MemoryScored},
	}
	for _, tt := range strategies {
		got, err := MemoryStrategy(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("MemoryStrategy(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := MemoryStrategy("best"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("MemoryStrategy(best) error = %v, want ErrInvalidConfig", err)
	}

	pitches := []struct {
		in   string
		want vulkan.RowPitchMode
	}{
		{"", vulkan.RowPitchTight},
		{"tight", vulkan.RowPitchTight},
		{"aligned", vulkan.RowPitchAligned},
	}
	for _, tt := range pitches {
		got, err := RowPitch(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("RowPitch(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := RowPitch("padded"); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("RowPitch(padded) error = %v, want ErrInvalidConfig", err)
	}
}

func TestSoftwareRenderer(t *testing.T) {
	r, err := New("renderer-test", assets.DefaultRenderConfig(), ModeSoftware)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer r.Shutdown()

	if r.Backend().Type() != Software || r.Backend().DeviceName() != "cpu" {
		t.Errorf("backend = %s on %s, want software on cpu", r.Backend().Type(), r.Backend().DeviceName())
	}

	cfg := assets.DefaultConfig()
	cfg.Render.Width, cfg.Render.Height = 32, 24
	res, err := r.Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if res.Width != 32 || res.Height != 24 || len(res.Pixels) != 32*24*4 {
		t.Errorf("Render() = %dx%d with %d bytes, want 32x24 with %d", res.Width, res.Height, len(res.Pixels), 32*24*4)
	}

	want, err := toon.RenderSoftware(32, 24, toon.DeriveStyle(cfg.Shading), toon.WithMesh(mustSphere(t)))
	if err != nil {
		t.Fatalf("RenderSoftware() error = %v", err)
	}
	if !bytes.Equal(res.Pixels, want.Pixels) {
		t.Errorf("Render() differs from RenderSoftware() with the sphere")
	}
}

func TestRenderConfigOverrides(t *testing.T) {
	r := NewWithBackend(softwareBackend{})
	id := uint8(1)
	px := float32(0)
	cfg := assets.DefaultConfig()
	cfg.Render.Width, cfg.Render.Height = 16, 16
	cfg.Render.MaterialID = &id
	cfg.Render.OutlinePx = &px

	res, err := r.Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if res.MaterialID != 1 || res.OutlineWidth != 0 {
		t.Errorf("MaterialID = %d, OutlineWidth = %v, want 1 and 0", res.MaterialID, res.OutlineWidth)
	}

	cfg.Render.Geometry = assets.GeometryFullscreen
	res, err = r.Render(cfg, toon.WithMaterialID(3))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if res.MaterialID != 3 {
		t.Errorf("MaterialID = %d, want the extra option's 3", res.MaterialID)
	}

	cfg.Render.Geometry = "cube"
	if _, err := r.Render(cfg); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("Render(cube) error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewUnknownMode(t *testing.T) {
	if _, err := New("renderer-test", assets.DefaultRenderConfig(), Mode(42)); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestAutoModeFallsBack(t *testing.T) {
	r, err := New("renderer-test", assets.DefaultRenderConfig(), ModeAuto)
	if err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	defer r.Shutdown()
	if typ := r.Backend().Type(); typ != Vulkan && typ != Software {
		t.Errorf("Type() = %s", typ)
	}
}

func mustSphere(t *testing.T) *math.MeshData {
	t.Helper()
	sphere, err := toon.DefaultSphere()
	if err != nil {
		t.Fatalf("DefaultSphere() error = %v", err)
	}
	return sphere
}

package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-toon/engine/core"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	doc := `
[shading]
bands = 2
face_shadow_threshold = 0.1
rim_strength = 0.5

[render]
width = 64
height = 32
geometry = "fullscreen"
outline_px = 0.0
material_id = 1
`
	cfg, err := ParseConfig([]byte(doc))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	def := DefaultShadingConfig()
	if cfg.Shading.Bands != 2 {
		t.Errorf("Bands = %d, want 2", cfg.Shading.Bands)
	}
	if cfg.Shading.FaceShadowThreshold != 0.1 {
		t.Errorf("FaceShadowThreshold = %v, want 0.1", cfg.Shading.FaceShadowThreshold)
	}
	if cfg.Shading.ClothShadowThreshold != def.ClothShadowThreshold {
		t.Errorf("ClothShadowThreshold = %v, want default %v", cfg.Shading.ClothShadowThreshold, def.ClothShadowThreshold)
	}
	if cfg.Render.Width != 64 || cfg.Render.Height != 32 {
		t.Errorf("size = %dx%d, want 64x32", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Render.OutlinePx == nil || *cfg.Render.OutlinePx != 0 {
		t.Errorf("OutlinePx = %v, want explicit 0", cfg.Render.OutlinePx)
	}
	if cfg.Render.MaterialID == nil || *cfg.Render.MaterialID != 1 {
		t.Errorf("MaterialID = %v, want 1", cfg.Render.MaterialID)
	}
	if cfg.Render.RowPitch != "tight" {
		t.Errorf("RowPitch = %q, want default tight", cfg.Render.RowPitch)
	}
}

func TestParseConfigRejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"unknown key", "[shading]\nbandz = 3\n", core.ErrInvalidConfig},
		{"syntax", "[shading\nbands = 3\n", core.ErrInvalidConfig},
		{"zero bands", "[shading]\nbands = 0\n", core.ErrInvalidConfig},
		{"threshold range", "[shading]\ncloth_shadow_threshold = 1.5\n", core.ErrInvalidConfig},
		{"negative softness", "[shading]\nband_softness = -0.1\n", core.ErrInvalidConfig},
		{"rim width", "[shading]\nrim_width = 2.0\n", core.ErrInvalidConfig},
		{"zero width", "[render]\nwidth = 0\n", core.ErrInvalidDimensions},
		{"geometry", "[render]\ngeometry = \"cube\"\n", core.ErrInvalidConfig},
		{"negative outline", "[render]\noutline_px = -1.0\n", core.ErrInvalidConfig},
		{"memory strategy", "[render]\nmemory_strategy = \"best\"\n", core.ErrInvalidConfig},
		{"row pitch", "[render]\nrow_pitch = \"padded\"\n", core.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toon.toml")
	if err := os.WriteFile(path, []byte("[shading]\nbands = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Shading.Bands != 2 {
		t.Errorf("Bands = %d, want 2", cfg.Shading.Bands)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestConfigMarshalRoundTrip(t *testing.T) {
	want := DefaultConfig()
	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig(Marshal()) error = %v", err)
	}
	if got.Shading != want.Shading {
		t.Errorf("Shading = %+v, want %+v", got.Shading, want.Shading)
	}
}

func TestSampleConfig(t *testing.T) {
	cfg, err := LoadConfig("../../assets/config/toon.toml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Shading != DefaultShadingConfig() {
		t.Errorf("sample shading = %+v, want the defaults %+v", cfg.Shading, DefaultShadingConfig())
	}
	if cfg.Render.OutlinePx == nil || *cfg.Render.OutlinePx != 2 {
		t.Errorf("sample outline_px = %v, want 2", cfg.Render.OutlinePx)
	}
}

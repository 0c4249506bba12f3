package assets

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima-toon/engine/core"
)

// ShadingConfig is the artist-facing description of the toon look. Angles are
// in degrees, thresholds are in N·L units.
type ShadingConfig struct {
	Bands                int     `toml:"bands"`
	FaceShadowThreshold  float32 `toml:"face_shadow_threshold"`
	ClothShadowThreshold float32 `toml:"cloth_shadow_threshold"`
	RimStrength          float32 `toml:"rim_strength"`
	RimWidth             float32 `toml:"rim_width"`
	BandSoftness         float32 `toml:"band_softness"`
	HueShiftShadowDeg    float32 `toml:"hue_shift_shadow_deg"`
	HueShiftLightDeg     float32 `toml:"hue_shift_light_deg"`
	SatScaleShadow       float32 `toml:"sat_scale_shadow"`
	SatScaleLight        float32 `toml:"sat_scale_light"`
	SpecThreshold        float32 `toml:"spec_threshold"`
	SpecIntensity        float32 `toml:"spec_intensity"`
}

// RenderConfig holds the settings of a render invocation that the command
// line can override.
type RenderConfig struct {
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	// Either "fullscreen" or "sphere".
	Geometry   string `toml:"geometry"`
	MaterialID *uint8 `toml:"material_id"`
	// Unset means the default stroke of 2 pixels.
	OutlinePx *float32 `toml:"outline_px"`
	// Hardened options.
	MemoryStrategy string `toml:"memory_strategy"`
	RowPitch       string `toml:"row_pitch"`
	// Directory of precompiled <name>.spv files; empty uses the embedded shaders.
	ShaderDir  string `toml:"shader_dir"`
	Loader     string `toml:"loader"`
	Validation bool   `toml:"validation"`
	LogLevel   string `toml:"log_level"`
}

const (
	GeometryFullscreen = "fullscreen"
	GeometrySphere     = "sphere"
)

// Config is the layout of a toon configuration file.
type Config struct {
	Shading ShadingConfig `toml:"shading"`
	Render  RenderConfig  `toml:"render"`
}

func DefaultShadingConfig() ShadingConfig {
	return ShadingConfig{
		Bands:                3,
		FaceShadowThreshold:  0.2,
		ClothShadowThreshold: 0.35,
		RimStrength:          0.35,
		RimWidth:             0.3,
		BandSoftness:         0.05,
		HueShiftShadowDeg:    -15,
		HueShiftLightDeg:     5,
		SatScaleShadow:       1.2,
		SatScaleLight:        0.95,
		SpecThreshold:        0.5,
		SpecIntensity:        0.3,
	}
}

func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Width:          512,
		Height:         512,
		Geometry:       GeometrySphere,
		MemoryStrategy: "first-fit",
		RowPitch:       "tight",
		Loader:         "default",
		LogLevel:       "info",
	}
}

func DefaultConfig() Config {
	return Config{
		Shading: DefaultShadingConfig(),
		Render:  DefaultRenderConfig(),
	}
}

// ParseConfig decodes a TOML document on top of the defaults. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", core.ErrInvalidConfig, strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return Config{}, fmt.Errorf("%w: line %d column %d: %s", core.ErrInvalidConfig, row, col, decodeErr.Error())
		}
		return Config{}, fmt.Errorf("%w: %s", core.ErrInvalidConfig, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and validates the configuration file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Marshal renders the configuration back to TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func (c Config) Validate() error {
	if err := c.Shading.Validate(); err != nil {
		return err
	}
	return c.Render.Validate()
}

func invalid(field string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s %s", core.ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}

func (s ShadingConfig) Validate() error {
	if s.Bands < 1 {
		return invalid("bands", "must be at least 1, got %d", s.Bands)
	}
	thresholds := []struct {
		name  string
		value float32
	}{
		{"face_shadow_threshold", s.FaceShadowThreshold},
		{"cloth_shadow_threshold", s.ClothShadowThreshold},
	}
	for _, th := range thresholds {
		if th.value < -1 || th.value > 1 {
			return invalid(th.name, "must be in [-1,1], got %g", th.value)
		}
	}
	if s.SpecThreshold < 0 || s.SpecThreshold > 1 {
		return invalid("spec_threshold", "must be in [0,1], got %g", s.SpecThreshold)
	}
	nonNegative := []struct {
		name  string
		value float32
	}{
		{"rim_strength", s.RimStrength},
		{"rim_width", s.RimWidth},
		{"band_softness", s.BandSoftness},
		{"sat_scale_shadow", s.SatScaleShadow},
		{"sat_scale_light", s.SatScaleLight},
		{"spec_intensity", s.SpecIntensity},
	}
	for _, nn := range nonNegative {
		if nn.value < 0 {
			return invalid(nn.name, "must not be negative, got %g", nn.value)
		}
	}
	if s.RimWidth > 1 {
		return invalid("rim_width", "must not exceed 1, got %g", s.RimWidth)
	}
	return nil
}

func (r RenderConfig) Validate() error {
	if r.Width == 0 || r.Height == 0 {
		return fmt.Errorf("%w: render size %dx%d", core.ErrInvalidDimensions, r.Width, r.Height)
	}
	switch r.Geometry {
	case GeometryFullscreen, GeometrySphere:
	default:
		return invalid("geometry", "must be %q or %q, got %q", GeometryFullscreen, GeometrySphere, r.Geometry)
	}
	if r.OutlinePx != nil && *r.OutlinePx < 0 {
		return invalid("outline_px", "must not be negative, got %g", *r.OutlinePx)
	}
	switch r.MemoryStrategy {
	case "", "first-fit", "scored":
	default:
		return invalid("memory_strategy", "must be first-fit or scored, got %q", r.MemoryStrategy)
	}
	switch r.RowPitch {
	case "", "tight", "aligned":
	default:
		return invalid("row_pitch", "must be tight or aligned, got %q", r.RowPitch)
	}
	switch r.Loader {
	case "", "default", "glfw":
	default:
		return invalid("loader", "must be default or glfw, got %q", r.Loader)
	}
	return nil
}

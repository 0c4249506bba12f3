package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-toon/engine/assets"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/toon"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
	Software
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	case Software:
		return "software"
	default:
		return "unknown"
	}
}

// Mode chooses the backend New brings up.
type Mode uint8

const (
	// ModeAuto uses Vulkan and falls back to the CPU when no device is found.
	ModeAuto Mode = iota
	ModeVulkan
	ModeSoftware
)

type Renderer struct {
	backend RendererBackend

	sphereOnce sync.Once
	sphere     *math.MeshData
	sphereErr  error
}

// New brings up a backend for cfg. Only ErrNoDevice triggers the fallback in
// ModeAuto; any other bring-up failure is returned.
func New(appName string, cfg assets.RenderConfig, mode Mode) (*Renderer, error) {
	var backend RendererBackend
	switch mode {
	case ModeSoftware:
		backend = softwareBackend{}
	case ModeVulkan, ModeAuto:
		vb, err := newVulkanBackend(vulkan.ContextOptions{
			AppName:     appName,
			Validation:  cfg.Validation,
			Loader:      cfg.Loader,
			DeviceIndex: -1,
		})
		switch {
		case err == nil:
			backend = vb
		case mode == ModeAuto && errors.Is(err, core.ErrNoDevice):
			core.LogWarn("no Vulkan device (%s), using the software renderer", err)
			backend = softwareBackend{}
		default:
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown renderer mode %d", core.ErrInvalidConfig, mode)
	}
	return NewWithBackend(backend), nil
}

// NewWithBackend wraps an existing backend.
func NewWithBackend(backend RendererBackend) *Renderer {
	return &Renderer{backend: backend}
}

func (r *Renderer) Backend() RendererBackend {
	return r.backend
}

// Render derives the style from cfg.Shading and draws with cfg.Render; extra
// options are applied after the ones derived from the configuration.
func (r *Renderer) Render(cfg assets.Config, extra ...toon.RenderOption) (*toon.Result, error) {
	opts, err := r.OptionsFromConfig(cfg.Render)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)
	return r.backend.Render(cfg.Render.Width, cfg.Render.Height, toon.DeriveStyle(cfg.Shading), opts...)
}

// OptionsFromConfig translates the render settings into render options.
func (r *Renderer) OptionsFromConfig(cfg assets.RenderConfig) ([]toon.RenderOption, error) {
	var opts []toon.RenderOption

	switch cfg.Geometry {
	case "", assets.GeometryFullscreen:
	case assets.GeometrySphere:
		r.sphereOnce.Do(func() {
			r.sphere, r.sphereErr = toon.DefaultSphere()
		})
		if r.sphereErr != nil {
			return nil, r.sphereErr
		}
		opts = append(opts, toon.WithMesh(r.sphere))
	default:
		return nil, fmt.Errorf("%w: unknown geometry %q", core.ErrInvalidConfig, cfg.Geometry)
	}

	if cfg.MaterialID != nil {
		opts = append(opts, toon.WithMaterialID(*cfg.MaterialID))
	}
	if cfg.OutlinePx != nil {
		opts = append(opts, toon.WithOutlinePx(*cfg.OutlinePx))
	}

	strategy, err := MemoryStrategy(cfg.MemoryStrategy)
	if err != nil {
		return nil, err
	}
	pitch, err := RowPitch(cfg.RowPitch)
	if err != nil {
		return nil, err
	}
	opts = append(opts, toon.WithMemoryStrategy(strategy), toon.WithRowPitch(pitch))

	if cfg.ShaderDir != "" {
		opts = append(opts, toon.WithShaders(toon.NewDirShaders(cfg.ShaderDir)))
	}
	return opts, nil
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

// MemoryStrategy parses a memory_strategy setting; empty means first-fit.
func MemoryStrategy(name string) (vulkan.MemoryStrategy, error) {
	switch name {
	case "", vulkan.MemoryFirstFit.String():
		return vulkan.MemoryFirstFit, nil
	case vulkan.MemoryScored.String():
		return vulkan.MemoryScored, nil
	default:
		return 0, fmt.Errorf("%w: unknown memory strategy %q", core.ErrInvalidConfig, name)
	}
}

// RowPitch parses a row_pitch setting; empty means tight.
func RowPitch(name string) (vulkan.RowPitchMode, error) {
	switch name {
	case "", vulkan.RowPitchTight.String():
		return vulkan.RowPitchTight, nil
	case vulkan.RowPitchAligned.String():
		return vulkan.RowPitchAligned, nil
	default:
		return 0, fmt.Errorf("%w: unknown row pitch %q", core.ErrInvalidConfig, name)
	}
}

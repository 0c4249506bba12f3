package engine

import (
	"time"

	"github.com/spaghettifunk/anima-toon/engine/assets"
	"github.com/spaghettifunk/anima-toon/engine/renderer"
	"github.com/spaghettifunk/anima-toon/engine/renderer/toon"
)

type ApplicationConfig struct {
	// Name reported to the Vulkan instance and in logs.
	Name string
	// TOML configuration file; empty uses the built-in defaults.
	ConfigPath string
	// Destination of the main image. The extension picks the encoder.
	OutputPath string
	Mode       renderer.Mode
	// Keep running and render again whenever the configuration file or the
	// shader directory changes.
	Watch    bool
	Debounce time.Duration
	// Extra material ids rendered next to the main image, each written to
	// VariantPath(OutputPath, id).
	Variants []uint8
	// Render jobs running at once; zero means one.
	Workers int
	// Overrides the configured log level when set.
	LogLevel string
	// Applied to every loaded configuration before it is validated.
	Overrides func(cfg *assets.Config)
	// Called after every image is written.
	OnResult func(path string, res *toon.Result)
	// Number of render records kept for History.
	HistorySize int
}

const (
	defaultDebounce    = 150 * time.Millisecond
	defaultHistorySize = 32
)

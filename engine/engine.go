package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/anima-toon/engine/assets"
	"github.com/spaghettifunk/anima-toon/engine/containers"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/platform"
	"github.com/spaghettifunk/anima-toon/engine/renderer"
	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-toon/engine/renderer/toon"
	"github.com/spaghettifunk/anima-toon/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutdown
)

// RenderRecord summarizes one written image.
type RenderRecord struct {
	Path         string
	InvocationID string
	Backend      string
	MaterialID   uint8
	Duration     time.Duration
	Coverage     float64
	Err          error
}

// Engine renders the configured image, and its material variants, through the
// job system. In watch mode it renders again on every configuration or shader
// change until its context is cancelled.
type Engine struct {
	mu           sync.Mutex
	currentStage Stage

	app       *ApplicationConfig
	config    assets.Config
	renderer  *renderer.Renderer
	jobSystem *systems.JobSystem
	watcher   *assets.Watcher
	clock     *core.Clock
	history   *containers.RingQueue[RenderRecord]
}

func New(app *ApplicationConfig) (*Engine, error) {
	if app == nil {
		return nil, fmt.Errorf("%w: nil application config", core.ErrInvalidConfig)
	}
	if app.Name == "" {
		app.Name = "anima-toon"
	}
	if _, err := OutputFormat(app.OutputPath); err != nil {
		return nil, err
	}
	if app.Watch && app.ConfigPath == "" {
		return nil, fmt.Errorf("%w: watch mode needs a configuration file", core.ErrInvalidConfig)
	}
	if app.Debounce <= 0 {
		app.Debounce = defaultDebounce
	}
	if app.Workers <= 0 {
		app.Workers = 1
	}
	if app.HistorySize <= 0 {
		app.HistorySize = defaultHistorySize
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		app:          app,
		clock:        core.NewClock(),
		history:      containers.NewRingQueue[RenderRecord](app.HistorySize),
	}, nil
}

func (e *Engine) Stage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentStage
}

func (e *Engine) setStage(s Stage) {
	e.mu.Lock()
	e.currentStage = s
	e.mu.Unlock()
}

// Config is the configuration of the latest render.
func (e *Engine) Config() assets.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

func (e *Engine) Initialize() error {
	if s := e.Stage(); s != EngineStageUninitialized {
		return fmt.Errorf("engine cannot initialize from stage %d", s)
	}
	e.setStage(EngineStageInitializing)

	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	e.config = cfg

	level := cfg.Render.LogLevel
	if e.app.LogLevel != "" {
		level = e.app.LogLevel
	}
	if level != "" {
		if err := core.LogSetLevel(level); err != nil {
			return err
		}
	}

	r, err := renderer.New(e.app.Name, cfg.Render, e.app.Mode)
	if err != nil {
		return err
	}
	e.renderer = r

	js, err := systems.NewJobSystem(e.app.Workers, len(e.app.Variants)+1)
	if err != nil {
		return err
	}
	e.jobSystem = js
	core.LogDebug("job system started with %d workers", js.Workers())

	if e.app.Watch {
		if err := e.startWatcher(cfg); err != nil {
			return err
		}
	}

	e.setStage(EngineStageInitialized)
	core.LogInfo("engine initialized with the %s backend on %s", r.Backend().Type(), r.Backend().DeviceName())
	return nil
}

func (e *Engine) loadConfig() (assets.Config, error) {
	cfg := assets.DefaultConfig()
	if e.app.ConfigPath != "" {
		loaded, err := assets.LoadConfig(e.app.ConfigPath)
		if err != nil {
			return assets.Config{}, err
		}
		cfg = loaded
	}
	if e.app.Overrides != nil {
		e.app.Overrides(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return assets.Config{}, err
	}
	return cfg, nil
}

func (e *Engine) startWatcher(cfg assets.Config) error {
	w, err := assets.NewWatcher(e.app.Debounce)
	if err != nil {
		return err
	}
	if err := w.Add(e.app.ConfigPath); err != nil {
		w.Close()
		return err
	}
	if cfg.Render.ShaderDir != "" {
		if err := w.Add(cfg.Render.ShaderDir); err != nil {
			w.Close()
			return err
		}
	}
	e.watcher = w
	return nil
}

// Run renders once, then in watch mode keeps rendering on changes until ctx
// is done. Outside watch mode the render error is returned; in watch mode
// failures are logged and the previous images stay in place.
func (e *Engine) Run(ctx context.Context) error {
	if s := e.Stage(); s != EngineStageInitialized {
		return fmt.Errorf("engine cannot run from stage %d", s)
	}
	e.setStage(EngineStageRunning)
	e.clock.Start()

	err := e.RenderAll(e.Config())
	if !e.app.Watch {
		return err
	}
	if err != nil {
		core.LogError("render failed: %s", err)
	}

	core.LogInfo("watching %s for changes", e.app.ConfigPath)
	watchErrors := e.watcher.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-e.watcher.Events():
			if !ok {
				return nil
			}
			e.onAssetChanged(info)
		case werr, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			core.LogWarn("watcher: %s", werr)
		}
	}
}

func (e *Engine) onAssetChanged(info assets.AssetInfo) {
	core.LogInfo("%s changed", info.Path)

	cfg := e.Config()
	if info.Type == metadata.ResourceTypeShadingConfig {
		loaded, err := e.loadConfig()
		if err != nil {
			core.LogError("keeping the previous configuration: %s", err)
			return
		}
		e.mu.Lock()
		e.config = loaded
		e.mu.Unlock()
		cfg = loaded
	}
	if err := e.RenderAll(cfg); err != nil {
		core.LogError("render failed: %s", err)
	}
}

// RenderAll renders the main image and every variant of cfg concurrently and
// waits for all of them. The errors of failed renders are joined.
func (e *Engine) RenderAll(cfg assets.Config) error {
	type target struct {
		path string
		opts []toon.RenderOption
	}
	targets := []target{{path: e.app.OutputPath}}
	for _, id := range e.app.Variants {
		targets = append(targets, target{
			path: VariantPath(e.app.OutputPath, id),
			opts: []toon.RenderOption{toon.WithMaterialID(id)},
		})
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, t := range targets {
		wg.Add(1)
		start := time.Now()
		err := e.jobSystem.Submit(systems.JobTask{
			Name: t.path,
			Run: func() (interface{}, error) {
				res, err := e.renderer.Render(cfg, t.opts...)
				if err != nil {
					return nil, err
				}
				if err := WriteImage(t.path, res); err != nil {
					return nil, err
				}
				return res, nil
			},
			OnComplete: func(result interface{}) {
				res := result.(*toon.Result)
				e.record(RenderRecord{
					Path:         t.path,
					InvocationID: res.InvocationID,
					Backend:      e.renderer.Backend().Type().String(),
					MaterialID:   res.MaterialID,
					Duration:     time.Since(start),
					Coverage:     res.Coverage(),
				})
				core.LogInfo("wrote %s (%s, %.1f%% covered)", t.path, res.Metrics.String(), res.Coverage()*100)
				if e.app.OnResult != nil {
					e.app.OnResult(t.path, res)
				}
			},
			OnFailure: func(err error) {
				e.record(RenderRecord{Path: t.path, Duration: time.Since(start), Err: err})
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", t.path, err))
				mu.Unlock()
			},
			OnCompletionCallback: wg.Done,
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (e *Engine) record(r RenderRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Push(r)
}

// History returns the most recent render records, oldest first.
func (e *Engine) History() []RenderRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Items()
}

// Shutdown releases everything Initialize created. It is safe to call after
// a failed Initialize.
func (e *Engine) Shutdown() error {
	if s := e.Stage(); s == EngineStageShutdown {
		return nil
	}
	e.setStage(EngineStageShuttingDown)

	var errs []error
	if e.watcher != nil {
		errs = append(errs, e.watcher.Close())
	}
	if e.jobSystem != nil {
		errs = append(errs, e.jobSystem.Shutdown())
	}
	if e.renderer != nil {
		errs = append(errs, e.renderer.Shutdown())
	}
	errs = append(errs, platform.Get().Shutdown())

	e.clock.Stop()
	failed := 0
	for _, r := range e.History() {
		if r.Err != nil {
			failed++
		}
	}
	core.LogInfo("engine shut down after %s: %d renders kept in history, %d failed", e.clock.Elapsed().Round(time.Millisecond), len(e.History()), failed)
	e.setStage(EngineStageShutdown)
	return errors.Join(errs...)
}

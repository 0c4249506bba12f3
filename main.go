package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spaghettifunk/anima-toon/engine"
	"github.com/spaghettifunk/anima-toon/engine/assets"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/renderer"
	"github.com/spaghettifunk/anima-toon/engine/renderer/toon"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
	"github.com/spf13/cobra"
)

const appName = "anima-toon"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           appName,
		Short:         "Offscreen Vulkan toon renderer",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel == "" {
				return nil
			}
			return core.LogSetLevel(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newRenderCommand(&logLevel), newStyleCommand(), newDevicesCommand())
	return root
}

type renderFlags struct {
	config     string
	out        string
	width      uint32
	height     uint32
	geometry   string
	material   uint8
	outlinePx  float32
	memory     string
	rowPitch   string
	shaderDir  string
	loader     string
	validation bool
	software   bool
	gpu        bool
	watch      bool
	variants   []uint
	workers    int
}

func newRenderCommand(logLevel *string) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the toon image described by a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := renderer.ModeAuto
			switch {
			case f.software && f.gpu:
				return fmt.Errorf("%w: --software and --gpu are exclusive", core.ErrInvalidConfig)
			case f.software:
				mode = renderer.ModeSoftware
			case f.gpu:
				mode = renderer.ModeVulkan
			}

			variants := make([]uint8, 0, len(f.variants))
			for _, v := range f.variants {
				if v > 255 {
					return fmt.Errorf("%w: material id %d does not fit in 8 bits", core.ErrInvalidConfig, v)
				}
				variants = append(variants, uint8(v))
			}

			e, err := engine.New(&engine.ApplicationConfig{
				Name:       appName,
				ConfigPath: f.config,
				OutputPath: f.out,
				Mode:       mode,
				Watch:      f.watch,
				Variants:   variants,
				Workers:    f.workers,
				LogLevel:   *logLevel,
				Overrides:  f.overrides(cmd),
			})
			if err != nil {
				return err
			}

			// capture sigterm and other system calls to stop watch mode
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
			defer stop()

			runErr := e.Initialize()
			if runErr == nil {
				runErr = e.Run(ctx)
			}
			return errors.Join(runErr, e.Shutdown())
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "TOML configuration file")
	fl.StringVarP(&f.out, "out", "o", "toon.png", "output image (.png, .bmp or .rgba)")
	fl.Uint32Var(&f.width, "width", 0, "image width in pixels")
	fl.Uint32Var(&f.height, "height", 0, "image height in pixels")
	fl.StringVar(&f.geometry, "geometry", "", "fullscreen or sphere")
	fl.Uint8Var(&f.material, "material", 0, "material id written to covered pixels")
	fl.Float32Var(&f.outlinePx, "outline-px", toon.DefaultOutlinePx, "outline width in pixels")
	fl.StringVar(&f.memory, "memory", "", "memory type selection: first-fit or scored")
	fl.StringVar(&f.rowPitch, "row-pitch", "", "readback rows: tight or aligned")
	fl.StringVar(&f.shaderDir, "shader-dir", "", "directory of precompiled .spv shaders")
	fl.StringVar(&f.loader, "loader", "", "Vulkan loader: default or glfw")
	fl.BoolVar(&f.validation, "validation", false, "enable the Khronos validation layer")
	fl.BoolVar(&f.software, "software", false, "render on the CPU")
	fl.BoolVar(&f.gpu, "gpu", false, "fail instead of falling back to the CPU")
	fl.BoolVarP(&f.watch, "watch", "w", false, "render again when the configuration or shaders change")
	fl.UintSliceVar(&f.variants, "variants", nil, "extra material ids, each written to <out>-m<id>.<ext>")
	fl.IntVar(&f.workers, "workers", 1, "render jobs running at once")
	return cmd
}

// overrides applies the flags the user set on top of the loaded configuration.
func (f *renderFlags) overrides(cmd *cobra.Command) func(*assets.Config) {
	changed := cmd.Flags().Changed
	return func(cfg *assets.Config) {
		r := &cfg.Render
		if changed("width") {
			r.Width = f.width
		}
		if changed("height") {
			r.Height = f.height
		}
		if changed("geometry") {
			r.Geometry = f.geometry
		}
		if changed("material") {
			id := f.material
			r.MaterialID = &id
		}
		if changed("outline-px") {
			px := f.outlinePx
			r.OutlinePx = &px
		}
		if changed("memory") {
			r.MemoryStrategy = f.memory
		}
		if changed("row-pitch") {
			r.RowPitch = f.rowPitch
		}
		if changed("shader-dir") {
			r.ShaderDir = f.shaderDir
		}
		if changed("loader") {
			r.Loader = f.loader
		}
		if changed("validation") {
			r.Validation = f.validation
		}
	}
}

func newStyleCommand() *cobra.Command {
	var (
		config   string
		showTOML bool
	)
	cmd := &cobra.Command{
		Use:   "style",
		Short: "Print the per-material style table derived from a configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := assets.DefaultConfig()
			if config != "" {
				loaded, err := assets.LoadConfig(config)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if showTOML {
				doc, err := cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styleTable(toon.DeriveStyle(cfg.Shading)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&config, "config", "c", "", "TOML configuration file")
	cmd.Flags().BoolVar(&showTOML, "toml", false, "print the effective configuration instead")
	return cmd
}

var slotNames = map[int]string{
	int(toon.SlotSkin):  "skin",
	int(toon.SlotHair):  "hair",
	int(toon.SlotCloth): "cloth",
}

func styleTable(style toon.ToonStyle) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers("slot", "shadow", "mid", "rim", "rim w", "soft", "hue sh", "hue lt", "sat sh", "sat lt", "spec t", "spec i")
	for i, s := range style.Slots {
		name, ok := slotNames[i]
		if !ok {
			name = "cloth"
		}
		row := []string{fmt.Sprintf("%d %s", i, name)}
		values := s.Values()
		for _, v := range values[:toon.SlotFloats-1] {
			row = append(row, fmt.Sprintf("%.3g", v))
		}
		t.Row(row...)
	}
	return t.String()
}

func newDevicesCommand() *cobra.Command {
	var loader string
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List Vulkan physical devices and their memory types",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := vulkan.ListDevices(vulkan.ContextOptions{AppName: appName, Loader: loader})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			bold := lipgloss.NewStyle().Bold(true)
			for _, d := range devices {
				graphics := "no graphics queue"
				if d.GraphicsQueue {
					graphics = "graphics"
				}
				fmt.Fprintf(out, "%s  %s, Vulkan %s, driver %s, %s\n",
					bold.Render(fmt.Sprintf("[%d] %s", d.Index, d.Name)), d.Type, d.APIVersion, d.DriverVersion, graphics)

				t := table.New().Border(lipgloss.RoundedBorder()).Headers("type", "heap", "heap size", "properties")
				for i, m := range d.MemoryTypes {
					t.Row(fmt.Sprint(i), fmt.Sprint(m.HeapIndex), fmt.Sprintf("%d MiB", m.HeapSize>>20),
						strings.Join(vulkan.PropertyFlagNames(m.PropertyFlags), " | "))
				}
				fmt.Fprintln(out, t.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&loader, "loader", "", "Vulkan loader: default or glfw")
	return cmd
}

package main

import (
	"context"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine"
	"github.com/Carmen-Shannon/oxy-fx/engine/config"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/window"
	"github.com/spf13/cobra"
)

func newPreviewCommand(a *app) *cobra.Command {
	var (
		width, height int
		fps           float64
		profile       bool
	)
	cmd := &cobra.Command{
		Use:   "preview <image>",
		Short: "Show an image through the effect in a window with keyboard and on-screen controls",
		Long: `Opens a window showing the image through the configured effect.

Keys: Tab cycles effects, 0-9 select an effect, N toggles negative, H toggles the radius handle,
R resets every parameter, Escape quits. While the radius handle is shown, a middle-button drag
or the scroll wheel changes the active effect's radius. With --config the [preset] table is re-applied whenever the
file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bt, _ := a.cfg.BackendType(); bt != renderer.BackendTypeWGPU {
				common.Logger().Warn("preview requires the wgpu backend", "configured", a.cfg.Renderer.Backend)
				a.cfg.Renderer.Backend = renderer.BackendTypeWGPU.String()
			}
			img, err := common.LoadImage(args[0])
			if err != nil {
				return err
			}

			w, err := window.NewWindow(
				window.WithTitle("oxyfx - "+args[0]),
				window.WithSize(width, height),
			)
			if err != nil {
				return err
			}

			prof := profiler.NewProfiler(profiler.WithUpdateInterval(2 * time.Second))
			plugin, err := a.newPlugin(renderer.WithSurface(w), renderer.WithProfiler(prof))
			if err != nil {
				w.Close()
				return err
			}
			defer plugin.Release()

			options := []engine.PreviewBuilderOption{engine.WithRenderFrameLimit(fps)}
			if profile {
				options = append(options, engine.WithProfiling(prof))
			}
			pv, err := engine.NewPreview(w, plugin, img, options...)
			if err != nil {
				w.Close()
				return err
			}

			if a.configPath != "" {
				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()
				go watchPreset(ctx, a, plugin)
			}
			return pv.Run()
		},
	}
	cmd.Flags().IntVar(&width, "width", 1280, "initial window width")
	cmd.Flags().IntVar(&height, "height", 720, "initial window height")
	cmd.Flags().Float64Var(&fps, "fps", 60, "render frame limit, <= 0 uncaps")
	cmd.Flags().BoolVar(&profile, "profile", false, "log per-pipeline tile statistics while running")
	return cmd
}

// watchPreset re-applies the [preset] table of the configuration file each time it changes. Renderer settings need
// a restart and are ignored.
func watchPreset(ctx context.Context, a *app, plugin engine.Plugin) {
	err := config.Watch(ctx, a.configPath, func(cfg config.Config, err error) {
		if err != nil {
			return
		}
		changes, err := cfg.PresetChanges(parameter.Default())
		if err != nil {
			common.Logger().Warn("preset rejected", "error", err)
			return
		}
		if err := plugin.Store().ApplyAll(changes...); err != nil {
			common.Logger().Warn("preset rejected", "error", err, "failure", engine.Classify(err))
		}
	})
	if err != nil {
		common.Logger().Warn("config watch stopped", "error", err)
	}
}

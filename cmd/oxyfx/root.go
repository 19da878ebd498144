package main

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine"
	"github.com/Carmen-Shannon/oxy-fx/engine/config"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/spf13/cobra"
)

// app holds what the persistent flags resolve to before a subcommand runs.
type app struct {
	configPath string
	logLevel   string
	backend    string
	sets       []string

	cfg config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "oxyfx",
		Short:        "Apply brightness, negative, blur and oil painting effects to images and clips",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "renderer backend override (wgpu, software)")

	root.AddCommand(
		newParamsCommand(a),
		newShadersCommand(a),
		newRenderCommand(a),
		newVideoCommand(a),
		newPreviewCommand(a),
	)
	return root
}

// load reads the configuration file, applies flag overrides and installs the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.backend != "" {
		cfg.Renderer.Backend = a.backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := cfg.LogLevel()
	common.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return nil
}

// addSetFlag registers the repeatable --set flag on cmd.
func (a *app) addSetFlag(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&a.sets, "set", "s", nil, "parameter assignment name=value, repeatable (see 'oxyfx params')")
}

// preset merges the [preset] table with --set assignments and resolves it against the default registry.
func (a *app) preset() ([]engine.PluginBuilderOption, error) {
	overrides, err := config.ParseAssignments(a.sets)
	if err != nil {
		return nil, err
	}
	changes, err := a.cfg.WithPreset(overrides).PresetChanges(parameter.Default())
	if err != nil {
		return nil, err
	}
	return []engine.PluginBuilderOption{engine.WithPreset(changes...)}, nil
}

// newPlugin creates a plugin from the configuration with the preset applied.
func (a *app) newPlugin(extra ...renderer.RendererBuilderOption) (engine.Plugin, error) {
	backendType, err := a.cfg.BackendType()
	if err != nil {
		return nil, err
	}
	options, err := a.preset()
	if err != nil {
		return nil, err
	}
	rendererOptions, err := a.cfg.RendererOptions()
	if err != nil {
		return nil, err
	}
	options = append(options, engine.WithBackend(backendType, append(rendererOptions, extra...)...))
	return engine.NewPlugin(options...)
}

// printProfile writes one line per pipeline kind that rendered at least one tile.
func printProfile(cmd *cobra.Command, p *profiler.Profiler) {
	snapshot := p.Snapshot()
	for _, kind := range slices.Sorted(maps.Keys(snapshot)) {
		stats := snapshot[kind]
		fmt.Fprintf(cmd.OutOrStdout(), "%-14s tiles=%d failures=%d mean=%s\n", kind, stats.Tiles, stats.Failures, stats.Mean())
	}
}

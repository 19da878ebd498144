// Package config loads the oxyfx TOML configuration file and watches it for changes.
//
// A configuration file has three tables:
//
//	[renderer]
//	backend = "wgpu"            # or "software"
//	force_software_adapter = false
//	tile_size = 256
//	workers = 4
//	present_mode = "vsync"      # or "uncapped"
//
//	[log]
//	level = "info"              # debug, info, warn or error
//
//	[preset]                    # initial parameter values by registry name
//	effect = "Blur"
//	blur_type = "Kawase"
//	kawase_radius = 6.5
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned for configuration files that parse but hold unusable values.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the decoded configuration file.
type Config struct {
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
	// Preset maps registry names to values. Scalars take numbers, toggles take booleans and enums take either an
	// option index or an option label.
	Preset map[string]any `toml:"preset"`
}

type RendererConfig struct {
	Backend              string `toml:"backend"`
	ForceSoftwareAdapter bool   `toml:"force_software_adapter"`
	TileSize             int    `toml:"tile_size"`
	Workers              int    `toml:"workers"`
	PresentMode          string `toml:"present_mode"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Renderer: RendererConfig{
			Backend:     renderer.BackendTypeWGPU.String(),
			TileSize:    renderer.DefaultTileSize,
			Workers:     4,
			PresentMode: "vsync",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads and parses the configuration file at path.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - Config: the configuration, with unset keys taken from Default
//   - error: an error if the file cannot be read or parsed, or ErrInvalidConfig for unusable values
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a configuration document over Default. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks every value that has a fixed set of choices or a lower bound.
func (c Config) Validate() error {
	if _, err := c.BackendType(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.PresentMode(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Renderer.TileSize < 0 {
		return fmt.Errorf("%w: tile_size %d is negative", ErrInvalidConfig, c.Renderer.TileSize)
	}
	if c.Renderer.Workers < 0 {
		return fmt.Errorf("%w: workers %d is negative", ErrInvalidConfig, c.Renderer.Workers)
	}
	return nil
}

func (c Config) BackendType() (renderer.RendererBackendType, error) {
	return renderer.ParseBackendType(c.Renderer.Backend)
}

func (c Config) PresentMode() (renderer.PresentMode, error) {
	switch strings.ToLower(c.Renderer.PresentMode) {
	case "", "vsync":
		return renderer.PresentModeVSync, nil
	case "uncapped":
		return renderer.PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("unknown present mode %q", c.Renderer.PresentMode)
	}
}

func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, err
	}
	return l, nil
}

// RendererOptions converts the [renderer] table to renderer options. The backend type itself is returned by
// BackendType.
//
// Returns:
//   - []renderer.RendererBuilderOption: tile size, workers, adapter and present mode options
//   - error: ErrInvalidConfig if the present mode is not recognized
func (c Config) RendererOptions() ([]renderer.RendererBuilderOption, error) {
	mode, err := c.PresentMode()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return []renderer.RendererBuilderOption{
		renderer.WithTileSize(c.Renderer.TileSize),
		renderer.WithWorkers(c.Renderer.Workers),
		renderer.WithForceSoftwareAdapter(c.Renderer.ForceSoftwareAdapter),
		renderer.WithPresentMode(mode),
	}, nil
}

// PresetChanges converts the [preset] table into state changes, sorted by parameter id.
//
// Parameters:
//   - reg: the registry to resolve names against
//
// Returns:
//   - []state.Change: one change per preset entry
//   - error: ErrInvalidConfig for unknown names, group headers and values of the wrong type
func (c Config) PresetChanges(reg parameter.Registry) ([]state.Change, error) {
	changes := make([]state.Change, 0, len(c.Preset))
	for name, raw := range c.Preset {
		entry, ok := reg.LookupName(name)
		if !ok {
			return nil, fmt.Errorf("%w: preset %q is not a parameter", ErrInvalidConfig, name)
		}
		v, err := presetValue(entry, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: preset %q: %w", ErrInvalidConfig, name, err)
		}
		changes = append(changes, state.Change{ID: entry.ID, Value: v})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].ID < changes[j].ID })
	return changes, nil
}

// presetValue converts a decoded TOML value to the Go type state.Store.Apply expects for the entry's role.
func presetValue(entry parameter.Entry, raw any) (any, error) {
	switch role := entry.Role.(type) {
	case parameter.Scalar:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("want a number, got %T", raw)
	case parameter.Toggle:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("want a boolean, got %T", raw)
	case parameter.Enum:
		switch v := raw.(type) {
		case int64:
			return int(v), nil
		case string:
			for i, opt := range role.Options {
				if strings.EqualFold(opt, v) {
					return i, nil
				}
			}
			return nil, fmt.Errorf("no option %q in %v", v, role.Options)
		}
		return nil, fmt.Errorf("want an option index or label, got %T", raw)
	default:
		return nil, fmt.Errorf("%s carries no value", entry.Role.Kind())
	}
}

// ParseAssignments parses name=value pairs from the command line into preset values. Values are typed the way a
// TOML document would type them: integers, then floats, then booleans, otherwise the raw string.
//
// Parameters:
//   - pairs: assignments such as "gaussian_radius=12" or "effect=Blur"
//
// Returns:
//   - map[string]any: the preset values by registry name
//   - error: ErrInvalidConfig for a pair without '=' or with an empty name
func ParseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: assignment %q is not name=value", ErrInvalidConfig, pair)
		}
		out[name] = assignmentValue(strings.TrimSpace(raw))
	}
	return out, nil
}

func assignmentValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// WithPreset returns a copy of c whose preset also holds overrides. Overrides win over file values.
func (c Config) WithPreset(overrides map[string]any) Config {
	merged := make(map[string]any, len(c.Preset)+len(overrides))
	maps.Copy(merged, c.Preset)
	maps.Copy(merged, overrides)
	c.Preset = merged
	return c
}

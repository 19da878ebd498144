package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	bt, err := c.BackendType()
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeWGPU, bt)
	lvl, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestParseOverrides(t *testing.T) {
	c, err := Parse([]byte(`
[renderer]
backend = "software"
tile_size = 64
workers = 2
present_mode = "uncapped"

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, 64, c.Renderer.TileSize)
	assert.Equal(t, 2, c.Renderer.Workers)

	bt, err := c.BackendType()
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeSoftware, bt)
	mode, err := c.PresentMode()
	require.NoError(t, err)
	assert.Equal(t, renderer.PresentModeUncapped, mode)
	lvl, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
	opts, err := c.RendererOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 4)
}

func TestRendererOptionsRejectsPresentMode(t *testing.T) {
	c := Default()
	c.Renderer.PresentMode = "triple"
	_, err := c.RendererOptions()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "triple")
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "[renderer]\nthreads = 3\n",
		"backend":         "[renderer]\nbackend = \"vulkan\"\n",
		"present mode":    "[renderer]\npresent_mode = \"triple\"\n",
		"log level":       "[log]\nlevel = \"loud\"\n",
		"negative tiles":  "[renderer]\ntile_size = -1\n",
		"negative worker": "[renderer]\nworkers = -2\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Parse([]byte("[renderer\n"))
	assert.Error(t, err, "malformed documents fail to decode")
}

func TestPresetChanges(t *testing.T) {
	c, err := Parse([]byte(`
[preset]
effect = "blur"
blur_type = 1
kawase_radius = 6.5
oil_painting_intensity = 12
clamp_brightness = true
`))
	require.NoError(t, err)

	changes, err := c.PresetChanges(parameter.Default())
	require.NoError(t, err)
	require.Len(t, changes, 5)
	for i := 1; i < len(changes); i++ {
		assert.Less(t, changes[i-1].ID, changes[i].ID)
	}

	s := state.NewStore()
	require.NoError(t, s.ApplyAll(changes...))
	st := s.Snapshot()
	assert.Equal(t, 6.5, st.KawaseRadius)
	assert.Equal(t, 12.0, st.OilPaintingIntensity)
	assert.True(t, st.BrightnessClamp)
	e, err := st.Effect()
	require.NoError(t, err)
	assert.Equal(t, "Kawase Blur", e.String())
}

func TestPresetChangesRejects(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown name":  {"sharpen": 1.0},
		"group header":  {"blur_group": 1.0},
		"scalar string": {"box_radius": "big"},
		"toggle number": {"negative": int64(1)},
		"enum label":    {"blur_type": "Median"},
		"enum float":    {"effect": 1.5},
	}
	for name, preset := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			c.Preset = preset
			_, err := c.PresetChanges(parameter.Default())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := ParseAssignments([]string{"box_radius=12", "kawase_radius = 2.5", "negative=true", "effect=Blur"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"box_radius":    int64(12),
		"kawase_radius": 2.5,
		"negative":      true,
		"effect":        "Blur",
	}, got)

	_, err = ParseAssignments([]string{"radius"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = ParseAssignments([]string{"=3"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWithPreset(t *testing.T) {
	c := Default()
	c.Preset = map[string]any{"box_radius": 3.0, "negative": true}
	merged := c.WithPreset(map[string]any{"box_radius": int64(9)})

	assert.Equal(t, map[string]any{"box_radius": int64(9), "negative": true}, merged.Preset)
	assert.Equal(t, 3.0, c.Preset["box_radius"], "the receiver is unchanged")

	changes, err := merged.PresetChanges(parameter.Default())
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxyfx.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nworkers = 8\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, c.Renderer.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxyfx.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nworkers = 1\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan Config, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c Config, err error) {
			// Writes truncate first, so intermediate reloads may see an empty document.
			if err != nil || c.Renderer.Workers != 6 {
				return
			}
			select {
			case reloads <- c:
			default:
			}
		})
	}()

	// The watcher is registered asynchronously, so keep rewriting until a reload arrives.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-reloads:
			assert.Equal(t, 6, c.Renderer.Workers)
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("[renderer]\nworkers = 6\n"), 0o644))
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

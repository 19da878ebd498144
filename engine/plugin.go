// Package engine is the host-facing surface of oxy-fx: a Plugin that accepts parameter changes and renders tiles,
// the failure classification the host reports, and the interactive preview.
package engine

import (
	"context"
	"image"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
)

type plugin struct {
	store    state.Store
	renderer renderer.Renderer
	osc      *RadiusHandle

	backendType     renderer.RendererBackendType
	rendererOptions []renderer.RendererBuilderOption
	preset          []state.Change
}

// Plugin is the host's view of one effect instance.
//
// The host drives parameter changes from its UI thread and requests tiles from its render threads. Every render
// call takes its own state snapshot, so parameter changes never tear a tile.
type Plugin interface {
	// SetParameter applies a host parameter change.
	//
	// Parameters:
	//   - id: the parameter identifier
	//   - value: a float64 for scalars, a bool for toggles, or an int option index for enums
	//
	// Returns:
	//   - error: parameter.ErrUnknownParameter for unregistered ids, state.ErrInvalidField for group headers,
	//     enum indices out of range or values of the wrong type
	SetParameter(id parameter.ID, value any) error

	// RenderTile renders one tile with the current parameters.
	//
	// Parameters:
	//   - ctx: cancels the wait for the backend
	//   - src: the source pixels
	//   - bounds: the placement of the output tile
	//
	// Returns:
	//   - common.Tile: the rendered tile
	//   - error: an error Classify maps to a FailureKind
	RenderTile(ctx context.Context, src common.Tile, bounds image.Rectangle) (common.Tile, error)

	// RenderImage renders a whole image with the current parameters, split into tiles.
	RenderImage(ctx context.Context, img image.Image) (*image.RGBA, error)

	Parameters() parameter.Registry
	Store() state.Store
	Renderer() renderer.Renderer

	// OSC returns the on-screen radius control bound to this plugin's store.
	OSC() *RadiusHandle

	// Release frees the renderer.
	Release()
}

var _ Plugin = &plugin{}

// NewPlugin creates a Plugin. Without WithRenderer a renderer is created from the configured backend type, which
// defaults to the wgpu backend.
//
// Parameters:
//   - options: variadic list of PluginBuilderOption functions
//
// Returns:
//   - Plugin: the plugin
//   - error: an error if the renderer cannot be created or the preset does not apply
func NewPlugin(options ...PluginBuilderOption) (Plugin, error) {
	p := &plugin{backendType: renderer.BackendTypeWGPU}
	for _, opt := range options {
		opt(p)
	}
	if p.store == nil {
		p.store = state.NewStore()
	}
	if len(p.preset) > 0 {
		if err := p.store.ApplyAll(p.preset...); err != nil {
			return nil, err
		}
	}
	if p.renderer == nil {
		r, err := renderer.NewRenderer(p.backendType, p.rendererOptions...)
		if err != nil {
			return nil, err
		}
		p.renderer = r
	}
	p.osc = NewRadiusHandle(p.store)
	return p, nil
}

func (p *plugin) SetParameter(id parameter.ID, value any) error {
	return p.store.Apply(id, value)
}

func (p *plugin) RenderTile(ctx context.Context, src common.Tile, bounds image.Rectangle) (common.Tile, error) {
	return p.renderer.RenderTile(ctx, src, p.store.Snapshot(), bounds)
}

func (p *plugin) RenderImage(ctx context.Context, img image.Image) (*image.RGBA, error) {
	return p.renderer.RenderImage(ctx, img, p.store.Snapshot())
}

func (p *plugin) Parameters() parameter.Registry {
	return p.store.Registry()
}

func (p *plugin) Store() state.Store {
	return p.store
}

func (p *plugin) Renderer() renderer.Renderer {
	return p.renderer
}

func (p *plugin) OSC() *RadiusHandle {
	return p.osc
}

func (p *plugin) Release() {
	if p.renderer != nil {
		p.renderer.Release()
	}
}

// PluginBuilderOption is a functional option applied to a plugin during NewPlugin.
type PluginBuilderOption func(*plugin)

// WithStore uses an existing store, for hosts that share one parameter record between instances.
func WithStore(s state.Store) PluginBuilderOption {
	return func(p *plugin) {
		p.store = s
	}
}

// WithRenderer uses an existing renderer instead of creating one.
func WithRenderer(r renderer.Renderer) PluginBuilderOption {
	return func(p *plugin) {
		p.renderer = r
	}
}

// WithBackend selects the backend of the renderer NewPlugin creates, with extra renderer options.
//
// Parameters:
//   - backendType: the renderer backend
//   - options: options passed to renderer.NewRenderer
//
// Returns:
//   - PluginBuilderOption: a function that applies the backend option to a plugin
func WithBackend(backendType renderer.RendererBackendType, options ...renderer.RendererBuilderOption) PluginBuilderOption {
	return func(p *plugin) {
		p.backendType = backendType
		p.rendererOptions = append(p.rendererOptions, options...)
	}
}

// WithPreset applies parameter changes atomically after the store is created.
func WithPreset(changes ...state.Change) PluginBuilderOption {
	return func(p *plugin) {
		p.preset = append(p.preset, changes...)
	}
}

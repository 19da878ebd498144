package renderer

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithBackend uses an already constructed backend instead of creating one from the backend type.
//
// Parameters:
//   - backend: the RendererBackend to render with
//
// Returns:
//   - RendererBuilderOption: a function that applies the backend option to a renderer
func WithBackend(backend RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}

// WithResolver replaces the built-in layout table. One pipeline is registered per layout.
//
// Parameters:
//   - resolver: the Resolver to resolve state snapshots with
//
// Returns:
//   - RendererBuilderOption: a function that applies the resolver option to a renderer
func WithResolver(resolver pipeline.Resolver) RendererBuilderOption {
	return func(r *renderer) {
		r.resolver = resolver
	}
}

// WithFragmentShader registers s for kind instead of the built-in shader. The shader must still match the kind's
// layout.
func WithFragmentShader(kind pipeline.Kind, s shader.Shader) RendererBuilderOption {
	return func(r *renderer) {
		r.fragmentOverrides[kind] = s
	}
}

// WithTileSize sets the tile edge length RenderImage splits frames into. Values <= 0 render a frame as one tile.
func WithTileSize(size int) RendererBuilderOption {
	return func(r *renderer) {
		r.tileSize = size
	}
}

// WithWorkers sets the maximum number of tiles RenderImage renders concurrently.
func WithWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = n
	}
}

// WithPhaseObserver installs a callback for tile phase transitions.
func WithPhaseObserver(observer PhaseObserver) RendererBuilderOption {
	return func(r *renderer) {
		r.observer = observer
	}
}

// WithProfiler records every rendered tile in p.
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}

// SurfaceSource is a window that a wgpu surface can be created for. window.Window implements it.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// WithSurface creates the wgpu backend against the window's surface so frames can be presented with Presenter.
// It has no effect on the software backend.
//
// Parameters:
//   - w: the window to present to
//
// Returns:
//   - RendererBuilderOption: a function that applies the surface option to a renderer
func WithSurface(w SurfaceSource) RendererBuilderOption {
	return func(r *renderer) {
		r.surfaceDescriptor = w.SurfaceDescriptor()
		r.surfaceWidth, r.surfaceHeight = w.Width(), w.Height()
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithForceSoftwareAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithForceSoftwareAdapter(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

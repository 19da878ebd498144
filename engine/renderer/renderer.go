package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultTileSize is the edge length RenderImage splits frames into when no tile size is configured.
const DefaultTileSize = 256

// ErrTileBounds is returned when the target bounds of a tile request do not match the source tile.
var ErrTileBounds = errors.New("tile bounds do not match source")

// ErrIncompleteBind is wrapped in a GPUSubmissionError when a pass reports a bound set that differs from the
// resolved layout. The pass is never executed in that case.
var ErrIncompleteBind = errors.New("incomplete bind")

// Phase is the stage a tile request is in.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResolving
	PhaseBinding
	PhaseExecuting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseResolving:
		return "resolving"
	case PhaseBinding:
		return "binding"
	case PhaseExecuting:
		return "executing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PhaseObserver is called on every phase transition of a tile request. It runs on the rendering goroutine and
// must not block.
type PhaseObserver func(bounds image.Rectangle, from, to Phase)

// GPUSubmissionError reports a backend failure while binding or executing a tile pass.
type GPUSubmissionError struct {
	Kind pipeline.Kind
	// Op is the backend step that failed.
	Op  string
	Err error
}

func (e *GPUSubmissionError) Error() string {
	return fmt.Sprintf("gpu submission: %s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *GPUSubmissionError) Unwrap() error {
	return e.Err
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelines map[pipeline.Kind]pipeline.Pipeline
	resolver  pipeline.Resolver

	backendType RendererBackendType
	backend     RendererBackend

	tileSize int
	workers  int
	pool     worker.DynamicWorkerPool
	taskID   int

	observer PhaseObserver
	profiler *profiler.Profiler

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	surfaceWidth         int
	surfaceHeight        int
	pendingPresentMode   *PresentMode
	fragmentOverrides    map[pipeline.Kind]shader.Shader
}

// Renderer renders effects onto image tiles.
//
// A Renderer owns one backend and one registered pipeline per resolvable pipeline kind. Every request takes a
// state snapshot, resolves it to a pipeline layout, binds the source texture and the uniform block the layout
// declares, and reads the rendered tile back.
type Renderer interface {
	// RenderTile renders one tile.
	//
	// Parameters:
	//   - ctx: cancels the wait for the backend
	//   - src: the source pixels
	//   - st: the state snapshot to render with
	//   - bounds: the placement of the output tile, which must be the size of src
	//
	// Returns:
	//   - common.Tile: the rendered tile, placed at bounds
	//   - error: a resolver error wrapping pipeline.ErrUnresolvablePipeline, a *GPUSubmissionError, or a
	//     validation error for src and bounds
	RenderTile(ctx context.Context, src common.Tile, st state.State, bounds image.Rectangle) (common.Tile, error)

	// RenderImage splits img into tiles, renders them in parallel on the worker pool and stitches the result.
	// Each tile is rendered from a source region grown by the effect's apron so kernels that read neighbouring
	// pixels produce no seams.
	//
	// Parameters:
	//   - ctx: cancels outstanding tiles
	//   - img: the source image
	//   - st: the state snapshot to render every tile with
	//
	// Returns:
	//   - *image.RGBA: the rendered image with the bounds of img
	//   - error: the first tile error, if any
	RenderImage(ctx context.Context, img image.Image, st state.State) (*image.RGBA, error)

	// Pipeline returns the registered pipeline for a kind, or nil.
	//
	// Parameters:
	//   - kind: the pipeline kind
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline, or nil if the kind has none (KindNone never has one)
	Pipeline(kind pipeline.Kind) pipeline.Pipeline

	// Pipelines returns every registered pipeline sorted by kind.
	Pipelines() []pipeline.Pipeline

	Resolver() pipeline.Resolver
	Backend() RendererBackend

	// Presenter returns the window presenter when the renderer was created with a surface.
	//
	// Returns:
	//   - Presenter: the presenter
	//   - bool: false if the backend cannot present
	Presenter() (Presenter, bool)

	// Release stops the worker pool and frees every pipeline and the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer, creates its backend and registers one pipeline per kind of the resolver's layout
// table. Fragment shaders come from the built-in library unless overridden with WithFragmentShader, and every one is
// checked against its layout with pipeline.VerifyShader before registration.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the backend cannot be created or a pipeline fails verification or registration
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:                &sync.Mutex{},
		pipelines:         make(map[pipeline.Kind]pipeline.Pipeline),
		backendType:       backendType,
		tileSize:          DefaultTileSize,
		fragmentOverrides: make(map[pipeline.Kind]shader.Shader),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if r.resolver == nil {
		r.resolver = pipeline.DefaultResolver()
	}
	if r.workers <= 0 {
		r.workers = 4
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeSoftware:
			r.backend = newSoftwareRendererBackend()
		case BackendTypeWGPU:
			b, err := newWGPURendererBackend(r.surfaceDescriptor, r.forceFallbackAdapter)
			if err != nil {
				return nil, err
			}
			if r.pendingPresentMode != nil {
				b.SetPresentMode(*r.pendingPresentMode)
			}
			if b.HasSurface() {
				b.ConfigureSurface(r.surfaceWidth, r.surfaceHeight)
			}
			r.backend = b
		default:
			return nil, fmt.Errorf("unsupported renderer backend %s", backendType)
		}
	}

	if err := r.registerPipelines(); err != nil {
		r.releasePipelines()
		r.backend.Release()
		return nil, err
	}

	r.pool = worker.NewDynamicWorkerPool(r.workers, 256, 1*time.Second)
	common.Logger().Info("renderer ready",
		"backend", r.backend.Type().String(),
		"pipelines", len(r.pipelines),
		"tile_size", r.tileSize,
		"workers", r.workers)
	return r, nil
}

func (r *renderer) registerPipelines() error {
	for _, layout := range r.resolver.Layouts() {
		if layout.Kind == pipeline.KindNone {
			continue
		}
		fs, ok := r.fragmentOverrides[layout.Kind]
		if !ok {
			var err error
			if fs, err = shader.Builtin(layout.Kind.ShaderName()); err != nil {
				return fmt.Errorf("%s: %w", layout.Kind, err)
			}
		}
		if err := pipeline.VerifyShader(layout, fs); err != nil {
			return err
		}
		p := pipeline.NewPipeline(layout, pipeline.WithFragmentShader(fs))
		if err := r.backend.RegisterPipeline(p); err != nil {
			p.Release()
			return fmt.Errorf("register %s: %w", layout.Kind, err)
		}
		r.pipelines[layout.Kind] = p
	}
	return nil
}

func (r *renderer) releasePipelines() {
	for k, p := range r.pipelines {
		p.Release()
		delete(r.pipelines, k)
	}
}

// request tracks the phase of one tile request and reports transitions.
type request struct {
	r      *renderer
	bounds image.Rectangle
	phase  Phase
}

func (q *request) to(next Phase) {
	common.Logger().Debug("tile phase", "bounds", q.bounds, "from", q.phase.String(), "to", next.String())
	if q.r.observer != nil {
		q.r.observer(q.bounds, q.phase, next)
	}
	q.phase = next
}

func (q *request) fail(err error) error {
	q.to(PhaseFailed)
	return err
}

func (r *renderer) RenderTile(ctx context.Context, src common.Tile, st state.State, bounds image.Rectangle) (out common.Tile, err error) {
	start := time.Now()
	kind := pipeline.KindNone
	if r.profiler != nil {
		defer func() { r.profiler.Record(kind, time.Since(start), err) }()
	}

	q := &request{r: r, bounds: bounds}
	q.to(PhaseResolving)

	if err := src.Validate(); err != nil {
		return common.Tile{}, q.fail(err)
	}
	if bounds.Dx() != int(src.Width) || bounds.Dy() != int(src.Height) {
		return common.Tile{}, q.fail(fmt.Errorf("%w: bounds %v, source %dx%d", ErrTileBounds, bounds, src.Width, src.Height))
	}

	res, err := r.resolver.Resolve(st)
	if err != nil {
		return common.Tile{}, q.fail(err)
	}
	kind = res.Kind

	if res.Kind == pipeline.KindNone {
		out = src.Clone()
		out.Bounds = bounds
		q.to(PhaseDone)
		return out, nil
	}

	p := r.Pipeline(res.Kind)
	if p == nil {
		return common.Tile{}, q.fail(fmt.Errorf("%w: no registered pipeline for %s", pipeline.ErrUnresolvablePipeline, res.Kind))
	}
	values, err := res.Values(st, src.Width, src.Height)
	if err != nil {
		return common.Tile{}, q.fail(err)
	}

	q.to(PhaseBinding)
	pass, err := r.backend.BeginTilePass(p, src.Width, src.Height)
	if err != nil {
		return common.Tile{}, q.fail(&GPUSubmissionError{Kind: res.Kind, Op: "begin pass", Err: err})
	}
	defer pass.Release()

	if err := pass.BindTexture(res.TextureSlot, src); err != nil {
		return common.Tile{}, q.fail(&GPUSubmissionError{Kind: res.Kind, Op: "bind texture", Err: err})
	}
	if err := pass.BindUniforms(values); err != nil {
		return common.Tile{}, q.fail(&GPUSubmissionError{Kind: res.Kind, Op: "bind uniforms", Err: err})
	}

	bound := pass.Bound()
	if !bound.HasTexture || bound.TextureSlot != res.TextureSlot || bound.Uniforms != len(res.Uniforms) {
		err := fmt.Errorf("%w: have texture=%t slot=%d uniforms=%d, want slot=%d uniforms=%d",
			ErrIncompleteBind, bound.HasTexture, bound.TextureSlot, bound.Uniforms, res.TextureSlot, len(res.Uniforms))
		return common.Tile{}, q.fail(&GPUSubmissionError{Kind: res.Kind, Op: "verify", Err: err})
	}

	q.to(PhaseExecuting)
	out, err = pass.Execute(ctx)
	if err != nil {
		return common.Tile{}, q.fail(&GPUSubmissionError{Kind: res.Kind, Op: "execute", Err: err})
	}
	out.Bounds = bounds
	q.to(PhaseDone)
	return out, nil
}

func (r *renderer) RenderImage(parent context.Context, img image.Image, st state.State) (*image.RGBA, error) {
	src := common.ToRGBA(img)
	frame := src.Bounds()
	dst := image.NewRGBA(frame)
	if frame.Empty() {
		return dst, nil
	}

	res, err := r.resolver.Resolve(st)
	if err != nil {
		return nil, err
	}
	apron := res.Apron(st)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	for _, core := range common.SplitRect(frame, r.tileSize) {
		wg.Add(1)
		r.mu.Lock()
		id := r.taskID
		r.taskID++
		r.mu.Unlock()

		r.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}

				region := core.Inset(-apron).Intersect(frame)
				tile := common.TileFromRGBA(src, region)
				out, err := r.RenderTile(ctx, tile, st, region)
				if err != nil {
					common.Logger().Warn("tile render failed", "bounds", core, "error", err)
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					errMu.Unlock()
					return nil, err
				}

				// Only the core of the rendered region is kept; the apron pixels were context for the kernel.
				rendered := out.RGBA()
				rowBytes := core.Dx() * common.BytesPerPixel
				for y := core.Min.Y; y < core.Max.Y; y++ {
					s := rendered.PixOffset(core.Min.X, y)
					d := dst.PixOffset(core.Min.X, y)
					copy(dst.Pix[d:d+rowBytes], rendered.Pix[s:s+rowBytes])
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}
	return dst, nil
}

func (r *renderer) Pipeline(kind pipeline.Kind) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelines[kind]
}

func (r *renderer) Pipelines() []pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pipeline.Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind() < out[j].Kind() })
	return out
}

func (r *renderer) Resolver() pipeline.Resolver {
	return r.resolver
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Presenter() (Presenter, bool) {
	b, ok := r.backend.(wgpuRendererBackend)
	if !ok || !b.HasSurface() {
		return nil, false
	}
	return b, true
}

func (r *renderer) Release() {
	if r.pool != nil {
		r.pool.Stop()
		r.pool = nil
	}
	r.mu.Lock()
	r.releasePipelines()
	r.mu.Unlock()
	if r.backend != nil {
		r.backend.Release()
	}
}

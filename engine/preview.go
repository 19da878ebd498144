package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
)

// PreviewWindow is the part of window.Window the preview drives.
type PreviewWindow interface {
	SetUpdateCallback(callback func())
	SetResizeCallback(callback func(width, height int))
	SetKeyDownCallback(callback func(keyCode uint32))
	SetScrollCallback(callback func(delta float32))
	SetDragCallbacks(begin, move, end func(x, y int32))
	SetTitle(title string)
	ProcessMessages()
	Close() error
	Width() int
	Height() int
}

type preview struct {
	window PreviewWindow
	plugin Plugin
	source *image.RGBA

	// dirty is set by input, resize and state changes and cleared by the render goroutine.
	dirty        atomic.Bool
	lastRevision uint64

	// pendingTitle carries the title from the render goroutine to the window thread.
	pendingTitle atomic.Pointer[string]

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderFrameLimit atomic.Int64 // minimum frame duration in nanoseconds; 0 = uncapped

	wg          sync.WaitGroup
	quitChannel chan struct{}
	quitOnce    sync.Once

	errMu sync.Mutex
	err   error
}

// Preview shows a source image through a plugin in a window.
//
// Key bindings: Tab cycles the active effect, 0-9 select an effect by its position in effect.All, N toggles the
// negative, H toggles the radius handle, R resets every parameter and Escape closes the window. A middle-button
// drag or the scroll wheel adjusts the radius while the radius handle is shown.
type Preview interface {
	// Run blocks on the window message loop until the window is closed or Quit is called.
	//
	// Returns:
	//   - error: the first render or present error, which also stops the preview
	Run() error

	// Quit stops the render goroutine and closes the window on its next message loop iteration.
	Quit()

	// SetRenderFrameLimit caps the render loop to fps frames per second. Values <= 0 uncap it.
	SetRenderFrameLimit(fps float64)
}

// NewPreview wires a window to a plugin. The plugin's renderer must have been created with
// renderer.WithSurface(w) so it can present.
//
// Parameters:
//   - w: the open preview window
//   - p: the plugin to render with
//   - source: the image to preview
//   - options: variadic list of PreviewBuilderOption functions
//
// Returns:
//   - Preview: the preview
//   - error: an error if the plugin's renderer cannot present
func NewPreview(w PreviewWindow, p Plugin, source *image.RGBA, options ...PreviewBuilderOption) (Preview, error) {
	if _, ok := p.Renderer().Presenter(); !ok {
		return nil, errors.New("preview: renderer was created without a window surface")
	}
	pv := &preview{
		window:      w,
		plugin:      p,
		source:      source,
		profiler:    profiler.NewProfiler(),
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(pv)
	}
	pv.dirty.Store(true)

	presenter, _ := p.Renderer().Presenter()
	w.SetResizeCallback(func(width, height int) {
		presenter.ConfigureSurface(width, height)
		pv.dirty.Store(true)
	})

	// GLFW calls are only valid on the window thread, which runs the update callback.
	w.SetUpdateCallback(func() {
		if t := pv.pendingTitle.Swap(nil); t != nil {
			w.SetTitle(*t)
		}
		select {
		case <-pv.quitChannel:
			_ = w.Close()
		default:
		}
	})

	osc := p.OSC()
	w.SetDragCallbacks(osc.Begin, func(x, y int32) {
		if _, changed, err := osc.Move(x, y); err != nil {
			common.Logger().Warn("osc drag failed", "error", err)
		} else if changed {
			pv.dirty.Store(true)
		}
	}, osc.End)
	w.SetScrollCallback(func(delta float32) {
		if _, changed, err := osc.Scroll(delta); err != nil {
			common.Logger().Warn("osc scroll failed", "error", err)
		} else if changed {
			pv.dirty.Store(true)
		}
	})

	w.SetKeyDownCallback(func(keyCode uint32) {
		if keyCode == common.KeyEsc {
			pv.Quit()
			return
		}
		if err := handleKey(p.Store(), keyCode); err != nil {
			common.Logger().Warn("preview key failed", "key", keyCode, "error", err)
		}
	})
	return pv, nil
}

// handleKey applies the preview key bindings to s. Unbound keys are ignored.
func handleKey(s state.Store, keyCode uint32) error {
	switch {
	case keyCode == common.KeyTab:
		return cycleEffect(s)
	case keyCode >= common.Key0 && keyCode <= common.Key9:
		all := effect.All()
		if i := int(keyCode - common.Key0); i < len(all) {
			return s.SetEffect(all[i])
		}
	case keyCode == common.KeyN:
		return s.SetToggle(parameter.FieldNegative, !s.Snapshot().Negative)
	case keyCode == common.KeyH:
		next := parameter.OSCRadiusHandle
		if s.Snapshot().OSCType == parameter.OSCRadiusHandle {
			next = parameter.OSCHidden
		}
		return s.SetEnum(parameter.FieldOSCType, next)
	case keyCode == common.KeyR:
		s.Reset()
	}
	return nil
}

// cycleEffect selects the effect after the active one in effect.All order.
func cycleEffect(s state.Store) error {
	current, err := s.Snapshot().Effect()
	if err != nil {
		return err
	}
	all := effect.All()
	next := all[0]
	for i, e := range all {
		if e == current {
			next = all[(i+1)%len(all)]
			break
		}
	}
	return s.SetEffect(next)
}

func (pv *preview) Run() error {
	pv.wg.Add(1)
	go pv.handleRender()
	pv.window.ProcessMessages()
	pv.Quit()
	pv.wg.Wait()

	pv.errMu.Lock()
	defer pv.errMu.Unlock()
	return pv.err
}

func (pv *preview) Quit() {
	pv.quitOnce.Do(func() {
		close(pv.quitChannel)
	})
}

func (pv *preview) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		pv.renderFrameLimit.Store(0)
		return
	}
	pv.renderFrameLimit.Store(int64(float64(time.Second) / fps))
}

func (pv *preview) fail(err error) {
	pv.errMu.Lock()
	if pv.err == nil {
		pv.err = err
	}
	pv.errMu.Unlock()
	pv.Quit()
}

// handleRender re-renders the source whenever the state revision changes or the window asks for a redraw.
func (pv *preview) handleRender() {
	defer pv.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			pv.fail(fmt.Errorf("render goroutine recovered from panic: %v", r))
		}
	}()

	presenter, _ := pv.plugin.Renderer().Presenter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-pv.quitChannel
		cancel()
	}()

	for {
		select {
		case <-pv.quitChannel:
			return
		default:
		}
		frameStart := time.Now()

		st := pv.plugin.Store().Snapshot()
		if st.Revision != pv.lastRevision || pv.dirty.Swap(false) {
			pv.lastRevision = st.Revision
			frame := common.FitWithin(pv.source, pv.window.Width(), pv.window.Height())
			out, err := pv.plugin.Renderer().RenderImage(ctx, frame, st)
			if err != nil {
				if ctx.Err() == nil {
					pv.fail(err)
				}
				return
			}
			if err := presenter.Present(out); err != nil {
				pv.fail(err)
				return
			}
			t := title(st)
			pv.pendingTitle.Store(&t)
		}

		if pv.profilingEnabled {
			pv.profiler.Tick()
		}

		limit := time.Duration(pv.renderFrameLimit.Load())
		if limit <= 0 {
			// Idle frames only poll the revision, so cap them anyway.
			limit = time.Second / 120
		}
		if remaining := limit - time.Since(frameStart); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func title(st state.State) string {
	e, err := st.Effect()
	if err != nil {
		return "oxy-fx preview"
	}
	if field, ok := RadiusField(e); ok {
		r, _ := st.Scalar(field)
		return fmt.Sprintf("oxy-fx preview: %s (radius %.1f)", e, r)
	}
	return fmt.Sprintf("oxy-fx preview: %s", e)
}

// PreviewBuilderOption is a functional option applied to a preview during NewPreview.
type PreviewBuilderOption func(*preview)

// WithProfiling enables the profiler's periodic report. The profiler must also be passed to the renderer with
// renderer.WithProfiler to see per-kind tile statistics.
func WithProfiling(p *profiler.Profiler) PreviewBuilderOption {
	return func(pv *preview) {
		pv.profilingEnabled = p != nil
		if p != nil {
			pv.profiler = p
		}
	}
}

// WithRenderFrameLimit caps the render loop to fps frames per second.
func WithRenderFrameLimit(fps float64) PreviewBuilderOption {
	return func(pv *preview) {
		pv.SetRenderFrameLimit(fps)
	}
}

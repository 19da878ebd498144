package window

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the preview window: a surface to present rendered frames to plus the input the on-screen control
// reads.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up, negative = down)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetDragCallbacks sets the callbacks for a middle mouse button drag. move is only called while the button is
	// held.
	//
	// Parameters:
	//   - begin: called with the cursor position when the button is pressed
	//   - move: called with the cursor position while the button is held
	//   - end: called with the cursor position when the button is released
	SetDragCallbacks(begin, move, end func(x, y int32))

	// SetTitle replaces the title bar text.
	SetTitle(title string)

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor for the window, created by the wgpuglfw bridge.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	IsRunning() bool

	// Close destroys the window and terminates GLFW.
	//
	// Returns:
	//   - error: error if the window was never opened
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls the update callback each iteration.
	ProcessMessages()

	Width() int
	Height() int
}

// previewWindow is the implementation of the Window interface.
type previewWindow struct {
	title string

	minWidth, minHeight int
	maxWidth, maxHeight int

	// width and height are the framebuffer size in pixels, which differs from the window size on high-DPI displays.
	width, height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	dragging bool

	onUpdate    func()
	onResize    func(width, height int)
	onScroll    func(delta float32)
	onKeyDown   func(keyCode uint32)
	onDragBegin func(x, y int32)
	onDragMove  func(x, y int32)
	onDragEnd   func(x, y int32)
}

var _ Window = &previewWindow{}

// NewWindow opens a preview window. Applies default values first, then each option in order.
// It locks the calling goroutine to its OS thread, which must stay the thread that calls ProcessMessages.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: an error if GLFW cannot be initialized or the window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &previewWindow{
		title:     "oxy-fx preview",
		minWidth:  320,
		minHeight: 240,
		maxWidth:  3840,
		maxHeight: 2160,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *previewWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *previewWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *previewWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *previewWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *previewWindow) SetDragCallbacks(begin, move, end func(x, y int32)) {
	w.onDragBegin, w.onDragMove, w.onDragEnd = begin, move, end
}

func (w *previewWindow) SetTitle(title string) {
	w.title = title
	platformSetTitle(w, title)
}

func (w *previewWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *previewWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *previewWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *previewWindow) ProcessMessages() {
	for w.IsRunning() {
		if ok := platformProcessMessages(w); !ok {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *previewWindow) Width() int {
	return w.width
}

func (w *previewWindow) Height() int {
	return w.height
}

// pressDrag, moveDrag and releaseDrag turn raw middle-button events into drag callbacks.
func (w *previewWindow) pressDrag(x, y int32) {
	w.dragging = true
	if w.onDragBegin != nil {
		w.onDragBegin(x, y)
	}
}

func (w *previewWindow) moveDrag(x, y int32) {
	if w.dragging && w.onDragMove != nil {
		w.onDragMove(x, y)
	}
}

func (w *previewWindow) releaseDrag(x, y int32) {
	if !w.dragging {
		return
	}
	w.dragging = false
	if w.onDragEnd != nil {
		w.onDragEnd(x, y)
	}
}

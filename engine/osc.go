package engine

import (
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/engine/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
)

// DefaultPixelsPerUnit is how many pixels of horizontal drag change a radius by one.
const DefaultPixelsPerUnit = 4.0

// RadiusField returns the scalar field that holds the radius of e.
//
// Returns:
//   - parameter.Field: the radius field
//   - bool: false for effects without a radius
func RadiusField(e effect.Effect) (parameter.Field, bool) {
	switch v := e.(type) {
	case effect.Blur:
		switch v.Variant {
		case effect.BlurGaussian:
			return parameter.FieldGaussianRadius, true
		case effect.BlurKawase:
			return parameter.FieldKawaseRadius, true
		case effect.BlurBox:
			return parameter.FieldBoxRadius, true
		}
	case effect.Special:
		if v.Variant == effect.SpecialOilPainting {
			return parameter.FieldOilPaintingRadius, true
		}
	}
	return 0, false
}

// RadiusHandle is the on-screen control that maps a middle-button drag to the active effect's radius. It only
// acts while the OSC type is parameter.OSCRadiusHandle, and it remembers the last drag position between drags.
type RadiusHandle struct {
	mu            *sync.Mutex
	store         state.Store
	pixelsPerUnit float64
	dragging      bool
	last          image.Point
}

// NewRadiusHandle creates a RadiusHandle that edits store.
func NewRadiusHandle(store state.Store) *RadiusHandle {
	return &RadiusHandle{
		mu:            &sync.Mutex{},
		store:         store,
		pixelsPerUnit: DefaultPixelsPerUnit,
	}
}

// SetPixelsPerUnit changes the drag sensitivity. Values <= 0 are ignored.
func (h *RadiusHandle) SetPixelsPerUnit(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if v > 0 {
		h.pixelsPerUnit = v
	}
}

// Begin starts a drag at (x, y).
func (h *RadiusHandle) Begin(x, y int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dragging = true
	h.last = image.Pt(int(x), int(y))
}

// Move continues a drag. The radius changes by the horizontal distance since the previous position.
//
// Parameters:
//   - x: the cursor x position
//   - y: the cursor y position
//
// Returns:
//   - float64: the stored radius after clamping
//   - bool: false if nothing was changed because no drag is active, the control is hidden or the effect has no
//     radius
//   - error: an error from the store
func (h *RadiusHandle) Move(x, y int32) (float64, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.dragging {
		return 0, false, nil
	}
	pos := image.Pt(int(x), int(y))
	dx := pos.X - h.last.X
	h.last = pos

	return h.adjust(float64(dx) / h.pixelsPerUnit)
}

// Scroll changes the radius by delta units, one per wheel notch. It needs no active drag.
func (h *RadiusHandle) Scroll(delta float32) (float64, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.adjust(float64(delta))
}

// adjust adds units to the active effect's radius. Callers hold mu.
func (h *RadiusHandle) adjust(units float64) (float64, bool, error) {
	st := h.store.Snapshot()
	if st.OSCType != parameter.OSCRadiusHandle {
		return 0, false, nil
	}
	e, err := st.Effect()
	if err != nil {
		return 0, false, err
	}
	field, ok := RadiusField(e)
	if !ok {
		return 0, false, nil
	}
	v, err := h.store.UpdateScalar(field, func(old float64) float64 { return old + units })
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// End finishes a drag at (x, y).
func (h *RadiusHandle) End(x, y int32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dragging = false
	h.last = image.Pt(int(x), int(y))
}

// LastPosition returns the last cursor position the control saw.
func (h *RadiusHandle) LastPosition() image.Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

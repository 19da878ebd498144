// Package state owns the plugin's live parameter record. The UI actor mutates it through a Store; the render
// actor only ever sees immutable State snapshots.
package state

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-fx/engine/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
)

// ErrInvalidField is returned when a setter targets a field that does not have the role the setter expects, or
// when an enum index or value type does not fit the field.
var ErrInvalidField = errors.New("invalid field")

// State is a complete copy of the plugin parameters. The parameters of every effect are kept side by side, so
// switching the active effect back and forth preserves earlier settings.
type State struct {
	// Kind, Blur and Special are the three effect selectors. Blur and Special are stored even while another
	// family is active.
	Kind    effect.Kind
	Blur    effect.BlurVariant
	Special effect.SpecialVariant

	Brightness      float64
	BrightnessClamp bool
	Negative        bool

	GaussianRadius float64
	KawaseRadius   float64
	BoxRadius      float64

	OilPaintingRadius    float64
	OilPaintingIntensity float64

	OSCType int

	// Revision increases by one with every successful mutation.
	Revision uint64
}

// Effect builds the active effect from the selectors.
//
// Returns:
//   - effect.Effect: the active effect
//   - error: effect.ErrUnknownEffect if a consulted selector is out of range
func (s State) Effect() (effect.Effect, error) {
	return effect.FromSelectors(s.Kind, s.Blur, s.Special)
}

// Scalar returns the value stored in a scalar field.
func (s State) Scalar(f parameter.Field) (float64, bool) {
	p := s.scalar(f)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Toggle returns the value stored in a toggle field.
func (s State) Toggle(f parameter.Field) (bool, bool) {
	p := s.toggle(f)
	if p == nil {
		return false, false
	}
	return *p, true
}

// Enum returns the option index stored in an enum field.
func (s State) Enum(f parameter.Field) (int, bool) {
	switch f {
	case parameter.FieldEffect:
		return int(s.Kind), true
	case parameter.FieldBlurType:
		return int(s.Blur), true
	case parameter.FieldSpecialType:
		return int(s.Special), true
	case parameter.FieldOSCType:
		return s.OSCType, true
	default:
		return 0, false
	}
}

func (s *State) scalar(f parameter.Field) *float64 {
	switch f {
	case parameter.FieldBrightness:
		return &s.Brightness
	case parameter.FieldGaussianRadius:
		return &s.GaussianRadius
	case parameter.FieldKawaseRadius:
		return &s.KawaseRadius
	case parameter.FieldBoxRadius:
		return &s.BoxRadius
	case parameter.FieldOilPaintingRadius:
		return &s.OilPaintingRadius
	case parameter.FieldOilPaintingIntensity:
		return &s.OilPaintingIntensity
	default:
		return nil
	}
}

func (s *State) toggle(f parameter.Field) *bool {
	switch f {
	case parameter.FieldBrightnessClamp:
		return &s.BrightnessClamp
	case parameter.FieldNegative:
		return &s.Negative
	default:
		return nil
	}
}

func (s *State) setEnum(f parameter.Field, idx int) bool {
	switch f {
	case parameter.FieldEffect:
		s.Kind = effect.Kind(idx)
	case parameter.FieldBlurType:
		s.Blur = effect.BlurVariant(idx)
	case parameter.FieldSpecialType:
		s.Special = effect.SpecialVariant(idx)
	case parameter.FieldOSCType:
		s.OSCType = idx
	default:
		return false
	}
	return true
}

// Defaults builds a State from the defaults declared in a registry. Fields the registry does not declare stay at
// their zero value.
//
// Parameters:
//   - reg: the registry to read defaults from
//
// Returns:
//   - State: the default state
func Defaults(reg parameter.Registry) State {
	var s State
	for _, e := range reg.Entries() {
		switch role := e.Role.(type) {
		case parameter.Scalar:
			if p := s.scalar(role.Field); p != nil {
				*p = role.Range.Default
			}
		case parameter.Toggle:
			if p := s.toggle(role.Field); p != nil {
				*p = role.Default
			}
		case parameter.Enum:
			s.setEnum(role.Field, role.Default)
		}
	}
	return s
}

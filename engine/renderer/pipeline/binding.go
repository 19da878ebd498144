package pipeline

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
)

// ErrInvalidLayout is returned when a binding layout breaks the slot rules: uniform slots must be unique and
// contiguous from 0 and every source must be known.
var ErrInvalidLayout = errors.New("invalid binding layout")

// UniformSource names the value written into a uniform slot: a plugin state field or a property of the bound
// input texture.
type UniformSource int

const (
	SourceBrightness UniformSource = iota
	SourceBrightnessClamp
	SourceNegative
	SourceGaussianRadius
	SourceKawaseRadius
	SourceBoxRadius
	SourceOilPaintingRadius
	SourceOilPaintingIntensity
	// SourceTexelSizeX is 1 / width of the bound texture.
	SourceTexelSizeX
	// SourceTexelSizeY is 1 / height of the bound texture.
	SourceTexelSizeY
)

var sourceFields = map[UniformSource]parameter.Field{
	SourceBrightness:           parameter.FieldBrightness,
	SourceBrightnessClamp:      parameter.FieldBrightnessClamp,
	SourceNegative:             parameter.FieldNegative,
	SourceGaussianRadius:       parameter.FieldGaussianRadius,
	SourceKawaseRadius:         parameter.FieldKawaseRadius,
	SourceBoxRadius:            parameter.FieldBoxRadius,
	SourceOilPaintingRadius:    parameter.FieldOilPaintingRadius,
	SourceOilPaintingIntensity: parameter.FieldOilPaintingIntensity,
}

// Field returns the state field a source reads, or false for texel sizes.
func (s UniformSource) Field() (parameter.Field, bool) {
	f, ok := sourceFields[s]
	return f, ok
}

// Valid reports whether s is a declared source.
func (s UniformSource) Valid() bool {
	return s >= SourceBrightness && s <= SourceTexelSizeY
}

// String returns the name shaders use for the source in @fx:uniform annotations. Field sources use the field
// name.
func (s UniformSource) String() string {
	if f, ok := s.Field(); ok {
		return f.String()
	}
	switch s {
	case SourceTexelSizeX:
		return "texel_size_x"
	case SourceTexelSizeY:
		return "texel_size_y"
	default:
		return fmt.Sprintf("UniformSource(%d)", int(s))
	}
}

// ParseUniformSource is the inverse of UniformSource.String.
func ParseUniformSource(name string) (UniformSource, error) {
	for s := SourceBrightness; s <= SourceTexelSizeY; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown uniform source %q", ErrInvalidLayout, name)
}

// UniformBinding routes one source into one uniform slot.
type UniformBinding struct {
	Slot   int
	Source UniformSource
}

// BindingSpec is the ordered uniform layout of a pipeline. Slot i holds the i-th f32 member of the shader's
// uniform block.
type BindingSpec []UniformBinding

// Validate checks that slots are contiguous from 0 in declaration order and every source is known.
func (b BindingSpec) Validate() error {
	for i, u := range b {
		if u.Slot != i {
			return fmt.Errorf("%w: binding %d has slot %d, want %d", ErrInvalidLayout, i, u.Slot, i)
		}
		if !u.Source.Valid() {
			return fmt.Errorf("%w: slot %d has unknown source %d", ErrInvalidLayout, i, int(u.Source))
		}
	}
	return nil
}

// Values reads every bound source from a snapshot in slot order. Toggles are written as 0 or 1.
//
// Parameters:
//   - st: the state snapshot
//   - width: the width in pixels of the bound texture
//   - height: the height in pixels of the bound texture
//
// Returns:
//   - []float32: one value per slot
//   - error: ErrInvalidLayout if a source cannot be read from st, or the texture size is zero
func (b BindingSpec) Values(st state.State, width, height uint32) ([]float32, error) {
	values := make([]float32, len(b))
	for i, u := range b {
		switch u.Source {
		case SourceTexelSizeX:
			if width == 0 {
				return nil, fmt.Errorf("%w: texel size of a zero-width texture", ErrInvalidLayout)
			}
			values[i] = 1 / float32(width)
			continue
		case SourceTexelSizeY:
			if height == 0 {
				return nil, fmt.Errorf("%w: texel size of a zero-height texture", ErrInvalidLayout)
			}
			values[i] = 1 / float32(height)
			continue
		}

		field, ok := u.Source.Field()
		if !ok {
			return nil, fmt.Errorf("%w: slot %d has unknown source %d", ErrInvalidLayout, u.Slot, int(u.Source))
		}
		if v, ok := st.Scalar(field); ok {
			values[i] = float32(v)
		} else if v, ok := st.Toggle(field); ok {
			values[i] = common.BoolToFloat(v)
		} else {
			return nil, fmt.Errorf("%w: %s is not a scalar or toggle field", ErrInvalidLayout, field)
		}
	}
	return values, nil
}

// UniformAlignment is the byte multiple uniform buffers are padded to.
const UniformAlignment = 16

// PackUniforms encodes values as consecutive little-endian f32 members, zero-padded to UniformAlignment.
func PackUniforms(values []float32) []byte {
	size := max(UniformAlignment, (len(values)*4+UniformAlignment-1)/UniformAlignment*UniformAlignment)
	buf := make([]byte, size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

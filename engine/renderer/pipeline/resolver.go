package pipeline

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/engine/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
)

// ErrUnresolvablePipeline is returned when an effect selection has no pipeline mapping or layout.
var ErrUnresolvablePipeline = errors.New("unresolvable pipeline")

// Layout is the fixed binding contract of one pipeline kind: the input texture slot and the ordered uniforms.
type Layout struct {
	Kind        Kind
	TextureSlot TextureSlot
	Uniforms    BindingSpec
}

// DefaultLayouts returns the layout table the built-in shaders are authored against. Changing a uniform order
// here requires the matching change in the kind's shader.
func DefaultLayouts() []Layout {
	blur := func(kind Kind, slot TextureSlot, radius UniformSource) Layout {
		return Layout{
			Kind:        kind,
			TextureSlot: slot,
			Uniforms: BindingSpec{
				{Slot: 0, Source: radius},
				{Slot: 1, Source: SourceTexelSizeX},
				{Slot: 2, Source: SourceTexelSizeY},
			},
		}
	}
	return []Layout{
		{Kind: KindNone, TextureSlot: TextureSlotNone},
		{
			Kind:        KindBrightness,
			TextureSlot: TextureSlotBrightness,
			Uniforms: BindingSpec{
				{Slot: 0, Source: SourceBrightness},
				{Slot: 1, Source: SourceBrightnessClamp},
			},
		},
		{
			Kind:        KindNegative,
			TextureSlot: TextureSlotNegative,
			Uniforms:    BindingSpec{{Slot: 0, Source: SourceNegative}},
		},
		blur(KindGaussianBlur, TextureSlotGaussianBlur, SourceGaussianRadius),
		blur(KindKawaseBlur, TextureSlotKawaseBlur, SourceKawaseRadius),
		blur(KindBoxBlur, TextureSlotBoxBlur, SourceBoxRadius),
		{
			Kind:        KindOilPainting,
			TextureSlot: TextureSlotOilPainting,
			Uniforms: BindingSpec{
				{Slot: 0, Source: SourceOilPaintingRadius},
				{Slot: 1, Source: SourceOilPaintingIntensity},
				{Slot: 2, Source: SourceTexelSizeX},
				{Slot: 3, Source: SourceTexelSizeY},
			},
		},
	}
}

// KindOf maps an effect to its pipeline kind. The switch is exhaustive over the effect taxonomy; an effect or
// variant without a case fails with ErrUnresolvablePipeline.
//
// Parameters:
//   - e: the effect to map
//
// Returns:
//   - Kind: the pipeline kind that renders e
//   - error: ErrUnresolvablePipeline if e has no mapping
func KindOf(e effect.Effect) (Kind, error) {
	switch v := e.(type) {
	case effect.None:
		return KindNone, nil
	case effect.Brightness:
		return KindBrightness, nil
	case effect.Negative:
		return KindNegative, nil
	case effect.Blur:
		switch v.Variant {
		case effect.BlurGaussian:
			return KindGaussianBlur, nil
		case effect.BlurKawase:
			return KindKawaseBlur, nil
		case effect.BlurBox:
			return KindBoxBlur, nil
		}
	case effect.Special:
		switch v.Variant {
		case effect.SpecialOilPainting:
			return KindOilPainting, nil
		}
	}
	return 0, fmt.Errorf("%w: no pipeline for effect %v", ErrUnresolvablePipeline, e)
}

// Resolution is the result of resolving a state snapshot: the effect that was active and the layout of the
// pipeline that renders it.
type Resolution struct {
	Layout
	Effect effect.Effect
}

// Values reads the resolution's uniform sources from st in slot order.
//
// Parameters:
//   - st: the snapshot that was resolved
//   - width: the width in pixels of the bound texture
//   - height: the height in pixels of the bound texture
//
// Returns:
//   - []float32: one value per uniform slot
//   - error: ErrInvalidLayout if a value cannot be produced
func (r Resolution) Values(st state.State, width, height uint32) ([]float32, error) {
	return r.Uniforms.Values(st, width, height)
}

// Apron returns how many pixels beyond its own bounds the kind's kernel reads. A tile rendered with at least
// this much surrounding source blends seamlessly with its neighbours.
func (r Resolution) Apron(st state.State) int {
	reach := func(radius float64) int {
		if radius <= 0 || math.IsNaN(radius) {
			return 0
		}
		return int(math.Ceil(radius))
	}
	switch r.Kind {
	case KindGaussianBlur:
		return reach(st.GaussianRadius)
	case KindKawaseBlur:
		if n := reach(st.KawaseRadius); n > 0 {
			return n + 1
		}
		return 0
	case KindBoxBlur:
		return reach(st.BoxRadius)
	case KindOilPainting:
		return reach(st.OilPaintingRadius)
	default:
		return 0
	}
}

type resolver struct {
	layouts map[Kind]Layout
}

// Resolver turns a plugin state snapshot into the pipeline kind, texture slot and ordered uniform bindings the
// renderer must use. It has no side effects and is safe for concurrent use.
type Resolver interface {
	// Resolve maps the active effect of st to its pipeline layout.
	//
	// Parameters:
	//   - st: the state snapshot to resolve
	//
	// Returns:
	//   - Resolution: the effect and its pipeline layout
	//   - error: ErrUnresolvablePipeline if a selector is out of range, the effect has no pipeline kind, or the
	//     kind has no layout
	Resolve(st state.State) (Resolution, error)

	// Layout returns the layout registered for a kind.
	//
	// Parameters:
	//   - k: the pipeline kind
	//
	// Returns:
	//   - Layout: the layout
	//   - bool: false if no layout is registered for k
	Layout(k Kind) (Layout, bool)

	// Layouts returns every registered layout ordered by kind.
	//
	// Returns:
	//   - []Layout: the registered layouts
	Layouts() []Layout
}

var _ Resolver = &resolver{}

// NewResolver builds a resolver over an explicit layout table. Each layout's bindings are validated and a kind
// may appear only once.
//
// Parameters:
//   - layouts: the layout table
//
// Returns:
//   - Resolver: the resolver
//   - error: ErrInvalidLayout if a layout is malformed or a kind is repeated
func NewResolver(layouts ...Layout) (Resolver, error) {
	r := &resolver{layouts: make(map[Kind]Layout, len(layouts))}
	for _, l := range layouts {
		if _, dup := r.layouts[l.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate layout for %s", ErrInvalidLayout, l.Kind)
		}
		if err := l.Uniforms.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", l.Kind, err)
		}
		r.layouts[l.Kind] = l
	}
	return r, nil
}

var defaultResolver = sync.OnceValue(func() Resolver {
	r, err := NewResolver(DefaultLayouts()...)
	if err != nil {
		panic(err)
	}
	return r
})

// DefaultResolver returns the shared resolver over DefaultLayouts.
func DefaultResolver() Resolver {
	return defaultResolver()
}

func (r *resolver) Resolve(st state.State) (Resolution, error) {
	e, err := st.Effect()
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %w", ErrUnresolvablePipeline, err)
	}
	kind, err := KindOf(e)
	if err != nil {
		return Resolution{}, err
	}
	layout, ok := r.layouts[kind]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: no layout for %s", ErrUnresolvablePipeline, kind)
	}
	return Resolution{Layout: layout, Effect: e}, nil
}

func (r *resolver) Layout(k Kind) (Layout, bool) {
	l, ok := r.layouts[k]
	return l, ok
}

func (r *resolver) Layouts() []Layout {
	out := make([]Layout, 0, len(r.layouts))
	for _, l := range r.layouts {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Layout) int { return int(a.Kind) - int(b.Kind) })
	return out
}

// Package effect defines the closed set of image effects the plugin can apply. An Effect is a tagged union: the
// concrete type is the effect family and, for families with sub-variants, the Variant field selects the member.
package effect

import (
	"errors"
	"fmt"
)

// ErrUnknownEffect is returned when a selector or legacy code does not name a constructible effect.
var ErrUnknownEffect = errors.New("unknown effect")

// Kind is the top-level effect family. The numeric values are the positions of the families in the effect menu.
type Kind int

const (
	// KindNone passes the source through unchanged.
	KindNone Kind = iota
	// KindBrightness offsets the color channels.
	KindBrightness
	// KindNegative inverts the color channels.
	KindNegative
	// KindBlur selects one of the BlurVariant filters.
	KindBlur
	// KindSpecial selects one of the SpecialVariant stylizations.
	KindSpecial
)

// Kinds returns every effect family in menu order.
func Kinds() []Kind {
	return []Kind{KindNone, KindBrightness, KindNegative, KindBlur, KindSpecial}
}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBrightness:
		return "Brightness"
	case KindNegative:
		return "Negative"
	case KindBlur:
		return "Blur"
	case KindSpecial:
		return "Special Effect"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared families.
func (k Kind) Valid() bool {
	return k >= KindNone && k <= KindSpecial
}

// BlurVariant selects the blur algorithm. The numeric values are the positions in the blur type menu.
type BlurVariant int

const (
	BlurGaussian BlurVariant = iota
	BlurKawase
	BlurBox
)

// BlurVariants returns every blur variant in menu order.
func BlurVariants() []BlurVariant {
	return []BlurVariant{BlurGaussian, BlurKawase, BlurBox}
}

func (v BlurVariant) String() string {
	switch v {
	case BlurGaussian:
		return "Gaussian"
	case BlurKawase:
		return "Kawase"
	case BlurBox:
		return "Box"
	default:
		return fmt.Sprintf("BlurVariant(%d)", int(v))
	}
}

// Valid reports whether v is one of the declared blur variants.
func (v BlurVariant) Valid() bool {
	return v >= BlurGaussian && v <= BlurBox
}

// SpecialVariant selects the stylization applied by the special effect family.
type SpecialVariant int

const (
	SpecialOilPainting SpecialVariant = iota
)

// SpecialVariants returns every special effect variant in menu order.
func SpecialVariants() []SpecialVariant {
	return []SpecialVariant{SpecialOilPainting}
}

func (v SpecialVariant) String() string {
	switch v {
	case SpecialOilPainting:
		return "Oil Painting"
	default:
		return fmt.Sprintf("SpecialVariant(%d)", int(v))
	}
}

// Valid reports whether v is one of the declared special variants.
func (v SpecialVariant) Valid() bool {
	return v == SpecialOilPainting
}

// Effect is an immutable effect selection. The set of implementations is closed to this package, so a type
// switch over None, Brightness, Negative, Blur and Special is exhaustive.
type Effect interface {
	// Kind returns the effect family.
	//
	// Returns:
	//   - Kind: the family this effect belongs to
	Kind() Kind

	// Code returns the legacy flattened effect code. Families without sub-variants use their family code
	// (0..4). Sub-variants use the reserved ranges: 200+ for blurs and 300+ for special effects.
	//
	// Returns:
	//   - int: the legacy effect code
	Code() int

	// Valid reports whether the effect's variant, if any, is in range.
	//
	// Returns:
	//   - bool: true if the effect can be rendered
	Valid() bool

	String() string

	effect()
}

// None is the pass-through effect.
type None struct{}

// Brightness offsets color channels by the brightness parameter.
type Brightness struct{}

// Negative inverts color channels when the negative toggle is on.
type Negative struct{}

// Blur applies the blur algorithm named by Variant.
type Blur struct {
	Variant BlurVariant
}

// Special applies the stylization named by Variant.
type Special struct {
	Variant SpecialVariant
}

var (
	_ Effect = None{}
	_ Effect = Brightness{}
	_ Effect = Negative{}
	_ Effect = Blur{}
	_ Effect = Special{}
)

const (
	blurCodeBase    = 200
	specialCodeBase = 300
)

func (None) Kind() Kind     { return KindNone }
func (None) Code() int      { return int(KindNone) }
func (None) Valid() bool    { return true }
func (None) String() string { return KindNone.String() }
func (None) effect()        {}

func (Brightness) Kind() Kind     { return KindBrightness }
func (Brightness) Code() int      { return int(KindBrightness) }
func (Brightness) Valid() bool    { return true }
func (Brightness) String() string { return KindBrightness.String() }
func (Brightness) effect()        {}

func (Negative) Kind() Kind     { return KindNegative }
func (Negative) Code() int      { return int(KindNegative) }
func (Negative) Valid() bool    { return true }
func (Negative) String() string { return KindNegative.String() }
func (Negative) effect()        {}

func (b Blur) Kind() Kind     { return KindBlur }
func (b Blur) Code() int      { return blurCodeBase + int(b.Variant) }
func (b Blur) Valid() bool    { return b.Variant.Valid() }
func (b Blur) String() string { return b.Variant.String() + " Blur" }
func (b Blur) effect()        {}

func (s Special) Kind() Kind     { return KindSpecial }
func (s Special) Code() int      { return specialCodeBase + int(s.Variant) }
func (s Special) Valid() bool    { return s.Variant.Valid() }
func (s Special) String() string { return s.Variant.String() }
func (s Special) effect()        {}

// All enumerates every constructible effect: the three plain families, each blur variant and each special variant.
//
// Returns:
//   - []Effect: every effect value in menu order
func All() []Effect {
	all := []Effect{None{}, Brightness{}, Negative{}}
	for _, v := range BlurVariants() {
		all = append(all, Blur{Variant: v})
	}
	for _, v := range SpecialVariants() {
		all = append(all, Special{Variant: v})
	}
	return all
}

// FromSelectors builds the active effect from the three menu selectors. The blur and special selectors are only
// consulted when kind selects their family, so a stale selector for another family is ignored.
//
// Parameters:
//   - kind: the effect family selector
//   - blur: the blur type selector
//   - special: the special effect type selector
//
// Returns:
//   - Effect: the selected effect
//   - error: ErrUnknownEffect if the consulted selector is out of range
func FromSelectors(kind Kind, blur BlurVariant, special SpecialVariant) (Effect, error) {
	switch kind {
	case KindNone:
		return None{}, nil
	case KindBrightness:
		return Brightness{}, nil
	case KindNegative:
		return Negative{}, nil
	case KindBlur:
		if !blur.Valid() {
			return nil, fmt.Errorf("%w: blur variant %d", ErrUnknownEffect, int(blur))
		}
		return Blur{Variant: blur}, nil
	case KindSpecial:
		if !special.Valid() {
			return nil, fmt.Errorf("%w: special variant %d", ErrUnknownEffect, int(special))
		}
		return Special{Variant: special}, nil
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownEffect, int(kind))
	}
}

// FromCode converts a legacy flattened effect code back into an Effect. The bare family codes for Blur (3) and
// Special (4) resolve to the first variant of the family. Codes in the reserved gaps are rejected.
//
// Parameters:
//   - code: the legacy effect code
//
// Returns:
//   - Effect: the decoded effect
//   - error: ErrUnknownEffect if the code does not name an effect
func FromCode(code int) (Effect, error) {
	switch {
	case code >= int(KindNone) && code <= int(KindSpecial):
		return FromSelectors(Kind(code), BlurGaussian, SpecialOilPainting)
	case code >= blurCodeBase && BlurVariant(code-blurCodeBase).Valid():
		return Blur{Variant: BlurVariant(code - blurCodeBase)}, nil
	case code >= specialCodeBase && SpecialVariant(code-specialCodeBase).Valid():
		return Special{Variant: SpecialVariant(code - specialCodeBase)}, nil
	default:
		return nil, fmt.Errorf("%w: code %d", ErrUnknownEffect, code)
	}
}

// Parse accepts the lowercase names used by the command line and config files: "none", "brightness",
// "negative", "gaussian", "kawase", "box" and "oil_painting". The family names "blur" and "special" select the
// first variant of the family.
//
// Parameters:
//   - name: the effect name
//
// Returns:
//   - Effect: the named effect
//   - error: ErrUnknownEffect if the name is not recognized
func Parse(name string) (Effect, error) {
	switch name {
	case "none":
		return None{}, nil
	case "brightness":
		return Brightness{}, nil
	case "negative":
		return Negative{}, nil
	case "blur", "gaussian", "gaussian_blur":
		return Blur{Variant: BlurGaussian}, nil
	case "kawase", "kawase_blur":
		return Blur{Variant: BlurKawase}, nil
	case "box", "box_blur":
		return Blur{Variant: BlurBox}, nil
	case "special", "oil", "oil_painting":
		return Special{Variant: SpecialOilPainting}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, name)
	}
}

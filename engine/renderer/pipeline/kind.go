package pipeline

import "fmt"

// Kind identifies one GPU program. Every renderable effect maps to exactly one Kind. The numeric values are
// stable identifiers shared with saved presets and logs.
type Kind int

const (
	KindNone         Kind = 0
	KindBrightness   Kind = 1
	KindNegative     Kind = 2
	KindGaussianBlur Kind = 3
	KindKawaseBlur   Kind = 4
	KindBoxBlur      Kind = 5
	KindOilPainting  Kind = 100
)

// Kinds returns every pipeline kind in ascending order.
func Kinds() []Kind {
	return []Kind{KindNone, KindBrightness, KindNegative, KindGaussianBlur, KindKawaseBlur, KindBoxBlur, KindOilPainting}
}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBrightness:
		return "Brightness"
	case KindNegative:
		return "Negative"
	case KindGaussianBlur:
		return "GaussianBlur"
	case KindKawaseBlur:
		return "KawaseBlur"
	case KindBoxBlur:
		return "BoxBlur"
	case KindOilPainting:
		return "OilPainting"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ShaderName returns the name the kind's fragment shader declares with @fx:pipeline. KindNone has no shader and
// returns an empty string.
func (k Kind) ShaderName() string {
	switch k {
	case KindBrightness:
		return "brightness"
	case KindNegative:
		return "negative"
	case KindGaussianBlur:
		return "gaussian_blur"
	case KindKawaseBlur:
		return "kawase_blur"
	case KindBoxBlur:
		return "box_blur"
	case KindOilPainting:
		return "oil_painting"
	default:
		return ""
	}
}

// Key returns the cache key used for the kind's GPU pipeline object.
func (k Kind) Key() string {
	return "fx_" + k.ShaderName()
}

// TextureSlot is the binding index of a pipeline's input texture within the texture bind group.
type TextureSlot uint32

const (
	TextureSlotNone         TextureSlot = 0
	TextureSlotBrightness   TextureSlot = 1
	TextureSlotNegative     TextureSlot = 2
	TextureSlotGaussianBlur TextureSlot = 3
	TextureSlotKawaseBlur   TextureSlot = 4
	TextureSlotBoxBlur      TextureSlot = 5
	TextureSlotOilPainting  TextureSlot = 100
)

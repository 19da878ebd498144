// Package parameter holds the registry that maps the host's stable numeric parameter identifiers to their
// semantic role: a clamped scalar, a toggle, an enum selector, or a group header in the parameter UI.
package parameter

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrUnknownParameter is returned when an identifier, field or name is not registered.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrNotScalar is returned when a scalar-only operation is applied to a parameter with another role.
	ErrNotScalar = errors.New("parameter is not a scalar")

	// ErrInvalidRegistry is returned by NewRegistry when the entry table violates a registry invariant.
	ErrInvalidRegistry = errors.New("invalid parameter registry")
)

// ID is the stable numeric key the host uses to address a parameter. Values are part of saved projects and
// must never be renumbered.
type ID uint32

const (
	// NoParent marks a top-level entry.
	NoParent ID = 0

	IDBrightnessClamp             ID = 1
	IDBrightnessSlider            ID = 2
	IDNegativeButton              ID = 10
	IDBlurTypes                   ID = 20
	IDGaussianBlurRadius          ID = 21
	IDKawaseBlurRadius            ID = 22
	IDBoxBlurRadius               ID = 23
	IDOilPaintingRadius           ID = 30
	IDOilPaintingLevelOfIntensity ID = 31
	IDOSCTypes                    ID = 40
	IDEffectTypes                 ID = 222
	IDSpecialEffectGroup          ID = 499
	IDBrightnessGroup             ID = 500
	IDBlurGroup                   ID = 501
	IDSpecialEffectsTypes         ID = 502
	IDOilPaintingGroup            ID = 503
	IDOSCGroup                    ID = 504
)

// Field names a value slot of the plugin state. Each field is bound to at most one registry entry.
type Field int

const (
	FieldEffect Field = iota
	FieldBrightness
	FieldBrightnessClamp
	FieldNegative
	FieldBlurType
	FieldGaussianRadius
	FieldKawaseRadius
	FieldBoxRadius
	FieldSpecialType
	FieldOilPaintingRadius
	FieldOilPaintingIntensity
	FieldOSCType
)

var fieldNames = map[Field]string{
	FieldEffect:               "effect",
	FieldBrightness:           "brightness",
	FieldBrightnessClamp:      "clamp_brightness",
	FieldNegative:             "negative",
	FieldBlurType:             "blur_type",
	FieldGaussianRadius:       "gaussian_radius",
	FieldKawaseRadius:         "kawase_radius",
	FieldBoxRadius:            "box_radius",
	FieldSpecialType:          "special_type",
	FieldOilPaintingRadius:    "oil_painting_radius",
	FieldOilPaintingIntensity: "oil_painting_intensity",
	FieldOSCType:              "osc_type",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Group identifies a collapsible section of the parameter UI.
type Group int

const (
	GroupBrightness Group = iota
	GroupBlur
	GroupSpecialEffect
	GroupOilPainting
	GroupOSC
)

func (g Group) String() string {
	switch g {
	case GroupBrightness:
		return "Brightness"
	case GroupBlur:
		return "Blur"
	case GroupSpecialEffect:
		return "Special Effect"
	case GroupOilPainting:
		return "Oil Painting"
	case GroupOSC:
		return "On-Screen Control"
	default:
		return fmt.Sprintf("Group(%d)", int(g))
	}
}

// RoleKind is the discriminant of a Role.
type RoleKind int

const (
	RoleScalar RoleKind = iota
	RoleToggle
	RoleEnum
	RoleGroup
)

func (k RoleKind) String() string {
	switch k {
	case RoleScalar:
		return "scalar"
	case RoleToggle:
		return "toggle"
	case RoleEnum:
		return "enum"
	case RoleGroup:
		return "group"
	default:
		return fmt.Sprintf("RoleKind(%d)", int(k))
	}
}

// Role is the semantic meaning of a parameter identifier. The implementations are Scalar, Toggle, Enum and
// GroupHeader; the set is closed to this package.
type Role interface {
	// Kind returns the discriminant of the role.
	//
	// Returns:
	//   - RoleKind: scalar, toggle, enum or group
	Kind() RoleKind

	role()
}

// Range is the closed interval and default of a scalar parameter.
type Range struct {
	Min     float64
	Max     float64
	Default float64
}

// Clamp limits v to the range. NaN maps to the default.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return r.Default
	}
	return max(r.Min, min(v, r.Max))
}

// Contains reports whether v lies in the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) valid() bool {
	return !math.IsNaN(r.Min) && !math.IsNaN(r.Max) && r.Min <= r.Max && r.Contains(r.Default)
}

// Scalar is a continuous value stored in Field and clamped to Range.
type Scalar struct {
	Field Field
	Range Range
}

// Toggle is a boolean stored in Field.
type Toggle struct {
	Field   Field
	Default bool
}

// Enum is a selector stored in Field as an index into Options.
type Enum struct {
	Field   Field
	Options []string
	Default int
}

// GroupHeader is a UI grouping node. It carries no value.
type GroupHeader struct {
	Group Group
}

func (Scalar) Kind() RoleKind      { return RoleScalar }
func (Toggle) Kind() RoleKind      { return RoleToggle }
func (Enum) Kind() RoleKind        { return RoleEnum }
func (GroupHeader) Kind() RoleKind { return RoleGroup }
func (Scalar) role()               {}
func (Toggle) role()               {}
func (Enum) role()                 {}
func (GroupHeader) role()          {}

// FieldOf returns the state field bound to a role, or false for group headers.
func FieldOf(r Role) (Field, bool) {
	switch v := r.(type) {
	case Scalar:
		return v.Field, true
	case Toggle:
		return v.Field, true
	case Enum:
		return v.Field, true
	default:
		return 0, false
	}
}

// Entry is one row of the registry.
type Entry struct {
	// ID is the stable host identifier.
	ID ID
	// Name is the machine name used by config files and the command line. Value-bearing entries use their field name.
	Name string
	// Label is the display name shown in the parameter UI.
	Label string
	// Role is the semantic meaning of the identifier.
	Role Role
	// Parent is the group header this entry is nested under, or NoParent.
	Parent ID
}

// clone copies e with its own enum option slice.
func (e Entry) clone() Entry {
	if en, ok := e.Role.(Enum); ok {
		en.Options = slices.Clone(en.Options)
		e.Role = en
	}
	return e
}

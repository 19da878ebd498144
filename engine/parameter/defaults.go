package parameter

// OSC types selectable through IDOSCTypes.
const (
	OSCHidden = iota
	OSCRadiusHandle
)

// Scalar ranges of the built-in registry.
var (
	BrightnessRange           = Range{Min: -1, Max: 1, Default: 0}
	GaussianRadiusRange       = Range{Min: 0, Max: 50, Default: 5}
	KawaseRadiusRange         = Range{Min: 0, Max: 50, Default: 3}
	BoxRadiusRange            = Range{Min: 0, Max: 50, Default: 5}
	OilPaintingRadiusRange    = Range{Min: 0, Max: 20, Default: 4}
	OilPaintingIntensityRange = Range{Min: 1, Max: 64, Default: 20}
)

// DefaultEntries returns the built-in parameter table in UI order. Each call returns fresh slices so callers may
// extend or edit the table before handing it to NewRegistry.
func DefaultEntries() []Entry {
	return []Entry{
		{
			ID: IDEffectTypes, Name: FieldEffect.String(), Label: "Effect",
			Role: Enum{Field: FieldEffect, Options: []string{"None", "Brightness", "Negative", "Blur", "Special Effect"}},
		},

		{ID: IDBrightnessGroup, Name: "brightness_group", Label: "Brightness", Role: GroupHeader{Group: GroupBrightness}},
		{
			ID: IDBrightnessSlider, Name: FieldBrightness.String(), Label: "Brightness",
			Role: Scalar{Field: FieldBrightness, Range: BrightnessRange}, Parent: IDBrightnessGroup,
		},
		{
			ID: IDBrightnessClamp, Name: FieldBrightnessClamp.String(), Label: "Clamp",
			Role: Toggle{Field: FieldBrightnessClamp, Default: true}, Parent: IDBrightnessGroup,
		},
		{
			ID: IDNegativeButton, Name: FieldNegative.String(), Label: "Negative",
			Role: Toggle{Field: FieldNegative, Default: true},
		},

		{ID: IDBlurGroup, Name: "blur_group", Label: "Blur", Role: GroupHeader{Group: GroupBlur}},
		{
			ID: IDBlurTypes, Name: FieldBlurType.String(), Label: "Blur Type",
			Role: Enum{Field: FieldBlurType, Options: []string{"Gaussian", "Kawase", "Box"}}, Parent: IDBlurGroup,
		},
		{
			ID: IDGaussianBlurRadius, Name: FieldGaussianRadius.String(), Label: "Gaussian Radius",
			Role: Scalar{Field: FieldGaussianRadius, Range: GaussianRadiusRange}, Parent: IDBlurGroup,
		},
		{
			ID: IDKawaseBlurRadius, Name: FieldKawaseRadius.String(), Label: "Kawase Radius",
			Role: Scalar{Field: FieldKawaseRadius, Range: KawaseRadiusRange}, Parent: IDBlurGroup,
		},
		{
			ID: IDBoxBlurRadius, Name: FieldBoxRadius.String(), Label: "Box Radius",
			Role: Scalar{Field: FieldBoxRadius, Range: BoxRadiusRange}, Parent: IDBlurGroup,
		},

		{ID: IDSpecialEffectGroup, Name: "special_effect_group", Label: "Special Effect", Role: GroupHeader{Group: GroupSpecialEffect}},
		{
			ID: IDSpecialEffectsTypes, Name: FieldSpecialType.String(), Label: "Special Effect Type",
			Role: Enum{Field: FieldSpecialType, Options: []string{"Oil Painting"}}, Parent: IDSpecialEffectGroup,
		},
		{ID: IDOilPaintingGroup, Name: "oil_painting_group", Label: "Oil Painting", Role: GroupHeader{Group: GroupOilPainting}, Parent: IDSpecialEffectGroup},
		{
			ID: IDOilPaintingRadius, Name: FieldOilPaintingRadius.String(), Label: "Radius",
			Role: Scalar{Field: FieldOilPaintingRadius, Range: OilPaintingRadiusRange}, Parent: IDOilPaintingGroup,
		},
		{
			ID: IDOilPaintingLevelOfIntensity, Name: FieldOilPaintingIntensity.String(), Label: "Level of Intensity",
			Role: Scalar{Field: FieldOilPaintingIntensity, Range: OilPaintingIntensityRange}, Parent: IDOilPaintingGroup,
		},

		{ID: IDOSCGroup, Name: "osc_group", Label: "On-Screen Control", Role: GroupHeader{Group: GroupOSC}},
		{
			ID: IDOSCTypes, Name: FieldOSCType.String(), Label: "OSC Type",
			Role: Enum{Field: FieldOSCType, Options: []string{"Hidden", "Radius Handle"}}, Parent: IDOSCGroup,
		},
	}
}

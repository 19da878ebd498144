package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllEnumeratesEveryVariant(t *testing.T) {
	all := All()
	require.Len(t, all, 7)
	assert.Equal(t, []Effect{
		None{},
		Brightness{},
		Negative{},
		Blur{Variant: BlurGaussian},
		Blur{Variant: BlurKawase},
		Blur{Variant: BlurBox},
		Special{Variant: SpecialOilPainting},
	}, all)

	seen := make(map[Effect]bool)
	for _, e := range all {
		assert.True(t, e.Valid(), e.String())
		assert.False(t, seen[e], "duplicate %v", e)
		seen[e] = true
	}
}

func TestEffectEquality(t *testing.T) {
	assert.Equal(t, Effect(Blur{Variant: BlurKawase}), Effect(Blur{Variant: BlurKawase}))
	assert.NotEqual(t, Effect(Blur{Variant: BlurKawase}), Effect(Blur{Variant: BlurBox}))
	assert.True(t, Effect(None{}) == Effect(None{}))
}

func TestFromSelectors(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		blur    BlurVariant
		special SpecialVariant
		want    Effect
		wantErr bool
	}{
		{"none ignores stale selectors", KindNone, BlurVariant(9), SpecialVariant(9), None{}, false},
		{"brightness", KindBrightness, BlurBox, SpecialOilPainting, Brightness{}, false},
		{"negative", KindNegative, BlurGaussian, SpecialOilPainting, Negative{}, false},
		{"kawase", KindBlur, BlurKawase, SpecialOilPainting, Blur{Variant: BlurKawase}, false},
		{"oil", KindSpecial, BlurVariant(7), SpecialOilPainting, Special{Variant: SpecialOilPainting}, false},
		{"bad blur", KindBlur, BlurVariant(3), SpecialOilPainting, nil, true},
		{"bad special", KindSpecial, BlurGaussian, SpecialVariant(1), nil, true},
		{"bad kind", Kind(5), BlurGaussian, SpecialOilPainting, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromSelectors(tt.kind, tt.blur, tt.special)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownEffect)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLegacyCodes(t *testing.T) {
	want := map[Effect]int{
		None{}:                               0,
		Brightness{}:                         1,
		Negative{}:                           2,
		Blur{Variant: BlurGaussian}:          200,
		Blur{Variant: BlurKawase}:            201,
		Blur{Variant: BlurBox}:               202,
		Special{Variant: SpecialOilPainting}: 300,
	}
	for e, code := range want {
		assert.Equal(t, code, e.Code(), e.String())
		back, err := FromCode(code)
		require.NoError(t, err)
		assert.Equal(t, e, back)
	}

	blur, err := FromCode(3)
	require.NoError(t, err)
	assert.Equal(t, Effect(Blur{Variant: BlurGaussian}), blur)

	for _, code := range []int{-1, 5, 100, 199, 203, 299, 301} {
		_, err := FromCode(code)
		assert.ErrorIs(t, err, ErrUnknownEffect, "code %d", code)
	}
}

func TestParse(t *testing.T) {
	for name, want := range map[string]Effect{
		"none":         None{},
		"brightness":   Brightness{},
		"negative":     Negative{},
		"gaussian":     Blur{Variant: BlurGaussian},
		"kawase":       Blur{Variant: BlurKawase},
		"box":          Blur{Variant: BlurBox},
		"oil_painting": Special{Variant: SpecialOilPainting},
	} {
		got, err := Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := Parse("sepia")
	assert.ErrorIs(t, err, ErrUnknownEffect)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "Kawase Blur", Blur{Variant: BlurKawase}.String())
	assert.Equal(t, "Oil Painting", Special{Variant: SpecialOilPainting}.String())
	assert.Equal(t, "Special Effect", KindSpecial.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

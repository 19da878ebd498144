package state

import (
	"math"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/engine/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreDefaults(t *testing.T) {
	st := NewStore().Snapshot()

	assert.Equal(t, effect.KindNone, st.Kind)
	assert.Equal(t, effect.BlurGaussian, st.Blur)
	assert.Equal(t, 0.0, st.Brightness)
	assert.True(t, st.BrightnessClamp)
	assert.True(t, st.Negative)
	assert.Equal(t, parameter.GaussianRadiusRange.Default, st.GaussianRadius)
	assert.Equal(t, parameter.OilPaintingIntensityRange.Default, st.OilPaintingIntensity)
	assert.Equal(t, parameter.OSCHidden, st.OSCType)
	assert.Equal(t, uint64(0), st.Revision)

	e, err := st.Effect()
	require.NoError(t, err)
	assert.Equal(t, effect.Effect(effect.None{}), e)
}

func TestSetScalarClamps(t *testing.T) {
	s := NewStore()

	tests := []struct {
		field parameter.Field
		in    float64
		want  float64
	}{
		{parameter.FieldGaussianRadius, 12.5, 12.5},
		{parameter.FieldGaussianRadius, 120, 50},
		{parameter.FieldBoxRadius, -4, 0},
		{parameter.FieldBrightness, 3, 1},
		{parameter.FieldOilPaintingIntensity, 0, 1},
		{parameter.FieldKawaseRadius, math.NaN(), parameter.KawaseRadiusRange.Default},
	}
	for _, tt := range tests {
		got, err := s.SetScalar(tt.field, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s <- %g", tt.field, tt.in)

		stored, ok := s.Snapshot().Scalar(tt.field)
		require.True(t, ok)
		assert.Equal(t, tt.want, stored)

		again, err := s.SetScalar(tt.field, got)
		require.NoError(t, err)
		assert.Equal(t, got, again, "clamping an in-range value is a no-op")
	}
}

func TestSetScalarInvalidFieldLeavesStateUnchanged(t *testing.T) {
	s := NewStore()
	before := s.Snapshot()

	_, err := s.SetScalar(parameter.Field(99), 1)
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = s.SetScalar(parameter.FieldNegative, 1)
	assert.ErrorIs(t, err, ErrInvalidField)

	assert.Equal(t, before, s.Snapshot())
}

func TestSetToggle(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetToggle(parameter.FieldNegative, false))
	assert.False(t, s.Snapshot().Negative)

	assert.ErrorIs(t, s.SetToggle(parameter.FieldGaussianRadius, true), ErrInvalidField)
	assert.ErrorIs(t, s.SetToggle(parameter.Field(-1), true), ErrInvalidField)
}

func TestSetEnum(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetEnum(parameter.FieldBlurType, int(effect.BlurBox)))
	assert.Equal(t, effect.BlurBox, s.Snapshot().Blur)

	assert.ErrorIs(t, s.SetEnum(parameter.FieldBlurType, 3), ErrInvalidField)
	assert.ErrorIs(t, s.SetEnum(parameter.FieldBlurType, -1), ErrInvalidField)
	assert.ErrorIs(t, s.SetEnum(parameter.FieldBrightness, 0), ErrInvalidField)
	assert.Equal(t, effect.BlurBox, s.Snapshot().Blur)
}

func TestSetEffectPreservesInactiveParameters(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SetEffect(effect.Blur{Variant: effect.BlurKawase}))
	_, err := s.SetScalar(parameter.FieldKawaseRadius, 7)
	require.NoError(t, err)
	require.NoError(t, s.SetToggle(parameter.FieldBrightnessClamp, false))

	require.NoError(t, s.SetEffect(effect.Special{Variant: effect.SpecialOilPainting}))
	_, err = s.SetScalar(parameter.FieldOilPaintingRadius, 8)
	require.NoError(t, err)

	require.NoError(t, s.SetEffect(effect.Blur{Variant: effect.BlurKawase}))
	st := s.Snapshot()
	assert.Equal(t, 7.0, st.KawaseRadius)
	assert.False(t, st.BrightnessClamp)
	assert.Equal(t, 8.0, st.OilPaintingRadius)

	e, err := st.Effect()
	require.NoError(t, err)
	assert.Equal(t, effect.Effect(effect.Blur{Variant: effect.BlurKawase}), e)
}

func TestSetEffectKeepsOtherVariantSelector(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetEffect(effect.Blur{Variant: effect.BlurBox}))
	require.NoError(t, s.SetEffect(effect.Brightness{}))

	st := s.Snapshot()
	assert.Equal(t, effect.KindBrightness, st.Kind)
	assert.Equal(t, effect.BlurBox, st.Blur)
}

func TestSetEffectRejectsInvalid(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.SetEffect(nil), effect.ErrUnknownEffect)
	assert.ErrorIs(t, s.SetEffect(effect.Blur{Variant: effect.BlurVariant(8)}), effect.ErrUnknownEffect)
	assert.Equal(t, uint64(0), s.Snapshot().Revision)
}

func TestApply(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Apply(parameter.IDEffectTypes, int(effect.KindBlur)))
	require.NoError(t, s.Apply(parameter.IDGaussianBlurRadius, 12.5))
	require.NoError(t, s.Apply(parameter.IDBoxBlurRadius, 9))
	require.NoError(t, s.Apply(parameter.IDNegativeButton, false))
	require.NoError(t, s.Apply(parameter.IDBrightnessSlider, float32(0.5)))

	st := s.Snapshot()
	assert.Equal(t, effect.KindBlur, st.Kind)
	assert.Equal(t, 12.5, st.GaussianRadius)
	assert.Equal(t, 9.0, st.BoxRadius)
	assert.False(t, st.Negative)
	assert.Equal(t, 0.5, st.Brightness)
	assert.Equal(t, uint64(5), st.Revision)
}

func TestApplyErrors(t *testing.T) {
	s := NewStore()
	before := s.Snapshot()

	assert.ErrorIs(t, s.Apply(parameter.ID(12345), 1.0), parameter.ErrUnknownParameter)
	assert.ErrorIs(t, s.Apply(parameter.IDBlurGroup, 1.0), ErrInvalidField)
	assert.ErrorIs(t, s.Apply(parameter.IDGaussianBlurRadius, "ten"), ErrInvalidField)
	assert.ErrorIs(t, s.Apply(parameter.IDNegativeButton, 1), ErrInvalidField)
	assert.ErrorIs(t, s.Apply(parameter.IDBlurTypes, 1.0), ErrInvalidField)

	assert.Equal(t, before, s.Snapshot())
}

func TestApplyAllIsAtomic(t *testing.T) {
	s := NewStore()
	err := s.ApplyAll(
		Change{ID: parameter.IDGaussianBlurRadius, Value: 30.0},
		Change{ID: parameter.IDBlurGroup, Value: 1.0},
	)
	assert.ErrorIs(t, err, ErrInvalidField)
	assert.Equal(t, parameter.GaussianRadiusRange.Default, s.Snapshot().GaussianRadius)
}

func TestReset(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SetEffect(effect.Negative{}))
	_, err := s.SetScalar(parameter.FieldBoxRadius, 40)
	require.NoError(t, err)

	s.Reset()
	st := s.Snapshot()
	assert.Equal(t, effect.KindNone, st.Kind)
	assert.Equal(t, parameter.BoxRadiusRange.Default, st.BoxRadius)
	assert.Equal(t, uint64(3), st.Revision)
}

func TestOnChange(t *testing.T) {
	var seen []uint64
	s := NewStore(WithOnChange(func(st State) { seen = append(seen, st.Revision) }))

	require.NoError(t, s.SetToggle(parameter.FieldNegative, false))
	assert.Error(t, s.SetToggle(parameter.FieldBrightness, false))
	require.NoError(t, s.SetEnum(parameter.FieldOSCType, parameter.OSCRadiusHandle))

	assert.Equal(t, []uint64{1, 2}, seen)
}

func TestWithRegistry(t *testing.T) {
	reg, err := parameter.NewRegistry(parameter.Entry{
		ID:   1,
		Name: "brightness",
		Role: parameter.Scalar{Field: parameter.FieldBrightness, Range: parameter.Range{Min: 0, Max: 2, Default: 1}},
	})
	require.NoError(t, err)

	s := NewStore(WithRegistry(reg))
	assert.Equal(t, 1.0, s.Snapshot().Brightness)
	assert.Same(t, reg, s.Registry())

	_, err = s.SetScalar(parameter.FieldGaussianRadius, 3)
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestUpdateScalar(t *testing.T) {
	s := NewStore()

	v, err := s.UpdateScalar(parameter.FieldKawaseRadius, func(old float64) float64 { return old + 2 })
	require.NoError(t, err)
	assert.Equal(t, parameter.KawaseRadiusRange.Default+2, v)

	v, err = s.UpdateScalar(parameter.FieldKawaseRadius, func(old float64) float64 { return old + 1000 })
	require.NoError(t, err)
	assert.Equal(t, parameter.KawaseRadiusRange.Max, v, "results are clamped")

	before := s.Snapshot()
	_, err = s.UpdateScalar(parameter.FieldNegative, func(old float64) float64 { return old })
	assert.ErrorIs(t, err, ErrInvalidField)
	assert.Equal(t, before, s.Snapshot())
}

func TestUpdateScalarConcurrentIncrements(t *testing.T) {
	s := NewStore()
	_, err := s.SetScalar(parameter.FieldKawaseRadius, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if _, err := s.UpdateScalar(parameter.FieldKawaseRadius, func(old float64) float64 { return old + 0.5 }); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20.0, s.Snapshot().KawaseRadius, "no increment is lost")
}

func TestSnapshotNeverTorn(t *testing.T) {
	s := NewStore()
	_, err := s.SetScalar(parameter.FieldKawaseRadius, parameter.GaussianRadiusRange.Default)
	require.NoError(t, err)
	require.Equal(t, s.Snapshot().GaussianRadius, s.Snapshot().BoxRadius)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 2000 {
			v := float64(i % 50)
			err := s.ApplyAll(
				Change{ID: parameter.IDGaussianBlurRadius, Value: v},
				Change{ID: parameter.IDKawaseBlurRadius, Value: v},
				Change{ID: parameter.IDBoxBlurRadius, Value: v},
			)
			if err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 2000 {
				st := s.Snapshot()
				if st.GaussianRadius != st.KawaseRadius || st.KawaseRadius != st.BoxRadius {
					t.Errorf("torn snapshot at revision %d: %g %g %g", st.Revision, st.GaussianRadius, st.KawaseRadius, st.BoxRadius)
					return
				}
			}
		}()
	}
	wg.Wait()
}

package renderer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/parameter"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-fx/engine/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBackend records every call and echoes the bound texture back from Execute.
type recordingBackend struct {
	mu         sync.Mutex
	registered []pipeline.Kind
	passes     []*recordingPass
	executeErr error
	dropBind   bool
}

func (b *recordingBackend) Type() RendererBackendType { return BackendTypeSoftware }

func (b *recordingBackend) RegisterPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = append(b.registered, p.Kind())
	return nil
}

func (b *recordingBackend) BeginTilePass(p pipeline.Pipeline, width, height uint32) (TilePass, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pass := &recordingPass{backend: b, kind: p.Kind()}
	b.passes = append(b.passes, pass)
	return pass, nil
}

func (b *recordingBackend) Release() {}

type recordingPass struct {
	backend  *recordingBackend
	kind     pipeline.Kind
	slot     pipeline.TextureSlot
	src      common.Tile
	values   []float32
	bound    BoundSet
	executed int
	released int
}

func (p *recordingPass) BindTexture(slot pipeline.TextureSlot, src common.Tile) error {
	p.slot, p.src = slot, src
	if !p.backend.dropBind {
		p.bound.TextureSlot, p.bound.HasTexture = slot, true
	}
	return nil
}

func (p *recordingPass) BindUniforms(values []float32) error {
	p.values = append([]float32(nil), values...)
	p.bound.Uniforms = len(values)
	return nil
}

func (p *recordingPass) Bound() BoundSet { return p.bound }

func (p *recordingPass) Execute(ctx context.Context) (common.Tile, error) {
	p.executed++
	if p.backend.executeErr != nil {
		return common.Tile{}, p.backend.executeErr
	}
	return p.src.Clone(), nil
}

func (p *recordingPass) Release() { p.released++ }

func defaultState() state.State {
	return state.Defaults(parameter.Default())
}

func withEffect(t *testing.T, e effect.Effect) state.State {
	t.Helper()
	st := defaultState()
	st.Kind = e.Kind()
	switch v := e.(type) {
	case effect.Blur:
		st.Blur = v.Variant
	case effect.Special:
		st.Special = v.Variant
	}
	return st
}

func solidTile(w, h uint32, c color.RGBA) common.Tile {
	t := common.NewTile(w, h)
	for i := 0; i < len(t.Pixels); i += common.BytesPerPixel {
		t.Pixels[i], t.Pixels[i+1], t.Pixels[i+2], t.Pixels[i+3] = c.R, c.G, c.B, c.A
	}
	return t
}

func newRecordingRenderer(t *testing.T, b *recordingBackend, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeSoftware, append([]RendererBuilderOption{WithBackend(b)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestNewRendererRegistersEveryEffectPipeline(t *testing.T) {
	b := &recordingBackend{}
	r := newRecordingRenderer(t, b)

	want := []pipeline.Kind{
		pipeline.KindBrightness, pipeline.KindNegative, pipeline.KindGaussianBlur,
		pipeline.KindKawaseBlur, pipeline.KindBoxBlur, pipeline.KindOilPainting,
	}
	assert.ElementsMatch(t, want, b.registered)

	var got []pipeline.Kind
	for _, p := range r.Pipelines() {
		got = append(got, p.Kind())
	}
	assert.Equal(t, want, got)
	assert.Nil(t, r.Pipeline(pipeline.KindNone))
	_, ok := r.Presenter()
	assert.False(t, ok)
}

func TestRenderTileBindsDeclaredLayout(t *testing.T) {
	b := &recordingBackend{}
	r := newRecordingRenderer(t, b)
	src := solidTile(4, 2, color.RGBA{10, 20, 30, 255})
	bounds := image.Rect(8, 8, 12, 10)

	st := withEffect(t, effect.Blur{Variant: effect.BlurGaussian})
	st.GaussianRadius = 12.5
	out, err := r.RenderTile(context.Background(), src, st, bounds)
	require.NoError(t, err)
	assert.Equal(t, bounds, out.Bounds)

	require.Len(t, b.passes, 1)
	pass := b.passes[0]
	assert.Equal(t, pipeline.KindGaussianBlur, pass.kind)
	assert.Equal(t, pipeline.TextureSlotGaussianBlur, pass.slot)
	assert.Equal(t, []float32{12.5, 0.25, 0.5}, pass.values)
	assert.Equal(t, 1, pass.executed)
	assert.Equal(t, 1, pass.released)
}

func TestRenderTileNonePassesThrough(t *testing.T) {
	b := &recordingBackend{}
	r := newRecordingRenderer(t, b)
	src := solidTile(2, 2, color.RGBA{1, 2, 3, 4})

	out, err := r.RenderTile(context.Background(), src, withEffect(t, effect.None{}), image.Rect(0, 0, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, src.Pixels, out.Pixels)
	assert.Empty(t, b.passes)

	out.Pixels[0] = 99
	assert.Equal(t, byte(1), src.Pixels[0])
}

func TestRenderTileResolutionFailureSkipsBackend(t *testing.T) {
	b := &recordingBackend{}
	var phases []Phase
	r := newRecordingRenderer(t, b, WithPhaseObserver(func(_ image.Rectangle, _, to Phase) {
		phases = append(phases, to)
	}))

	st := defaultState()
	st.Kind = effect.KindBlur
	st.Blur = effect.BlurVariant(9)
	_, err := r.RenderTile(context.Background(), solidTile(1, 1, color.RGBA{}), st, image.Rect(0, 0, 1, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrUnresolvablePipeline)
	assert.Empty(t, b.passes)
	assert.Equal(t, []Phase{PhaseResolving, PhaseFailed}, phases)
}

func TestRenderTilePhases(t *testing.T) {
	b := &recordingBackend{}
	type transition struct{ from, to Phase }
	var got []transition
	r := newRecordingRenderer(t, b, WithPhaseObserver(func(_ image.Rectangle, from, to Phase) {
		got = append(got, transition{from, to})
	}))

	_, err := r.RenderTile(context.Background(), solidTile(1, 1, color.RGBA{}), withEffect(t, effect.Negative{}), image.Rect(0, 0, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []transition{
		{PhaseIdle, PhaseResolving},
		{PhaseResolving, PhaseBinding},
		{PhaseBinding, PhaseExecuting},
		{PhaseExecuting, PhaseDone},
	}, got)
}

func TestRenderTileBackendFailure(t *testing.T) {
	boom := errors.New("device lost")
	b := &recordingBackend{executeErr: boom}
	r := newRecordingRenderer(t, b)

	_, err := r.RenderTile(context.Background(), solidTile(1, 1, color.RGBA{}), withEffect(t, effect.Brightness{}), image.Rect(0, 0, 1, 1))
	var gpuErr *GPUSubmissionError
	require.ErrorAs(t, err, &gpuErr)
	assert.Equal(t, pipeline.KindBrightness, gpuErr.Kind)
	assert.Equal(t, "execute", gpuErr.Op)
	assert.ErrorIs(t, err, boom)

	require.Len(t, b.passes, 1)
	assert.Equal(t, 1, b.passes[0].executed, "backend failures are not retried")
	assert.Equal(t, 1, b.passes[0].released)
}

func TestRenderTileNeverExecutesPartialBind(t *testing.T) {
	b := &recordingBackend{dropBind: true}
	r := newRecordingRenderer(t, b)

	_, err := r.RenderTile(context.Background(), solidTile(1, 1, color.RGBA{}), withEffect(t, effect.Negative{}), image.Rect(0, 0, 1, 1))
	assert.ErrorIs(t, err, ErrIncompleteBind)
	require.Len(t, b.passes, 1)
	assert.Zero(t, b.passes[0].executed)
	assert.Equal(t, 1, b.passes[0].released)
}

func TestRenderTileValidatesInput(t *testing.T) {
	b := &recordingBackend{}
	r := newRecordingRenderer(t, b)
	st := withEffect(t, effect.Negative{})

	_, err := r.RenderTile(context.Background(), solidTile(2, 2, color.RGBA{}), st, image.Rect(0, 0, 3, 2))
	assert.ErrorIs(t, err, ErrTileBounds)

	_, err = r.RenderTile(context.Background(), common.Tile{Width: 2, Height: 2}, st, image.Rect(0, 0, 2, 2))
	assert.ErrorIs(t, err, common.ErrInvalidTile)
	assert.Empty(t, b.passes)
}

func newSoftwareRenderer(t *testing.T, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeSoftware, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestSoftwareNegative(t *testing.T) {
	r := newSoftwareRenderer(t)
	st := withEffect(t, effect.Negative{})
	st.Negative = true

	out, err := r.RenderTile(context.Background(), solidTile(1, 1, color.RGBA{10, 20, 30, 255}), st, image.Rect(0, 0, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []byte{245, 235, 225, 255}, out.Pixels)

	st.Negative = false
	out, err = r.RenderTile(context.Background(), solidTile(1, 1, color.RGBA{10, 20, 30, 255}), st, image.Rect(0, 0, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 20, 30, 255}, out.Pixels)
}

func TestSoftwareBrightness(t *testing.T) {
	r := newSoftwareRenderer(t)
	cases := []struct {
		name       string
		brightness float64
		clamp      bool
		src        color.RGBA
		want       []byte
	}{
		{"opaque", 0.2, false, color.RGBA{100, 100, 100, 255}, []byte{151, 151, 151, 255}},
		{"darken floors at zero", -1, false, color.RGBA{100, 0, 255, 255}, []byte{0, 0, 0, 255}},
		{"premultiplied unclamped", 1, false, color.RGBA{100, 100, 100, 128}, []byte{228, 228, 228, 128}},
		{"premultiplied clamped to alpha", 1, true, color.RGBA{100, 100, 100, 128}, []byte{128, 128, 128, 128}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := withEffect(t, effect.Brightness{})
			st.Brightness, st.BrightnessClamp = tc.brightness, tc.clamp
			out, err := r.RenderTile(context.Background(), solidTile(1, 1, tc.src), st, image.Rect(0, 0, 1, 1))
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Pixels)
		})
	}
}

func TestSoftwareZeroRadiusIsIdentity(t *testing.T) {
	r := newSoftwareRenderer(t)
	src := gradient(5, 4)
	for _, e := range []effect.Effect{
		effect.Blur{Variant: effect.BlurGaussian},
		effect.Blur{Variant: effect.BlurKawase},
		effect.Blur{Variant: effect.BlurBox},
		effect.Special{Variant: effect.SpecialOilPainting},
	} {
		st := withEffect(t, e)
		st.GaussianRadius, st.KawaseRadius, st.BoxRadius, st.OilPaintingRadius = 0, 0, 0, 0
		tile := common.TileFromRGBA(src, src.Bounds())
		out, err := r.RenderTile(context.Background(), tile, st, src.Bounds())
		require.NoError(t, err, e.String())
		assert.Equal(t, tile.Pixels, out.Pixels, e.String())
	}
}

func TestSoftwareOilPaintingPicksDominantLevel(t *testing.T) {
	r := newSoftwareRenderer(t)
	// A 3x3 tile with one bright pixel in the centre: the dark level dominates every window.
	src := solidTile(3, 3, color.RGBA{20, 20, 20, 255})
	center := 4 * common.BytesPerPixel
	copy(src.Pixels[center:center+4], []byte{250, 250, 250, 255})

	st := withEffect(t, effect.Special{Variant: effect.SpecialOilPainting})
	st.OilPaintingRadius, st.OilPaintingIntensity = 1, 4
	out, err := r.RenderTile(context.Background(), src, st, image.Rect(0, 0, 3, 3))
	require.NoError(t, err)
	assert.Equal(t, solidTile(3, 3, color.RGBA{20, 20, 20, 255}).Pixels, out.Pixels)
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), uint8((x + y) * 7), 255})
		}
	}
	return img
}

func TestRenderImageTilesAreSeamless(t *testing.T) {
	src := gradient(37, 23)
	whole := newSoftwareRenderer(t, WithTileSize(0))
	tiled := newSoftwareRenderer(t, WithTileSize(8), WithWorkers(3))

	for _, tc := range []struct {
		name string
		st   func() state.State
	}{
		{"gaussian", func() state.State {
			st := withEffect(t, effect.Blur{Variant: effect.BlurGaussian})
			st.GaussianRadius = 3
			return st
		}},
		{"kawase", func() state.State {
			st := withEffect(t, effect.Blur{Variant: effect.BlurKawase})
			st.KawaseRadius = 2.5
			return st
		}},
		{"box", func() state.State {
			st := withEffect(t, effect.Blur{Variant: effect.BlurBox})
			st.BoxRadius = 2
			return st
		}},
		{"oil", func() state.State {
			st := withEffect(t, effect.Special{Variant: effect.SpecialOilPainting})
			st.OilPaintingRadius, st.OilPaintingIntensity = 2, 8
			return st
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			want, err := whole.RenderImage(context.Background(), src, tc.st())
			require.NoError(t, err)
			got, err := tiled.RenderImage(context.Background(), src, tc.st())
			require.NoError(t, err)
			assert.Equal(t, src.Bounds(), got.Bounds())
			assert.Equal(t, want.Pix, got.Pix)
		})
	}
}

func TestRenderImageReportsTileFailure(t *testing.T) {
	b := &recordingBackend{executeErr: errors.New("lost")}
	r := newRecordingRenderer(t, b, WithTileSize(4))

	_, err := r.RenderImage(context.Background(), gradient(8, 8), withEffect(t, effect.Negative{}))
	var gpuErr *GPUSubmissionError
	assert.ErrorAs(t, err, &gpuErr)
}

func TestRenderImageCancelled(t *testing.T) {
	r := newSoftwareRenderer(t, WithTileSize(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.RenderImage(ctx, gradient(8, 8), withEffect(t, effect.Negative{}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSoftwareBackendRejectsUnregistered(t *testing.T) {
	b := newSoftwareRendererBackend()
	layout, ok := pipeline.DefaultResolver().Layout(pipeline.KindNegative)
	require.True(t, ok)
	p := pipeline.NewPipeline(layout)

	_, err := b.BeginTilePass(p, 1, 1)
	assert.Error(t, err)

	require.NoError(t, b.RegisterPipeline(p))
	pass, err := b.BeginTilePass(p, 1, 1)
	require.NoError(t, err)
	defer pass.Release()
	assert.Error(t, pass.BindTexture(pipeline.TextureSlotBrightness, solidTile(1, 1, color.RGBA{})))
	assert.False(t, pass.Bound().HasTexture)

	_, err = b.BeginTilePass(p, 0, 1)
	assert.Error(t, err)
}

func TestParseBackendType(t *testing.T) {
	for in, want := range map[string]RendererBackendType{
		"wgpu": BackendTypeWGPU, "GPU": BackendTypeWGPU, "software": BackendTypeSoftware, " cpu ": BackendTypeSoftware,
	} {
		got, err := ParseBackendType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseBackendType("metal")
	assert.Error(t, err)
	assert.Equal(t, "software", BackendTypeSoftware.String())
	assert.Equal(t, "executing", PhaseExecuting.String())
}

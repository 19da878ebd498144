package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/parallel"
)

// maxOilLevels bounds the intensity histogram, matching MAX_LEVELS in oil_painting.wgsl.
const maxOilLevels = 64

// kernel renders src with the uniform values of one pass. uniform looks a value up by source so kernels do not
// depend on slot order.
type kernel func(src *image.RGBA, uniform func(pipeline.UniformSource) float64) *image.RGBA

var softwareKernels = map[pipeline.Kind]kernel{
	pipeline.KindBrightness:   brightnessKernel,
	pipeline.KindNegative:     negativeKernel,
	pipeline.KindGaussianBlur: gaussianKernel,
	pipeline.KindKawaseBlur:   kawaseKernel,
	pipeline.KindBoxBlur:      boxKernel,
	pipeline.KindOilPainting:  oilPaintingKernel,
}

type softwareRendererBackendImpl struct {
	mu         *sync.RWMutex
	registered map[pipeline.Kind]bool
}

var _ RendererBackend = &softwareRendererBackendImpl{}

func newSoftwareRendererBackend() RendererBackend {
	return &softwareRendererBackendImpl{
		mu:         &sync.RWMutex{},
		registered: make(map[pipeline.Kind]bool),
	}
}

func (b *softwareRendererBackendImpl) Type() RendererBackendType {
	return BackendTypeSoftware
}

func (b *softwareRendererBackendImpl) RegisterPipeline(p pipeline.Pipeline) error {
	if _, ok := softwareKernels[p.Kind()]; !ok {
		return fmt.Errorf("software backend has no kernel for %s", p.Kind())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered[p.Kind()] = true
	return nil
}

func (b *softwareRendererBackendImpl) BeginTilePass(p pipeline.Pipeline, width, height uint32) (TilePass, error) {
	b.mu.RLock()
	ok := b.registered[p.Kind()]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("render pipeline %q not registered", p.PipelineKey())
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("tile pass %q: zero size %dx%d", p.PipelineKey(), width, height)
	}
	return &softwareTilePass{p: p, width: width, height: height}, nil
}

func (b *softwareRendererBackendImpl) Release() {}

type softwareTilePass struct {
	p             pipeline.Pipeline
	width, height uint32
	src           common.Tile
	values        []float32
	bound         BoundSet
	released      bool
}

func (t *softwareTilePass) BindTexture(slot pipeline.TextureSlot, src common.Tile) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if src.Width != t.width || src.Height != t.height {
		return fmt.Errorf("source %dx%d does not match pass %dx%d", src.Width, src.Height, t.width, t.height)
	}
	if want := t.p.Layout().TextureSlot; slot != want {
		return fmt.Errorf("pipeline %q declares no texture at slot %d", t.p.PipelineKey(), slot)
	}
	t.src = src
	t.bound.TextureSlot = slot
	t.bound.HasTexture = true
	return nil
}

func (t *softwareTilePass) BindUniforms(values []float32) error {
	t.values = append(t.values[:0], values...)
	t.bound.Uniforms = len(values)
	return nil
}

func (t *softwareTilePass) Bound() BoundSet {
	return t.bound
}

func (t *softwareTilePass) Execute(ctx context.Context) (common.Tile, error) {
	if t.released {
		return common.Tile{}, fmt.Errorf("tile pass %q already released", t.p.PipelineKey())
	}
	if !t.bound.HasTexture {
		return common.Tile{}, fmt.Errorf("tile pass %q: no texture bound", t.p.PipelineKey())
	}
	k := softwareKernels[t.p.Kind()]

	layout := t.p.Layout().Uniforms
	uniform := func(src pipeline.UniformSource) float64 {
		for _, u := range layout {
			if u.Source == src && u.Slot < len(t.values) {
				return float64(t.values[u.Slot])
			}
		}
		return 0
	}

	src := &image.RGBA{
		Pix:    t.src.Pixels,
		Stride: int(t.width) * common.BytesPerPixel,
		Rect:   image.Rect(0, 0, int(t.width), int(t.height)),
	}
	dst := k(src, uniform)
	if err := ctx.Err(); err != nil {
		return common.Tile{}, err
	}

	out := common.NewTile(t.width, t.height)
	copy(out.Pixels, clone.AsRGBA(dst).Pix)
	return out, nil
}

func (t *softwareTilePass) Release() {
	t.released = true
	t.src = common.Tile{}
	t.values = nil
}

func unorm(v float64) uint8 {
	return uint8(math.Round(common.Clamp(v, 0, 1) * 255))
}

func brightnessKernel(src *image.RGBA, uniform func(pipeline.UniformSource) float64) *image.RGBA {
	brightness := uniform(pipeline.SourceBrightness)
	clampToAlpha := uniform(pipeline.SourceBrightnessClamp) > 0.5
	return adjust.Apply(src, func(c color.RGBA) color.RGBA {
		a := float64(c.A) / 255
		hi := 1.0
		if clampToAlpha {
			hi = a
		}
		channel := func(v uint8) uint8 {
			return unorm(common.Clamp(float64(v)/255+brightness*a, 0, hi))
		}
		return color.RGBA{R: channel(c.R), G: channel(c.G), B: channel(c.B), A: c.A}
	})
}

func negativeKernel(src *image.RGBA, uniform func(pipeline.UniformSource) float64) *image.RGBA {
	if uniform(pipeline.SourceNegative) <= 0.5 {
		return clone.AsRGBA(src)
	}
	return adjust.Apply(src, func(c color.RGBA) color.RGBA {
		return color.RGBA{R: c.A - min(c.R, c.A), G: c.A - min(c.G, c.A), B: c.A - min(c.B, c.A), A: c.A}
	})
}

func gaussianKernel(src *image.RGBA, uniform func(pipeline.UniformSource) float64) *image.RGBA {
	return blur.Gaussian(src, uniform(pipeline.SourceGaussianRadius))
}

func boxKernel(src *image.RGBA, uniform func(pipeline.UniformSource) float64) *image.RGBA {
	// Whole-texel radius so the kernel side is 2r+1 like the shader's.
	return blur.Box(src, math.Ceil(uniform(pipeline.SourceBoxRadius)))
}

// texel returns the clamped texel at (x, y) as normalized floats.
func texel(src *image.RGBA, x, y int) [4]float64 {
	b := src.Rect
	x = common.Clamp(x, b.Min.X, b.Max.X-1)
	y = common.Clamp(y, b.Min.Y, b.Max.Y-1)
	i := src.PixOffset(x, y)
	return [4]float64{
		float64(src.Pix[i]) / 255,
		float64(src.Pix[i+1]) / 255,
		float64(src.Pix[i+2]) / 255,
		float64(src.Pix[i+3]) / 255,
	}
}

// bilinear samples src at a fractional texel position with edge clamping, the way a linear clamp-to-edge
// sampler does.
func bilinear(src *image.RGBA, fx, fy float64) [4]float64 {
	x0, y0 := math.Floor(fx), math.Floor(fy)
	tx, ty := fx-x0, fy-y0
	ix, iy := int(x0), int(y0)
	a, b := texel(src, ix, iy), texel(src, ix+1, iy)
	c, d := texel(src, ix, iy+1), texel(src, ix+1, iy+1)
	var out [4]float64
	for i := range out {
		top := a[i]*(1-tx) + b[i]*tx
		bottom := c[i]*(1-tx) + d[i]*tx
		out[i] = top*(1-ty) + bottom*ty
	}
	return out
}

func kawaseKernel(src *image.RGBA, uniform func(pipeline.UniformSource) float64) *image.RGBA {
	n := int(math.Ceil(uniform(pipeline.SourceKawaseRadius)))
	if n <= 0 {
		return clone.AsRGBA(src)
	}
	b := src.Rect
	dst := image.NewRGBA(b)
	parallel.Line(b.Dy(), func(start, end int) {
		for y := b.Min.Y + start; y < b.Min.Y+end; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				sum := texel(src, x, y)
				for i := 0; i < n; i++ {
					o := float64(i) + 0.5
					for _, s := range [4][2]float64{{o, o}, {-o, o}, {o, -o}, {-o, -o}} {
						c := bilinear(src, float64(x)+s[0], float64(y)+s[1])
						for ch := range sum {
							sum[ch] += c[ch]
						}
					}
				}
				div := float64(1 + 4*n)
				j := dst.PixOffset(x, y)
				for ch := range sum {
					dst.Pix[j+ch] = unorm(sum[ch] / div)
				}
			}
		}
	})
	return dst
}

func oilPaintingKernel(src *image.RGBA, uniform func(pipeline.UniformSource) float64) *image.RGBA {
	r := int(math.Ceil(uniform(pipeline.SourceOilPaintingRadius)))
	levels := common.Clamp(int(uniform(pipeline.SourceOilPaintingIntensity)), 1, maxOilLevels)
	if r <= 0 {
		return clone.AsRGBA(src)
	}
	b := src.Rect
	dst := image.NewRGBA(b)
	parallel.Line(b.Dy(), func(start, end int) {
		var counts [maxOilLevels]int
		var sums [maxOilLevels][4]float64
		for y := b.Min.Y + start; y < b.Min.Y+end; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				clear(counts[:levels])
				clear(sums[:levels])
				for dy := -r; dy <= r; dy++ {
					for dx := -r; dx <= r; dx++ {
						c := texel(src, x+dx, y+dy)
						level := min(int((c[0]+c[1]+c[2])/3*float64(levels)), levels-1)
						counts[level]++
						for ch := range c {
							sums[level][ch] += c[ch]
						}
					}
				}
				best := 0
				for i := 1; i < levels; i++ {
					if counts[i] > counts[best] {
						best = i
					}
				}
				j := dst.PixOffset(x, y)
				for ch := 0; ch < 4; ch++ {
					dst.Pix[j+ch] = unorm(sums[best][ch] / float64(counts[best]))
				}
			}
		}
	})
	return dst
}

package renderer

import (
	"errors"
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/draw"
)

// ErrNoSurface is returned when presenting through a renderer that was created without a window surface.
var ErrNoSurface = errors.New("renderer has no surface")

// Presenter shows rendered frames in a window.
type Presenter interface {
	// ConfigureSurface sizes the swapchain. It must be called before the first Present and whenever the window
	// is resized.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets how frames are delivered to the display. A call to ConfigureSurface is required
	// afterwards for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Present scales frame to the surface and displays it.
	//
	// Parameters:
	//   - frame: the rendered frame
	//
	// Returns:
	//   - error: ErrNoSurface, or an error if the swapchain texture cannot be acquired
	Present(frame *image.RGBA) error
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = capabilities.Formats[0]
	b.surfaceWidth, b.surfaceHeight = uint32(width), uint32(height)

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
		Format:      b.surfaceFormat,
		Width:       b.surfaceWidth,
		Height:      b.surfaceHeight,
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) Present(frame *image.RGBA) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil {
		return ErrNoSurface
	}
	if b.surfaceWidth == 0 || b.surfaceHeight == 0 {
		return fmt.Errorf("present: surface not configured")
	}
	if b.surfaceTexture != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	scaled := image.NewRGBA(image.Rect(0, 0, int(b.surfaceWidth), int(b.surfaceHeight)))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	if b.surfaceFormat == wgpu.TextureFormatBGRA8Unorm || b.surfaceFormat == wgpu.TextureFormatBGRA8UnormSrgb {
		swapRedBlue(scaled.Pix)
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	b.surfaceTexture = surfaceTexture

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  surfaceTexture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		scaled.Pix,
		&wgpu.TextureDataLayout{
			BytesPerRow:  b.surfaceWidth * common.BytesPerPixel,
			RowsPerImage: b.surfaceHeight,
		},
		&wgpu.Extent3D{Width: b.surfaceWidth, Height: b.surfaceHeight, DepthOrArrayLayers: 1},
	)

	b.surface.Present()
	b.surfaceTexture.Release()
	b.surfaceTexture = nil
	return nil
}

// swapRedBlue converts RGBA8 pixels to BGRA8 in place.
func swapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += common.BytesPerPixel {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

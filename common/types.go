// package common contains common types that are used throughout this module. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"errors"
	"fmt"
	"image"

	"github.com/cogentcore/webgpu/wgpu"
)

// BytesPerPixel is the stride of a single RGBA8 texel in a Tile.
const BytesPerPixel = 4

// ErrInvalidTile is returned when a Tile's pixel buffer does not match its dimensions.
var ErrInvalidTile = errors.New("invalid tile")

// Tile holds RGBA8 pixel data for a rectangular region of a frame. It is the unit of work handed to the
// tile renderer and the unit of texture data uploaded to the GPU.
type Tile struct {
	// Pixels is the byte slice representing the pixel data for the tile in premultiplied RGBA format, with 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the tile in pixels.
	Width uint32
	// Height is the height of the tile in pixels.
	Height uint32
	// Bounds is the placement of this tile within the full frame. A zero rectangle means the tile is the whole frame.
	Bounds image.Rectangle
}

// NewTile allocates a zeroed Tile of the given size placed at the frame origin.
//
// Parameters:
//   - width: the width of the tile in pixels
//   - height: the height of the tile in pixels
//
// Returns:
//   - Tile: the allocated tile
func NewTile(width, height uint32) Tile {
	return Tile{
		Pixels: make([]byte, int(width)*int(height)*BytesPerPixel),
		Width:  width,
		Height: height,
		Bounds: image.Rect(0, 0, int(width), int(height)),
	}
}

// TileFromRGBA copies the pixels of the given region of img into a new Tile. The region is clipped to the image bounds.
//
// Parameters:
//   - img: the source image
//   - region: the region of img to copy
//
// Returns:
//   - Tile: the copied tile, whose Bounds is the clipped region
func TileFromRGBA(img *image.RGBA, region image.Rectangle) Tile {
	region = region.Intersect(img.Bounds())
	t := NewTile(uint32(region.Dx()), uint32(region.Dy()))
	t.Bounds = region
	rowBytes := region.Dx() * BytesPerPixel
	for y := 0; y < region.Dy(); y++ {
		src := img.PixOffset(region.Min.X, region.Min.Y+y)
		copy(t.Pixels[y*rowBytes:(y+1)*rowBytes], img.Pix[src:src+rowBytes])
	}
	return t
}

// Validate checks that the pixel buffer length matches the tile's dimensions.
//
// Returns:
//   - error: ErrInvalidTile wrapped with details if the tile is malformed
func (t Tile) Validate() error {
	if t.Width == 0 || t.Height == 0 {
		return fmt.Errorf("%w: zero dimension %dx%d", ErrInvalidTile, t.Width, t.Height)
	}
	if want := int(t.Width) * int(t.Height) * BytesPerPixel; len(t.Pixels) != want {
		return fmt.Errorf("%w: have %d bytes, want %d for %dx%d", ErrInvalidTile, len(t.Pixels), want, t.Width, t.Height)
	}
	if !t.Bounds.Empty() && (t.Bounds.Dx() != int(t.Width) || t.Bounds.Dy() != int(t.Height)) {
		return fmt.Errorf("%w: bounds %v do not match %dx%d", ErrInvalidTile, t.Bounds, t.Width, t.Height)
	}
	return nil
}

// Clone returns a deep copy of the tile.
func (t Tile) Clone() Tile {
	c := t
	c.Pixels = make([]byte, len(t.Pixels))
	copy(c.Pixels, t.Pixels)
	return c
}

// RGBA wraps the tile's pixels in an *image.RGBA without copying. The image origin is the tile's Bounds.Min.
func (t Tile) RGBA() *image.RGBA {
	r := t.Bounds
	if r.Empty() {
		r = image.Rect(0, 0, int(t.Width), int(t.Height))
	}
	return &image.RGBA{
		Pix:    t.Pixels,
		Stride: int(t.Width) * BytesPerPixel,
		Rect:   r,
	}
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// This is used by the wgpu backend to stage sampler data before creating the GPU sampler and bind group.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// TileSamplerData is the sampler configuration used for effect input textures. Edges clamp so kernels that read
// past the tile border repeat the edge texel instead of wrapping to the opposite side.
var TileSamplerData = SamplerStagingData{
	AddressModeU:  wgpu.AddressModeClampToEdge,
	AddressModeV:  wgpu.AddressModeClampToEdge,
	AddressModeW:  wgpu.AddressModeClampToEdge,
	MagFilter:     wgpu.FilterModeLinear,
	MinFilter:     wgpu.FilterModeLinear,
	MipmapFilter:  wgpu.MipmapFilterModeNearest,
	LodMaxClamp:   1,
	MaxAnisotropy: 1,
}

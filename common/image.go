package common

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage decodes the image file at path into a premultiplied RGBA image with its origin at (0, 0).
// PNG, JPEG, BMP, TIFF and WebP inputs are supported.
//
// Parameters:
//   - path: the file path of the image to decode
//
// Returns:
//   - *image.RGBA: the decoded image
//   - error: an error if the file cannot be opened or decoded
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts any image into an *image.RGBA whose bounds start at the origin and whose rows are packed
// (Stride == 4*Dx), so Pix can be written out as one buffer. Images already in that form are returned as is.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// SaveImage encodes img to path, choosing the encoder from the file extension (.png, .jpg/.jpeg, .bmp, .tif/.tiff).
//
// Parameters:
//   - path: the destination file path
//   - img: the image to encode
//
// Returns:
//   - error: an error if the extension is unsupported or encoding fails
func SaveImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image %s: %w", path, err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		err = png.Encode(f, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		err = bmp.Encode(f, img)
	case ".tif", ".tiff":
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported image extension %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode image %s: %w", path, err)
	}
	return nil
}

// FitWithin scales img down with bilinear filtering so that it fits in maxWidth x maxHeight, keeping the aspect
// ratio. Images that already fit are returned unchanged.
//
// Parameters:
//   - img: the image to scale
//   - maxWidth: the maximum output width in pixels
//   - maxHeight: the maximum output height in pixels
//
// Returns:
//   - *image.RGBA: the scaled image, or img itself if no scaling was needed
func FitWithin(img *image.RGBA, maxWidth, maxHeight int) *image.RGBA {
	b := img.Bounds()
	if maxWidth <= 0 || maxHeight <= 0 || (b.Dx() <= maxWidth && b.Dy() <= maxHeight) {
		return img
	}
	scale := min(float64(maxWidth)/float64(b.Dx()), float64(maxHeight)/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

package common

import (
	"cmp"
	"image"
)

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Clamp limits v to the closed interval [lo, hi].
//
// Parameters:
//   - v: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - T: v limited to [lo, hi]
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// BoolToFloat converts a toggle to the 0.0/1.0 encoding used for shader uniforms.
func BoolToFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// SplitRect partitions r into a row-major grid of tiles no larger than size x size. Edge tiles are smaller when
// r is not a multiple of size.
//
// Parameters:
//   - r: the rectangle to partition
//   - size: the maximum tile edge length in pixels, values <= 0 return r as a single tile
//
// Returns:
//   - []image.Rectangle: the tile rectangles in row-major order
func SplitRect(r image.Rectangle, size int) []image.Rectangle {
	if r.Empty() {
		return nil
	}
	if size <= 0 {
		return []image.Rectangle{r}
	}
	tiles := make([]image.Rectangle, 0, ((r.Dx()+size-1)/size)*((r.Dy()+size-1)/size))
	for y := r.Min.Y; y < r.Max.Y; y += size {
		for x := r.Min.X; x < r.Max.X; x += size {
			tiles = append(tiles, image.Rect(x, y, min(x+size, r.Max.X), min(y+size, r.Max.Y)))
		}
	}
	return tiles
}

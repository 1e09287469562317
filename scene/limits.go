package scene

import (
	"errors"
	"fmt"
	"math"
)

// MaxPixels caps any bitmap allocated for a document: decoded images,
// rasterized svgs, render surfaces and snapshots. 1<<26 pixels is 256 MiB of RGBA.
const MaxPixels = 1 << 26

// ErrTooLarge is returned when a size exceeds MaxPixels or is not a finite,
// non-negative number.
var ErrTooLarge = errors.New("scene: bitmap too large")

// PixelSize rounds w and h up to whole pixels and checks them against limit.
// limit <= 0 means MaxPixels.
func PixelSize(w, h float64, limit int64) (int, int, error) {
	if limit <= 0 {
		limit = MaxPixels
	}
	if math.IsNaN(w) || math.IsNaN(h) || w < 0 || h < 0 || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return 0, 0, fmt.Errorf("%w: %gx%g", ErrTooLarge, w, h)
	}
	cw, ch := math.Ceil(w), math.Ceil(h)
	if cw*ch > float64(limit) || cw > float64(limit) || ch > float64(limit) {
		return 0, 0, fmt.Errorf("%w: %gx%g exceeds %d pixels", ErrTooLarge, w, h, limit)
	}
	return int(cw), int(ch), nil
}

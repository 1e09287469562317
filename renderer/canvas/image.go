package canvasrenderer

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// cropImage returns the w×h region of src starting at (cropX, cropY).
// A region equal to the whole bitmap is returned as is.
func cropImage(src image.Image, cropX, cropY, w, h float64) image.Image {
	b := src.Bounds()
	x0, y0 := b.Min.X+int(math.Round(cropX)), b.Min.Y+int(math.Round(cropY))
	rw, rh := int(math.Ceil(w)), int(math.Ceil(h))
	if rw <= 0 || rh <= 0 {
		return src
	}
	region := image.Rect(x0, y0, x0+rw, y0+rh).Intersect(b)
	if region == b {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, rw, rh))
	if !region.Empty() {
		draw.Copy(dst, region.Min.Sub(image.Pt(x0, y0)), src, region, draw.Src, nil)
	}
	return dst
}

// fade multiplies the alpha of src by alpha.
func fade(src image.Image, alpha float64) image.Image {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(clamp01(alpha) * 255))})
	draw.DrawMask(dst, dst.Bounds(), src, b.Min, mask, image.Point{}, draw.Over)
	return dst
}

// scaleImage resamples src to w×h pixels.
func scaleImage(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

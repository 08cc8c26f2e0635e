package raster

import (
	"errors"
	"image"
	"image/draw"
)

// PadRect grows r by pad pixels on every side and clamps the result to bounds.
// The returned rectangle is never smaller than 1x1 as long as bounds is non-empty.
func PadRect(r image.Rectangle, pad int, bounds image.Rectangle) image.Rectangle {
	if pad < 0 {
		pad = 0
	}
	x0 := r.Min.X - pad
	y0 := r.Min.Y - pad
	x1 := r.Max.X + pad
	y1 := r.Max.Y + pad
	if x0 < bounds.Min.X {
		x0 = bounds.Min.X
	}
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	if x1 > bounds.Max.X {
		x1 = bounds.Max.X
	}
	if y1 > bounds.Max.Y {
		y1 = bounds.Max.Y
	}
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return image.Rect(x0, y0, x1, y1)
}

// ExtractRect copies the r sub-rectangle of src into a new NRGBA anchored at the
// origin. r is clamped to src bounds; an empty intersection is an error.
func ExtractRect(src *image.NRGBA, r image.Rectangle) (*image.NRGBA, error) {
	if src == nil {
		return nil, errors.New("nil source")
	}
	r = r.Intersect(src.Bounds())
	if r.Empty() {
		return nil, errors.New("rectangle outside source bounds")
	}
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), src, r.Min, draw.Src)
	return out, nil
}

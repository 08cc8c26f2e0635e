package crop

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

// Render rotates src clockwise by deg degrees around its centre on a square
// safe canvas and copies area out of it. area uses the coordinates produced by
// PixelArea. The output always has area's size; parts outside the canvas stay
// transparent.
func Render(src image.Image, area image.Rectangle, deg int) (*image.NRGBA, error) {
	if src == nil {
		return nil, errors.New("crop: nil source")
	}
	if area.Dx() <= 0 || area.Dy() <= 0 {
		return nil, ErrNoCropArea
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	safe := SafeSize(w, h)

	canvas := imaging.New(safe, safe, color.Transparent)
	rotated := imaging.Rotate(src, -float64(deg), color.Transparent)
	rb := rotated.Bounds()
	half := float64(safe) / 2
	at := image.Pt(
		int(math.Round(half-float64(rb.Dx())/2)),
		int(math.Round(half-float64(rb.Dy())/2)),
	)
	canvas = imaging.Paste(canvas, rotated, at)

	origin := image.Pt(
		int(math.Round(half-float64(w)/2))+area.Min.X,
		int(math.Round(half-float64(h)/2))+area.Min.Y,
	)
	out := image.NewNRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	draw.Draw(out, out.Bounds(), canvas, origin, draw.Src)
	return out, nil
}

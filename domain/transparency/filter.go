package transparency

import (
	"image"
	"math"
)

// Advanced rule constants.
const (
	neutralVariance = 15  // max channel spread treated as gray noise
	midtoneLow      = 100 // exclusive lower brightness bound of gray noise
	midtoneHigh     = 200 // exclusive upper brightness bound of gray noise
	fadeStart       = 220 // brightness where the near-white fade begins
	fadeSlope       = 10  // alpha lost per brightness step above fadeStart
)

// Result is the outcome of one filter pass.
type Result struct {
	Image *image.NRGBA
	// Ink is the bounding box of every pixel whose resulting alpha is nonzero.
	// Only meaningful when HasInk is true.
	Ink    image.Rectangle
	HasInk bool
}

// Alpha returns the alpha a pixel should carry after filtering. a is the
// pixel's current alpha; the filter never makes a pixel more opaque.
func Alpha(r, g, b, a uint8, s Settings) uint8 {
	sum := int(r) + int(g) + int(b)
	// brightness = sum/3, compared without integer truncation
	if sum > 3*s.White || sum < 3*s.Black {
		return 0
	}
	if !s.Advanced {
		return a
	}
	hi, lo := max(r, g, b), min(r, g, b)
	if int(hi-lo) < neutralVariance && sum > 3*midtoneLow && sum < 3*midtoneHigh {
		return 0
	}
	if sum > 3*fadeStart {
		brightness := float64(sum) / 3
		faded := math.Round(255 - (brightness-fadeStart)*fadeSlope)
		if faded <= 0 {
			return 0
		}
		if faded < float64(a) {
			return uint8(faded)
		}
	}
	return a
}

// Apply filters src into a new image and, in the same scan, tracks the bounding
// box of the surviving ink. src is not modified.
func Apply(src *image.NRGBA, s Settings) Result {
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	minX, minY := math.MaxInt, math.MaxInt
	maxX, maxY := -1, -1
	for y := 0; y < b.Dy(); y++ {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		di := out.PixOffset(0, y)
		for x := 0; x < b.Dx(); x++ {
			p := src.Pix[si : si+4 : si+4]
			a := Alpha(p[0], p[1], p[2], p[3], s)
			q := out.Pix[di : di+4 : di+4]
			q[0], q[1], q[2], q[3] = p[0], p[1], p[2], a
			if a != 0 {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				maxY = y
			}
			si += 4
			di += 4
		}
	}
	res := Result{Image: out}
	if maxX >= 0 {
		res.HasInk = true
		res.Ink = image.Rect(minX, minY, maxX+1, maxY+1)
	}
	return res
}

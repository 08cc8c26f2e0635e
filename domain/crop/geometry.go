package crop

import (
	"image"
	"math"
)

// Crop rectangle constraints.
const (
	AspectW = 4
	AspectH = 3
	MinZoom = 1.0
	MaxZoom = 3.0
)

// Geometry is the user-controlled crop state. Offset pans the crop centre away
// from the centre of the rotated image, in source pixels.
type Geometry struct {
	OffsetX  float64
	OffsetY  float64
	Zoom     float64
	Rotation int // whole degrees, clockwise
}

// Normalize clamps zoom to [MinZoom, MaxZoom] and wraps rotation into [0, 360).
func (g Geometry) Normalize() Geometry {
	if g.Zoom < MinZoom || math.IsNaN(g.Zoom) {
		g.Zoom = MinZoom
	}
	if g.Zoom > MaxZoom {
		g.Zoom = MaxZoom
	}
	g.Rotation %= 360
	if g.Rotation < 0 {
		g.Rotation += 360
	}
	return g
}

// RotatedSize returns the bounding box of a w x h image rotated by deg degrees.
func RotatedSize(w, h, deg int) (float64, float64) {
	rad := float64(deg) * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	fw, fh := float64(w), float64(h)
	return fw*cos + fh*sin, fw*sin + fh*cos
}

// SafeSize is the side of the square canvas that holds the source at any rotation.
func SafeSize(w, h int) int {
	maxDim := float64(max(w, h))
	return int(2 * (maxDim / 2 * math.Sqrt2))
}

// PixelArea maps g onto a w x h source. At zoom 1 the area is the largest 4:3
// rectangle inside the rotated image; each zoom step shrinks both sides. The
// rectangle is expressed relative to the unrotated source's top-left corner, so
// X and Y may be negative when rotation widens the bounding box.
func PixelArea(w, h int, g Geometry) image.Rectangle {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	g = g.Normalize()
	rw, rh := RotatedSize(w, h, g.Rotation)
	cw, ch := rw, rw*AspectH/AspectW
	if ch > rh {
		ch = rh
		cw = rh * AspectW / AspectH
	}
	cw /= g.Zoom
	ch /= g.Zoom

	cx := clampF(rw/2+g.OffsetX, cw/2, rw-cw/2)
	cy := clampF(rh/2+g.OffsetY, ch/2, rh-ch/2)

	x := cx - cw/2 - (rw-float64(w))/2
	y := cy - ch/2 - (rh-float64(h))/2
	x0, y0 := int(math.Round(x)), int(math.Round(y))
	aw, ah := max(1, int(math.Round(cw))), max(1, int(math.Round(ch)))
	return image.Rect(x0, y0, x0+aw, y0+ah)
}

// ClampOffset limits a pan so the crop stays inside the rotated image.
func ClampOffset(w, h int, g Geometry) Geometry {
	g = g.Normalize()
	rw, rh := RotatedSize(w, h, g.Rotation)
	cw, ch := rw, rw*AspectH/AspectW
	if ch > rh {
		ch = rh
		cw = rh * AspectW / AspectH
	}
	limX := (rw - cw/g.Zoom) / 2
	limY := (rh - ch/g.Zoom) / 2
	g.OffsetX = clampF(g.OffsetX, -limX, limX)
	g.OffsetY = clampF(g.OffsetY, -limY, limY)
	return g
}

func clampF(v, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}

// Zoom step applied by the dialog's zoom buttons.
const ZoomStep = 0.25

// ZoomBy returns g with zoom changed by delta and clamped.
func (g Geometry) ZoomBy(delta float64) Geometry {
	g.Zoom += delta
	return g.Normalize()
}

// RotateBy returns g rotated clockwise by deg, wrapped into [0, 360).
func (g Geometry) RotateBy(deg int) Geometry {
	g.Rotation += deg
	return g.Normalize()
}

// RotateTo returns g rotated to deg, wrapped into [0, 360).
func (g Geometry) RotateTo(deg int) Geometry {
	g.Rotation = deg
	return g.Normalize()
}

// PanBy moves the crop centre by dx, dy source pixels. Callers clamp through
// ClampOffset or Session.Update.
func (g Geometry) PanBy(dx, dy float64) Geometry {
	g.OffsetX += dx
	g.OffsetY += dy
	return g
}

// PanStep is the pan distance per button press for a w x h source.
func PanStep(w, h int) float64 {
	return math.Max(1, float64(max(w, h))/20)
}

package crop

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/soocke/sigdesk-go/domain/raster"
	"github.com/soocke/sigdesk-go/domain/transparency"
)

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	for x := w / 4; x < 3*w/4; x++ {
		img.SetNRGBA(x, h/2, color.NRGBA{10, 10, 120, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestPixelArea_ZoomOneIsLargestFourThree(t *testing.T) {
	r := PixelArea(800, 400, Geometry{Zoom: 1})
	if r.Dx() != 533 || r.Dy() != 400 {
		t.Fatalf("expected 533x400, got %dx%d", r.Dx(), r.Dy())
	}
	if r.Min.Y != 0 || r.Min.X != 133 {
		t.Fatalf("expected centred rect, got %v", r)
	}
	r = PixelArea(300, 600, Geometry{Zoom: 1})
	if r.Dx() != 300 || r.Dy() != 225 {
		t.Fatalf("expected 300x225, got %dx%d", r.Dx(), r.Dy())
	}
}

func TestPixelArea_ZoomShrinksAndPanClamps(t *testing.T) {
	r := PixelArea(400, 300, Geometry{Zoom: 2})
	if r != image.Rect(100, 75, 300, 225) {
		t.Fatalf("unexpected zoomed area %v", r)
	}
	r = PixelArea(400, 300, Geometry{Zoom: 2, OffsetX: 10000, OffsetY: -10000})
	if r != image.Rect(200, 0, 400, 150) {
		t.Fatalf("pan not clamped: %v", r)
	}
	r = PixelArea(400, 300, Geometry{Zoom: 9})
	if r.Dx() != 133 {
		t.Fatalf("zoom should clamp to 3, got width %d", r.Dx())
	}
}

func TestGeometryNormalize(t *testing.T) {
	g := Geometry{Zoom: 0, Rotation: -90}.Normalize()
	if g.Zoom != MinZoom || g.Rotation != 270 {
		t.Fatalf("unexpected normalize %+v", g)
	}
	if g := (Geometry{Zoom: 1, Rotation: 360}).Normalize(); g.Rotation != 0 {
		t.Fatalf("360 should wrap to 0, got %d", g.Rotation)
	}
}

func TestSafeSize(t *testing.T) {
	if s := SafeSize(100, 50); s != 141 {
		t.Fatalf("expected 141, got %d", s)
	}
}

func TestRender_NoRotationMatchesSubImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	src.SetNRGBA(12, 9, color.NRGBA{200, 10, 10, 255})
	out, err := Render(src, image.Rect(10, 5, 30, 20), 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 20, 15) {
		t.Fatalf("unexpected size %v", out.Bounds())
	}
	if got := out.NRGBAAt(2, 4); got != (color.NRGBA{200, 10, 10, 255}) {
		t.Fatalf("pixel misplaced, got %v", got)
	}
}

func TestRender_Rotate180(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	src.SetNRGBA(0, 0, color.NRGBA{0, 255, 0, 255})
	out, err := Render(src, image.Rect(0, 0, 20, 20), 180)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := out.NRGBAAt(19, 19); got.G != 255 {
		t.Fatalf("expected corner pixel moved to bottom-right, got %v", got)
	}
}

func TestRender_Rotate90Clockwise(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	src.SetNRGBA(0, 0, color.NRGBA{0, 0, 255, 255})
	out, err := Render(src, image.Rect(0, 0, 20, 20), 90)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := out.NRGBAAt(19, 0); got.B != 255 {
		t.Fatalf("clockwise rotation should move top-left to top-right, got %v", got)
	}
}

func TestRender_EmptyArea(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	if _, err := Render(src, image.Rectangle{}, 0); !errors.Is(err, ErrNoCropArea) {
		t.Fatalf("expected ErrNoCropArea, got %v", err)
	}
}

type countingPreview struct{ n int }

func (c *countingPreview) Release() { c.n++ }

func TestSession_ApplyFlow(t *testing.T) {
	s := NewSession(transparency.DefaultSettings(), true, nil)
	var seen []State
	s.AddListener(func(_, next State) { seen = append(seen, next) })
	prev := &countingPreview{}
	if err := s.Open(samplePNG(t, 120, 90), prev); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Begin(); !errors.Is(err, ErrNoCropArea) {
		t.Fatalf("begin without area should fail, got %v", err)
	}
	if _, err := s.Update(Geometry{Zoom: 1}); err != nil {
		t.Fatalf("update: %v", err)
	}
	job, err := s.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	out, err := s.Finish(job.Execute())
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(out.PNG) == 0 {
		t.Fatalf("expected PNG output")
	}
	if _, err := raster.Decode(out.PNG); err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
	if prev.n != 1 {
		t.Fatalf("preview released %d times", prev.n)
	}
	s.Cancel()
	if prev.n != 1 || s.Current() != StateApplied {
		t.Fatalf("cancel after apply must be a no-op")
	}
	want := []State{StateCropping, StateProcessing, StateApplied}
	if len(seen) != len(want) {
		t.Fatalf("transitions %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions %v, want %v", seen, want)
		}
	}
}

func TestSession_CancelReleasesPreviewWithoutOutcome(t *testing.T) {
	s := NewSession(transparency.DefaultSettings(), false, nil)
	prev := &countingPreview{}
	if err := s.Open(samplePNG(t, 64, 48), prev); err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Cancel()
	s.Cancel()
	if prev.n != 1 {
		t.Fatalf("expected exactly one release, got %d", prev.n)
	}
	if _, ok := s.Outcome(); ok {
		t.Fatalf("cancelled session must not produce an outcome")
	}
	if s.Current() != StateCancelled {
		t.Fatalf("expected cancelled, got %v", s.Current())
	}
}

func TestSession_FailedJobReturnsToCropping(t *testing.T) {
	s := NewSession(transparency.DefaultSettings(), false, nil)
	prev := &countingPreview{}
	_ = s.Open(samplePNG(t, 64, 48), prev)
	_, _ = s.Update(Geometry{Zoom: 1.5})
	if _, err := s.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.Finish(nil, errors.New("boom")); err == nil {
		t.Fatalf("expected job error")
	}
	if s.Current() != StateCropping || prev.n != 0 {
		t.Fatalf("expected cropping with preview held, got %v released=%d", s.Current(), prev.n)
	}
}

func TestSession_OpenBadImageReleasesPreview(t *testing.T) {
	s := NewSession(transparency.DefaultSettings(), false, nil)
	prev := &countingPreview{}
	if err := s.Open([]byte("nope"), prev); err == nil {
		t.Fatalf("expected decode error")
	}
	if prev.n != 1 || s.Current() != StateIdle {
		t.Fatalf("expected released preview and idle state")
	}
}

func TestSession_SettingsCarriedIntoOutcome(t *testing.T) {
	s := NewSession(transparency.DefaultSettings(), false, nil)
	_ = s.Open(samplePNG(t, 40, 30), nil)
	_, _ = s.Update(Geometry{Zoom: 1})
	s.SetSettings(transparency.Settings{White: 240, Black: 10})
	job, _ := s.Begin()
	out, err := s.Finish(job.Execute())
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if out.Settings.White != 240 || out.Settings.Black != 10 || out.Settings.Advanced {
		t.Fatalf("settings not carried: %+v", out.Settings)
	}
}

func TestGeometrySteps(t *testing.T) {
	g := Geometry{Zoom: 1}
	g = g.ZoomBy(ZoomStep).ZoomBy(10)
	if g.Zoom != MaxZoom {
		t.Fatalf("zoom not clamped: %v", g.Zoom)
	}
	g = g.RotateBy(-90).RotateBy(-90)
	if g.Rotation != 180 {
		t.Fatalf("expected 180, got %d", g.Rotation)
	}
	g = g.PanBy(-5000, 0)
	c := ClampOffset(400, 300, g)
	if c.OffsetX >= 0 || c.OffsetX < -200 {
		t.Fatalf("pan not clamped: %v", c.OffsetX)
	}
	if s := PanStep(400, 300); s != 20 {
		t.Fatalf("expected step 20, got %v", s)
	}
}

func TestGeometryRotateToAnyDegree(t *testing.T) {
	g := Geometry{Zoom: 1.5, Rotation: 90}
	for in, want := range map[int]int{3: 3, 47: 47, 359: 359, 360: 0, 361: 1, -3: 357} {
		got := g.RotateTo(in)
		if got.Rotation != want || got.Zoom != 1.5 {
			t.Fatalf("RotateTo(%d) = %+v, want rotation %d", in, got, want)
		}
	}
}

package capture

import (
	"errors"
	"image"
	"testing"
)

func fakeScreen() (*Screen, *[]image.Rectangle) {
	var calls []image.Rectangle
	s := &Screen{
		grab: func() (*image.RGBA, error) {
			calls = append(calls, image.Rect(0, 0, 1920, 1080))
			return image.NewRGBA(image.Rect(0, 0, 1920, 1080)), nil
		},
		grabIn: func(r image.Rectangle) (*image.RGBA, error) {
			calls = append(calls, r)
			return image.NewRGBA(r), nil
		},
		bounds: func() (image.Rectangle, error) { return image.Rect(0, 0, 1920, 1080), nil },
	}
	return s, &calls
}

func TestGrab_ClipsRegionToScreen(t *testing.T) {
	s, calls := fakeScreen()
	r := image.Rect(1800, 1000, 2000, 1200)
	img, err := s.Grab(&r)
	if err != nil {
		t.Fatalf("grab: %v", err)
	}
	if img.Bounds() != image.Rect(1800, 1000, 1920, 1080) || (*calls)[0] != img.Bounds() {
		t.Fatalf("region not clipped: %v", img.Bounds())
	}
}

func TestGrab_FullScreenFallback(t *testing.T) {
	s, calls := fakeScreen()
	off := image.Rect(3000, 3000, 3100, 3100)
	if _, err := s.Grab(&off); err != nil {
		t.Fatalf("grab: %v", err)
	}
	if _, err := s.Grab(nil); err != nil {
		t.Fatalf("grab: %v", err)
	}
	for _, c := range *calls {
		if c != image.Rect(0, 0, 1920, 1080) {
			t.Fatalf("expected full screen grabs, got %v", *calls)
		}
	}
}

func TestGrab_WrapsError(t *testing.T) {
	boom := errors.New("no display")
	s := &Screen{grab: func() (*image.RGBA, error) { return nil, boom }}
	if _, err := s.Grab(nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

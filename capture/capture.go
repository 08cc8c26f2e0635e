// Package capture grabs screen pixels used as a raw signature source.
package capture

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/vova616/screenshot"
)

// Screen captures the primary monitor or a rectangle of it.
type Screen struct {
	logger *slog.Logger
	grab   func() (*image.RGBA, error)
	grabIn func(image.Rectangle) (*image.RGBA, error)
	bounds func() (image.Rectangle, error)
}

// NewScreen returns a capturer backed by the OS screenshot API.
func NewScreen(logger *slog.Logger) *Screen {
	return &Screen{
		logger: logger,
		grab:   screenshot.CaptureScreen,
		grabIn: screenshot.CaptureRect,
		bounds: screenshot.ScreenRect,
	}
}

// Grab returns the region clipped to the screen, or the full screen when region
// is nil or does not overlap it.
func (s *Screen) Grab(region *image.Rectangle) (*image.RGBA, error) {
	if region != nil {
		r := *region
		if s.bounds != nil {
			if screen, err := s.bounds(); err == nil {
				r = r.Intersect(screen)
			}
		}
		if !r.Empty() {
			img, err := s.grabIn(r)
			if err != nil {
				return nil, fmt.Errorf("capture rect %v: %w", r, err)
			}
			s.log(r, img)
			return img, nil
		}
	}
	img, err := s.grab()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	s.log(img.Bounds(), img)
	return img, nil
}

func (s *Screen) log(r image.Rectangle, img *image.RGBA) {
	if s.logger == nil || img == nil {
		return
	}
	s.logger.Debug("capture.grab", "rect", r.String(), "w", img.Bounds().Dx(), "h", img.Bounds().Dy())
}

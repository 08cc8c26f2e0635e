package presenter

import (
	"image"

	"github.com/soocke/sigdesk-go/ui/images"
)

// ScreenSource grabs the screen region used as a signature source.
type ScreenSource interface {
	Grab(region *image.Rectangle) (*image.RGBA, error)
}

// CropOpener starts a crop session over raw image bytes.
type CropOpener interface {
	Open(data []byte)
}

// RegionProvider returns the persisted capture rectangle, nil for full screen.
type RegionProvider func() *image.Rectangle

// CapturePresenter turns a screen grab (a signature held up to a webcam
// window, a scanned page in a viewer) into a crop session.
type CapturePresenter struct {
	source  ScreenSource
	region  RegionProvider
	crop    CropOpener
	notices Notifier
}

func NewCapturePresenter(source ScreenSource, region RegionProvider, crop CropOpener, notices Notifier) *CapturePresenter {
	return &CapturePresenter{source: source, region: region, crop: crop, notices: notices}
}

// Capture grabs the configured region and opens it for cropping.
func (c *CapturePresenter) Capture() {
	if c == nil || c.source == nil || c.crop == nil {
		return
	}
	var r *image.Rectangle
	if c.region != nil {
		r = c.region()
	}
	img, err := c.source.Grab(r)
	if err != nil || img == nil {
		if c.notices != nil {
			c.notices.Notify("Screen capture failed")
		}
		return
	}
	data := images.EncodePNG(img)
	if len(data) == 0 {
		if c.notices != nil {
			c.notices.Notify("Screen capture failed")
		}
		return
	}
	c.crop.Open(data)
}

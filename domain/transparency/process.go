package transparency

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/soocke/sigdesk-go/domain/raster"
)

// InkPadding is the margin kept around the detected ink when auto-cropping.
const InkPadding = 10

// Crop trims a filter result to its ink bounding box plus InkPadding on each
// side. Results without ink are returned whole.
func Crop(res Result) *image.NRGBA {
	if !res.HasInk {
		return res.Image
	}
	r := raster.PadRect(res.Ink, InkPadding, res.Image.Bounds())
	out, err := raster.ExtractRect(res.Image, r)
	if err != nil {
		return res.Image
	}
	return out
}

// ProcessImage filters img and optionally auto-crops it.
func ProcessImage(img *image.NRGBA, s Settings, autoCrop bool) *image.NRGBA {
	res := Apply(img, s)
	if autoCrop {
		return Crop(res)
	}
	return res.Image
}

// Process decodes encoded image bytes, filters them and re-encodes a PNG.
func Process(data []byte, s Settings, autoCrop bool) ([]byte, error) {
	img, err := raster.Decode(data)
	if err != nil {
		return nil, err
	}
	out, err := raster.EncodePNG(ProcessImage(img, s, autoCrop))
	if err != nil {
		return nil, fmt.Errorf("transparency: %w", err)
	}
	return out, nil
}

// Processor applies the session's settings to inline images. Its methods never
// fail: anything that cannot be decoded comes back unchanged.
type Processor struct {
	Settings Settings
	AutoCrop bool
	log      *slog.Logger
}

// NewProcessor returns a Processor with validated settings.
func NewProcessor(s Settings, autoCrop bool, log *slog.Logger) *Processor {
	if err := s.Validate(); err != nil && log != nil {
		log.Warn("transparency.settings", "error", err)
	}
	return &Processor{Settings: s, AutoCrop: autoCrop, log: log}
}

// Bytes filters raw encoded bytes, returning the input when it cannot be decoded.
func (p *Processor) Bytes(data []byte) []byte {
	out, err := Process(data, p.Settings, p.AutoCrop)
	if err != nil {
		p.logFailure(err)
		return data
	}
	return out
}

// DataURL filters an inline data URL and returns a PNG data URL. The input is
// returned unchanged when it is not a decodable image.
func (p *Processor) DataURL(src string) string {
	data, _, err := raster.DecodeDataURL(src)
	if err != nil {
		p.logFailure(&raster.DecodeError{Err: err})
		return src
	}
	out, err := Process(data, p.Settings, p.AutoCrop)
	if err != nil {
		p.logFailure(err)
		return src
	}
	return raster.EncodeDataURL(out)
}

func (p *Processor) logFailure(err error) {
	if p.log != nil {
		p.log.Warn("transparency.skip", "error", err, "settings", p.Settings.String())
	}
}

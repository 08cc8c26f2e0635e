package presenter

import (
	"errors"
	"image"
	"log/slog"
	"math"
	"os"

	"github.com/soocke/sigdesk-go/domain/crop"
	"github.com/soocke/sigdesk-go/domain/transparency"
	"github.com/soocke/sigdesk-go/ui/images"
)

// Live preview bounds inside the crop dialog.
const (
	previewMaxW = 360
	previewMaxH = 270
)

// CropView is the crop dialog.
type CropView interface {
	// OpenCrop shows the dialog for src and returns the preview resource that
	// must be released when the session ends.
	OpenCrop(src image.Image, settings transparency.Settings) crop.Preview
	ShowCropPreview(img image.Image, g crop.Geometry)
	SetCropBusy(busy bool)
	CloseCrop()
}

// SettingsStore persists the session's transparency settings.
type SettingsStore interface {
	Transparency() (transparency.Settings, bool)
	SetTransparency(s transparency.Settings)
}

type cropResult struct {
	session *crop.Session
	png     []byte
	err     error
}

// CropPresenter drives one crop session at a time. Rendering and filtering run
// on a goroutine; Tick applies the result on the Tk thread.
type CropPresenter struct {
	view      CropView
	settings  SettingsStore
	notices   Notifier
	logger    *slog.Logger
	onApplied func(crop.Outcome)

	session *crop.Session
	thumb   image.Image // downscaled source for the live preview
	scale   float64     // thumb pixels per source pixel
	results chan cropResult
}

// NewCropPresenter wires the presenter. onApplied receives every applied result.
func NewCropPresenter(view CropView, settings SettingsStore, notices Notifier, logger *slog.Logger, onApplied func(crop.Outcome)) *CropPresenter {
	return &CropPresenter{view: view, settings: settings, notices: notices, logger: logger, onApplied: onApplied, results: make(chan cropResult, 1)}
}

// Active reports whether a crop session is open.
func (p *CropPresenter) Active() bool {
	if p == nil || p.session == nil {
		return false
	}
	st := p.session.Current()
	return st == crop.StateCropping || st == crop.StateProcessing
}

// OpenFile reads path and opens it in the crop dialog.
func (p *CropPresenter) OpenFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		p.notify("Cannot read file: " + err.Error())
		return
	}
	p.Open(data)
}

// Open starts a crop session over raw image bytes.
func (p *CropPresenter) Open(data []byte) {
	if p == nil || p.view == nil {
		return
	}
	if p.Active() {
		p.notify("Finish the current crop first")
		return
	}
	ts, autoCrop := transparency.DefaultSettings(), true
	if p.settings != nil {
		ts, autoCrop = p.settings.Transparency()
	}
	s := crop.NewSession(ts, autoCrop, p.logger)
	var preview crop.Preview
	release := crop.ReleaseFunc(func() {
		if preview != nil {
			preview.Release()
		}
	})
	if err := s.Open(data, release); err != nil {
		p.notify("The selected file is not a supported image")
		return
	}
	p.session = s
	src := s.Source()
	p.thumb = images.ScaleToFit(src, previewMaxW, previewMaxH)
	p.scale = float64(p.thumb.Bounds().Dx()) / float64(src.Bounds().Dx())
	preview = p.view.OpenCrop(src, ts)
	p.Adjust(crop.Geometry{Zoom: crop.MinZoom})
}

// Adjust applies new geometry and refreshes the live preview.
func (p *CropPresenter) Adjust(g crop.Geometry) {
	if p == nil || p.session == nil {
		return
	}
	area, err := p.session.Update(g)
	if err != nil {
		return
	}
	g = p.session.Geometry()
	scaled := image.Rect(
		int(math.Round(float64(area.Min.X)*p.scale)),
		int(math.Round(float64(area.Min.Y)*p.scale)),
		int(math.Round(float64(area.Max.X)*p.scale)),
		int(math.Round(float64(area.Max.Y)*p.scale)),
	)
	if scaled.Dx() < 1 || scaled.Dy() < 1 {
		return
	}
	img, err := crop.Render(p.thumb, scaled, g.Rotation)
	if err != nil {
		return
	}
	p.view.ShowCropPreview(img, g)
}

// Geometry returns the current crop geometry.
func (p *CropPresenter) Geometry() crop.Geometry {
	if p == nil || p.session == nil {
		return crop.Geometry{Zoom: crop.MinZoom}
	}
	return p.session.Geometry()
}

// SetSettings stores settings edited in the dialog's panel.
func (p *CropPresenter) SetSettings(ts transparency.Settings) {
	if p == nil || p.session == nil {
		return
	}
	p.session.SetSettings(ts)
}

// Apply enters processing and runs the job in the background.
func (p *CropPresenter) Apply() {
	if p == nil || p.session == nil {
		return
	}
	job, err := p.session.Begin()
	if err != nil {
		if errors.Is(err, crop.ErrNoCropArea) {
			p.notify("Adjust the crop area first")
		}
		return
	}
	p.view.SetCropBusy(true)
	s := p.session
	go func() {
		png, err := job.Execute()
		p.results <- cropResult{session: s, png: png, err: err}
	}()
}

// Cancel closes the dialog without a result.
func (p *CropPresenter) Cancel() {
	if p == nil || p.session == nil {
		return
	}
	p.session.Cancel()
	p.session = nil
	p.thumb = nil
	p.view.CloseCrop()
}

// Tick applies a finished job. Call from the Tk thread.
func (p *CropPresenter) Tick() {
	if p == nil {
		return
	}
	select {
	case res := <-p.results:
		if res.session != p.session {
			// cancelled while processing
			return
		}
		out, err := res.session.Finish(res.png, res.err)
		p.view.SetCropBusy(false)
		if err != nil {
			p.notify("Processing failed: " + err.Error())
			return
		}
		if p.settings != nil {
			p.settings.SetTransparency(out.Settings)
		}
		p.session = nil
		p.thumb = nil
		p.view.CloseCrop()
		if p.onApplied != nil {
			p.onApplied(out)
		}
	default:
	}
}

func (p *CropPresenter) notify(msg string) {
	if p.notices != nil {
		p.notices.Notify(msg)
	}
}

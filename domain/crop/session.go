package crop

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/soocke/sigdesk-go/domain/raster"
	"github.com/soocke/sigdesk-go/domain/transparency"
)

// State enumerates the crop dialog lifecycle.
type State int

const (
	StateIdle State = iota
	StateCropping
	StateProcessing
	StateApplied
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCropping:
		return "cropping"
	case StateProcessing:
		return "processing"
	case StateApplied:
		return "applied"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var (
	// ErrNoCropArea is returned when processing is requested before the user
	// produced a crop rectangle.
	ErrNoCropArea = errors.New("crop: no crop area selected")
	// ErrBadState is returned for transitions the lifecycle does not allow.
	ErrBadState = errors.New("crop: invalid state for operation")
)

// Preview is the scoped resource backing the on-screen preview of the source
// (a Tk photo, a temp file). Release is called exactly once when the session
// ends, whether applied or cancelled.
type Preview interface {
	Release()
}

// ReleaseFunc adapts a plain function to Preview.
type ReleaseFunc func()

func (f ReleaseFunc) Release() {
	if f != nil {
		f()
	}
}

// StateListener is called on each successful state transition.
type StateListener func(prev, next State)

// Outcome is what an applied session hands back to its caller.
type Outcome struct {
	PNG      []byte
	Settings transparency.Settings
}

// Job is an immutable snapshot of everything processing needs. Execute may run
// on any goroutine.
type Job struct {
	Source   *image.NRGBA
	Area     image.Rectangle
	Rotation int
	Settings transparency.Settings
	AutoCrop bool
}

// Execute renders the crop, filters it and encodes the result as PNG.
func (j Job) Execute() ([]byte, error) {
	cropped, err := Render(j.Source, j.Area, j.Rotation)
	if err != nil {
		return nil, err
	}
	out := transparency.ProcessImage(cropped, j.Settings, j.AutoCrop)
	return raster.EncodePNG(out)
}

// Session coordinates one pass through the crop dialog:
// idle -> cropping -> processing -> applied | cancelled.
type Session struct {
	mu        sync.Mutex
	state     State
	source    *image.NRGBA
	geom      Geometry
	area      image.Rectangle
	hasArea   bool
	settings  transparency.Settings
	autoCrop  bool
	preview   Preview
	outcome   *Outcome
	listeners []StateListener
	log       *slog.Logger
}

// NewSession returns an idle session seeded with the caller's settings.
func NewSession(settings transparency.Settings, autoCrop bool, log *slog.Logger) *Session {
	return &Session{state: StateIdle, geom: Geometry{Zoom: MinZoom}, settings: settings, autoCrop: autoCrop, log: log}
}

// AddListener registers a transition listener.
func (s *Session) AddListener(l StateListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Current returns the session state.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open decodes the raw source and enters cropping. preview may be nil. On a
// decode failure the preview is released and the session stays idle.
func (s *Session) Open(data []byte, preview Preview) error {
	img, err := raster.Decode(data)
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		if preview != nil {
			preview.Release()
		}
		return fmt.Errorf("open in %v: %w", s.Current(), ErrBadState)
	}
	if err != nil {
		s.mu.Unlock()
		if preview != nil {
			preview.Release()
		}
		return err
	}
	s.source = img
	s.preview = preview
	s.mu.Unlock()
	s.transition(StateCropping)
	return nil
}

// Source returns the decoded source image, nil before Open.
func (s *Session) Source() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Update applies user-adjusted geometry and recomputes the pixel area.
func (s *Session) Update(g Geometry) (image.Rectangle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCropping {
		return image.Rectangle{}, ErrBadState
	}
	b := s.source.Bounds()
	s.geom = ClampOffset(b.Dx(), b.Dy(), g)
	s.area = PixelArea(b.Dx(), b.Dy(), s.geom)
	s.hasArea = true
	return s.area, nil
}

// Geometry returns the last applied geometry.
func (s *Session) Geometry() Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geom
}

// Area returns the current pixel area and whether one has been computed.
func (s *Session) Area() (image.Rectangle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.area, s.hasArea
}

// Settings returns the settings the session will apply.
func (s *Session) Settings() transparency.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the transparency settings from the inline panel.
func (s *Session) SetSettings(ts transparency.Settings) {
	if err := ts.Validate(); err != nil && s.log != nil {
		s.log.Warn("crop.settings", "error", err)
	}
	s.mu.Lock()
	s.settings = ts
	s.mu.Unlock()
}

// Begin enters processing and returns the job to run. It requires a computed
// pixel area.
func (s *Session) Begin() (Job, error) {
	s.mu.Lock()
	if s.state != StateCropping {
		st := s.state
		s.mu.Unlock()
		return Job{}, fmt.Errorf("begin in %v: %w", st, ErrBadState)
	}
	if !s.hasArea {
		s.mu.Unlock()
		return Job{}, ErrNoCropArea
	}
	job := Job{Source: s.source, Area: s.area, Rotation: s.geom.Rotation, Settings: s.settings, AutoCrop: s.autoCrop}
	s.mu.Unlock()
	s.transition(StateProcessing)
	return job, nil
}

// Finish completes processing. A failed job returns the session to cropping so
// the user can retry; a successful one applies it and releases the preview.
func (s *Session) Finish(png []byte, jobErr error) (Outcome, error) {
	s.mu.Lock()
	if s.state != StateProcessing {
		st := s.state
		s.mu.Unlock()
		return Outcome{}, fmt.Errorf("finish in %v: %w", st, ErrBadState)
	}
	if jobErr != nil {
		s.mu.Unlock()
		if s.log != nil {
			s.log.Warn("crop.process", "error", jobErr)
		}
		s.transition(StateCropping)
		return Outcome{}, jobErr
	}
	out := Outcome{PNG: png, Settings: s.settings}
	s.outcome = &out
	s.mu.Unlock()
	s.release()
	s.transition(StateApplied)
	return out, nil
}

// Cancel closes the session without a result. Cancelling a finished session is
// a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if st == StateApplied || st == StateCancelled {
		return
	}
	s.release()
	s.transition(StateCancelled)
}

// Outcome returns the applied result, if any.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}

func (s *Session) release() {
	s.mu.Lock()
	p := s.preview
	s.preview = nil
	s.mu.Unlock()
	if p != nil {
		p.Release()
	}
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	prev := s.state
	if prev == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	ls := append([]StateListener(nil), s.listeners...)
	s.mu.Unlock()
	if s.log != nil {
		s.log.Debug("crop.transition", "from", prev.String(), "to", next.String())
	}
	for _, l := range ls {
		l(prev, next)
	}
}

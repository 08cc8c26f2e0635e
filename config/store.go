package config

import (
	"image"
	"log/slog"
	"sync"

	"github.com/soocke/sigdesk-go/domain/transparency"
)

// Store guards the live configuration and persists edits made from the UI.
type Store struct {
	mu       sync.Mutex
	cfg      *Config
	path     string
	logger   *slog.Logger
	onChange []func(transparency.Settings, bool)
}

// NewStore wraps cfg. Edits are saved to path when it is non-empty.
func NewStore(cfg *Config, path string, logger *slog.Logger) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Store{cfg: cfg, path: path, logger: logger}
}

// Snapshot returns a copy of the configuration.
func (s *Store) Snapshot() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cfg
}

// OnTransparencyChange registers f to run after every settings change.
func (s *Store) OnTransparencyChange(f func(transparency.Settings, bool)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, f)
	s.mu.Unlock()
}

// Transparency returns the session's filter settings and auto-crop flag.
func (s *Store) Transparency() (transparency.Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Transparency, s.cfg.AutoCrop
}

// SetTransparency validates and stores ts, then notifies listeners.
func (s *Store) SetTransparency(ts transparency.Settings) {
	if err := ts.Validate(); err != nil && s.logger != nil {
		s.logger.Warn("config.transparency", "error", err)
	}
	s.mu.Lock()
	s.cfg.Transparency = ts
	autoCrop := s.cfg.AutoCrop
	listeners := append([]func(transparency.Settings, bool){}, s.onChange...)
	s.mu.Unlock()
	s.save()
	for _, f := range listeners {
		f(ts, autoCrop)
	}
}

// Region returns the persisted capture rectangle, nil when unset.
func (s *Store) Region() *image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.HasSelection() {
		return nil
	}
	r := image.Rect(s.cfg.SelectionX, s.cfg.SelectionY, s.cfg.SelectionX+s.cfg.SelectionW, s.cfg.SelectionY+s.cfg.SelectionH)
	return &r
}

// SaveRegion persists r. An empty rectangle clears the region.
func (s *Store) SaveRegion(r image.Rectangle) error {
	s.mu.Lock()
	if r.Empty() {
		s.cfg.SelectionX, s.cfg.SelectionY, s.cfg.SelectionW, s.cfg.SelectionH = 0, 0, 0, 0
	} else {
		s.cfg.SelectionX, s.cfg.SelectionY = r.Min.X, r.Min.Y
		s.cfg.SelectionW, s.cfg.SelectionH = r.Dx(), r.Dy()
	}
	s.mu.Unlock()
	return s.save()
}

// SetNPP remembers the last loaded person.
func (s *Store) SetNPP(npp string) {
	s.mu.Lock()
	changed := s.cfg.NPP != npp
	s.cfg.NPP = npp
	s.mu.Unlock()
	if changed {
		s.save()
	}
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	cfg := *s.cfg
	s.mu.Unlock()
	err := cfg.Save(s.path)
	if s.logger != nil {
		if err != nil {
			s.logger.Error("config save failed", "path", s.path, "error", err)
		} else {
			s.logger.Debug("config saved", "path", s.path)
		}
	}
	return err
}

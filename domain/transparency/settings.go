package transparency

import (
	"errors"
	"fmt"
)

// Threshold defaults applied when a session starts or settings are inverted.
const (
	DefaultWhite = 235
	DefaultBlack = 35
)

// Accepted threshold ranges for the settings panel.
const (
	MinWhite = 200
	MaxWhite = 255
	MinBlack = 0
	MaxBlack = 50
)

// ErrInvertedThresholds reports settings whose black threshold is not below
// the white one. Validate has already reset them when it is returned.
var ErrInvertedThresholds = errors.New("transparency: inverted thresholds reset to defaults")

// Settings controls which pixels are treated as background.
type Settings struct {
	// White is the brightness above which a pixel is background.
	White int `json:"white_threshold" mapstructure:"white_threshold"`
	// Black is the brightness below which a pixel is background (scan shadows).
	Black int `json:"black_threshold" mapstructure:"black_threshold"`
	// Advanced enables midtone noise removal and the soft near-white fade.
	Advanced bool `json:"advanced" mapstructure:"advanced"`
}

// DefaultSettings returns White=235, Black=35 with the advanced rule enabled.
func DefaultSettings() Settings {
	return Settings{White: DefaultWhite, Black: DefaultBlack, Advanced: true}
}

// Validate clamps thresholds into range. Inverted thresholds (Black >= White)
// are reset to their defaults and reported with ErrInvertedThresholds; the
// settings are usable either way.
func (s *Settings) Validate() error {
	if s.Black >= s.White {
		err := fmt.Errorf("%w (black %d >= white %d)", ErrInvertedThresholds, s.Black, s.White)
		s.White, s.Black = DefaultWhite, DefaultBlack
		return err
	}
	s.White = clamp(s.White, MinWhite, MaxWhite)
	s.Black = clamp(s.Black, MinBlack, MaxBlack)
	return nil
}

func (s Settings) String() string {
	mode := "simple"
	if s.Advanced {
		mode = "advanced"
	}
	return fmt.Sprintf("white=%d black=%d %s", s.White, s.Black, mode)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

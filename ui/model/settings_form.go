package model

import (
	"strconv"
	"strings"

	"github.com/soocke/sigdesk-go/domain/transparency"
)

// SettingsForm is the text content of the transparency settings panel.
type SettingsForm struct {
	White    string
	Black    string
	Advanced string
}

// FormFromSettings renders s for editing.
func FormFromSettings(s transparency.Settings) SettingsForm {
	return SettingsForm{
		White:    strconv.Itoa(s.White),
		Black:    strconv.Itoa(s.Black),
		Advanced: strconv.FormatBool(s.Advanced),
	}
}

// Parse applies the form on top of base. Unparsable fields keep the base
// value; the result is validated and always usable, the error only reports a
// reset of inverted thresholds.
func (f SettingsForm) Parse(base transparency.Settings) (transparency.Settings, error) {
	s := base
	if i, ok := parseIntField(f.White); ok {
		s.White = i
	}
	if i, ok := parseIntField(f.Black); ok {
		s.Black = i
	}
	if b, ok := parseBoolLoose(f.Advanced); ok {
		s.Advanced = b
	}
	err := s.Validate()
	return s, err
}

// ParseAngle reads a rotation in whole degrees, with an optional trailing
// degree sign.
func ParseAngle(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "°")
	return parseIntField(s)
}

func parseIntField(s string) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return i, true
}

func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on", "t":
		return true, true
	case "false", "0", "no", "n", "off", "f":
		return false, true
	default:
		return false, false
	}
}

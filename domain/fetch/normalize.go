package fetch

import (
	"regexp"
	"strings"

	"github.com/soocke/sigdesk-go/domain/raster"
)

var schemeRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

// IsInline reports whether locator already carries its pixels.
func IsInline(locator string) bool { return raster.IsDataURL(locator) }

// IsAbsolute reports whether locator starts with a URI scheme.
func IsAbsolute(locator string) bool { return schemeRE.MatchString(locator) }

// Normalize resolves a locator against baseURL. Inline and absolute locators
// are returned unchanged; relative ones are joined to baseURL with a single
// separator. An empty baseURL leaves relative locators relative.
func Normalize(locator, baseURL string) string {
	locator = strings.TrimSpace(locator)
	if locator == "" || IsInline(locator) || IsAbsolute(locator) || baseURL == "" {
		return locator
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(locator, "/")
}

// Dedupe normalizes primary and list and keeps the first occurrence of every
// locator. primary, when set, is always first.
func Dedupe(primary string, list []string, baseURL string) []string {
	seen := make(map[string]struct{}, len(list)+1)
	out := make([]string, 0, len(list)+1)
	add := func(loc string) {
		n := Normalize(loc, baseURL)
		if n == "" {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	add(primary)
	for _, l := range list {
		add(l)
	}
	return out
}

package raster

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DataScheme is the prefix of every inline-encoded image.
const DataScheme = "data:"

const pngMIME = "image/png"

// IsDataURL reports whether s is an inline-encoded payload.
func IsDataURL(s string) bool {
	return len(s) >= len(DataScheme) && strings.EqualFold(s[:len(DataScheme)], DataScheme)
}

// EncodeDataURL wraps raw PNG bytes as data:image/png;base64,...
func EncodeDataURL(pngBytes []byte) string {
	return EncodeDataURLType(pngMIME, pngBytes)
}

// EncodeDataURLType wraps raw bytes using the given media type.
func EncodeDataURLType(mime string, data []byte) string {
	return DataScheme + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL returns the payload bytes and media type of a base64 data URL.
// Non-base64 (percent-encoded) data URLs are rejected since signature sources
// never use them.
func DecodeDataURL(s string) ([]byte, string, error) {
	if !IsDataURL(s) {
		return nil, "", errors.New("not a data url")
	}
	rest := s[len(DataScheme):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, "", errors.New("data url: missing comma")
	}
	meta, payload := rest[:comma], rest[comma+1:]
	if !strings.HasSuffix(strings.ToLower(meta), ";base64") {
		return nil, "", fmt.Errorf("data url: unsupported encoding %q", meta)
	}
	mime := meta[:len(meta)-len(";base64")]
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		// some producers strip padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(payload), "="))
		if err != nil {
			return nil, mime, fmt.Errorf("data url: %w", err)
		}
	}
	return data, mime, nil
}

package signature

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/soocke/sigdesk-go/domain/backend"
	"github.com/soocke/sigdesk-go/domain/raster"
)

// Image is one processed signature. Values are never modified after creation;
// every re-crop or re-filter produces a new Image.
type Image struct {
	// SourceRef is the normalized locator the pixels came from.
	SourceRef string
	// Original is the locator exactly as the backend returned it. Empty for
	// signatures that were never stored.
	Original string
	// ProcessedData is a self-contained data:image/png;base64 URL.
	ProcessedData string
	// Fallback marks the placeholder shown for a signature that failed to load.
	Fallback bool
}

// FromPNG wraps freshly processed PNG bytes that have no remote source yet.
func FromPNG(png []byte) Image {
	data := raster.EncodeDataURL(png)
	return Image{SourceRef: data, ProcessedData: data}
}

// IsZero reports whether img is the empty Image.
func (img Image) IsZero() bool { return img.ProcessedData == "" }

// Stored reports whether the backend knows this signature.
func (img Image) Stored() bool { return img.Original != "" }

// DataURL returns the inline representation for form fields.
func (img Image) DataURL() string { return img.ProcessedData }

// PNG returns the raw processed bytes.
func (img Image) PNG() ([]byte, error) {
	data, _, err := raster.DecodeDataURL(img.ProcessedData)
	if err != nil {
		return nil, fmt.Errorf("signature payload: %w", err)
	}
	return data, nil
}

// FilePart returns the multipart file representation with a unique name.
func (img Image) FilePart() (backend.FilePart, error) {
	data, mime, err := raster.DecodeDataURL(img.ProcessedData)
	if err != nil {
		return backend.FilePart{}, fmt.Errorf("signature payload: %w", err)
	}
	if mime == "" {
		mime = "image/png"
	}
	return backend.FilePart{
		Name:        "signature-" + uuid.NewString() + ".png",
		ContentType: mime,
		Data:        data,
	}, nil
}

// History is the ordered, de-duplicated set of signatures known for a person.
type History struct {
	PersonID string
	Entries  []Image
}

// Find returns the entry with the given normalized locator.
func (h History) Find(sourceRef string) (Image, bool) {
	for _, e := range h.Entries {
		if e.SourceRef == sourceRef {
			return e, true
		}
	}
	return Image{}, false
}

// Len returns the number of entries.
func (h History) Len() int { return len(h.Entries) }

package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/png"
)

// SignaturePlaceholderPNG contains the raw PNG bytes shown whenever a signature
// cannot be fetched or decoded.
//
//go:embed signature_placeholder.png
var SignaturePlaceholderPNG []byte

// SignaturePlaceholderImage decodes the embedded placeholder PNG.
func SignaturePlaceholderImage() (image.Image, error) {
	if len(SignaturePlaceholderPNG) == 0 {
		return nil, fmt.Errorf("embedded signature_placeholder.png is empty")
	}
	img, err := png.Decode(bytes.NewReader(SignaturePlaceholderPNG))
	if err != nil {
		return nil, err
	}
	return img, nil
}

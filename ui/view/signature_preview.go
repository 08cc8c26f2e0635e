package view

import (
	"image"

	"github.com/soocke/sigdesk-go/assets"
	"github.com/soocke/sigdesk-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// SignaturePreview shows the form's active signature.
type SignaturePreview interface {
	Update(img image.Image)
	Reset()
}

type signaturePreview struct {
	label *LabelWidget
	photo *Img // last Tk photo, deleted before replacement
}

const (
	maxSignatureW = 320
	maxSignatureH = 160
)

// NewSignaturePreview creates the preview label at row, spanning the form.
func NewSignaturePreview(row int) SignaturePreview {
	photo := NewPhoto(Data(assets.SignaturePlaceholderPNG))
	label := Label(Image(photo), Borderwidth(1), Relief("sunken"))
	Grid(label, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	return &signaturePreview{label: label, photo: photo}
}

func (v *signaturePreview) Update(img image.Image) {
	if v.label == nil || img == nil {
		return
	}
	scaled := images.ScaleToFit(img, maxSignatureW, maxSignatureH)
	v.replace(images.EncodePNG(scaled))
}

func (v *signaturePreview) Reset() {
	v.replace(assets.SignaturePlaceholderPNG)
}

func (v *signaturePreview) replace(png []byte) {
	if v.label == nil || len(png) == 0 {
		return
	}
	if v.photo != nil {
		v.photo.Delete()
	}
	v.photo = NewPhoto(Data(png))
	v.label.Configure(Image(v.photo))
}

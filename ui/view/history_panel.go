package view

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/soocke/sigdesk-go/domain/raster"
	"github.com/soocke/sigdesk-go/domain/signature"
	"github.com/soocke/sigdesk-go/ui/images"
	"github.com/soocke/sigdesk-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// HistoryPanel lists the stored signatures of the loaded person. Each row has
// a thumbnail with Use and Delete buttons.
type HistoryPanel interface {
	Render(entries []signature.Image, activeRef string)
	SetBusy(busy bool)
}

type historyRow struct {
	marker *LabelWidget
	thumb  *LabelWidget
	use    *ButtonWidget
	del    *TButtonWidget
	photo  *Img
}

type historyPanel struct {
	logger   *slog.Logger
	frame    *FrameWidget
	title    *LabelWidget
	rows     []historyRow
	onSelect func(i int)
	onDelete func(i int)
	busy     bool
}

const (
	thumbW = 160
	thumbH = 80
)

// NewHistoryPanel creates the panel frame at row of the root window.
func NewHistoryPanel(row int, onSelect, onDelete func(i int), logger *slog.Logger) HistoryPanel {
	frame := Frame(Borderwidth(1), Relief("groove"))
	Grid(frame, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	title := Label(Txt("Signature history: <none>"), Anchor("w"))
	Grid(title, In(frame), Row(0), Column(0), Columnspan(4), Sticky("w"), Padx("0.3m"), Pady("0.2m"))
	return &historyPanel{logger: logger, frame: frame, title: title, onSelect: onSelect, onDelete: onDelete}
}

func (v *historyPanel) Render(entries []signature.Image, activeRef string) {
	if v == nil || v.frame == nil {
		return
	}
	v.clear()
	if len(entries) == 0 {
		v.title.Configure(Txt("Signature history: <none>"))
		return
	}
	v.title.Configure(Txt(fmt.Sprintf("Signature history: %d", len(entries))))
	for i, e := range entries {
		i := i
		row := historyRow{}
		mark := " "
		if e.SourceRef == activeRef {
			mark = "●"
		}
		row.marker = Label(Txt(mark), Width(2))
		Grid(row.marker, In(v.frame), Row(i+1), Column(0), Sticky("w"))
		row.photo = NewPhoto(Data(v.thumbnail(e)))
		row.thumb = Label(Image(row.photo), Borderwidth(1), Relief("sunken"))
		Grid(row.thumb, In(v.frame), Row(i+1), Column(1), Sticky("w"), Padx("0.3m"), Pady("0.2m"))
		row.use = Button(Txt("Use"), Command(func() { v.onSelect(i) }))
		Grid(row.use, In(v.frame), Row(i+1), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
		row.del = TButton(Style(theme.StyleDangerButton), Txt("Delete"), Command(func() { v.onDelete(i) }))
		Grid(row.del, In(v.frame), Row(i+1), Column(3), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
		if e.Fallback {
			// placeholders cannot be used on the form
			row.use.Configure(State("disabled"))
		}
		v.rows = append(v.rows, row)
	}
	v.applyBusy()
}

func (v *historyPanel) SetBusy(busy bool) {
	if v == nil {
		return
	}
	v.busy = busy
	v.applyBusy()
}

func (v *historyPanel) applyBusy() {
	state := "normal"
	if v.busy {
		state = "disabled"
	}
	for _, r := range v.rows {
		if r.del != nil {
			r.del.Configure(State(state))
		}
	}
}

func (v *historyPanel) clear() {
	for _, r := range v.rows {
		Destroy(r.marker, r.thumb, r.use, r.del)
		if r.photo != nil {
			r.photo.Delete()
		}
	}
	v.rows = nil
}

// thumbnail returns PNG bytes for e scaled to the row size.
func (v *historyPanel) thumbnail(e signature.Image) []byte {
	data, err := e.PNG()
	if err != nil {
		return placeholderThumb()
	}
	img, err := raster.Decode(data)
	if err != nil {
		if v.logger != nil {
			v.logger.Warn("history thumbnail decode failed", "ref", e.SourceRef, "error", err)
		}
		return placeholderThumb()
	}
	return images.EncodePNG(images.ScaleToFit(img, thumbW, thumbH))
}

func placeholderThumb() []byte {
	return images.EncodePNG(image.NewNRGBA(image.Rect(0, 0, thumbW, thumbH)))
}

package view

import (
	"image"
	"log/slog"
	"strings"

	"github.com/soocke/sigdesk-go/domain/raster"
	"github.com/soocke/sigdesk-go/domain/signature"
	"github.com/soocke/sigdesk-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// RootHandlers are the callbacks of the main form.
type RootHandlers struct {
	Load         func(npp string)
	OpenFile     func(path string)
	Capture      func()
	SelectRegion func()
	Submit       func()
	Exit         func()
	Use          func(i int)
	Delete       func(i int)
}

// RootView composes the signature form: person field, source buttons, the
// active signature preview, the history list and the status line.
type RootView struct {
	logger *slog.Logger

	// Subviews
	Signature SignaturePreview
	History   HistoryPanel

	// Widgets
	StatusLabel *TLabelWidget
	nppText     *TextWidget
	pathText    *TextWidget
	loadBtn     *ButtonWidget
	submitBtn   *TButtonWidget
}

func NewRootView(logger *slog.Logger) *RootView {
	return &RootView{logger: logger}
}

// Build constructs the layout. npp seeds the person field.
func (rv *RootView) Build(npp string, h RootHandlers) {
	if rv == nil {
		return
	}
	// Row 0: person field
	Grid(Label(Txt("NPP"), Anchor("w")), Row(0), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.3m"))
	rv.nppText = Text(Height(1), Width(20))
	Grid(rv.nppText, Row(0), Column(1), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	rv.nppText.Delete("1.0", END)
	rv.nppText.Insert("1.0", npp)
	load := func() {
		if h.Load != nil {
			h.Load(rv.NPP())
		}
	}
	rv.loadBtn = Button(Txt("Load Signatures"), Command(load))
	Grid(rv.loadBtn, Row(0), Column(3), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(rv.nppText, "<Return>", Command(load))

	// Row 1: file source
	Grid(Label(Txt("Image file"), Anchor("w")), Row(1), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.3m"))
	rv.pathText = Text(Height(1), Width(32))
	Grid(rv.pathText, Row(1), Column(1), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	openBtn := Button(Txt("Open and Crop"), Command(func() {
		if p := rv.path(); p != "" && h.OpenFile != nil {
			h.OpenFile(p)
		}
	}))
	Grid(openBtn, Row(1), Column(3), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	// Row 2: screen source and form actions
	btnFrame := Frame()
	Grid(btnFrame, Row(2), Column(0), Columnspan(4), Sticky("we"), Padx("0.3m"), Pady("0.3m"))
	captureBtn := Button(Txt("Capture Screen"), Command(h.Capture))
	Grid(captureBtn, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	regionBtn := Button(Txt("Capture Region"), Command(h.SelectRegion))
	Grid(regionBtn, In(btnFrame), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	rv.submitBtn = TButton(Style(theme.StylePrimaryButton), Txt("Submit"), Command(h.Submit))
	Grid(rv.submitBtn, In(btnFrame), Row(0), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := Button(Txt("Exit"), Command(h.Exit))
	Grid(exitBtn, In(btnFrame), Row(0), Column(3), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	// Row 3: active signature, row 4: history, row 5: status
	rv.Signature = NewSignaturePreview(3)
	rv.History = NewHistoryPanel(4, h.Use, h.Delete, rv.logger)
	rv.StatusLabel = TLabel(Style(theme.StyleStatusLabel), Txt("Ready"), Anchor("w"))
	Grid(rv.StatusLabel, Row(5), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
}

// NPP returns the trimmed person field.
func (rv *RootView) NPP() string {
	if rv == nil || rv.nppText == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(rv.nppText.Get("1.0", END), ""))
}

func (rv *RootView) path() string {
	if rv.pathText == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(rv.pathText.Get("1.0", END), ""))
}

// --- HistoryView contract ---

func (rv *RootView) RenderHistory(entries []signature.Image, activeRef string) {
	if rv != nil && rv.History != nil {
		rv.History.Render(entries, activeRef)
	}
}

func (rv *RootView) SetActiveSignature(img signature.Image, ok bool) {
	if rv == nil || rv.Signature == nil {
		return
	}
	if !ok || img.IsZero() {
		rv.Signature.Reset()
		return
	}
	decoded, err := decodeSignature(img)
	if err != nil {
		if rv.logger != nil {
			rv.logger.Warn("active signature decode failed", "ref", img.SourceRef, "error", err)
		}
		rv.Signature.Reset()
		return
	}
	rv.Signature.Update(decoded)
}

func (rv *RootView) SetHistoryBusy(busy bool) {
	if rv == nil {
		return
	}
	state := "normal"
	if busy {
		state = "disabled"
	}
	if rv.loadBtn != nil {
		rv.loadBtn.Configure(State(state))
	}
	if rv.submitBtn != nil {
		rv.submitBtn.Configure(State(state))
	}
	if rv.History != nil {
		rv.History.SetBusy(busy)
	}
}

// --- NoticeView contract ---

// ShowNotice updates the status line.
func (rv *RootView) ShowNotice(msg string) {
	if rv != nil && rv.StatusLabel != nil {
		rv.StatusLabel.Configure(Txt(msg))
	}
}

func decodeSignature(img signature.Image) (image.Image, error) {
	data, err := img.PNG()
	if err != nil {
		return nil, err
	}
	return raster.Decode(data)
}

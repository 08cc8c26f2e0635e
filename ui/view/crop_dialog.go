package view

import (
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/sigdesk-go/domain/crop"
	"github.com/soocke/sigdesk-go/domain/transparency"
	"github.com/soocke/sigdesk-go/ui/images"
	"github.com/soocke/sigdesk-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CropHandlers connects the dialog controls to the crop presenter.
type CropHandlers struct {
	Adjust      func(g crop.Geometry)
	Geometry    func() crop.Geometry
	SetSettings func(s transparency.Settings)
	Apply       func()
	Cancel      func()
}

// CropDialog is the modal window used to zoom, pan and rotate a raw
// signature before it is filtered.
type CropDialog struct {
	logger   *slog.Logger
	handlers CropHandlers

	win      *ToplevelWidget
	preview  *LabelWidget
	photo    *Img
	status   *LabelWidget
	applyBtn *ButtonWidget
	settings SettingsPanel
	controls []*ButtonWidget
	angle    *TextWidget
	panStep  float64
}

// NewCropDialog returns a closed dialog.
func NewCropDialog(handlers CropHandlers, logger *slog.Logger) *CropDialog {
	return &CropDialog{handlers: handlers, logger: logger}
}

// OpenCrop builds the window for src. The returned preview is released by the
// crop session when it ends.
func (d *CropDialog) OpenCrop(src image.Image, s transparency.Settings) crop.Preview {
	if d.win != nil {
		d.CloseCrop()
	}
	b := src.Bounds()
	d.panStep = crop.PanStep(b.Dx(), b.Dy())

	win := App.Toplevel(Borderwidth(2))
	win.WmTitle("Crop Signature")
	d.win = win
	WmAttributes(win.Window, "-topmost", 1)
	GridColumnConfigure(win.Window, 0, Weight(1))
	GridRowConfigure(win.Window, 0, Weight(1))

	placeholder := images.EncodePNG(image.NewNRGBA(image.Rect(0, 0, 360, 270)))
	d.photo = NewPhoto(Data(placeholder))
	d.preview = win.Label(Image(d.photo), Borderwidth(1), Relief("sunken"))
	Grid(d.preview, Row(0), Column(0), Columnspan(2), Sticky("nsew"), Padx("0.4m"), Pady("0.4m"))
	d.status = win.Label(Txt(""), Anchor("w"))
	Grid(d.status, Row(1), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"))

	tools := win.Frame()
	Grid(tools, Row(2), Column(0), Columnspan(2), Sticky("we"))
	d.controls = nil
	addTool := func(col, row int, label string, f func(crop.Geometry) crop.Geometry) {
		btn := win.Button(Txt(label), Command(func() { d.adjust(f) }))
		Grid(btn, In(tools), Row(row), Column(col), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
		d.controls = append(d.controls, btn)
	}
	addTool(0, 0, "Zoom +", func(g crop.Geometry) crop.Geometry { return g.ZoomBy(crop.ZoomStep) })
	addTool(1, 0, "Zoom -", func(g crop.Geometry) crop.Geometry { return g.ZoomBy(-crop.ZoomStep) })
	addTool(2, 0, "Rotate -90", func(g crop.Geometry) crop.Geometry { return g.RotateBy(-90) })
	addTool(3, 0, "Rotate +90", func(g crop.Geometry) crop.Geometry { return g.RotateBy(90) })
	addTool(4, 0, "Rotate -5", func(g crop.Geometry) crop.Geometry { return g.RotateBy(-5) })
	addTool(5, 0, "Rotate +5", func(g crop.Geometry) crop.Geometry { return g.RotateBy(5) })
	addTool(0, 1, "Left", func(g crop.Geometry) crop.Geometry { return g.PanBy(-d.panStep, 0) })
	addTool(1, 1, "Right", func(g crop.Geometry) crop.Geometry { return g.PanBy(d.panStep, 0) })
	addTool(2, 1, "Up", func(g crop.Geometry) crop.Geometry { return g.PanBy(0, -d.panStep) })
	addTool(3, 1, "Down", func(g crop.Geometry) crop.Geometry { return g.PanBy(0, d.panStep) })
	addTool(4, 1, "Reset", func(crop.Geometry) crop.Geometry { return crop.Geometry{Zoom: crop.MinZoom} })
	addTool(5, 1, "Rotate +1", func(g crop.Geometry) crop.Geometry { return g.RotateBy(1) })

	angleLbl := win.Label(Txt("Angle (0-359)"), Anchor("w"))
	Grid(angleLbl, In(tools), Row(2), Column(0), Columnspan(2), Sticky("w"), Padx("0.2m"))
	d.angle = win.Text(Height(1), Width(5))
	Grid(d.angle, In(tools), Row(2), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	d.angle.Insert("1.0", "0")
	setAngle := win.Button(Txt("Set Angle"), Command(d.setAngle))
	Grid(setAngle, In(tools), Row(2), Column(3), Columnspan(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	d.controls = append(d.controls, setAngle)

	settingsFrame := win.Frame(Borderwidth(1), Relief("groove"))
	Grid(settingsFrame, Row(3), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	d.settings = NewSettingsPanel(s, d.handlers.SetSettings)
	d.settings.Build(win, settingsFrame, 0)

	actions := win.Frame()
	Grid(actions, Row(4), Column(0), Columnspan(2), Sticky("we"))
	d.applyBtn = win.Button(Txt("Apply [Enter]"), Command(d.apply))
	Grid(d.applyBtn, In(actions), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	cancel := win.Button(Txt("Cancel [Esc]"), Command(d.cancel))
	Grid(cancel, In(actions), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(win, "<Return>", Command(d.apply))
	Bind(win, "<Escape>", Command(d.cancel))
	WmProtocol(win.Window, "WM_DELETE_WINDOW", d.cancel)

	return crop.ReleaseFunc(func() {
		if d.photo != nil {
			d.photo.Delete()
			d.photo = nil
		}
	})
}

// ShowCropPreview replaces the preview image and the geometry readout.
func (d *CropDialog) ShowCropPreview(img image.Image, g crop.Geometry) {
	if d.win == nil || d.preview == nil || img == nil {
		return
	}
	png := images.EncodePNG(img)
	if len(png) == 0 {
		return
	}
	next := NewPhoto(Data(png))
	d.preview.Configure(Image(next))
	if d.photo != nil {
		d.photo.Delete()
	}
	d.photo = next
	d.status.Configure(Txt(fmt.Sprintf("Zoom %.2fx  Rotation %d°", g.Zoom, g.Rotation)))
	if d.angle != nil {
		d.angle.Delete("1.0", END)
		d.angle.Insert("1.0", strconv.Itoa(g.Rotation))
	}
}

// SetCropBusy disables the controls while the filter runs.
func (d *CropDialog) SetCropBusy(busy bool) {
	if d.win == nil {
		return
	}
	state := "normal"
	if busy {
		state = "disabled"
		d.status.Configure(Txt("Processing..."))
	}
	if d.applyBtn != nil {
		d.applyBtn.Configure(State(state))
	}
	for _, b := range d.controls {
		b.Configure(State(state))
	}
	if d.angle != nil {
		d.angle.Configure(State(state))
	}
	if d.settings != nil {
		d.settings.SetEditable(!busy)
	}
}

// CloseCrop destroys the window.
func (d *CropDialog) CloseCrop() {
	if d.win == nil {
		return
	}
	Destroy(d.win)
	d.win = nil
	d.preview = nil
	d.status = nil
	d.applyBtn = nil
	d.controls = nil
	d.angle = nil
	d.settings = nil
}

func (d *CropDialog) adjust(f func(crop.Geometry) crop.Geometry) {
	if d.handlers.Adjust == nil || d.handlers.Geometry == nil {
		return
	}
	d.handlers.Adjust(f(d.handlers.Geometry()))
}

// setAngle rotates to the degree typed in the angle field.
func (d *CropDialog) setAngle() {
	if d.angle == nil {
		return
	}
	deg, ok := model.ParseAngle(strings.Join(d.angle.Get("1.0", END), ""))
	if !ok {
		d.status.Configure(Txt("Angle must be a whole number of degrees"))
		return
	}
	d.adjust(func(g crop.Geometry) crop.Geometry { return g.RotateTo(deg) })
}

func (d *CropDialog) apply() {
	if d.settings != nil && d.handlers.SetSettings != nil {
		d.handlers.SetSettings(d.settings.Settings())
	}
	if d.handlers.Apply != nil {
		d.handlers.Apply()
	}
}

func (d *CropDialog) cancel() {
	if d.handlers.Cancel != nil {
		d.handlers.Cancel()
		return
	}
	d.CloseCrop()
}

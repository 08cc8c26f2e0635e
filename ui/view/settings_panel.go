package view

import (
	"strings"

	"github.com/soocke/sigdesk-go/domain/transparency"
	"github.com/soocke/sigdesk-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// SettingsPanel is the transparency settings form embedded in the crop dialog.
// It owns its widgets and reports parsed settings through onChange.
type SettingsPanel interface {
	Build(win *ToplevelWidget, parent *FrameWidget, startRow int) (endRow int)
	SetEditable(enabled bool)
	Settings() transparency.Settings
}

type settingsPanel struct {
	current  transparency.Settings
	onChange func(transparency.Settings)
	applyBtn *ButtonWidget
	note     *LabelWidget
	widgets  map[string]*TextWidget
}

// NewSettingsPanel creates the panel seeded with s.
func NewSettingsPanel(s transparency.Settings, onChange func(transparency.Settings)) SettingsPanel {
	return &settingsPanel{current: s, onChange: onChange, widgets: make(map[string]*TextWidget)}
}

func (v *settingsPanel) Build(win *ToplevelWidget, parent *FrameWidget, startRow int) (row int) {
	form := model.FormFromSettings(v.current)
	row = startRow
	makeRow := func(id, label, value string) {
		lbl := win.Label(Txt(label), Anchor("w"))
		Grid(lbl, In(parent), Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := win.Text(Height(1), Width(8))
		Grid(w, In(parent), Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value)
		v.widgets[id] = w
		row++
	}
	makeRow("white", "White threshold (200-255)", form.White)
	makeRow("black", "Black threshold (0-50)", form.Black)
	makeRow("advanced", "Advanced (true/false)", form.Advanced)
	v.applyBtn = win.Button(Txt("Update Preview Settings"), Command(v.apply))
	Grid(v.applyBtn, In(parent), Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	v.note = win.Label(Txt(""), Anchor("w"))
	Grid(v.note, In(parent), Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"))
	row++
	return row
}

func (v *settingsPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(State(state))
		}
	}
	if v.applyBtn != nil {
		v.applyBtn.Configure(State(state))
	}
}

// Settings parses the current widget text.
func (v *settingsPanel) Settings() transparency.Settings {
	form := model.SettingsForm{
		White:    v.text("white"),
		Black:    v.text("black"),
		Advanced: v.text("advanced"),
	}
	s, err := form.Parse(v.current)
	if v.note != nil {
		msg := ""
		if err != nil {
			msg = "Black must stay below white; thresholds reset to defaults"
		}
		v.note.Configure(Txt(msg))
	}
	return s
}

func (v *settingsPanel) apply() {
	v.current = v.Settings()
	// write the validated values back so resets are visible
	form := model.FormFromSettings(v.current)
	v.set("white", form.White)
	v.set("black", form.Black)
	v.set("advanced", form.Advanced)
	if v.onChange != nil {
		v.onChange(v.current)
	}
}

func (v *settingsPanel) text(id string) string {
	w := v.widgets[id]
	if w == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), ""))
}

func (v *settingsPanel) set(id, value string) {
	if w := v.widgets[id]; w != nil {
		w.Delete("1.0", END)
		w.Insert("1.0", value)
	}
}

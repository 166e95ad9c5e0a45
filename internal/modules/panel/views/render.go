package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"time"

	"thermopanel/internal/dashboard"
	"thermopanel/internal/display"
	"thermopanel/internal/gauge"
	"thermopanel/internal/types"
)

// Placeholder is the text of a field that has not been written yet.
const Placeholder = "--"

// gaugeBox is the viewBox geometry of every gauge svg.
const (
	gaugeCenter = 50
	gaugeRadius = 50
)

var panelTmpl *template.Template

// loadTemplatesFromFS loads the page templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	panelTmpl, err = template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type GaugeData struct {
	ID      string
	Label   string
	Palette gauge.Palette
	Arcs    gauge.Arcs
}

type ActionButton struct {
	Action string
	Label  string
}

// PanelData is the view model shared by the page and the panel partial.
type PanelData struct {
	Temperature        string
	Humidity           string
	RunningTime        string
	TargetTemperature  string
	Gauges             []GaugeData
	TargetActions      []ActionButton
	RunningTimeActions []ActionButton
	UpdatedAt          string
}

var (
	targetActions = []ActionButton{
		{Action: types.ActionDecreaseTargetTemp, Label: "−"},
		{Action: types.ActionIncreaseTargetTemp, Label: "+"},
	}
	runningTimeActions = []ActionButton{
		{Action: types.ActionDecreaseRunningTime, Label: "−"},
		{Action: types.ActionIncreaseRunningTime, Label: "+"},
	}
)

// NewPanelData builds the view model from a dashboard view.
func NewPanelData(v dashboard.View) *PanelData {
	d := &PanelData{
		Temperature:        fieldOr(v.Fields, display.TemperatureField),
		Humidity:           fieldOr(v.Fields, display.HumidityField),
		RunningTime:        fieldOr(v.Fields, display.RunningTimeField),
		TargetTemperature:  fieldOr(v.Fields, display.TargetTemperatureField),
		TargetActions:      targetActions,
		RunningTimeActions: runningTimeActions,
		Gauges: []GaugeData{
			gaugeData("Temperature", v.Temperature),
			gaugeData("Humidity", v.Humidity),
		},
	}
	if !v.UpdatedAt.IsZero() {
		d.UpdatedAt = v.UpdatedAt.Format(time.TimeOnly)
	}
	return d
}

// SkeletonData is the view model of the page before any tick: every field
// shows the placeholder and both gauges show the empty series.
func SkeletonData() *PanelData {
	empty := func(surface string, p gauge.Palette) gauge.Snapshot {
		return gauge.Snapshot{Surface: surface, Palette: p, Style: gauge.DefaultStyle, Series: [2]float64{0, gauge.Full}}
	}
	return NewPanelData(dashboard.View{
		Temperature: empty(gauge.TemperatureSurface, gauge.TemperaturePalette),
		Humidity:    empty(gauge.HumiditySurface, gauge.HumidityPalette),
	})
}

func gaugeData(label string, s gauge.Snapshot) GaugeData {
	return GaugeData{
		ID:      s.Surface,
		Label:   label,
		Palette: s.Palette,
		Arcs:    s.Arcs(gaugeCenter, gaugeCenter, gaugeRadius),
	}
}

func fieldOr(fields map[string]string, id string) string {
	if v, ok := fields[id]; ok {
		return v
	}
	return Placeholder
}

func RenderDashboard(w io.Writer, data *PanelData) error {
	if panelTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return panelTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderPanelPartial executes only the panel partial into w.
// Use for HTMX fragment refresh and websocket pushes.
func RenderPanelPartial(w io.Writer, data *PanelData) error {
	if panelTmpl == nil {
		return errors.New("panel template not loaded: call views.LoadTemplates during startup")
	}
	return panelTmpl.ExecuteTemplate(w, "partials/panel.html", data)
}

// RenderSkeleton renders the full page as it looks before the first tick.
// Its markup declares the fields and chart surfaces of the dashboard.
func RenderSkeleton(w io.Writer) error {
	return RenderDashboard(w, SkeletonData())
}

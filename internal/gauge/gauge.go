// Package gauge owns the two donut gauges of the dashboard and keeps their
// series in sync with the latest readings.
package gauge

import (
	"errors"
	"fmt"
	"sync"
)

// Full is the value the complement slot is measured against.
const Full = 100

// Surface ids the gauges bind to.
const (
	TemperatureSurface = "temperatureChart"
	HumiditySurface    = "humidityChart"
)

// Palette is the two-colour scheme of a gauge: value slot, remainder slot.
type Palette struct {
	Value     string
	Remainder string
}

// Style is the fixed visual configuration shared by both gauges.
type Style struct {
	// CutoutPercent is the inner radius as a percentage of the outer one.
	CutoutPercent float64
	// Rotation is the start angle in degrees, clockwise from 12 o'clock.
	Rotation float64
	// Circumference is the arc span in degrees.
	Circumference float64
	BorderWidth   float64
	Tooltips      bool
	Legend        bool
}

var (
	DefaultStyle = Style{
		CutoutPercent: 85,
		Rotation:      -125,
		Circumference: 250,
	}
	TemperaturePalette = Palette{Value: "#3498db", Remainder: "#ecf0f1"}
	HumidityPalette    = Palette{Value: "#1abc9c", Remainder: "#ecf0f1"}
)

// Binder resolves rendering surfaces by element id.
type Binder interface {
	Surface(id string) error
}

// Gauge is a single donut widget. The series is always [v, Full-v].
type Gauge struct {
	surface string
	palette Palette
	style   Style
	series  [2]float64
	redraws int
}

// Snapshot is a read-only copy of a gauge.
type Snapshot struct {
	Surface string
	Palette Palette
	Style   Style
	Series  [2]float64
	Redraws int
}

func newGauge(surface string, palette Palette, style Style) *Gauge {
	return &Gauge{
		surface: surface,
		palette: palette,
		style:   style,
		series:  [2]float64{0, Full},
	}
}

func (g *Gauge) set(v float64) {
	g.series = [2]float64{v, Full - v}
	g.redraws++
}

func (g *Gauge) snapshot() Snapshot {
	return Snapshot{
		Surface: g.surface,
		Palette: g.palette,
		Style:   g.style,
		Series:  g.series,
		Redraws: g.redraws,
	}
}

// Charts holds both gauge handles for the lifetime of the dashboard.
// It is safe for concurrent use; concurrent updates are last-write-wins.
type Charts struct {
	mu          sync.RWMutex
	temperature *Gauge
	humidity    *Gauge
}

// ErrNoSurface is returned when a gauge's rendering surface does not exist.
var ErrNoSurface = errors.New("gauge surface not found")

// Initialize binds both gauges to their surfaces with the placeholder
// series [0, 100].
func Initialize(b Binder) (*Charts, error) {
	for _, id := range []string{TemperatureSurface, HumiditySurface} {
		if err := b.Surface(id); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrNoSurface, id, err)
		}
	}
	return &Charts{
		temperature: newGauge(TemperatureSurface, TemperaturePalette, DefaultStyle),
		humidity:    newGauge(HumiditySurface, HumidityPalette, DefaultStyle),
	}, nil
}

// Update replaces both series and requests a redraw.
func (c *Charts) Update(temperature, humidity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.temperature.set(temperature)
	c.humidity.set(humidity)
}

func (c *Charts) Temperature() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.temperature.snapshot()
}

func (c *Charts) Humidity() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.humidity.snapshot()
}

// Package dashboard applies fetched controller state to the page: text
// fields first, then the gauges, then every subscriber.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"thermopanel/internal/display"
	"thermopanel/internal/gauge"
	"thermopanel/internal/timefmt"
	"thermopanel/internal/types"
)

// View is an immutable picture of the dashboard after a tick.
type View struct {
	Seq         uint64
	UpdatedAt   time.Time
	State       *types.ServerState
	Fields      map[string]string
	Temperature gauge.Snapshot
	Humidity    gauge.Snapshot
}

type Board struct {
	doc    *display.Document
	charts *gauge.Charts
	now    func() time.Time

	mu        sync.Mutex
	seq       uint64
	updatedAt time.Time
	state     *types.ServerState
	subs      []chan View

	wg sync.WaitGroup
}

// New binds the gauges to the document's surfaces; a missing surface
// fails here, before any tick runs.
func New(doc *display.Document) (*Board, error) {
	charts, err := gauge.Initialize(doc)
	if err != nil {
		return nil, fmt.Errorf("initialize charts: %w", err)
	}
	return &Board{doc: doc, charts: charts, now: time.Now}, nil
}

// Fields renders the text of every field for a state.
func Fields(s types.ServerState) map[string]string {
	return map[string]string{
		display.TemperatureField:       formatNumber(s.Temperature) + " °C",
		display.HumidityField:          formatNumber(s.Humidity) + " %",
		display.RunningTimeField:       timefmt.FormatRunningTime(s.RunningTime),
		display.TargetTemperatureField: formatNumber(s.TargetTemperature) + " °C",
	}
}

// formatNumber prints the shortest decimal that round-trips, switching to
// exponent form below 1e-6 and from 1e21 up, as browsers print numbers.
func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	if abs := math.Abs(v); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Apply writes a state to the text fields and gauges. If a field is
// missing nothing is changed.
func (b *Board) Apply(seq uint64, s types.ServerState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.doc.SetTexts(Fields(s)); err != nil {
		return err
	}
	b.charts.Update(s.Temperature, s.Humidity)

	b.seq = seq
	b.updatedAt = b.now()
	b.state = &s
	b.publish(b.viewLocked())
	return nil
}

func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewLocked()
}

func (b *Board) viewLocked() View {
	v := View{
		Seq:         b.seq,
		UpdatedAt:   b.updatedAt,
		Fields:      b.doc.Fields(),
		Temperature: b.charts.Temperature(),
		Humidity:    b.charts.Humidity(),
	}
	if b.state != nil {
		s := *b.state
		v.State = &s
	}
	return v
}

// Subscribe runs fn on its own goroutine for every applied view until ctx
// is done. A slow fn only ever sees the latest view; intermediate views
// are skipped.
func (b *Board) Subscribe(ctx context.Context, fn func(View)) {
	ch := make(chan View, 1)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-ch:
				fn(v)
			}
		}
	}()
}

// Wait blocks until every subscriber goroutine has returned.
func (b *Board) Wait() {
	b.wg.Wait()
}

func (b *Board) publish(v View) {
	for _, ch := range b.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Replace the pending view with the newer one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Package stub is an in-memory stand-in for the thermostat controller
// server, used for local development and end-to-end tests.
package stub

import (
	"context"
	"math"
	"sync"
	"time"

	"thermopanel/internal/timefmt"
	"thermopanel/internal/types"
)

const (
	TargetStep      = 0.5
	MinTarget       = 5.0
	MaxTarget       = 35.0
	RunningTimeStep = 10.0
	// MaxRunningTime is the value the dashboard shows as INDEFINITELY.
	MaxRunningTime = timefmt.IndefiniteThreshold

	// DriftPerSecond is how far the temperature moves toward the target
	// each second while running.
	DriftPerSecond = 0.05
)

// Result values of Press.
const (
	StatusSuccess = "success"
	StatusIgnored = "ignored"
)

// Thermostat is a simulated controller. It is safe for concurrent use.
type Thermostat struct {
	mu      sync.Mutex
	state   types.ServerState
	partial time.Duration
}

func NewThermostat(initial types.ServerState) *Thermostat {
	return &Thermostat{state: initial}
}

// DefaultState is a plausible idle room.
func DefaultState() types.ServerState {
	return types.ServerState{Temperature: 19.5, Humidity: 45, RunningTime: 0, TargetTemperature: 21}
}

func (t *Thermostat) State() types.ServerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Reading makes the thermostat a Device; it always has a state.
func (t *Thermostat) Reading() (types.ServerState, bool) {
	return t.State(), true
}

// Press applies an action and reports StatusSuccess, or StatusIgnored for
// an action it does not know.
func (t *Thermostat) Press(action string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.state
	switch action {
	case types.ActionIncreaseTargetTemp:
		s.TargetTemperature = clamp(s.TargetTemperature+TargetStep, MinTarget, MaxTarget)
	case types.ActionDecreaseTargetTemp:
		s.TargetTemperature = clamp(s.TargetTemperature-TargetStep, MinTarget, MaxTarget)
	case types.ActionIncreaseRunningTime:
		s.RunningTime = clamp(s.RunningTime+RunningTimeStep, 0, MaxRunningTime)
	case types.ActionDecreaseRunningTime:
		s.RunningTime = clamp(s.RunningTime-RunningTimeStep, 0, MaxRunningTime)
		if s.RunningTime == 0 {
			t.partial = 0
		}
	default:
		return StatusIgnored
	}
	return StatusSuccess
}

// Advance moves the simulation forward by d.
func (t *Thermostat) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.state
	if s.RunningTime <= 0 {
		return
	}

	gap := s.TargetTemperature - s.Temperature
	step := math.Min(math.Abs(gap), DriftPerSecond*d.Seconds())
	s.Temperature = round2(s.Temperature + math.Copysign(step, gap))

	if s.RunningTime >= MaxRunningTime {
		return
	}
	t.partial += d
	for t.partial >= time.Minute && s.RunningTime > 0 {
		t.partial -= time.Minute
		s.RunningTime = math.Max(0, s.RunningTime-1)
	}
	if s.RunningTime == 0 {
		t.partial = 0
	}
}

// Run advances the simulation every period until ctx is done.
func (t *Thermostat) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Advance(period)
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package stub

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"thermopanel/internal/types"
)

// Scenario is the YAML file accepted by stubserver --scenario.
//
//	state:
//	  temperature: 19.5
//	  humidity: 45
//	  running_time: 30
//	  target_temperature: 22
//	step: 1s
//	latency: 50ms
//	jitter: 400ms
type Scenario struct {
	State   ScenarioState `yaml:"state"`
	Step    time.Duration `yaml:"step"`
	Latency time.Duration `yaml:"latency"`
	Jitter  time.Duration `yaml:"jitter"`
}

// ScenarioState holds pointers so absent keys keep the default state.
type ScenarioState struct {
	Temperature       *float64 `yaml:"temperature"`
	Humidity          *float64 `yaml:"humidity"`
	RunningTime       *float64 `yaml:"running_time"`
	TargetTemperature *float64 `yaml:"target_temperature"`
}

// DefaultScenario runs DefaultState with a one second step and no latency.
func DefaultScenario() Scenario {
	return Scenario{Step: time.Second}
}

func LoadScenario(filename string) (Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (Scenario, error) {
	sc := DefaultScenario()
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc, nil
}

func (s Scenario) Validate() error {
	if s.Step <= 0 {
		return fmt.Errorf("step must be positive, got %v", s.Step)
	}
	if s.Latency < 0 || s.Jitter < 0 {
		return fmt.Errorf("latency and jitter must not be negative")
	}
	if t := s.State.TargetTemperature; t != nil && (*t < MinTarget || *t > MaxTarget) {
		return fmt.Errorf("target_temperature %v outside %v..%v", *t, MinTarget, MaxTarget)
	}
	if r := s.State.RunningTime; r != nil && (*r < 0 || *r > MaxRunningTime) {
		return fmt.Errorf("running_time %v outside 0..%v", *r, MaxRunningTime)
	}
	return nil
}

// Initial is DefaultState overlaid with the keys the scenario sets.
func (s Scenario) Initial() types.ServerState {
	st := DefaultState()
	if v := s.State.Temperature; v != nil {
		st.Temperature = *v
	}
	if v := s.State.Humidity; v != nil {
		st.Humidity = *v
	}
	if v := s.State.RunningTime; v != nil {
		st.RunningTime = *v
	}
	if v := s.State.TargetTemperature; v != nil {
		st.TargetTemperature = *v
	}
	return st
}

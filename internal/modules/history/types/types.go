package types

import "time"

// Sample is one recorded controller state.
type Sample struct {
	Seq               uint64    `json:"seq"`
	Time              time.Time `json:"time"`
	Temperature       float64   `json:"temperature"`
	Humidity          float64   `json:"humidity"`
	RunningTime       float64   `json:"running_time"`
	TargetTemperature float64   `json:"target_temperature"`
}

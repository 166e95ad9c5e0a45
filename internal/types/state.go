package types

// ServerState is the body of GET /data on the collaborator.
type ServerState struct {
	Temperature       float64 `json:"temperature"`
	Humidity          float64 `json:"humidity"`
	RunningTime       float64 `json:"running_time"`
	TargetTemperature float64 `json:"target_temperature"`
}

// ActionRequest is the body of POST /button-press.
type ActionRequest struct {
	Action string `json:"action"`
}

// Actions understood by the controller.
const (
	ActionIncreaseTargetTemp  = "increase-target-temp"
	ActionDecreaseTargetTemp  = "decrease-target-temp"
	ActionIncreaseRunningTime = "increase-running-time"
	ActionDecreaseRunningTime = "decrease-running-time"
)

// KnownActions lists the actions rendered as buttons, in display order.
var KnownActions = []string{
	ActionDecreaseTargetTemp,
	ActionIncreaseTargetTemp,
	ActionDecreaseRunningTime,
	ActionIncreaseRunningTime,
}

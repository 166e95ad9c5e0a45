package stub

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"thermopanel/internal/httpapi"
	"thermopanel/internal/types"
)

type pressResponse struct {
	Status  string `json:"status"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message,omitempty"`
}

// Device is what the handler serves: the simulated Thermostat or an
// Upstream controller.
type Device interface {
	// Reading returns the current state; ok is false while none is known.
	Reading() (state types.ServerState, ok bool)
	// Press applies an action and returns StatusSuccess, StatusIgnored or
	// StatusFailed.
	Press(action string) string
}

// nullReading is served before a device has any state.
var nullReading = map[string]any{
	"temperature":        nil,
	"humidity":           nil,
	"running_time":       nil,
	"target_temperature": nil,
}

// Handler serves GET /data and POST /button-press from a device.
type Handler struct {
	device Device
	logger *slog.Logger

	latency time.Duration
	jitter  time.Duration
}

func NewHandler(d Device, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{device: d, logger: logger}
}

// WithLatency delays every GET /data by latency plus a random share of
// jitter, so responses to overlapping polls can complete out of order.
func (h *Handler) WithLatency(latency, jitter time.Duration) *Handler {
	h.latency = latency
	h.jitter = jitter
	return h
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /data", h.handleData)
	mux.HandleFunc("POST /button-press", h.handleButtonPress)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (h *Handler) handleData(w http.ResponseWriter, r *http.Request) {
	// State is read before the delay, like a controller that answers late.
	state, ok := h.device.Reading()
	if d := h.delay(); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if !ok {
		httpapi.WriteJSON(w, http.StatusOK, nullReading)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) delay() time.Duration {
	d := h.latency
	if h.jitter > 0 {
		d += rand.N(h.jitter)
	}
	return d
}

func (h *Handler) handleButtonPress(w http.ResponseWriter, r *http.Request) {
	var req types.ActionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		httpapi.WriteJSON(w, http.StatusBadRequest, pressResponse{Status: "error", Message: "invalid JSON body"})
		return
	}
	status := h.device.Press(req.Action)
	switch status {
	case StatusIgnored:
		h.logger.Warn("unknown action", "action", req.Action)
	case StatusFailed:
		httpapi.WriteJSON(w, http.StatusBadGateway, pressResponse{Status: status, Action: req.Action, Message: "controller did not accept the action"})
		return
	default:
		state, _ := h.device.Reading()
		h.logger.Info("action applied", "action", req.Action, "state", state)
	}
	httpapi.WriteJSON(w, http.StatusOK, pressResponse{Status: status, Action: req.Action})
}

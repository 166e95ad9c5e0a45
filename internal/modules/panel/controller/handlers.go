package controller

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"thermopanel/internal/httpapi"
	"thermopanel/internal/modules/panel/views"
	"thermopanel/internal/types"
)

func (c *panelControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, views.NewPanelData(c.views.View())); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("dashboard: write response failed", "error", err)
	}
}

func (c *panelControllerImpl) handlePanelPartial(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := views.RenderPanelPartial(&buf, views.NewPanelData(c.views.View())); err != nil {
		slog.Error("panel partial render failed", "error", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("panel: write response failed", "error", err)
	}
}

type stateResponse struct {
	Seq       uint64             `json:"seq"`
	UpdatedAt *time.Time         `json:"updated_at"`
	State     *types.ServerState `json:"state"`
	Fields    map[string]string  `json:"fields"`
	Gauges    map[string]gauge   `json:"gauges"`
}

type gauge struct {
	Series [2]float64 `json:"series"`
	Colors [2]string  `json:"colors"`
}

func (c *panelControllerImpl) handleState(w http.ResponseWriter, r *http.Request) {
	v := c.views.View()
	resp := stateResponse{
		Seq:    v.Seq,
		State:  v.State,
		Fields: v.Fields,
		Gauges: map[string]gauge{
			v.Temperature.Surface: {Series: v.Temperature.Series, Colors: [2]string{v.Temperature.Palette.Value, v.Temperature.Palette.Remainder}},
			v.Humidity.Surface:    {Series: v.Humidity.Series, Colors: [2]string{v.Humidity.Palette.Value, v.Humidity.Palette.Remainder}},
		},
	}
	if !v.UpdatedAt.IsZero() {
		t := v.UpdatedAt.UTC()
		resp.UpdatedAt = &t
	}
	httpapi.WriteJSON(w, http.StatusOK, resp)
}

// handleAction accepts the press and forwards it without waiting; the
// outcome of the forward only reaches the log.
func (c *panelControllerImpl) handleAction(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimSpace(r.PathValue("action"))
	if action == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "missing action")
		return
	}
	c.actions.Forward(action)
	httpapi.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "action": action})
}

package controller

import (
	"log/slog"
	"net/http"

	"thermopanel/internal/httpapi"
)

func (c *historyControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	from, to, limit, err := parseReadingsQuery(r)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	samples, err := c.repository.List(r.Context(), from, to, limit)
	if err != nil {
		slog.Error("readings: list samples failed", "error", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"from":  zeroAsNullTime(from),
		"to":    zeroAsNullTime(to),
		"limit": limit,
		"items": samples,
	})
}

func (c *historyControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := c.repository.Latest(r.Context())
	if err != nil {
		slog.Error("readings: latest sample failed", "error", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to load reading")
		return
	}
	if latest == nil {
		httpapi.WriteError(w, http.StatusNotFound, "no readings recorded yet")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, latest)
}

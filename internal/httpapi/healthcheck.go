package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"
)

const dbPingTimeout = 2 * time.Second

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

// healthcheckerImpl reports ok, plus whether the history store answers.
// A nil db means history is disabled and is not an error.
type healthcheckerImpl struct {
	db *sql.DB
}

func NewHealthchecker(db *sql.DB) healthchecker {
	return &healthcheckerImpl{db: db}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	history := "disabled"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), dbPingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			slog.Error("history database unreachable", "error", err)
			WriteError(w, http.StatusInternalServerError, "history database unreachable")
			return
		}
		history = "enabled"
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "history": history})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB) {
	mux.HandleFunc("GET /healthz", NewHealthchecker(db).handleHealthz)
}

// Package history records applied dashboard states in sqlite and serves
// them back over the readings API.
package history

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"thermopanel/internal/config"
	"thermopanel/internal/dashboard"
	"thermopanel/internal/modules/history/controller"
	"thermopanel/internal/modules/history/repository"
	"thermopanel/internal/modules/history/service"
)

// RegisterFeature mounts the readings API and starts recording every view
// the board applies until ctx is done.
func RegisterFeature(ctx context.Context, mux *http.ServeMux, db *sql.DB, board *dashboard.Board, cfg config.Config, logger *slog.Logger) {
	historyRepository := repository.NewRepository(db)
	historyController := controller.NewHistoryController(historyRepository)
	historyController.RegisterRoutes(mux)

	recorder := service.NewRecorder(historyRepository, service.Options{
		SampleInterval: cfg.HistorySampleInterval,
		Retention:      cfg.HistoryRetention,
		Logger:         logger.With("component", "history"),
	})
	board.Subscribe(ctx, func(v dashboard.View) {
		recorder.Record(ctx, v)
	})
}

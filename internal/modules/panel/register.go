// Package panel serves the dashboard page and keeps connected browsers in
// sync with every applied tick.
package panel

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"thermopanel/internal/action"
	"thermopanel/internal/dashboard"
	"thermopanel/internal/live"
	"thermopanel/internal/modules/panel/controller"
	"thermopanel/internal/modules/panel/views"
)

// RegisterFeature mounts the page, API and websocket routes and pushes the
// rendered panel to hub after every applied view until ctx is done.
func RegisterFeature(ctx context.Context, mux *http.ServeMux, board *dashboard.Board, sender *action.Sender, hub *live.Hub, logger *slog.Logger) {
	panelController := controller.NewPanelController(board, sender, hub)
	panelController.RegisterRoutes(mux)

	board.Subscribe(ctx, func(v dashboard.View) {
		var buf bytes.Buffer
		if err := views.RenderPanelPartial(&buf, views.NewPanelData(v)); err != nil {
			logger.Error("panel push render failed", "seq", v.Seq, "error", err)
			return
		}
		hub.Broadcast(buf.Bytes())
	})
}

package controller

import (
	"net/http"

	"thermopanel/internal/dashboard"
)

// ViewSource exposes the latest dashboard view.
type ViewSource interface {
	View() dashboard.View
}

// Forwarder sends an action to the controller server in the background.
type Forwarder interface {
	Forward(action string)
}

type PanelController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type panelControllerImpl struct {
	views   ViewSource
	actions Forwarder
	live    http.Handler
}

func NewPanelController(views ViewSource, actions Forwarder, live http.Handler) PanelController {
	return &panelControllerImpl{views: views, actions: actions, live: live}
}

func (c *panelControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/panel", c.handlePanelPartial)
	mux.HandleFunc("GET /api/v1/state", c.handleState)
	mux.HandleFunc("POST /actions/{action}", c.handleAction)
	if c.live != nil {
		mux.Handle("GET /ws", c.live)
	}
}

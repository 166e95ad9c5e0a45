package controller

import (
	"net/http"

	"thermopanel/internal/modules/history/repository"
)

type HistoryController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type historyControllerImpl struct {
	repository repository.HistoryRepository
}

func NewHistoryController(repository repository.HistoryRepository) HistoryController {
	return &historyControllerImpl{repository: repository}
}

func (c *historyControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/readings", c.handleReadings)
	mux.HandleFunc("GET /api/v1/readings/latest", c.handleLatest)
}

package httpapi

import (
	"log/slog"
	"net/http"
	"time"
)

// NewServer wraps handler with request logging. WriteTimeout stays unset
// because /ws connections are long-lived.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              addr,
		Handler:           requestLogger(logger, handler),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

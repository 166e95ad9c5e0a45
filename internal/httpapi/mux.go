package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux serving /healthz. db may be nil when history is off.
func NewMux(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	return mux
}

package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

// Metrics exposes the Prometheus registry
func Metrics(d deps.Deps) http.Handler {
	if d.Metrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusNotFound, "Metrics are disabled")
		})
	}
	return d.Metrics.Handler()
}

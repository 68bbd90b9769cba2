package mw

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the browser client call the API from the listed origins.
// "*" allows any origin. Preflights from other origins get no
// Access-Control-Allow-* headers, so the browser blocks the call.
func CORS(allowed []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Request-ID"},
		MaxAge:         600, // seconds
	})
}

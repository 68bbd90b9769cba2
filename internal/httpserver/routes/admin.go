package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register("admin", registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	admin := mw.AdminOnly(d.AdminCIDRS, d.TrustProxy, d.Logger)
	r.With(admin).Post("/reload", handlers.Reload(d))
	r.With(admin).Method("GET", "/metrics", handlers.Metrics(d))
}

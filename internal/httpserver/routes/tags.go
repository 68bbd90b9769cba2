package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
)

func init() { Register("tags", registerTags) }

func registerTags(r chi.Router, d deps.Deps) {
	r.Get("/tags", handlers.ListTags(d))
}

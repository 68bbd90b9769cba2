package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register("bookmarks", registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	// One bucket set shared by every write route
	limit := mw.RateLimit(mw.RateLimitConfig{
		PerSecond:  d.RateLimit,
		Burst:      d.RateBurst,
		IdleTTL:    d.RateIdleTTL,
		MaxEntries: 10000,
		TrustProxy: d.TrustProxy,
		Metrics:    d.Metrics,
	})

	r.Route("/bookmarks", func(r chi.Router) {
		r.Get("/", handlers.ListBookmarks(d))
		r.With(limit).Post("/", handlers.CreateBookmark(d))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetBookmark(d))
			r.With(limit).Put("/", handlers.UpdateBookmark(d))
			r.With(limit).Delete("/", handlers.DeleteBookmark(d))
			r.With(limit).Patch("/favorite", handlers.ToggleFavorite(d))
		})
	})
}

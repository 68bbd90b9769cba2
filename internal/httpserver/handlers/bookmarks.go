package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// ListBookmarks serves GET /bookmarks?tag=|search=|favorite=true
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := domain.FilterFromParams(r.URL.Query())

		bookmarks, err := d.Repo.List(r.Context(), f)
		if err != nil {
			writeRepoError(w, d, err, "Failed to fetch bookmarks")
			return
		}

		d.Logger.Debug("listed bookmarks",
			logger.String("filter", f.Kind().String()),
			logger.Int("count", len(bookmarks)))
		writeData(w, http.StatusOK, bookmarks)
	}
}

// GetBookmark serves GET /bookmarks/{id}
func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bm, err := d.Repo.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeRepoError(w, d, err, "Failed to fetch bookmark")
			return
		}
		writeData(w, http.StatusOK, bm)
	}
}

// CreateBookmark serves POST /bookmarks
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := decodePayload(w, r)
		if !ok {
			return
		}

		bm, err := d.Repo.Create(r.Context(), p)
		d.Metrics.Mutation("create", err)
		if err != nil {
			writeRepoError(w, d, err, "Failed to add bookmark")
			return
		}

		d.Logger.Info("bookmark created",
			logger.String("id", bm.ID),
			logger.String("url", bm.URL))
		writeData(w, http.StatusCreated, bm)
	}
}

// UpdateBookmark serves PUT /bookmarks/{id}
func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := decodePayload(w, r)
		if !ok {
			return
		}

		bm, err := d.Repo.Update(r.Context(), chi.URLParam(r, "id"), p)
		d.Metrics.Mutation("update", err)
		if err != nil {
			writeRepoError(w, d, err, "Failed to update bookmark")
			return
		}

		d.Logger.Info("bookmark updated", logger.String("id", bm.ID))
		writeData(w, http.StatusOK, bm)
	}
}

// DeleteBookmark serves DELETE /bookmarks/{id}
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := d.Repo.Delete(r.Context(), id)
		d.Metrics.Mutation("delete", err)
		if err != nil {
			writeRepoError(w, d, err, "Failed to delete bookmark")
			return
		}

		d.Logger.Info("bookmark deleted", logger.String("id", id))
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

// ToggleFavorite serves PATCH /bookmarks/{id}/favorite
func ToggleFavorite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bm, err := d.Repo.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
		d.Metrics.Mutation("favorite", err)
		if err != nil {
			writeRepoError(w, d, err, "Failed to update favorite")
			return
		}

		d.Logger.Info("bookmark favorite toggled",
			logger.String("id", bm.ID),
			logger.Bool("favorite", bm.IsFavorite))
		writeData(w, http.StatusOK, bm)
	}
}

// ListTags serves GET /tags
func ListTags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := d.Repo.Tags(r.Context())
		if err != nil {
			writeRepoError(w, d, err, "Failed to fetch tags")
			return
		}
		writeData(w, http.StatusOK, tags)
	}
}

// decodePayload reads and re-validates a client payload. On failure it has
// already written the 400 response.
func decodePayload(w http.ResponseWriter, r *http.Request) (domain.Payload, bool) {
	var p domain.Payload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return domain.Payload{}, false
	}

	p = normalizePayload(p)
	if err := p.Validate(); err != nil {
		if verr, ok := err.(*domain.ValidationError); ok {
			writeError(w, http.StatusBadRequest, verr.Message())
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return domain.Payload{}, false
	}
	return p, true
}

func normalizePayload(p domain.Payload) domain.Payload {
	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return domain.Payload{
		URL:         strings.TrimSpace(p.URL),
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
		Tags:        tags,
	}
}

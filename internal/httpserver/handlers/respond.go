package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/repository"
)

// maxBodyBytes caps request bodies on write routes.
const maxBodyBytes = 1 << 20

type dataResponse struct {
	Data any `json:"data"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, dataResponse{Data: v})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

// writeRepoError maps repository failures to HTTP. Unexpected errors are
// logged and answered with the operation's generic message.
func writeRepoError(w http.ResponseWriter, d deps.Deps, err error, fallback string) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Bookmark not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message())
	default:
		d.Logger.Error(fallback, logger.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

const readyzTimeout = 2 * time.Second

type componentStatus struct {
	OK         bool   `json:"ok"`
	Bookmarks  *int   `json:"bookmarks,omitempty"`
	LastImport string `json:"last_import,omitempty"`
	Imported   *int   `json:"imported,omitempty"`
	Error      string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz reports whether the repository answers. A failing seed import
// is reported but does not make the service unready.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
		defer cancel()

		repo := checkRepository(ctx, d)
		components := map[string]componentStatus{"repository": repo}
		if d.Seed != nil {
			components["seed"] = seedStatus(d)
		}

		status := http.StatusOK
		if !repo.OK {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{
			Ready:      repo.OK,
			Components: components,
		})
	}
}

func checkRepository(ctx context.Context, d deps.Deps) componentStatus {
	if d.Repo == nil {
		return componentStatus{OK: false, Error: "repository not initialized"}
	}
	if err := d.Repo.Ping(ctx); err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}
	n, err := d.Repo.Count(ctx)
	if err != nil {
		return componentStatus{OK: false, Error: err.Error()}
	}
	return componentStatus{OK: true, Bookmarks: &n}
}

func seedStatus(d deps.Deps) componentStatus {
	st := d.Seed.Status()
	last := "never"
	if !st.LastRun.IsZero() {
		last = st.LastRun.Format("2006-01-02 15:04:05")
	}
	created := st.Last.Created
	return componentStatus{
		OK:         st.Err == "",
		LastImport: last,
		Imported:   &created,
		Error:      st.Err,
	}
}

package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/metrics"
	"github.com/MrSnakeDoc/marks/internal/repository"
)

func newTestDeps(repo repository.Repository) deps.Deps {
	return deps.Deps{
		Logger:         logger.NewNop(),
		StartTime:      time.Now(),
		TimeNow:        time.Now,
		Repo:           repo,
		Backend:        "memory",
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"*"},
	}
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v (body=%q)", err, rec.Body.String())
	}
	return env.Data
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Success, body.Message
}

func TestCreateAndGetBookmark(t *testing.T) {
	h := NewRouter(time.Second, newTestDeps(repository.NewMemory()))

	rec := do(t, h, http.MethodPost, "/bookmarks", domain.Payload{
		URL:  "https://go.dev",
		Name: "Go",
		Tags: []string{"go", " web ", "go"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /bookmarks status = %d, want 201 (body=%s)", rec.Code, rec.Body.String())
	}
	created := decodeData[domain.Bookmark](t, rec)
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Errorf("server must assign id and createdAt, got %+v", created)
	}
	if len(created.Tags) != 2 || created.Tags[0] != "go" || created.Tags[1] != "web" {
		t.Errorf("tags = %v, want [go web]", created.Tags)
	}

	rec = do(t, h, http.MethodGet, "/bookmarks/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	got := decodeData[domain.Bookmark](t, rec)
	if got.URL != "https://go.dev" || got.Name != "Go" {
		t.Errorf("GET returned %+v", got)
	}
}

func TestCreateBookmarkValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		message string
	}{
		{name: "missing url", body: domain.Payload{Name: "x"}, message: "URL is required"},
		{name: "invalid url", body: domain.Payload{URL: "not a url", Name: "x"}, message: "Please enter a valid URL"},
		{name: "missing name", body: domain.Payload{URL: "https://a.test"}, message: "Name is required"},
		{name: "long name", body: domain.Payload{URL: "https://a.test", Name: strings.Repeat("n", 101)}, message: "Name must be less than 100 characters"},
		{name: "malformed json", body: "{", message: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemory()
			h := NewRouter(time.Second, newTestDeps(repo))

			rec := do(t, h, http.MethodPost, "/bookmarks", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			success, msg := decodeMessage(t, rec)
			if success || msg != tt.message {
				t.Errorf("body = {success:%v message:%q}, want message %q", success, msg, tt.message)
			}
			if n, _ := repo.Count(context.Background()); n != 0 {
				t.Errorf("invalid payload was stored")
			}
		})
	}
}

func TestListBookmarksFilters(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	h := NewRouter(time.Second, newTestDeps(repo))

	goBm, _ := repo.Create(ctx, domain.Payload{URL: "https://go.dev", Name: "Go", Tags: []string{"go"}})
	_, _ = repo.Create(ctx, domain.Payload{URL: "https://react.dev", Name: "React Native docs", Tags: []string{"js"}})
	if _, err := repo.ToggleFavorite(ctx, goBm.ID); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "all", query: "", want: []string{"React Native docs", "Go"}},
		{name: "tag", query: "?tag=go", want: []string{"Go"}},
		{name: "search is case-insensitive", query: "?search=react%20NATIVE", want: []string{"React Native docs"}},
		{name: "favorites", query: "?favorite=true", want: []string{"Go"}},
		{name: "unknown tag", query: "?tag=rust", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/bookmarks"+tt.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			list := decodeData[[]domain.Bookmark](t, rec)
			if len(list) != len(tt.want) {
				t.Fatalf("got %d bookmarks, want %d", len(list), len(tt.want))
			}
			for i, name := range tt.want {
				if list[i].Name != name {
					t.Errorf("list[%d] = %q, want %q", i, list[i].Name, name)
				}
			}
		})
	}
}

func TestUpdateDeleteFavoriteNotFound(t *testing.T) {
	h := NewRouter(time.Second, newTestDeps(repository.NewMemory()))
	valid := domain.Payload{URL: "https://a.test", Name: "A"}

	tests := []struct {
		method string
		target string
		body   any
	}{
		{http.MethodGet, "/bookmarks/missing", nil},
		{http.MethodPut, "/bookmarks/missing", valid},
		{http.MethodDelete, "/bookmarks/missing", nil},
		{http.MethodPatch, "/bookmarks/missing/favorite", nil},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("%s %s status = %d, want 404", tt.method, tt.target, rec.Code)
			}
			if _, msg := decodeMessage(t, rec); msg != "Bookmark not found" {
				t.Errorf("message = %q", msg)
			}
		})
	}
}

func TestUpdateToggleAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	h := NewRouter(time.Second, newTestDeps(repo))
	bm, _ := repo.Create(ctx, domain.Payload{URL: "https://a.test", Name: "A", Tags: []string{"x"}})

	rec := do(t, h, http.MethodPut, "/bookmarks/"+bm.ID, domain.Payload{URL: "https://b.test", Name: "B", Tags: []string{"y"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d", rec.Code)
	}
	updated := decodeData[domain.Bookmark](t, rec)
	if updated.ID != bm.ID || updated.Name != "B" || !updated.CreatedAt.Equal(bm.CreatedAt) {
		t.Errorf("PUT returned %+v", updated)
	}

	rec = do(t, h, http.MethodPatch, "/bookmarks/"+bm.ID+"/favorite", nil)
	if fav := decodeData[domain.Bookmark](t, rec); !fav.IsFavorite {
		t.Error("PATCH favorite should set isFavorite")
	}

	rec = do(t, h, http.MethodDelete, "/bookmarks/"+bm.ID, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
		t.Fatalf("DELETE = %d %q, want 200 {}", rec.Code, rec.Body.String())
	}
	if _, err := repo.Get(ctx, bm.ID); err == nil {
		t.Error("bookmark still stored after DELETE")
	}
}

func TestListTags(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	h := NewRouter(time.Second, newTestDeps(repo))
	_, _ = repo.Create(ctx, domain.Payload{URL: "https://a.test", Name: "A", Tags: []string{"go", "web"}})
	_, _ = repo.Create(ctx, domain.Payload{URL: "https://b.test", Name: "B", Tags: []string{"go"}})

	rec := do(t, h, http.MethodGet, "/tags", nil)
	tags := decodeData[[]domain.TagCount](t, rec)

	want := []domain.TagCount{{Tag: "go", Count: 2}, {Tag: "web", Count: 1}}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %v, want %v", i, tags[i], want[i])
		}
	}
}

func TestProbes(t *testing.T) {
	h := NewRouter(time.Second, newTestDeps(repository.NewMemory()))

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ready":true`) {
		t.Errorf("readyz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewRouter(time.Second, newTestDeps(repository.NewMemory()))

	_ = do(t, h, http.MethodPost, "/bookmarks", domain.Payload{URL: "https://a.test", Name: "A"})
	rec := do(t, h, http.MethodGet, "/metrics", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"marks_http_requests_total", `marks_bookmark_mutations_total{op="create",outcome="ok"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestReloadWithoutSeed(t *testing.T) {
	h := NewRouter(time.Second, newTestDeps(repository.NewMemory()))

	rec := do(t, h, http.MethodPost, "/reload", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("reload without seed = %d, want 404", rec.Code)
	}
}

func TestReloadTrigger(t *testing.T) {
	d := newTestDeps(repository.NewMemory())
	d.SeedTrigger = make(chan struct{}, 1)
	h := NewRouter(time.Second, d)

	if rec := do(t, h, http.MethodPost, "/reload", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("first reload = %d, want 202", rec.Code)
	}
	// Nobody drains the channel, so a second trigger is refused
	if rec := do(t, h, http.MethodPost, "/reload", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second reload = %d, want 429", rec.Code)
	}
}

func TestAdminCIDRS(t *testing.T) {
	d := newTestDeps(repository.NewMemory())
	d.AdminCIDRS = []string{"10.0.0.0/8"}
	h := NewRouter(time.Second, d)

	// httptest requests come from 192.0.2.1
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("metrics from outside admin CIDR = %d, want 403", rec.Code)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	d := newTestDeps(repository.NewMemory())
	d.RateLimit = 0.001
	d.RateBurst = 2
	h := NewRouter(time.Second, d)

	p := domain.Payload{URL: "https://a.test", Name: "A"}
	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodPost, "/bookmarks", p); rec.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d, want 201", i, rec.Code)
		}
	}

	rec := do(t, h, http.MethodPost, "/bookmarks", p)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third write = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 should carry Retry-After")
	}
	if _, msg := decodeMessage(t, rec); msg == "" {
		t.Error("429 should carry a message")
	}

	// Reads are never throttled
	if rec := do(t, h, http.MethodGet, "/bookmarks", nil); rec.Code != http.StatusOK {
		t.Errorf("read after throttle = %d, want 200", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	d := newTestDeps(repository.NewMemory())
	d.AllowedOrigins = []string{"http://app.test"}
	h := NewRouter(time.Second, d)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/bookmarks", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://app.test")
	if rec.Code >= 300 {
		t.Fatalf("preflight status = %d, want 2xx", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.test" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != http.MethodPost {
		t.Errorf("Allow-Methods = %q, want POST", got)
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("Max-Age = %q, want 600", got)
	}

	rec = preflight("http://evil.test")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("preflight from unknown origin got Allow-Origin %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "" {
		t.Errorf("preflight from unknown origin got Allow-Methods %q", got)
	}
}

func TestCORSWildcardOnSimpleRequest(t *testing.T) {
	h := NewRouter(time.Second, newTestDeps(repository.NewMemory()))

	req := httptest.NewRequest(http.MethodGet, "/bookmarks", nil)
	req.Header.Set("Origin", "http://anything.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /bookmarks = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	h := NewRouter(time.Second, newTestDeps(repository.NewMemory()))

	rec := do(t, h, http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if success, msg := decodeMessage(t, rec); success || msg != "Not found" {
		t.Errorf("body = %v %q", success, msg)
	}
}

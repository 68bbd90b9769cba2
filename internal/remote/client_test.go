package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

func newTestServer(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL + "/api/"), ts
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestClientListEncodesSingleFilter(t *testing.T) {
	tests := []struct {
		name      string
		filter    domain.Filter
		wantQuery string
	}{
		{name: "no filter", filter: domain.Filter{}, wantQuery: ""},
		{name: "tag", filter: domain.Filter{Tag: "go"}, wantQuery: "tag=go"},
		{name: "search", filter: domain.Filter{Search: "react"}, wantQuery: "search=react"},
		{name: "favorites", filter: domain.Filter{Favorites: true}, wantQuery: "favorite=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery, gotPath string
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotQuery = r.URL.RawQuery
				writeJSON(t, w, http.StatusOK, map[string]any{
					"data": []domain.Bookmark{{ID: "1", URL: "https://a.com", Name: "A"}},
				})
			})

			got, err := client.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if gotPath != "/api/bookmarks" {
				t.Errorf("List() path = %q, want /api/bookmarks", gotPath)
			}
			if gotQuery != tt.wantQuery {
				t.Errorf("List() query = %q, want %q", gotQuery, tt.wantQuery)
			}
			if len(got) != 1 || got[0].ID != "1" {
				t.Errorf("List() = %+v, want one bookmark with id 1", got)
			}
		})
	}
}

func TestClientCreateSendsPayload(t *testing.T) {
	created := domain.Bookmark{
		ID:        "2",
		URL:       "https://a.com",
		Name:      "A",
		Tags:      []string{"go", "web"},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	var got domain.Payload
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		writeJSON(t, w, http.StatusCreated, map[string]any{"data": created})
	})

	payload := domain.Input{URL: "https://a.com", Name: "A", Tags: "go, web"}.Normalize()
	bm, err := client.Create(context.Background(), payload)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if bm.ID != "2" || !bm.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("Create() = %+v, want %+v", bm, created)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "web" {
		t.Errorf("server received tags %v", got.Tags)
	}
}

func TestClientRoutes(t *testing.T) {
	tests := []struct {
		name       string
		call       func(c *Client) error
		wantMethod string
		wantPath   string
	}{
		{
			name:       "get",
			call:       func(c *Client) error { _, err := c.Get(context.Background(), "abc"); return err },
			wantMethod: http.MethodGet,
			wantPath:   "/api/bookmarks/abc",
		},
		{
			name: "update",
			call: func(c *Client) error {
				_, err := c.Update(context.Background(), "abc", domain.Payload{URL: "https://a.com", Name: "A"})
				return err
			},
			wantMethod: http.MethodPut,
			wantPath:   "/api/bookmarks/abc",
		},
		{
			name:       "remove",
			call:       func(c *Client) error { return c.Remove(context.Background(), "abc") },
			wantMethod: http.MethodDelete,
			wantPath:   "/api/bookmarks/abc",
		},
		{
			name:       "favorite",
			call:       func(c *Client) error { _, err := c.SetFavorite(context.Background(), "abc"); return err },
			wantMethod: http.MethodPatch,
			wantPath:   "/api/bookmarks/abc/favorite",
		},
		{
			name:       "tags",
			call:       func(c *Client) error { _, err := c.ListTags(context.Background()); return err },
			wantMethod: http.MethodGet,
			wantPath:   "/api/tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path string
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				writeJSON(t, w, http.StatusOK, map[string]any{"data": nil})
			})

			if err := tt.call(client); err != nil {
				t.Fatalf("call error = %v", err)
			}
			if method != tt.wantMethod || path != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", method, path, tt.wantMethod, tt.wantPath)
			}
		})
	}
}

func TestClientErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "server message",
			status:      http.StatusBadRequest,
			body:        `{"success":false,"message":"URL already saved"}`,
			wantMessage: "URL already saved",
		},
		{
			name:        "error field",
			status:      http.StatusInternalServerError,
			body:        `{"error":"boom"}`,
			wantMessage: "boom",
		},
		{
			name:        "no json",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "Failed to add bookmark",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			wantMessage: "Failed to add bookmark",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Create(context.Background(), domain.Payload{URL: "https://a.com", Name: "A"})
			var rerr *Error
			if !errors.As(err, &rerr) {
				t.Fatalf("Create() error = %v, want *Error", err)
			}
			if rerr.Status != tt.status {
				t.Errorf("Status = %d, want %d", rerr.Status, tt.status)
			}
			if rerr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", rerr.Message, tt.wantMessage)
			}
			if rerr.Op != OpCreate {
				t.Errorf("Op = %q, want %q", rerr.Op, OpCreate)
			}
		})
	}
}

func TestClientTransportFailure(t *testing.T) {
	client, ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	ts.Close()

	_, err := client.List(context.Background(), domain.Filter{})
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("List() error = %v, want *Error", err)
	}
	if rerr.Status != 0 {
		t.Errorf("Status = %d, want 0 for transport failure", rerr.Status)
	}
	if rerr.Message != "Failed to fetch bookmarks" {
		t.Errorf("Message = %q", rerr.Message)
	}
	if rerr.Err == nil {
		t.Error("transport error should be kept in Err")
	}
}

func TestAsError(t *testing.T) {
	if AsError(OpList, nil) != nil {
		t.Error("AsError(nil) should be nil")
	}

	orig := &Error{Op: OpRemove, Message: "gone"}
	if got := AsError(OpList, orig); got != orig {
		t.Error("AsError should return existing *Error unchanged")
	}

	got := AsError(OpSetFavorite, errors.New("boom"))
	if got.Message != "Failed to update favorite" {
		t.Errorf("AsError message = %q", got.Message)
	}
}

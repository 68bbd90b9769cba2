package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

// DefaultTimeout bounds a single round-trip when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Client talks to the bookmark REST service.
// It holds no state besides its transport; failures are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the service at baseURL (ex: http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the {data: ...} wrapper used by every response.
type envelope[T any] struct {
	Data T `json:"data"`
}

// errorBody is the shape the service uses for failures.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// List returns the bookmarks matching filter, in server order.
func (c *Client) List(ctx context.Context, filter domain.Filter) ([]domain.Bookmark, error) {
	path := "/bookmarks"
	if q := filter.Params().Encode(); q != "" {
		path += "?" + q
	}

	var out envelope[[]domain.Bookmark]
	if err := c.do(ctx, OpList, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []domain.Bookmark{}, nil
	}
	return out.Data, nil
}

// Get returns a single bookmark.
func (c *Client) Get(ctx context.Context, id string) (domain.Bookmark, error) {
	var out envelope[domain.Bookmark]
	err := c.do(ctx, OpGet, http.MethodGet, "/bookmarks/"+url.PathEscape(id), nil, &out)
	return out.Data, err
}

// Create stores a new bookmark; the server assigns ID and CreatedAt.
func (c *Client) Create(ctx context.Context, p domain.Payload) (domain.Bookmark, error) {
	var out envelope[domain.Bookmark]
	err := c.do(ctx, OpCreate, http.MethodPost, "/bookmarks", p, &out)
	return out.Data, err
}

// Update replaces the editable fields of bookmark id.
func (c *Client) Update(ctx context.Context, id string, p domain.Payload) (domain.Bookmark, error) {
	var out envelope[domain.Bookmark]
	err := c.do(ctx, OpUpdate, http.MethodPut, "/bookmarks/"+url.PathEscape(id), p, &out)
	return out.Data, err
}

// Remove deletes bookmark id.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, OpRemove, http.MethodDelete, "/bookmarks/"+url.PathEscape(id), nil, nil)
}

// SetFavorite toggles the favorite flag. The server decides the new value
// and returns the full record.
func (c *Client) SetFavorite(ctx context.Context, id string) (domain.Bookmark, error) {
	var out envelope[domain.Bookmark]
	err := c.do(ctx, OpSetFavorite, http.MethodPatch, "/bookmarks/"+url.PathEscape(id)+"/favorite", nil, &out)
	return out.Data, err
}

// ListTags returns the tag index of the whole collection.
func (c *Client) ListTags(ctx context.Context) ([]domain.TagCount, error) {
	var out envelope[[]domain.TagCount]
	if err := c.do(ctx, OpListTags, http.MethodGet, "/tags", nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []domain.TagCount{}, nil
	}
	return out.Data, nil
}

// do performs one round-trip and converts every failure into *Error.
func (c *Client) do(ctx context.Context, op Op, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: FallbackMessage(op), Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Message: FallbackMessage(op), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Message: FallbackMessage(op), Err: err}
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, Status: resp.StatusCode, Message: readErrorMessage(op, resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: FallbackMessage(op), Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// readErrorMessage pulls the server-provided message out of an error body.
func readErrorMessage(op Op, r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return FallbackMessage(op)
	}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return FallbackMessage(op)
	}
	if msg := strings.TrimSpace(eb.Message); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(eb.Error); msg != "" {
		return msg
	}
	return FallbackMessage(op)
}

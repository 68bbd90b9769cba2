package domain

import (
	"net/url"
	"time"
)

// DefaultFaviconService builds a favicon URL for bookmarks saved without one.
const DefaultFaviconService = "https://www.google.com/s2/favicons?sz=64&domain="

// Bookmark represents a saved URL record.
// Bookmarks are owned by the remote store: the client only ever
// replaces its local copy with the record returned by the server.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the opaque identifier assigned by the remote store.
	// It is never generated or rewritten on the client side.
	ID string `json:"_id"`

	// URL is the absolute URL the bookmark points to.
	// Example: https://go.dev/doc/
	URL string `json:"url"`

	// ─────────────────────────────
	// Display
	// ─────────────────────────────

	// Name is the display title (at most 100 characters).
	Name string `json:"name"`

	// Description is optional free text (at most 500 characters).
	Description string `json:"description,omitempty"`

	// Tags keeps insertion order for display.
	Tags []string `json:"tags"`

	// Favicon is optional; see FaviconURL for the fallback.
	Favicon string `json:"favicon,omitempty"`

	// ─────────────────────────────
	// State & metadata
	// ─────────────────────────────

	// IsFavorite is flipped by the server on a favorite toggle.
	IsFavorite bool `json:"isFavorite"`

	// CreatedAt is assigned by the server on creation.
	CreatedAt time.Time `json:"createdAt"`
}

// TagCount is one entry of the tag index: how many bookmarks
// in the whole collection carry Tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// FaviconURL returns the stored favicon, or one derived from the URL host.
func (b Bookmark) FaviconURL() string {
	if b.Favicon != "" {
		return b.Favicon
	}
	u, err := url.Parse(b.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return DefaultFaviconService + url.QueryEscape(u.Hostname())
}

// HasTag reports whether the bookmark carries tag.
func (b Bookmark) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so cached entries never share tag slices with callers.
func (b Bookmark) Clone() Bookmark {
	c := b
	if b.Tags != nil {
		c.Tags = append([]string(nil), b.Tags...)
	}
	return c
}

package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// MemoryIndex is the client-side collection cache: the ordered bookmarks of
// the last successful fetch plus the tag index of the whole collection.
// Every write is a single replace-or-patch under lock, so readers never
// observe a partial update.
type MemoryIndex struct {
	mu         sync.RWMutex
	bookmarks  []domain.Bookmark // ordered as returned by the server
	tags       []domain.TagCount
	lastReload time.Time // last wholesale bookmark replace
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		bookmarks: []domain.Bookmark{},
		tags:      []domain.TagCount{},
	}
}

// ReplaceBookmarks replaces the whole cache, keeping the given order
func (idx *MemoryIndex) ReplaceBookmarks(bookmarks []domain.Bookmark) {
	next := cloneAll(bookmarks)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.bookmarks = next
	idx.lastReload = time.Now()
}

// Prepend inserts a bookmark at the front (newest first)
func (idx *MemoryIndex) Prepend(bookmark domain.Bookmark) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := make([]domain.Bookmark, 0, len(idx.bookmarks)+1)
	next = append(next, bookmark.Clone())
	next = append(next, idx.bookmarks...)
	idx.bookmarks = next
}

// Replace swaps the entry with the same ID. It reports whether one was found.
func (idx *MemoryIndex) Replace(bookmark domain.Bookmark) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i := range idx.bookmarks {
		if idx.bookmarks[i].ID == bookmark.ID {
			next := make([]domain.Bookmark, len(idx.bookmarks))
			copy(next, idx.bookmarks)
			next[i] = bookmark.Clone()
			idx.bookmarks = next
			return true
		}
	}
	return false
}

// Remove drops every entry with id. It reports whether one was found.
func (idx *MemoryIndex) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	next := make([]domain.Bookmark, 0, len(idx.bookmarks))
	for _, bm := range idx.bookmarks {
		if bm.ID != id {
			next = append(next, bm)
		}
	}
	found := len(next) != len(idx.bookmarks)
	idx.bookmarks = next
	return found
}

// GetBookmark retrieves a bookmark by ID
func (idx *MemoryIndex) GetBookmark(id string) (domain.Bookmark, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, bm := range idx.bookmarks {
		if bm.ID == id {
			return bm.Clone(), true
		}
	}
	return domain.Bookmark{}, false
}

// Bookmarks returns a snapshot copy of the cache, in order
func (idx *MemoryIndex) Bookmarks() []domain.Bookmark {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return cloneAll(idx.bookmarks)
}

// GetLastReload returns the timestamp of the last wholesale bookmark replace
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}

// ─────────────────────────────────────────────────────────────────
// Tag index
// ─────────────────────────────────────────────────────────────────

// ReplaceTags replaces the tag index
func (idx *MemoryIndex) ReplaceTags(tags []domain.TagCount) {
	next := make([]domain.TagCount, len(tags))
	copy(next, tags)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.tags = next
}

// Tags returns a snapshot copy of the tag index
func (idx *MemoryIndex) Tags() []domain.TagCount {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]domain.TagCount, len(idx.tags))
	copy(out, idx.tags)
	return out
}

func cloneAll(bookmarks []domain.Bookmark) []domain.Bookmark {
	out := make([]domain.Bookmark, len(bookmarks))
	for i, bm := range bookmarks {
		out[i] = bm.Clone()
	}
	return out
}

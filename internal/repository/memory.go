package repository

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Memory is an in-process Repository, used when no Redis is configured
// and in tests.
type Memory struct {
	mu        sync.RWMutex
	bookmarks map[string]domain.Bookmark // ID -> Bookmark
	now       func() time.Time
}

var _ Repository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		bookmarks: make(map[string]domain.Bookmark),
		now:       time.Now,
	}
}

func (m *Memory) List(_ context.Context, f domain.Filter) ([]domain.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return FilterAndSort(m.snapshotLocked(), f), nil
}

func (m *Memory) Get(_ context.Context, id string) (domain.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bm, ok := m.bookmarks[id]
	if !ok {
		return domain.Bookmark{}, ErrNotFound
	}
	return bm.Clone(), nil
}

func (m *Memory) Create(_ context.Context, p domain.Payload) (domain.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bm := NewRecord(p, m.now())
	m.bookmarks[bm.ID] = bm
	return bm.Clone(), nil
}

func (m *Memory) Update(_ context.Context, id string, p domain.Payload) (domain.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bm, ok := m.bookmarks[id]
	if !ok {
		return domain.Bookmark{}, ErrNotFound
	}
	bm = ApplyPayload(bm, p)
	m.bookmarks[id] = bm
	return bm.Clone(), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bookmarks[id]; !ok {
		return ErrNotFound
	}
	delete(m.bookmarks, id)
	return nil
}

func (m *Memory) ToggleFavorite(_ context.Context, id string) (domain.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bm, ok := m.bookmarks[id]
	if !ok {
		return domain.Bookmark{}, ErrNotFound
	}
	bm.IsFavorite = !bm.IsFavorite
	m.bookmarks[id] = bm
	return bm.Clone(), nil
}

func (m *Memory) Tags(_ context.Context) ([]domain.TagCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return AggregateTags(m.snapshotLocked()), nil
}

func (m *Memory) FindByURL(_ context.Context, url string) (domain.Bookmark, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, bm := range m.bookmarks {
		if bm.URL == url {
			return bm.Clone(), true, nil
		}
	}
	return domain.Bookmark{}, false, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookmarks), nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) snapshotLocked() []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(m.bookmarks))
	for _, bm := range m.bookmarks {
		out = append(out, bm.Clone())
	}
	return out
}

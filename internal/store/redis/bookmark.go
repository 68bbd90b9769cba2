package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/repository"
)

// maxTxAttempts bounds optimistic-lock retries on concurrent writes to one key.
const maxTxAttempts = 3

// Store is the Redis-backed bookmark repository.
// Each bookmark is a JSON value under BookmarkKey(id); AllBookmarksKey
// is the set of IDs.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

var _ repository.Repository = (*Store)(nil)

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Count returns the number of stored bookmarks
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, AllBookmarksKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return int(n), nil
}

// Create stores a new bookmark and returns it with its assigned ID
func (s *Store) Create(ctx context.Context, p domain.Payload) (domain.Bookmark, error) {
	bm := repository.NewRecord(p, s.now())

	data, err := json.Marshal(bm)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, BookmarkKey(bm.ID), data, 0)
	pipe.SAdd(ctx, AllBookmarksKey(), bm.ID)
	invalidateTags(ctx, pipe)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to save bookmark: %w", err)
	}

	return bm, nil
}

// Get retrieves a bookmark by ID
func (s *Store) Get(ctx context.Context, id string) (domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Bookmark{}, repository.ErrNotFound
		}
		return domain.Bookmark{}, fmt.Errorf("failed to get bookmark: %w", err)
	}

	var bm domain.Bookmark
	if err := json.Unmarshal(data, &bm); err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}
	return bm, nil
}

// List returns bookmarks matching f, newest first
func (s *Store) List(ctx context.Context, f domain.Filter) ([]domain.Bookmark, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return repository.FilterAndSort(all, f), nil
}

// Update replaces the editable fields of a bookmark
func (s *Store) Update(ctx context.Context, id string, p domain.Payload) (domain.Bookmark, error) {
	return s.mutate(ctx, id, func(bm domain.Bookmark) domain.Bookmark {
		return repository.ApplyPayload(bm, p)
	})
}

// ToggleFavorite flips the favorite flag
func (s *Store) ToggleFavorite(ctx context.Context, id string) (domain.Bookmark, error) {
	return s.mutate(ctx, id, func(bm domain.Bookmark) domain.Bookmark {
		bm.IsFavorite = !bm.IsFavorite
		return bm
	})
}

// Delete removes a bookmark
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, BookmarkKey(id))
	pipe.SRem(ctx, AllBookmarksKey(), id)
	invalidateTags(ctx, pipe)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if del.Val() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindByURL returns the first bookmark saved for url
func (s *Store) FindByURL(ctx context.Context, url string) (domain.Bookmark, bool, error) {
	all, err := s.all(ctx)
	if err != nil {
		return domain.Bookmark{}, false, err
	}
	for _, bm := range all {
		if bm.URL == url {
			return bm, true, nil
		}
	}
	return domain.Bookmark{}, false, nil
}

// mutate applies fn to the stored bookmark under WATCH so concurrent
// writers to the same key never lose an update.
func (s *Store) mutate(ctx context.Context, id string, fn func(domain.Bookmark) domain.Bookmark) (domain.Bookmark, error) {
	key := BookmarkKey(id)
	var out domain.Bookmark

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("failed to get bookmark: %w", err)
		}

		var bm domain.Bookmark
		if err := json.Unmarshal(data, &bm); err != nil {
			return fmt.Errorf("failed to unmarshal bookmark: %w", err)
		}

		out = fn(bm)
		updated, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("failed to marshal bookmark: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			invalidateTags(ctx, pipe)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Bookmark{}, err
		}
		return out, nil
	}
	return domain.Bookmark{}, fmt.Errorf("failed to update bookmark %s: too much contention", id)
}

// reader is the part of *redis.Client and *redis.Tx that all needs.
type reader interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// all loads every stored bookmark in one MGET.
func (s *Store) all(ctx context.Context) ([]domain.Bookmark, error) {
	return loadAll(ctx, s.client)
}

func loadAll(ctx context.Context, r reader) ([]domain.Bookmark, error) {
	ids, err := r.SMembers(ctx, AllBookmarksKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}

	values, err := r.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	bookmarks := make([]domain.Bookmark, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Skip IDs whose value disappeared between SMEMBERS and MGET
			continue
		}
		var bm domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &bm); err != nil {
			continue
		}
		bookmarks = append(bookmarks, bm)
	}
	return bookmarks, nil
}

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

// DefaultTagsCacheTTL bounds how long an aggregated tag index is reused.
// Every write deletes the cache, so the TTL only matters for out-of-band edits.
const DefaultTagsCacheTTL = 10 * time.Minute

// Tags returns the tag index, served from cache when present.
// The index is computed under WATCH on the tags version, so a write
// landing mid-computation makes the cache fill fail instead of storing
// stale counts.
func (s *Store) Tags(ctx context.Context) ([]domain.TagCount, error) {
	if tags, ok := s.getCachedTags(ctx); ok {
		return tags, nil
	}

	var tags []domain.TagCount
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		all, err := loadAll(ctx, tx)
		if err != nil {
			return err
		}
		tags = repository.AggregateTags(all)

		data, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, TagsCacheKey(), data, DefaultTagsCacheTTL)
			return nil
		})
		return err
	}, TagsVersionKey())

	switch {
	case err == nil:
		return tags, nil
	case errors.Is(err, redis.TxFailedErr):
		// A write landed while counting: recompute without caching.
		all, err := s.all(ctx)
		if err != nil {
			return nil, err
		}
		return repository.AggregateTags(all), nil
	case tags != nil:
		// Only the cache fill failed; it costs a recomputation next time.
		return tags, nil
	default:
		return nil, err
	}
}

// invalidateTags queues the cache drop and version bump on a write pipeline.
func invalidateTags(ctx context.Context, pipe redis.Pipeliner) {
	pipe.Del(ctx, TagsCacheKey())
	pipe.Incr(ctx, TagsVersionKey())
}

func (s *Store) getCachedTags(ctx context.Context) ([]domain.TagCount, bool) {
	data, err := s.client.Get(ctx, TagsCacheKey()).Bytes()
	if err != nil {
		// redis.Nil is a plain miss; other errors fall through to recomputation
		return nil, false
	}

	var tags []domain.TagCount
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, false
	}
	return tags, true
}

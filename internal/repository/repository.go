package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// ErrNotFound is returned when no bookmark has the requested ID.
var ErrNotFound = errors.New("bookmark not found")

// Repository persists bookmarks for the REST service.
// Implementations assign IDs and creation timestamps.
type Repository interface {
	List(ctx context.Context, filter domain.Filter) ([]domain.Bookmark, error)
	Get(ctx context.Context, id string) (domain.Bookmark, error)
	Create(ctx context.Context, p domain.Payload) (domain.Bookmark, error)
	Update(ctx context.Context, id string, p domain.Payload) (domain.Bookmark, error)
	Delete(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (domain.Bookmark, error)
	Tags(ctx context.Context) ([]domain.TagCount, error)
	FindByURL(ctx context.Context, url string) (domain.Bookmark, bool, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// NewRecord builds a stored record from a validated payload.
func NewRecord(p domain.Payload, now time.Time) domain.Bookmark {
	return domain.Bookmark{
		ID:          strings.ToLower(ulid.Make().String()),
		URL:         p.URL,
		Name:        p.Name,
		Description: p.Description,
		Tags:        dedupeTags(p.Tags),
		CreatedAt:   now.UTC(),
	}
}

// ApplyPayload overwrites the editable fields; identity, favorite
// flag and creation time are kept.
func ApplyPayload(bm domain.Bookmark, p domain.Payload) domain.Bookmark {
	bm.URL = p.URL
	bm.Name = p.Name
	bm.Description = p.Description
	bm.Tags = dedupeTags(p.Tags)
	return bm
}

// dedupeTags drops repeated tags, keeping first occurrence order.
func dedupeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Matches reports whether bm belongs to the filtered list.
// Search is a case-insensitive substring match over name, URL,
// description and tags.
func Matches(f domain.Filter, bm domain.Bookmark) bool {
	switch f.Kind() {
	case domain.FilterTag:
		return bm.HasTag(f.Tag)
	case domain.FilterFavorites:
		return bm.IsFavorite
	case domain.FilterSearch:
		q := strings.ToLower(strings.TrimSpace(f.Search))
		if q == "" {
			return true
		}
		if strings.Contains(strings.ToLower(bm.Name), q) ||
			strings.Contains(strings.ToLower(bm.URL), q) ||
			strings.Contains(strings.ToLower(bm.Description), q) {
			return true
		}
		for _, t := range bm.Tags {
			if strings.Contains(strings.ToLower(t), q) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// FilterAndSort keeps matching bookmarks, newest first.
func FilterAndSort(all []domain.Bookmark, f domain.Filter) []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(all))
	for _, bm := range all {
		if Matches(f, bm) {
			out = append(out, bm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// AggregateTags counts tag usage across all bookmarks,
// sorted by count descending then tag ascending.
func AggregateTags(all []domain.Bookmark) []domain.TagCount {
	counts := make(map[string]int)
	for _, bm := range all {
		for _, t := range dedupeTags(bm.Tags) {
			counts[t]++
		}
	}

	out := make([]domain.TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, domain.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/assert/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/repository"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, BookmarkKey("01hx"), "marks:bookmark:01hx")
	assert.Equal(t, AllBookmarksKey(), "marks:bookmarks:all")
	assert.Equal(t, TagsCacheKey(), "marks:cache:tags")
	assert.Equal(t, TagsVersionKey(), "marks:tags:version")
}

// newTestStore starts an in-process Redis and returns a store on it.
func newTestStore(t *testing.T) (*Store, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, client := storeOn(t, mr.Addr())
	return s, client, mr
}

// storeOn opens another client and store on an existing server.
func storeOn(t *testing.T, addr string) (*Store, *redis.Client) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	s := NewStore(client)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s, client
}

// beforeExec runs fn once, just before the first MULTI block that SETs key
// is sent. It lets a test slip a concurrent write into a WATCH window.
type beforeExec struct {
	key  string
	fn   func()
	once sync.Once
}

func (h *beforeExec) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *beforeExec) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }

func (h *beforeExec) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			if args := cmd.Args(); cmd.Name() == "set" && len(args) > 1 && args[1] == h.key {
				h.once.Do(h.fn)
				break
			}
		}
		return next(ctx, cmds)
	}
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	first, err := s.Create(ctx, domain.Payload{URL: "https://go.dev", Name: "Go", Tags: []string{"go", "web"}})
	assert.Equal(t, err, nil)
	second, err := s.Create(ctx, domain.Payload{URL: "https://react.dev", Name: "React", Tags: []string{"js", "web"}})
	assert.Equal(t, err, nil)

	got, err := s.Get(ctx, first.ID)
	assert.Equal(t, err, nil)
	assert.Equal(t, got, first)

	list, err := s.List(ctx, domain.Filter{})
	assert.Equal(t, err, nil)
	assert.Equal(t, len(list), 2)
	assert.Equal(t, list[0].ID, second.ID)

	list, _ = s.List(ctx, domain.Filter{Tag: "go"})
	assert.Equal(t, len(list), 1)

	fav, err := s.ToggleFavorite(ctx, first.ID)
	assert.Equal(t, err, nil)
	assert.Equal(t, fav.IsFavorite, true)

	upd, err := s.Update(ctx, first.ID, domain.Payload{URL: "https://go.dev/doc", Name: "Docs", Tags: []string{"go"}})
	assert.Equal(t, err, nil)
	assert.Equal(t, upd.IsFavorite, true)
	assert.Equal(t, upd.CreatedAt, first.CreatedAt)

	found, ok, err := s.FindByURL(ctx, "https://go.dev/doc")
	assert.Equal(t, err, nil)
	assert.Equal(t, ok, true)
	assert.Equal(t, found.ID, first.ID)

	assert.Equal(t, s.Delete(ctx, second.ID), nil)
	n, _ := s.Count(ctx)
	assert.Equal(t, n, 1)
	assert.Equal(t, s.Ping(ctx), nil)
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	_, err := s.Get(ctx, "missing")
	assert.Equal(t, errors.Is(err, repository.ErrNotFound), true)
	_, err = s.ToggleFavorite(ctx, "missing")
	assert.Equal(t, errors.Is(err, repository.ErrNotFound), true)
	assert.Equal(t, errors.Is(s.Delete(ctx, "missing"), repository.ErrNotFound), true)
}

func TestStoreTagsCacheIsInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	s, client, mr := newTestStore(t)

	bm, _ := s.Create(ctx, domain.Payload{URL: "https://go.dev", Name: "Go", Tags: []string{"go"}})

	tags, err := s.Tags(ctx)
	assert.Equal(t, err, nil)
	assert.Equal(t, tags, []domain.TagCount{{Tag: "go", Count: 1}})
	assert.Equal(t, client.Exists(ctx, TagsCacheKey()).Val(), int64(1))
	assert.Equal(t, mr.TTL(TagsCacheKey()), DefaultTagsCacheTTL)

	_, err = s.Update(ctx, bm.ID, domain.Payload{URL: bm.URL, Name: bm.Name, Tags: []string{"golang"}})
	assert.Equal(t, err, nil)
	assert.Equal(t, client.Exists(ctx, TagsCacheKey()).Val(), int64(0))

	tags, _ = s.Tags(ctx)
	assert.Equal(t, tags, []domain.TagCount{{Tag: "golang", Count: 1}})

	assert.Equal(t, s.Delete(ctx, bm.ID), nil)
	assert.Equal(t, client.Exists(ctx, TagsCacheKey()).Val(), int64(0))
	tags, _ = s.Tags(ctx)
	assert.Equal(t, len(tags), 0)
}

func TestStoreTagsCacheSkipsFillAfterConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	writer, client, mr := newTestStore(t)

	_, err := writer.Create(ctx, domain.Payload{URL: "https://go.dev", Name: "Go", Tags: []string{"go"}})
	assert.Equal(t, err, nil)

	reader, readerClient := storeOn(t, mr.Addr())
	readerClient.AddHook(&beforeExec{key: TagsCacheKey(), fn: func() {
		if _, err := writer.Create(ctx, domain.Payload{URL: "https://pkg.go.dev", Name: "Pkg", Tags: []string{"go", "web"}}); err != nil {
			t.Errorf("concurrent Create failed: %v", err)
		}
	}})

	want := []domain.TagCount{{Tag: "go", Count: 2}, {Tag: "web", Count: 1}}

	tags, err := reader.Tags(ctx)
	assert.Equal(t, err, nil)
	assert.Equal(t, tags, want)
	assert.Equal(t, client.Exists(ctx, TagsCacheKey()).Val(), int64(0))

	tags, err = writer.Tags(ctx)
	assert.Equal(t, err, nil)
	assert.Equal(t, tags, want)
}

func TestStoreUpdateRetriesOnConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	writer, _, mr := newTestStore(t)

	bm, err := writer.Create(ctx, domain.Payload{URL: "https://go.dev", Name: "Go", Tags: []string{"go"}})
	assert.Equal(t, err, nil)

	editor, editorClient := storeOn(t, mr.Addr())
	editorClient.AddHook(&beforeExec{key: BookmarkKey(bm.ID), fn: func() {
		if _, err := writer.ToggleFavorite(ctx, bm.ID); err != nil {
			t.Errorf("concurrent ToggleFavorite failed: %v", err)
		}
	}})

	upd, err := editor.Update(ctx, bm.ID, domain.Payload{URL: bm.URL, Name: "Docs", Tags: []string{"go"}})
	assert.Equal(t, err, nil)
	assert.Equal(t, upd.Name, "Docs")
	assert.Equal(t, upd.IsFavorite, true)

	got, _ := writer.Get(ctx, bm.ID)
	assert.Equal(t, got, upd)
}

func TestStoreListSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	s, client, _ := newTestStore(t)

	_, _ = s.Create(ctx, domain.Payload{URL: "https://go.dev", Name: "Go"})
	client.SAdd(ctx, AllBookmarksKey(), "broken", "gone")
	client.Set(ctx, BookmarkKey("broken"), "{not json", 0)

	list, err := s.List(ctx, domain.Filter{})
	assert.Equal(t, err, nil)
	assert.Equal(t, len(list), 1)

	n, _ := s.Count(ctx)
	assert.Equal(t, n, 3)
}

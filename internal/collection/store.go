package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/filter"
	"github.com/MrSnakeDoc/marks/internal/index"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/notify"
	"github.com/MrSnakeDoc/marks/internal/remote"
)

// ErrStale is returned by Refresh when its response arrived after the
// active filter changed or a newer refresh was issued. The cache is untouched.
var ErrStale = errors.New("refresh superseded by a newer filter")

// Remote is the subset of the remote store client used by Store.
// *remote.Client implements it.
type Remote interface {
	List(ctx context.Context, filter domain.Filter) ([]domain.Bookmark, error)
	Create(ctx context.Context, p domain.Payload) (domain.Bookmark, error)
	Update(ctx context.Context, id string, p domain.Payload) (domain.Bookmark, error)
	Remove(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, id string) (domain.Bookmark, error)
	ListTags(ctx context.Context) ([]domain.TagCount, error)
}

// View is a consistent read of everything the rendering layer needs.
type View struct {
	Bookmarks []domain.Bookmark
	Tags      []domain.TagCount
	Loading   bool
	Err       string // fetch error shown in place of the list, "" when none
	Filter    domain.Filter

	LastRefresh time.Time // zero until the first successful fetch
}

// Store is the authoritative client-side cache of bookmarks for the
// active filter, plus the tag index. It is the only writer of the cache:
// the cache is patched only after the remote store confirmed a mutation.
type Store struct {
	remote  Remote
	filters *filter.State
	index   *index.MemoryIndex
	sink    notify.Sink
	logger  logger.Logger

	mu         sync.Mutex
	inflight   int    // refreshes currently awaiting a response
	refreshSeq uint64 // last issued refresh
	fetchErr   string
	subs       map[int]chan struct{}
	nextSubID  int
}

// New wires a store. The caller owns its lifecycle (see Run).
func New(r Remote, filters *filter.State, sink notify.Sink, log logger.Logger) *Store {
	if sink == nil {
		sink = notify.Discard
	}
	return &Store{
		remote:  r,
		filters: filters,
		index:   index.NewMemoryIndex(),
		sink:    sink,
		logger:  log,
		subs:    make(map[int]chan struct{}),
	}
}

// Filters exposes the filter state driving this store.
func (s *Store) Filters() *filter.State { return s.filters }

// ─────────────────────────────────────────────────────────────────
// Fetching
// ─────────────────────────────────────────────────────────────────

// Refresh fetches the bookmarks for the current filter and replaces the
// cache wholesale. The response is applied only if the filter is unchanged
// and no newer refresh was issued meanwhile; otherwise ErrStale is returned.
// On failure the cache is kept, the fetch error is recorded and notified.
func (s *Store) Refresh(ctx context.Context) error {
	f, gen := s.filters.Snapshot()

	s.mu.Lock()
	s.refreshSeq++
	seq := s.refreshSeq
	s.inflight++
	s.fetchErr = ""
	s.mu.Unlock()
	s.changed()

	bookmarks, err := s.remote.List(ctx, f)

	s.mu.Lock()
	s.inflight--
	stale := seq != s.refreshSeq || gen != s.filters.Generation()
	switch {
	case stale:
		// fall through to unlock
	case err != nil && ctx.Err() == nil:
		s.fetchErr = remote.Message(remote.OpList, err)
	case err != nil:
		// cancelled by the caller, not a server failure
	default:
		s.index.ReplaceBookmarks(bookmarks)
	}
	s.mu.Unlock()
	s.changed()

	if stale {
		s.logger.Debug("discarding stale bookmark list",
			logger.String("filter", f.Kind().String()),
			logger.Uint64("generation", gen))
		return ErrStale
	}

	if err != nil {
		rerr := remote.AsError(remote.OpList, err)
		if ctx.Err() != nil {
			s.logger.Debug("bookmark fetch cancelled", logger.Error(err))
			return rerr
		}
		s.logger.Error("failed to fetch bookmarks",
			logger.String("filter", f.Kind().String()),
			logger.Error(err))
		s.sink.Notify(notify.Error, remote.FallbackMessage(remote.OpList))
		return rerr
	}

	s.logger.Debug("bookmarks refreshed",
		logger.String("filter", f.Kind().String()),
		logger.Int("count", len(bookmarks)))
	return nil
}

// RefreshTags replaces the tag index. Failures are only logged.
func (s *Store) RefreshTags(ctx context.Context) error {
	tags, err := s.remote.ListTags(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch tags", logger.Error(err))
		return remote.AsError(remote.OpListTags, err)
	}

	s.index.ReplaceTags(tags)
	s.changed()
	return nil
}

// RefreshAll fetches bookmarks and tags concurrently.
// Only the bookmark fetch error is returned.
func (s *Store) RefreshAll(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.RefreshTags(ctx)
	}()

	err := s.Refresh(ctx)
	wg.Wait()
	return err
}

// Run performs the initial load and then refreshes on every filter change
// until ctx is done. Changes arriving during a fetch coalesce into one
// follow-up fetch for the newest filter.
func (s *Store) Run(ctx context.Context) error {
	changes, cancel := s.filters.Subscribe()
	defer cancel()

	_ = s.RefreshAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			_ = s.Refresh(ctx)
		}
	}
}

// ─────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────

// Add validates in, creates the bookmark remotely and prepends the
// server record to the cache. Validation failures return a
// *domain.ValidationError and send nothing.
func (s *Store) Add(ctx context.Context, in domain.Input) (domain.Bookmark, error) {
	if err := in.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	bm, err := s.remote.Create(ctx, in.Normalize())
	if err != nil {
		return domain.Bookmark{}, s.mutationFailed(remote.OpCreate, err)
	}

	s.index.Prepend(bm)
	s.changed()
	_ = s.RefreshTags(ctx)

	s.logger.Info("bookmark added", logger.String("id", bm.ID))
	s.sink.Notify(notify.Success, "Bookmark added successfully!")
	return bm, nil
}

// Edit validates in, updates bookmark id remotely and replaces the cached
// entry with the server record.
func (s *Store) Edit(ctx context.Context, id string, in domain.Input) (domain.Bookmark, error) {
	if err := in.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	bm, err := s.remote.Update(ctx, id, in.Normalize())
	if err != nil {
		return domain.Bookmark{}, s.mutationFailed(remote.OpUpdate, err)
	}

	s.patch(id, bm)
	_ = s.RefreshTags(ctx)

	s.logger.Info("bookmark updated", logger.String("id", id))
	s.sink.Notify(notify.Success, "Bookmark updated successfully!")
	return bm, nil
}

// Remove deletes bookmark id remotely, then drops it from the cache.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.remote.Remove(ctx, id); err != nil {
		return s.mutationFailed(remote.OpRemove, err)
	}

	s.index.Remove(id)
	s.changed()
	_ = s.RefreshTags(ctx)

	s.logger.Info("bookmark deleted", logger.String("id", id))
	s.sink.Notify(notify.Success, "Bookmark deleted successfully!")
	return nil
}

// ToggleFavorite flips the favorite flag remotely and replaces the cached
// entry. The tag index is not refreshed: favorites never change tags.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (domain.Bookmark, error) {
	bm, err := s.remote.SetFavorite(ctx, id)
	if err != nil {
		return domain.Bookmark{}, s.mutationFailed(remote.OpSetFavorite, err)
	}

	s.patch(id, bm)

	msg := "Removed from favorites!"
	if bm.IsFavorite {
		msg = "Added to favorites!"
	}
	s.logger.Info("bookmark favorite toggled",
		logger.String("id", id),
		logger.Bool("favorite", bm.IsFavorite))
	s.sink.Notify(notify.Success, msg)
	return bm, nil
}

// patch replaces the cache slot for id with the server record.
func (s *Store) patch(id string, bm domain.Bookmark) {
	if bm.ID == "" {
		bm.ID = id
	}
	if !s.index.Replace(bm) {
		s.logger.Debug("mutated bookmark not in current view", logger.String("id", id))
		return
	}
	s.changed()
}

func (s *Store) mutationFailed(op remote.Op, err error) error {
	rerr := remote.AsError(op, err)
	s.logger.Error("bookmark mutation failed",
		logger.String("op", string(op)),
		logger.Error(err))
	s.sink.Notify(notify.Error, rerr.Message)
	return rerr
}

// ─────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────

// Bookmarks returns a copy of the cache in display order.
func (s *Store) Bookmarks() []domain.Bookmark { return s.index.Bookmarks() }

// Bookmark returns the cached entry for id.
func (s *Store) Bookmark(id string) (domain.Bookmark, bool) { return s.index.GetBookmark(id) }

// Tags returns a copy of the tag index.
func (s *Store) Tags() []domain.TagCount { return s.index.Tags() }

// Loading reports whether a refresh is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the last fetch error message, "" when the last fetch succeeded.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchErr
}

// Snapshot returns the full view state.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Bookmarks: s.index.Bookmarks(),
		Tags:      s.index.Tags(),
		Loading:   s.inflight > 0,
		Err:       s.fetchErr,
		Filter:    s.filters.Current(),

		LastRefresh: s.index.GetLastReload(),
	}
}

// Subscribe returns a channel signalled after every state change.
// Signals coalesce; read Snapshot after each one.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) changed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

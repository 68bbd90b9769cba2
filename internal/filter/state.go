package filter

import (
	"sync"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// State holds the three mutually exclusive view filters.
// Every mutator clears the filters it does not set, so at most one
// of tag, search and favorites is active at any time.
// State holds no fetched data; subscribers react to changes.
type State struct {
	mu          sync.RWMutex
	current     domain.Filter
	generation  uint64
	subscribers map[int]chan domain.Filter
	nextSubID   int
}

// New creates an empty filter state (no filter active).
func New() *State {
	return &State{
		subscribers: make(map[int]chan domain.Filter),
	}
}

// FilterByTag selects tag, or clears the tag filter when tag is already selected.
func (s *State) FilterByTag(tag string) {
	s.apply(func(cur domain.Filter) domain.Filter {
		if tag == cur.Tag {
			return domain.Filter{}
		}
		return domain.Filter{Tag: tag}
	})
}

// Search sets the free-text query. Callers should debounce input
// (see Debouncer) so only the settled query lands here.
func (s *State) Search(query string) {
	s.apply(func(domain.Filter) domain.Filter {
		return domain.Filter{Search: query}
	})
}

// ToggleFavorites flips the favorites-only flag.
func (s *State) ToggleFavorites() {
	s.apply(func(cur domain.Filter) domain.Filter {
		return domain.Filter{Favorites: !cur.Favorites}
	})
}

// Clear resets every filter.
func (s *State) Clear() {
	s.apply(func(domain.Filter) domain.Filter {
		return domain.Filter{}
	})
}

// Current returns the active filter.
func (s *State) Current() domain.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Generation increases on every change of the active filter.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Snapshot returns the active filter and its generation atomically.
func (s *State) Snapshot() (domain.Filter, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.generation
}

// Subscribe returns a channel receiving the latest filter after each change.
// Notifications coalesce: a slow reader only sees the newest value.
// The returned func unsubscribes and closes the channel.
func (s *State) Subscribe() (<-chan domain.Filter, func()) {
	ch := make(chan domain.Filter, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// apply computes the next filter under lock and notifies on change.
func (s *State) apply(next func(domain.Filter) domain.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := next(s.current)
	if updated == s.current {
		return
	}
	s.current = updated
	s.generation++

	for _, ch := range s.subscribers {
		publish(ch, updated)
	}
}

// publish replaces any pending value with f without blocking.
func publish(ch chan domain.Filter, f domain.Filter) {
	for {
		select {
		case ch <- f:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

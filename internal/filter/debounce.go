package filter

import (
	"sync"
	"time"
)

// DefaultSearchDelay is the quiescence period before a typed query is applied.
const DefaultSearchDelay = 300 * time.Millisecond

// Debouncer forwards only the settled search query to a State.
// Each Input restarts the quiet period; when it elapses, the last
// value is applied with State.Search.
type Debouncer struct {
	state *State
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	seq     uint64
	stopped bool
}

// NewDebouncer creates a debouncer for state. delay <= 0 uses DefaultSearchDelay.
func NewDebouncer(state *State, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &Debouncer{state: state, delay: delay}
}

// Input records a keystroke-level query value.
func (d *Debouncer) Input(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = query
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Flush applies the pending query immediately, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer == nil || d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer.Stop()
	d.timer = nil
	query := d.pending
	d.mu.Unlock()

	d.state.Search(query)
}

// Cancel discards the pending query, if any. Later input is still accepted.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop discards any pending query and disables further input.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	// A newer Input superseded this timer after it had already fired.
	if seq != d.seq || d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	query := d.pending
	d.mu.Unlock()

	d.state.Search(query)
}

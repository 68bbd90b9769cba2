package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Kind is the severity of a notification.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

// Sink receives one event per completed or failed operation.
// Implementations must be safe for concurrent use.
type Sink interface {
	Notify(kind Kind, message string)
}

// Event is a recorded notification.
type Event struct {
	Kind    Kind
	Message string
}

// Func adapts a plain function to Sink.
type Func func(kind Kind, message string)

func (f Func) Notify(kind Kind, message string) { f(kind, message) }

// Discard drops every notification.
var Discard Sink = Func(func(Kind, string) {})

// ─────────────────────────────────────────────────────────────────
// Log sink
// ─────────────────────────────────────────────────────────────────

// LogSink writes notifications as structured log lines.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(kind Kind, message string) {
	fields := []logger.Field{logger.String("kind", string(kind)), logger.String("message", message)}
	switch kind {
	case Error:
		s.log.Error("notification", fields...)
	case Warning:
		s.log.Warn("notification", fields...)
	default:
		s.log.Info("notification", fields...)
	}
}

// ─────────────────────────────────────────────────────────────────
// Terminal toasts
// ─────────────────────────────────────────────────────────────────

var kindPrefix = map[Kind]string{
	Success: "✅",
	Error:   "❌",
	Warning: "⚠️",
	Info:    "ℹ️",
}

// Writer prints one toast line per notification.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Notify(kind Kind, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintf(w.out, "%s %s\n", kindPrefix[kind], message)
}

// ─────────────────────────────────────────────────────────────────
// Fan-out and recording
// ─────────────────────────────────────────────────────────────────

// Multi forwards each notification to every sink in order.
func Multi(sinks ...Sink) Sink {
	return Func(func(kind Kind, message string) {
		for _, s := range sinks {
			s.Notify(kind, message)
		}
	})
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: kind, Message: message})
}

// Events returns a copy of the recorded notifications.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the latest notification, if any.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

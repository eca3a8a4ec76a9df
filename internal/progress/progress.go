// Package progress holds the status sinks the scan and extraction
// pipelines report into. Reporters must be safe for concurrent use; one
// reporter instance is shared by all workers.
package progress

import (
	"sync"
	"time"

	"zipdex/internal/model"
)

// Logger provides structured logging for the pipeline layers.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger is a Logger that discards all output. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// Reporter consumes progress events. Implementations must be safe for
// concurrent use by multiple workers.
type Reporter interface {
	Event(e model.ProgressEvent)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Event(model.ProgressEvent) {}

// LogReporter forwards events to a Logger at debug level.
type LogReporter struct {
	L Logger
}

func (r LogReporter) Event(e model.ProgressEvent) {
	r.L.Debug("progress",
		"job", e.Job,
		"archives", e.Archives,
		"entries", e.Entries,
		"elapsed", e.Elapsed.Truncate(time.Millisecond),
		"current", e.CurrentFile,
	)
}

// Throttle wraps a Reporter and drops events that arrive less than
// Interval after the previous emitted event for the same job. Long
// streaming operations report per chunk; the throttle keeps that from
// flooding the underlying reporter.
type Throttle struct {
	Next     Reporter
	Interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewThrottle creates a Throttle with the given minimum interval.
// An interval of 0 defaults to 2 seconds.
func NewThrottle(next Reporter, interval time.Duration) *Throttle {
	if interval == 0 {
		interval = 2 * time.Second
	}
	return &Throttle{
		Next:     next,
		Interval: interval,
		last:     make(map[string]time.Time),
	}
}

// Event forwards e unless a previous event for the same job was forwarded
// within the interval.
func (t *Throttle) Event(e model.ProgressEvent) {
	t.mu.Lock()
	now := time.Now()
	if last, ok := t.last[e.Job]; ok && now.Sub(last) < t.Interval {
		t.mu.Unlock()
		return
	}
	t.last[e.Job] = now
	t.mu.Unlock()

	t.Next.Event(e)
}

// Reset clears the throttle state for a job so its next event is always
// forwarded (e.g. a completion event).
func (t *Throttle) Reset(job string) {
	t.mu.Lock()
	delete(t.last, job)
	t.mu.Unlock()
}

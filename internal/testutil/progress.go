package testutil

import (
	"sync"

	"zipdex/internal/model"
)

// CaptureReporter records every progress event it receives. Safe for
// concurrent use.
type CaptureReporter struct {
	mu     sync.Mutex
	events []model.ProgressEvent
}

func NewCaptureReporter() *CaptureReporter {
	return &CaptureReporter{}
}

func (r *CaptureReporter) Event(e model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *CaptureReporter) Events() []model.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ProgressEvent, len(r.events))
	copy(out, r.events)
	return out
}

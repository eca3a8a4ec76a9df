package progress_test

import (
	"testing"
	"time"

	"zipdex/internal/model"
	"zipdex/internal/progress"
	"zipdex/internal/testutil"
)

func TestThrottleDropsRapidEvents(t *testing.T) {
	capture := testutil.NewCaptureReporter()
	throttle := progress.NewThrottle(capture, time.Hour)

	for i := 0; i < 10; i++ {
		throttle.Event(model.ProgressEvent{Job: "usb", Archives: i})
	}

	events := capture.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", len(events))
	}
	if events[0].Archives != 0 {
		t.Errorf("expected the first event to pass, got archives=%d", events[0].Archives)
	}
}

func TestThrottleTracksJobsIndependently(t *testing.T) {
	capture := testutil.NewCaptureReporter()
	throttle := progress.NewThrottle(capture, time.Hour)

	throttle.Event(model.ProgressEvent{Job: "usb1"})
	throttle.Event(model.ProgressEvent{Job: "usb2"})
	throttle.Event(model.ProgressEvent{Job: "usb1"})

	if got := len(capture.Events()); got != 2 {
		t.Errorf("expected one event per job, got %d", got)
	}
}

func TestThrottleReset(t *testing.T) {
	capture := testutil.NewCaptureReporter()
	throttle := progress.NewThrottle(capture, time.Hour)

	throttle.Event(model.ProgressEvent{Job: "extract"})
	throttle.Event(model.ProgressEvent{Job: "extract"})
	throttle.Reset("extract")
	throttle.Event(model.ProgressEvent{Job: "extract", Archives: 99})

	events := capture.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", len(events))
	}
	if events[1].Archives != 99 {
		t.Errorf("expected the post-reset event to pass, got archives=%d", events[1].Archives)
	}
}

func TestThrottleDefaultInterval(t *testing.T) {
	throttle := progress.NewThrottle(testutil.NewCaptureReporter(), 0)
	if throttle.Interval != 2*time.Second {
		t.Errorf("expected 2s default interval, got %s", throttle.Interval)
	}
}

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"location-tracking-core/internal/plan"
	"location-tracking-core/internal/resilience"
)

type recordingHandler struct {
	name  string
	calls atomic.Int32
	done  chan string
	fail  bool
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Handle(ctx context.Context, job Job) error {
	h.calls.Add(1)
	if h.fail {
		return errors.New("handler down")
	}
	select {
	case h.done <- job.Sample.DeviceID:
	default:
	}
	return nil
}

func TestDispatcherDeliversToAllHandlers(t *testing.T) {
	first := &recordingHandler{name: "first", done: make(chan string, 1)}
	second := &recordingHandler{name: "second", done: make(chan string, 1)}

	d := NewDispatcher(2, 10, first, second)
	d.Start()
	defer d.Stop()

	d.Dispatch(Job{
		OwnerID: "user-1",
		Sample:  sample("dev-1", 1000),
		Tier:    plan.Resolve(plan.Free),
	})

	for _, h := range []*recordingHandler{first, second} {
		select {
		case deviceID := <-h.done:
			if deviceID != "dev-1" {
				t.Errorf("%s handled device %s, want dev-1", h.name, deviceID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s never received the job", h.name)
		}
	}
}

func TestDispatcherIsolatesFailingHandler(t *testing.T) {
	failing := &recordingHandler{name: "failing", fail: true}
	healthy := &recordingHandler{name: "healthy", done: make(chan string, 1)}

	d := NewDispatcher(1, 10, failing, healthy)
	d.retryConfig = resilience.RetryConfig{MaxAttempts: 1}
	d.Start()
	defer d.Stop()

	d.Dispatch(Job{
		OwnerID: "user-1",
		Sample:  sample("dev-1", 1000),
		Tier:    plan.Resolve(plan.Free),
	})

	select {
	case <-healthy.done:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy handler starved by failing one")
	}

	if failing.calls.Load() == 0 {
		t.Error("failing handler was never invoked")
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	blocked := &recordingHandler{name: "blocked", done: make(chan string)}

	// One-slot queue, dispatcher never started: the second job must be
	// dropped, not block the caller.
	d := NewDispatcher(1, 1, blocked)

	done := make(chan struct{})
	go func() {
		d.Dispatch(Job{OwnerID: "u", Sample: sample("a", 1000), Tier: plan.Resolve(plan.Free)})
		d.Dispatch(Job{OwnerID: "u", Sample: sample("b", 1000), Tier: plan.Resolve(plan.Free)})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
}

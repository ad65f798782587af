package geofence

import (
	"context"
	"testing"

	"location-tracking-core/internal/domain/geofence"
	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/memstore"
	"location-tracking-core/internal/plan"
	"location-tracking-core/internal/worker"
)

type recordingNotifier struct {
	events []*geofence.Event
}

func (n *recordingNotifier) PublishGeofenceEvent(ctx context.Context, userID string, e *geofence.Event, fenceName, message string) error {
	n.events = append(n.events, e)
	return nil
}

func job(deviceID string, ts int64, lat, lon float64) worker.Job {
	return worker.Job{
		OwnerID: "user-1",
		Sample: &location.Sample{
			DeviceID:  deviceID,
			Timestamp: ts,
			Coords:    location.Coordinates{Latitude: lat, Longitude: lon},
		},
		Tier: plan.Resolve(plan.Free),
	}
}

func newFence(t *testing.T, repo *memstore.GeofenceRepository, notifyEnter, notifyExit bool) *geofence.Geofence {
	t.Helper()

	svc := NewService(repo)
	lat, lon := 41.0, 29.0
	g, err := svc.Create(context.Background(), "user-1", &geofence.CreateRequest{
		Name:          "home",
		Latitude:      &lat,
		Longitude:     &lon,
		RadiusM:       500,
		NotifyOnEnter: &notifyEnter,
		NotifyOnExit:  &notifyExit,
	})
	if err != nil {
		t.Fatalf("create fence: %v", err)
	}
	return g
}

func TestContains(t *testing.T) {
	f := &geofence.Geofence{Latitude: 41.0, Longitude: 29.0, RadiusM: 500}

	center := &location.Sample{Coords: location.Coordinates{Latitude: 41.0, Longitude: 29.0}}
	if !Contains(center, f) {
		t.Error("sample at the center must be inside")
	}

	far := &location.Sample{Coords: location.Coordinates{Latitude: 41.10, Longitude: 29.0}}
	if Contains(far, f) {
		t.Error("sample ~11km away must be outside")
	}
}

func TestEvaluatorFiresTransitionOnce(t *testing.T) {
	repo := memstore.NewGeofenceRepository(nil)
	newFence(t, repo, true, true)

	e := NewEvaluator(repo, nil, nil)
	ctx := context.Background()

	// Five consecutive samples inside must produce exactly one enter event.
	for i := 0; i < 5; i++ {
		if err := e.Handle(ctx, job("dev-1", int64(i+1)*1000, 41.0, 29.0)); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	events, total, err := repo.ListEvents(ctx, &geofence.EventQuery{DeviceID: "dev-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if total != 1 {
		t.Fatalf("events = %d, want exactly 1 enter", total)
	}
	if events[0].EventType != geofence.EventEnter {
		t.Errorf("event type = %s, want enter", events[0].EventType)
	}

	// Leaving and re-entering fires one exit and one more enter.
	if err := e.Handle(ctx, job("dev-1", 6000, 41.10, 29.0)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := e.Handle(ctx, job("dev-1", 7000, 41.0, 29.0)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	_, total, err = repo.ListEvents(ctx, &geofence.EventQuery{DeviceID: "dev-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if total != 3 {
		t.Errorf("events = %d, want 3 after exit and re-enter", total)
	}
}

func TestEvaluatorTracksDevicesIndependently(t *testing.T) {
	repo := memstore.NewGeofenceRepository(nil)
	newFence(t, repo, true, true)

	e := NewEvaluator(repo, nil, nil)
	ctx := context.Background()

	if err := e.Handle(ctx, job("dev-1", 1000, 41.0, 29.0)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := e.Handle(ctx, job("dev-2", 1000, 41.0, 29.0)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	for _, deviceID := range []string{"dev-1", "dev-2"} {
		_, total, err := repo.ListEvents(ctx, &geofence.EventQuery{DeviceID: deviceID, Limit: 10})
		if err != nil {
			t.Fatalf("ListEvents: %v", err)
		}
		if total != 1 {
			t.Errorf("device %s events = %d, want 1", deviceID, total)
		}
	}
}

func TestEvaluatorHonorsNotifyFlags(t *testing.T) {
	repo := memstore.NewGeofenceRepository(nil)
	newFence(t, repo, true, false) // notify on enter only

	notifier := &recordingNotifier{}
	e := NewEvaluator(repo, notifier, nil)
	ctx := context.Background()

	if err := e.Handle(ctx, job("dev-1", 1000, 41.0, 29.0)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := e.Handle(ctx, job("dev-1", 2000, 41.10, 29.0)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("notifications = %d, want 1 (enter only)", len(notifier.events))
	}
	if notifier.events[0].EventType != geofence.EventEnter {
		t.Errorf("notified for %s, want enter", notifier.events[0].EventType)
	}

	// The suppressed exit is still logged as an event.
	_, total, err := repo.ListEvents(ctx, &geofence.EventQuery{DeviceID: "dev-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if total != 2 {
		t.Errorf("events = %d, want 2", total)
	}
}

func TestEvaluatorSkipsDisabledFences(t *testing.T) {
	repo := memstore.NewGeofenceRepository(nil)
	g := newFence(t, repo, true, true)

	svc := NewService(repo)
	disabled := false
	if _, err := svc.Update(context.Background(), "user-1", g.ID, &geofence.UpdateRequest{Enabled: &disabled}); err != nil {
		t.Fatalf("disable fence: %v", err)
	}

	e := NewEvaluator(repo, nil, nil)
	if err := e.Handle(context.Background(), job("dev-1", 1000, 41.0, 29.0)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	_, total, err := repo.ListEvents(context.Background(), &geofence.EventQuery{DeviceID: "dev-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if total != 0 {
		t.Errorf("events = %d, want 0 for a disabled fence", total)
	}
}

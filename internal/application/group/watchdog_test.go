package group

import (
	"context"
	"errors"
	"testing"

	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/memstore"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/plan"
	"location-tracking-core/internal/worker"
)

type stubLocator struct {
	positions map[string]*location.Sample
}

func (l *stubLocator) Latest(ctx context.Context, deviceID string) (*location.Sample, error) {
	return l.positions[deviceID], nil
}

type countingNotifier struct {
	alerts []string // deviceID per alert
}

func (n *countingNotifier) PublishDistanceAlert(ctx context.Context, userID, groupID, deviceID string, distanceKm float64) error {
	n.alerts = append(n.alerts, deviceID)
	return nil
}

func at(deviceID string, lat, lon float64) *location.Sample {
	return &location.Sample{
		DeviceID:  deviceID,
		Timestamp: 1000,
		Coords:    location.Coordinates{Latitude: lat, Longitude: lon},
	}
}

func seedGroup(t *testing.T, repo *memstore.GroupRepository, devices ...string) {
	t.Helper()

	svc := NewService(repo, nil, nil)
	g, err := svc.Create(context.Background(), "user-1", "family")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, d := range devices {
		if err := svc.AddMember(context.Background(), "user-1", g.ID, d, d); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
}

func watchdogJob(sample *location.Sample) worker.Job {
	return worker.Job{OwnerID: "user-1", Sample: sample, Tier: plan.Resolve(plan.Free)}
}

func TestWatchdogAlertsBeyondThreshold(t *testing.T) {
	repo := memstore.NewGroupRepository()
	seedGroup(t, repo, "near", "far")

	// "far" sits ~111km north of the reporting device.
	locator := &stubLocator{positions: map[string]*location.Sample{
		"far": at("far", 42.0, 29.0),
	}}
	notifier := &countingNotifier{}
	w := NewWatchdog(repo, locator, notifier)

	if err := w.Handle(context.Background(), watchdogJob(at("near", 41.0, 29.0))); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(notifier.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(notifier.alerts))
	}
	if notifier.alerts[0] != "near" {
		t.Errorf("alert device = %s, want the reporting device", notifier.alerts[0])
	}
}

func TestWatchdogStaysQuietWithinThreshold(t *testing.T) {
	repo := memstore.NewGroupRepository()
	seedGroup(t, repo, "a", "b")

	// ~11km apart, inside the 30km threshold.
	locator := &stubLocator{positions: map[string]*location.Sample{
		"b": at("b", 41.10, 29.0),
	}}
	notifier := &countingNotifier{}
	w := NewWatchdog(repo, locator, notifier)

	if err := w.Handle(context.Background(), watchdogJob(at("a", 41.0, 29.0))); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(notifier.alerts) != 0 {
		t.Errorf("alerts = %d, want 0 within threshold", len(notifier.alerts))
	}
}

func TestWatchdogCooldownSuppressesRepeats(t *testing.T) {
	repo := memstore.NewGroupRepository()
	seedGroup(t, repo, "a", "b")

	locator := &stubLocator{positions: map[string]*location.Sample{
		"b": at("b", 42.0, 29.0),
	}}
	notifier := &countingNotifier{}
	w := NewWatchdog(repo, locator, notifier)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := w.Handle(ctx, watchdogJob(at("a", 41.0, 29.0))); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}

	if len(notifier.alerts) != 1 {
		t.Errorf("alerts = %d, want 1 within the cooldown window", len(notifier.alerts))
	}
}

func TestWatchdogIgnoresPeersWithoutPositions(t *testing.T) {
	repo := memstore.NewGroupRepository()
	seedGroup(t, repo, "a", "silent")

	w := NewWatchdog(repo, &stubLocator{positions: map[string]*location.Sample{}}, &countingNotifier{})

	if err := w.Handle(context.Background(), watchdogJob(at("a", 41.0, 29.0))); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func TestLatestLocationsCoversAllMembers(t *testing.T) {
	repo := memstore.NewGroupRepository()
	svc := NewService(repo, &stubLocator{positions: map[string]*location.Sample{
		"a": at("a", 41.0, 29.0),
		"b": at("b", 41.1, 29.0),
	}}, nil)
	ctx := context.Background()

	g, err := svc.Create(ctx, "user-1", "crew")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, d := range []string{"a", "b", "c"} {
		if err := svc.AddMember(ctx, "user-1", g.ID, d, d); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	snaps, err := svc.LatestLocations(ctx, "user-1", g.ID)
	if err != nil {
		t.Fatalf("LatestLocations: %v", err)
	}

	if len(snaps) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(snaps))
	}
	byDevice := make(map[string]location.Snapshot, len(snaps))
	for _, s := range snaps {
		byDevice[s.DeviceID] = s
	}
	if byDevice["a"].Last == nil || byDevice["b"].Last == nil {
		t.Error("devices with positions must carry a last sample")
	}
	if byDevice["c"].Last != nil {
		t.Error("silent device must have a nil last sample")
	}
}

func TestGroupOperationsAreOwnerScoped(t *testing.T) {
	repo := memstore.NewGroupRepository()
	svc := NewService(repo, &stubLocator{positions: map[string]*location.Sample{}}, nil)
	ctx := context.Background()

	g, err := svc.Create(ctx, "user-1", "crew")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := svc.AddMember(ctx, "user-2", g.ID, "dev", "dev"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-owner add error = %v, want not found", err)
	}
	if _, err := svc.LatestLocations(ctx, "user-2", g.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-owner read error = %v, want not found", err)
	}
}

package geofence

import (
	"context"
	"errors"
	"testing"

	"location-tracking-core/internal/domain/geofence"
	"location-tracking-core/internal/infrastructure/memstore"
	"location-tracking-core/internal/infrastructure/storage"
)

func TestCreateAppliesDefaults(t *testing.T) {
	svc := NewService(memstore.NewGeofenceRepository(nil))

	lat, lon := 41.0, 29.0
	g, err := svc.Create(context.Background(), "user-1", &geofence.CreateRequest{
		Name:      "office",
		Latitude:  &lat,
		Longitude: &lon,
		RadiusM:   200,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !g.Enabled || !g.NotifyOnEnter || !g.NotifyOnExit {
		t.Errorf("defaults = enabled:%v enter:%v exit:%v, want all true", g.Enabled, g.NotifyOnEnter, g.NotifyOnExit)
	}
	if g.OwnerID != "user-1" {
		t.Errorf("owner = %s, want user-1", g.OwnerID)
	}
}

func TestCreateRejectsOutOfRangeCenter(t *testing.T) {
	svc := NewService(memstore.NewGeofenceRepository(nil))

	lat, lon := 95.0, 29.0
	if _, err := svc.Create(context.Background(), "user-1", &geofence.CreateRequest{
		Name:      "bad",
		Latitude:  &lat,
		Longitude: &lon,
		RadiusM:   200,
	}); err == nil {
		t.Fatal("expected error for latitude 95")
	}
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	repo := memstore.NewGeofenceRepository(nil)
	svc := NewService(repo)
	ctx := context.Background()

	lat, lon := 41.0, 29.0
	g, err := svc.Create(ctx, "user-1", &geofence.CreateRequest{
		Name:      "home",
		Latitude:  &lat,
		Longitude: &lon,
		RadiusM:   500,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "renamed"
	updated, err := svc.Update(ctx, "user-1", g.ID, &geofence.UpdateRequest{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Name != "renamed" {
		t.Errorf("name = %s, want renamed", updated.Name)
	}
	if updated.RadiusM != 500 || updated.Latitude != 41.0 {
		t.Errorf("untouched fields changed: radius=%f lat=%f", updated.RadiusM, updated.Latitude)
	}
}

func TestUpdateIsOwnerScoped(t *testing.T) {
	repo := memstore.NewGeofenceRepository(nil)
	svc := NewService(repo)
	ctx := context.Background()

	lat, lon := 41.0, 29.0
	g, err := svc.Create(ctx, "user-1", &geofence.CreateRequest{
		Name:      "home",
		Latitude:  &lat,
		Longitude: &lon,
		RadiusM:   500,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	name := "hijacked"
	_, err = svc.Update(ctx, "user-2", g.ID, &geofence.UpdateRequest{Name: &name})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-owner update error = %v, want not found", err)
	}

	if err := svc.Delete(ctx, "user-2", g.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-owner delete error = %v, want not found", err)
	}
}

func TestEventsPagingDefaults(t *testing.T) {
	svc := NewService(memstore.NewGeofenceRepository(nil))

	q := &geofence.EventQuery{DeviceID: "dev-1", Limit: 5000, Offset: -3}
	if _, _, err := svc.Events(context.Background(), q); err != nil {
		t.Fatalf("Events: %v", err)
	}

	if q.Limit != maxEventPageSize {
		t.Errorf("limit = %d, want capped at %d", q.Limit, maxEventPageSize)
	}
	if q.Offset != 0 {
		t.Errorf("offset = %d, want 0", q.Offset)
	}
}

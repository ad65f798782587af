package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"location-tracking-core/internal/domain/geofence"
	"location-tracking-core/internal/infrastructure/storage"
)

// ErrNotFound mirrors the "zero rows" outcome of the postgres backend.
var ErrNotFound = storage.ErrNotFound

type GeofenceRepository struct {
	mu     sync.RWMutex
	fences map[uuid.UUID]geofence.Geofence
	events []geofence.Event
	groups *GroupRepository
}

func NewGeofenceRepository(groups *GroupRepository) *GeofenceRepository {
	return &GeofenceRepository{
		fences: make(map[uuid.UUID]geofence.Geofence),
		groups: groups,
	}
}

func (r *GeofenceRepository) Create(ctx context.Context, g *geofence.Geofence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fences[g.ID] = *g
	return nil
}

func (r *GeofenceRepository) Update(ctx context.Context, g *geofence.Geofence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.fences[g.ID]
	if !ok || existing.OwnerID != g.OwnerID {
		return ErrNotFound
	}
	r.fences[g.ID] = *g
	return nil
}

func (r *GeofenceRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.fences[id]
	if !ok || existing.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.fences, id)
	return nil
}

func (r *GeofenceRepository) Get(ctx context.Context, ownerID string, id uuid.UUID) (*geofence.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.fences[id]
	if !ok || g.OwnerID != ownerID {
		return nil, nil
	}
	return &g, nil
}

func (r *GeofenceRepository) ListByOwner(ctx context.Context, ownerID string) ([]geofence.Geofence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var fences []geofence.Geofence
	for _, g := range r.fences {
		if g.OwnerID == ownerID {
			fences = append(fences, g)
		}
	}

	sort.Slice(fences, func(i, j int) bool {
		return fences[i].CreatedAt.After(fences[j].CreatedAt)
	})
	return fences, nil
}

func (r *GeofenceRepository) ListEnabled(ctx context.Context, ownerID, deviceID string) ([]geofence.Geofence, error) {
	memberOf := make(map[string]bool)
	if r.groups != nil {
		groups, err := r.groups.GroupsForDevice(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			memberOf[g.ID] = true
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var fences []geofence.Geofence
	for _, g := range r.fences {
		if !g.Enabled {
			continue
		}
		switch {
		case g.GroupID == nil && g.OwnerID == ownerID:
			fences = append(fences, g)
		case g.GroupID != nil && memberOf[*g.GroupID]:
			fences = append(fences, g)
		}
	}

	return fences, nil
}

func (r *GeofenceRepository) InsertEvent(ctx context.Context, e *geofence.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.events {
		if existing.GeofenceID == e.GeofenceID &&
			existing.DeviceID == e.DeviceID &&
			existing.Timestamp == e.Timestamp &&
			existing.EventType == e.EventType {
			return nil
		}
	}

	r.events = append(r.events, *e)
	return nil
}

func (r *GeofenceRepository) ListEvents(ctx context.Context, q *geofence.EventQuery) ([]geofence.Event, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []geofence.Event
	for _, e := range r.events {
		if e.DeviceID != q.DeviceID {
			continue
		}
		if q.GeofenceID != nil && e.GeofenceID != *q.GeofenceID {
			continue
		}
		if q.StartTime > 0 && e.Timestamp < q.StartTime {
			continue
		}
		if q.EndTime > 0 && e.Timestamp > q.EndTime {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})

	total := len(matched)
	if q.Offset >= total {
		return nil, total, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	return matched, total, nil
}

// Package storage defines the persistence contracts and the policy for
// choosing a backend. Postgres is the primary store; when it is unreachable
// at startup the service degrades to the in-memory store instead of refusing
// to ingest.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"location-tracking-core/internal/domain/geofence"
	"location-tracking-core/internal/domain/group"
	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/domain/vehicle"
)

// ErrNotFound is returned by every backend when a write or read targets an
// entity that does not exist or is not visible to the caller.
var ErrNotFound = errors.New("storage: not found")

type LocationRepository interface {
	// BatchInsert appends samples idempotently: a (device_id, time) pair
	// already present is skipped, not duplicated.
	BatchInsert(ctx context.Context, samples []*location.Sample) error

	// History returns samples for a device ordered oldest first, plus the
	// total row count for pagination.
	History(ctx context.Context, q *location.HistoryQuery) ([]location.Sample, int, error)

	Latest(ctx context.Context, deviceID string) (*location.Sample, error)
	Count(ctx context.Context, deviceID string) (int, error)

	// Evict removes the oldest samples of a device so that at most keep
	// remain. Callers pass the plan ceiling minus an overlap margin so
	// eviction does not run on every flush.
	Evict(ctx context.Context, deviceID string, keep int) error

	// ActiveDevices lists devices that reported at least once since the
	// given time.
	ActiveDevices(ctx context.Context, since time.Time) ([]string, error)
}

type GeofenceRepository interface {
	Create(ctx context.Context, g *geofence.Geofence) error
	Update(ctx context.Context, g *geofence.Geofence) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*geofence.Geofence, error)
	ListByOwner(ctx context.Context, ownerID string) ([]geofence.Geofence, error)

	// ListEnabled returns the enabled geofences a device must be evaluated
	// against: the owner's own fences plus fences of groups the device
	// belongs to.
	ListEnabled(ctx context.Context, ownerID, deviceID string) ([]geofence.Geofence, error)

	InsertEvent(ctx context.Context, e *geofence.Event) error
	ListEvents(ctx context.Context, q *geofence.EventQuery) ([]geofence.Event, int, error)
}

type VehicleRepository interface {
	CreateVehicle(ctx context.Context, v *vehicle.Vehicle) error
	GetVehicle(ctx context.Context, userID string, id uuid.UUID) (*vehicle.Vehicle, error)
	ListVehicles(ctx context.Context, userID string) ([]vehicle.Vehicle, error)
	DeleteVehicle(ctx context.Context, userID string, id uuid.UUID) error

	// StartSession persists a new active session. Any session still active
	// for the vehicle is closed first; a vehicle has at most one.
	StartSession(ctx context.Context, s *vehicle.Session) error
	EndSession(ctx context.Context, userID string, sessionID uuid.UUID, endedAt time.Time) (*vehicle.Session, error)
	ActiveSession(ctx context.Context, vehicleID uuid.UUID) (*vehicle.Session, error)

	InsertViolation(ctx context.Context, v *vehicle.SpeedViolation) error
	ListViolations(ctx context.Context, userID string, vehicleID uuid.UUID, limit int) ([]vehicle.SpeedViolation, error)
}

type GroupRepository interface {
	Create(ctx context.Context, g *group.Group) error
	Get(ctx context.Context, id string) (*group.Group, error)
	AddMember(ctx context.Context, m *group.Member) error
	RemoveMember(ctx context.Context, groupID, deviceID string) error
	ListMembers(ctx context.Context, groupID string) ([]group.Member, error)
	GroupsForDevice(ctx context.Context, deviceID string) ([]group.Group, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Locations LocationRepository
	Geofences GeofenceRepository
	Vehicles  VehicleRepository
	Groups    GroupRepository

	// Name identifies the backend in health output ("postgres" or "memory").
	Name string

	healthCheck func(ctx context.Context) error
}

func New(name string, healthCheck func(ctx context.Context) error) *Store {
	return &Store{Name: name, healthCheck: healthCheck}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if s.healthCheck == nil {
		return nil
	}
	return s.healthCheck(ctx)
}

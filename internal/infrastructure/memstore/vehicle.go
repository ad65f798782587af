package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"location-tracking-core/internal/domain/vehicle"
)

type VehicleRepository struct {
	mu         sync.RWMutex
	vehicles   map[uuid.UUID]vehicle.Vehicle
	sessions   map[uuid.UUID]vehicle.Session
	violations []vehicle.SpeedViolation
}

func NewVehicleRepository() *VehicleRepository {
	return &VehicleRepository{
		vehicles: make(map[uuid.UUID]vehicle.Vehicle),
		sessions: make(map[uuid.UUID]vehicle.Session),
	}
}

func (r *VehicleRepository) CreateVehicle(ctx context.Context, v *vehicle.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vehicles[v.ID] = *v
	return nil
}

func (r *VehicleRepository) GetVehicle(ctx context.Context, userID string, id uuid.UUID) (*vehicle.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vehicles[id]
	if !ok || v.OwnerID != userID {
		return nil, nil
	}
	return &v, nil
}

func (r *VehicleRepository) ListVehicles(ctx context.Context, userID string) ([]vehicle.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var vehicles []vehicle.Vehicle
	for _, v := range r.vehicles {
		if v.OwnerID == userID {
			vehicles = append(vehicles, v)
		}
	}

	sort.Slice(vehicles, func(i, j int) bool {
		return vehicles[i].CreatedAt.After(vehicles[j].CreatedAt)
	})
	return vehicles, nil
}

func (r *VehicleRepository) DeleteVehicle(ctx context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vehicles[id]
	if !ok || v.OwnerID != userID {
		return ErrNotFound
	}
	delete(r.vehicles, id)
	return nil
}

func (r *VehicleRepository) StartSession(ctx context.Context, s *vehicle.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.sessions {
		if existing.VehicleID == s.VehicleID && existing.IsActive {
			endedAt := s.StartedAt
			existing.IsActive = false
			existing.EndedAt = &endedAt
			r.sessions[id] = existing
		}
	}

	s.IsActive = true
	r.sessions[s.ID] = *s
	return nil
}

func (r *VehicleRepository) EndSession(ctx context.Context, userID string, sessionID uuid.UUID, endedAt time.Time) (*vehicle.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID || !s.IsActive {
		return nil, nil
	}

	s.IsActive = false
	s.EndedAt = &endedAt
	r.sessions[sessionID] = s
	return &s, nil
}

func (r *VehicleRepository) ActiveSession(ctx context.Context, vehicleID uuid.UUID) (*vehicle.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		if s.VehicleID == vehicleID && s.IsActive {
			active := s
			return &active, nil
		}
	}
	return nil, nil
}

func (r *VehicleRepository) InsertViolation(ctx context.Context, v *vehicle.SpeedViolation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.violations = append(r.violations, *v)
	return nil
}

func (r *VehicleRepository) ListViolations(ctx context.Context, userID string, vehicleID uuid.UUID, limit int) ([]vehicle.SpeedViolation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []vehicle.SpeedViolation
	for _, v := range r.violations {
		if v.UserID == userID && v.VehicleID == vehicleID {
			matched = append(matched, v)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

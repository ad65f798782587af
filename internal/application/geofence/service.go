// Package geofence manages fence definitions and evaluates samples against
// them. Evaluation runs on the ingestion fan-out; management is plain CRUD.
package geofence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"location-tracking-core/internal/domain/geofence"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/pkg/geo"
)

const (
	defaultEventPageSize = 100
	maxEventPageSize     = 1000
)

type Service struct {
	fences storage.GeofenceRepository
}

func NewService(fences storage.GeofenceRepository) *Service {
	return &Service{fences: fences}
}

func (s *Service) Create(ctx context.Context, ownerID string, req *geofence.CreateRequest) (*geofence.Geofence, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, fmt.Errorf("center coordinates are required")
	}
	if !geo.ValidCoords(*req.Latitude, *req.Longitude) {
		return nil, fmt.Errorf("center coordinates are out of range")
	}

	now := time.Now()
	g := &geofence.Geofence{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		GroupID:       req.GroupID,
		Name:          req.Name,
		Latitude:      *req.Latitude,
		Longitude:     *req.Longitude,
		RadiusM:       req.RadiusM,
		Enabled:       boolOr(req.Enabled, true),
		NotifyOnEnter: boolOr(req.NotifyOnEnter, true),
		NotifyOnExit:  boolOr(req.NotifyOnExit, true),
		EnterMessage:  req.EnterMessage,
		ExitMessage:   req.ExitMessage,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.fences.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Update applies the non-nil fields of req. Returns storage.ErrNotFound when
// the fence does not exist or belongs to another owner.
func (s *Service) Update(ctx context.Context, ownerID string, id uuid.UUID, req *geofence.UpdateRequest) (*geofence.Geofence, error) {
	g, err := s.fences.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, storage.ErrNotFound
	}

	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Latitude != nil {
		g.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		g.Longitude = *req.Longitude
	}
	if !geo.ValidCoords(g.Latitude, g.Longitude) {
		return nil, fmt.Errorf("center coordinates are out of range")
	}
	if req.RadiusM != nil {
		if *req.RadiusM <= 0 {
			return nil, fmt.Errorf("radius must be positive")
		}
		g.RadiusM = *req.RadiusM
	}
	if req.Enabled != nil {
		g.Enabled = *req.Enabled
	}
	if req.NotifyOnEnter != nil {
		g.NotifyOnEnter = *req.NotifyOnEnter
	}
	if req.NotifyOnExit != nil {
		g.NotifyOnExit = *req.NotifyOnExit
	}
	if req.EnterMessage != nil {
		g.EnterMessage = req.EnterMessage
	}
	if req.ExitMessage != nil {
		g.ExitMessage = req.ExitMessage
	}
	g.UpdatedAt = time.Now()

	if err := s.fences.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	return s.fences.Delete(ctx, ownerID, id)
}

func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*geofence.Geofence, error) {
	g, err := s.fences.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, storage.ErrNotFound
	}
	return g, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]geofence.Geofence, error) {
	return s.fences.ListByOwner(ctx, ownerID)
}

// Events pages the enter/exit log for a device.
func (s *Service) Events(ctx context.Context, q *geofence.EventQuery) ([]geofence.Event, int, error) {
	if q.Limit <= 0 {
		q.Limit = defaultEventPageSize
	}
	if q.Limit > maxEventPageSize {
		q.Limit = maxEventPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.fences.ListEvents(ctx, q)
}

func boolOr(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}

// Package vehicle manages registered vehicles, their usage sessions and the
// speed violation log.
package vehicle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"location-tracking-core/internal/domain/vehicle"
	"location-tracking-core/internal/infrastructure/storage"
)

const defaultViolationPageSize = 50

// Notifier is the push-delivery collaborator for violation alerts.
type Notifier interface {
	PublishSpeedViolation(ctx context.Context, userID string, vehicleID uuid.UUID, speedKmh, limitKmh float64, severity string) error
}

type Service struct {
	vehicles storage.VehicleRepository
	notifier Notifier
}

// NewService builds the vehicle service. notifier may be nil; violations are
// then only logged to the store.
func NewService(vehicles storage.VehicleRepository, notifier Notifier) *Service {
	return &Service{vehicles: vehicles, notifier: notifier}
}

func (s *Service) Create(ctx context.Context, ownerID string, req *vehicle.CreateRequest) (*vehicle.Vehicle, error) {
	vehicleType := req.VehicleType
	if vehicleType == "" {
		vehicleType = "car"
	}

	v := &vehicle.Vehicle{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		GroupID:     req.GroupID,
		Name:        req.Name,
		PlateNumber: req.PlateNumber,
		VehicleType: vehicleType,
		MaxSpeedKmh: req.MaxSpeedKmh,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}

	if err := s.vehicles.CreateVehicle(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*vehicle.Vehicle, error) {
	v, err := s.vehicles.GetVehicle(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]vehicle.Vehicle, error) {
	return s.vehicles.ListVehicles(ctx, ownerID)
}

func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	return s.vehicles.DeleteVehicle(ctx, ownerID, id)
}

// StartSession opens a usage session. Any session still active for the
// vehicle is closed first, so a vehicle never carries two active sessions.
func (s *Service) StartSession(ctx context.Context, userID string, req *vehicle.StartSessionRequest) (*vehicle.Session, error) {
	if req.Location == nil {
		return nil, fmt.Errorf("start location is required")
	}

	if _, err := s.Get(ctx, userID, req.VehicleID); err != nil {
		return nil, err
	}

	session := &vehicle.Session{
		ID:            uuid.New(),
		VehicleID:     req.VehicleID,
		UserID:        userID,
		DeviceID:      req.DeviceID,
		StartedAt:     time.Now(),
		StartLocation: *req.Location,
		IsActive:      true,
	}

	if err := s.vehicles.StartSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) EndSession(ctx context.Context, userID string, sessionID uuid.UUID) (*vehicle.Session, error) {
	session, err := s.vehicles.EndSession(ctx, userID, sessionID, time.Now())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, storage.ErrNotFound
	}
	return session, nil
}

func (s *Service) ActiveSession(ctx context.Context, userID string, vehicleID uuid.UUID) (*vehicle.Session, error) {
	if _, err := s.Get(ctx, userID, vehicleID); err != nil {
		return nil, err
	}
	return s.vehicles.ActiveSession(ctx, vehicleID)
}

// RecordViolation appends a speed violation with severity derived from the
// speed/limit ratio, then notifies the owner fire-and-forget.
func (s *Service) RecordViolation(ctx context.Context, userID string, req *vehicle.ViolationRequest) (*vehicle.SpeedViolation, error) {
	if _, err := s.Get(ctx, userID, req.VehicleID); err != nil {
		return nil, err
	}

	v := &vehicle.SpeedViolation{
		ID:            uuid.New(),
		VehicleID:     req.VehicleID,
		SessionID:     req.SessionID,
		UserID:        userID,
		SpeedKmh:      req.SpeedKmh,
		SpeedLimitKmh: req.SpeedLimitKmh,
		Severity:      vehicle.SeverityFor(req.SpeedKmh, req.SpeedLimitKmh),
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Timestamp:     time.Now(),
	}

	if err := s.vehicles.InsertViolation(ctx, v); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		err := s.notifier.PublishSpeedViolation(ctx, userID, v.VehicleID, v.SpeedKmh, v.SpeedLimitKmh, string(v.Severity))
		if err != nil {
			log.Printf("Failed to publish speed violation for vehicle %s: %v", v.VehicleID, err)
		}
	}

	return v, nil
}

func (s *Service) ListViolations(ctx context.Context, userID string, vehicleID uuid.UUID, limit int) ([]vehicle.SpeedViolation, error) {
	if limit <= 0 {
		limit = defaultViolationPageSize
	}
	return s.vehicles.ListViolations(ctx, userID, vehicleID, limit)
}

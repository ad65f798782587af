package vehicle

import (
	"time"

	"github.com/google/uuid"
)

type ViolationSeverity string

const (
	SeverityMinor    ViolationSeverity = "minor"
	SeverityModerate ViolationSeverity = "moderate"
	SeveritySevere   ViolationSeverity = "severe"
)

// Vehicle is a tracked vehicle registered by a user, optionally shared with
// a group.
type Vehicle struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"owner_id"`
	GroupID     *string   `json:"group_id,omitempty"`
	Name        string    `json:"name"`
	PlateNumber *string   `json:"plate_number,omitempty"`
	VehicleType string    `json:"vehicle_type"`
	MaxSpeedKmh *float64  `json:"max_speed_kmh,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// StartLocation is the position recorded when a session opens.
type StartLocation struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// Session is one period of vehicle use. A vehicle has at most one active
// session; a closed session is immutable.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	VehicleID     uuid.UUID     `json:"vehicle_id"`
	UserID        string        `json:"user_id"`
	DeviceID      *string       `json:"device_id,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	StartLocation StartLocation `json:"start_location"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	IsActive      bool          `json:"is_active"`
}

// SpeedViolation is an immutable record of a speed-limit breach, optionally
// tied to the session during which it happened.
type SpeedViolation struct {
	ID            uuid.UUID         `json:"id"`
	VehicleID     uuid.UUID         `json:"vehicle_id"`
	SessionID     *uuid.UUID        `json:"session_id,omitempty"`
	UserID        string            `json:"user_id"`
	SpeedKmh      float64           `json:"speed_kmh"`
	SpeedLimitKmh float64           `json:"speed_limit_kmh"`
	Severity      ViolationSeverity `json:"severity"`
	Latitude      *float64          `json:"latitude,omitempty"`
	Longitude     *float64          `json:"longitude,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// SeverityFor derives the violation severity from the speed/limit ratio.
func SeverityFor(speedKmh, limitKmh float64) ViolationSeverity {
	switch {
	case speedKmh > limitKmh*1.5:
		return SeveritySevere
	case speedKmh > limitKmh*1.2:
		return SeverityModerate
	default:
		return SeverityMinor
	}
}

// CreateRequest carries the writable vehicle fields.
type CreateRequest struct {
	Name        string   `json:"name" binding:"required"`
	PlateNumber *string  `json:"plate_number,omitempty"`
	VehicleType string   `json:"vehicle_type,omitempty"`
	MaxSpeedKmh *float64 `json:"max_speed_kmh,omitempty"`
	GroupID     *string  `json:"group_id,omitempty"`
}

// StartSessionRequest opens a session for a vehicle.
type StartSessionRequest struct {
	VehicleID uuid.UUID      `json:"vehicle_id" binding:"required"`
	DeviceID  *string        `json:"device_id,omitempty"`
	Location  *StartLocation `json:"location" binding:"required"`
}

// ViolationRequest logs a speed violation.
type ViolationRequest struct {
	VehicleID     uuid.UUID  `json:"vehicle_id" binding:"required"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	SpeedKmh      float64    `json:"speed_kmh" binding:"required,gt=0"`
	SpeedLimitKmh float64    `json:"speed_limit_kmh" binding:"required,gt=0"`
	Latitude      *float64   `json:"latitude,omitempty"`
	Longitude     *float64   `json:"longitude,omitempty"`
}

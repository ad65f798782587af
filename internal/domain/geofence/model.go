package geofence

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventEnter EventType = "enter"
	EventExit  EventType = "exit"
)

// Geofence is a named circular region owned by a user, optionally shared
// with a group. The Enabled flag gates evaluation without deleting the
// shape.
type Geofence struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       string    `json:"owner_id"`
	GroupID       *string   `json:"group_id,omitempty"`
	Name          string    `json:"name"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	RadiusM       float64   `json:"radius_m"`
	Enabled       bool      `json:"enabled"`
	NotifyOnEnter bool      `json:"notify_on_enter"`
	NotifyOnExit  bool      `json:"notify_on_exit"`
	EnterMessage  *string   `json:"enter_message,omitempty"`
	ExitMessage   *string   `json:"exit_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Event is an immutable enter/exit fact appended when a device crosses a
// geofence boundary.
type Event struct {
	ID         uuid.UUID `json:"id"`
	GeofenceID uuid.UUID `json:"geofence_id"`
	DeviceID   string    `json:"device_id"`
	EventType  EventType `json:"event_type"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Timestamp  int64     `json:"timestamp"`
}

// CreateRequest carries the writable geofence fields.
type CreateRequest struct {
	Name          string   `json:"name" binding:"required"`
	Latitude      *float64 `json:"latitude" binding:"required"`
	Longitude     *float64 `json:"longitude" binding:"required"`
	RadiusM       float64  `json:"radius_m" binding:"required,gt=0"`
	GroupID       *string  `json:"group_id,omitempty"`
	Enabled       *bool    `json:"enabled,omitempty"`
	NotifyOnEnter *bool    `json:"notify_on_enter,omitempty"`
	NotifyOnExit  *bool    `json:"notify_on_exit,omitempty"`
	EnterMessage  *string  `json:"enter_message,omitempty"`
	ExitMessage   *string  `json:"exit_message,omitempty"`
}

// UpdateRequest carries partial updates; nil fields are left unchanged.
type UpdateRequest struct {
	Name          *string  `json:"name,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	RadiusM       *float64 `json:"radius_m,omitempty"`
	Enabled       *bool    `json:"enabled,omitempty"`
	NotifyOnEnter *bool    `json:"notify_on_enter,omitempty"`
	NotifyOnExit  *bool    `json:"notify_on_exit,omitempty"`
	EnterMessage  *string  `json:"enter_message,omitempty"`
	ExitMessage   *string  `json:"exit_message,omitempty"`
}

// EventQuery filters the event log by time range and optional geofence.
type EventQuery struct {
	DeviceID   string     `form:"device_id"`
	GeofenceID *uuid.UUID `form:"geofence_id"`
	StartTime  int64      `form:"start_time"`
	EndTime    int64      `form:"end_time"`
	Limit      int        `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset     int        `form:"offset" binding:"omitempty,min=0"`
}

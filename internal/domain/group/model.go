package group

import "time"

// Group is a set of devices tracked together (a family, a work crew).
type Group struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Member links a device to a group.
type Member struct {
	GroupID  string    `json:"group_id"`
	DeviceID string    `json:"device_id"`
	Name     string    `json:"name,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

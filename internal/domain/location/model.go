package location

import "time"

// Coordinates is a single GPS reading as reported by the device. Accuracy,
// heading and speed are optional because not every device sensor provides
// them. Latitude and longitude carry no binding tags: zero is a valid value
// on both axes, and range checks belong to the ingestion validator.
type Coordinates struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"` // m/s, as reported by the GPS chip
}

// Geocode is the best-effort reverse-geocoding result attached to a sample.
type Geocode struct {
	City     string `json:"city"`
	Province string `json:"province"`
}

// Sample is one immutable GPS fix for a device. Timestamp is epoch millis;
// arrival order is not guaranteed to match it.
type Sample struct {
	DeviceID  string      `json:"device_id"`
	Timestamp int64       `json:"timestamp"`
	Coords    Coordinates `json:"coords"`
	Geocode   *Geocode    `json:"geocode,omitempty"`
}

// Time returns the sample timestamp as a time.Time.
func (s *Sample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// IngestRequest is the payload accepted by the ingestion endpoint and the
// MQTT location topic. UserID identifies the tenant on transports without an
// authenticated session (MQTT); the HTTP path takes it from the token
// instead.
type IngestRequest struct {
	DeviceID  string       `json:"device_id"`
	UserID    string       `json:"user_id,omitempty"`
	Timestamp *int64       `json:"timestamp,omitempty"`
	Coords    *Coordinates `json:"coords"`
}

// IngestResult is returned to the caller after a successful ingestion. The
// queue size gives upstream clients a throttling signal.
type IngestResult struct {
	Timestamp int64    `json:"timestamp"`
	QueueSize int      `json:"queue_size"`
	Quality   string   `json:"quality"`
	Geocode   *Geocode `json:"geocode,omitempty"`
}

// HistoryQuery selects a page of a device track, oldest first within the
// page, most-recent-last.
type HistoryQuery struct {
	DeviceID string `form:"-"`
	Limit    int    `form:"limit" binding:"omitempty,min=1"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
	ThinM    int    `form:"thin" binding:"omitempty,min=0"`
}

// Pagination describes the page returned by a history read.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// History is a page of a device track.
type History struct {
	DeviceID   string     `json:"device_id"`
	Locations  []Sample   `json:"locations"`
	Pagination Pagination `json:"pagination"`
}

// Stats summarizes a device's retained track.
type Stats struct {
	DeviceID        string  `json:"device_id"`
	TotalLocations  int     `json:"total_locations"`
	First           *Sample `json:"first_location"`
	Last            *Sample `json:"last_location"`
	TimeSpanMs      int64   `json:"time_span_ms"`
	AverageAccuracy float64 `json:"average_accuracy"`
}

// Snapshot is the latest known position of one device, used by the
// all-devices and group fan-out reads.
type Snapshot struct {
	DeviceID   string  `json:"device_id"`
	Last       *Sample `json:"last"`
	LastUpdate int64   `json:"last_update"`
}

package activity

type Type string

const (
	Stationary Type = "stationary"
	Walking    Type = "walking"
	Cycling    Type = "cycling"
	Motorcycle Type = "motorcycle"
	Driving    Type = "driving"
	Unknown    Type = "unknown"
)

// Classification is the derived motion label for a device's recent track.
// It is never persisted; it is a pure function of the last few samples and
// is recomputed on every request.
type Classification struct {
	Type       Type    `json:"type"`
	Confidence int     `json:"confidence"` // 0-100
	SpeedKmh   float64 `json:"speed_kmh"`
	ReasonCode string  `json:"reason_code"`
}

// VehicleStatus is the related but separate vehicle-in-use score.
type VehicleStatus struct {
	InVehicle  bool    `json:"is_in_vehicle"`
	Confidence int     `json:"confidence"` // 0-100
	SpeedKmh   float64 `json:"speed_kmh"`
	Reason     string  `json:"reason"`
}

package location

import (
	"fmt"
	"math"

	"location-tracking-core/internal/domain/location"
)

const (
	CodeMissingDeviceID       = "MISSING_DEVICE_ID"
	CodeMissingCoordinates    = "MISSING_COORDINATES"
	CodeInvalidCoordinates    = "INVALID_COORDINATES"
	CodeCoordinatesOutOfRange = "COORDINATES_OUT_OF_RANGE"
)

// ValidationError rejects a sample before any state is touched. Code is
// machine readable so device firmware can react without parsing messages.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validate(req *location.IngestRequest) error {
	if req.DeviceID == "" {
		return &ValidationError{
			Code:    CodeMissingDeviceID,
			Message: "device_id is required",
		}
	}

	if req.Coords == nil {
		return &ValidationError{
			Code:    CodeMissingCoordinates,
			Message: "coords with latitude and longitude are required",
		}
	}

	lat, lon := req.Coords.Latitude, req.Coords.Longitude
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return &ValidationError{
			Code:    CodeInvalidCoordinates,
			Message: "latitude and longitude must be finite numbers",
		}
	}

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return &ValidationError{
			Code:    CodeCoordinatesOutOfRange,
			Message: fmt.Sprintf("coordinates (%f, %f) are outside WGS84 bounds", lat, lon),
		}
	}

	if req.Coords.Accuracy != nil && *req.Coords.Accuracy < 0 {
		return &ValidationError{
			Code:    CodeInvalidCoordinates,
			Message: "accuracy cannot be negative",
		}
	}

	if req.Coords.Heading != nil && (*req.Coords.Heading < 0 || *req.Coords.Heading > 360) {
		return &ValidationError{
			Code:    CodeInvalidCoordinates,
			Message: "heading must be between 0 and 360",
		}
	}

	if req.Coords.Speed != nil && *req.Coords.Speed < 0 {
		return &ValidationError{
			Code:    CodeInvalidCoordinates,
			Message: "speed cannot be negative",
		}
	}

	return nil
}

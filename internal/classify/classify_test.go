package classify

import (
	"testing"

	"location-tracking-core/internal/domain/activity"
	"location-tracking-core/internal/domain/location"
)

// track builds a sample sequence starting at (41.0, 29.0) where each
// consecutive pair is stepS seconds apart and covers the distance implied
// by the matching per-pair speed in km/h (movement is due north).
func track(pairSpeedsKmh []float64, stepS int64) []location.Sample {
	const metersPerDegreeLat = 111195.0

	lat := 41.0
	ts := int64(1700000000000)
	samples := []location.Sample{{
		DeviceID:  "dev-1",
		Timestamp: ts,
		Coords:    location.Coordinates{Latitude: lat, Longitude: 29.0},
	}}

	for _, speed := range pairSpeedsKmh {
		distM := speed / 3.6 * float64(stepS)
		lat += distM / metersPerDegreeLat
		ts += stepS * 1000
		samples = append(samples, location.Sample{
			DeviceID:  "dev-1",
			Timestamp: ts,
			Coords:    location.Coordinates{Latitude: lat, Longitude: 29.0},
		})
	}

	return samples
}

func TestClassifyStationary(t *testing.T) {
	c := New(DefaultPolicy())

	zero := 0.0
	samples := []location.Sample{
		{DeviceID: "d", Timestamp: 1700000000000, Coords: location.Coordinates{Latitude: 41.0082, Longitude: 28.9784, Speed: &zero}},
		{DeviceID: "d", Timestamp: 1700000005000, Coords: location.Coordinates{Latitude: 41.0082, Longitude: 28.9784}},
	}

	got := c.Classify(samples)
	if got.Type != activity.Stationary {
		t.Fatalf("type = %s, want stationary", got.Type)
	}
	if got.Confidence < 90 {
		t.Errorf("confidence = %d, want >= 90", got.Confidence)
	}
}

func TestClassifyDrivingSpeedNeverStationary(t *testing.T) {
	c := New(DefaultPolicy())

	// 100m covered in 10s is 36 km/h.
	samples := []location.Sample{
		{DeviceID: "d", Timestamp: 1700000000000, Coords: location.Coordinates{Latitude: 41.0, Longitude: 29.0}},
		{DeviceID: "d", Timestamp: 1700000010000, Coords: location.Coordinates{Latitude: 41.000899, Longitude: 29.0}},
	}

	got := c.Classify(samples)
	if got.Type != activity.Driving && got.Type != activity.Motorcycle {
		t.Fatalf("type at 36 km/h = %s, want driving or motorcycle", got.Type)
	}
	if got.SpeedKmh < 30 || got.SpeedKmh > 42 {
		t.Errorf("speed = %.1f km/h, want about 36", got.SpeedKmh)
	}
}

func TestClassifyWalking(t *testing.T) {
	c := New(DefaultPolicy())

	got := c.Classify(track([]float64{4, 5, 5, 4}, 10))
	if got.Type != activity.Walking {
		t.Fatalf("type = %s, want walking", got.Type)
	}
}

func TestClassifySteadyCycling(t *testing.T) {
	c := New(DefaultPolicy())

	got := c.Classify(track([]float64{18, 19, 18, 19, 18}, 10))
	if got.Type != activity.Cycling {
		t.Fatalf("type = %s, want cycling", got.Type)
	}
}

func TestClassifyJerkyTwoWheelerIsMotorcycle(t *testing.T) {
	c := New(DefaultPolicy())

	// High variance with more hard accelerations than decelerations.
	got := c.Classify(track([]float64{8, 20, 10, 24, 26}, 10))
	if got.Type != activity.Motorcycle {
		t.Fatalf("type = %s, want motorcycle", got.Type)
	}
}

func TestClassifyHighwaySpeed(t *testing.T) {
	c := New(DefaultPolicy())

	got := c.Classify(track([]float64{80, 85, 90}, 10))
	if got.Type != activity.Driving {
		t.Fatalf("type = %s, want driving", got.Type)
	}
	if got.Confidence != DefaultPolicy().MaxConfidence {
		t.Errorf("confidence = %d, want %d", got.Confidence, DefaultPolicy().MaxConfidence)
	}
}

func TestClassifyDiscardsLongGaps(t *testing.T) {
	c := New(DefaultPolicy())

	// A single pair 10 minutes apart is a tracking gap, not motion; the
	// classifier must fall back instead of deriving a bogus speed.
	samples := []location.Sample{
		{DeviceID: "d", Timestamp: 1700000000000, Coords: location.Coordinates{Latitude: 41.0, Longitude: 29.0}},
		{DeviceID: "d", Timestamp: 1700000600000, Coords: location.Coordinates{Latitude: 41.05, Longitude: 29.0}},
	}

	got := c.Classify(samples)
	if got.ReasonCode != "single_sample" && got.ReasonCode != "single_sample_moving" {
		t.Errorf("reason = %s, want fallback reason", got.ReasonCode)
	}
}

func TestClassifyUsesLargerOfDeviceAndDerivedSpeed(t *testing.T) {
	c := New(DefaultPolicy())

	// Coordinates do not move but the device reports 10 m/s (36 km/h); the
	// pair-speed policy takes the larger signal.
	reported := 10.0
	samples := []location.Sample{
		{DeviceID: "d", Timestamp: 1700000000000, Coords: location.Coordinates{Latitude: 41.0, Longitude: 29.0}},
		{DeviceID: "d", Timestamp: 1700000010000, Coords: location.Coordinates{Latitude: 41.0, Longitude: 29.0, Speed: &reported}},
	}

	got := c.Classify(samples)
	if got.Type == activity.Stationary {
		t.Fatalf("type = stationary, want a moving class when device reports 36 km/h")
	}
}

func TestVehicleStatus(t *testing.T) {
	c := New(DefaultPolicy())

	driving := c.VehicleStatus(track([]float64{35, 38, 36, 40}, 10))
	if !driving.InVehicle {
		t.Errorf("InVehicle at ~37 km/h = false, want true (confidence %d)", driving.Confidence)
	}

	walking := c.VehicleStatus(track([]float64{4, 5, 4, 5}, 10))
	if walking.InVehicle {
		t.Errorf("InVehicle at walking speed = true, want false")
	}

	empty := c.VehicleStatus(nil)
	if empty.InVehicle || empty.Confidence != 0 {
		t.Errorf("empty track vehicle status = %+v, want zeroed", empty)
	}
}

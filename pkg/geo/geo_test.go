package geo

import (
	"math"
	"testing"
)

func TestHaversineM(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantM                  float64
		tolM                   float64
	}{
		{"same point", 41.0082, 28.9784, 41.0082, 28.9784, 0, 0.01},
		{"one degree of latitude", 41.00, 29.00, 42.00, 29.00, 111195, 200},
		{"eleven km north", 41.00, 29.00, 41.10, 29.00, 11119, 50},
		{"istanbul to ankara", 41.0082, 28.9784, 39.9334, 32.8597, 351000, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineM(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantM) > tt.tolM {
				t.Errorf("HaversineM() = %.1f, want %.1f +/- %.1f", got, tt.wantM, tt.tolM)
			}
		})
	}
}

func TestSpeedKmh(t *testing.T) {
	if got := SpeedKmh(100, 10); math.Abs(got-36) > 0.001 {
		t.Errorf("SpeedKmh(100, 10) = %f, want 36", got)
	}
	if got := SpeedKmh(100, 0); got != 0 {
		t.Errorf("SpeedKmh with zero elapsed = %f, want 0", got)
	}
	if got := SpeedKmh(100, -5); got != 0 {
		t.Errorf("SpeedKmh with negative elapsed = %f, want 0", got)
	}
}

func TestValidCoords(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"valid", 41.0082, 28.9784, true},
		{"lat too high", 90.5, 0, false},
		{"lat too low", -90.5, 0, false},
		{"lon too high", 0, 180.5, false},
		{"lon too low", 0, -180.5, false},
		{"lat NaN", math.NaN(), 0, false},
		{"lon infinite", 0, math.Inf(1), false},
		{"boundary", -90, 180, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCoords(tt.lat, tt.lon); got != tt.want {
				t.Errorf("ValidCoords(%f, %f) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

// Package classify labels a device's recent motion from its track. It is a
// pure function of the last few samples: nothing here is persisted and the
// result is recomputed on every request.
package classify

import (
	"math"

	"location-tracking-core/internal/domain/activity"
	"location-tracking-core/internal/domain/location"
	"location-tracking-core/pkg/geo"
)

// Policy holds every classification threshold in one place so behavior can
// be verified and tuned without touching control flow. Speeds are km/h.
type Policy struct {
	// WindowSize limits how many of the most recent samples are considered.
	WindowSize int
	// MaxPairGapS discards sample pairs whose elapsed time exceeds this;
	// such a pair is a tracking gap, not a motion measurement.
	MaxPairGapS float64

	StationaryMax float64 // below: stationary
	WalkingMax    float64 // [StationaryMax, WalkingMax): walking
	CyclingMax    float64 // [WalkingMax, CyclingMax): cycling or motorcycle
	DrivingMin    float64 // at or above: always driving

	// HighVariance is the per-pair speed variance (km/h squared) above
	// which the two-wheeler heuristics kick in.
	HighVariance float64
	// AccelEventKmh is the pair-to-pair speed delta counted as an
	// acceleration or deceleration event.
	AccelEventKmh float64
	// MotorcycleAccelEvents is the acceleration-event count that, combined
	// with high variance, reclassifies the driving band as motorcycle.
	MotorcycleAccelEvents int

	MaxConfidence    int
	VehicleThreshold int // vehicle-in-use confidence above which InVehicle is true
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		WindowSize:            10,
		MaxPairGapS:           300,
		StationaryMax:         1,
		WalkingMax:            8,
		CyclingMax:            25,
		DrivingMin:            60,
		HighVariance:          25,
		AccelEventKmh:         5,
		MotorcycleAccelEvents: 3,
		MaxConfidence:         95,
		VehicleThreshold:      60,
	}
}

// Classifier applies a Policy to sample windows.
type Classifier struct {
	policy Policy
}

func New(policy Policy) *Classifier {
	return &Classifier{policy: policy}
}

// pairStats is the motion signal extracted from consecutive sample pairs.
type pairStats struct {
	speeds   []float64 // km/h, per pair, chronological
	avgSpeed float64
	maxSpeed float64
	variance float64
	accels   int
	decels   int
}

// Classify labels the motion type for a track window. Samples are expected
// in track order (oldest first); only the last Policy.WindowSize samples
// are used.
func (c *Classifier) Classify(samples []location.Sample) activity.Classification {
	stats := c.pairStats(samples)

	if len(stats.speeds) == 0 {
		return c.fallback(samples)
	}

	p := c.policy
	speed := stats.avgSpeed

	switch {
	case speed < p.StationaryMax:
		return activity.Classification{
			Type:       activity.Stationary,
			Confidence: p.MaxConfidence,
			SpeedKmh:   speed,
			ReasonCode: "no_motion",
		}

	case speed < p.WalkingMax:
		return activity.Classification{
			Type:       activity.Walking,
			Confidence: c.bandConfidence(70, 95, speed, p.StationaryMax, p.WalkingMax),
			SpeedKmh:   speed,
			ReasonCode: "walking_speed",
		}

	case speed < p.CyclingMax:
		// Two-wheeler band: a throttle produces jerkier speed than pedaling,
		// with more hard accelerations than decelerations.
		if stats.variance > p.HighVariance && stats.accels > stats.decels {
			return activity.Classification{
				Type:       activity.Motorcycle,
				Confidence: c.bandConfidence(65, 90, speed, p.WalkingMax, p.CyclingMax),
				SpeedKmh:   speed,
				ReasonCode: "two_wheel_high_variance",
			}
		}
		return activity.Classification{
			Type:       activity.Cycling,
			Confidence: c.bandConfidence(65, 90, speed, p.WalkingMax, p.CyclingMax),
			SpeedKmh:   speed,
			ReasonCode: "cycling_speed",
		}

	case speed < p.DrivingMin:
		if stats.variance > p.HighVariance && stats.accels >= p.MotorcycleAccelEvents {
			return activity.Classification{
				Type:       activity.Motorcycle,
				Confidence: 70,
				SpeedKmh:   speed,
				ReasonCode: "urban_two_wheel",
			}
		}
		return activity.Classification{
			Type:       activity.Driving,
			Confidence: c.bandConfidence(75, 95, speed, p.CyclingMax, p.DrivingMin),
			SpeedKmh:   speed,
			ReasonCode: "driving_speed",
		}

	default:
		return activity.Classification{
			Type:       activity.Driving,
			Confidence: p.MaxConfidence,
			SpeedKmh:   speed,
			ReasonCode: "highway_speed",
		}
	}
}

// VehicleStatus scores how likely the device is travelling in a motor
// vehicle. Faster indicators carry more weight than the bare "moving at
// all" signal.
func (c *Classifier) VehicleStatus(samples []location.Sample) activity.VehicleStatus {
	stats := c.pairStats(samples)

	if len(stats.speeds) == 0 {
		return activity.VehicleStatus{Reason: "insufficient_data"}
	}

	score := 0
	if stats.avgSpeed > 10 {
		score += 30
	}
	if stats.avgSpeed > 20 {
		score += 40
	}
	if stats.maxSpeed > 50 {
		score += 15
	}
	if stats.accels >= 2 {
		score += 10
	}
	if score > c.policy.MaxConfidence {
		score = c.policy.MaxConfidence
	}

	reason := "low_speed"
	if score > c.policy.VehicleThreshold {
		reason = "sustained_vehicle_speed"
	}

	return activity.VehicleStatus{
		InVehicle:  score > c.policy.VehicleThreshold,
		Confidence: score,
		SpeedKmh:   stats.avgSpeed,
		Reason:     reason,
	}
}

// pairStats computes the per-pair motion signal. The per-pair speed is the
// larger of the GPS-derived speed and the device-reported one: device speed
// sensors under-read at low speed while GPS-derived speed over-reads on
// noise, and the max keeps slow movement from collapsing into "stationary".
// Behavioral parity with the PairSpeed policy is intentional.
func (c *Classifier) pairStats(samples []location.Sample) pairStats {
	window := samples
	if len(window) > c.policy.WindowSize {
		window = window[len(window)-c.policy.WindowSize:]
	}

	var stats pairStats
	for i := 1; i < len(window); i++ {
		prev, curr := &window[i-1], &window[i]

		elapsedS := float64(curr.Timestamp-prev.Timestamp) / 1000
		if elapsedS <= 0 || elapsedS > c.policy.MaxPairGapS {
			continue
		}

		distM := geo.HaversineM(
			prev.Coords.Latitude, prev.Coords.Longitude,
			curr.Coords.Latitude, curr.Coords.Longitude,
		)
		speed := geo.SpeedKmh(distM, elapsedS)

		if curr.Coords.Speed != nil {
			if reported := *curr.Coords.Speed * 3.6; reported > speed {
				speed = reported
			}
		}

		stats.speeds = append(stats.speeds, speed)
	}

	if len(stats.speeds) == 0 {
		return stats
	}

	var sum float64
	for _, s := range stats.speeds {
		sum += s
		if s > stats.maxSpeed {
			stats.maxSpeed = s
		}
	}
	stats.avgSpeed = sum / float64(len(stats.speeds))

	var varSum float64
	for _, s := range stats.speeds {
		varSum += (s - stats.avgSpeed) * (s - stats.avgSpeed)
	}
	stats.variance = varSum / float64(len(stats.speeds))

	for i := 1; i < len(stats.speeds); i++ {
		delta := stats.speeds[i] - stats.speeds[i-1]
		if delta > c.policy.AccelEventKmh {
			stats.accels++
		} else if delta < -c.policy.AccelEventKmh {
			stats.decels++
		}
	}

	return stats
}

// fallback classifies from the device-reported speed of the newest sample
// when no valid pair exists yet.
func (c *Classifier) fallback(samples []location.Sample) activity.Classification {
	var speed float64
	if len(samples) > 0 {
		if s := samples[len(samples)-1].Coords.Speed; s != nil {
			speed = *s * 3.6
		}
	}

	if speed < c.policy.StationaryMax {
		return activity.Classification{
			Type:       activity.Stationary,
			Confidence: 60,
			SpeedKmh:   speed,
			ReasonCode: "single_sample",
		}
	}

	return activity.Classification{
		Type:       activity.Unknown,
		Confidence: 50,
		SpeedKmh:   speed,
		ReasonCode: "single_sample_moving",
	}
}

// bandConfidence scales confidence linearly across a speed band, capped at
// the policy maximum.
func (c *Classifier) bandConfidence(low, high int, speed, bandMin, bandMax float64) int {
	if bandMax <= bandMin {
		return low
	}
	frac := (speed - bandMin) / (bandMax - bandMin)
	conf := int(math.Round(float64(low) + frac*float64(high-low)))
	if conf > c.policy.MaxConfidence {
		conf = c.policy.MaxConfidence
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}

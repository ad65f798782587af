// Package analytics derives route, speed, quality and prediction summaries
// from a device's retained track. Computations are pure over an immutable
// snapshot of the track; results are cached with a plan-scoped TTL.
package analytics

import (
	"time"

	"location-tracking-core/internal/domain/location"
	"location-tracking-core/pkg/geo"
)

const (
	// A pair closer than stopRadiusM over more than stopMinDuration is a
	// stop, not slow movement.
	stopRadiusM     = 50.0
	stopMinDuration = 60 * time.Second

	// Inter-sample gaps above this count against the consistency score.
	qualityGapThreshold = 5 * time.Minute

	qualityWindow     = 100 // newest samples scored
	qualityFullMarks  = 50  // sample count that earns a full frequency score
	predictionHorizon = 60 * time.Second
)

type RouteMetrics struct {
	DeviceID      string       `json:"device_id"`
	TotalDistance float64      `json:"total_distance_m"`
	AverageSpeed  float64      `json:"average_speed_kmh"`
	MaxSpeed      float64      `json:"max_speed_kmh"`
	MovingTimeMs  int64        `json:"moving_time_ms"`
	StoppedTimeMs int64        `json:"stopped_time_ms"`
	Stops         int          `json:"stops"`
	Route         []RoutePoint `json:"route"`
}

type RoutePoint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Timestamp int64    `json:"timestamp"`
	SpeedKmh  *float64 `json:"speed_kmh,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
}

type SpeedZones struct {
	DeviceID     string             `json:"device_id"`
	Zones        map[string]int     `json:"zones"`
	Distribution map[string]float64 `json:"distribution"`
}

type Quality struct {
	DeviceID    string   `json:"device_id"`
	Score       int      `json:"score"`
	Accuracy    int      `json:"accuracy"`
	Consistency int      `json:"consistency"`
	Frequency   int      `json:"frequency"`
	Tier        string   `json:"tier"`
	Issues      []string `json:"issues"`
}

type Prediction struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}

// ComputeRouteMetrics walks the track once, accumulating distance and
// splitting elapsed time into moving and stopped. A stop is a transition,
// not a state: five consecutive stationary pairs count once.
func ComputeRouteMetrics(deviceID string, samples []location.Sample, startMs, endMs int64) *RouteMetrics {
	m := &RouteMetrics{DeviceID: deviceID, Route: []RoutePoint{}}

	track := boundTrack(samples, startMs, endMs)
	if len(track) < 2 {
		return m
	}

	stopped := false
	for i := 1; i < len(track); i++ {
		prev, curr := &track[i-1], &track[i]

		elapsedMs := curr.Timestamp - prev.Timestamp
		if elapsedMs <= 0 {
			continue
		}

		distM := geo.HaversineM(
			prev.Coords.Latitude, prev.Coords.Longitude,
			curr.Coords.Latitude, curr.Coords.Longitude,
		)
		m.TotalDistance += distM

		if distM < stopRadiusM && elapsedMs > stopMinDuration.Milliseconds() {
			m.StoppedTimeMs += elapsedMs
			if !stopped {
				m.Stops++
				stopped = true
			}
		} else {
			m.MovingTimeMs += elapsedMs
			stopped = false
		}

		if speed := geo.SpeedKmh(distM, float64(elapsedMs)/1000); speed > m.MaxSpeed {
			m.MaxSpeed = speed
		}
	}

	totalMs := m.MovingTimeMs + m.StoppedTimeMs
	if totalMs > 0 {
		m.AverageSpeed = geo.SpeedKmh(m.TotalDistance, float64(totalMs)/1000)
	}

	for i := range track {
		p := RoutePoint{
			Latitude:  track[i].Coords.Latitude,
			Longitude: track[i].Coords.Longitude,
			Timestamp: track[i].Timestamp,
			Heading:   track[i].Coords.Heading,
		}
		if track[i].Coords.Speed != nil {
			kmh := *track[i].Coords.Speed * 3.6
			p.SpeedKmh = &kmh
		}
		m.Route = append(m.Route, p)
	}

	return m
}

// ComputeSpeedZones histograms per-pair speeds into the activity bands.
func ComputeSpeedZones(deviceID string, samples []location.Sample) *SpeedZones {
	z := &SpeedZones{
		DeviceID:     deviceID,
		Zones:        map[string]int{"parked": 0, "walking": 0, "cycling": 0, "driving": 0, "fast": 0},
		Distribution: map[string]float64{},
	}

	total := 0
	for i := 1; i < len(samples); i++ {
		prev, curr := &samples[i-1], &samples[i]

		elapsedS := float64(curr.Timestamp-prev.Timestamp) / 1000
		if elapsedS <= 0 {
			continue
		}

		distM := geo.HaversineM(
			prev.Coords.Latitude, prev.Coords.Longitude,
			curr.Coords.Latitude, curr.Coords.Longitude,
		)
		speed := geo.SpeedKmh(distM, elapsedS)

		switch {
		case speed < 1:
			z.Zones["parked"]++
		case speed < 8:
			z.Zones["walking"]++
		case speed < 25:
			z.Zones["cycling"]++
		case speed < 60:
			z.Zones["driving"]++
		default:
			z.Zones["fast"]++
		}
		total++
	}

	if total > 0 {
		for name, count := range z.Zones {
			z.Distribution[name] = float64(count) / float64(total) * 100
		}
	}

	return z
}

// ComputeQuality scores the newest samples on accuracy, consistency and
// reporting frequency, each 0 to 100.
func ComputeQuality(deviceID string, samples []location.Sample) *Quality {
	q := &Quality{DeviceID: deviceID, Issues: []string{}}

	if len(samples) == 0 {
		q.Tier = "poor"
		q.Issues = append(q.Issues, "no location data")
		return q
	}

	recent := samples
	if len(recent) > qualityWindow {
		recent = recent[len(recent)-qualityWindow:]
	}

	var (
		totalAccuracy float64
		accuracyCount int
		gaps          int
		lastTimestamp int64
	)
	for i := range recent {
		if recent[i].Coords.Accuracy != nil {
			totalAccuracy += *recent[i].Coords.Accuracy
			accuracyCount++
		}
		if lastTimestamp != 0 && recent[i].Timestamp-lastTimestamp > qualityGapThreshold.Milliseconds() {
			gaps++
		}
		lastTimestamp = recent[i].Timestamp
	}

	var avgAccuracy float64
	if accuracyCount > 0 {
		avgAccuracy = totalAccuracy / float64(accuracyCount)
	}

	q.Accuracy = clampScore(100 - avgAccuracy/10)
	q.Consistency = clampScore(100 - float64(gaps)*10)
	if len(recent) >= qualityFullMarks {
		q.Frequency = 100
	} else {
		q.Frequency = clampScore(float64(len(recent)) / qualityFullMarks * 100)
	}

	q.Score = (q.Accuracy + q.Consistency + q.Frequency) / 3

	switch {
	case q.Score >= 80:
		q.Tier = "excellent"
	case q.Score >= 60:
		q.Tier = "good"
	case q.Score >= 40:
		q.Tier = "fair"
	default:
		q.Tier = "poor"
	}

	if avgAccuracy > 50 {
		q.Issues = append(q.Issues, "reported GPS accuracy is poor")
	}
	if gaps > 5 {
		q.Issues = append(q.Issues, "frequent gaps between samples")
	}
	if len(recent) < 20 {
		q.Issues = append(q.Issues, "too few samples for a reliable score")
	}

	return q
}

// ComputePrediction extrapolates the last velocity vector over a fixed
// horizon. It needs at least three points inside the lookback window and
// returns nil while the device is effectively stationary.
func ComputePrediction(samples []location.Sample, lookback time.Duration, now time.Time) *Prediction {
	cutoff := now.Add(-lookback).UnixMilli()
	var recent []location.Sample
	for i := range samples {
		if samples[i].Timestamp >= cutoff {
			recent = append(recent, samples[i])
		}
	}

	if len(recent) < 3 {
		return nil
	}

	last := &recent[len(recent)-1]
	prev := &recent[len(recent)-2]
	prev2 := &recent[len(recent)-3]

	dt1 := float64(last.Timestamp-prev.Timestamp) / 1000
	dt2 := float64(prev.Timestamp-prev2.Timestamp) / 1000
	if dt1 <= 0 || dt2 <= 0 {
		return nil
	}

	latVel := ((last.Coords.Latitude-prev.Coords.Latitude)/dt1 +
		(prev.Coords.Latitude-prev2.Coords.Latitude)/dt2) / 2
	lonVel := ((last.Coords.Longitude-prev.Coords.Longitude)/dt1 +
		(prev.Coords.Longitude-prev2.Coords.Longitude)/dt2) / 2

	horizonS := predictionHorizon.Seconds()
	predictedLat := last.Coords.Latitude + latVel*horizonS
	predictedLon := last.Coords.Longitude + lonVel*horizonS

	// No extrapolation while parked: a sub-5m projected move is noise.
	if geo.HaversineM(last.Coords.Latitude, last.Coords.Longitude, predictedLat, predictedLon) < 5 {
		return nil
	}

	return &Prediction{
		Latitude:   predictedLat,
		Longitude:  predictedLon,
		Confidence: 0.7,
		Timestamp:  now.Add(predictionHorizon).UnixMilli(),
	}
}

func boundTrack(samples []location.Sample, startMs, endMs int64) []location.Sample {
	if startMs == 0 && endMs == 0 {
		return samples
	}

	var track []location.Sample
	for i := range samples {
		if startMs != 0 && samples[i].Timestamp < startMs {
			continue
		}
		if endMs != 0 && samples[i].Timestamp > endMs {
			continue
		}
		track = append(track, samples[i])
	}
	return track
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

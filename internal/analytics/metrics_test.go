package analytics

import (
	"testing"
	"time"

	"location-tracking-core/internal/domain/location"
)

func point(ts int64, lat, lon float64) location.Sample {
	return location.Sample{
		DeviceID:  "dev-1",
		Timestamp: ts,
		Coords:    location.Coordinates{Latitude: lat, Longitude: lon},
	}
}

func TestComputeRouteMetricsEmptyTrack(t *testing.T) {
	m := ComputeRouteMetrics("d", nil, 0, 0)
	if m.TotalDistance != 0 || m.Stops != 0 || len(m.Route) != 0 {
		t.Errorf("empty track metrics = %+v, want zeroes", m)
	}
}

func TestComputeRouteMetricsCountsStopTransitionsOnce(t *testing.T) {
	// Drive north, then sit still for three long intervals, then drive
	// again. The stop must count once, not three times.
	track := []location.Sample{
		point(0, 41.0000, 29.0),
		point(60_000, 41.0090, 29.0), // ~1km in 60s, moving
		point(130_000, 41.0090, 29.0),
		point(200_000, 41.0090, 29.0),
		point(270_000, 41.0090, 29.0),
		point(330_000, 41.0180, 29.0), // moving again
	}

	m := ComputeRouteMetrics("d", track, 0, 0)
	if m.Stops != 1 {
		t.Errorf("stops = %d, want 1", m.Stops)
	}
	if m.StoppedTimeMs != 210_000 {
		t.Errorf("stopped time = %d ms, want 210000", m.StoppedTimeMs)
	}
	if m.MovingTimeMs != 120_000 {
		t.Errorf("moving time = %d ms, want 120000", m.MovingTimeMs)
	}
	if m.TotalDistance < 1900 || m.TotalDistance > 2100 {
		t.Errorf("distance = %.0f m, want about 2000", m.TotalDistance)
	}
}

func TestComputeRouteMetricsTimeBounds(t *testing.T) {
	track := []location.Sample{
		point(0, 41.00, 29.0),
		point(60_000, 41.01, 29.0),
		point(120_000, 41.02, 29.0),
	}

	full := ComputeRouteMetrics("d", track, 0, 0)
	bounded := ComputeRouteMetrics("d", track, 60_000, 0)

	if bounded.TotalDistance >= full.TotalDistance {
		t.Errorf("bounded distance %.0f not smaller than full %.0f", bounded.TotalDistance, full.TotalDistance)
	}
	if len(bounded.Route) != 2 {
		t.Errorf("bounded route has %d points, want 2", len(bounded.Route))
	}
}

func TestComputeSpeedZones(t *testing.T) {
	// One parked pair, one walking pair, one fast pair.
	track := []location.Sample{
		point(0, 41.0, 29.0),
		point(10_000, 41.0, 29.0),        // 0 km/h
		point(20_000, 41.00012, 29.0),    // ~4.8 km/h
		point(30_000, 41.00212, 29.0),    // ~80 km/h
	}

	z := ComputeSpeedZones("d", track)
	if z.Zones["parked"] != 1 {
		t.Errorf("parked = %d, want 1", z.Zones["parked"])
	}
	if z.Zones["walking"] != 1 {
		t.Errorf("walking = %d, want 1", z.Zones["walking"])
	}
	if z.Zones["fast"] != 1 {
		t.Errorf("fast = %d, want 1", z.Zones["fast"])
	}

	var sum float64
	for _, pct := range z.Distribution {
		sum += pct
	}
	if sum < 99.9 || sum > 100.1 {
		t.Errorf("distribution sums to %.1f, want 100", sum)
	}
}

func TestComputeQualityScoresAndIssues(t *testing.T) {
	good := 5.0
	var track []location.Sample
	for i := 0; i < 60; i++ {
		s := point(int64(i)*10_000, 41.0, 29.0)
		s.Coords.Accuracy = &good
		track = append(track, s)
	}

	q := ComputeQuality("d", track)
	if q.Accuracy < 99 {
		t.Errorf("accuracy score = %d, want high", q.Accuracy)
	}
	if q.Consistency != 100 {
		t.Errorf("consistency = %d, want 100", q.Consistency)
	}
	if q.Frequency != 100 {
		t.Errorf("frequency = %d, want 100 for %d samples", q.Frequency, len(track))
	}
	if q.Tier != "excellent" {
		t.Errorf("tier = %s, want excellent", q.Tier)
	}
	if len(q.Issues) != 0 {
		t.Errorf("issues = %v, want none", q.Issues)
	}
}

func TestComputeQualityFlagsSparseNoisyTrack(t *testing.T) {
	bad := 600.0
	track := []location.Sample{
		{DeviceID: "d", Timestamp: 0, Coords: location.Coordinates{Latitude: 41, Longitude: 29, Accuracy: &bad}},
		{DeviceID: "d", Timestamp: 20 * 60_000, Coords: location.Coordinates{Latitude: 41, Longitude: 29, Accuracy: &bad}},
	}

	q := ComputeQuality("d", track)
	if q.Accuracy != 40 {
		t.Errorf("accuracy score = %d, want 40 for 600m average accuracy", q.Accuracy)
	}
	if len(q.Issues) < 2 {
		t.Errorf("issues = %v, want accuracy and sample-count flags", q.Issues)
	}
	if q.Tier == "excellent" {
		t.Errorf("tier = excellent for a sparse noisy track")
	}
}

func TestComputePredictionExtrapolatesHeading(t *testing.T) {
	now := time.UnixMilli(300_000)

	// Steady northward motion: prediction must continue north.
	track := []location.Sample{
		point(0, 41.000, 29.0),
		point(60_000, 41.002, 29.0),
		point(120_000, 41.004, 29.0),
	}

	p := ComputePrediction(track, 10*time.Minute, now)
	if p == nil {
		t.Fatal("prediction = nil, want extrapolated point")
	}
	if p.Latitude <= 41.004 {
		t.Errorf("predicted latitude = %f, want north of 41.004", p.Latitude)
	}
	if p.Longitude != 29.0 {
		t.Errorf("predicted longitude = %f, want 29.0", p.Longitude)
	}
	if p.Timestamp != now.Add(60*time.Second).UnixMilli() {
		t.Errorf("prediction timestamp = %d, want one minute ahead", p.Timestamp)
	}
}

func TestComputePredictionNilCases(t *testing.T) {
	now := time.UnixMilli(300_000)

	// Fewer than three recent points.
	short := []location.Sample{point(280_000, 41.0, 29.0), point(290_000, 41.001, 29.0)}
	if p := ComputePrediction(short, 5*time.Minute, now); p != nil {
		t.Errorf("prediction from 2 points = %+v, want nil", p)
	}

	// Stationary device.
	parked := []location.Sample{
		point(270_000, 41.0, 29.0),
		point(280_000, 41.0, 29.0),
		point(290_000, 41.0, 29.0),
	}
	if p := ComputePrediction(parked, 5*time.Minute, now); p != nil {
		t.Errorf("prediction while parked = %+v, want nil", p)
	}

	// Points outside the lookback window.
	stale := []location.Sample{
		point(0, 41.0, 29.0),
		point(10_000, 41.002, 29.0),
		point(20_000, 41.004, 29.0),
	}
	if p := ComputePrediction(stale, time.Minute, now); p != nil {
		t.Errorf("prediction from stale points = %+v, want nil", p)
	}
}

package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/redis"
	"location-tracking-core/internal/infrastructure/storage"
)

// Params bounds one analytics read. MaxSamples and CacheTTL come from the
// tenant's plan tier.
type Params struct {
	StartMs    int64
	EndMs      int64
	Lookback   time.Duration
	MaxSamples int
	CacheTTL   time.Duration
}

type Service struct {
	locations storage.LocationRepository
	cache     *redis.Cache
}

// NewService builds the analytics service. cache may be nil; results are
// then recomputed on every call.
func NewService(locations storage.LocationRepository, cache *redis.Cache) *Service {
	return &Service{locations: locations, cache: cache}
}

func (s *Service) RouteMetrics(ctx context.Context, deviceID string, p Params) (*RouteMetrics, error) {
	kind := fmt.Sprintf("route:%d:%d", p.StartMs, p.EndMs)

	var cached RouteMetrics
	if s.hit(ctx, deviceID, kind, &cached) {
		return &cached, nil
	}

	track, err := s.snapshot(ctx, deviceID, p.MaxSamples)
	if err != nil {
		return nil, err
	}

	m := ComputeRouteMetrics(deviceID, track, p.StartMs, p.EndMs)
	s.store(ctx, deviceID, kind, m, p.CacheTTL)
	return m, nil
}

func (s *Service) SpeedZones(ctx context.Context, deviceID string, p Params) (*SpeedZones, error) {
	var cached SpeedZones
	if s.hit(ctx, deviceID, "zones", &cached) {
		return &cached, nil
	}

	track, err := s.snapshot(ctx, deviceID, p.MaxSamples)
	if err != nil {
		return nil, err
	}

	z := ComputeSpeedZones(deviceID, track)
	s.store(ctx, deviceID, "zones", z, p.CacheTTL)
	return z, nil
}

func (s *Service) Quality(ctx context.Context, deviceID string, p Params) (*Quality, error) {
	var cached Quality
	if s.hit(ctx, deviceID, "quality", &cached) {
		return &cached, nil
	}

	track, err := s.snapshot(ctx, deviceID, p.MaxSamples)
	if err != nil {
		return nil, err
	}

	q := ComputeQuality(deviceID, track)
	s.store(ctx, deviceID, "quality", q, p.CacheTTL)
	return q, nil
}

// Predict returns nil with no error when there is not enough recent motion
// to extrapolate.
func (s *Service) Predict(ctx context.Context, deviceID string, p Params) (*Prediction, error) {
	kind := fmt.Sprintf("predict:%d", int(p.Lookback.Seconds()))

	var cached Prediction
	if s.hit(ctx, deviceID, kind, &cached) {
		return &cached, nil
	}

	track, err := s.snapshot(ctx, deviceID, p.MaxSamples)
	if err != nil {
		return nil, err
	}

	pred := ComputePrediction(track, p.Lookback, time.Now())
	if pred != nil {
		s.store(ctx, deviceID, kind, pred, p.CacheTTL)
	}
	return pred, nil
}

// Invalidate drops every cached result for a device. Called after each
// accepted sample batch so no read can see metrics older than the track.
func (s *Service) Invalidate(ctx context.Context, deviceID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAnalytics(ctx, deviceID); err != nil {
		log.Printf("Failed to invalidate analytics cache for device %s: %v", deviceID, err)
	}
}

// snapshot reads the newest MaxSamples of the track in track order.
func (s *Service) snapshot(ctx context.Context, deviceID string, maxSamples int) ([]location.Sample, error) {
	if maxSamples <= 0 {
		maxSamples = 500
	}

	track, _, err := s.locations.History(ctx, &location.HistoryQuery{
		DeviceID: deviceID,
		Limit:    maxSamples,
	})
	if err != nil {
		return nil, fmt.Errorf("read track snapshot failed: %w", err)
	}
	return track, nil
}

func (s *Service) hit(ctx context.Context, deviceID, kind string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.GetAnalytics(ctx, deviceID, kind, dest)
	if err != nil {
		log.Printf("Analytics cache read failed for device %s: %v", deviceID, err)
		return false
	}
	return ok
}

func (s *Service) store(ctx context.Context, deviceID, kind string, value interface{}, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.SetAnalytics(ctx, deviceID, kind, value, ttl); err != nil {
		log.Printf("Analytics cache write failed for device %s: %v", deviceID, err)
	}
}

// Package location implements sample ingestion and track reads. Ingestion
// validates, enriches, buffers and fans out; everything downstream of the
// buffered append is best effort.
package location

import (
	"context"
	"fmt"
	"log"
	"time"

	"location-tracking-core/internal/classify"
	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/redis"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/plan"
	"location-tracking-core/internal/worker"
	"location-tracking-core/pkg/geo"
)

const (
	geocodeBudget   = 2 * time.Second
	defaultPageSize = 100
	classifyWindow  = 10
)

// Geocoder resolves coordinates to a human-readable place. Implementations
// treat failure as "no geocode available", never as a hard error.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*location.Geocode, error)
}

type Service struct {
	locations  storage.LocationRepository
	writer     *worker.HistoryWriter
	dispatcher *worker.Dispatcher
	classifier *classify.Classifier
	geocoder   Geocoder
	plans      *plan.Resolver
	cache      *redis.Cache
	pubsub     *redis.PubSub
}

// NewService wires the ingestion pipeline. geocoder, plans, cache and pubsub
// may be nil; the service then skips enrichment, resolves every tenant to the
// free tier, and serves reads from the repository alone.
func NewService(
	locations storage.LocationRepository,
	writer *worker.HistoryWriter,
	dispatcher *worker.Dispatcher,
	classifier *classify.Classifier,
	geocoder Geocoder,
	plans *plan.Resolver,
	cache *redis.Cache,
	pubsub *redis.PubSub,
) *Service {
	return &Service{
		locations:  locations,
		writer:     writer,
		dispatcher: dispatcher,
		classifier: classifier,
		geocoder:   geocoder,
		plans:      plans,
		cache:      cache,
		pubsub:     pubsub,
	}
}

// Ingest accepts one sample for a tenant's device. On success the sample is
// buffered for durable flush and handed to the fan-out consumers exactly
// once; the returned queue size lets high-frequency clients throttle. When
// the append fills the batch and the store rejects the flush, the failure is
// returned; the batch stays buffered for the background retry.
func (s *Service) Ingest(ctx context.Context, ownerID string, req *location.IngestRequest) (*location.IngestResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	ts := time.Now().UnixMilli()
	if req.Timestamp != nil && *req.Timestamp > 0 {
		ts = *req.Timestamp
	}

	sample := &location.Sample{
		DeviceID:  req.DeviceID,
		Timestamp: ts,
		Coords:    *req.Coords,
	}

	s.enrich(ctx, sample)

	tier := s.tierFor(ctx, ownerID)
	quality := s.quality(ctx, sample)

	depth, err := s.writer.Add(ctx, sample, tier)
	if err != nil {
		return nil, fmt.Errorf("append location failed: %w", err)
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(worker.Job{OwnerID: ownerID, Sample: sample, Tier: tier})
	}

	go s.updateCacheAndPublish(context.WithoutCancel(ctx), sample, quality)

	return &location.IngestResult{
		Timestamp: ts,
		QueueSize: depth,
		Quality:   quality,
		Geocode:   sample.Geocode,
	}, nil
}

// History returns a page of the device track, most-recent-last. The page
// limit is clamped to the tenant tier's history ceiling.
func (s *Service) History(ctx context.Context, ownerID string, q *location.HistoryQuery) (*location.History, error) {
	tier := s.tierFor(ctx, ownerID)

	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > tier.MaxHistory {
		q.Limit = tier.MaxHistory
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	samples, total, err := s.locations.History(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("read history failed: %w", err)
	}

	fetched := len(samples)
	if q.ThinM > 0 {
		samples = thinTrack(samples, float64(q.ThinM))
	}

	return &location.History{
		DeviceID:  q.DeviceID,
		Locations: samples,
		Pagination: location.Pagination{
			Total:   total,
			Limit:   q.Limit,
			Offset:  q.Offset,
			HasMore: q.Offset+fetched < total,
		},
	}, nil
}

// Latest returns the newest known position, cache first.
func (s *Service) Latest(ctx context.Context, deviceID string) (*location.Sample, error) {
	if s.cache != nil {
		cached, err := s.cache.GetDeviceLocation(ctx, deviceID)
		if err == nil && cached != nil {
			sample := cached.Sample
			return &sample, nil
		}
	}

	sample, err := s.locations.Latest(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("read latest location failed: %w", err)
	}

	if sample != nil && s.cache != nil {
		cached := &redis.DeviceLocation{DeviceID: deviceID, Sample: *sample}
		if err := s.cache.SetDeviceLocation(ctx, cached); err != nil {
			log.Printf("Failed to cache device location: %v", err)
		}
	}

	return sample, nil
}

// Stats summarizes the retained track of a device.
func (s *Service) Stats(ctx context.Context, ownerID, deviceID string) (*location.Stats, error) {
	tier := s.tierFor(ctx, ownerID)

	track, total, err := s.locations.History(ctx, &location.HistoryQuery{
		DeviceID: deviceID,
		Limit:    tier.MaxHistory,
	})
	if err != nil {
		return nil, fmt.Errorf("read track failed: %w", err)
	}

	stats := &location.Stats{DeviceID: deviceID, TotalLocations: total}
	if len(track) == 0 {
		return stats, nil
	}

	first, last := track[0], track[len(track)-1]
	stats.First = &first
	stats.Last = &last
	stats.TimeSpanMs = last.Timestamp - first.Timestamp

	var accSum float64
	var accN int
	for _, p := range track {
		if p.Coords.Accuracy != nil {
			accSum += *p.Coords.Accuracy
			accN++
		}
	}
	if accN > 0 {
		stats.AverageAccuracy = accSum / float64(accN)
	}

	return stats, nil
}

// ActiveDevices snapshots every device that reported within the window.
func (s *Service) ActiveDevices(ctx context.Context, window time.Duration) ([]location.Snapshot, error) {
	if window <= 0 {
		window = time.Hour
	}

	ids, err := s.locations.ActiveDevices(ctx, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("list active devices failed: %w", err)
	}

	snapshots := make([]location.Snapshot, 0, len(ids))
	for _, id := range ids {
		last, err := s.Latest(ctx, id)
		if err != nil {
			log.Printf("Failed to read latest location for device %s: %v", id, err)
			continue
		}

		snap := location.Snapshot{DeviceID: id}
		if last != nil {
			snap.Last = last
			snap.LastUpdate = last.Timestamp
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// QueueSize reports the pending buffer depth for a device.
func (s *Service) QueueSize(deviceID string) int {
	return s.writer.QueueSize(deviceID)
}

// enrich attaches a reverse geocode when the provider answers within the
// budget. Enrichment never blocks or fails the ingest.
func (s *Service) enrich(ctx context.Context, sample *location.Sample) {
	if s.geocoder == nil {
		return
	}

	gctx, cancel := context.WithTimeout(ctx, geocodeBudget)
	defer cancel()

	g, err := s.geocoder.Reverse(gctx, sample.Coords.Latitude, sample.Coords.Longitude)
	if err != nil {
		log.Printf("Geocode enrichment failed for device %s: %v", sample.DeviceID, err)
		return
	}
	sample.Geocode = g
}

// quality labels the device's current motion for the ingest response, from
// the recent durable window plus the incoming sample.
func (s *Service) quality(ctx context.Context, sample *location.Sample) string {
	window, _, err := s.locations.History(ctx, &location.HistoryQuery{
		DeviceID: sample.DeviceID,
		Limit:    classifyWindow - 1,
	})
	if err != nil {
		window = nil
	}
	window = append(window, *sample)

	return string(s.classifier.Classify(window).Type)
}

func (s *Service) tierFor(ctx context.Context, ownerID string) plan.Tier {
	if s.plans == nil {
		return plan.Resolve(plan.Free)
	}
	return s.plans.TierFor(ctx, ownerID)
}

func (s *Service) updateCacheAndPublish(ctx context.Context, sample *location.Sample, activity string) {
	if s.cache != nil {
		cached := &redis.DeviceLocation{DeviceID: sample.DeviceID, Sample: *sample}
		if err := s.cache.SetDeviceLocation(ctx, cached); err != nil {
			log.Printf("Failed to cache device location: %v", err)
		}
	}

	if s.pubsub != nil {
		update := &redis.LocationUpdate{
			DeviceID: sample.DeviceID,
			Sample:   *sample,
			Activity: activity,
		}
		if err := s.pubsub.PublishLocationUpdate(ctx, update); err != nil {
			log.Printf("Failed to publish location update: %v", err)
		}
	}
}

// thinTrack drops points closer than minDistM to the previously kept point.
// The endpoints always survive so the route start and end are stable.
func thinTrack(samples []location.Sample, minDistM float64) []location.Sample {
	if len(samples) <= 2 {
		return samples
	}

	kept := make([]location.Sample, 0, len(samples))
	kept = append(kept, samples[0])

	for i := 1; i < len(samples)-1; i++ {
		last := kept[len(kept)-1]
		dist := geo.HaversineM(
			last.Coords.Latitude, last.Coords.Longitude,
			samples[i].Coords.Latitude, samples[i].Coords.Longitude,
		)
		if dist >= minDistM {
			kept = append(kept, samples[i])
		}
	}

	return append(kept, samples[len(samples)-1])
}

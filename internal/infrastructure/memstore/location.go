// Package memstore is the in-memory storage backend. It keeps the service
// ingesting when postgres is unreachable and backs the package tests. Data
// does not survive a restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"location-tracking-core/internal/domain/location"
)

type LocationRepository struct {
	mu     sync.RWMutex
	tracks map[string][]location.Sample // sorted by Timestamp ascending
}

func NewLocationRepository() *LocationRepository {
	return &LocationRepository{tracks: make(map[string][]location.Sample)}
}

func (r *LocationRepository) BatchInsert(ctx context.Context, samples []*location.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range samples {
		track := r.tracks[s.DeviceID]
		idx := sort.Search(len(track), func(i int) bool {
			return track[i].Timestamp >= s.Timestamp
		})
		if idx < len(track) && track[idx].Timestamp == s.Timestamp {
			continue // same fix already stored
		}
		track = append(track, location.Sample{})
		copy(track[idx+1:], track[idx:])
		track[idx] = *s
		r.tracks[s.DeviceID] = track
	}

	return nil
}

func (r *LocationRepository) History(ctx context.Context, q *location.HistoryQuery) ([]location.Sample, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	track := r.tracks[q.DeviceID]
	total := len(track)

	// Page from the newest end, then return in track order.
	end := total - q.Offset
	if end < 0 {
		end = 0
	}
	start := end - q.Limit
	if start < 0 {
		start = 0
	}

	page := make([]location.Sample, end-start)
	copy(page, track[start:end])

	return page, total, nil
}

func (r *LocationRepository) Latest(ctx context.Context, deviceID string) (*location.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	track := r.tracks[deviceID]
	if len(track) == 0 {
		return nil, nil
	}

	last := track[len(track)-1]
	return &last, nil
}

func (r *LocationRepository) Count(ctx context.Context, deviceID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tracks[deviceID]), nil
}

func (r *LocationRepository) Evict(ctx context.Context, deviceID string, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	track := r.tracks[deviceID]
	if keep <= 0 || len(track) <= keep {
		return nil
	}

	trimmed := make([]location.Sample, keep)
	copy(trimmed, track[len(track)-keep:])
	r.tracks[deviceID] = trimmed

	return nil
}

func (r *LocationRepository) ActiveDevices(ctx context.Context, since time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := since.UnixMilli()
	var devices []string
	for id, track := range r.tracks {
		if len(track) > 0 && track[len(track)-1].Timestamp >= cutoff {
			devices = append(devices, id)
		}
	}

	sort.Strings(devices)
	return devices, nil
}

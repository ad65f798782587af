package memstore

import (
	"context"
	"testing"
	"time"

	"location-tracking-core/internal/domain/location"
)

func sample(deviceID string, ts int64) *location.Sample {
	return &location.Sample{
		DeviceID:  deviceID,
		Timestamp: ts,
		Coords:    location.Coordinates{Latitude: 41.0, Longitude: 29.0},
	}
}

func TestLocationInsertKeepsTrackOrder(t *testing.T) {
	r := NewLocationRepository()
	ctx := context.Background()

	// Out-of-order arrival must still read back in timestamp order.
	if err := r.BatchInsert(ctx, []*location.Sample{
		sample("d", 3000), sample("d", 1000), sample("d", 2000),
	}); err != nil {
		t.Fatalf("BatchInsert: %v", err)
	}

	page, total, err := r.History(ctx, &location.HistoryQuery{DeviceID: "d", Limit: 10})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	for i := 1; i < len(page); i++ {
		if page[i].Timestamp < page[i-1].Timestamp {
			t.Fatalf("history out of order at %d: %d before %d", i, page[i-1].Timestamp, page[i].Timestamp)
		}
	}
}

func TestLocationInsertIsIdempotent(t *testing.T) {
	r := NewLocationRepository()
	ctx := context.Background()

	r.BatchInsert(ctx, []*location.Sample{sample("d", 1000)})
	r.BatchInsert(ctx, []*location.Sample{sample("d", 1000)})

	count, err := r.Count(ctx, "d")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("count after duplicate insert = %d, want 1", count)
	}
}

func TestLocationHistoryPagesFromNewestEnd(t *testing.T) {
	r := NewLocationRepository()
	ctx := context.Background()

	for ts := int64(1000); ts <= 5000; ts += 1000 {
		r.BatchInsert(ctx, []*location.Sample{sample("d", ts)})
	}

	page, total, err := r.History(ctx, &location.HistoryQuery{DeviceID: "d", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 || page[0].Timestamp != 3000 || page[1].Timestamp != 4000 {
		t.Errorf("page = %+v, want timestamps [3000 4000]", page)
	}
}

func TestLocationEvictKeepsNewest(t *testing.T) {
	r := NewLocationRepository()
	ctx := context.Background()

	for ts := int64(1000); ts <= 10000; ts += 1000 {
		r.BatchInsert(ctx, []*location.Sample{sample("d", ts)})
	}

	if err := r.Evict(ctx, "d", 3); err != nil {
		t.Fatalf("Evict: %v", err)
	}

	page, total, _ := r.History(ctx, &location.HistoryQuery{DeviceID: "d", Limit: 10})
	if total != 3 {
		t.Fatalf("total after evict = %d, want 3", total)
	}
	if page[0].Timestamp != 8000 || page[2].Timestamp != 10000 {
		t.Errorf("kept range = [%d, %d], want [8000, 10000]", page[0].Timestamp, page[2].Timestamp)
	}
}

func TestActiveDevices(t *testing.T) {
	r := NewLocationRepository()
	ctx := context.Background()

	now := time.Now()
	r.BatchInsert(ctx, []*location.Sample{sample("fresh", now.UnixMilli())})
	r.BatchInsert(ctx, []*location.Sample{sample("stale", now.Add(-2*time.Hour).UnixMilli())})

	devices, err := r.ActiveDevices(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ActiveDevices: %v", err)
	}
	if len(devices) != 1 || devices[0] != "fresh" {
		t.Errorf("active devices = %v, want [fresh]", devices)
	}
}

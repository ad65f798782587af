package plan

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name           string
		id             ID
		wantMaxHistory int
		wantCacheTTL   time.Duration
		wantBatch      int
		wantParallel   bool
	}{
		{"free", Free, 500, time.Minute, 10, false},
		{"plus", Plus, 5000, 5 * time.Minute, 50, true},
		{"business", Business, 20000, 10 * time.Minute, 200, true},
		{"unknown falls back to free", ID("enterprise"), 500, time.Minute, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := Resolve(tt.id)
			if tier.MaxHistory != tt.wantMaxHistory {
				t.Errorf("MaxHistory = %d, want %d", tier.MaxHistory, tt.wantMaxHistory)
			}
			if tier.CacheTTL != tt.wantCacheTTL {
				t.Errorf("CacheTTL = %v, want %v", tier.CacheTTL, tt.wantCacheTTL)
			}
			if tier.BatchSize != tt.wantBatch {
				t.Errorf("BatchSize = %d, want %d", tier.BatchSize, tt.wantBatch)
			}
			if tier.ParallelProcessing != tt.wantParallel {
				t.Errorf("ParallelProcessing = %v, want %v", tier.ParallelProcessing, tt.wantParallel)
			}
		})
	}
}

type failingLookup struct{}

func (failingLookup) CurrentPlan(ctx context.Context, tenantID string) (ID, error) {
	return "", errors.New("billing unavailable")
}

func TestResolverDegradesToFree(t *testing.T) {
	r := NewResolver(failingLookup{})
	tier := r.TierFor(context.Background(), "tenant-1")
	if tier.Plan != Free {
		t.Errorf("tier on billing failure = %s, want free", tier.Plan)
	}

	r = NewResolver(nil)
	if tier := r.TierFor(context.Background(), "tenant-1"); tier.Plan != Free {
		t.Errorf("tier with nil lookup = %s, want free", tier.Plan)
	}
}

func TestResolverUsesLookup(t *testing.T) {
	r := NewResolver(StaticLookup(Business))
	tier := r.TierFor(context.Background(), "tenant-1")
	if tier.Plan != Business {
		t.Errorf("tier = %s, want business", tier.Plan)
	}
}

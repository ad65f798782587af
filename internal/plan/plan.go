package plan

import (
	"context"
	"fmt"
	"time"
)

type ID string

const (
	Free     ID = "free"
	Plus     ID = "plus"
	Business ID = "business"
)

// Tier is the concrete resource envelope resolved from a tenant's
// subscription plan. It is read-only at request time and threaded through
// the components that need it.
type Tier struct {
	Plan               ID
	MaxHistory         int
	CacheTTL           time.Duration
	BatchSize          int
	PriorityProcessing bool
	ParallelProcessing bool
	PerformanceBoost   float64
	AdvancedAnalytics  bool
}

var tiers = map[ID]Tier{
	Free: {
		Plan:             Free,
		MaxHistory:       500,
		CacheTTL:         time.Minute,
		BatchSize:        10,
		PerformanceBoost: 1.0,
	},
	Plus: {
		Plan:               Plus,
		MaxHistory:         5000,
		CacheTTL:           5 * time.Minute,
		BatchSize:          50,
		PriorityProcessing: true,
		ParallelProcessing: true,
		PerformanceBoost:   1.5,
		AdvancedAnalytics:  true,
	},
	Business: {
		Plan:               Business,
		MaxHistory:         20000,
		CacheTTL:           10 * time.Minute,
		BatchSize:          200,
		PriorityProcessing: true,
		ParallelProcessing: true,
		PerformanceBoost:   2.0,
		AdvancedAnalytics:  true,
	},
}

// Resolve maps a plan id to its tier. Unknown plans resolve to the free
// tier rather than failing the request.
func Resolve(id ID) Tier {
	if t, ok := tiers[id]; ok {
		return t
	}
	return tiers[Free]
}

// LimitError reports a request that exceeds the tenant tier's envelope. It
// carries the ceiling and the requested amount so clients can adjust or
// upgrade.
type LimitError struct {
	Feature   string
	Limit     int
	Requested int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("plan limit exceeded for %s: requested %d, limit %d", e.Feature, e.Requested, e.Limit)
}

// Lookup is the subscription/billing collaborator. The core only ever asks
// it for the current plan of a tenant; payment and webhook logic stay on
// the other side of this interface.
type Lookup interface {
	CurrentPlan(ctx context.Context, tenantID string) (ID, error)
}

// Resolver combines the billing lookup with the static tier table.
type Resolver struct {
	lookup Lookup
}

func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// TierFor resolves the tenant's current tier. A billing lookup failure
// degrades to the free tier so reads and writes keep working.
func (r *Resolver) TierFor(ctx context.Context, tenantID string) Tier {
	if r.lookup == nil {
		return Resolve(Free)
	}
	id, err := r.lookup.CurrentPlan(ctx, tenantID)
	if err != nil {
		return Resolve(Free)
	}
	return Resolve(id)
}

// StaticLookup returns the same plan for every tenant. Used in tests and as
// a default when no billing service is configured.
type StaticLookup ID

func (s StaticLookup) CurrentPlan(ctx context.Context, tenantID string) (ID, error) {
	return ID(s), nil
}

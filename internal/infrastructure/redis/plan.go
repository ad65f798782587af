package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"location-tracking-core/internal/plan"
)

const (
	tenantPlanPrefix = "tenant:plan:"
	tenantPlanTTL    = 24 * time.Hour
)

// PlanStore keeps the billing service's plan assignments in redis. It
// satisfies plan.Lookup; a missing key reads as the free plan.
type PlanStore struct {
	client *Client
}

func NewPlanStore(client *Client) *PlanStore {
	return &PlanStore{client: client}
}

func (s *PlanStore) CurrentPlan(ctx context.Context, tenantID string) (plan.ID, error) {
	val, err := s.client.Client().Get(ctx, tenantPlanPrefix+tenantID).Result()
	if errors.Is(err, redis.Nil) {
		return plan.Free, nil
	}
	if err != nil {
		return "", err
	}
	return plan.ID(val), nil
}

func (s *PlanStore) SetPlan(ctx context.Context, tenantID string, id plan.ID) error {
	return s.client.Client().Set(ctx, tenantPlanPrefix+tenantID, string(id), tenantPlanTTL).Err()
}

package group

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"location-tracking-core/internal/domain/group"
	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/plan"
)

// parallelFanoutMin is the member count above which paid tiers read latest
// locations concurrently.
const parallelFanoutMin = 5

type Service struct {
	groups  storage.GroupRepository
	locator LastLocator
	plans   *plan.Resolver
}

func NewService(groups storage.GroupRepository, locator LastLocator, plans *plan.Resolver) *Service {
	return &Service{groups: groups, locator: locator, plans: plans}
}

func (s *Service) Create(ctx context.Context, ownerID, name string) (*group.Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}

	g := &group.Group{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) AddMember(ctx context.Context, ownerID, groupID, deviceID, name string) error {
	if _, err := s.owned(ctx, ownerID, groupID); err != nil {
		return err
	}

	return s.groups.AddMember(ctx, &group.Member{
		GroupID:  groupID,
		DeviceID: deviceID,
		Name:     name,
		JoinedAt: time.Now(),
	})
}

func (s *Service) RemoveMember(ctx context.Context, ownerID, groupID, deviceID string) error {
	if _, err := s.owned(ctx, ownerID, groupID); err != nil {
		return err
	}
	return s.groups.RemoveMember(ctx, groupID, deviceID)
}

func (s *Service) Members(ctx context.Context, ownerID, groupID string) ([]group.Member, error) {
	if _, err := s.owned(ctx, ownerID, groupID); err != nil {
		return nil, err
	}
	return s.groups.ListMembers(ctx, groupID)
}

// LatestLocations snapshots every member's newest position. Tiers with
// parallel processing fan the reads out concurrently once the group is large
// enough to benefit.
func (s *Service) LatestLocations(ctx context.Context, ownerID, groupID string) ([]location.Snapshot, error) {
	if _, err := s.owned(ctx, ownerID, groupID); err != nil {
		return nil, err
	}

	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	tier := s.tierFor(ctx, ownerID)
	snapshots := make([]location.Snapshot, len(members))

	if tier.ParallelProcessing && len(members) > parallelFanoutMin {
		var wg sync.WaitGroup
		for i, m := range members {
			wg.Add(1)
			go func(i int, deviceID string) {
				defer wg.Done()
				snapshots[i] = s.snapshot(ctx, deviceID)
			}(i, m.DeviceID)
		}
		wg.Wait()
	} else {
		for i, m := range members {
			snapshots[i] = s.snapshot(ctx, m.DeviceID)
		}
	}

	return snapshots, nil
}

func (s *Service) snapshot(ctx context.Context, deviceID string) location.Snapshot {
	snap := location.Snapshot{DeviceID: deviceID}

	last, err := s.locator.Latest(ctx, deviceID)
	if err != nil {
		log.Printf("Failed to read latest location for device %s: %v", deviceID, err)
		return snap
	}
	if last != nil {
		snap.Last = last
		snap.LastUpdate = last.Timestamp
	}
	return snap
}

// owned resolves the group and enforces owner scoping.
func (s *Service) owned(ctx context.Context, ownerID, groupID string) (*group.Group, error) {
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil || g.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return g, nil
}

func (s *Service) tierFor(ctx context.Context, ownerID string) plan.Tier {
	if s.plans == nil {
		return plan.Resolve(plan.Free)
	}
	return s.plans.TierFor(ctx, ownerID)
}

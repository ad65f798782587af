package memstore

import (
	"context"
	"sort"
	"sync"

	"location-tracking-core/internal/domain/group"
)

type GroupRepository struct {
	mu      sync.RWMutex
	groups  map[string]group.Group
	members map[string][]group.Member // keyed by group ID
}

func NewGroupRepository() *GroupRepository {
	return &GroupRepository{
		groups:  make(map[string]group.Group),
		members: make(map[string][]group.Member),
	}
}

func (r *GroupRepository) Create(ctx context.Context, g *group.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID] = *g
	return nil
}

func (r *GroupRepository) Get(ctx context.Context, id string) (*group.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r *GroupRepository) AddMember(ctx context.Context, m *group.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.members[m.GroupID]
	for i, existing := range members {
		if existing.DeviceID == m.DeviceID {
			members[i].Name = m.Name
			return nil
		}
	}
	r.members[m.GroupID] = append(members, *m)
	return nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.members[groupID]
	for i, m := range members {
		if m.DeviceID == deviceID {
			r.members[groupID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]group.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]group.Member, len(r.members[groupID]))
	copy(members, r.members[groupID])

	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (r *GroupRepository) GroupsForDevice(ctx context.Context, deviceID string) ([]group.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var groups []group.Group
	for groupID, members := range r.members {
		for _, m := range members {
			if m.DeviceID == deviceID {
				if g, ok := r.groups[groupID]; ok {
					groups = append(groups, g)
				}
				break
			}
		}
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

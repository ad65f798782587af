package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"location-tracking-core/internal/domain/group"
	"location-tracking-core/internal/infrastructure/storage"
)

type GroupRepository struct {
	client *Client
}

func NewGroupRepository(client *Client) *GroupRepository {
	return &GroupRepository{client: client}
}

func (r *GroupRepository) Create(ctx context.Context, g *group.Group) error {
	_, err := r.client.Pool().Exec(ctx, `
		INSERT INTO groups (id, owner_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, g.ID, g.OwnerID, g.Name, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert group failed: %w", err)
	}
	return nil
}

func (r *GroupRepository) Get(ctx context.Context, id string) (*group.Group, error) {
	var g group.Group
	err := r.client.Pool().QueryRow(ctx, `
		SELECT id, owner_id, name, created_at FROM groups WHERE id = $1
	`, id).Scan(&g.ID, &g.OwnerID, &g.Name, &g.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group failed: %w", err)
	}
	return &g, nil
}

func (r *GroupRepository) AddMember(ctx context.Context, m *group.Member) error {
	_, err := r.client.Pool().Exec(ctx, `
		INSERT INTO group_members (group_id, device_id, name, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_id, device_id) DO UPDATE SET name = EXCLUDED.name
	`, m.GroupID, m.DeviceID, m.Name, m.JoinedAt)
	if err != nil {
		return fmt.Errorf("add group member failed: %w", err)
	}
	return nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, deviceID string) error {
	tag, err := r.client.Pool().Exec(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND device_id = $2
	`, groupID, deviceID)
	if err != nil {
		return fmt.Errorf("remove group member failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *GroupRepository) ListMembers(ctx context.Context, groupID string) ([]group.Member, error) {
	rows, err := r.client.Pool().Query(ctx, `
		SELECT group_id, device_id, name, joined_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY joined_at
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members failed: %w", err)
	}
	defer rows.Close()

	var members []group.Member
	for rows.Next() {
		var m group.Member
		if err := rows.Scan(&m.GroupID, &m.DeviceID, &m.Name, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan group member failed: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *GroupRepository) GroupsForDevice(ctx context.Context, deviceID string) ([]group.Group, error) {
	rows, err := r.client.Pool().Query(ctx, `
		SELECT g.id, g.owner_id, g.name, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.device_id = $1
	`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list groups for device failed: %w", err)
	}
	defer rows.Close()

	var groups []group.Group
	for rows.Next() {
		var g group.Group
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group failed: %w", err)
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"location-tracking-core/internal/domain/geofence"
	"location-tracking-core/internal/infrastructure/storage"
)

type GeofenceRepository struct {
	client *Client
}

func NewGeofenceRepository(client *Client) *GeofenceRepository {
	return &GeofenceRepository{client: client}
}

func (r *GeofenceRepository) Create(ctx context.Context, g *geofence.Geofence) error {
	query := `
		INSERT INTO geofences (
			id, owner_id, group_id, name,
			latitude, longitude, radius_m,
			enabled, notify_on_enter, notify_on_exit,
			enter_message, exit_message,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := r.client.Pool().Exec(ctx, query,
		g.ID, g.OwnerID, g.GroupID, g.Name,
		g.Latitude, g.Longitude, g.RadiusM,
		g.Enabled, g.NotifyOnEnter, g.NotifyOnExit,
		g.EnterMessage, g.ExitMessage,
		g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert geofence failed: %w", err)
	}
	return nil
}

func (r *GeofenceRepository) Update(ctx context.Context, g *geofence.Geofence) error {
	query := `
		UPDATE geofences SET
			name = $3, latitude = $4, longitude = $5, radius_m = $6,
			enabled = $7, notify_on_enter = $8, notify_on_exit = $9,
			enter_message = $10, exit_message = $11, group_id = $12,
			updated_at = $13
		WHERE id = $1 AND owner_id = $2
	`

	tag, err := r.client.Pool().Exec(ctx, query,
		g.ID, g.OwnerID,
		g.Name, g.Latitude, g.Longitude, g.RadiusM,
		g.Enabled, g.NotifyOnEnter, g.NotifyOnExit,
		g.EnterMessage, g.ExitMessage, g.GroupID,
		g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update geofence failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *GeofenceRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := r.client.Pool().Exec(ctx,
		`DELETE FROM geofences WHERE id = $1 AND owner_id = $2`, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete geofence failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *GeofenceRepository) Get(ctx context.Context, ownerID string, id uuid.UUID) (*geofence.Geofence, error) {
	query := geofenceSelect + ` WHERE id = $1 AND owner_id = $2`

	g, err := scanGeofence(r.client.Pool().QueryRow(ctx, query, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get geofence failed: %w", err)
	}
	return &g, nil
}

func (r *GeofenceRepository) ListByOwner(ctx context.Context, ownerID string) ([]geofence.Geofence, error) {
	query := geofenceSelect + ` WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.client.Pool().Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list geofences failed: %w", err)
	}
	defer rows.Close()

	return collectGeofences(rows)
}

func (r *GeofenceRepository) ListEnabled(ctx context.Context, ownerID, deviceID string) ([]geofence.Geofence, error) {
	// Owner fences plus fences scoped to groups the device is a member of.
	query := geofenceSelect + `
		WHERE enabled
		  AND (
			(owner_id = $1 AND group_id IS NULL)
			OR group_id IN (SELECT group_id FROM group_members WHERE device_id = $2)
		  )
	`

	rows, err := r.client.Pool().Query(ctx, query, ownerID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list enabled geofences failed: %w", err)
	}
	defer rows.Close()

	return collectGeofences(rows)
}

func (r *GeofenceRepository) InsertEvent(ctx context.Context, e *geofence.Event) error {
	query := `
		INSERT INTO geofence_events (
			id, geofence_id, device_id, event_type,
			latitude, longitude, time
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (geofence_id, device_id, time, event_type) DO NOTHING
	`

	_, err := r.client.Pool().Exec(ctx, query,
		e.ID, e.GeofenceID, e.DeviceID, e.EventType,
		e.Latitude, e.Longitude, time.UnixMilli(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert geofence event failed: %w", err)
	}
	return nil
}

func (r *GeofenceRepository) ListEvents(ctx context.Context, q *geofence.EventQuery) ([]geofence.Event, int, error) {
	whereClause := "WHERE device_id = $1"
	args := []interface{}{q.DeviceID}
	argIdx := 2

	if q.GeofenceID != nil {
		whereClause += fmt.Sprintf(" AND geofence_id = $%d", argIdx)
		args = append(args, *q.GeofenceID)
		argIdx++
	}

	if q.StartTime > 0 {
		whereClause += fmt.Sprintf(" AND time >= $%d", argIdx)
		args = append(args, time.UnixMilli(q.StartTime))
		argIdx++
	}

	if q.EndTime > 0 {
		whereClause += fmt.Sprintf(" AND time <= $%d", argIdx)
		args = append(args, time.UnixMilli(q.EndTime))
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT id, geofence_id, device_id, event_type, latitude, longitude, time
		FROM geofence_events
		%s
		ORDER BY time DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIdx, argIdx+1)

	rows, err := r.client.Pool().Query(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query geofence events failed: %w", err)
	}
	defer rows.Close()

	var events []geofence.Event
	for rows.Next() {
		var (
			e geofence.Event
			t time.Time
		)
		if err := rows.Scan(
			&e.ID, &e.GeofenceID, &e.DeviceID, &e.EventType,
			&e.Latitude, &e.Longitude, &t,
		); err != nil {
			return nil, 0, fmt.Errorf("scan geofence event failed: %w", err)
		}
		e.Timestamp = t.UnixMilli()
		events = append(events, e)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM geofence_events %s`, whereClause)

	var total int
	if err := r.client.Pool().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count geofence events failed: %w", err)
	}

	return events, total, nil
}

const geofenceSelect = `
	SELECT id, owner_id, group_id, name,
	       latitude, longitude, radius_m,
	       enabled, notify_on_enter, notify_on_exit,
	       enter_message, exit_message,
	       created_at, updated_at
	FROM geofences
`

func scanGeofence(row pgx.Row) (geofence.Geofence, error) {
	var g geofence.Geofence
	err := row.Scan(
		&g.ID, &g.OwnerID, &g.GroupID, &g.Name,
		&g.Latitude, &g.Longitude, &g.RadiusM,
		&g.Enabled, &g.NotifyOnEnter, &g.NotifyOnExit,
		&g.EnterMessage, &g.ExitMessage,
		&g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

func collectGeofences(rows pgx.Rows) ([]geofence.Geofence, error) {
	var fences []geofence.Geofence
	for rows.Next() {
		g, err := scanGeofence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan geofence failed: %w", err)
		}
		fences = append(fences, g)
	}
	return fences, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"location-tracking-core/internal/domain/vehicle"
	"location-tracking-core/internal/infrastructure/storage"
)

type VehicleRepository struct {
	client *Client
}

func NewVehicleRepository(client *Client) *VehicleRepository {
	return &VehicleRepository{client: client}
}

func (r *VehicleRepository) CreateVehicle(ctx context.Context, v *vehicle.Vehicle) error {
	query := `
		INSERT INTO vehicles (
			id, owner_id, group_id, name, plate_number,
			vehicle_type, max_speed_kmh, is_active, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.client.Pool().Exec(ctx, query,
		v.ID, v.OwnerID, v.GroupID, v.Name, v.PlateNumber,
		v.VehicleType, v.MaxSpeedKmh, v.IsActive, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vehicle failed: %w", err)
	}
	return nil
}

func (r *VehicleRepository) GetVehicle(ctx context.Context, userID string, id uuid.UUID) (*vehicle.Vehicle, error) {
	query := vehicleSelect + ` WHERE id = $1 AND owner_id = $2`

	v, err := scanVehicle(r.client.Pool().QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle failed: %w", err)
	}
	return &v, nil
}

func (r *VehicleRepository) ListVehicles(ctx context.Context, userID string) ([]vehicle.Vehicle, error) {
	query := vehicleSelect + ` WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.client.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles failed: %w", err)
	}
	defer rows.Close()

	var vehicles []vehicle.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle failed: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

func (r *VehicleRepository) DeleteVehicle(ctx context.Context, userID string, id uuid.UUID) error {
	tag, err := r.client.Pool().Exec(ctx,
		`DELETE FROM vehicles WHERE id = $1 AND owner_id = $2`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete vehicle failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *VehicleRepository) StartSession(ctx context.Context, s *vehicle.Session) error {
	tx, err := r.client.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin session tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Close any session still open for the vehicle so the single-active
	// invariant holds even if a client forgot to end the previous one.
	_, err = tx.Exec(ctx, `
		UPDATE vehicle_sessions
		SET is_active = false, ended_at = $2
		WHERE vehicle_id = $1 AND is_active
	`, s.VehicleID, s.StartedAt)
	if err != nil {
		return fmt.Errorf("close stale sessions failed: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO vehicle_sessions (
			id, vehicle_id, user_id, device_id, started_at,
			start_latitude, start_longitude, start_accuracy, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, true
		)
	`,
		s.ID, s.VehicleID, s.UserID, s.DeviceID, s.StartedAt,
		s.StartLocation.Latitude, s.StartLocation.Longitude, s.StartLocation.Accuracy,
	)
	if err != nil {
		return fmt.Errorf("insert session failed: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *VehicleRepository) EndSession(ctx context.Context, userID string, sessionID uuid.UUID, endedAt time.Time) (*vehicle.Session, error) {
	query := `
		UPDATE vehicle_sessions
		SET is_active = false, ended_at = $3
		WHERE id = $1 AND user_id = $2 AND is_active
		RETURNING id, vehicle_id, user_id, device_id, started_at,
		          start_latitude, start_longitude, start_accuracy,
		          ended_at, is_active
	`

	s, err := scanSession(r.client.Pool().QueryRow(ctx, query, sessionID, userID, endedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("end session failed: %w", err)
	}
	return &s, nil
}

func (r *VehicleRepository) ActiveSession(ctx context.Context, vehicleID uuid.UUID) (*vehicle.Session, error) {
	query := `
		SELECT id, vehicle_id, user_id, device_id, started_at,
		       start_latitude, start_longitude, start_accuracy,
		       ended_at, is_active
		FROM vehicle_sessions
		WHERE vehicle_id = $1 AND is_active
		LIMIT 1
	`

	s, err := scanSession(r.client.Pool().QueryRow(ctx, query, vehicleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session failed: %w", err)
	}
	return &s, nil
}

func (r *VehicleRepository) InsertViolation(ctx context.Context, v *vehicle.SpeedViolation) error {
	query := `
		INSERT INTO speed_violations (
			id, vehicle_id, session_id, user_id,
			speed_kmh, speed_limit_kmh, severity,
			latitude, longitude, time
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := r.client.Pool().Exec(ctx, query,
		v.ID, v.VehicleID, v.SessionID, v.UserID,
		v.SpeedKmh, v.SpeedLimitKmh, v.Severity,
		v.Latitude, v.Longitude, v.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert violation failed: %w", err)
	}
	return nil
}

func (r *VehicleRepository) ListViolations(ctx context.Context, userID string, vehicleID uuid.UUID, limit int) ([]vehicle.SpeedViolation, error) {
	query := `
		SELECT id, vehicle_id, session_id, user_id,
		       speed_kmh, speed_limit_kmh, severity,
		       latitude, longitude, time
		FROM speed_violations
		WHERE user_id = $1 AND vehicle_id = $2
		ORDER BY time DESC
		LIMIT $3
	`

	rows, err := r.client.Pool().Query(ctx, query, userID, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("list violations failed: %w", err)
	}
	defer rows.Close()

	var violations []vehicle.SpeedViolation
	for rows.Next() {
		var v vehicle.SpeedViolation
		if err := rows.Scan(
			&v.ID, &v.VehicleID, &v.SessionID, &v.UserID,
			&v.SpeedKmh, &v.SpeedLimitKmh, &v.Severity,
			&v.Latitude, &v.Longitude, &v.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan violation failed: %w", err)
		}
		violations = append(violations, v)
	}

	return violations, rows.Err()
}

const vehicleSelect = `
	SELECT id, owner_id, group_id, name, plate_number,
	       vehicle_type, max_speed_kmh, is_active, created_at
	FROM vehicles
`

func scanVehicle(row pgx.Row) (vehicle.Vehicle, error) {
	var v vehicle.Vehicle
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.GroupID, &v.Name, &v.PlateNumber,
		&v.VehicleType, &v.MaxSpeedKmh, &v.IsActive, &v.CreatedAt,
	)
	return v, err
}

func scanSession(row pgx.Row) (vehicle.Session, error) {
	var s vehicle.Session
	err := row.Scan(
		&s.ID, &s.VehicleID, &s.UserID, &s.DeviceID, &s.StartedAt,
		&s.StartLocation.Latitude, &s.StartLocation.Longitude, &s.StartLocation.Accuracy,
		&s.EndedAt, &s.IsActive,
	)
	return s, err
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"location-tracking-core/internal/domain/location"
)

type LocationRepository struct {
	client *Client
}

func NewLocationRepository(client *Client) *LocationRepository {
	return &LocationRepository{client: client}
}

func (r *LocationRepository) BatchInsert(ctx context.Context, samples []*location.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO device_locations (
			device_id, time,
			latitude, longitude, accuracy, heading, speed,
			city, province
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (device_id, time) DO NOTHING
	`
	for _, s := range samples {
		var city, province *string
		if s.Geocode != nil {
			city, province = &s.Geocode.City, &s.Geocode.Province
		}
		batch.Queue(query,
			s.DeviceID, s.Time(),
			s.Coords.Latitude, s.Coords.Longitude,
			s.Coords.Accuracy, s.Coords.Heading, s.Coords.Speed,
			city, province,
		)
	}

	br := r.client.Pool().SendBatch(ctx, batch)
	defer func(br pgx.BatchResults) {
		if err := br.Close(); err != nil {
			fmt.Printf("error closing batch results: %v\n", err)
		}
	}(br)

	for i := 0; i < len(samples); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert locations failed at %d: %w", i, err)
		}
	}

	return nil
}

func (r *LocationRepository) History(ctx context.Context, q *location.HistoryQuery) ([]location.Sample, int, error) {
	// The inner query picks the most recent page, the outer one flips it
	// back to track order (oldest first).
	query := `
		SELECT device_id, time, latitude, longitude, accuracy, heading, speed, city, province
		FROM (
			SELECT device_id, time, latitude, longitude, accuracy, heading, speed, city, province
			FROM device_locations
			WHERE device_id = $1
			ORDER BY time DESC
			LIMIT $2 OFFSET $3
		) recent
		ORDER BY time ASC
	`

	rows, err := r.client.Pool().Query(ctx, query, q.DeviceID, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query location history failed: %w", err)
	}
	defer rows.Close()

	var samples []location.Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, 0, err
		}
		samples = append(samples, s)
	}

	countQuery := `SELECT COUNT(*) FROM device_locations WHERE device_id = $1`

	var total int
	if err := r.client.Pool().QueryRow(ctx, countQuery, q.DeviceID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count location history failed: %w", err)
	}

	return samples, total, nil
}

func (r *LocationRepository) Latest(ctx context.Context, deviceID string) (*location.Sample, error) {
	query := `
		SELECT device_id, time, latitude, longitude, accuracy, heading, speed, city, province
		FROM device_locations
		WHERE device_id = $1
		ORDER BY time DESC
		LIMIT 1
	`

	row := r.client.Pool().QueryRow(ctx, query, deviceID)
	s, err := scanSample(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest location: %w", err)
	}

	return &s, nil
}

func (r *LocationRepository) Count(ctx context.Context, deviceID string) (int, error) {
	var total int
	err := r.client.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM device_locations WHERE device_id = $1`, deviceID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count locations failed: %w", err)
	}
	return total, nil
}

func (r *LocationRepository) Evict(ctx context.Context, deviceID string, keep int) error {
	if keep <= 0 {
		return nil
	}

	query := `
		DELETE FROM device_locations
		WHERE device_id = $1
		  AND time < (
			SELECT time FROM device_locations
			WHERE device_id = $1
			ORDER BY time DESC
			LIMIT 1 OFFSET $2
		  )
	`

	_, err := r.client.Pool().Exec(ctx, query, deviceID, keep-1)
	if err != nil {
		return fmt.Errorf("evict locations failed: %w", err)
	}
	return nil
}

func (r *LocationRepository) ActiveDevices(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.client.Pool().Query(ctx,
		`SELECT DISTINCT device_id FROM device_locations WHERE time >= $1`, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query active devices failed: %w", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan device id failed: %w", err)
		}
		devices = append(devices, id)
	}

	return devices, rows.Err()
}

func scanSample(row pgx.Row) (location.Sample, error) {
	var (
		s              location.Sample
		t              time.Time
		city, province *string
	)

	err := row.Scan(
		&s.DeviceID, &t,
		&s.Coords.Latitude, &s.Coords.Longitude,
		&s.Coords.Accuracy, &s.Coords.Heading, &s.Coords.Speed,
		&city, &province,
	)
	if err != nil {
		return s, err
	}

	s.Timestamp = t.UnixMilli()
	if city != nil || province != nil {
		g := &location.Geocode{}
		if city != nil {
			g.City = *city
		}
		if province != nil {
			g.Province = *province
		}
		s.Geocode = g
	}

	return s, nil
}

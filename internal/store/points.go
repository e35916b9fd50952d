package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleettrack/internal/domain"
)

// PointStore persists raw tracking points and serves the ordered range
// queries the analytics services run over them.
type PointStore struct {
	pool *pgxpool.Pool
}

func NewPointStore(pool *pgxpool.Pool) *PointStore {
	return &PointStore{pool: pool}
}

func (s *PointStore) Insert(ctx context.Context, p *domain.TrackingPoint) error {
	const query = `
		INSERT INTO tracking_points
			(tenant_id, vehicle_id, lat, lon, speed_kmh, heading, altitude_m, accuracy_m, ts, recorded_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		p.TenantID,
		p.VehicleID,
		p.Lat,
		p.Lon,
		p.SpeedKmh,
		p.Heading,
		p.AltitudeM,
		p.AccuracyM,
		p.Timestamp,
		p.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tracking point: %w", err)
	}
	return nil
}

// Latest returns the most recent point for a vehicle by timestamp, or
// domain.ErrNotFound if the vehicle has never reported.
func (s *PointStore) Latest(ctx context.Context, tenantID, vehicleID string) (*domain.TrackingPoint, error) {
	const query = `
		SELECT tenant_id, vehicle_id, lat, lon, speed_kmh, heading, altitude_m, accuracy_m, ts, recorded_at
		FROM tracking_points
		WHERE tenant_id = $1 AND vehicle_id = $2
		ORDER BY ts DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, tenantID, vehicleID)
	p, err := scanPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest point: %w", err)
	}
	return p, nil
}

// Range returns points for a vehicle in [start, end], ordered by timestamp
// ascending.
func (s *PointStore) Range(ctx context.Context, tenantID, vehicleID string, start, end time.Time) ([]domain.TrackingPoint, error) {
	const query = `
		SELECT tenant_id, vehicle_id, lat, lon, speed_kmh, heading, altitude_m, accuracy_m, ts, recorded_at
		FROM tracking_points
		WHERE tenant_id = $1 AND vehicle_id = $2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC
	`

	rows, err := s.pool.Query(ctx, query, tenantID, vehicleID, start, end)
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	defer rows.Close()

	var points []domain.TrackingPoint
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		points = append(points, *p)
	}
	return points, rows.Err()
}

// VehicleIDs lists the tenant's roster: every vehicle that has reported at
// least one point.
func (s *PointStore) VehicleIDs(ctx context.Context, tenantID string) ([]string, error) {
	const query = `
		SELECT DISTINCT vehicle_id FROM tracking_points WHERE tenant_id = $1 ORDER BY vehicle_id
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("vehicle ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan vehicle id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPoint(row pgx.Row) (*domain.TrackingPoint, error) {
	var p domain.TrackingPoint
	err := row.Scan(
		&p.TenantID,
		&p.VehicleID,
		&p.Lat,
		&p.Lon,
		&p.SpeedKmh,
		&p.Heading,
		&p.AltitudeM,
		&p.AccuracyM,
		&p.Timestamp,
		&p.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

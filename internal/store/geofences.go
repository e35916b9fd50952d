package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleettrack/internal/domain"
)

// GeofenceStore handles geofence definitions and the durable
// per-(vehicle, geofence) inside/outside state.
type GeofenceStore struct {
	pool *pgxpool.Pool
}

func NewGeofenceStore(pool *pgxpool.Pool) *GeofenceStore {
	return &GeofenceStore{pool: pool}
}

// Create validates the definition, persists it, and returns the stored
// record with its generated identifier.
func (s *GeofenceStore) Create(ctx context.Context, gf *domain.Geofence) (*domain.Geofence, error) {
	if err := gf.Validate(); err != nil {
		return nil, err
	}

	shape, err := domain.EncodeShape(gf.Shape)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	gf.ID = uuid.New()
	gf.IsActive = true
	gf.CreatedAt = now
	gf.UpdatedAt = now

	const query = `
		INSERT INTO geofences
			(id, tenant_id, name, shape, alert_on_entry, alert_on_exit, is_active, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		gf.ID, gf.TenantID, gf.Name, shape,
		gf.AlertOnEntry, gf.AlertOnExit, gf.IsActive,
		gf.CreatedAt, gf.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert geofence: %w", err)
	}
	return gf, nil
}

func (s *GeofenceStore) ByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Geofence, error) {
	const query = `
		SELECT id, tenant_id, name, shape, alert_on_entry, alert_on_exit, is_active, created_at, updated_at
		FROM geofences
		WHERE tenant_id = $1 AND id = $2
	`

	gf, err := scanGeofence(s.pool.QueryRow(ctx, query, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("geofence by id: %w", err)
	}
	return gf, nil
}

// ListActive returns every active geofence for the tenant. Position checks
// scan this list in full; fine at small fleet scale, a spatial index is the
// upgrade path if counts grow.
func (s *GeofenceStore) ListActive(ctx context.Context, tenantID string) ([]domain.Geofence, error) {
	const query = `
		SELECT id, tenant_id, name, shape, alert_on_entry, alert_on_exit, is_active, created_at, updated_at
		FROM geofences
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list active geofences: %w", err)
	}
	defer rows.Close()

	var fences []domain.Geofence
	for rows.Next() {
		gf, err := scanGeofence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan geofence: %w", err)
		}
		fences = append(fences, *gf)
	}
	return fences, rows.Err()
}

func (s *GeofenceStore) Update(ctx context.Context, gf *domain.Geofence) error {
	if err := gf.Validate(); err != nil {
		return err
	}

	shape, err := domain.EncodeShape(gf.Shape)
	if err != nil {
		return err
	}

	gf.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE geofences
		SET name = $3, shape = $4, alert_on_entry = $5, alert_on_exit = $6, updated_at = $7
		WHERE tenant_id = $1 AND id = $2
	`

	tag, err := s.pool.Exec(ctx, query,
		gf.TenantID, gf.ID, gf.Name, shape,
		gf.AlertOnEntry, gf.AlertOnExit, gf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update geofence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a geofence. Historical transition state is kept.
func (s *GeofenceStore) Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error {
	const query = `
		UPDATE geofences SET is_active = FALSE, updated_at = $3
		WHERE tenant_id = $1 AND id = $2
	`

	tag, err := s.pool.Exec(ctx, query, tenantID, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate geofence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// State returns the stored inside/outside flag for a (vehicle, geofence)
// pair. found is false when the pair has never been evaluated; callers
// treat that as "outside" so a vehicle's first sample establishes baseline
// state without an alert storm.
func (s *GeofenceStore) State(ctx context.Context, tenantID, vehicleID string, geofenceID uuid.UUID) (inside bool, found bool, err error) {
	const query = `
		SELECT inside FROM geofence_states
		WHERE tenant_id = $1 AND vehicle_id = $2 AND geofence_id = $3
	`

	err = s.pool.QueryRow(ctx, query, tenantID, vehicleID, geofenceID).Scan(&inside)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("geofence state: %w", err)
	}
	return inside, true, nil
}

// UpsertState overwrites the pair's state on every check, fired or not.
func (s *GeofenceStore) UpsertState(ctx context.Context, tenantID, vehicleID string, geofenceID uuid.UUID, inside bool) error {
	const query = `
		INSERT INTO geofence_states (tenant_id, vehicle_id, geofence_id, inside, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, vehicle_id, geofence_id)
		DO UPDATE SET inside = EXCLUDED.inside, updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query, tenantID, vehicleID, geofenceID, inside, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert geofence state: %w", err)
	}
	return nil
}

func scanGeofence(row pgx.Row) (*domain.Geofence, error) {
	var (
		gf    domain.Geofence
		shape []byte
	)
	err := row.Scan(
		&gf.ID,
		&gf.TenantID,
		&gf.Name,
		&shape,
		&gf.AlertOnEntry,
		&gf.AlertOnExit,
		&gf.IsActive,
		&gf.CreatedAt,
		&gf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	gf.Shape, err = domain.DecodeShape(shape)
	if err != nil {
		return nil, err
	}
	return &gf, nil
}

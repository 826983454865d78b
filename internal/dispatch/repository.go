package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richxcame/ride-pooling/internal/pricing"
	"github.com/richxcame/ride-pooling/pkg/common"
	"github.com/richxcame/ride-pooling/pkg/database"
)

// Repository is the Postgres implementation of Store.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a dispatch repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const passengerColumns = `
	id, user_id, pickup_latitude, pickup_longitude, dropoff_latitude,
	dropoff_longitude, luggage_count, seats_required, max_detour_minutes,
	state, pool_id, base_fare, final_fare, surge_multiplier, requested_at,
	matched_at, completed_at, cancelled_at, cancellation_reason,
	created_at, updated_at`

// InsertPassenger persists a new request.
func (r *Repository) InsertPassenger(ctx context.Context, p *Passenger) error {
	query := `
		INSERT INTO passengers (
			id, user_id, pickup_latitude, pickup_longitude, dropoff_latitude,
			dropoff_longitude, luggage_count, seats_required, max_detour_minutes,
			state, pool_id, base_fare, final_fare, surge_multiplier, requested_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID,
		p.UserID,
		p.PickupLatitude,
		p.PickupLongitude,
		p.DropoffLatitude,
		p.DropoffLongitude,
		p.LuggageCount,
		p.SeatsRequired,
		p.MaxDetourMinutes,
		p.State,
		p.PoolID,
		p.BaseFare,
		p.FinalFare,
		p.SurgeMultiplier,
		p.RequestedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert passenger: %w", err)
	}
	return nil
}

func scanPassenger(row pgx.Row) (*Passenger, error) {
	p := &Passenger{}
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.PickupLatitude,
		&p.PickupLongitude,
		&p.DropoffLatitude,
		&p.DropoffLongitude,
		&p.LuggageCount,
		&p.SeatsRequired,
		&p.MaxDetourMinutes,
		&p.State,
		&p.PoolID,
		&p.BaseFare,
		&p.FinalFare,
		&p.SurgeMultiplier,
		&p.RequestedAt,
		&p.MatchedAt,
		&p.CompletedAt,
		&p.CancelledAt,
		&p.CancellationReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPassenger retrieves one passenger by id.
func (r *Repository) GetPassenger(ctx context.Context, id uuid.UUID) (*Passenger, error) {
	query := `SELECT ` + passengerColumns + ` FROM passengers WHERE id = $1`
	p, err := database.RetryableQueryRow(ctx, r.db, query, []interface{}{id}, scanPassenger)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("passenger not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get passenger: %w", err)
	}
	return p, nil
}

// UpdatePassengerState writes the state and every state-associated field.
func (r *Repository) UpdatePassengerState(ctx context.Context, p *Passenger) error {
	query := `
		UPDATE passengers
		SET state = $2, pool_id = $3, base_fare = $4, final_fare = $5,
		    surge_multiplier = $6, matched_at = $7, completed_at = $8,
		    cancelled_at = $9, cancellation_reason = $10, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		p.ID,
		p.State,
		p.PoolID,
		p.BaseFare,
		p.FinalFare,
		p.SurgeMultiplier,
		p.MatchedAt,
		p.CompletedAt,
		p.CancelledAt,
		p.CancellationReason,
	)
	if err != nil {
		return fmt.Errorf("failed to update passenger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("passenger not found", nil)
	}
	return nil
}

// ListPassengersByUser returns a user's requests, newest first.
func (r *Repository) ListPassengersByUser(ctx context.Context, userID uuid.UUID, state *PassengerState) ([]*Passenger, error) {
	query := `SELECT ` + passengerColumns + ` FROM passengers WHERE user_id = $1`
	args := []interface{}{userID}
	if state != nil {
		query += ` AND state = $2`
		args = append(args, *state)
	}
	query += ` ORDER BY requested_at DESC`

	out, err := database.RetryableQuery(ctx, r.db, query, args, collectPassengers)
	if err != nil {
		return nil, fmt.Errorf("failed to list passengers: %w", err)
	}
	return out, nil
}

// ListPassengersByPool returns a pool's non-cancelled members.
func (r *Repository) ListPassengersByPool(ctx context.Context, poolID uuid.UUID) ([]*Passenger, error) {
	query := `SELECT ` + passengerColumns + `
		FROM passengers
		WHERE pool_id = $1 AND state != 'cancelled'
		ORDER BY requested_at ASC`
	out, err := database.RetryableQuery(ctx, r.db, query, []interface{}{poolID}, collectPassengers)
	if err != nil {
		return nil, fmt.Errorf("failed to list pool passengers: %w", err)
	}
	return out, nil
}

// QueryPendingPassengers returns up to limit pending requests, oldest first.
func (r *Repository) QueryPendingPassengers(ctx context.Context, limit int) ([]*Passenger, error) {
	query := `SELECT ` + passengerColumns + `
		FROM passengers
		WHERE state = 'pending'
		ORDER BY requested_at ASC
		LIMIT $1`
	out, err := database.RetryableQuery(ctx, r.db, query, []interface{}{limit}, collectPassengers)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending passengers: %w", err)
	}
	return out, nil
}

func collectPassengers(rows pgx.Rows) ([]*Passenger, error) {
	var out []*Passenger
	for rows.Next() {
		p, err := scanPassenger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan passenger: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const poolColumns = `
	id, driver_id, vehicle_class, max_seats, max_luggage, current_seats,
	current_luggage, state, total_distance_km, planned_route, h3_index,
	version, started_at, completed_at, created_at, updated_at`

// InsertPool persists a new pool at version 0.
func (r *Repository) InsertPool(ctx context.Context, pool *Pool) error {
	query := `
		INSERT INTO pools (
			id, driver_id, vehicle_class, max_seats, max_luggage,
			current_seats, current_luggage, state, total_distance_km,
			planned_route, h3_index, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0)
		RETURNING version, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		pool.ID,
		pool.DriverID,
		pool.VehicleClass,
		pool.MaxSeats,
		pool.MaxLuggage,
		pool.CurrentSeats,
		pool.CurrentLuggage,
		pool.State,
		pool.TotalDistanceKm,
		pool.PlannedRoute,
		pool.H3Index,
	).Scan(&pool.Version, &pool.CreatedAt, &pool.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert pool: %w", err)
	}
	return nil
}

func scanPool(row pgx.Row) (*Pool, error) {
	pool := &Pool{}
	err := row.Scan(
		&pool.ID,
		&pool.DriverID,
		&pool.VehicleClass,
		&pool.MaxSeats,
		&pool.MaxLuggage,
		&pool.CurrentSeats,
		&pool.CurrentLuggage,
		&pool.State,
		&pool.TotalDistanceKm,
		&pool.PlannedRoute,
		&pool.H3Index,
		&pool.Version,
		&pool.StartedAt,
		&pool.CompletedAt,
		&pool.CreatedAt,
		&pool.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// GetPool retrieves one pool by id.
func (r *Repository) GetPool(ctx context.Context, id uuid.UUID) (*Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE id = $1`
	pool, err := database.RetryableQueryRow(ctx, r.db, query, []interface{}{id}, scanPool)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("pool not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}
	return pool, nil
}

// ListPools returns pools, optionally filtered by state, newest first.
func (r *Repository) ListPools(ctx context.Context, state *PoolState) ([]*Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools`
	var args []interface{}
	if state != nil {
		query += ` WHERE state = $1`
		args = append(args, *state)
	}
	query += ` ORDER BY created_at DESC`

	out, err := database.RetryableQuery(ctx, r.db, query, args, collectPools)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	return out, nil
}

// QueryFormingPools returns forming pools no older than maxAge.
func (r *Repository) QueryFormingPools(ctx context.Context, maxAge time.Duration) ([]*Pool, error) {
	query := `SELECT ` + poolColumns + `
		FROM pools
		WHERE state = 'forming' AND created_at >= $1
		ORDER BY created_at ASC`
	out, err := database.RetryableQuery(ctx, r.db, query,
		[]interface{}{time.Now().UTC().Add(-maxAge)}, collectPools)
	if err != nil {
		return nil, fmt.Errorf("failed to query forming pools: %w", err)
	}
	return out, nil
}

func collectPools(rows pgx.Rows) ([]*Pool, error) {
	var out []*Pool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pool: %w", err)
		}
		out = append(out, pool)
	}
	return out, rows.Err()
}

// UpdatePoolUnderLease writes unconditionally and bumps the version. The
// caller must hold the pool's lease.
func (r *Repository) UpdatePoolUnderLease(ctx context.Context, pool *Pool) error {
	query := `
		UPDATE pools
		SET driver_id = $2, current_seats = $3, current_luggage = $4,
		    state = $5, total_distance_km = $6, planned_route = $7,
		    started_at = $8, completed_at = $9,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING version
	`
	err := r.db.QueryRow(ctx, query,
		pool.ID,
		pool.DriverID,
		pool.CurrentSeats,
		pool.CurrentLuggage,
		pool.State,
		pool.TotalDistanceKm,
		pool.PlannedRoute,
		pool.StartedAt,
		pool.CompletedAt,
	).Scan(&pool.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.NewNotFoundError("pool not found", err)
	}
	if err != nil {
		return fmt.Errorf("failed to update pool: %w", err)
	}
	return nil
}

// UpdatePoolByVersion writes only when the stored version matches, bumping
// it atomically. A false return means the caller lost the race.
func (r *Repository) UpdatePoolByVersion(ctx context.Context, pool *Pool, expectedVersion int64) (bool, error) {
	query := `
		UPDATE pools
		SET driver_id = $2, current_seats = $3, current_luggage = $4,
		    state = $5, total_distance_km = $6, planned_route = $7,
		    started_at = $8, completed_at = $9,
		    version = $10 + 1, updated_at = NOW()
		WHERE id = $1 AND version = $10
	`
	tag, err := r.db.Exec(ctx, query,
		pool.ID,
		pool.DriverID,
		pool.CurrentSeats,
		pool.CurrentLuggage,
		pool.State,
		pool.TotalDistanceKm,
		pool.PlannedRoute,
		pool.StartedAt,
		pool.CompletedAt,
		expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update pool by version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	pool.Version = expectedVersion + 1
	return true, nil
}

// DeletePool removes a pool; waypoints cascade.
func (r *Repository) DeletePool(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM pools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pool: %w", err)
	}
	return nil
}

// InsertWaypoint persists one route stop. Waypoints are never updated.
func (r *Repository) InsertWaypoint(ctx context.Context, w *Waypoint) error {
	query := `
		INSERT INTO waypoints (id, pool_id, passenger_id, sequence, kind, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		w.ID, w.PoolID, w.PassengerID, w.Sequence, w.Kind, w.Latitude, w.Longitude)
	if err != nil {
		return fmt.Errorf("failed to insert waypoint: %w", err)
	}
	return nil
}

// DeleteWaypointsForPassenger removes a passenger's pickup/dropoff pair.
func (r *Repository) DeleteWaypointsForPassenger(ctx context.Context, passengerID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM waypoints WHERE passenger_id = $1`, passengerID)
	if err != nil {
		return fmt.Errorf("failed to delete waypoints: %w", err)
	}
	return nil
}

// ListWaypointsForPool returns a pool's waypoints in sequence order.
func (r *Repository) ListWaypointsForPool(ctx context.Context, poolID uuid.UUID) ([]*Waypoint, error) {
	query := `
		SELECT id, pool_id, passenger_id, sequence, kind, latitude, longitude
		FROM waypoints
		WHERE pool_id = $1
		ORDER BY sequence ASC
	`
	out, err := database.RetryableQuery(ctx, r.db, query, []interface{}{poolID}, collectWaypoints)
	if err != nil {
		return nil, fmt.Errorf("failed to list waypoints: %w", err)
	}
	return out, nil
}

func collectWaypoints(rows pgx.Rows) ([]*Waypoint, error) {
	var out []*Waypoint
	for rows.Next() {
		w := &Waypoint{}
		if err := rows.Scan(&w.ID, &w.PoolID, &w.PassengerID, &w.Sequence, &w.Kind, &w.Latitude, &w.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan waypoint: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetSurgeZone retrieves one zone by id.
func (r *Repository) GetSurgeZone(ctx context.Context, id string) (*pricing.SurgeZone, error) {
	query := `
		SELECT id, name, center_latitude, center_longitude, radius_km,
		       multiplier, tier, active_requests, available_drivers, updated_at
		FROM surge_zones
		WHERE id = $1
	`
	zone, err := database.RetryableQueryRow(ctx, r.db, query, []interface{}{id}, scanSurgeZone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("surge zone not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get surge zone: %w", err)
	}
	return zone, nil
}

// ListSurgeZones returns every surge zone.
func (r *Repository) ListSurgeZones(ctx context.Context) ([]*pricing.SurgeZone, error) {
	query := `
		SELECT id, name, center_latitude, center_longitude, radius_km,
		       multiplier, tier, active_requests, available_drivers, updated_at
		FROM surge_zones
		ORDER BY name ASC
	`
	out, err := database.RetryableQuery(ctx, r.db, query, nil, collectSurgeZones)
	if err != nil {
		return nil, fmt.Errorf("failed to list surge zones: %w", err)
	}
	return out, nil
}

func scanSurgeZone(row pgx.Row) (*pricing.SurgeZone, error) {
	zone := &pricing.SurgeZone{}
	err := row.Scan(
		&zone.ID,
		&zone.Name,
		&zone.Center.Latitude,
		&zone.Center.Longitude,
		&zone.RadiusKm,
		&zone.Multiplier,
		&zone.Tier,
		&zone.ActiveRequests,
		&zone.AvailableDrivers,
		&zone.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return zone, nil
}

func collectSurgeZones(rows pgx.Rows) ([]*pricing.SurgeZone, error) {
	var out []*pricing.SurgeZone
	for rows.Next() {
		zone, err := scanSurgeZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan surge zone: %w", err)
		}
		out = append(out, zone)
	}
	return out, rows.Err()
}

// UpdateSurgeZone writes a zone's multiplier, tier and counters.
func (r *Repository) UpdateSurgeZone(ctx context.Context, zone *pricing.SurgeZone) error {
	query := `
		UPDATE surge_zones
		SET multiplier = $2, tier = $3, active_requests = $4,
		    available_drivers = $5, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		zone.ID, zone.Multiplier, zone.Tier, zone.ActiveRequests, zone.AvailableDrivers)
	if err != nil {
		return fmt.Errorf("failed to update surge zone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError("surge zone not found", nil)
	}
	return nil
}

// IncrementZoneActiveRequests bumps a zone's demand counter.
func (r *Repository) IncrementZoneActiveRequests(ctx context.Context, zoneID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE surge_zones SET active_requests = active_requests + 1, updated_at = NOW() WHERE id = $1`,
		zoneID)
	if err != nil {
		return fmt.Errorf("failed to increment zone demand: %w", err)
	}
	return nil
}

package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/ride-pooling/internal/pricing"
)

// Store is the persistence contract for dispatch. The service is agnostic to
// the backing store; the production implementation is Postgres.
type Store interface {
	InsertPassenger(ctx context.Context, p *Passenger) error
	GetPassenger(ctx context.Context, id uuid.UUID) (*Passenger, error)
	UpdatePassengerState(ctx context.Context, p *Passenger) error
	ListPassengersByUser(ctx context.Context, userID uuid.UUID, state *PassengerState) ([]*Passenger, error)
	ListPassengersByPool(ctx context.Context, poolID uuid.UUID) ([]*Passenger, error)
	QueryPendingPassengers(ctx context.Context, limit int) ([]*Passenger, error)

	InsertPool(ctx context.Context, pool *Pool) error
	GetPool(ctx context.Context, id uuid.UUID) (*Pool, error)
	ListPools(ctx context.Context, state *PoolState) ([]*Pool, error)
	QueryFormingPools(ctx context.Context, maxAge time.Duration) ([]*Pool, error)

	// UpdatePoolUnderLease assumes the caller holds the pool's lease; it
	// writes unconditionally and bumps the version.
	UpdatePoolUnderLease(ctx context.Context, pool *Pool) error

	// UpdatePoolByVersion writes only if the stored version equals
	// expectedVersion, setting it to expectedVersion+1. Returns false on
	// conflict; retrying is the caller's decision.
	UpdatePoolByVersion(ctx context.Context, pool *Pool, expectedVersion int64) (bool, error)

	DeletePool(ctx context.Context, id uuid.UUID) error

	InsertWaypoint(ctx context.Context, w *Waypoint) error
	DeleteWaypointsForPassenger(ctx context.Context, passengerID uuid.UUID) error
	ListWaypointsForPool(ctx context.Context, poolID uuid.UUID) ([]*Waypoint, error)

	GetSurgeZone(ctx context.Context, id string) (*pricing.SurgeZone, error)
	ListSurgeZones(ctx context.Context) ([]*pricing.SurgeZone, error)
	UpdateSurgeZone(ctx context.Context, zone *pricing.SurgeZone) error
	IncrementZoneActiveRequests(ctx context.Context, zoneID string) error
}

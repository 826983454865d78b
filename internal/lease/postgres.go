package lease

import (
	"context"
	"database/sql"
	"time"
)

// PostgresStore keeps lease records in a pool_leases table. The upsert's
// WHERE clause makes steal-on-expiry a single atomic statement.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Acquire inserts the lease, or takes over an existing record only when its
// expiry has passed.
func (s *PostgresStore) Acquire(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO pool_leases (name, holder, acquired_at, expires_at, version)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (name) DO UPDATE
		SET holder = EXCLUDED.holder,
		    acquired_at = EXCLUDED.acquired_at,
		    expires_at = EXCLUDED.expires_at,
		    version = pool_leases.version + 1
		WHERE pool_leases.expires_at < EXCLUDED.acquired_at
	`

	result, err := s.db.ExecContext(ctx, query, name, holder, now, now.Add(ttl))
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Release deletes the record only when holder matches; anything else is a
// no-op.
func (s *PostgresStore) Release(ctx context.Context, name, holder string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pool_leases WHERE name = $1 AND holder = $2`,
		name, holder)
	return err
}

// Sweep removes every expired record and reports how many were deleted.
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM pool_leases WHERE expires_at < $1`,
		time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

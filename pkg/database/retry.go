package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/ride-pooling/pkg/resilience"
)

// Querier is the read surface of a pgx pool.
type Querier interface {
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxRetries:       2,
		BaseDelay:        100 * time.Millisecond,
		RetryableChecker: isPostgresRetryable,
	}
}

// RetryableQuery executes a query with retry logic for transient failures,
// handing the rows to scanner. Reads only; writes are never blind-retried.
func RetryableQuery[T any](ctx context.Context, db Querier, query string, args []interface{}, scanner func(pgx.Rows) (T, error)) (T, error) {
	return resilience.Retry(ctx, retryConfig(), "database.query", func(ctx context.Context) (T, error) {
		rows, err := db.Query(ctx, query, args...)
		if err != nil {
			var zero T
			return zero, err
		}
		defer rows.Close()
		return scanner(rows)
	})
}

// RetryableQueryRow executes a single-row query with retry logic for
// transient failures. pgx.ErrNoRows is surfaced without retrying.
func RetryableQueryRow[T any](ctx context.Context, db Querier, query string, args []interface{}, scanner func(pgx.Row) (T, error)) (T, error) {
	return resilience.Retry(ctx, retryConfig(), "database.query_row", func(ctx context.Context) (T, error) {
		return scanner(db.QueryRow(ctx, query, args...))
	})
}

// isPostgresRetryable determines if a PostgreSQL error should be retried.
func isPostgresRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"53300", // too_many_connections
			"57P01", // admin_shutdown
			"57P03", // cannot_connect_now
			"08000", "08003", "08006": // connection_exception
			return true
		}
		// Constraint violations, data exceptions, syntax errors.
		return false
	}

	errMsg := strings.ToLower(err.Error())
	retryableMessages := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"timeout",
		"server closed",
		"unexpected eof",
	}
	for _, msg := range retryableMessages {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}
	return false
}

// Package db provides PostgreSQL access for profiles, skills, jobs and applications.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/farlance/internal/log"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("record already exists")

// ErrStatusChanged is returned when a conditional status update finds the row
// in a different state than expected.
var ErrStatusChanged = errors.New("status changed concurrently")

const uniqueViolation = "23505"

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// ConnectWithRetry calls Connect until it succeeds or attempts run out,
// backing off between tries. Used at startup while the database may still be
// coming up.
func ConnectWithRetry(ctx context.Context, databaseURL string, attempts uint, delay time.Duration) (*DB, error) {
	var database *DB
	attempt := 0

	err := retry.New(
		retry.RetryIf(func(error) bool {
			return ctx.Err() == nil
		}),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.MaxDelay(10*delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		attempt++
		d, err := Connect(ctx, databaseURL)
		if err != nil {
			log.Warn(ctx, "database not reachable", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return err
		}
		database = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return database, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks database reachability.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

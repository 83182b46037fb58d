// Package store persists extraction run history to Postgres. The
// database is optional: extraction runs fine without one, and the
// caller decides whether a missing DATABASE_URL is fatal.
package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool     *pgxpool.Pool
	poolOnce sync.Once
)

// Connect dials the shared connection pool from DATABASE_URL. Only the
// first call dials; later calls return the first outcome's error state.
func Connect(ctx context.Context) error {
	var err error
	poolOnce.Do(func() {
		url := os.Getenv("DATABASE_URL")
		if url == "" {
			err = fmt.Errorf("store: DATABASE_URL not set")
			return
		}

		cfg, parseErr := pgxpool.ParseConfig(url)
		if parseErr != nil {
			err = fmt.Errorf("store: parse DATABASE_URL: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, cfg)
	})
	return err
}

// Pool returns the shared pool, nil before Connect succeeds.
func Pool() *pgxpool.Pool {
	return pool
}

// Close releases the pool.
func Close() {
	if pool != nil {
		pool.Close()
	}
}

// Package pgdb wraps a database/sql connection pool for PostgreSQL, the
// same thin wrapper the teacher's internal/db/db.go provides, shared here
// across the job store's durable tier and the taxonomy's optional
// analytics mirror so both talk to one pool.
package pgdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps a *sql.DB connection pool for PostgreSQL.
type DB struct {
	Pool *sql.DB
}

// Open creates a new connection pool and verifies connectivity.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.Pool.Close()
}

// Migrate runs every schema's migration SQL. Each component below owns its
// own table set; migrations are idempotent (CREATE TABLE IF NOT EXISTS).
func (d *DB) Migrate(ctx context.Context, schemas ...string) error {
	for _, schema := range schemas {
		if _, err := d.Pool.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return nil
}

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the pgx pool behind the audit queries. Only alert events and
// video uploads live here; the schedule itself stays in memory with the MES
// as source of truth.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a pool against the history database.
func New(dsn string) (*DB, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}

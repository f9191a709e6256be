package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates and pings a new pgx connection pool.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// schema creates the deliveries table. The GiST expression indexes back the
// bounding-box range queries on pickup and current positions.
const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
    id                  TEXT PRIMARY KEY,
    order_id            TEXT NOT NULL UNIQUE,
    restaurant_id       TEXT NOT NULL,
    restaurant_owner_id TEXT NOT NULL,
    courier_id          TEXT NULL,
    pickup_lat          DOUBLE PRECISION NOT NULL,
    pickup_lng          DOUBLE PRECISION NOT NULL,
    drop_lat            DOUBLE PRECISION NOT NULL,
    drop_lng            DOUBLE PRECISION NOT NULL,
    current_lat         DOUBLE PRECISION NULL,
    current_lng         DOUBLE PRECISION NULL,
    status              TEXT NOT NULL,
    assigned            BOOLEAN NOT NULL DEFAULT FALSE,
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS deliveries_pickup_gist
    ON deliveries USING gist (point(pickup_lng, pickup_lat));
CREATE INDEX IF NOT EXISTS deliveries_current_gist
    ON deliveries USING gist (point(current_lng, current_lat))
    WHERE current_lat IS NOT NULL;
CREATE INDEX IF NOT EXISTS deliveries_status_idx ON deliveries (status);
CREATE INDEX IF NOT EXISTS deliveries_courier_idx ON deliveries (courier_id)
    WHERE courier_id IS NOT NULL;
`

// Migrate applies the schema; it is safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

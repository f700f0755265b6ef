package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterRepository hands out monotonically increasing sequence values for
// human-readable display ids.
type CounterRepository interface {
	Next(ctx context.Context, name string) (int, error)
}

type counterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository instantiates repository.
func NewCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &counterRepository{pool: pool}
}

func (r *counterRepository) Next(ctx context.Context, name string) (int, error) {
	const query = `
        INSERT INTO counters (name, value) VALUES ($1, 1)
        ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
        RETURNING value`
	var value int
	err := r.pool.QueryRow(ctx, query, name).Scan(&value)
	return value, err
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterRepository hands out per-organizer sequence numbers used in generated usernames.
type CounterRepository struct {
	base
}

// NewCounterRepository creates a new CounterRepository.
func NewCounterRepository(pool *pgxpool.Pool) *CounterRepository {
	return &CounterRepository{base{pool: pool}}
}

// Reserve atomically claims n consecutive values for the organizer and
// returns the first one. Values start at 1.
func (r *CounterRepository) Reserve(ctx context.Context, organizerID int64, n int) (int64, error) {
	var last int64
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO organizer_counters (owner_id, value) VALUES ($1, $2)
		 ON CONFLICT (owner_id) DO UPDATE SET value = organizer_counters.value + EXCLUDED.value
		 RETURNING value`,
		organizerID, n,
	).Scan(&last)
	if err != nil {
		return 0, err
	}
	return last - int64(n) + 1, nil
}

package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository allocates per-day monotonic sequences for tracking codes.
// Next must run inside the transaction that uses the allocated value so
// a rollback returns nothing visible (gaps are fine, duplicates are
// not).
type Repository interface {
	Next(ctx context.Context, tx pgx.Tx, prefix string, day time.Time) (int64, error)
}

type postgresRepo struct{}

func NewPostgres() Repository {
	return &postgresRepo{}
}

func (r *postgresRepo) Next(ctx context.Context, tx pgx.Tx, prefix string, day time.Time) (int64, error) {
	var seq int64
	if err := tx.QueryRow(ctx, `
INSERT INTO daily_sequences (prefix, day, last_value, updated_at)
VALUES ($1, $2, 1, now())
ON CONFLICT (prefix, day)
DO UPDATE SET last_value = daily_sequences.last_value + 1, updated_at = now()
RETURNING last_value
`, prefix, day.UTC().Format("2006-01-02")).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", prefix, err)
	}
	return seq, nil
}

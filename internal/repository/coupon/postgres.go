package coupon

import (
	"context"
	"errors"
	"io"
	"log"

	"shop-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	const q = `
SELECT id::text, code, description, discount_type, discount_value, start_date, end_date,
       is_active, min_order_amount, max_usage, usage_count
FROM coupons
WHERE code = $1
`
	var c domain.Coupon
	var kind string
	err := r.pool.QueryRow(ctx, q, code).Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&kind,
		&c.Value,
		&c.StartDate,
		&c.EndDate,
		&c.Active,
		&c.MinOrderAmount,
		&c.MaxUsage,
		&c.UsageCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("coupon repo: get code=%s error=%v", code, err)
		return nil, err
	}

	if c.Kind, err = domain.ParseDiscountKind(kind); err != nil {
		return nil, err
	}

	if c.ProductIDs, err = r.scopeSet(ctx, `SELECT product_id::text FROM coupon_products WHERE coupon_id = $1`, c.ID); err != nil {
		return nil, err
	}
	if c.CategoryIDs, err = r.scopeSet(ctx, `SELECT category_id::text FROM coupon_categories WHERE coupon_id = $1`, c.ID); err != nil {
		return nil, err
	}
	if c.UserIDs, err = r.scopeSet(ctx, `SELECT user_id FROM coupon_users WHERE coupon_id = $1`, c.ID); err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *postgresRepo) ConsumeUsage(ctx context.Context, tx pgx.Tx, code string) error {
	const q = `
UPDATE coupons
SET usage_count = usage_count + 1
WHERE code = $1 AND (max_usage IS NULL OR usage_count < max_usage)
`
	cmd, err := tx.Exec(ctx, q, code)
	if err != nil {
		r.logger.Printf("coupon repo: consume usage code=%s error=%v", code, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1)`, code).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		r.logger.Printf("coupon repo: consume usage code=%s cap exceeded", code)
		return domain.ErrUsageCapExceeded
	}
	return nil
}

func (r *postgresRepo) scopeSet(ctx context.Context, query, couponID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, couponID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

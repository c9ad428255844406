package order

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

func (r *postgresRepo) Create(ctx context.Context, tx pgx.Tx, in CreateOrderInput) (*domain.Order, error) {
	const q = `
INSERT INTO orders (user_id, tracking_code, status, total_amount, discount_amount, final_amount, coupon_code)
VALUES ($1, $2, 'pending', $3, $4, $5, $6)
RETURNING id::text, user_id, tracking_code, status, total_amount, discount_amount, final_amount, coupon_code, created_at, updated_at
`
	var o domain.Order
	if err := tx.QueryRow(ctx, q,
		in.UserID,
		in.TrackingCode,
		in.TotalAmount,
		in.DiscountAmount,
		in.FinalAmount,
		in.CouponCode,
	).Scan(
		&o.ID,
		&o.UserID,
		&o.TrackingCode,
		&o.Status,
		&o.TotalAmount,
		&o.DiscountAmount,
		&o.FinalAmount,
		&o.CouponCode,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		r.logger.Printf("order repo: create user_id=%s error=%v", in.UserID, err)
		return nil, err
	}

	const lineQ = `
INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id::text
`
	for _, line := range in.Lines {
		ol := domain.OrderLine{
			OrderID:   o.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		if err := tx.QueryRow(ctx, lineQ, o.ID, line.ProductID, line.Quantity, line.UnitPrice).Scan(&ol.ID); err != nil {
			r.logger.Printf("order repo: create line order_id=%s error=%v", o.ID, err)
			return nil, err
		}
		o.Lines = append(o.Lines, ol)
	}

	return &o, nil
}

func (r *postgresRepo) SetStatus(ctx context.Context, tx pgx.Tx, orderID string, status domain.OrderStatus) error {
	const q = `
UPDATE orders
SET status = $1, updated_at = now()
WHERE id = $2
`
	cmd, err := tx.Exec(ctx, q, string(status), orderID)
	if err != nil {
		r.logger.Printf("order repo: set status order_id=%s error=%v", orderID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetForUser(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	const q = `
SELECT id::text, user_id, tracking_code, status, total_amount, discount_amount, final_amount, coupon_code, created_at, updated_at
FROM orders
WHERE user_id = $1 AND id = $2
`
	var o domain.Order
	err := r.pool.QueryRow(ctx, q, userID, orderID).Scan(
		&o.ID,
		&o.UserID,
		&o.TrackingCode,
		&o.Status,
		&o.TotalAmount,
		&o.DiscountAmount,
		&o.FinalAmount,
		&o.CouponCode,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const linesQ = `
SELECT id::text, order_id::text, product_id::text, quantity, unit_price
FROM order_lines
WHERE order_id = $1
`
	rows, err := r.pool.Query(ctx, linesQ, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `
SELECT id::text, user_id, tracking_code, status, total_amount, discount_amount, final_amount, coupon_code, created_at, updated_at
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.Printf("order repo: list user_id=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.TrackingCode,
			&o.Status,
			&o.TotalAmount,
			&o.DiscountAmount,
			&o.FinalAmount,
			&o.CouponCode,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

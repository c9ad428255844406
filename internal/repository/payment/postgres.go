package payment

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

func (r *postgresRepo) Create(ctx context.Context, tx pgx.Tx, in CreatePaymentInput) (*domain.Payment, error) {
	const q = `
INSERT INTO payments (order_id, amount, method, status, tracking_code)
VALUES ($1, $2, $3, 'pending', $4)
RETURNING id::text, order_id::text, amount, method, status, COALESCE(authority, ''), ref_id, tracking_code, created_at
`
	var p domain.Payment
	if err := tx.QueryRow(ctx, q, in.OrderID, in.Amount, in.Method, in.TrackingCode).Scan(
		&p.ID,
		&p.OrderID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.Authority,
		&p.RefID,
		&p.TrackingCode,
		&p.CreatedAt,
	); err != nil {
		r.logger.Printf("payment repo: create order_id=%s error=%v", in.OrderID, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) SetAuthority(ctx context.Context, tx pgx.Tx, paymentID, authority string) error {
	cmd, err := tx.Exec(ctx, `UPDATE payments SET authority = $1 WHERE id = $2`, authority, paymentID)
	if err != nil {
		r.logger.Printf("payment repo: set authority payment_id=%s error=%v", paymentID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) GetByAuthorityForUpdate(ctx context.Context, tx pgx.Tx, authority string) (*domain.Payment, *domain.Order, error) {
	const q = `
SELECT p.id::text, p.order_id::text, p.amount, p.method, p.status, COALESCE(p.authority, ''), p.ref_id, p.tracking_code, p.created_at,
       o.id::text, o.user_id, o.tracking_code, o.status, o.total_amount, o.discount_amount, o.final_amount, o.coupon_code, o.created_at, o.updated_at
FROM payments p
JOIN orders o ON o.id = p.order_id
WHERE p.authority = $1
FOR UPDATE OF p, o
`
	var p domain.Payment
	var o domain.Order
	err := tx.QueryRow(ctx, q, authority).Scan(
		&p.ID,
		&p.OrderID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.Authority,
		&p.RefID,
		&p.TrackingCode,
		&p.CreatedAt,
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
			return nil, nil, domain.ErrNotFound
		}
		r.logger.Printf("payment repo: get by authority error=%v", err)
		return nil, nil, err
	}
	return &p, &o, nil
}

func (r *postgresRepo) MarkSuccess(ctx context.Context, tx pgx.Tx, paymentID, refID string) error {
	const q = `
UPDATE payments
SET status = 'success', ref_id = $1
WHERE id = $2 AND status = 'pending'
`
	cmd, err := tx.Exec(ctx, q, refID, paymentID)
	if err != nil {
		r.logger.Printf("payment repo: mark success payment_id=%s error=%v", paymentID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) MarkFailed(ctx context.Context, tx pgx.Tx, paymentID string) error {
	const q = `
UPDATE payments
SET status = 'failed'
WHERE id = $1 AND status = 'pending'
`
	cmd, err := tx.Exec(ctx, q, paymentID)
	if err != nil {
		r.logger.Printf("payment repo: mark failed payment_id=%s error=%v", paymentID, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	const q = `
SELECT p.id::text, p.order_id::text, p.amount, p.method, p.status, COALESCE(p.authority, ''), p.ref_id, p.tracking_code, p.created_at
FROM payments p
JOIN orders o ON o.id = p.order_id
WHERE o.user_id = $1
ORDER BY p.created_at DESC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.Printf("payment repo: list user_id=%s error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID,
			&p.OrderID,
			&p.Amount,
			&p.Method,
			&p.Status,
			&p.Authority,
			&p.RefID,
			&p.TrackingCode,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

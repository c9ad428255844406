package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"shop-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so snapshot
// reads can run inside or outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

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

func (r *postgresRepo) EnsureForUser(ctx context.Context, userID string) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING id::text, user_id, updated_at
`
	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&cart.ID, &cart.UserID, &cart.UpdatedAt); err != nil {
		r.logger.Printf("cart repo: ensure user_id=%s error=%v", userID, err)
		return nil, err
	}
	return &cart, nil
}

func (r *postgresRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	const q = `
SELECT id::text, user_id, updated_at
FROM carts
WHERE user_id = $1
`
	return r.fetchCart(ctx, r.pool, q, userID)
}

func (r *postgresRepo) SnapshotForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*domain.Cart, error) {
	const q = `
SELECT id::text, user_id, updated_at
FROM carts
WHERE user_id = $1
FOR UPDATE
`
	return r.fetchCart(ctx, tx, q, userID)
}

func (r *postgresRepo) LockByUser(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	const q = `
SELECT id::text
FROM carts
WHERE user_id = $1
FOR UPDATE
`
	var cartID string
	if err := tx.QueryRow(ctx, q, userID).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return cartID, nil
}

func (r *postgresRepo) Clear(ctx context.Context, tx pgx.Tx, cartID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		r.logger.Printf("cart repo: clear cart_id=%s error=%v", cartID, err)
		return err
	}
	return nil
}

func (r *postgresRepo) UpsertLine(ctx context.Context, userID, productID string, quantity int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var cartID string
	if err := tx.QueryRow(ctx, `SELECT id::text FROM carts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&cartID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	var stock int
	if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 AND is_available`, productID).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if quantity > stock {
		quantity = stock
	}

	if quantity <= 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1 AND product_id = $2`, cartID, productID); err != nil {
			return err
		}
	} else {
		const q = `
INSERT INTO cart_lines (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
`
		if _, err := tx.Exec(ctx, q, cartID, productID, quantity); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) fetchCart(ctx context.Context, q querier, cartQuery, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := q.QueryRow(ctx, cartQuery, userID).Scan(&cart.ID, &cart.UserID, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("cart repo: fetch user_id=%s error=%v", userID, err)
		return nil, err
	}

	// Unit price and category are read from the live product row here;
	// this is the consistent point in time the snapshot freezes.
	const linesQuery = `
SELECT cl.id::text, cl.cart_id::text, cl.product_id::text, p.name,
       COALESCE(p.category_id::text, ''), cl.quantity, p.price
FROM cart_lines cl
JOIN products p ON p.id = cl.product_id
WHERE cl.cart_id = $1
ORDER BY cl.created_at ASC
`
	rows, err := q.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ID,
			&line.CartID,
			&line.ProductID,
			&line.ProductName,
			&line.CategoryID,
			&line.Quantity,
			&line.UnitPrice,
		); err != nil {
			return nil, err
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}

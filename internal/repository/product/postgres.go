package product

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

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT id::text, COALESCE(category_id::text, ''), COALESCE(sku, ''), name, price, stock, is_available, created_at
FROM products
WHERE is_available
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.SKU, &p.Name, &p.Price, &p.Stock, &p.Available, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT id::text, COALESCE(category_id::text, ''), COALESCE(sku, ''), name, price, stock, is_available, created_at
FROM products
WHERE id = $1
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.CategoryID, &p.SKU, &p.Name, &p.Price, &p.Stock, &p.Available, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, in UpsertProductInput) (*domain.Product, error) {
	const q = `
INSERT INTO products (sku, name, category_id, price, stock)
VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)
ON CONFLICT (sku) DO UPDATE
SET name = EXCLUDED.name,
    category_id = EXCLUDED.category_id,
    price = EXCLUDED.price,
    stock = EXCLUDED.stock,
    updated_at = now()
RETURNING id::text, COALESCE(category_id::text, ''), COALESCE(sku, ''), name, price, stock, is_available, created_at
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, in.SKU, in.Name, in.CategoryID, in.Price, in.Stock).Scan(
		&p.ID, &p.CategoryID, &p.SKU, &p.Name, &p.Price, &p.Stock, &p.Available, &p.CreatedAt,
	)
	if err != nil {
		r.logger.Printf("product repo: upsert sku=%s error=%v", in.SKU, err)
		return nil, err
	}
	return &p, nil
}

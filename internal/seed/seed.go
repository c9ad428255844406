package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productSeed struct {
	SKU      string
	Name     string
	Category string
	Price    int64
	Stock    int
}

type couponSeed struct {
	Code           string
	Kind           string
	Value          int64
	MinOrderAmount int64
	MaxUsage       *int
}

// Apply inserts basic seed data for manual testing. It is idempotent
// via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	electronics, err := ensureCategory(ctx, pool, "Electronics", "electronics")
	if err != nil {
		return fmt.Errorf("ensure category: %w", err)
	}
	books, err := ensureCategory(ctx, pool, "Books", "books")
	if err != nil {
		return fmt.Errorf("ensure category: %w", err)
	}

	products := []productSeed{
		{SKU: "SKU-HEADPHONES", Name: "Wireless Headphones", Category: electronics, Price: 900, Stock: 25},
		{SKU: "SKU-KEYBOARD", Name: "Mechanical Keyboard", Category: electronics, Price: 1200, Stock: 10},
		{SKU: "SKU-NOVEL", Name: "Paperback Novel", Category: books, Price: 300, Stock: 40},
	}
	for _, p := range products {
		if err := upsertProduct(ctx, pool, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	once := 1
	coupons := []couponSeed{
		{Code: "OFF10", Kind: "percent", Value: 10},
		{Code: "OFF20", Kind: "percent", Value: 20, MinOrderAmount: 500},
		{Code: "FIX100", Kind: "fixed", Value: 100},
		{Code: "WELCOME", Kind: "percent", Value: 15, MaxUsage: &once},
	}
	for _, c := range coupons {
		if err := upsertCoupon(ctx, pool, c); err != nil {
			return fmt.Errorf("upsert coupon %s: %w", c.Code, err)
		}
	}

	// A demo user with a provisioned cart so a checkout can be tried
	// straight away.
	demoUser := "demo-" + uuid.NewString()[:8]
	if _, err := pool.Exec(ctx, `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, demoUser); err != nil {
		return fmt.Errorf("provision demo cart: %w", err)
	}

	return nil
}

func ensureCategory(ctx context.Context, pool *pgxpool.Pool, name, slug string) (string, error) {
	const q = `
INSERT INTO categories (name, slug)
VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text
`
	var id string
	if err := pool.QueryRow(ctx, q, name, slug).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, p productSeed) error {
	const q = `
INSERT INTO products (sku, name, category_id, price, stock)
VALUES ($1, $2, $3::uuid, $4, $5)
ON CONFLICT (sku) DO UPDATE
SET name = EXCLUDED.name,
    category_id = EXCLUDED.category_id,
    price = EXCLUDED.price,
    stock = EXCLUDED.stock
`
	_, err := pool.Exec(ctx, q, p.SKU, p.Name, p.Category, p.Price, p.Stock)
	return err
}

func upsertCoupon(ctx context.Context, pool *pgxpool.Pool, c couponSeed) error {
	const q = `
INSERT INTO coupons (code, discount_type, discount_value, start_date, min_order_amount, max_usage)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (code) DO UPDATE
SET discount_type = EXCLUDED.discount_type,
    discount_value = EXCLUDED.discount_value,
    min_order_amount = EXCLUDED.min_order_amount,
    max_usage = EXCLUDED.max_usage
`
	_, err := pool.Exec(ctx, q, c.Code, c.Kind, c.Value, time.Now().UTC(), c.MinOrderAmount, c.MaxUsage)
	return err
}

package product

import (
	"context"

	"shop-checkout/internal/domain"
)

type UpsertProductInput struct {
	SKU        string
	Name       string
	CategoryID string
	Price      int64
	Stock      int
}

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Upsert(ctx context.Context, in UpsertProductInput) (*domain.Product, error)
}

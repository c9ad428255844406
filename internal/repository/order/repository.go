package order

import (
	"context"

	"shop-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
)

type CreateOrderInput struct {
	UserID         string
	TrackingCode   string
	TotalAmount    int64
	DiscountAmount int64
	FinalAmount    int64
	CouponCode     *string
	Lines          []domain.CartLine
}

type Repository interface {
	// Create inserts the order and its frozen lines inside tx and
	// returns the persisted order.
	Create(ctx context.Context, tx pgx.Tx, in CreateOrderInput) (*domain.Order, error)

	// SetStatus moves the order to status inside tx.
	SetStatus(ctx context.Context, tx pgx.Tx, orderID string, status domain.OrderStatus) error

	// GetForUser loads one order with its lines, scoped to the owner.
	GetForUser(ctx context.Context, userID, orderID string) (*domain.Order, error)

	// ListByUser returns the user's orders, newest first, without lines.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

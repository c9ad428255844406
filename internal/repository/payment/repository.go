package payment

import (
	"context"

	"shop-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
)

type CreatePaymentInput struct {
	OrderID      string
	Amount       int64
	Method       string
	TrackingCode string
}

type Repository interface {
	// Create inserts a pending payment for the order inside tx.
	Create(ctx context.Context, tx pgx.Tx, in CreatePaymentInput) (*domain.Payment, error)

	// SetAuthority records the gateway authority token inside tx.
	SetAuthority(ctx context.Context, tx pgx.Tx, paymentID, authority string) error

	// GetByAuthorityForUpdate locks the payment row carrying the
	// authority token and returns it together with the owning order.
	// The lock is what makes duplicate callback deliveries safe.
	GetByAuthorityForUpdate(ctx context.Context, tx pgx.Tx, authority string) (*domain.Payment, *domain.Order, error)

	// MarkSuccess transitions pending->success and stores the gateway
	// reference id inside tx.
	MarkSuccess(ctx context.Context, tx pgx.Tx, paymentID, refID string) error

	// MarkFailed transitions pending->failed inside tx.
	MarkFailed(ctx context.Context, tx pgx.Tx, paymentID string) error

	// ListByUser returns payments on the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Payment, error)
}

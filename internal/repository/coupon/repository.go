package coupon

import (
	"context"

	"shop-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// GetByCode loads the coupon and its scope sets. Returns
	// domain.ErrNotFound when no coupon carries the code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// ConsumeUsage advances the usage counter by one inside tx. The
	// increment is a single conditional statement so concurrent
	// redemptions of the same coupon serialize on the row; it returns
	// domain.ErrUsageCapExceeded when the counter already sits at the
	// cap.
	ConsumeUsage(ctx context.Context, tx pgx.Tx, code string) error
}

package cart

import (
	"context"

	"shop-checkout/internal/domain"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// EnsureForUser provisions the user's cart if it does not exist
	// yet. Invoked by the identity collaborator on user creation.
	EnsureForUser(ctx context.Context, userID string) (*domain.Cart, error)

	// GetByUser reads the cart snapshot without locking.
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)

	// SnapshotForUpdate takes the row lock on the user's cart inside tx
	// and reads its lines with current unit prices. The lock is the
	// per-user exclusive scope serializing checkout and reconciliation.
	SnapshotForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*domain.Cart, error)

	// LockByUser takes the cart row lock inside tx and returns the cart
	// id without reading lines.
	LockByUser(ctx context.Context, tx pgx.Tx, userID string) (string, error)

	// Clear removes all lines from the cart inside tx.
	Clear(ctx context.Context, tx pgx.Tx, cartID string) error

	// UpsertLine adds or replaces a cart line, clamping quantity to the
	// product's available stock.
	UpsertLine(ctx context.Context, userID, productID string, quantity int) error
}

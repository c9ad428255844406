package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"shop-checkout/internal/domain"
	"shop-checkout/internal/gateway/zarinpal"
	orderrepo "shop-checkout/internal/repository/order"
	paymentrepo "shop-checkout/internal/repository/payment"
	"shop-checkout/internal/txn"

	"github.com/jackc/pgx/v5"
)

type Service struct {
	runner   txn.Runner
	carts    cartRepo
	coupons  couponEvaluator
	orders   orderRepo
	payments paymentRepo
	seqs     sequenceRepo
	gateway  paymentGateway
	logger   *log.Logger
	now      func() time.Time
}

type cartRepo interface {
	SnapshotForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*domain.Cart, error)
}

type couponEvaluator interface {
	Evaluate(ctx context.Context, userID, code string, cart *domain.Cart) (*domain.Discount, error)
}

type orderRepo interface {
	Create(ctx context.Context, tx pgx.Tx, in orderrepo.CreateOrderInput) (*domain.Order, error)
}

type paymentRepo interface {
	Create(ctx context.Context, tx pgx.Tx, in paymentrepo.CreatePaymentInput) (*domain.Payment, error)
	SetAuthority(ctx context.Context, tx pgx.Tx, paymentID, authority string) error
}

type sequenceRepo interface {
	Next(ctx context.Context, tx pgx.Tx, prefix string, day time.Time) (int64, error)
}

type paymentGateway interface {
	RequestAuthorization(ctx context.Context, amount int64, description, orderRef string) (*zarinpal.Authorization, error)
}

func New(runner txn.Runner, carts cartRepo, coupons couponEvaluator, orders orderRepo, payments paymentRepo, seqs sequenceRepo, gateway paymentGateway, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		runner:   runner,
		carts:    carts,
		coupons:  coupons,
		orders:   orders,
		payments: payments,
		seqs:     seqs,
		gateway:  gateway,
		logger:   logger,
		now:      time.Now,
	}
}

// Result is returned to the caller on a successful checkout; the
// customer must be redirected to RedirectURL to complete payment.
type Result struct {
	Order       *domain.Order   `json:"order"`
	Payment     *domain.Payment `json:"payment"`
	RedirectURL string          `json:"paymentUrl"`
}

// Checkout freezes the user's cart into an order with a pending payment
// and asks the gateway for an authorization. Everything runs inside one
// transaction holding the cart row lock, so two concurrent checkouts
// for the same user serialize; any failure, including a gateway refusal
// or timeout, rolls the whole assembly back. The cart itself is cleared
// only later, on confirmed payment.
func (s *Service) Checkout(ctx context.Context, userID, couponCode string) (*Result, error) {
	var result Result
	err := s.runner.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		cart, err := s.carts.SnapshotForUpdate(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrEmptyCart
			}
			return err
		}
		if cart.Empty() {
			return domain.ErrEmptyCart
		}

		total := cart.Subtotal()
		var discountAmount int64
		var coupon *string
		if couponCode != "" {
			discount, err := s.coupons.Evaluate(ctx, userID, couponCode, cart)
			if err != nil {
				return err
			}
			discountAmount = discount.Amount
			coupon = &couponCode
		}
		final := total - discountAmount
		if final < 0 {
			final = 0
		}

		day := s.now().UTC()
		orderCode, err := s.trackingCode(ctx, tx, "ORD", day)
		if err != nil {
			return err
		}

		order, err := s.orders.Create(ctx, tx, orderrepo.CreateOrderInput{
			UserID:         userID,
			TrackingCode:   orderCode,
			TotalAmount:    total,
			DiscountAmount: discountAmount,
			FinalAmount:    final,
			CouponCode:     coupon,
			Lines:          cart.Lines,
		})
		if err != nil {
			return err
		}

		paymentCode, err := s.trackingCode(ctx, tx, "PAY", day)
		if err != nil {
			return err
		}
		payment, err := s.payments.Create(ctx, tx, paymentrepo.CreatePaymentInput{
			OrderID:      order.ID,
			Amount:       final,
			Method:       "card",
			TrackingCode: paymentCode,
		})
		if err != nil {
			return err
		}

		auth, err := s.gateway.RequestAuthorization(ctx, final, "Payment for order "+order.TrackingCode, order.ID)
		if err != nil {
			s.logger.Printf("checkout: payment initiation order=%s error=%v", order.TrackingCode, err)
			return err
		}
		if err := s.payments.SetAuthority(ctx, tx, payment.ID, auth.Authority); err != nil {
			return err
		}
		payment.Authority = auth.Authority

		result = Result{Order: order, Payment: payment, RedirectURL: auth.RedirectURL}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("checkout: order %s created for user %s amount=%d", result.Order.TrackingCode, userID, result.Order.FinalAmount)
	return &result, nil
}

// trackingCode allocates the next code for prefix and day, e.g.
// ORD-20250115-003. Uniqueness comes from the sequence row being
// advanced inside the calling transaction.
func (s *Service) trackingCode(ctx context.Context, tx pgx.Tx, prefix string, day time.Time) (string, error) {
	seq, err := s.seqs.Next(ctx, tx, prefix, day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, day.Format("20060102"), seq), nil
}

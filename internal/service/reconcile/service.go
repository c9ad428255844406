package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"shop-checkout/internal/domain"
	"shop-checkout/internal/gateway/zarinpal"
	"shop-checkout/internal/notify"
	"shop-checkout/internal/txn"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	runner   txn.Runner
	payments paymentRepo
	orders   orderRepo
	carts    cartRepo
	coupons  couponRepo
	gateway  paymentVerifier
	notifier notify.Notifier
	logger   *log.Logger
}

type paymentRepo interface {
	GetByAuthorityForUpdate(ctx context.Context, tx pgx.Tx, authority string) (*domain.Payment, *domain.Order, error)
	MarkSuccess(ctx context.Context, tx pgx.Tx, paymentID, refID string) error
	MarkFailed(ctx context.Context, tx pgx.Tx, paymentID string) error
}

type orderRepo interface {
	SetStatus(ctx context.Context, tx pgx.Tx, orderID string, status domain.OrderStatus) error
}

type cartRepo interface {
	LockByUser(ctx context.Context, tx pgx.Tx, userID string) (string, error)
	Clear(ctx context.Context, tx pgx.Tx, cartID string) error
}

type couponRepo interface {
	ConsumeUsage(ctx context.Context, tx pgx.Tx, code string) error
}

type paymentVerifier interface {
	VerifyAuthorization(ctx context.Context, authority string, amount int64) (*zarinpal.Verification, error)
}

func New(runner txn.Runner, payments paymentRepo, orders orderRepo, carts cartRepo, coupons couponRepo, gateway paymentVerifier, notifier notify.Notifier, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		runner:   runner,
		payments: payments,
		orders:   orders,
		carts:    carts,
		coupons:  coupons,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
	}
}

// Result reports the terminal state a callback settled on. Duplicate is
// true when an earlier delivery already resolved the payment and this
// call changed nothing.
type Result struct {
	Status       domain.PaymentStatus `json:"status"`
	RefID        string               `json:"refId,omitempty"`
	OrderID      string               `json:"orderId"`
	TrackingCode string               `json:"trackingCode"`
	Duplicate    bool                 `json:"-"`
}

// Process applies the gateway's verdict for one authority token exactly
// once. The payment row lock taken at the start totally orders
// concurrent deliveries of the same callback: whichever transaction
// wins performs the transition, every later one observes a resolved
// payment and returns the recorded outcome untouched. canceled marks an
// explicit gateway cancellation (Status=NOK); no verify call is made
// for those. A transport failure during verify aborts the transaction
// with the payment still pending, so the gateway's redelivery can
// retry.
func (s *Service) Process(ctx context.Context, authority string, canceled bool) (*Result, error) {
	var result Result
	var userID string
	err := s.runner.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		payment, order, err := s.payments.GetByAuthorityForUpdate(ctx, tx, authority)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInvalidPayment
			}
			return err
		}
		userID = order.UserID
		result = Result{OrderID: order.ID, TrackingCode: order.TrackingCode}

		if payment.Status.Resolved() {
			result.Status = payment.Status
			result.RefID = payment.RefID
			result.Duplicate = true
			s.logger.Printf("reconcile: duplicate delivery authority=%s status=%s", authority, payment.Status)
			return nil
		}

		if canceled {
			result.Status = domain.PaymentFailed
			return s.fail(ctx, tx, payment, order)
		}

		verification, err := s.gateway.VerifyAuthorization(ctx, authority, payment.Amount)
		if err != nil {
			return err
		}
		if !verification.OK {
			result.Status = domain.PaymentFailed
			return s.fail(ctx, tx, payment, order)
		}

		if err := s.payments.MarkSuccess(ctx, tx, payment.ID, verification.RefID); err != nil {
			return err
		}
		if err := s.orders.SetStatus(ctx, tx, order.ID, domain.OrderPaid); err != nil {
			return err
		}
		if err := s.clearCart(ctx, tx, order.UserID); err != nil {
			return err
		}
		if order.DiscountAmount > 0 && order.CouponCode != nil {
			if err := s.consumeCoupon(ctx, tx, *order.CouponCode); err != nil {
				return err
			}
		}

		result.Status = domain.PaymentSuccess
		result.RefID = verification.RefID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Duplicate {
		s.dispatch(userID, &result)
	}
	return &result, nil
}

func (s *Service) fail(ctx context.Context, tx pgx.Tx, payment *domain.Payment, order *domain.Order) error {
	if err := s.payments.MarkFailed(ctx, tx, payment.ID); err != nil {
		return err
	}
	return s.orders.SetStatus(ctx, tx, order.ID, domain.OrderCanceled)
}

func (s *Service) clearCart(ctx context.Context, tx pgx.Tx, userID string) error {
	cartID, err := s.carts.LockByUser(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("reconcile: no cart to clear user=%s", userID)
			return nil
		}
		return err
	}
	return s.carts.Clear(ctx, tx, cartID)
}

// consumeCoupon re-checks the usage cap under the row lock; overrunning
// the cap here means the order-time check was raced past, which is an
// invariant violation and aborts the whole transition.
func (s *Service) consumeCoupon(ctx context.Context, tx pgx.Tx, code string) error {
	err := s.coupons.ConsumeUsage(ctx, tx, code)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Printf("reconcile: coupon %s no longer exists, usage not recorded", code)
		return nil
	}
	if errors.Is(err, domain.ErrUsageCapExceeded) {
		s.logger.Printf("reconcile: coupon %s usage cap exceeded, aborting transition", code)
	}
	return err
}

func (s *Service) dispatch(userID string, result *Result) {
	if s.notifier == nil {
		return
	}
	msg := notify.Message{
		ID:      uuid.NewString(),
		UserID:  userID,
		Subject: fmt.Sprintf("Order %s payment %s", result.TrackingCode, result.Status),
		Body:    fmt.Sprintf("Payment for order %s finished with status %s.", result.TrackingCode, result.Status),
	}
	go func() {
		if err := s.notifier.Notify(context.Background(), msg); err != nil {
			s.logger.Printf("reconcile: notify user=%s error=%v", userID, err)
		}
	}()
}

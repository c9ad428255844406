package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-checkout/internal/domain"
	"shop-checkout/internal/gateway/zarinpal"
	"shop-checkout/internal/notify"

	"github.com/jackc/pgx/v5"
)

type fakeRunner struct {
	commits   int
	rollbacks int
}

func (r *fakeRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if err := fn(ctx, nil); err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

type stubPaymentRepo struct {
	payment *domain.Payment
	order   *domain.Order
	err     error

	successes []string
	failures  []string
	refID     string
}

func (s *stubPaymentRepo) GetByAuthorityForUpdate(_ context.Context, _ pgx.Tx, _ string) (*domain.Payment, *domain.Order, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.payment, s.order, nil
}

func (s *stubPaymentRepo) MarkSuccess(_ context.Context, _ pgx.Tx, paymentID, refID string) error {
	s.successes = append(s.successes, paymentID)
	s.refID = refID
	s.payment.Status = domain.PaymentSuccess
	s.payment.RefID = refID
	return nil
}

func (s *stubPaymentRepo) MarkFailed(_ context.Context, _ pgx.Tx, paymentID string) error {
	s.failures = append(s.failures, paymentID)
	s.payment.Status = domain.PaymentFailed
	return nil
}

type stubOrderRepo struct {
	statuses map[string]domain.OrderStatus
}

func (s *stubOrderRepo) SetStatus(_ context.Context, _ pgx.Tx, orderID string, status domain.OrderStatus) error {
	if s.statuses == nil {
		s.statuses = map[string]domain.OrderStatus{}
	}
	s.statuses[orderID] = status
	return nil
}

type stubCartRepo struct {
	cartID   string
	lockErr  error
	clearIDs []string
}

func (s *stubCartRepo) LockByUser(_ context.Context, _ pgx.Tx, _ string) (string, error) {
	if s.lockErr != nil {
		return "", s.lockErr
	}
	return s.cartID, nil
}

func (s *stubCartRepo) Clear(_ context.Context, _ pgx.Tx, cartID string) error {
	s.clearIDs = append(s.clearIDs, cartID)
	return nil
}

type stubCouponRepo struct {
	err      error
	consumed []string
}

func (s *stubCouponRepo) ConsumeUsage(_ context.Context, _ pgx.Tx, code string) error {
	if s.err != nil {
		return s.err
	}
	s.consumed = append(s.consumed, code)
	return nil
}

type stubVerifier struct {
	verification *zarinpal.Verification
	err          error
	calls        int
	lastAmount   int64
}

func (s *stubVerifier) VerifyAuthorization(_ context.Context, _ string, amount int64) (*zarinpal.Verification, error) {
	s.calls++
	s.lastAmount = amount
	return s.verification, s.err
}

type channelNotifier struct {
	sent chan notify.Message
}

func (n *channelNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.sent <- msg
	return nil
}

type fixture struct {
	runner   *fakeRunner
	payments *stubPaymentRepo
	orders   *stubOrderRepo
	carts    *stubCartRepo
	coupons  *stubCouponRepo
	verifier *stubVerifier
	svc      *Service
}

func newFixture(payment *domain.Payment, order *domain.Order) *fixture {
	f := &fixture{
		runner:   &fakeRunner{},
		payments: &stubPaymentRepo{payment: payment, order: order},
		orders:   &stubOrderRepo{},
		carts:    &stubCartRepo{cartID: "cart-1"},
		coupons:  &stubCouponRepo{},
		verifier: &stubVerifier{},
	}
	f.svc = New(f.runner, f.payments, f.orders, f.carts, f.coupons, f.verifier, nil, nil)
	return f
}

func pendingPayment() *domain.Payment {
	return &domain.Payment{ID: "payment-1", OrderID: "order-1", Amount: 1620, Status: domain.PaymentPending, Authority: "A-1"}
}

func pendingOrder() *domain.Order {
	code := "OFF10"
	return &domain.Order{
		ID:             "order-1",
		UserID:         "u1",
		TrackingCode:   "ORD-20250615-001",
		Status:         domain.OrderPending,
		TotalAmount:    1800,
		DiscountAmount: 180,
		FinalAmount:    1620,
		CouponCode:     &code,
	}
}

func TestProcessUnknownAuthority(t *testing.T) {
	f := newFixture(nil, nil)
	f.payments.err = domain.ErrNotFound

	_, err := f.svc.Process(context.Background(), "bogus", false)
	if !errors.Is(err, domain.ErrInvalidPayment) {
		t.Fatalf("expected invalid payment, got %v", err)
	}
	if f.verifier.calls != 0 {
		t.Fatalf("no verify call for unknown authority")
	}
}

func TestProcessSuccess(t *testing.T) {
	f := newFixture(pendingPayment(), pendingOrder())
	f.verifier.verification = &zarinpal.Verification{OK: true, RefID: "ref-42"}

	result, err := f.svc.Process(context.Background(), "A-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.PaymentSuccess || result.RefID != "ref-42" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if f.verifier.lastAmount != 1620 {
		t.Fatalf("verify must use the payment amount, got %d", f.verifier.lastAmount)
	}
	if len(f.payments.successes) != 1 || f.payments.refID != "ref-42" {
		t.Fatalf("payment not marked success: %+v", f.payments)
	}
	if f.orders.statuses["order-1"] != domain.OrderPaid {
		t.Fatalf("order must be paid, got %s", f.orders.statuses["order-1"])
	}
	if len(f.carts.clearIDs) != 1 || f.carts.clearIDs[0] != "cart-1" {
		t.Fatalf("cart not cleared: %v", f.carts.clearIDs)
	}
	if len(f.coupons.consumed) != 1 || f.coupons.consumed[0] != "OFF10" {
		t.Fatalf("coupon usage must be consumed once: %v", f.coupons.consumed)
	}
	if f.runner.commits != 1 {
		t.Fatalf("expected one commit, got %d", f.runner.commits)
	}
}

func TestProcessSuccessWithoutCoupon(t *testing.T) {
	order := pendingOrder()
	order.DiscountAmount = 0
	order.CouponCode = nil
	f := newFixture(pendingPayment(), order)
	f.verifier.verification = &zarinpal.Verification{OK: true, RefID: "ref-1"}

	if _, err := f.svc.Process(context.Background(), "A-1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.coupons.consumed) != 0 {
		t.Fatalf("no coupon to consume, got %v", f.coupons.consumed)
	}
}

func TestProcessCanceledSkipsVerify(t *testing.T) {
	f := newFixture(pendingPayment(), pendingOrder())

	result, err := f.svc.Process(context.Background(), "A-1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.PaymentFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if f.verifier.calls != 0 {
		t.Fatalf("cancellation must not hit the gateway")
	}
	if len(f.payments.failures) != 1 {
		t.Fatalf("payment not marked failed")
	}
	if f.orders.statuses["order-1"] != domain.OrderCanceled {
		t.Fatalf("order must be canceled, got %s", f.orders.statuses["order-1"])
	}
	if len(f.carts.clearIDs) != 0 {
		t.Fatalf("cart must survive a failed payment")
	}
}

func TestProcessVerifyRefused(t *testing.T) {
	f := newFixture(pendingPayment(), pendingOrder())
	f.verifier.verification = &zarinpal.Verification{OK: false}

	result, err := f.svc.Process(context.Background(), "A-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.PaymentFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if f.orders.statuses["order-1"] != domain.OrderCanceled {
		t.Fatalf("order must be canceled")
	}
	if len(f.coupons.consumed) != 0 {
		t.Fatalf("failed payment must not consume coupon usage")
	}
}

func TestProcessTransportErrorLeavesPending(t *testing.T) {
	f := newFixture(pendingPayment(), pendingOrder())
	f.verifier.err = domain.ErrGatewayUnavailable

	_, err := f.svc.Process(context.Background(), "A-1", false)
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway unavailable, got %v", err)
	}
	if f.runner.rollbacks != 1 {
		t.Fatalf("transport error must roll back, rollbacks=%d", f.runner.rollbacks)
	}
	if f.payments.payment.Status != domain.PaymentPending {
		t.Fatalf("payment must stay pending for redelivery, got %s", f.payments.payment.Status)
	}
	if len(f.payments.failures) != 0 {
		t.Fatalf("payment must not be marked failed")
	}
}

func TestProcessDuplicateDelivery(t *testing.T) {
	payment := pendingPayment()
	payment.Status = domain.PaymentSuccess
	payment.RefID = "ref-42"
	f := newFixture(payment, pendingOrder())

	result, err := f.svc.Process(context.Background(), "A-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Duplicate {
		t.Fatalf("expected duplicate flag")
	}
	if result.Status != domain.PaymentSuccess || result.RefID != "ref-42" {
		t.Fatalf("duplicate must return the recorded outcome: %+v", result)
	}
	if f.verifier.calls != 0 {
		t.Fatalf("duplicate must not hit the gateway")
	}
	if len(f.payments.successes) != 0 || len(f.coupons.consumed) != 0 || len(f.carts.clearIDs) != 0 {
		t.Fatalf("duplicate must not mutate anything")
	}
}

func TestProcessSameCallbackTwice(t *testing.T) {
	f := newFixture(pendingPayment(), pendingOrder())
	f.verifier.verification = &zarinpal.Verification{OK: true, RefID: "ref-9"}

	first, err := f.svc.Process(context.Background(), "A-1", false)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	second, err := f.svc.Process(context.Background(), "A-1", false)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if first.Duplicate || !second.Duplicate {
		t.Fatalf("only the second delivery is a duplicate")
	}
	if second.RefID != first.RefID {
		t.Fatalf("second delivery must report the recorded ref id")
	}
	if f.verifier.calls != 1 || len(f.coupons.consumed) != 1 {
		t.Fatalf("verify and usage happen exactly once: calls=%d consumed=%v", f.verifier.calls, f.coupons.consumed)
	}
}

func TestProcessMissingCartIgnored(t *testing.T) {
	f := newFixture(pendingPayment(), pendingOrder())
	f.verifier.verification = &zarinpal.Verification{OK: true, RefID: "ref-1"}
	f.carts.lockErr = domain.ErrNotFound

	if _, err := f.svc.Process(context.Background(), "A-1", false); err != nil {
		t.Fatalf("missing cart must not fail the transition: %v", err)
	}
}

func TestProcessUsageCapExceededAborts(t *testing.T) {
	f := newFixture(pendingPayment(), pendingOrder())
	f.verifier.verification = &zarinpal.Verification{OK: true, RefID: "ref-1"}
	f.coupons.err = domain.ErrUsageCapExceeded

	_, err := f.svc.Process(context.Background(), "A-1", false)
	if !errors.Is(err, domain.ErrUsageCapExceeded) {
		t.Fatalf("expected usage cap exceeded, got %v", err)
	}
	if f.runner.rollbacks != 1 {
		t.Fatalf("cap overrun must roll back the whole transition")
	}
}

func TestProcessNotifiesAfterCommit(t *testing.T) {
	f := newFixture(pendingPayment(), pendingOrder())
	f.verifier.verification = &zarinpal.Verification{OK: true, RefID: "ref-7"}
	notifier := &channelNotifier{sent: make(chan notify.Message, 1)}
	f.svc.notifier = notifier

	if _, err := f.svc.Process(context.Background(), "A-1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-notifier.sent:
		if msg.UserID != "u1" {
			t.Fatalf("notification for wrong user: %+v", msg)
		}
		if msg.ID == "" {
			t.Fatalf("notification must carry a message id")
		}
	case <-time.After(time.Second):
		t.Fatal("notification not dispatched")
	}
}

func TestProcessDuplicateSkipsNotification(t *testing.T) {
	payment := pendingPayment()
	payment.Status = domain.PaymentFailed
	f := newFixture(payment, pendingOrder())
	notifier := &channelNotifier{sent: make(chan notify.Message, 1)}
	f.svc.notifier = notifier

	if _, err := f.svc.Process(context.Background(), "A-1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-notifier.sent:
		t.Fatalf("duplicate must not notify, got %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

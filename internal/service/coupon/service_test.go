package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"shop-checkout/internal/domain"
)

type stubRepo struct {
	coupon *domain.Coupon
	err    error
}

func (s *stubRepo) GetByCode(_ context.Context, _ string) (*domain.Coupon, error) {
	return s.coupon, s.err
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newService(c *domain.Coupon, err error) *Service {
	return &Service{repo: &stubRepo{coupon: c, err: err}, now: fixedNow}
}

func validCoupon() *domain.Coupon {
	return &domain.Coupon{
		ID:        "cp1",
		Code:      "OFF20",
		Kind:      domain.DiscountPercent,
		Value:     20,
		StartDate: fixedNow().Add(-24 * time.Hour),
		Active:    true,
	}
}

func cartWith(lines ...domain.CartLine) *domain.Cart {
	return &domain.Cart{ID: "cart1", UserID: "u1", Lines: lines}
}

func line(productID, categoryID string, qty int, price int64) domain.CartLine {
	return domain.CartLine{ProductID: productID, CategoryID: categoryID, Quantity: qty, UnitPrice: price}
}

func TestEvaluateCouponNotFound(t *testing.T) {
	svc := newService(nil, domain.ErrNotFound)
	_, err := svc.Evaluate(context.Background(), "u1", "NOPE", cartWith(line("p1", "c1", 1, 800)))
	if !errors.Is(err, domain.ErrCouponNotFound) {
		t.Fatalf("expected coupon not found, got %v", err)
	}
}

func TestEvaluateRepoError(t *testing.T) {
	svc := newService(nil, errors.New("boom"))
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 800)))
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestEvaluateInactive(t *testing.T) {
	c := validCoupon()
	c.Active = false
	svc := newService(c, nil)
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 800)))
	if !errors.Is(err, domain.ErrCouponInactive) {
		t.Fatalf("expected inactive, got %v", err)
	}
}

func TestEvaluateNotStartedYet(t *testing.T) {
	c := validCoupon()
	c.StartDate = fixedNow().Add(time.Hour)
	svc := newService(c, nil)
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 800)))
	if !errors.Is(err, domain.ErrCouponExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestEvaluatePastEndDate(t *testing.T) {
	c := validCoupon()
	end := fixedNow().Add(-time.Minute)
	c.EndDate = &end
	svc := newService(c, nil)
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 800)))
	if !errors.Is(err, domain.ErrCouponExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestEvaluateExhausted(t *testing.T) {
	c := validCoupon()
	limit := 1
	c.MaxUsage = &limit
	c.UsageCount = 1
	svc := newService(c, nil)
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 800)))
	if !errors.Is(err, domain.ErrCouponExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
}

func TestEvaluateEmptyCart(t *testing.T) {
	svc := newService(validCoupon(), nil)
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith())
	if !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected empty cart, got %v", err)
	}
}

func TestEvaluateBelowMinimum(t *testing.T) {
	c := validCoupon()
	c.MinOrderAmount = 5000
	svc := newService(c, nil)
	for _, subtotal := range []int64{1, 800, 4999} {
		_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, subtotal)))
		if !errors.Is(err, domain.ErrBelowMinimum) {
			t.Fatalf("subtotal %d: expected below minimum, got %v", subtotal, err)
		}
	}
}

func TestEvaluateProductScopeMismatch(t *testing.T) {
	c := validCoupon()
	c.ProductIDs = []string{"p1"}
	svc := newService(c, nil)
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 400), line("p2", "c1", 1, 400)))
	if !errors.Is(err, domain.ErrCouponProductScope) {
		t.Fatalf("expected product scope mismatch, got %v", err)
	}
}

func TestEvaluateCategoryScopeMismatch(t *testing.T) {
	c := validCoupon()
	c.CategoryIDs = []string{"c1"}
	svc := newService(c, nil)
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 400), line("p2", "c2", 1, 400)))
	if !errors.Is(err, domain.ErrCouponCategoryScope) {
		t.Fatalf("expected category scope mismatch, got %v", err)
	}
}

func TestEvaluateUserScopeMismatch(t *testing.T) {
	c := validCoupon()
	c.UserIDs = []string{"someone-else"}
	svc := newService(c, nil)
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 800)))
	if !errors.Is(err, domain.ErrCouponUserScope) {
		t.Fatalf("expected user scope mismatch, got %v", err)
	}
}

func TestEvaluateScopedCouponMatches(t *testing.T) {
	c := validCoupon()
	c.ProductIDs = []string{"p1", "p2"}
	c.CategoryIDs = []string{"c1"}
	c.UserIDs = []string{"u1"}
	svc := newService(c, nil)
	d, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 400), line("p2", "c1", 1, 400)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.FinalAmount != 640 {
		t.Fatalf("expected final 640, got %d", d.FinalAmount)
	}
}

func TestEvaluateInactiveWinsOverEmptyCart(t *testing.T) {
	c := validCoupon()
	c.Active = false
	svc := newService(c, nil)
	_, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith())
	if !errors.Is(err, domain.ErrCouponInactive) {
		t.Fatalf("expected inactive to win, got %v", err)
	}
}

func TestEvaluatePercentDiscount(t *testing.T) {
	svc := newService(validCoupon(), nil)
	d, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 2, 400)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.CartAmount != 800 || d.Amount != 160 || d.FinalAmount != 640 {
		t.Fatalf("unexpected discount: %+v", d)
	}
}

func TestEvaluatePercentTruncatesTowardZero(t *testing.T) {
	svc := newService(validCoupon(), nil)
	d, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 999)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 999 * 0.8 = 799.2, truncated to 799.
	if d.FinalAmount != 799 || d.Amount != 200 {
		t.Fatalf("unexpected discount: %+v", d)
	}
}

func TestEvaluateFixedDiscount(t *testing.T) {
	c := validCoupon()
	c.Code = "FIX100"
	c.Kind = domain.DiscountFixed
	c.Value = 100
	svc := newService(c, nil)
	d, err := svc.Evaluate(context.Background(), "u1", "FIX100", cartWith(line("p1", "c1", 1, 1000)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.FinalAmount != 900 || d.Amount != 100 {
		t.Fatalf("unexpected discount: %+v", d)
	}
}

func TestEvaluateFixedDiscountFloorsAtZero(t *testing.T) {
	c := validCoupon()
	c.Kind = domain.DiscountFixed
	c.Value = 1000
	svc := newService(c, nil)
	d, err := svc.Evaluate(context.Background(), "u1", "OFF20", cartWith(line("p1", "c1", 1, 300)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.FinalAmount != 0 || d.Amount != 300 {
		t.Fatalf("unexpected discount: %+v", d)
	}
}

package coupon

import (
	"context"
	"errors"
	"time"

	"shop-checkout/internal/domain"
	couponrepo "shop-checkout/internal/repository/coupon"
)

type Service struct {
	repo couponRepo
	now  func() time.Time
}

type couponRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

func New(repo couponrepo.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Evaluate validates code against the cart snapshot and computes the
// discount. It is read-only: the usage counter is consumed later, at
// reconciliation, never here. Checks run in a fixed order and the first
// failure wins.
func (s *Service) Evaluate(ctx context.Context, userID, code string, cart *domain.Cart) (*domain.Discount, error) {
	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, err
	}

	if !coupon.Active {
		return nil, domain.ErrCouponInactive
	}

	now := s.now().UTC()
	if now.Before(coupon.StartDate) {
		return nil, domain.ErrCouponExpired
	}
	if coupon.EndDate != nil && now.After(*coupon.EndDate) {
		return nil, domain.ErrCouponExpired
	}

	if coupon.MaxUsage != nil && coupon.UsageCount >= *coupon.MaxUsage {
		return nil, domain.ErrCouponExhausted
	}

	if cart.Empty() {
		return nil, domain.ErrEmptyCart
	}

	subtotal := cart.Subtotal()
	if subtotal < coupon.MinOrderAmount {
		return nil, domain.ErrBelowMinimum
	}

	if len(coupon.ProductIDs) > 0 {
		scope := toSet(coupon.ProductIDs)
		for _, line := range cart.Lines {
			if !scope[line.ProductID] {
				return nil, domain.ErrCouponProductScope
			}
		}
	}

	if len(coupon.CategoryIDs) > 0 {
		scope := toSet(coupon.CategoryIDs)
		for _, line := range cart.Lines {
			if !scope[line.CategoryID] {
				return nil, domain.ErrCouponCategoryScope
			}
		}
	}

	if len(coupon.UserIDs) > 0 {
		if !toSet(coupon.UserIDs)[userID] {
			return nil, domain.ErrCouponUserScope
		}
	}

	final := applyDiscount(coupon.Kind, coupon.Value, subtotal)
	return &domain.Discount{
		Code:        coupon.Code,
		Kind:        coupon.Kind,
		Value:       coupon.Value,
		Amount:      subtotal - final,
		CartAmount:  subtotal,
		FinalAmount: final,
	}, nil
}

// applyDiscount works entirely in integer minor currency units. The
// percentage result is truncated toward zero; a fixed discount never
// drops the total below zero.
func applyDiscount(kind domain.DiscountKind, value, subtotal int64) int64 {
	var final int64
	switch kind {
	case domain.DiscountPercent:
		final = subtotal * (100 - value) / 100
	case domain.DiscountFixed:
		final = subtotal - value
	}
	if final < 0 {
		final = 0
	}
	return final
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

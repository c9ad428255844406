package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// Coupon evaluation rejections, in validation order. These are
	// returned synchronously and never retried.
	ErrCouponNotFound      = errors.New("invalid coupon code")
	ErrCouponInactive      = errors.New("coupon is not active")
	ErrCouponExpired       = errors.New("coupon expired or not valid yet")
	ErrCouponExhausted     = errors.New("coupon usage limit reached")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrBelowMinimum        = errors.New("cart amount less than minimum amount required for this coupon")
	ErrCouponProductScope  = errors.New("coupon does not apply to products in the order")
	ErrCouponCategoryScope = errors.New("coupon does not apply to categories of products in the order")
	ErrCouponUserScope     = errors.New("coupon does not apply to this user")

	// ErrPaymentInitiation means the gateway refused to issue an
	// authority token; the whole checkout rolls back.
	ErrPaymentInitiation = errors.New("failed to initiate payment")

	// ErrInvalidPayment means a callback referenced an authority token
	// no payment row carries. No state changes.
	ErrInvalidPayment = errors.New("invalid payment")

	// ErrGatewayUnavailable is a transport-level gateway failure,
	// distinct from a business rejection. Safe to retry.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrUsageCapExceeded is an invariant violation: consuming a coupon
	// usage would push the counter past its cap.
	ErrUsageCapExceeded = errors.New("coupon usage cap exceeded")
)

// Rejection reports whether err is a coupon/cart validation rejection
// rather than an infrastructure failure.
func Rejection(err error) bool {
	for _, rejection := range []error{
		ErrCouponNotFound,
		ErrCouponInactive,
		ErrCouponExpired,
		ErrCouponExhausted,
		ErrEmptyCart,
		ErrBelowMinimum,
		ErrCouponProductScope,
		ErrCouponCategoryScope,
		ErrCouponUserScope,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}

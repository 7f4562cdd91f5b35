package domain

import "time"

// CheckoutContext is the explicit per-checkout state that used to live in
// ambient session fields: the coupon overlay applied to the current cart.
// It never mutates the cart's own totals, so removing the coupon is just
// clearing the context. Persisted only for the duration of one checkout.
type CheckoutContext struct {
	UserID         uint
	CouponID       uint
	DiscountAmount int64
	PayableAmount  int64
	AppliedAt      time.Time
}

package domain

import (
	"regexp"
	"time"

	"settlement/pkg/errors"
)

// OfferType selects the coupon discount rule.
type OfferType string

const (
	OfferPercentage OfferType = "percentage"
	OfferFlat       OfferType = "flat"
)

var couponCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// Coupon is a cart-level discount with a validity window and a minimum
// cart price threshold. Exactly one of OfferPercentage/FlatOffer is set,
// matching the offer type.
type Coupon struct {
	ID              uint
	Name            string
	Code            string
	StartDate       time.Time
	EndDate         time.Time
	OfferType       OfferType
	OfferPercentage int64
	FlatOffer       int64
	MinimumPrice    int64
	IsListed        bool
	CreatedAt       time.Time
}

// CouponResult is the discount/payable pair a coupon yields for a cart total.
type CouponResult struct {
	DiscountAmount int64
	PayableAmount  int64
}

// ActiveOn reports whether the coupon window covers the given day.
// The window is [StartDate, EndDate).
func (c *Coupon) ActiveOn(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return !d.Before(c.StartDate.Truncate(24*time.Hour)) &&
		d.Before(c.EndDate.Truncate(24*time.Hour))
}

// Compute validates the coupon against a cart total on the given day and
// returns the discount and payable amounts.
func (c *Coupon) Compute(cartTotal int64, day time.Time) (CouponResult, error) {
	if !c.ActiveOn(day) {
		return CouponResult{}, ErrCouponExpired
	}
	if cartTotal < c.MinimumPrice {
		return CouponResult{}, ErrCouponMinPrice
	}

	var payable int64
	switch c.OfferType {
	case OfferPercentage:
		payable = PercentagePayable(cartTotal, c.OfferPercentage)
	case OfferFlat:
		payable = cartTotal - c.FlatOffer
	default:
		return CouponResult{}, errors.New(errors.CodeInvalidCoupon, "unknown offer type", nil)
	}

	return CouponResult{
		DiscountAmount: cartTotal - payable,
		PayableAmount:  payable,
	}, nil
}

// ValidateNew checks the creation rules for a coupon. flatCap is the
// absolute bound on a flat discount, flatMaxShare the maximum flat discount
// as a percentage of the minimum price, and minPriceFloor the lowest
// allowed minimum cart price.
func (c *Coupon) ValidateNew(today time.Time, flatCap, flatMaxShare, minPriceFloor int64) error {
	if c.Name == "" {
		return errors.NewValidation("coupon name is required", nil)
	}
	if !couponCodePattern.MatchString(c.Code) {
		return errors.NewValidation(
			"coupon code must be 3-20 characters of letters, numbers, underscores, or hyphens", nil)
	}
	if c.StartDate.Truncate(24 * time.Hour).Before(today.Truncate(24 * time.Hour)) {
		return errors.NewValidation("start date cannot be before today", nil)
	}
	if !c.StartDate.Before(c.EndDate) {
		return errors.NewValidation("end date must be after start date", nil)
	}
	if c.MinimumPrice < minPriceFloor {
		return errors.NewValidation("minimum purchase price is below the allowed floor",
			map[string]interface{}{"floor": minPriceFloor})
	}

	switch c.OfferType {
	case OfferPercentage:
		if c.OfferPercentage <= 0 || c.OfferPercentage > 90 {
			return errors.NewValidation("percentage must be between 1 and 90", nil)
		}
	case OfferFlat:
		if c.FlatOffer <= 0 {
			return errors.NewValidation("flat discount must be greater than 0", nil)
		}
		if c.FlatOffer > flatCap {
			return errors.NewValidation("flat discount exceeds the maximum",
				map[string]interface{}{"cap": flatCap})
		}
		if c.FlatOffer >= c.MinimumPrice {
			return errors.NewValidation("minimum price must be greater than the flat discount", nil)
		}
		if cutoff := c.MinimumPrice * flatMaxShare / 100; c.FlatOffer > cutoff {
			return errors.NewValidation("flat discount exceeds the allowed share of the minimum price",
				map[string]interface{}{"cutoff": cutoff})
		}
	default:
		return errors.NewValidation("offer type must be percentage or flat", nil)
	}

	return nil
}

package domain

import (
	"fmt"

	"settlement/pkg/errors"
)

// Domain-specific errors
var (
	ErrCartEmpty = errors.New(errors.CodeCartEmpty, "cart is empty", nil)

	ErrCouponExpired    = errors.New(errors.CodeInvalidCoupon, "coupon is not active today", nil)
	ErrCouponMinPrice   = errors.New(errors.CodeInvalidCoupon, "cart total is below the coupon minimum price", nil)
	ErrCouponRedeemed   = errors.New(errors.CodeInvalidCoupon, "coupon has already been redeemed", nil)
	ErrCouponMismatch   = errors.New(errors.CodeCouponMismatch, "coupon is not the one currently applied", nil)
	ErrNoCouponApplied  = errors.New(errors.CodeCouponMismatch, "no coupon is currently applied", nil)
	ErrNegativeAmount   = errors.NewValidation("amount must be greater than 0", nil)
	ErrSignatureInvalid = errors.New(errors.CodeSignatureMismatch, "payment signature verification failed", nil)
)

// NewOrderNotFound creates a not found error with the public order id
func NewOrderNotFound(orderID string) error {
	return errors.NewNotFound("order", orderID)
}

// NewLineNotFound creates a not found error for an order line
func NewLineNotFound(itemID uint) error {
	return errors.NewNotFound("order item", itemID)
}

// NewCouponNotFound creates a not found error for a coupon
func NewCouponNotFound(id uint) error {
	return errors.NewNotFound("coupon", id)
}

// NewInsufficientStock reports how many units remain for a size so the
// caller can show an actionable message.
func NewInsufficientStock(productID uint, size string, available int64) error {
	return errors.New(errors.CodeInsufficientStock,
		fmt.Sprintf("only %d left in size %s", available, size),
		map[string]interface{}{
			"product_id": productID,
			"size":       size,
			"available":  available,
		})
}

// NewStockAdjusted signals that the cart was clamped during checkout and
// must be shown to the shopper again before retrying.
func NewStockAdjusted(issues []StockIssue) error {
	return errors.New(errors.CodeStockAdjusted,
		"some items were out of stock or insufficient; the cart has been updated",
		issues)
}

// NewInsufficientFunds reports a wallet balance too low for a debit.
func NewInsufficientFunds(balance, required int64) error {
	return errors.New(errors.CodeInsufficientFunds,
		fmt.Sprintf("wallet balance %d is below the required amount %d", balance, required),
		map[string]interface{}{
			"balance":  balance,
			"required": required,
		})
}

// NewCodLimitExceeded rejects cash on delivery above the configured ceiling.
func NewCodLimitExceeded(amount, ceiling int64) error {
	return errors.New(errors.CodeCodLimitExceeded,
		fmt.Sprintf("cash on delivery is not available for orders above %d", ceiling),
		map[string]interface{}{
			"amount":  amount,
			"ceiling": ceiling,
		})
}

// NewInvalidTransition rejects an order line state change.
func NewInvalidTransition(from, to string) error {
	return errors.New(errors.CodeInvalidTransition,
		fmt.Sprintf("cannot move order item from %s to %s", from, to), nil)
}

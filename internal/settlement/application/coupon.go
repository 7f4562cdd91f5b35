package application

import (
	"context"
	"time"

	"settlement/internal/settlement/domain"
	"settlement/internal/settlement/ports"
	"settlement/pkg/config"
	"settlement/pkg/errors"
	"settlement/pkg/logger"

	"go.uber.org/zap"
)

// CouponUseCase validates coupons against carts and manages the coupon
// catalogue.
type CouponUseCase struct {
	coupons  ports.CouponStore
	carts    ports.CartRepository
	contexts ports.CheckoutContextStore
	rules    config.Rules
	log      *logger.Logger
}

// NewCouponUseCase creates a new coupon use case
func NewCouponUseCase(
	coupons ports.CouponStore,
	carts ports.CartRepository,
	contexts ports.CheckoutContextStore,
	rules config.Rules,
	log *logger.Logger,
) *CouponUseCase {
	return &CouponUseCase{
		coupons:  coupons,
		carts:    carts,
		contexts: contexts,
		rules:    rules,
		log:      log,
	}
}

// ApplyOutput is the session overlay resulting from applying a coupon.
type ApplyOutput struct {
	DiscountAmount int64
	PayableAmount  int64
}

// Apply validates the coupon window and minimum price against the user's
// cart total and stores the discount/payable pair as the checkout context.
// The cart's own totals are untouched, so removal is trivial.
func (uc *CouponUseCase) Apply(ctx context.Context, userID, couponID uint) (*ApplyOutput, error) {
	cart, err := uc.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	coupon, err := uc.coupons.GetByID(ctx, couponID)
	if err != nil {
		return nil, err
	}

	redeemed, err := uc.coupons.IsRedeemed(ctx, userID, couponID)
	if err != nil {
		return nil, err
	}
	if redeemed {
		return nil, domain.ErrCouponRedeemed
	}

	result, err := coupon.Compute(cart.TotalSalePrice, time.Now())
	if err != nil {
		return nil, err
	}

	if err := uc.contexts.Put(ctx, &domain.CheckoutContext{
		UserID:         userID,
		CouponID:       couponID,
		DiscountAmount: result.DiscountAmount,
		PayableAmount:  result.PayableAmount,
		AppliedAt:      time.Now(),
	}); err != nil {
		return nil, errors.NewInternal("failed to store checkout context", err)
	}

	uc.log.WithContext(ctx).Info("coupon applied",
		zap.Uint("user_id", userID),
		zap.Uint("coupon_id", couponID),
		zap.Int64("discount", result.DiscountAmount),
	)
	return &ApplyOutput{
		DiscountAmount: result.DiscountAmount,
		PayableAmount:  result.PayableAmount,
	}, nil
}

// Remove clears the applied coupon overlay and restores the cart's base
// payable amount. Fails with CouponMismatch if the coupon being removed is
// not the one currently applied.
func (uc *CouponUseCase) Remove(ctx context.Context, userID, couponID uint) (*ApplyOutput, error) {
	checkout, err := uc.contexts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if checkout == nil {
		return nil, domain.ErrNoCouponApplied
	}
	if checkout.CouponID != couponID {
		return nil, domain.ErrCouponMismatch
	}

	if err := uc.contexts.Clear(ctx, userID); err != nil {
		return nil, errors.NewInternal("failed to clear checkout context", err)
	}

	cart, err := uc.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ApplyOutput{
		DiscountAmount: 0,
		PayableAmount:  cart.TotalSalePrice,
	}, nil
}

// CreateCouponInput represents the input for creating a coupon
type CreateCouponInput struct {
	Name            string
	Code            string
	StartDate       time.Time
	EndDate         time.Time
	OfferType       domain.OfferType
	OfferPercentage int64
	FlatOffer       int64
	MinimumPrice    int64
}

// CreateCoupon validates and persists a new coupon (admin).
func (uc *CouponUseCase) CreateCoupon(ctx context.Context, input CreateCouponInput) (*domain.Coupon, error) {
	coupon := &domain.Coupon{
		Name:            input.Name,
		Code:            input.Code,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		OfferType:       input.OfferType,
		OfferPercentage: input.OfferPercentage,
		FlatOffer:       input.FlatOffer,
		MinimumPrice:    input.MinimumPrice,
		IsListed:        true,
		CreatedAt:       time.Now(),
	}

	if err := coupon.ValidateNew(time.Now(), uc.rules.FlatCouponCap, uc.rules.FlatCouponMaxShare, uc.rules.CouponMinPriceFloor); err != nil {
		return nil, err
	}

	exists, err := uc.coupons.NameOrCodeExists(ctx, coupon.Name, coupon.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewConflict("a coupon with this name or code already exists")
	}

	if err := uc.coupons.Create(ctx, coupon); err != nil {
		return nil, errors.NewInternal("failed to create coupon", err)
	}

	uc.log.WithContext(ctx).Info("coupon created",
		zap.Uint("coupon_id", coupon.ID),
		zap.String("code", coupon.Code),
	)
	return coupon, nil
}

// DeleteCoupon removes a coupon (admin).
func (uc *CouponUseCase) DeleteCoupon(ctx context.Context, id uint) error {
	return uc.coupons.Delete(ctx, id)
}

// ListCoupons retrieves coupons matching a name search, paged.
func (uc *CouponUseCase) ListCoupons(ctx context.Context, search string, page, limit int) ([]*domain.Coupon, int64, error) {
	return uc.coupons.List(ctx, search, page, limit)
}

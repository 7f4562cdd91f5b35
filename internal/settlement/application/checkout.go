package application

import (
	"context"
	"fmt"

	"settlement/internal/settlement/domain"
	"settlement/internal/settlement/ports"
	"settlement/pkg/config"
	"settlement/pkg/errors"
	"settlement/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutUseCase coordinates stock validation, coupon application, and
// order creation for the three payment methods.
type CheckoutUseCase struct {
	carts     ports.CartRepository
	orders    ports.OrderRepository
	stock     ports.StockStore
	wallets   ports.WalletStore
	coupons   ports.CouponStore
	contexts  ports.CheckoutContextStore
	gateway   ports.PaymentGateway
	addresses ports.AddressProvider
	publisher ports.EventPublisher
	rules     config.Rules
	currency  string
	log       *logger.Logger
}

// NewCheckoutUseCase creates a new checkout use case
func NewCheckoutUseCase(
	carts ports.CartRepository,
	orders ports.OrderRepository,
	stock ports.StockStore,
	wallets ports.WalletStore,
	coupons ports.CouponStore,
	contexts ports.CheckoutContextStore,
	gateway ports.PaymentGateway,
	addresses ports.AddressProvider,
	publisher ports.EventPublisher,
	rules config.Rules,
	currency string,
	log *logger.Logger,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		carts:     carts,
		orders:    orders,
		stock:     stock,
		wallets:   wallets,
		coupons:   coupons,
		contexts:  contexts,
		gateway:   gateway,
		addresses: addresses,
		publisher: publisher,
		rules:     rules,
		currency:  currency,
		log:       log,
	}
}

// PlaceOrderInput represents the input for placing an order
type PlaceOrderInput struct {
	UserID        uint
	AddressID     string
	PaymentMethod domain.PaymentMethod
}

// PlaceOrderOutput represents the output of placing an order. For gateway
// payments the order is pending and GatewayOrderID carries the handle the
// shopper completes payment against.
type PlaceOrderOutput struct {
	Order            *domain.Order
	GatewayOrderID   string
	AmountMinorUnits int64
}

// PlaceOrder turns the user's cart into an order.
func (uc *CheckoutUseCase) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderOutput, error) {
	cart, err := uc.carts.GetByUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrCartEmpty
	}

	// Pre-checkout stock validation. On any issue the clamped cart is
	// persisted and checkout aborts so the shopper re-sees the cart.
	issues, err := uc.validateStock(ctx, cart)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		cart.Recalculate()
		if err := uc.carts.Save(ctx, cart); err != nil {
			return nil, errors.NewInternal("failed to persist adjusted cart", err)
		}
		return nil, domain.NewStockAdjusted(issues)
	}

	couponID, couponDiscount, payable, err := uc.resolveCoupon(ctx, input.UserID, cart)
	if err != nil {
		return nil, err
	}

	address, err := uc.addresses.Resolve(ctx, input.AddressID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve address")
	}

	switch input.PaymentMethod {
	case domain.PaymentCOD:
		return uc.placeCOD(ctx, input.UserID, cart, address, couponID, couponDiscount, payable)
	case domain.PaymentWallet:
		return uc.placeWallet(ctx, input.UserID, cart, address, couponID, couponDiscount, payable)
	case domain.PaymentGateway:
		return uc.placeGateway(ctx, input.UserID, cart, address, couponID, couponDiscount, payable)
	default:
		return nil, errors.NewValidation("invalid payment method", nil)
	}
}

func (uc *CheckoutUseCase) placeCOD(ctx context.Context, userID uint, cart *domain.Cart, address domain.AddressSnapshot, couponID *uint, couponDiscount, payable int64) (*PlaceOrderOutput, error) {
	if payable > uc.rules.CODCeiling {
		return nil, domain.NewCodLimitExceeded(payable, uc.rules.CODCeiling)
	}

	order := domain.NewOrder(userID, cart, address, domain.PaymentCOD, domain.PaymentSuccess, couponID, couponDiscount, payable)
	if err := uc.orders.Create(ctx, order); err != nil {
		return nil, errors.NewInternal("failed to create order", err)
	}

	if err := uc.commitSettlement(ctx, order); err != nil {
		return nil, err
	}

	uc.publishPlaced(ctx, order)
	return &PlaceOrderOutput{Order: order}, nil
}

func (uc *CheckoutUseCase) placeWallet(ctx context.Context, userID uint, cart *domain.Cart, address domain.AddressSnapshot, couponID *uint, couponDiscount, payable int64) (*PlaceOrderOutput, error) {
	wallet, err := uc.wallets.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < payable {
		return nil, domain.NewInsufficientFunds(wallet.Balance, payable)
	}

	order := domain.NewOrder(userID, cart, address, domain.PaymentWallet, domain.PaymentSuccess, couponID, couponDiscount, payable)

	if err := uc.wallets.Debit(ctx, userID, payable, domain.ReasonOrderPurchase, order.OrderID); err != nil {
		return nil, err
	}
	if err := uc.orders.Create(ctx, order); err != nil {
		return nil, errors.NewInternal("failed to create order", err)
	}

	if err := uc.commitSettlement(ctx, order); err != nil {
		return nil, err
	}

	uc.publishPlaced(ctx, order)
	return &PlaceOrderOutput{Order: order}, nil
}

func (uc *CheckoutUseCase) placeGateway(ctx context.Context, userID uint, cart *domain.Cart, address domain.AddressSnapshot, couponID *uint, couponDiscount, payable int64) (*PlaceOrderOutput, error) {
	receipt := "rcpt_" + uuid.New().String()
	gatewayOrderID, err := uc.gateway.CreateOrder(ctx, payable*100, uc.currency, receipt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gateway order")
	}

	// Two-phase: the order is created pending and stock is NOT reserved.
	// The Success transition on the verified callback commits the
	// settlement.
	order := domain.NewOrder(userID, cart, address, domain.PaymentGateway, domain.PaymentPending, couponID, couponDiscount, payable)
	order.GatewayOrderID = gatewayOrderID

	if err := uc.orders.Create(ctx, order); err != nil {
		return nil, errors.NewInternal("failed to create order", err)
	}

	uc.publishPlaced(ctx, order)
	return &PlaceOrderOutput{
		Order:            order,
		GatewayOrderID:   gatewayOrderID,
		AmountMinorUnits: payable * 100,
	}, nil
}

// VerifyPaymentInput represents the signed gateway callback payload
type VerifyPaymentInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyPaymentOutput represents the output of verifying a payment
type VerifyPaymentOutput struct {
	Order *domain.Order
}

// VerifyPayment checks the callback signature. A mismatch marks the payment
// attempt Failed and stops; a match marks Success and commits the
// settlement (stock, cart, coupon redemption).
func (uc *CheckoutUseCase) VerifyPayment(ctx context.Context, input VerifyPaymentInput) (*VerifyPaymentOutput, error) {
	order, err := uc.orders.GetByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		return nil, err
	}

	if !uc.gateway.VerifySignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		if err := order.MarkPaymentFailed(); err != nil {
			return nil, err
		}
		if err := uc.orders.Update(ctx, order); err != nil {
			return nil, errors.NewInternal("failed to update order", err)
		}
		uc.log.WithContext(ctx).Warn("payment signature mismatch",
			zap.String("order_id", order.OrderID),
			zap.String("gateway_order_id", input.GatewayOrderID),
		)
		return nil, domain.ErrSignatureInvalid
	}

	if err := order.MarkPaymentSuccess(input.GatewayPaymentID); err != nil {
		return nil, err
	}
	if err := uc.orders.Update(ctx, order); err != nil {
		return nil, errors.NewInternal("failed to update order", err)
	}

	if err := uc.commitSettlement(ctx, order); err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("gateway payment verified",
		zap.String("order_id", order.OrderID),
		zap.Int64("final_amount", order.FinalAmount),
	)
	return &VerifyPaymentOutput{Order: order}, nil
}

// RetryPaymentInput represents the input for retrying a gateway payment
type RetryPaymentInput struct {
	OrderID string
}

// RetryPaymentOutput carries the fresh gateway handle for the same order
// record.
type RetryPaymentOutput struct {
	Order            *domain.Order
	GatewayOrderID   string
	AmountMinorUnits int64
}

// RetryPayment issues a new gateway order handle for an order whose payment
// is still Pending or Failed, after re-validating current stock for every
// line.
func (uc *CheckoutUseCase) RetryPayment(ctx context.Context, input RetryPaymentInput) (*RetryPaymentOutput, error) {
	order, err := uc.orders.GetByOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.CanRetryPayment() {
		return nil, domain.NewInvalidTransition(string(order.PaymentStatus), "payment retry")
	}

	var shortages []domain.StockIssue
	for _, item := range order.Items {
		product, err := uc.stock.Get(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		variant := product.Variant(item.Size)
		var available int64
		if variant != nil {
			available = variant.Quantity
		}
		if available < item.Quantity {
			shortages = append(shortages, domain.StockIssue{
				ProductID: item.ProductID,
				Size:      item.Size,
				Requested: item.Quantity,
				Available: available,
				Dropped:   variant == nil,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, errors.New(errors.CodeInsufficientStock,
			"some items are no longer available in the requested quantity", shortages)
	}

	receipt := "rcpt_" + uuid.New().String()
	gatewayOrderID, err := uc.gateway.CreateOrder(ctx, order.FinalAmount*100, uc.currency, receipt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gateway order")
	}

	order.GatewayOrderID = gatewayOrderID
	if err := uc.orders.Update(ctx, order); err != nil {
		return nil, errors.NewInternal("failed to update order", err)
	}

	return &RetryPaymentOutput{
		Order:            order,
		GatewayOrderID:   gatewayOrderID,
		AmountMinorUnits: order.FinalAmount * 100,
	}, nil
}

// validateStock walks the cart lines against current stock, dropping lines
// whose size vanished or hit zero and clamping lines requesting more than
// available. Mutates the cart in memory only; the caller persists.
func (uc *CheckoutUseCase) validateStock(ctx context.Context, cart *domain.Cart) ([]domain.StockIssue, error) {
	var issues []domain.StockIssue
	kept := cart.Items[:0]

	for i := range cart.Items {
		item := cart.Items[i]
		product, err := uc.stock.Get(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}

		variant := product.Variant(item.Size)
		if variant == nil || variant.Quantity == 0 {
			issues = append(issues, domain.StockIssue{
				ProductID: item.ProductID,
				Size:      item.Size,
				Requested: item.Quantity,
				Available: 0,
				Dropped:   true,
			})
			continue
		}

		if item.Quantity > variant.Quantity {
			issues = append(issues, domain.StockIssue{
				ProductID: item.ProductID,
				Size:      item.Size,
				Requested: item.Quantity,
				Available: variant.Quantity,
			})
			item.Reprice(variant.Quantity)
		}
		kept = append(kept, item)
	}

	cart.Items = kept
	return issues, nil
}

// resolveCoupon reads the checkout context overlay, if any, and returns the
// coupon id, discount, and final payable amount.
func (uc *CheckoutUseCase) resolveCoupon(ctx context.Context, userID uint, cart *domain.Cart) (*uint, int64, int64, error) {
	checkout, err := uc.contexts.Get(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	if checkout == nil {
		return nil, 0, cart.TotalSalePrice, nil
	}
	couponID := checkout.CouponID
	return &couponID, checkout.DiscountAmount, checkout.PayableAmount, nil
}

// commitSettlement makes the order's inventory and coupon effects
// permanent: reserve stock per line, clear the cart, mark the coupon
// redeemed, drop the checkout context. Each step is individually atomic;
// the sequence as a whole is not a transaction.
func (uc *CheckoutUseCase) commitSettlement(ctx context.Context, order *domain.Order) error {
	for _, item := range order.Items {
		if err := uc.stock.Reserve(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to reserve stock for product %d size %s", item.ProductID, item.Size))
		}
	}

	// A verify retry may land after the cart was already cleared.
	cart, err := uc.carts.GetByUser(ctx, order.UserID)
	if err == nil && !cart.IsEmpty() {
		if err := uc.carts.Clear(ctx, order.UserID); err != nil {
			return errors.NewInternal("failed to clear cart", err)
		}
	}

	if order.CouponID != nil {
		redeemed, err := uc.coupons.IsRedeemed(ctx, order.UserID, *order.CouponID)
		if err != nil {
			return errors.NewInternal("failed to check coupon redemption", err)
		}
		if !redeemed {
			if err := uc.coupons.MarkRedeemed(ctx, order.UserID, *order.CouponID); err != nil {
				return errors.NewInternal("failed to mark coupon redeemed", err)
			}
		}
	}

	if err := uc.contexts.Clear(ctx, order.UserID); err != nil {
		uc.log.WithContext(ctx).Warn("failed to clear checkout context",
			zap.Uint("user_id", order.UserID),
			zap.Error(err),
		)
	}

	return nil
}

func (uc *CheckoutUseCase) publishPlaced(ctx context.Context, order *domain.Order) {
	uc.log.WithContext(ctx).Info("order placed",
		zap.String("order_id", order.OrderID),
		zap.Uint("user_id", order.UserID),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("payment_status", string(order.PaymentStatus)),
		zap.Int64("final_amount", order.FinalAmount),
	)
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishOrderPlaced(ctx, order); err != nil {
		uc.log.WithContext(ctx).Error("failed to publish order placed event",
			zap.Error(err),
			zap.String("order_id", order.OrderID),
		)
	}
}

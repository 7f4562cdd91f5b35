package ports

import (
	"context"

	"settlement/internal/settlement/domain"
)

// CartRepository defines the interface for cart persistence
type CartRepository interface {
	// GetByUser retrieves the user's cart
	GetByUser(ctx context.Context, userID uint) (*domain.Cart, error)

	// Save persists the cart's lines and recomputed totals
	Save(ctx context.Context, cart *domain.Cart) error

	// Clear empties the cart (lines and totals) without deleting it
	Clear(ctx context.Context, userID uint) error
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Create creates a new order with its line items
	Create(ctx context.Context, order *domain.Order) error

	// GetByOrderID retrieves an order by its public id
	GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error)

	// GetByGatewayOrderID retrieves the order tied to a gateway order handle
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)

	// Update persists the order header and line states
	Update(ctx context.Context, order *domain.Order) error

	// TransitionItems atomically moves the given lines to next, succeeding
	// only when every line is still in one of the from statuses. On a lost
	// race nothing changes and false is returned. Reaching Delivered stamps
	// the delivery date; the order-level cancelled flag is refreshed in the
	// same transaction.
	TransitionItems(ctx context.Context, orderID string, itemIDs []uint, from []domain.OrderItemStatus, next domain.OrderItemStatus) (bool, error)

	// TransitionReturns atomically moves the given lines' return requests
	// from one review state to next under the same all-or-nothing condition.
	// Approval also moves the lines to Returned.
	TransitionReturns(ctx context.Context, orderID string, itemIDs []uint, from, next domain.ReturnStatus) (bool, error)

	// ListByUser retrieves a user's orders, newest first
	ListByUser(ctx context.Context, userID uint) ([]*domain.Order, error)

	// List retrieves orders for the back office
	List(ctx context.Context, query ListOrdersQuery) ([]*domain.Order, int64, error)
}

// ListOrdersQuery filters and pages the admin order listing.
type ListOrdersQuery struct {
	Page   int
	Limit  int
	Status domain.OrderItemStatus
	Sort   string // newest, oldest, amountHigh, amountLow
}

// StockStore is the single source of truth for per-size inventory.
// Reserve and Release are single conditional atomic updates, never
// read-modify-write round trips.
type StockStore interface {
	// Get reads current per-size and total quantities for a product
	Get(ctx context.Context, productID uint) (*domain.ProductStock, error)

	// Reserve atomically decrements (product, size) by qty, conditioned on
	// enough stock being available, and recomputes the derived status.
	// Fails with InsufficientStock otherwise.
	Reserve(ctx context.Context, productID uint, size string, qty int64) error

	// Release is the inverse increment with the same status recomputation
	Release(ctx context.Context, productID uint, size string, qty int64) error
}

// WalletStore appends ledger transactions and adjusts the balance as one
// atomic operation per call.
type WalletStore interface {
	// GetByUser retrieves the user's wallet, or an empty zero-balance
	// wallet if none exists yet
	GetByUser(ctx context.Context, userID uint) (*domain.Wallet, error)

	// Credit creates the wallet if absent, appends a credit transaction,
	// and increments the balance. The amount must be positive.
	Credit(ctx context.Context, userID uint, amount int64, reason, orderID string) error

	// Debit appends a debit transaction and decrements the balance,
	// conditioned on sufficient funds; fails with InsufficientFunds.
	// The amount must be positive.
	Debit(ctx context.Context, userID uint, amount int64, reason, orderID string) error
}

// CouponStore defines the interface for coupon persistence and redemption
// tracking.
type CouponStore interface {
	// GetByID retrieves a coupon
	GetByID(ctx context.Context, id uint) (*domain.Coupon, error)

	// Create persists a new coupon
	Create(ctx context.Context, coupon *domain.Coupon) error

	// Delete removes a coupon
	Delete(ctx context.Context, id uint) error

	// List retrieves coupons matching a name search, paged, newest first
	List(ctx context.Context, search string, page, limit int) ([]*domain.Coupon, int64, error)

	// NameOrCodeExists reports whether a coupon with the name or code exists
	NameOrCodeExists(ctx context.Context, name, code string) (bool, error)

	// IsRedeemed reports whether the user has already redeemed the coupon
	IsRedeemed(ctx context.Context, userID, couponID uint) (bool, error)

	// MarkRedeemed records the redemption on the user. Called exactly once,
	// after the order commit succeeds.
	MarkRedeemed(ctx context.Context, userID, couponID uint) error
}

// CheckoutContextStore persists the per-checkout coupon overlay.
type CheckoutContextStore interface {
	// Get retrieves the user's checkout context, or nil if none is active
	Get(ctx context.Context, userID uint) (*domain.CheckoutContext, error)

	// Put stores or replaces the user's checkout context
	Put(ctx context.Context, checkout *domain.CheckoutContext) error

	// Clear removes the user's checkout context
	Clear(ctx context.Context, userID uint) error
}

// PaymentGateway is the external payment collaborator: order creation is a
// fallible RPC with no automatic retry; verification recomputes an HMAC
// from the callback identifiers and a shared secret.
type PaymentGateway interface {
	// CreateOrder registers a payment intent and returns the gateway's
	// order handle
	CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error)

	// VerifySignature checks the signed callback payload
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

// AddressProvider resolves an address reference to a flat snapshot embedded
// into the order at placement time.
type AddressProvider interface {
	Resolve(ctx context.Context, addressID string) (domain.AddressSnapshot, error)
}

// EventPublisher defines the interface for publishing settlement events
type EventPublisher interface {
	// PublishOrderPlaced publishes an order placed event
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error

	// PublishOrderCancelled publishes a line or full-order cancellation
	PublishOrderCancelled(ctx context.Context, order *domain.Order, itemID uint) error

	// PublishRefundIssued publishes a wallet refund event
	PublishRefundIssued(ctx context.Context, order *domain.Order, amount int64, reason string) error
}

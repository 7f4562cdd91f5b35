package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderItemStatus is the per-line fulfilment state.
type OrderItemStatus string

const (
	ItemPlaced         OrderItemStatus = "Placed"
	ItemShipped        OrderItemStatus = "Shipped"
	ItemOutForDelivery OrderItemStatus = "Out for delivery"
	ItemDelivered      OrderItemStatus = "Delivered"
	ItemCancelled      OrderItemStatus = "Cancelled"
	ItemReturned       OrderItemStatus = "Returned"
)

// fulfilmentRank orders the forward chain. Cancelled/Returned are terminal
// and unreachable through Advance.
var fulfilmentRank = map[OrderItemStatus]int{
	ItemPlaced:         0,
	ItemShipped:        1,
	ItemOutForDelivery: 2,
	ItemDelivered:      3,
}

// ReturnStatus is the state of a line's return request.
type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "Pending"
	ReturnApproved ReturnStatus = "Approved"
	ReturnRejected ReturnStatus = "Rejected"
	ReturnRefunded ReturnStatus = "Refunded"
)

// PaymentMethod selects how an order is paid.
type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "cashOnDelivery"
	PaymentWallet  PaymentMethod = "wallet"
	PaymentGateway PaymentMethod = "gateway"
)

// PaymentStatus is the order-level payment state.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentSuccess PaymentStatus = "Success"
	PaymentFailed  PaymentStatus = "Failed"
)

// ReturnRequest is the customer-initiated return sub-state of a line.
// Absent until a return is requested.
type ReturnRequest struct {
	Status      ReturnStatus
	Reason      string
	RequestedAt time.Time
	ApprovedAt  *time.Time
	RejectedAt  *time.Time
}

// AddressSnapshot is the delivery address copied verbatim into the order at
// placement time, never a live reference.
type AddressSnapshot struct {
	Name           string
	Building       string
	Area           string
	Landmark       string
	City           string
	State          string
	Pincode        string
	Phone          string
	AlternatePhone string
}

// OrderItem is one line of an order: a snapshot of a cart line plus its own
// fulfilment state.
type OrderItem struct {
	ID                uint
	ProductID         uint
	Size              string
	Quantity          int64
	SalePrice         int64
	RegularPrice      int64
	TotalSalePrice    int64
	TotalRegularPrice int64
	Status            OrderItemStatus
	ReturnRequest     *ReturnRequest
	DeliveryDate      *time.Time
}

// CancellableStatuses are the pre-delivery states a direct cancellation
// may start from.
var CancellableStatuses = []OrderItemStatus{ItemPlaced, ItemShipped, ItemOutForDelivery}

// CanCancel reports whether the line may still be cancelled directly.
// Once delivered the customer path is a return request.
func (it *OrderItem) CanCancel() bool {
	switch it.Status {
	case ItemPlaced, ItemShipped, ItemOutForDelivery:
		return true
	}
	return false
}

// Cancel moves a pre-delivery line to Cancelled.
func (it *OrderItem) Cancel() error {
	if !it.CanCancel() {
		return NewInvalidTransition(string(it.Status), string(ItemCancelled))
	}
	it.Status = ItemCancelled
	return nil
}

// CanAdvance reports whether next is a legal forward move on the
// fulfilment chain.
func (it *OrderItem) CanAdvance(next OrderItemStatus) bool {
	nextRank, ok := fulfilmentRank[next]
	curRank, cok := fulfilmentRank[it.Status]
	return ok && cok && nextRank > curRank
}

// Advance moves the line forward along the fulfilment chain
// Placed -> Shipped -> Out for delivery -> Delivered. Backward moves and
// moves into terminal states are rejected. Reaching Delivered stamps the
// delivery date.
func (it *OrderItem) Advance(next OrderItemStatus, now time.Time) error {
	if !it.CanAdvance(next) {
		return NewInvalidTransition(string(it.Status), string(next))
	}
	it.Status = next
	if next == ItemDelivered {
		it.DeliveryDate = &now
	}
	return nil
}

// RequestReturn opens a pending return request on a delivered line.
func (it *OrderItem) RequestReturn(reason string, now time.Time) error {
	if it.Status != ItemDelivered {
		return NewInvalidTransition(string(it.Status), "return requested")
	}
	if it.ReturnRequest != nil {
		return NewInvalidTransition(string(it.ReturnRequest.Status), string(ReturnPending))
	}
	it.ReturnRequest = &ReturnRequest{
		Status:      ReturnPending,
		Reason:      reason,
		RequestedAt: now,
	}
	return nil
}

// CanApproveReturn reports whether the return request may be approved.
func (it *OrderItem) CanApproveReturn() bool {
	return it.ReturnRequest != nil &&
		it.ReturnRequest.Status == ReturnPending &&
		it.Status == ItemDelivered
}

// ApproveReturn approves a pending return: the line becomes Returned and
// the refund step is scheduled separately.
func (it *OrderItem) ApproveReturn(now time.Time) error {
	if !it.CanApproveReturn() {
		return NewInvalidTransition(string(it.Status), string(ItemReturned))
	}
	it.Status = ItemReturned
	it.ReturnRequest.Status = ReturnApproved
	it.ReturnRequest.ApprovedAt = &now
	return nil
}

// RejectReturn rejects a pending return. Terminal, no monetary effect; the
// line stays Delivered.
func (it *OrderItem) RejectReturn(now time.Time) error {
	if !it.CanApproveReturn() {
		return NewInvalidTransition(string(it.Status), string(ReturnRejected))
	}
	it.ReturnRequest.Status = ReturnRejected
	it.ReturnRequest.RejectedAt = &now
	return nil
}

// CanRefundReturn reports whether the return has been approved and not
// yet paid out.
func (it *OrderItem) CanRefundReturn() bool {
	return it.ReturnRequest != nil && it.ReturnRequest.Status == ReturnApproved
}

// MarkRefunded records that the approved return has been paid out.
func (it *OrderItem) MarkRefunded() error {
	if !it.CanRefundReturn() {
		return NewInvalidTransition("return not approved", string(ReturnRefunded))
	}
	it.ReturnRequest.Status = ReturnRefunded
	return nil
}

// RefundAmount is the line's sale total minus its proportional share of the
// order-level coupon discount.
func (it *OrderItem) RefundAmount(couponDiscount, saleBasis int64) int64 {
	return it.TotalSalePrice - ProportionalShare(it.TotalSalePrice, saleBasis, couponDiscount)
}

// Order is an immutable placement-time snapshot mutated only through
// lifecycle transitions.
type Order struct {
	ID                uint
	OrderID           string
	UserID            uint
	Items             []OrderItem
	TotalRegularPrice int64
	TotalDiscount     int64
	CouponDiscount    int64
	FinalAmount       int64
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	Address           AddressSnapshot
	CouponID          *uint
	GatewayOrderID    string
	GatewayPaymentID  string
	Cancelled         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewOrder snapshots a cart into an order. Line items are copied, not
// referenced; the applied coupon contributes the discount/payable pair.
func NewOrder(userID uint, cart *Cart, address AddressSnapshot, method PaymentMethod, status PaymentStatus, couponID *uint, couponDiscount, finalAmount int64) *Order {
	items := make([]OrderItem, len(cart.Items))
	for i, ci := range cart.Items {
		items[i] = OrderItem{
			ProductID:         ci.ProductID,
			Size:              ci.Size,
			Quantity:          ci.Quantity,
			SalePrice:         ci.SalePrice,
			RegularPrice:      ci.RegularPrice,
			TotalSalePrice:    ci.TotalSalePrice,
			TotalRegularPrice: ci.TotalRegularPrice,
			Status:            ItemPlaced,
		}
	}

	return &Order{
		OrderID:           uuid.New().String(),
		UserID:            userID,
		Items:             items,
		TotalRegularPrice: cart.TotalRegularPrice,
		TotalDiscount:     cart.TotalDiscount,
		CouponDiscount:    couponDiscount,
		FinalAmount:       finalAmount,
		PaymentMethod:     method,
		PaymentStatus:     status,
		Address:           address,
		CouponID:          couponID,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
}

// Item returns the line with the given id, or nil.
func (o *Order) Item(itemID uint) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// SaleBasis is the sum of line sale totals at placement, the denominator
// for coupon-share allocation.
func (o *Order) SaleBasis() int64 {
	var basis int64
	for _, it := range o.Items {
		basis += it.TotalSalePrice
	}
	return basis
}

// ReturnRefund is the wallet payout for a refunded line: its sale total
// minus its proportional coupon share. When the payout completes a
// full-order return, the residual left by per-line rounding is folded
// into this last refund so the refunds sum exactly to the final payable
// amount.
func (o *Order) ReturnRefund(itemID uint) int64 {
	item := o.Item(itemID)
	if item == nil {
		return 0
	}
	amount := item.RefundAmount(o.CouponDiscount, o.SaleBasis())

	for i := range o.Items {
		rr := o.Items[i].ReturnRequest
		if rr == nil || rr.Status != ReturnRefunded {
			return amount
		}
	}

	var others int64
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			continue
		}
		others += o.Items[i].RefundAmount(o.CouponDiscount, o.SaleBasis())
	}
	return o.FinalAmount - others
}

// RecomputeCancelled refreshes the order-level flag: true iff every line is
// Cancelled or Returned. Called after every line transition.
func (o *Order) RecomputeCancelled() {
	for _, it := range o.Items {
		if it.Status != ItemCancelled && it.Status != ItemReturned {
			o.Cancelled = false
			return
		}
	}
	o.Cancelled = len(o.Items) > 0
}

// PaidOut reports whether money actually moved for this order, which gates
// wallet refunds on cancellation. Cash on delivery is recorded as Success
// at placement but nothing was collected up front.
func (o *Order) PaidOut() bool {
	return o.PaymentStatus == PaymentSuccess &&
		(o.PaymentMethod == PaymentWallet || o.PaymentMethod == PaymentGateway)
}

// MarkPaymentSuccess transitions a pending or previously failed gateway
// payment to Success. Stock reservation is a side effect of this
// transition, performed by the orchestrator.
func (o *Order) MarkPaymentSuccess(paymentID string) error {
	if o.PaymentStatus == PaymentSuccess {
		return NewInvalidTransition(string(o.PaymentStatus), string(PaymentSuccess))
	}
	o.PaymentStatus = PaymentSuccess
	o.GatewayPaymentID = paymentID
	return nil
}

// MarkPaymentFailed records a failed payment attempt. The order record
// survives; retry remains possible.
func (o *Order) MarkPaymentFailed() error {
	if o.PaymentStatus == PaymentSuccess {
		return NewInvalidTransition(string(o.PaymentStatus), string(PaymentFailed))
	}
	o.PaymentStatus = PaymentFailed
	return nil
}

// CanRetryPayment reports whether a new gateway attempt may be issued.
func (o *Order) CanRetryPayment() bool {
	return o.PaymentMethod == PaymentGateway &&
		(o.PaymentStatus == PaymentPending || o.PaymentStatus == PaymentFailed)
}

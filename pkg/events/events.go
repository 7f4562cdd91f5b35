package events

import "time"

// Exchange names
const (
	ExchangeSettlement = "settlement.events"
)

// Routing keys
const (
	RoutingKeyOrderPlaced    = "order.placed"
	RoutingKeyOrderCancelled = "order.cancelled"
	RoutingKeyRefundIssued   = "refund.issued"
)

// OrderPlacedEvent is published when an order is placed and paid
// (or created pending gateway confirmation).
type OrderPlacedEvent struct {
	Version   string             `json:"version"`
	EventType string             `json:"event_type"`
	Timestamp time.Time          `json:"timestamp"`
	TraceID   string             `json:"trace_id"`
	Payload   OrderPlacedPayload `json:"payload"`
}

// OrderPlacedPayload contains order data
type OrderPlacedPayload struct {
	OrderID       string    `json:"order_id"`
	UserID        uint      `json:"user_id"`
	FinalAmount   int64     `json:"final_amount"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(orderID string, userID uint, finalAmount int64, method, status string, createdAt time.Time, traceID string) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		Version:   "1.0",
		EventType: "order.placed",
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: OrderPlacedPayload{
			OrderID:       orderID,
			UserID:        userID,
			FinalAmount:   finalAmount,
			PaymentMethod: method,
			PaymentStatus: status,
			CreatedAt:     createdAt,
		},
	}
}

// OrderCancelledEvent is published when a line is cancelled or the order
// becomes fully cancelled.
type OrderCancelledEvent struct {
	Version   string                `json:"version"`
	EventType string                `json:"event_type"`
	Timestamp time.Time             `json:"timestamp"`
	TraceID   string                `json:"trace_id"`
	Payload   OrderCancelledPayload `json:"payload"`
}

// OrderCancelledPayload contains cancellation data
type OrderCancelledPayload struct {
	OrderID        string `json:"order_id"`
	UserID         uint   `json:"user_id"`
	ItemID         uint   `json:"item_id,omitempty"`
	FullyCancelled bool   `json:"fully_cancelled"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(orderID string, userID, itemID uint, fullyCancelled bool, traceID string) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		Version:   "1.0",
		EventType: "order.cancelled",
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: OrderCancelledPayload{
			OrderID:        orderID,
			UserID:         userID,
			ItemID:         itemID,
			FullyCancelled: fullyCancelled,
		},
	}
}

// RefundIssuedEvent is published when a refund is credited to a wallet.
type RefundIssuedEvent struct {
	Version   string              `json:"version"`
	EventType string              `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	TraceID   string              `json:"trace_id"`
	Payload   RefundIssuedPayload `json:"payload"`
}

// RefundIssuedPayload contains refund data
type RefundIssuedPayload struct {
	OrderID string `json:"order_id"`
	UserID  uint   `json:"user_id"`
	Amount  int64  `json:"amount"`
	Reason  string `json:"reason"`
}

// NewRefundIssuedEvent creates a new RefundIssuedEvent
func NewRefundIssuedEvent(orderID string, userID uint, amount int64, reason, traceID string) *RefundIssuedEvent {
	return &RefundIssuedEvent{
		Version:   "1.0",
		EventType: "refund.issued",
		Timestamp: time.Now(),
		TraceID:   traceID,
		Payload: RefundIssuedPayload{
			OrderID: orderID,
			UserID:  userID,
			Amount:  amount,
			Reason:  reason,
		},
	}
}

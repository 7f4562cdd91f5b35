package adapters

import (
	"context"

	"settlement/internal/settlement/domain"
	"settlement/pkg/events"
	"settlement/pkg/logger"
	"settlement/pkg/rabbitmq"
)

// RabbitMQEventPublisher implements EventPublisher over the settlement exchange
type RabbitMQEventPublisher struct {
	publisher *rabbitmq.Publisher
	log       *logger.Logger
}

// NewRabbitMQEventPublisher creates a publisher bound to the settlement exchange
func NewRabbitMQEventPublisher(conn *rabbitmq.Connection, log *logger.Logger) (*RabbitMQEventPublisher, error) {
	publisher, err := rabbitmq.NewPublisher(conn, events.ExchangeSettlement, log)
	if err != nil {
		return nil, err
	}

	return &RabbitMQEventPublisher{publisher: publisher, log: log}, nil
}

// PublishOrderPlaced emits an order.placed event
func (p *RabbitMQEventPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	event := events.NewOrderPlacedEvent(
		order.OrderID,
		order.UserID,
		order.FinalAmount,
		string(order.PaymentMethod),
		string(order.PaymentStatus),
		order.CreatedAt,
		logger.GetTraceID(ctx),
	)

	return p.publisher.Publish(ctx, events.RoutingKeyOrderPlaced, event)
}

// PublishOrderCancelled emits an order.cancelled event
func (p *RabbitMQEventPublisher) PublishOrderCancelled(ctx context.Context, order *domain.Order, itemID uint) error {
	event := events.NewOrderCancelledEvent(
		order.OrderID,
		order.UserID,
		itemID,
		order.Cancelled,
		logger.GetTraceID(ctx),
	)

	return p.publisher.Publish(ctx, events.RoutingKeyOrderCancelled, event)
}

// PublishRefundIssued emits a refund.issued event
func (p *RabbitMQEventPublisher) PublishRefundIssued(ctx context.Context, order *domain.Order, amount int64, reason string) error {
	event := events.NewRefundIssuedEvent(
		order.OrderID,
		order.UserID,
		amount,
		reason,
		logger.GetTraceID(ctx),
	)

	return p.publisher.Publish(ctx, events.RoutingKeyRefundIssued, event)
}

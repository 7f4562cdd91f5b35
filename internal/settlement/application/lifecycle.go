package application

import (
	"context"
	"time"

	"settlement/internal/settlement/domain"
	"settlement/internal/settlement/ports"
	"settlement/pkg/errors"
	"settlement/pkg/logger"

	"go.uber.org/zap"
)

// OrderUseCase drives the per-line order state machine and its side
// effects: stock restoration and wallet refunds.
type OrderUseCase struct {
	orders    ports.OrderRepository
	stock     ports.StockStore
	wallets   ports.WalletStore
	publisher ports.EventPublisher
	log       *logger.Logger
}

// NewOrderUseCase creates a new order lifecycle use case
func NewOrderUseCase(
	orders ports.OrderRepository,
	stock ports.StockStore,
	wallets ports.WalletStore,
	publisher ports.EventPublisher,
	log *logger.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		orders:    orders,
		stock:     stock,
		wallets:   wallets,
		publisher: publisher,
		log:       log,
	}
}

// GetOrder retrieves an order by its public id.
func (uc *OrderUseCase) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return uc.orders.GetByOrderID(ctx, orderID)
}

// ListUserOrders retrieves a user's orders, newest first.
func (uc *OrderUseCase) ListUserOrders(ctx context.Context, userID uint) ([]*domain.Order, error) {
	return uc.orders.ListByUser(ctx, userID)
}

// ListOrders retrieves orders for the back office.
func (uc *OrderUseCase) ListOrders(ctx context.Context, query ports.ListOrdersQuery) ([]*domain.Order, int64, error) {
	return uc.orders.List(ctx, query)
}

// AdvanceItem moves a line forward along the fulfilment chain (admin).
func (uc *OrderUseCase) AdvanceItem(ctx context.Context, orderID string, itemID uint, next domain.OrderItemStatus) (*domain.Order, error) {
	order, err := uc.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, domain.NewLineNotFound(itemID)
	}

	if !item.CanAdvance(next) {
		return nil, domain.NewInvalidTransition(string(item.Status), string(next))
	}
	won, err := uc.orders.TransitionItems(ctx, orderID, []uint{itemID},
		[]domain.OrderItemStatus{item.Status}, next)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.NewInvalidTransition(string(item.Status), string(next))
	}
	if err := item.Advance(next, time.Now()); err != nil {
		return nil, err
	}

	uc.log.WithContext(ctx).Info("order item status advanced",
		zap.String("order_id", orderID),
		zap.Uint("item_id", itemID),
		zap.String("status", string(next)),
	)
	return order, nil
}

// CancelItem cancels one pre-delivery line: the line becomes Cancelled,
// its stock is restored, and the coupon-adjusted line amount is credited
// to the wallet when the order was actually paid. The conditional store
// update decides concurrent cancels: only the request that flips the row
// runs the release and the credit.
func (uc *OrderUseCase) CancelItem(ctx context.Context, orderID string, itemID uint) (*domain.Order, error) {
	order, err := uc.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, domain.NewLineNotFound(itemID)
	}
	if !item.CanCancel() {
		return nil, domain.NewInvalidTransition(string(item.Status), string(domain.ItemCancelled))
	}

	won, err := uc.orders.TransitionItems(ctx, orderID, []uint{itemID},
		domain.CancellableStatuses, domain.ItemCancelled)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.NewInvalidTransition(string(item.Status), string(domain.ItemCancelled))
	}
	if err := item.Cancel(); err != nil {
		return nil, err
	}
	order.RecomputeCancelled()

	if err := uc.stock.Release(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
		return nil, errors.Wrap(err, "failed to restore stock")
	}

	if order.PaidOut() {
		amount := item.RefundAmount(order.CouponDiscount, order.SaleBasis())
		if err := uc.wallets.Credit(ctx, order.UserID, amount, domain.ReasonOrderCancelled, order.OrderID); err != nil {
			return nil, errors.Wrap(err, "failed to credit refund")
		}
		uc.publishRefund(ctx, order, amount, domain.ReasonOrderCancelled)
	}

	uc.publishCancelled(ctx, order, itemID)
	return order, nil
}

// CancelOrder cancels every line of an order. All-or-nothing: the bulk
// request is rejected unless every line independently satisfies the
// pre-delivery precondition. The refund for a full cancellation is the
// order's final payable amount, credited once.
func (uc *OrderUseCase) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := uc.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]uint, len(order.Items))
	for i := range order.Items {
		if !order.Items[i].CanCancel() {
			return nil, errors.New(errors.CodeInvalidTransition,
				"cannot cancel the order: some items are already delivered, cancelled, or returned", nil)
		}
		itemIDs[i] = order.Items[i].ID
	}

	won, err := uc.orders.TransitionItems(ctx, orderID, itemIDs,
		domain.CancellableStatuses, domain.ItemCancelled)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, errors.New(errors.CodeInvalidTransition,
			"cannot cancel the order: some items are already delivered, cancelled, or returned", nil)
	}
	for i := range order.Items {
		if err := order.Items[i].Cancel(); err != nil {
			return nil, err
		}
	}
	order.RecomputeCancelled()

	for _, item := range order.Items {
		if err := uc.stock.Release(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
			return nil, errors.Wrap(err, "failed to restore stock")
		}
	}

	if order.PaidOut() {
		if err := uc.wallets.Credit(ctx, order.UserID, order.FinalAmount, domain.ReasonOrderCancelled, order.OrderID); err != nil {
			return nil, errors.Wrap(err, "failed to credit refund")
		}
		uc.publishRefund(ctx, order, order.FinalAmount, domain.ReasonOrderCancelled)
	}

	uc.publishCancelled(ctx, order, 0)
	return order, nil
}

// RequestReturn opens a pending return request on a delivered line.
func (uc *OrderUseCase) RequestReturn(ctx context.Context, orderID string, itemID uint, reason string) (*domain.Order, error) {
	order, err := uc.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, domain.NewLineNotFound(itemID)
	}

	if err := item.RequestReturn(reason, time.Now()); err != nil {
		return nil, err
	}
	if err := uc.orders.Update(ctx, order); err != nil {
		return nil, errors.NewInternal("failed to update order", err)
	}
	return order, nil
}

// ApproveReturn approves a pending return on a delivered line: the line
// becomes Returned and its stock is restored. The refund is a separate
// step (RefundReturn), not automatic.
func (uc *OrderUseCase) ApproveReturn(ctx context.Context, orderID string, itemID uint) (*domain.Order, error) {
	order, err := uc.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, domain.NewLineNotFound(itemID)
	}

	if !item.CanApproveReturn() {
		return nil, domain.NewInvalidTransition(string(item.Status), string(domain.ItemReturned))
	}
	won, err := uc.orders.TransitionReturns(ctx, orderID, []uint{itemID},
		domain.ReturnPending, domain.ReturnApproved)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.NewInvalidTransition(string(item.Status), string(domain.ItemReturned))
	}
	if err := item.ApproveReturn(time.Now()); err != nil {
		return nil, err
	}
	order.RecomputeCancelled()

	if err := uc.stock.Release(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
		return nil, errors.Wrap(err, "failed to restore stock")
	}

	uc.log.WithContext(ctx).Info("return approved",
		zap.String("order_id", orderID),
		zap.Uint("item_id", itemID),
	)
	return order, nil
}

// ApproveAllReturns approves every pending return of an order.
// All-or-nothing: rejected unless every line has an approvable request.
func (uc *OrderUseCase) ApproveAllReturns(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := uc.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]uint, len(order.Items))
	for i := range order.Items {
		if !order.Items[i].CanApproveReturn() {
			return nil, errors.New(errors.CodeInvalidTransition,
				"cannot approve all returns: some items have no pending return request", nil)
		}
		itemIDs[i] = order.Items[i].ID
	}

	won, err := uc.orders.TransitionReturns(ctx, orderID, itemIDs,
		domain.ReturnPending, domain.ReturnApproved)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, errors.New(errors.CodeInvalidTransition,
			"cannot approve all returns: some items have no pending return request", nil)
	}
	now := time.Now()
	for i := range order.Items {
		if err := order.Items[i].ApproveReturn(now); err != nil {
			return nil, err
		}
	}
	order.RecomputeCancelled()

	for _, item := range order.Items {
		if err := uc.stock.Release(ctx, item.ProductID, item.Size, item.Quantity); err != nil {
			return nil, errors.Wrap(err, "failed to restore stock")
		}
	}

	return order, nil
}

// RejectReturn rejects a pending return. Terminal: the line stays
// Delivered and no money moves.
func (uc *OrderUseCase) RejectReturn(ctx context.Context, orderID string, itemID uint) (*domain.Order, error) {
	order, err := uc.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, domain.NewLineNotFound(itemID)
	}

	if !item.CanApproveReturn() {
		return nil, domain.NewInvalidTransition(string(item.Status), string(domain.ReturnRejected))
	}
	won, err := uc.orders.TransitionReturns(ctx, orderID, []uint{itemID},
		domain.ReturnPending, domain.ReturnRejected)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.NewInvalidTransition(string(item.Status), string(domain.ReturnRejected))
	}
	if err := item.RejectReturn(time.Now()); err != nil {
		return nil, err
	}
	return order, nil
}

// RefundReturnOutput reports the credited amount.
type RefundReturnOutput struct {
	Order  *domain.Order
	Amount int64
}

// RefundReturn pays out an approved return to the wallet: the line's sale
// total minus its proportional coupon share, with the last refund of a
// full-order return absorbing the rounding residual. The conditional
// Approved -> Refunded update decides the race, so a double refund fails
// before any credit.
func (uc *OrderUseCase) RefundReturn(ctx context.Context, orderID string, itemID uint) (*RefundReturnOutput, error) {
	order, err := uc.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, domain.NewLineNotFound(itemID)
	}
	if !item.CanRefundReturn() {
		return nil, domain.NewInvalidTransition("return not approved", string(domain.ReturnRefunded))
	}

	won, err := uc.orders.TransitionReturns(ctx, orderID, []uint{itemID},
		domain.ReturnApproved, domain.ReturnRefunded)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.NewInvalidTransition("return not approved", string(domain.ReturnRefunded))
	}
	if err := item.MarkRefunded(); err != nil {
		return nil, err
	}
	amount := order.ReturnRefund(itemID)

	if err := uc.wallets.Credit(ctx, order.UserID, amount, domain.ReasonOrderReturned, order.OrderID); err != nil {
		return nil, errors.Wrap(err, "failed to credit refund")
	}

	uc.publishRefund(ctx, order, amount, domain.ReasonOrderReturned)
	uc.log.WithContext(ctx).Info("return refunded",
		zap.String("order_id", orderID),
		zap.Uint("item_id", itemID),
		zap.Int64("amount", amount),
	)
	return &RefundReturnOutput{Order: order, Amount: amount}, nil
}

func (uc *OrderUseCase) publishCancelled(ctx context.Context, order *domain.Order, itemID uint) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishOrderCancelled(ctx, order, itemID); err != nil {
		uc.log.WithContext(ctx).Error("failed to publish order cancelled event",
			zap.Error(err),
			zap.String("order_id", order.OrderID),
		)
	}
}

func (uc *OrderUseCase) publishRefund(ctx context.Context, order *domain.Order, amount int64, reason string) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishRefundIssued(ctx, order, amount, reason); err != nil {
		uc.log.WithContext(ctx).Error("failed to publish refund event",
			zap.Error(err),
			zap.String("order_id", order.OrderID),
		)
	}
}

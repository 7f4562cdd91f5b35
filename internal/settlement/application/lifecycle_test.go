package application

import (
	"context"
	"testing"
	"time"

	"settlement/internal/settlement/domain"
	"settlement/pkg/errors"
	"settlement/pkg/logger"
)

type lifecycleFixture struct {
	orders    *MockOrderRepository
	stock     *MockStockStore
	wallets   *MockWalletStore
	publisher *MockEventPublisher
	useCase   *OrderUseCase
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		orders:    NewMockOrderRepository(),
		stock:     NewMockStockStore(),
		wallets:   NewMockWalletStore(),
		publisher: &MockEventPublisher{},
	}
	log := logger.New("test", "debug")
	f.useCase = NewOrderUseCase(f.orders, f.stock, f.wallets, f.publisher, log)
	return f
}

// seedOrder creates a two-line wallet-paid order: 400 + 600 sale totals
// with a 100 coupon discount, final amount 900.
func (f *lifecycleFixture) seedOrder() *domain.Order {
	cart := &domain.Cart{
		UserID: 1,
		Items: []domain.CartItem{
			{ProductID: 1, Size: "M", Quantity: 1, SalePrice: 400, RegularPrice: 500},
			{ProductID: 2, Size: "L", Quantity: 2, SalePrice: 300, RegularPrice: 350},
		},
	}
	cart.Items[0].Reprice(1)
	cart.Items[1].Reprice(2)
	cart.Recalculate()

	couponID := uint(5)
	order := domain.NewOrder(1, cart, domain.AddressSnapshot{}, domain.PaymentWallet, domain.PaymentSuccess, &couponID, 100, 900)
	_ = f.orders.Create(context.Background(), order)
	return order
}

func TestCancelItem_RefundsAndRestoresStock(t *testing.T) {
	// Arrange
	f := newLifecycleFixture()
	order := f.seedOrder()

	// Act: cancel the 400 line
	result, err := f.useCase.CancelItem(context.Background(), order.OrderID, order.Items[0].ID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Items[0].Status != domain.ItemCancelled {
		t.Errorf("expected Cancelled, got %s", result.Items[0].Status)
	}
	if result.Cancelled {
		t.Error("expected order still live while a line remains")
	}
	if len(f.stock.releases) != 1 {
		t.Fatalf("expected 1 stock release, got %d", len(f.stock.releases))
	}
	if f.stock.releases[0].qty != 1 {
		t.Errorf("expected 1 unit released, got %d", f.stock.releases[0].qty)
	}

	// 400 minus its 40 share of the 100 discount
	if len(f.wallets.credits) != 1 {
		t.Fatalf("expected 1 wallet credit, got %d", len(f.wallets.credits))
	}
	credit := f.wallets.credits[0]
	if credit.amount != 360 {
		t.Errorf("expected refund 360, got %d", credit.amount)
	}
	if credit.reason != domain.ReasonOrderCancelled {
		t.Errorf("expected reason %q, got %q", domain.ReasonOrderCancelled, credit.reason)
	}
}

func TestCancelItem_SecondCancelFailsBeforeSideEffects(t *testing.T) {
	// Arrange
	f := newLifecycleFixture()
	order := f.seedOrder()
	if _, err := f.useCase.CancelItem(context.Background(), order.OrderID, order.Items[0].ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	// Act
	_, err := f.useCase.CancelItem(context.Background(), order.OrderID, order.Items[0].ID)

	// Assert: guard failed first, no duplicate release or credit
	if !errors.Is(err, errors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	if len(f.stock.releases) != 1 {
		t.Errorf("expected 1 release total, got %d", len(f.stock.releases))
	}
	if len(f.wallets.credits) != 1 {
		t.Errorf("expected 1 credit total, got %d", len(f.wallets.credits))
	}
}

func TestCancelItem_CODNoRefund(t *testing.T) {
	// Arrange: COD collected nothing up front
	f := newLifecycleFixture()
	cart := &domain.Cart{
		UserID: 1,
		Items:  []domain.CartItem{{ProductID: 1, Size: "M", Quantity: 1, SalePrice: 400, RegularPrice: 500}},
	}
	cart.Items[0].Reprice(1)
	cart.Recalculate()
	order := domain.NewOrder(1, cart, domain.AddressSnapshot{}, domain.PaymentCOD, domain.PaymentSuccess, nil, 0, 400)
	_ = f.orders.Create(context.Background(), order)

	// Act
	result, err := f.useCase.CancelItem(context.Background(), order.OrderID, order.Items[0].ID)

	// Assert: stock restored, no money moves
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Cancelled {
		t.Error("expected order fully cancelled")
	}
	if len(f.stock.releases) != 1 {
		t.Errorf("expected 1 release, got %d", len(f.stock.releases))
	}
	if len(f.wallets.credits) != 0 {
		t.Errorf("expected no credit for COD, got %d", len(f.wallets.credits))
	}
}

func TestCancelOrder_AllOrNothing(t *testing.T) {
	// Arrange: one line already delivered
	f := newLifecycleFixture()
	order := f.seedOrder()
	if err := order.Items[1].Advance(domain.ItemDelivered, time.Now()); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Act
	_, err := f.useCase.CancelOrder(context.Background(), order.OrderID)

	// Assert: rejected wholesale, nothing mutated
	if !errors.Is(err, errors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	stored, _ := f.orders.GetByOrderID(context.Background(), order.OrderID)
	if stored.Items[0].Status != domain.ItemPlaced {
		t.Errorf("expected untouched line, got %s", stored.Items[0].Status)
	}
	if len(f.stock.releases) != 0 || len(f.wallets.credits) != 0 {
		t.Error("expected no side effects on rejected bulk cancel")
	}
}

func TestCancelOrder_RefundsFinalAmountOnce(t *testing.T) {
	// Arrange
	f := newLifecycleFixture()
	order := f.seedOrder()

	// Act
	result, err := f.useCase.CancelOrder(context.Background(), order.OrderID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Cancelled {
		t.Error("expected order cancelled")
	}
	if len(f.stock.releases) != 2 {
		t.Errorf("expected 2 releases, got %d", len(f.stock.releases))
	}
	if len(f.wallets.credits) != 1 {
		t.Fatalf("expected a single credit, got %d", len(f.wallets.credits))
	}
	if f.wallets.credits[0].amount != 900 {
		t.Errorf("expected refund of the final amount 900, got %d", f.wallets.credits[0].amount)
	}
}

func TestReturnFlow_ApproveThenRefund(t *testing.T) {
	// Arrange: deliver the 600 line and request a return
	f := newLifecycleFixture()
	order := f.seedOrder()
	itemID := order.Items[1].ID
	if _, err := f.useCase.AdvanceItem(context.Background(), order.OrderID, itemID, domain.ItemDelivered); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := f.useCase.RequestReturn(context.Background(), order.OrderID, itemID, "wrong size"); err != nil {
		t.Fatalf("request return: %v", err)
	}

	// Act: approve
	result, err := f.useCase.ApproveReturn(context.Background(), order.OrderID, itemID)
	if err != nil {
		t.Fatalf("approve return: %v", err)
	}

	// Assert: stock restored, no refund yet
	if result.Item(itemID).Status != domain.ItemReturned {
		t.Errorf("expected Returned, got %s", result.Item(itemID).Status)
	}
	if len(f.stock.releases) != 1 {
		t.Errorf("expected 1 release on approval, got %d", len(f.stock.releases))
	}
	if len(f.wallets.credits) != 0 {
		t.Errorf("expected no credit before the refund step, got %d", len(f.wallets.credits))
	}

	// Act: refund
	refund, err := f.useCase.RefundReturn(context.Background(), order.OrderID, itemID)
	if err != nil {
		t.Fatalf("refund return: %v", err)
	}

	// Assert: 600 minus its 60 share of the 100 discount
	if refund.Amount != 540 {
		t.Errorf("expected refund 540, got %d", refund.Amount)
	}
	if len(f.wallets.credits) != 1 {
		t.Fatalf("expected 1 credit, got %d", len(f.wallets.credits))
	}
	if f.wallets.credits[0].reason != domain.ReasonOrderReturned {
		t.Errorf("expected reason %q, got %q", domain.ReasonOrderReturned, f.wallets.credits[0].reason)
	}

	// A second refund fails before any credit
	if _, err := f.useCase.RefundReturn(context.Background(), order.OrderID, itemID); err == nil {
		t.Error("expected double refund to fail")
	}
	if len(f.wallets.credits) != 1 {
		t.Errorf("expected 1 credit after double refund attempt, got %d", len(f.wallets.credits))
	}
}

func TestRejectReturn_NoMoneyMoves(t *testing.T) {
	// Arrange
	f := newLifecycleFixture()
	order := f.seedOrder()
	itemID := order.Items[0].ID
	if _, err := f.useCase.AdvanceItem(context.Background(), order.OrderID, itemID, domain.ItemDelivered); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := f.useCase.RequestReturn(context.Background(), order.OrderID, itemID, "changed my mind"); err != nil {
		t.Fatalf("request return: %v", err)
	}

	// Act
	result, err := f.useCase.RejectReturn(context.Background(), order.OrderID, itemID)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Item(itemID).Status != domain.ItemDelivered {
		t.Errorf("expected line to stay Delivered, got %s", result.Item(itemID).Status)
	}
	if len(f.stock.releases) != 0 || len(f.wallets.credits) != 0 {
		t.Error("expected no side effects on rejection")
	}
}

func TestApproveAllReturns_AllOrNothing(t *testing.T) {
	// Arrange: only one of two lines has a pending request
	f := newLifecycleFixture()
	order := f.seedOrder()
	for _, itemID := range []uint{order.Items[0].ID, order.Items[1].ID} {
		if _, err := f.useCase.AdvanceItem(context.Background(), order.OrderID, itemID, domain.ItemDelivered); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if _, err := f.useCase.RequestReturn(context.Background(), order.OrderID, order.Items[0].ID, "wrong size"); err != nil {
		t.Fatalf("request return: %v", err)
	}

	// Act
	_, err := f.useCase.ApproveAllReturns(context.Background(), order.OrderID)

	// Assert
	if !errors.Is(err, errors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	if len(f.stock.releases) != 0 {
		t.Errorf("expected no releases, got %d", len(f.stock.releases))
	}

	// With both requested, the bulk approval goes through
	if _, err := f.useCase.RequestReturn(context.Background(), order.OrderID, order.Items[1].ID, "wrong size"); err != nil {
		t.Fatalf("request return: %v", err)
	}
	result, err := f.useCase.ApproveAllReturns(context.Background(), order.OrderID)
	if err != nil {
		t.Fatalf("approve all: %v", err)
	}
	if !result.Cancelled {
		t.Error("expected order marked cancelled once every line is returned")
	}
	if len(f.stock.releases) != 2 {
		t.Errorf("expected 2 releases, got %d", len(f.stock.releases))
	}
}

func TestCancelItem_LostRaceReleasesNothing(t *testing.T) {
	// Arrange: a concurrent cancel flips the row between this request's
	// read and its conditional update
	f := newLifecycleFixture()
	order := f.seedOrder()
	f.orders.transitionItemsFn = func(ctx context.Context, orderID string, itemIDs []uint, from []domain.OrderItemStatus, next domain.OrderItemStatus) (bool, error) {
		return false, nil
	}

	// Act
	_, err := f.useCase.CancelItem(context.Background(), order.OrderID, order.Items[0].ID)

	// Assert: the loser moves no stock and no money
	if !errors.Is(err, errors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	if len(f.stock.releases) != 0 {
		t.Errorf("expected no releases, got %d", len(f.stock.releases))
	}
	if len(f.wallets.credits) != 0 {
		t.Errorf("expected no credits, got %d", len(f.wallets.credits))
	}
}

func TestRefundReturn_LostRaceCreditsNothing(t *testing.T) {
	// Arrange: an approved return whose refund row is flipped by a
	// concurrent request
	f := newLifecycleFixture()
	order := f.seedOrder()
	itemID := order.Items[1].ID
	if _, err := f.useCase.AdvanceItem(context.Background(), order.OrderID, itemID, domain.ItemDelivered); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := f.useCase.RequestReturn(context.Background(), order.OrderID, itemID, "wrong size"); err != nil {
		t.Fatalf("request return: %v", err)
	}
	if _, err := f.useCase.ApproveReturn(context.Background(), order.OrderID, itemID); err != nil {
		t.Fatalf("approve return: %v", err)
	}
	f.orders.transitionReturnsFn = func(ctx context.Context, orderID string, itemIDs []uint, from, next domain.ReturnStatus) (bool, error) {
		return false, nil
	}
	creditsBefore := len(f.wallets.credits)

	// Act
	_, err := f.useCase.RefundReturn(context.Background(), order.OrderID, itemID)

	// Assert
	if !errors.Is(err, errors.CodeInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
	if len(f.wallets.credits) != creditsBefore {
		t.Errorf("expected no extra credit, got %d", len(f.wallets.credits)-creditsBefore)
	}
}

func TestRefundReturn_FullOrderReturnSumsToFinalAmount(t *testing.T) {
	// Arrange: three equal 100 lines and a 100 coupon whose per-line
	// shares round to 33 each
	f := newLifecycleFixture()
	cart := &domain.Cart{
		UserID: 1,
		Items: []domain.CartItem{
			{ProductID: 1, Size: "M", Quantity: 1, SalePrice: 100, RegularPrice: 120},
			{ProductID: 2, Size: "M", Quantity: 1, SalePrice: 100, RegularPrice: 120},
			{ProductID: 3, Size: "M", Quantity: 1, SalePrice: 100, RegularPrice: 120},
		},
	}
	for i := range cart.Items {
		cart.Items[i].Reprice(1)
	}
	cart.Recalculate()
	couponID := uint(5)
	order := domain.NewOrder(1, cart, domain.AddressSnapshot{}, domain.PaymentWallet, domain.PaymentSuccess, &couponID, 100, 200)
	_ = f.orders.Create(context.Background(), order)

	// Act: return and refund every line
	var total, last int64
	for _, itemID := range []uint{order.Items[0].ID, order.Items[1].ID, order.Items[2].ID} {
		if _, err := f.useCase.AdvanceItem(context.Background(), order.OrderID, itemID, domain.ItemDelivered); err != nil {
			t.Fatalf("advance: %v", err)
		}
		if _, err := f.useCase.RequestReturn(context.Background(), order.OrderID, itemID, "wrong size"); err != nil {
			t.Fatalf("request return: %v", err)
		}
		if _, err := f.useCase.ApproveReturn(context.Background(), order.OrderID, itemID); err != nil {
			t.Fatalf("approve return: %v", err)
		}
		refund, err := f.useCase.RefundReturn(context.Background(), order.OrderID, itemID)
		if err != nil {
			t.Fatalf("refund return: %v", err)
		}
		total += refund.Amount
		last = refund.Amount
	}

	// Assert: 67 + 67 then the residual-absorbing 66, never 201 in total
	if total != 200 {
		t.Errorf("expected refunds summing to the final amount 200, got %d", total)
	}
	if last != 66 {
		t.Errorf("expected last refund 66, got %d", last)
	}
}

func TestAdvanceItem_BackwardRejected(t *testing.T) {
	// Arrange
	f := newLifecycleFixture()
	order := f.seedOrder()
	itemID := order.Items[0].ID
	if _, err := f.useCase.AdvanceItem(context.Background(), order.OrderID, itemID, domain.ItemShipped); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Act
	_, err := f.useCase.AdvanceItem(context.Background(), order.OrderID, itemID, domain.ItemPlaced)

	// Assert
	if !errors.Is(err, errors.CodeInvalidTransition) {
		t.Errorf("expected invalid transition error, got %v", err)
	}
}

package domain

import (
	"testing"
	"time"
)

func placedItem() OrderItem {
	return OrderItem{ID: 1, ProductID: 10, Size: "M", Quantity: 1, SalePrice: 500, TotalSalePrice: 500, Status: ItemPlaced}
}

func TestOrderItemAdvance(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		from    OrderItemStatus
		to      OrderItemStatus
		wantErr bool
	}{
		{"placed to shipped", ItemPlaced, ItemShipped, false},
		{"shipped to out for delivery", ItemShipped, ItemOutForDelivery, false},
		{"out for delivery to delivered", ItemOutForDelivery, ItemDelivered, false},
		{"skip ahead to delivered", ItemPlaced, ItemDelivered, false},
		{"backward move rejected", ItemShipped, ItemPlaced, true},
		{"same status rejected", ItemShipped, ItemShipped, true},
		{"into cancelled rejected", ItemPlaced, ItemCancelled, true},
		{"from cancelled rejected", ItemCancelled, ItemShipped, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := placedItem()
			item.Status = tt.from

			err := item.Advance(tt.to, now)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestOrderItemAdvance_DeliveredStampsDate(t *testing.T) {
	item := placedItem()
	now := time.Now()

	if err := item.Advance(ItemDelivered, now); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if item.DeliveryDate == nil || !item.DeliveryDate.Equal(now) {
		t.Errorf("expected delivery date %v, got %v", now, item.DeliveryDate)
	}
}

func TestOrderItemCancel(t *testing.T) {
	for _, status := range []OrderItemStatus{ItemPlaced, ItemShipped, ItemOutForDelivery} {
		item := placedItem()
		item.Status = status
		if err := item.Cancel(); err != nil {
			t.Errorf("expected cancel from %s to succeed, got %v", status, err)
		}
		if item.Status != ItemCancelled {
			t.Errorf("expected Cancelled, got %s", item.Status)
		}
	}

	for _, status := range []OrderItemStatus{ItemDelivered, ItemCancelled, ItemReturned} {
		item := placedItem()
		item.Status = status
		if err := item.Cancel(); err == nil {
			t.Errorf("expected cancel from %s to fail", status)
		}
	}
}

func TestReturnFlow(t *testing.T) {
	// Arrange: delivered line
	item := placedItem()
	now := time.Now()
	if err := item.Advance(ItemDelivered, now); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act + Assert: request, approve, refund
	if err := item.RequestReturn("wrong size", now); err != nil {
		t.Fatalf("request return: %v", err)
	}
	if item.ReturnRequest.Status != ReturnPending {
		t.Errorf("expected Pending, got %s", item.ReturnRequest.Status)
	}

	// A second request on the same line is rejected
	if err := item.RequestReturn("again", now); err == nil {
		t.Error("expected duplicate return request to fail")
	}

	if err := item.ApproveReturn(now); err != nil {
		t.Fatalf("approve return: %v", err)
	}
	if item.Status != ItemReturned {
		t.Errorf("expected Returned, got %s", item.Status)
	}
	if item.ReturnRequest.Status != ReturnApproved {
		t.Errorf("expected Approved, got %s", item.ReturnRequest.Status)
	}

	if err := item.MarkRefunded(); err != nil {
		t.Fatalf("mark refunded: %v", err)
	}
	if item.ReturnRequest.Status != ReturnRefunded {
		t.Errorf("expected Refunded, got %s", item.ReturnRequest.Status)
	}

	// A second refund is rejected
	if err := item.MarkRefunded(); err == nil {
		t.Error("expected double refund to fail")
	}
}

func TestRejectReturn_LineStaysDelivered(t *testing.T) {
	item := placedItem()
	now := time.Now()
	if err := item.Advance(ItemDelivered, now); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := item.RequestReturn("changed my mind", now); err != nil {
		t.Fatalf("request return: %v", err)
	}

	if err := item.RejectReturn(now); err != nil {
		t.Fatalf("reject return: %v", err)
	}

	if item.Status != ItemDelivered {
		t.Errorf("expected line to stay Delivered, got %s", item.Status)
	}
	if item.ReturnRequest.Status != ReturnRejected {
		t.Errorf("expected Rejected, got %s", item.ReturnRequest.Status)
	}

	// Refunding a rejected return is rejected
	if err := item.MarkRefunded(); err == nil {
		t.Error("expected refund of rejected return to fail")
	}
}

func TestRequestReturn_BeforeDelivery(t *testing.T) {
	item := placedItem()

	if err := item.RequestReturn("too slow", time.Now()); err == nil {
		t.Error("expected return request on undelivered line to fail")
	}
}

func TestRefundAmount(t *testing.T) {
	// Order of 400 + 600 with a 100 coupon discount: each line refunds its
	// sale total minus its share of the discount.
	first := OrderItem{TotalSalePrice: 400}
	second := OrderItem{TotalSalePrice: 600}

	if got := first.RefundAmount(100, 1000); got != 360 {
		t.Errorf("expected refund 360, got %d", got)
	}
	if got := second.RefundAmount(100, 1000); got != 540 {
		t.Errorf("expected refund 540, got %d", got)
	}
}

func TestRecomputeCancelled(t *testing.T) {
	order := &Order{Items: []OrderItem{
		{Status: ItemCancelled},
		{Status: ItemPlaced},
	}}

	order.RecomputeCancelled()
	if order.Cancelled {
		t.Error("expected order not cancelled while a line is live")
	}

	order.Items[1].Status = ItemReturned
	order.RecomputeCancelled()
	if !order.Cancelled {
		t.Error("expected order cancelled once every line is terminal")
	}
}

func TestPaidOut(t *testing.T) {
	tests := []struct {
		name   string
		method PaymentMethod
		status PaymentStatus
		want   bool
	}{
		{"wallet success", PaymentWallet, PaymentSuccess, true},
		{"gateway success", PaymentGateway, PaymentSuccess, true},
		{"cod success collected nothing up front", PaymentCOD, PaymentSuccess, false},
		{"gateway pending", PaymentGateway, PaymentPending, false},
		{"gateway failed", PaymentGateway, PaymentFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &Order{PaymentMethod: tt.method, PaymentStatus: tt.status}
			if got := order.PaidOut(); got != tt.want {
				t.Errorf("PaidOut() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkPaymentSuccess(t *testing.T) {
	order := &Order{PaymentMethod: PaymentGateway, PaymentStatus: PaymentPending}

	if err := order.MarkPaymentSuccess("pay_123"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.PaymentStatus != PaymentSuccess {
		t.Errorf("expected Success, got %s", order.PaymentStatus)
	}
	if order.GatewayPaymentID != "pay_123" {
		t.Errorf("expected payment id recorded, got %q", order.GatewayPaymentID)
	}

	// A second success, and a failure after success, are rejected
	if err := order.MarkPaymentSuccess("pay_456"); err == nil {
		t.Error("expected second success to fail")
	}
	if err := order.MarkPaymentFailed(); err == nil {
		t.Error("expected failure after success to fail")
	}
}

func TestCanRetryPayment(t *testing.T) {
	tests := []struct {
		name   string
		method PaymentMethod
		status PaymentStatus
		want   bool
	}{
		{"gateway pending", PaymentGateway, PaymentPending, true},
		{"gateway failed", PaymentGateway, PaymentFailed, true},
		{"gateway success", PaymentGateway, PaymentSuccess, false},
		{"cod", PaymentCOD, PaymentPending, false},
		{"wallet", PaymentWallet, PaymentFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &Order{PaymentMethod: tt.method, PaymentStatus: tt.status}
			if got := order.CanRetryPayment(); got != tt.want {
				t.Errorf("CanRetryPayment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewOrderSnapshotsCart(t *testing.T) {
	// Arrange
	cart := &Cart{
		UserID: 7,
		Items: []CartItem{
			{ProductID: 1, Size: "M", Quantity: 2, SalePrice: 400, RegularPrice: 500, TotalSalePrice: 800, TotalRegularPrice: 1000},
		},
	}
	cart.Recalculate()

	// Act
	order := NewOrder(7, cart, AddressSnapshot{City: "Kochi"}, PaymentCOD, PaymentSuccess, nil, 0, 800)

	// Assert
	if order.OrderID == "" {
		t.Error("expected a generated order id")
	}
	if len(order.Items) != 1 || order.Items[0].Status != ItemPlaced {
		t.Fatalf("expected one Placed line, got %+v", order.Items)
	}
	if order.FinalAmount != 800 {
		t.Errorf("expected final amount 800, got %d", order.FinalAmount)
	}
	if order.SaleBasis() != 800 {
		t.Errorf("expected sale basis 800, got %d", order.SaleBasis())
	}

	// Mutating the cart afterwards must not touch the order
	cart.Items[0].Reprice(5)
	if order.Items[0].Quantity != 2 {
		t.Error("order line mutated through the cart")
	}
}

func TestWalletAuditBalance(t *testing.T) {
	wallet := &Wallet{
		Balance: 150,
		Transactions: []WalletTransaction{
			{Type: TransactionCredit, Amount: 200, Reason: ReasonOrderCancelled},
			{Type: TransactionDebit, Amount: 50, Reason: ReasonOrderPurchase},
		},
	}

	if got := wallet.AuditBalance(); got != 150 {
		t.Errorf("expected audited balance 150, got %d", got)
	}
}

package application

import (
	"context"
	"time"

	"settlement/internal/settlement/domain"
	"settlement/internal/settlement/ports"
)

// MockCartRepository is a mock implementation of CartRepository
type MockCartRepository struct {
	carts   map[uint]*domain.Cart
	saves   int
	clears  int
	saveFn  func(ctx context.Context, cart *domain.Cart) error
	clearFn func(ctx context.Context, userID uint) error
}

func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{carts: make(map[uint]*domain.Cart)}
}

func (m *MockCartRepository) GetByUser(ctx context.Context, userID uint) (*domain.Cart, error) {
	cart, ok := m.carts[userID]
	if !ok {
		return &domain.Cart{UserID: userID}, nil
	}
	return cart, nil
}

func (m *MockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, cart)
	}
	m.saves++
	m.carts[cart.UserID] = cart
	return nil
}

func (m *MockCartRepository) Clear(ctx context.Context, userID uint) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	m.clears++
	m.carts[userID] = &domain.Cart{UserID: userID}
	return nil
}

// MockOrderRepository is a mock implementation of OrderRepository. Reads
// return detached copies so state only changes through Update and the
// conditional transitions, the way a real store behaves.
type MockOrderRepository struct {
	orders              map[string]*domain.Order
	nextID              uint
	updates             int
	transitions         int
	transitionItemsFn   func(ctx context.Context, orderID string, itemIDs []uint, from []domain.OrderItemStatus, next domain.OrderItemStatus) (bool, error)
	transitionReturnsFn func(ctx context.Context, orderID string, itemIDs []uint, from, next domain.ReturnStatus) (bool, error)
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[string]*domain.Order), nextID: 1}
}

func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.Items = make([]domain.OrderItem, len(order.Items))
	copy(clone.Items, order.Items)
	for i := range clone.Items {
		if rr := clone.Items[i].ReturnRequest; rr != nil {
			rrCopy := *rr
			clone.Items[i].ReturnRequest = &rrCopy
		}
	}
	return &clone
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	order.ID = m.nextID
	m.nextID++
	for i := range order.Items {
		order.Items[i].ID = uint(i + 1)
	}
	m.orders[order.OrderID] = order
	return nil
}

func (m *MockOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, domain.NewOrderNotFound(orderID)
	}
	return cloneOrder(order), nil
}

func (m *MockOrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	for _, order := range m.orders {
		if order.GatewayOrderID == gatewayOrderID {
			return cloneOrder(order), nil
		}
	}
	return nil, domain.NewOrderNotFound(gatewayOrderID)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	m.updates++
	m.orders[order.OrderID] = cloneOrder(order)
	return nil
}

func (m *MockOrderRepository) TransitionItems(ctx context.Context, orderID string, itemIDs []uint, from []domain.OrderItemStatus, next domain.OrderItemStatus) (bool, error) {
	if m.transitionItemsFn != nil {
		return m.transitionItemsFn(ctx, orderID, itemIDs, from, next)
	}
	order, ok := m.orders[orderID]
	if !ok {
		return false, domain.NewOrderNotFound(orderID)
	}

	var lines []*domain.OrderItem
	for _, id := range itemIDs {
		item := order.Item(id)
		if item == nil {
			return false, nil
		}
		matched := false
		for _, s := range from {
			if item.Status == s {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
		lines = append(lines, item)
	}

	now := time.Now()
	for _, item := range lines {
		item.Status = next
		if next == domain.ItemDelivered {
			item.DeliveryDate = &now
		}
	}
	order.RecomputeCancelled()
	m.transitions++
	return true, nil
}

func (m *MockOrderRepository) TransitionReturns(ctx context.Context, orderID string, itemIDs []uint, from, next domain.ReturnStatus) (bool, error) {
	if m.transitionReturnsFn != nil {
		return m.transitionReturnsFn(ctx, orderID, itemIDs, from, next)
	}
	order, ok := m.orders[orderID]
	if !ok {
		return false, domain.NewOrderNotFound(orderID)
	}

	var lines []*domain.OrderItem
	for _, id := range itemIDs {
		item := order.Item(id)
		if item == nil || item.ReturnRequest == nil || item.ReturnRequest.Status != from {
			return false, nil
		}
		if from == domain.ReturnPending && item.Status != domain.ItemDelivered {
			return false, nil
		}
		lines = append(lines, item)
	}

	now := time.Now()
	for _, item := range lines {
		item.ReturnRequest.Status = next
		switch next {
		case domain.ReturnApproved:
			item.Status = domain.ItemReturned
			item.ReturnRequest.ApprovedAt = &now
		case domain.ReturnRejected:
			item.ReturnRequest.RejectedAt = &now
		}
	}
	order.RecomputeCancelled()
	m.transitions++
	return true, nil
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID uint) ([]*domain.Order, error) {
	var orders []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *MockOrderRepository) List(ctx context.Context, query ports.ListOrdersQuery) ([]*domain.Order, int64, error) {
	var orders []*domain.Order
	for _, order := range m.orders {
		if !order.Cancelled {
			orders = append(orders, order)
		}
	}
	return orders, int64(len(orders)), nil
}

// MockStockStore is a mock implementation of StockStore
type MockStockStore struct {
	products map[uint]*domain.ProductStock
	reserves []stockOp
	releases []stockOp
}

type stockOp struct {
	productID uint
	size      string
	qty       int64
}

func NewMockStockStore() *MockStockStore {
	return &MockStockStore{products: make(map[uint]*domain.ProductStock)}
}

func (m *MockStockStore) SetStock(productID uint, size string, quantity int64) {
	product, ok := m.products[productID]
	if !ok {
		product = &domain.ProductStock{ProductID: productID}
		m.products[productID] = product
	}
	for i := range product.Variants {
		if product.Variants[i].Size == size {
			product.TotalQuantity += quantity - product.Variants[i].Quantity
			product.Variants[i].Quantity = quantity
			product.Status = domain.StatusForQuantity(product.TotalQuantity)
			return
		}
	}
	product.Variants = append(product.Variants, domain.SizeVariant{Size: size, Quantity: quantity})
	product.TotalQuantity += quantity
	product.Status = domain.StatusForQuantity(product.TotalQuantity)
}

func (m *MockStockStore) Get(ctx context.Context, productID uint) (*domain.ProductStock, error) {
	product, ok := m.products[productID]
	if !ok {
		return nil, domain.NewInsufficientStock(productID, "", 0)
	}
	return product, nil
}

func (m *MockStockStore) Reserve(ctx context.Context, productID uint, size string, qty int64) error {
	product, ok := m.products[productID]
	if !ok {
		return domain.NewInsufficientStock(productID, size, 0)
	}
	variant := product.Variant(size)
	if variant == nil || variant.Quantity < qty {
		var available int64
		if variant != nil {
			available = variant.Quantity
		}
		return domain.NewInsufficientStock(productID, size, available)
	}
	variant.Quantity -= qty
	product.TotalQuantity -= qty
	m.reserves = append(m.reserves, stockOp{productID, size, qty})
	return nil
}

func (m *MockStockStore) Release(ctx context.Context, productID uint, size string, qty int64) error {
	product, ok := m.products[productID]
	if !ok {
		product = &domain.ProductStock{ProductID: productID}
		m.products[productID] = product
	}
	variant := product.Variant(size)
	if variant == nil {
		product.Variants = append(product.Variants, domain.SizeVariant{Size: size, Quantity: qty})
	} else {
		variant.Quantity += qty
	}
	product.TotalQuantity += qty
	m.releases = append(m.releases, stockOp{productID, size, qty})
	return nil
}

// MockWalletStore is a mock implementation of WalletStore
type MockWalletStore struct {
	wallets map[uint]*domain.Wallet
	credits []walletOp
	debits  []walletOp
}

type walletOp struct {
	userID  uint
	amount  int64
	reason  string
	orderID string
}

func NewMockWalletStore() *MockWalletStore {
	return &MockWalletStore{wallets: make(map[uint]*domain.Wallet)}
}

func (m *MockWalletStore) SetBalance(userID uint, balance int64) {
	m.wallets[userID] = &domain.Wallet{UserID: userID, Balance: balance}
}

func (m *MockWalletStore) GetByUser(ctx context.Context, userID uint) (*domain.Wallet, error) {
	wallet, ok := m.wallets[userID]
	if !ok {
		return &domain.Wallet{UserID: userID}, nil
	}
	return wallet, nil
}

func (m *MockWalletStore) Credit(ctx context.Context, userID uint, amount int64, reason, orderID string) error {
	if amount <= 0 {
		return domain.ErrNegativeAmount
	}
	wallet, ok := m.wallets[userID]
	if !ok {
		wallet = &domain.Wallet{UserID: userID}
		m.wallets[userID] = wallet
	}
	wallet.Balance += amount
	wallet.Transactions = append(wallet.Transactions, domain.WalletTransaction{
		Type: domain.TransactionCredit, Amount: amount, Reason: reason, OrderID: orderID, Date: time.Now(),
	})
	m.credits = append(m.credits, walletOp{userID, amount, reason, orderID})
	return nil
}

func (m *MockWalletStore) Debit(ctx context.Context, userID uint, amount int64, reason, orderID string) error {
	if amount <= 0 {
		return domain.ErrNegativeAmount
	}
	wallet, ok := m.wallets[userID]
	if !ok || wallet.Balance < amount {
		var balance int64
		if ok {
			balance = wallet.Balance
		}
		return domain.NewInsufficientFunds(balance, amount)
	}
	wallet.Balance -= amount
	wallet.Transactions = append(wallet.Transactions, domain.WalletTransaction{
		Type: domain.TransactionDebit, Amount: amount, Reason: reason, OrderID: orderID, Date: time.Now(),
	})
	m.debits = append(m.debits, walletOp{userID, amount, reason, orderID})
	return nil
}

// MockCouponStore is a mock implementation of CouponStore
type MockCouponStore struct {
	coupons      map[uint]*domain.Coupon
	redeemed     map[[2]uint]bool
	nextID       uint
	redeems      int
	isRedeemedFn func(ctx context.Context, userID, couponID uint) (bool, error)
}

func NewMockCouponStore() *MockCouponStore {
	return &MockCouponStore{
		coupons:  make(map[uint]*domain.Coupon),
		redeemed: make(map[[2]uint]bool),
		nextID:   1,
	}
}

func (m *MockCouponStore) GetByID(ctx context.Context, id uint) (*domain.Coupon, error) {
	coupon, ok := m.coupons[id]
	if !ok {
		return nil, domain.NewCouponNotFound(id)
	}
	return coupon, nil
}

func (m *MockCouponStore) Create(ctx context.Context, coupon *domain.Coupon) error {
	coupon.ID = m.nextID
	m.nextID++
	m.coupons[coupon.ID] = coupon
	return nil
}

func (m *MockCouponStore) Delete(ctx context.Context, id uint) error {
	if _, ok := m.coupons[id]; !ok {
		return domain.NewCouponNotFound(id)
	}
	delete(m.coupons, id)
	return nil
}

func (m *MockCouponStore) List(ctx context.Context, search string, page, limit int) ([]*domain.Coupon, int64, error) {
	var coupons []*domain.Coupon
	for _, coupon := range m.coupons {
		coupons = append(coupons, coupon)
	}
	return coupons, int64(len(coupons)), nil
}

func (m *MockCouponStore) NameOrCodeExists(ctx context.Context, name, code string) (bool, error) {
	for _, coupon := range m.coupons {
		if coupon.Name == name || coupon.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCouponStore) IsRedeemed(ctx context.Context, userID, couponID uint) (bool, error) {
	if m.isRedeemedFn != nil {
		return m.isRedeemedFn(ctx, userID, couponID)
	}
	return m.redeemed[[2]uint{userID, couponID}], nil
}

func (m *MockCouponStore) MarkRedeemed(ctx context.Context, userID, couponID uint) error {
	m.redeemed[[2]uint{userID, couponID}] = true
	m.redeems++
	return nil
}

// MockCheckoutContextStore is a mock implementation of CheckoutContextStore
type MockCheckoutContextStore struct {
	contexts map[uint]*domain.CheckoutContext
}

func NewMockCheckoutContextStore() *MockCheckoutContextStore {
	return &MockCheckoutContextStore{contexts: make(map[uint]*domain.CheckoutContext)}
}

func (m *MockCheckoutContextStore) Get(ctx context.Context, userID uint) (*domain.CheckoutContext, error) {
	return m.contexts[userID], nil
}

func (m *MockCheckoutContextStore) Put(ctx context.Context, cc *domain.CheckoutContext) error {
	m.contexts[cc.UserID] = cc
	return nil
}

func (m *MockCheckoutContextStore) Clear(ctx context.Context, userID uint) error {
	delete(m.contexts, userID)
	return nil
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	createdOrders  int
	validSignature string
	createFn       func(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error)
	lastAmount     int64
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, amountMinorUnits, currency, receipt)
	}
	m.createdOrders++
	m.lastAmount = amountMinorUnits
	return "gw_order_1", nil
}

func (m *MockPaymentGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return signature == m.validSignature
}

// MockAddressProvider is a mock implementation of AddressProvider
type MockAddressProvider struct{}

func (m *MockAddressProvider) Resolve(ctx context.Context, addressID string) (domain.AddressSnapshot, error) {
	return domain.AddressSnapshot{Name: "Test User", City: "Kochi", Pincode: "682001"}, nil
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	placed    []string
	cancelled []string
	refunds   []int64
}

func (m *MockEventPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	m.placed = append(m.placed, order.OrderID)
	return nil
}

func (m *MockEventPublisher) PublishOrderCancelled(ctx context.Context, order *domain.Order, itemID uint) error {
	m.cancelled = append(m.cancelled, order.OrderID)
	return nil
}

func (m *MockEventPublisher) PublishRefundIssued(ctx context.Context, order *domain.Order, amount int64, reason string) error {
	m.refunds = append(m.refunds, amount)
	return nil
}

package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"settlement/internal/settlement/domain"
	"settlement/internal/settlement/ports"
	apperrors "settlement/pkg/errors"
)

// AddressModel is the address snapshot embedded in the order row.
type AddressModel struct {
	Name           string `gorm:"size:100"`
	Building       string `gorm:"size:200"`
	Area           string `gorm:"size:200"`
	Landmark       string `gorm:"size:200"`
	City           string `gorm:"size:100"`
	State          string `gorm:"size:100"`
	Pincode        string `gorm:"size:20"`
	Phone          string `gorm:"size:20"`
	AlternatePhone string `gorm:"size:20"`
}

// OrderModel is the GORM model for orders (persistence layer)
type OrderModel struct {
	ID                uint                 `gorm:"primaryKey"`
	OrderID           string               `gorm:"size:36;uniqueIndex;not null"`
	UserID            uint                 `gorm:"index;not null"`
	Items             []OrderItemModel     `gorm:"foreignKey:OrderModelID"`
	TotalRegularPrice int64                `gorm:"not null"`
	TotalDiscount     int64                `gorm:"not null;default:0"`
	CouponDiscount    int64                `gorm:"not null;default:0"`
	FinalAmount       int64                `gorm:"not null"`
	PaymentMethod     domain.PaymentMethod `gorm:"size:20;not null"`
	PaymentStatus     domain.PaymentStatus `gorm:"size:10;not null;default:'Pending'"`
	Address           AddressModel         `gorm:"embedded;embeddedPrefix:address_"`
	CouponID          *uint
	GatewayOrderID    string `gorm:"size:64;index"`
	GatewayPaymentID  string `gorm:"size:64"`
	Cancelled         bool   `gorm:"not null;default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the GORM model for order line items
type OrderItemModel struct {
	ID                uint                   `gorm:"primaryKey"`
	OrderModelID      uint                   `gorm:"index;not null"`
	ProductID         uint                   `gorm:"index;not null"`
	Size              string                 `gorm:"size:10"`
	Quantity          int64                  `gorm:"not null"`
	SalePrice         int64                  `gorm:"not null"`
	RegularPrice      int64                  `gorm:"not null"`
	TotalSalePrice    int64                  `gorm:"not null"`
	TotalRegularPrice int64                  `gorm:"not null"`
	Status            domain.OrderItemStatus `gorm:"size:20;not null;default:'Placed'"`
	ReturnStatus      *domain.ReturnStatus   `gorm:"size:10"`
	ReturnReason      string                 `gorm:"size:500"`
	ReturnRequestedAt *time.Time
	ReturnApprovedAt  *time.Time
	ReturnRejectedAt  *time.Time
	DeliveryDate      *time.Time
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *gorm.DB
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository
func NewPostgresOrderRepository(db *gorm.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Migrate runs auto-migration for the order models
func (r *PostgresOrderRepository) Migrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &OrderItemModel{})
}

// Create creates a new order with its line items
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := orderToModel(order)

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		return apperrors.NewInternal("failed to create order", result.Error)
	}

	order.ID = model.ID
	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt
	for i := range model.Items {
		order.Items[i].ID = model.Items[i].ID
	}

	return nil
}

// GetByOrderID retrieves an order by its public id
func (r *PostgresOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.getOne(ctx, "order_id = ?", orderID)
}

// GetByGatewayOrderID retrieves the order tied to a gateway order handle
func (r *PostgresOrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	return r.getOne(ctx, "gateway_order_id = ?", gatewayOrderID)
}

func (r *PostgresOrderRepository) getOne(ctx context.Context, query string, arg interface{}) (*domain.Order, error) {
	var model OrderModel

	result := r.db.WithContext(ctx).Preload("Items").Where(query, arg).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("order", arg)
		}
		return nil, apperrors.NewInternal("failed to get order", result.Error)
	}

	return orderToDomain(&model), nil
}

// Update persists the order header and line states
func (r *PostgresOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	model := orderToModel(order)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(model).Error; err != nil {
			return err
		}
		for i := range model.Items {
			if err := tx.Save(&model.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.NewInternal("failed to update order", err)
	}

	order.UpdatedAt = model.UpdatedAt
	return nil
}

// errTransitionLost aborts the transaction when a conditional line update
// matched fewer rows than requested, rolling back any partial effect.
var errTransitionLost = errors.New("order line transition lost")

// TransitionItems moves the given lines to next with a single conditional
// update: the statement matches only rows still in one of the from
// statuses, and anything short of a full match rolls back and reports a
// lost race. The order-level cancelled flag is refreshed in the same
// transaction.
func (r *PostgresOrderRepository) TransitionItems(ctx context.Context, orderID string, itemIDs []uint, from []domain.OrderItemStatus, next domain.OrderItemStatus) (bool, error) {
	updates := map[string]interface{}{"status": next}
	if next == domain.ItemDelivered {
		updates["delivery_date"] = time.Now()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderItemModel{}).
			Where("id IN ? AND status IN ?", itemIDs, from).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(itemIDs)) {
			return errTransitionLost
		}
		return r.refreshCancelled(tx, orderID)
	})
	if errors.Is(err, errTransitionLost) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternal("failed to transition order items", err)
	}
	return true, nil
}

// TransitionReturns moves the given lines' return requests from one
// review state to next under the same conditional-update discipline.
// Approval also flips the lines to Returned and stamps the approval time.
func (r *PostgresOrderRepository) TransitionReturns(ctx context.Context, orderID string, itemIDs []uint, from, next domain.ReturnStatus) (bool, error) {
	now := time.Now()
	updates := map[string]interface{}{"return_status": next}
	switch next {
	case domain.ReturnApproved:
		updates["status"] = domain.ItemReturned
		updates["return_approved_at"] = now
	case domain.ReturnRejected:
		updates["return_rejected_at"] = now
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&OrderItemModel{}).Where("id IN ? AND return_status = ?", itemIDs, from)
		if from == domain.ReturnPending {
			q = q.Where("status = ?", domain.ItemDelivered)
		}
		result := q.Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(itemIDs)) {
			return errTransitionLost
		}
		if next == domain.ReturnApproved {
			return r.refreshCancelled(tx, orderID)
		}
		return nil
	})
	if errors.Is(err, errTransitionLost) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternal("failed to transition return requests", err)
	}
	return true, nil
}

// refreshCancelled recomputes the order-level flag from the line rows
// inside the caller's transaction.
func (r *PostgresOrderRepository) refreshCancelled(tx *gorm.DB, orderID string) error {
	return tx.Exec(`UPDATE orders SET cancelled = NOT EXISTS (
		SELECT 1 FROM order_items
		WHERE order_items.order_model_id = orders.id
		AND order_items.status NOT IN (?, ?))
		WHERE orders.order_id = ?`,
		domain.ItemCancelled, domain.ItemReturned, orderID).Error
}

// ListByUser retrieves a user's orders, newest first
func (r *PostgresOrderRepository) ListByUser(ctx context.Context, userID uint) ([]*domain.Order, error) {
	var models []OrderModel

	result := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewInternal("failed to get orders by user", result.Error)
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = orderToDomain(&models[i])
	}

	return orders, nil
}

// List retrieves orders for the back office: paged, optionally filtered by
// line status, excluding fully cancelled orders.
func (r *PostgresOrderRepository) List(ctx context.Context, query ports.ListOrdersQuery) ([]*domain.Order, int64, error) {
	db := r.db.WithContext(ctx).Model(&OrderModel{}).Where("cancelled = ?", false)

	if query.Status != "" {
		db = db.Where("id IN (?)",
			r.db.Model(&OrderItemModel{}).Select("order_model_id").Where("status = ?", query.Status))
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, apperrors.NewInternal("failed to count orders", err)
	}

	switch query.Sort {
	case "oldest":
		db = db.Order("created_at ASC")
	case "amountHigh":
		db = db.Order("final_amount DESC")
	case "amountLow":
		db = db.Order("final_amount ASC")
	default:
		db = db.Order("created_at DESC")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	var models []OrderModel
	result := db.Preload("Items").Offset((page - 1) * limit).Limit(limit).Find(&models)
	if result.Error != nil {
		return nil, 0, apperrors.NewInternal("failed to list orders", result.Error)
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = orderToDomain(&models[i])
	}

	return orders, count, nil
}

// orderToModel converts a domain entity to GORM models
func orderToModel(order *domain.Order) *OrderModel {
	items := make([]OrderItemModel, len(order.Items))
	for i, it := range order.Items {
		items[i] = OrderItemModel{
			ID:                it.ID,
			OrderModelID:      order.ID,
			ProductID:         it.ProductID,
			Size:              it.Size,
			Quantity:          it.Quantity,
			SalePrice:         it.SalePrice,
			RegularPrice:      it.RegularPrice,
			TotalSalePrice:    it.TotalSalePrice,
			TotalRegularPrice: it.TotalRegularPrice,
			Status:            it.Status,
			DeliveryDate:      it.DeliveryDate,
		}
		if it.ReturnRequest != nil {
			status := it.ReturnRequest.Status
			requestedAt := it.ReturnRequest.RequestedAt
			items[i].ReturnStatus = &status
			items[i].ReturnReason = it.ReturnRequest.Reason
			items[i].ReturnRequestedAt = &requestedAt
			items[i].ReturnApprovedAt = it.ReturnRequest.ApprovedAt
			items[i].ReturnRejectedAt = it.ReturnRequest.RejectedAt
		}
	}

	return &OrderModel{
		ID:                order.ID,
		OrderID:           order.OrderID,
		UserID:            order.UserID,
		Items:             items,
		TotalRegularPrice: order.TotalRegularPrice,
		TotalDiscount:     order.TotalDiscount,
		CouponDiscount:    order.CouponDiscount,
		FinalAmount:       order.FinalAmount,
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     order.PaymentStatus,
		Address: AddressModel{
			Name:           order.Address.Name,
			Building:       order.Address.Building,
			Area:           order.Address.Area,
			Landmark:       order.Address.Landmark,
			City:           order.Address.City,
			State:          order.Address.State,
			Pincode:        order.Address.Pincode,
			Phone:          order.Address.Phone,
			AlternatePhone: order.Address.AlternatePhone,
		},
		CouponID:         order.CouponID,
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.GatewayPaymentID,
		Cancelled:        order.Cancelled,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

// orderToDomain converts GORM models to a domain entity
func orderToDomain(model *OrderModel) *domain.Order {
	items := make([]domain.OrderItem, len(model.Items))
	for i, m := range model.Items {
		items[i] = domain.OrderItem{
			ID:                m.ID,
			ProductID:         m.ProductID,
			Size:              m.Size,
			Quantity:          m.Quantity,
			SalePrice:         m.SalePrice,
			RegularPrice:      m.RegularPrice,
			TotalSalePrice:    m.TotalSalePrice,
			TotalRegularPrice: m.TotalRegularPrice,
			Status:            m.Status,
			DeliveryDate:      m.DeliveryDate,
		}
		if m.ReturnStatus != nil {
			var requestedAt time.Time
			if m.ReturnRequestedAt != nil {
				requestedAt = *m.ReturnRequestedAt
			}
			items[i].ReturnRequest = &domain.ReturnRequest{
				Status:      *m.ReturnStatus,
				Reason:      m.ReturnReason,
				RequestedAt: requestedAt,
				ApprovedAt:  m.ReturnApprovedAt,
				RejectedAt:  m.ReturnRejectedAt,
			}
		}
	}

	return &domain.Order{
		ID:                model.ID,
		OrderID:           model.OrderID,
		UserID:            model.UserID,
		Items:             items,
		TotalRegularPrice: model.TotalRegularPrice,
		TotalDiscount:     model.TotalDiscount,
		CouponDiscount:    model.CouponDiscount,
		FinalAmount:       model.FinalAmount,
		PaymentMethod:     model.PaymentMethod,
		PaymentStatus:     model.PaymentStatus,
		Address: domain.AddressSnapshot{
			Name:           model.Address.Name,
			Building:       model.Address.Building,
			Area:           model.Address.Area,
			Landmark:       model.Address.Landmark,
			City:           model.Address.City,
			State:          model.Address.State,
			Pincode:        model.Address.Pincode,
			Phone:          model.Address.Phone,
			AlternatePhone: model.Address.AlternatePhone,
		},
		CouponID:         model.CouponID,
		GatewayOrderID:   model.GatewayOrderID,
		GatewayPaymentID: model.GatewayPaymentID,
		Cancelled:        model.Cancelled,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

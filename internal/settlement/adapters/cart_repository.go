package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"settlement/internal/settlement/domain"
	apperrors "settlement/pkg/errors"
)

// CartModel is the GORM model for carts
type CartModel struct {
	ID                uint            `gorm:"primaryKey"`
	UserID            uint            `gorm:"uniqueIndex;not null"`
	Items             []CartItemModel `gorm:"foreignKey:CartModelID"`
	TotalQuantity     int64           `gorm:"not null;default:0"`
	TotalSalePrice    int64           `gorm:"not null;default:0"`
	TotalRegularPrice int64           `gorm:"not null;default:0"`
	TotalDiscount     int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// CartItemModel is the GORM model for cart line items
type CartItemModel struct {
	ID                uint   `gorm:"primaryKey"`
	CartModelID       uint   `gorm:"index;not null"`
	ProductID         uint   `gorm:"not null"`
	Size              string `gorm:"size:10"`
	Quantity          int64  `gorm:"not null"`
	SalePrice         int64  `gorm:"not null"`
	RegularPrice      int64  `gorm:"not null"`
	TotalSalePrice    int64  `gorm:"not null"`
	TotalRegularPrice int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// PostgresCartRepository implements CartRepository using PostgreSQL
type PostgresCartRepository struct {
	db *gorm.DB
}

// NewPostgresCartRepository creates a new PostgreSQL cart repository
func NewPostgresCartRepository(db *gorm.DB) *PostgresCartRepository {
	return &PostgresCartRepository{db: db}
}

// Migrate runs auto-migration for the cart models
func (r *PostgresCartRepository) Migrate() error {
	return r.db.AutoMigrate(&CartModel{}, &CartItemModel{})
}

// GetByUser retrieves a user's cart. A user with no cart row yet gets an
// empty cart, not an error.
func (r *PostgresCartRepository) GetByUser(ctx context.Context, userID uint) (*domain.Cart, error) {
	var model CartModel

	result := r.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &domain.Cart{UserID: userID}, nil
		}
		return nil, apperrors.NewInternal("failed to get cart", result.Error)
	}

	items := make([]domain.CartItem, len(model.Items))
	for i, m := range model.Items {
		items[i] = domain.CartItem{
			ID:                m.ID,
			ProductID:         m.ProductID,
			Size:              m.Size,
			Quantity:          m.Quantity,
			SalePrice:         m.SalePrice,
			RegularPrice:      m.RegularPrice,
			TotalSalePrice:    m.TotalSalePrice,
			TotalRegularPrice: m.TotalRegularPrice,
		}
	}

	return &domain.Cart{
		ID:                model.ID,
		UserID:            model.UserID,
		Items:             items,
		TotalQuantity:     model.TotalQuantity,
		TotalSalePrice:    model.TotalSalePrice,
		TotalRegularPrice: model.TotalRegularPrice,
		TotalDiscount:     model.TotalDiscount,
	}, nil
}

// Save upserts the cart header and replaces its line items
func (r *PostgresCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := CartModel{
			ID:                cart.ID,
			UserID:            cart.UserID,
			TotalQuantity:     cart.TotalQuantity,
			TotalSalePrice:    cart.TotalSalePrice,
			TotalRegularPrice: cart.TotalRegularPrice,
			TotalDiscount:     cart.TotalDiscount,
		}
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		cart.ID = model.ID

		if err := tx.Where("cart_model_id = ?", model.ID).Delete(&CartItemModel{}).Error; err != nil {
			return err
		}

		for i := range cart.Items {
			it := &cart.Items[i]
			row := CartItemModel{
				CartModelID:       model.ID,
				ProductID:         it.ProductID,
				Size:              it.Size,
				Quantity:          it.Quantity,
				SalePrice:         it.SalePrice,
				RegularPrice:      it.RegularPrice,
				TotalSalePrice:    it.TotalSalePrice,
				TotalRegularPrice: it.TotalRegularPrice,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			it.ID = row.ID
		}
		return nil
	})
	if err != nil {
		return apperrors.NewInternal("failed to save cart", err)
	}

	return nil
}

// Clear empties the user's cart and zeroes its totals
func (r *PostgresCartRepository) Clear(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model CartModel
		if err := tx.Where("user_id = ?", userID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Where("cart_model_id = ?", model.ID).Delete(&CartItemModel{}).Error; err != nil {
			return err
		}

		return tx.Model(&CartModel{}).Where("id = ?", model.ID).Updates(map[string]interface{}{
			"total_quantity":      0,
			"total_sale_price":    0,
			"total_regular_price": 0,
			"total_discount":      0,
		}).Error
	})
	if err != nil {
		return apperrors.NewInternal("failed to clear cart", err)
	}

	return nil
}

package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"settlement/internal/settlement/domain"
	apperrors "settlement/pkg/errors"
)

// ProductStockModel is the GORM model for product stock headers
type ProductStockModel struct {
	ID            uint               `gorm:"primaryKey"`
	ProductName   string             `gorm:"size:200;not null"`
	TotalQuantity int64              `gorm:"not null;default:0"`
	Status        domain.StockStatus `gorm:"size:20;not null;default:'In Stock'"`
	Variants      []SizeVariantModel `gorm:"foreignKey:ProductStockModelID"`
}

// TableName returns the table name for GORM
func (ProductStockModel) TableName() string {
	return "product_stock"
}

// SizeVariantModel is the GORM model for per-size stock rows
type SizeVariantModel struct {
	ID                  uint   `gorm:"primaryKey"`
	ProductStockModelID uint   `gorm:"uniqueIndex:idx_product_size;not null"`
	Size                string `gorm:"size:10;uniqueIndex:idx_product_size;not null"`
	Quantity            int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SizeVariantModel) TableName() string {
	return "product_stock_sizes"
}

// PostgresStockStore implements StockStore using PostgreSQL
type PostgresStockStore struct {
	db *gorm.DB
}

// NewPostgresStockStore creates a new PostgreSQL stock store
func NewPostgresStockStore(db *gorm.DB) *PostgresStockStore {
	return &PostgresStockStore{db: db}
}

// Migrate runs auto-migration for the stock models
func (s *PostgresStockStore) Migrate() error {
	return s.db.AutoMigrate(&ProductStockModel{}, &SizeVariantModel{})
}

// Get retrieves the stock record for a product
func (s *PostgresStockStore) Get(ctx context.Context, productID uint) (*domain.ProductStock, error) {
	var model ProductStockModel

	result := s.db.WithContext(ctx).Preload("Variants").First(&model, productID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("product", productID)
		}
		return nil, apperrors.NewInternal("failed to get product stock", result.Error)
	}

	variants := make([]domain.SizeVariant, len(model.Variants))
	for i, v := range model.Variants {
		variants[i] = domain.SizeVariant{Size: v.Size, Quantity: v.Quantity}
	}

	return &domain.ProductStock{
		ProductID:     model.ID,
		Name:          model.ProductName,
		TotalQuantity: model.TotalQuantity,
		Status:        model.Status,
		Variants:      variants,
	}, nil
}

// Reserve atomically decrements a size variant, conditioned on enough stock
// being available. The whole reservation runs in one transaction so a failed
// condition leaves nothing decremented.
func (s *PostgresStockStore) Reserve(ctx context.Context, productID uint, size string, quantity int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&SizeVariantModel{}).
			Where("product_stock_model_id = ? AND size = ? AND quantity >= ?", productID, size, quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var variant SizeVariantModel
			available := int64(0)
			find := tx.Where("product_stock_model_id = ? AND size = ?", productID, size).First(&variant)
			if find.Error == nil {
				available = variant.Quantity
			}
			return domain.NewInsufficientStock(productID, size, available)
		}

		if err := tx.Model(&ProductStockModel{}).
			Where("id = ?", productID).
			UpdateColumn("total_quantity", gorm.Expr("total_quantity - ?", quantity)).Error; err != nil {
			return err
		}

		return s.refreshStatus(tx, productID)
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.NewInternal("failed to reserve stock", err)
	}

	return nil
}

// Release returns previously reserved units to a size variant
func (s *PostgresStockStore) Release(ctx context.Context, productID uint, size string, quantity int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&SizeVariantModel{}).
			Where("product_stock_model_id = ? AND size = ?", productID, size).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewNotFound("product size", size)
		}

		if err := tx.Model(&ProductStockModel{}).
			Where("id = ?", productID).
			UpdateColumn("total_quantity", gorm.Expr("total_quantity + ?", quantity)).Error; err != nil {
			return err
		}

		return s.refreshStatus(tx, productID)
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.NewInternal("failed to release stock", err)
	}

	return nil
}

// refreshStatus recomputes the derived stock status from the total quantity
func (s *PostgresStockStore) refreshStatus(tx *gorm.DB, productID uint) error {
	var model ProductStockModel
	if err := tx.Select("id", "total_quantity").First(&model, productID).Error; err != nil {
		return err
	}
	return tx.Model(&ProductStockModel{}).
		Where("id = ?", productID).
		UpdateColumn("status", domain.StatusForQuantity(model.TotalQuantity)).Error
}

package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"settlement/internal/settlement/domain"
	apperrors "settlement/pkg/errors"
)

// CheckoutContextModel is the GORM model for per-user checkout sessions
type CheckoutContextModel struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         uint      `gorm:"uniqueIndex;not null"`
	CouponID       uint      `gorm:"not null"`
	DiscountAmount int64     `gorm:"not null"`
	PayableAmount  int64     `gorm:"not null"`
	AppliedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CheckoutContextModel) TableName() string {
	return "checkout_sessions"
}

// PostgresCheckoutContextStore implements CheckoutContextStore using PostgreSQL
type PostgresCheckoutContextStore struct {
	db *gorm.DB
}

// NewPostgresCheckoutContextStore creates a new PostgreSQL checkout context store
func NewPostgresCheckoutContextStore(db *gorm.DB) *PostgresCheckoutContextStore {
	return &PostgresCheckoutContextStore{db: db}
}

// Migrate runs auto-migration for the checkout session model
func (s *PostgresCheckoutContextStore) Migrate() error {
	return s.db.AutoMigrate(&CheckoutContextModel{})
}

// Get retrieves the user's active checkout context, or nil when none exists
func (s *PostgresCheckoutContextStore) Get(ctx context.Context, userID uint) (*domain.CheckoutContext, error) {
	var model CheckoutContextModel

	result := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternal("failed to get checkout context", result.Error)
	}

	return &domain.CheckoutContext{
		UserID:         model.UserID,
		CouponID:       model.CouponID,
		DiscountAmount: model.DiscountAmount,
		PayableAmount:  model.PayableAmount,
		AppliedAt:      model.AppliedAt,
	}, nil
}

// Put upserts the user's checkout context. A user holds at most one.
func (s *PostgresCheckoutContextStore) Put(ctx context.Context, cc *domain.CheckoutContext) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", cc.UserID).Delete(&CheckoutContextModel{}).Error; err != nil {
			return err
		}
		return tx.Create(&CheckoutContextModel{
			UserID:         cc.UserID,
			CouponID:       cc.CouponID,
			DiscountAmount: cc.DiscountAmount,
			PayableAmount:  cc.PayableAmount,
			AppliedAt:      cc.AppliedAt,
		}).Error
	})
	if err != nil {
		return apperrors.NewInternal("failed to save checkout context", err)
	}

	return nil
}

// Clear drops the user's checkout context if present
func (s *PostgresCheckoutContextStore) Clear(ctx context.Context, userID uint) error {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&CheckoutContextModel{})
	if result.Error != nil {
		return apperrors.NewInternal("failed to clear checkout context", result.Error)
	}

	return nil
}

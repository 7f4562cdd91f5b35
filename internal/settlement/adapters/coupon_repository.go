package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"settlement/internal/settlement/domain"
	apperrors "settlement/pkg/errors"
)

// CouponModel is the GORM model for coupons
type CouponModel struct {
	ID              uint             `gorm:"primaryKey"`
	Name            string           `gorm:"size:100;uniqueIndex;not null"`
	Code            string           `gorm:"size:20;uniqueIndex;not null"`
	StartDate       time.Time        `gorm:"not null"`
	EndDate         time.Time        `gorm:"not null"`
	OfferType       domain.OfferType `gorm:"size:15;not null"`
	OfferPercentage int64            `gorm:"not null;default:0"`
	FlatOffer       int64            `gorm:"not null;default:0"`
	MinimumPrice    int64            `gorm:"not null"`
	IsListed        bool             `gorm:"not null;default:true"`
	CreatedAt       time.Time
}

// TableName returns the table name for GORM
func (CouponModel) TableName() string {
	return "coupons"
}

// CouponRedemptionModel records a user having consumed a coupon
type CouponRedemptionModel struct {
	ID            uint      `gorm:"primaryKey"`
	CouponModelID uint      `gorm:"uniqueIndex:idx_coupon_user;not null"`
	UserID        uint      `gorm:"uniqueIndex:idx_coupon_user;not null"`
	RedeemedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CouponRedemptionModel) TableName() string {
	return "coupon_redemptions"
}

// PostgresCouponStore implements CouponStore using PostgreSQL
type PostgresCouponStore struct {
	db *gorm.DB
}

// NewPostgresCouponStore creates a new PostgreSQL coupon store
func NewPostgresCouponStore(db *gorm.DB) *PostgresCouponStore {
	return &PostgresCouponStore{db: db}
}

// Migrate runs auto-migration for the coupon models
func (s *PostgresCouponStore) Migrate() error {
	return s.db.AutoMigrate(&CouponModel{}, &CouponRedemptionModel{})
}

// GetByID retrieves a coupon by id
func (s *PostgresCouponStore) GetByID(ctx context.Context, couponID uint) (*domain.Coupon, error) {
	var model CouponModel

	result := s.db.WithContext(ctx).First(&model, couponID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewCouponNotFound(couponID)
		}
		return nil, apperrors.NewInternal("failed to get coupon", result.Error)
	}

	return couponToDomain(&model), nil
}

// Create persists a new coupon
func (s *PostgresCouponStore) Create(ctx context.Context, coupon *domain.Coupon) error {
	model := CouponModel{
		Name:            coupon.Name,
		Code:            coupon.Code,
		StartDate:       coupon.StartDate,
		EndDate:         coupon.EndDate,
		OfferType:       coupon.OfferType,
		OfferPercentage: coupon.OfferPercentage,
		FlatOffer:       coupon.FlatOffer,
		MinimumPrice:    coupon.MinimumPrice,
		IsListed:        coupon.IsListed,
	}

	result := s.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		return apperrors.NewInternal("failed to create coupon", result.Error)
	}

	coupon.ID = model.ID
	coupon.CreatedAt = model.CreatedAt
	return nil
}

// Delete removes a coupon and its redemption records
func (s *PostgresCouponStore) Delete(ctx context.Context, couponID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("coupon_model_id = ?", couponID).Delete(&CouponRedemptionModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&CouponModel{}, couponID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewCouponNotFound(couponID)
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.NewInternal("failed to delete coupon", err)
	}

	return nil
}

// List retrieves coupons matching a name search, paged, newest first
func (s *PostgresCouponStore) List(ctx context.Context, search string, page, limit int) ([]*domain.Coupon, int64, error) {
	db := s.db.WithContext(ctx).Model(&CouponModel{})
	if search != "" {
		db = db.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return nil, 0, apperrors.NewInternal("failed to count coupons", err)
	}

	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}

	var models []CouponModel
	result := db.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&models)
	if result.Error != nil {
		return nil, 0, apperrors.NewInternal("failed to list coupons", result.Error)
	}

	coupons := make([]*domain.Coupon, len(models))
	for i := range models {
		coupons[i] = couponToDomain(&models[i])
	}

	return coupons, count, nil
}

// NameOrCodeExists reports whether a coupon already uses the name or code
func (s *PostgresCouponStore) NameOrCodeExists(ctx context.Context, name, code string) (bool, error) {
	var count int64

	result := s.db.WithContext(ctx).Model(&CouponModel{}).
		Where("name = ? OR code = ?", name, code).
		Count(&count)
	if result.Error != nil {
		return false, apperrors.NewInternal("failed to check coupon uniqueness", result.Error)
	}

	return count > 0, nil
}

// IsRedeemed reports whether the user has already consumed the coupon
func (s *PostgresCouponStore) IsRedeemed(ctx context.Context, userID, couponID uint) (bool, error) {
	var count int64

	result := s.db.WithContext(ctx).Model(&CouponRedemptionModel{}).
		Where("coupon_model_id = ? AND user_id = ?", couponID, userID).
		Count(&count)
	if result.Error != nil {
		return false, apperrors.NewInternal("failed to check coupon redemption", result.Error)
	}

	return count > 0, nil
}

// MarkRedeemed records the coupon as consumed by the user
func (s *PostgresCouponStore) MarkRedeemed(ctx context.Context, userID, couponID uint) error {
	row := CouponRedemptionModel{
		CouponModelID: couponID,
		UserID:        userID,
		RedeemedAt:    time.Now(),
	}

	result := s.db.WithContext(ctx).Create(&row)
	if result.Error != nil {
		return apperrors.NewInternal("failed to mark coupon redeemed", result.Error)
	}

	return nil
}

func couponToDomain(model *CouponModel) *domain.Coupon {
	return &domain.Coupon{
		ID:              model.ID,
		Name:            model.Name,
		Code:            model.Code,
		StartDate:       model.StartDate,
		EndDate:         model.EndDate,
		OfferType:       model.OfferType,
		OfferPercentage: model.OfferPercentage,
		FlatOffer:       model.FlatOffer,
		MinimumPrice:    model.MinimumPrice,
		IsListed:        model.IsListed,
		CreatedAt:       model.CreatedAt,
	}
}

package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"settlement/internal/settlement/domain"
	apperrors "settlement/pkg/errors"
)

// WalletModel is the GORM model for wallets
type WalletModel struct {
	ID      uint  `gorm:"primaryKey"`
	UserID  uint  `gorm:"uniqueIndex;not null"`
	Balance int64 `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (WalletModel) TableName() string {
	return "wallets"
}

// WalletTransactionModel is the GORM model for wallet ledger entries
type WalletTransactionModel struct {
	ID            uint                   `gorm:"primaryKey"`
	WalletModelID uint                   `gorm:"index;not null"`
	Type          domain.TransactionType `gorm:"size:10;not null"`
	Amount        int64                  `gorm:"not null"`
	Reason        string                 `gorm:"size:100;not null"`
	OrderID       string                 `gorm:"size:36"`
	Date          time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WalletTransactionModel) TableName() string {
	return "wallet_transactions"
}

// PostgresWalletStore implements WalletStore using PostgreSQL
type PostgresWalletStore struct {
	db *gorm.DB
}

// NewPostgresWalletStore creates a new PostgreSQL wallet store
func NewPostgresWalletStore(db *gorm.DB) *PostgresWalletStore {
	return &PostgresWalletStore{db: db}
}

// Migrate runs auto-migration for the wallet models
func (s *PostgresWalletStore) Migrate() error {
	return s.db.AutoMigrate(&WalletModel{}, &WalletTransactionModel{})
}

// GetByUser retrieves a user's wallet with its ledger, newest entry first.
// A user with no wallet row yet gets an empty wallet.
func (s *PostgresWalletStore) GetByUser(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var model WalletModel

	result := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &domain.Wallet{UserID: userID}, nil
		}
		return nil, apperrors.NewInternal("failed to get wallet", result.Error)
	}

	var rows []WalletTransactionModel
	if err := s.db.WithContext(ctx).
		Where("wallet_model_id = ?", model.ID).
		Order("date DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.NewInternal("failed to get wallet transactions", err)
	}

	transactions := make([]domain.WalletTransaction, len(rows))
	for i, row := range rows {
		transactions[i] = domain.WalletTransaction{
			ID:      row.ID,
			Type:    row.Type,
			Amount:  row.Amount,
			Reason:  row.Reason,
			OrderID: row.OrderID,
			Date:    row.Date,
		}
	}

	return &domain.Wallet{
		ID:           model.ID,
		UserID:       model.UserID,
		Balance:      model.Balance,
		Transactions: transactions,
	}, nil
}

// Credit adds funds to the wallet and appends a ledger entry in one
// transaction. The wallet row is created on first credit. Non-positive
// amounts are rejected regardless of caller.
func (s *PostgresWalletStore) Credit(ctx context.Context, userID uint, amount int64, reason, orderID string) error {
	if amount <= 0 {
		return apperrors.NewValidation("credit amount must be positive", nil)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model WalletModel
		if err := tx.Where(WalletModel{UserID: userID}).FirstOrCreate(&model).Error; err != nil {
			return err
		}

		if err := tx.Model(&WalletModel{}).
			Where("id = ?", model.ID).
			UpdateColumn("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}

		return tx.Create(&WalletTransactionModel{
			WalletModelID: model.ID,
			Type:          domain.TransactionCredit,
			Amount:        amount,
			Reason:        reason,
			OrderID:       orderID,
			Date:          time.Now(),
		}).Error
	})
	if err != nil {
		return apperrors.NewInternal("failed to credit wallet", err)
	}

	return nil
}

// Debit removes funds from the wallet, conditioned on the balance covering
// the amount, and appends a ledger entry. Non-positive amounts are
// rejected regardless of caller.
func (s *PostgresWalletStore) Debit(ctx context.Context, userID uint, amount int64, reason, orderID string) error {
	if amount <= 0 {
		return apperrors.NewValidation("debit amount must be positive", nil)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model WalletModel
		if err := tx.Where("user_id = ?", userID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewInsufficientFunds(0, amount)
			}
			return err
		}

		result := tx.Model(&WalletModel{}).
			Where("id = ? AND balance >= ?", model.ID, amount).
			UpdateColumn("balance", gorm.Expr("balance - ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewInsufficientFunds(model.Balance, amount)
		}

		return tx.Create(&WalletTransactionModel{
			WalletModelID: model.ID,
			Type:          domain.TransactionDebit,
			Amount:        amount,
			Reason:        reason,
			OrderID:       orderID,
			Date:          time.Now(),
		}).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.NewInternal("failed to debit wallet", err)
	}

	return nil
}

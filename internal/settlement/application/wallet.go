package application

import (
	"context"

	"settlement/internal/settlement/domain"
	"settlement/internal/settlement/ports"
	"settlement/pkg/config"
	"settlement/pkg/logger"

	"go.uber.org/zap"
)

// WalletUseCase exposes the wallet ledger. All refund and cancellation
// paths route through the store's Credit, so the transaction log is a
// complete audit trail.
type WalletUseCase struct {
	wallets ports.WalletStore
	rules   config.Rules
	log     *logger.Logger
}

// NewWalletUseCase creates a new wallet use case
func NewWalletUseCase(wallets ports.WalletStore, rules config.Rules, log *logger.Logger) *WalletUseCase {
	return &WalletUseCase{
		wallets: wallets,
		rules:   rules,
		log:     log,
	}
}

// GetWalletOutput is the wallet view with its audit result.
type GetWalletOutput struct {
	Wallet *domain.Wallet
	// AuditedBalance is the balance recomputed from the transaction log.
	// A drift from the stored balance indicates a write outside the ledger.
	AuditedBalance int64
}

// GetWallet retrieves the user's wallet and audits the stored balance
// against the transaction log.
func (uc *WalletUseCase) GetWallet(ctx context.Context, userID uint) (*GetWalletOutput, error) {
	wallet, err := uc.wallets.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	audited := wallet.AuditBalance()
	if audited != wallet.Balance {
		uc.log.WithContext(ctx).Error("wallet balance drift detected",
			zap.Uint("user_id", userID),
			zap.Int64("stored", wallet.Balance),
			zap.Int64("audited", audited),
		)
	}

	return &GetWalletOutput{Wallet: wallet, AuditedBalance: audited}, nil
}

// Credit adds funds to the user's wallet (manual adjustment path).
func (uc *WalletUseCase) Credit(ctx context.Context, userID uint, amount int64, reason string) error {
	if amount <= 0 {
		return domain.ErrNegativeAmount
	}
	return uc.wallets.Credit(ctx, userID, amount, reason, "")
}

// Debit removes funds from the user's wallet (manual adjustment path).
func (uc *WalletUseCase) Debit(ctx context.Context, userID uint, amount int64, reason string) error {
	if amount <= 0 {
		return domain.ErrNegativeAmount
	}
	return uc.wallets.Debit(ctx, userID, amount, reason, "")
}

// ReferralBonus credits the referrer and the newly signed-up user with the
// configured bonus amounts.
func (uc *WalletUseCase) ReferralBonus(ctx context.Context, referrerID, newUserID uint) error {
	if err := uc.wallets.Credit(ctx, referrerID, uc.rules.ReferrerBonus, domain.ReasonReferralBonus, ""); err != nil {
		return err
	}
	if err := uc.wallets.Credit(ctx, newUserID, uc.rules.RefereeBonus, domain.ReasonReferralBonus, ""); err != nil {
		return err
	}

	uc.log.WithContext(ctx).Info("referral bonus credited",
		zap.Uint("referrer_id", referrerID),
		zap.Uint("new_user_id", newUserID),
	)
	return nil
}

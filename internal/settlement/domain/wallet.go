package domain

import "time"

// TransactionType distinguishes wallet credits from debits.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Wallet transaction reasons.
const (
	ReasonOrderCancelled   = "order cancelled"
	ReasonOrderReturned    = "order returned"
	ReasonReferralBonus    = "referral bonus"
	ReasonManualAdjustment = "manual adjustment"
	ReasonOrderPurchase    = "order purchase"
)

// WalletTransaction is one entry of the append-only ledger.
type WalletTransaction struct {
	ID      uint
	Type    TransactionType
	Amount  int64
	Reason  string
	OrderID string
	Date    time.Time
}

// Wallet is one user's balance plus the ordered transaction log.
type Wallet struct {
	ID           uint
	UserID       uint
	Balance      int64
	Transactions []WalletTransaction
}

// AuditBalance recomputes the balance from the transaction log. The stored
// balance is verified against this, never trusted blindly.
func (w *Wallet) AuditBalance() int64 {
	var balance int64
	for _, tx := range w.Transactions {
		switch tx.Type {
		case TransactionCredit:
			balance += tx.Amount
		case TransactionDebit:
			balance -= tx.Amount
		}
	}
	return balance
}

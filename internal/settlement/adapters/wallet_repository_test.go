package adapters

import (
	"context"
	"testing"

	"settlement/internal/settlement/domain"
	"settlement/pkg/errors"
)

func TestWalletStoreCredit_RejectsNonPositiveAmount(t *testing.T) {
	// Arrange: the guard fires before any database work
	store := NewPostgresWalletStore(nil)

	// Act / Assert
	for _, amount := range []int64{0, -250} {
		err := store.Credit(context.Background(), 1, amount, domain.ReasonManualAdjustment, "")
		if !errors.Is(err, errors.CodeValidation) {
			t.Errorf("amount %d: expected validation error, got %v", amount, err)
		}
	}
}

func TestWalletStoreDebit_RejectsNonPositiveAmount(t *testing.T) {
	// Arrange
	store := NewPostgresWalletStore(nil)

	// Act / Assert
	for _, amount := range []int64{0, -250} {
		err := store.Debit(context.Background(), 1, amount, domain.ReasonManualAdjustment, "")
		if !errors.Is(err, errors.CodeValidation) {
			t.Errorf("amount %d: expected validation error, got %v", amount, err)
		}
	}
}

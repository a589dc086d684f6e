package services

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome is the result of submitting a charge for settlement.
type Outcome struct {
	Status        string
	TransactionID string
}

// Settler submits a charge to a payment provider.
type Settler interface {
	Settle(ctx context.Context, amount decimal.Decimal, method string) (Outcome, error)
}

// MockSettler completes every charge immediately.
type MockSettler struct{}

func (MockSettler) Settle(_ context.Context, _ decimal.Decimal, _ string) (Outcome, error) {
	return Outcome{
		Status:        models.PaymentCompleted,
		TransactionID: "pay_" + uuid.NewString(),
	}, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTopup    = "topup"
	TransactionWithdraw = "withdraw"
)

// BalanceTransaction is an append-only ledger entry. Amount is always
// positive; Type carries the sign.
type BalanceTransaction struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	Type         string          `gorm:"size:10;not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"balance_after"`
	Description  string          `gorm:"type:text" json:"description"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

// Signed returns the amount with the ledger sign applied.
func (t *BalanceTransaction) Signed() decimal.Decimal {
	if t.Type == TransactionWithdraw {
		return t.Amount.Neg()
	}
	return t.Amount
}

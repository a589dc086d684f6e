package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

const (
	MethodBalance  = "balance"
	MethodCard     = "card"
	MethodYooMoney = "yoomoney"
)

// Payment is one attempted charge. It links to an assignment through
// (UserID, PlanID).
type Payment struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"plan_id"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method       string          `gorm:"size:20;not null" json:"payment_method"`
	Status       string          `gorm:"size:20;not null;index" json:"status"`
	ExternalID   string          `gorm:"size:100" json:"external_id"`
	IsRefunded   bool            `gorm:"not null;default:false" json:"is_refunded"`
	RefundReason *string         `gorm:"type:text" json:"refund_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

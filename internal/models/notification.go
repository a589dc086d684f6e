package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryPayment           = "payment"
	CategoryRefund            = "refund"
	CategorySubscription      = "subscription"
	CategoryRenewal           = "renewal"
	CategoryInsufficientFunds = "insufficient_funds"
	CategoryRequest           = "request"
)

type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Category  string     `gorm:"size:30;not null;index" json:"type"`
	Reference *uuid.UUID `gorm:"type:uuid;index" json:"reference,omitempty"`
	IsRead    bool       `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan is an admin-managed subscription offering.
type Plan struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string           `gorm:"size:100;not null" json:"name"`
	Description   string           `gorm:"type:text" json:"description"`
	Price         decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	DurationDays  int              `gorm:"not null" json:"duration_days"`
	IsActive      bool             `gorm:"not null;default:true" json:"is_active"`
	DiscountRate  *decimal.Decimal `gorm:"type:numeric(3,2)" json:"discount_rate,omitempty"`
	DiscountUntil *time.Time       `gorm:"type:date" json:"discount_until,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

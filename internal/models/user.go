package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account holder. Balance is the denormalized running total of the
// user's ledger and only changes together with a BalanceTransaction row.
type User struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string          `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password  string          `gorm:"not null" json:"-"`
	Role      string          `gorm:"size:20;not null;default:'user'" json:"role"`
	Balance   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

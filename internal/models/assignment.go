package models

import (
	"time"

	"github.com/google/uuid"
)

// Stored lifecycle status of an assignment. Expiry is never stored; it is
// projected from EndDate at read time.
const (
	AssignmentInactive  = "inactive"
	AssignmentActive    = "active"
	AssignmentCancelled = "cancelled"

	// StateExpired only appears in the projected State field.
	StateExpired = "expired"
)

// Assignment binds a user to a plan (the user_subscriptions table).
type Assignment struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_user_plan" json:"user_id"`
	PlanID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_assignment_user_plan;index" json:"plan_id"`
	StartDate time.Time  `gorm:"type:date;not null" json:"start_date"`
	EndDate   *time.Time `gorm:"type:date;index" json:"end_date"`
	Status    string     `gorm:"size:20;not null;default:'inactive';index" json:"-"`
	AutoRenew bool       `gorm:"not null;default:false" json:"auto_renew"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Projection, filled by RecomputeActivity.
	IsActive bool   `gorm:"-" json:"is_active"`
	State    string `gorm:"-" json:"state"`
}

func (Assignment) TableName() string {
	return "user_subscriptions"
}

package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// SubscriptionRequest gates assignment of a plan behind admin approval.
type SubscriptionRequest struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_request_user_plan" json:"user_id"`
	PlanID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_request_user_plan" json:"plan_id"`
	Status      string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	ProcessedBy *uuid.UUID `gorm:"type:uuid" json:"processed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

package dto

import "github.com/google/uuid"

type SubscriptionRequestBody struct {
	PlanID uuid.UUID `json:"plan_id" validate:"required"`
}

type AssignRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	PlanID    uuid.UUID `json:"plan_id" validate:"required"`
	EndDate   *string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	AutoRenew bool      `json:"auto_renew"`
}

type AutoRenewRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

package dto

import "github.com/shopspring/decimal"

// Dates are calendar days formatted as 2006-01-02.

type CreatePlanRequest struct {
	Name          string           `json:"name" validate:"required,max=100"`
	Description   string           `json:"description" validate:"max=2000"`
	Price         decimal.Decimal  `json:"price"`
	DurationDays  int              `json:"duration_days" validate:"required,gt=0"`
	IsActive      *bool            `json:"is_active"`
	DiscountRate  *decimal.Decimal `json:"discount_rate"`
	DiscountUntil *string          `json:"discount_until" validate:"omitempty,datetime=2006-01-02"`
}

type UpdatePlanRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Description   *string          `json:"description" validate:"omitempty,max=2000"`
	Price         *decimal.Decimal `json:"price"`
	DurationDays  *int             `json:"duration_days" validate:"omitempty,gt=0"`
	IsActive      *bool            `json:"is_active"`
	DiscountRate  *decimal.Decimal `json:"discount_rate"`
	DiscountUntil *string          `json:"discount_until" validate:"omitempty,datetime=2006-01-02"`
	ClearDiscount bool             `json:"clear_discount"`
}

type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	PlanID uuid.UUID       `json:"plan_id" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"payment_method" validate:"required,oneof=balance card yoomoney"`
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

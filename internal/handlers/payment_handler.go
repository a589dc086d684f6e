package handlers

import (
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) Create(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreatePaymentRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	payment, err := h.payments.CreatePayment(c.UserContext(), actor, req.PlanID, req.Amount, req.Method)
	if err != nil {
		return respondError(c, "create_payment", err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

func (h *PaymentHandler) List(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}

	page := pageOf(c)
	list, err := h.payments.ListPayments(c.UserContext(), actor, page)
	if err != nil {
		return respondError(c, "list_payments", err)
	}
	return c.JSON(dto.ListResponse[models.Payment]{Items: list, Offset: page.Offset, Limit: page.Limit})
}

func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid payment id")
	}
	var req dto.RefundRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	payment, err := h.payments.Refund(c.UserContext(), actor, id, req.Reason)
	if err != nil {
		return respondError(c, "refund", err)
	}
	return c.JSON(payment)
}

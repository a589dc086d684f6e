package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SubscriptionHandler serves assignments and the request workflow.
type SubscriptionHandler struct {
	lifecycle *services.LifecycleService
	payments  *services.PaymentService
}

func NewSubscriptionHandler(lifecycle *services.LifecycleService, payments *services.PaymentService) *SubscriptionHandler {
	return &SubscriptionHandler{lifecycle: lifecycle, payments: payments}
}

func (h *SubscriptionHandler) ListMine(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}

	list, err := h.lifecycle.ListMine(c.UserContext(), actor)
	if err != nil {
		return respondError(c, "list_assignments", err)
	}
	return c.JSON(list)
}

func (h *SubscriptionHandler) Get(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid subscription id")
	}

	a, err := h.lifecycle.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, "get_assignment", err)
	}
	return c.JSON(a)
}

func (h *SubscriptionHandler) Renew(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid subscription id")
	}

	a, err := h.lifecycle.Renew(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, "renew", err)
	}
	return c.JSON(a)
}

func (h *SubscriptionHandler) ToggleAutoRenew(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid subscription id")
	}
	var req dto.AutoRenewRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	a, err := h.payments.ToggleAutoRenew(c.UserContext(), actor, id, *req.Enabled)
	if err != nil {
		return respondError(c, "toggle_auto_renew", err)
	}
	return c.JSON(a)
}

func (h *SubscriptionHandler) Request(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.SubscriptionRequestBody
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	r, err := h.lifecycle.Request(c.UserContext(), actor, req.PlanID)
	if err != nil {
		return respondError(c, "request_subscription", err)
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

// Admin

func (h *SubscriptionHandler) ListRequests(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}

	list, err := h.lifecycle.ListRequests(c.UserContext(), actor)
	if err != nil {
		return respondError(c, "list_requests", err)
	}
	return c.JSON(list)
}

func (h *SubscriptionHandler) Approve(c *fiber.Ctx) error {
	return h.process(c, "approve_request", h.lifecycle.Approve)
}

func (h *SubscriptionHandler) Reject(c *fiber.Ctx) error {
	return h.process(c, "reject_request", h.lifecycle.Reject)
}

func (h *SubscriptionHandler) process(c *fiber.Ctx, action string, op requestOp) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid request id")
	}

	r, err := op(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, action, err)
	}
	return c.JSON(r)
}

func (h *SubscriptionHandler) Assign(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	end, err := parseDay(req.EndDate)
	if err != nil {
		return respondError(c, "assign", err)
	}

	a, err := h.lifecycle.Assign(c.UserContext(), actor, services.AssignInput{
		UserID:    req.UserID,
		PlanID:    req.PlanID,
		EndDate:   end,
		AutoRenew: req.AutoRenew,
	})
	if err != nil {
		return respondError(c, "assign", err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

type requestOp func(ctx context.Context, actor services.Actor, id uuid.UUID) (*models.SubscriptionRequest, error)

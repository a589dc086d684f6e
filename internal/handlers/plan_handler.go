package handlers

import (
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type PlanHandler struct {
	plans *services.PlanService
}

func NewPlanHandler(plans *services.PlanService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// List shows the active catalogue.
func (h *PlanHandler) List(c *fiber.Ctx) error {
	return h.list(c, true)
}

// ListAll includes inactive plans. Admin routes only.
func (h *PlanHandler) ListAll(c *fiber.Ctx) error {
	return h.list(c, false)
}

func (h *PlanHandler) list(c *fiber.Ctx, activeOnly bool) error {
	page := pageOf(c)
	plans, err := h.plans.List(c.UserContext(), activeOnly, page)
	if err != nil {
		return respondError(c, "list_plans", err)
	}
	return c.JSON(dto.ListResponse[models.Plan]{Items: plans, Offset: page.Offset, Limit: page.Limit})
}

func (h *PlanHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid plan id")
	}

	plan, err := h.plans.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, "get_plan", err)
	}
	return c.JSON(plan)
}

func (h *PlanHandler) Create(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.CreatePlanRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	until, err := parseDay(req.DiscountUntil)
	if err != nil {
		return respondError(c, "create_plan", err)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	plan, err := h.plans.Create(c.UserContext(), actor, services.PlanInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DurationDays:  req.DurationDays,
		IsActive:      isActive,
		DiscountRate:  req.DiscountRate,
		DiscountUntil: until,
	})
	if err != nil {
		return respondError(c, "create_plan", err)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

func (h *PlanHandler) Update(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid plan id")
	}
	var req dto.UpdatePlanRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	until, err := parseDay(req.DiscountUntil)
	if err != nil {
		return respondError(c, "update_plan", err)
	}

	plan, err := h.plans.Update(c.UserContext(), actor, id, services.PlanPatch{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DurationDays:  req.DurationDays,
		IsActive:      req.IsActive,
		DiscountRate:  req.DiscountRate,
		DiscountUntil: until,
		ClearDiscount: req.ClearDiscount,
	})
	if err != nil {
		return respondError(c, "update_plan", err)
	}
	return c.JSON(plan)
}

func (h *PlanHandler) Delete(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c, "id")
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid plan id")
	}

	if err := h.plans.Delete(c.UserContext(), actor, id); err != nil {
		return respondError(c, "delete_plan", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

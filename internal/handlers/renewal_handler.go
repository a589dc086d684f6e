package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// Sweeper runs one renewal sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (*services.SweepReport, error)
}

type RenewalHandler struct {
	sweeper Sweeper
}

func NewRenewalHandler(sweeper Sweeper) *RenewalHandler {
	return &RenewalHandler{sweeper: sweeper}
}

// Run triggers a sweep on demand.
func (h *RenewalHandler) Run(c *fiber.Ctx) error {
	report, err := h.sweeper.Sweep(c.UserContext())
	if err != nil {
		return respondError(c, "run_renewals", err)
	}
	return c.JSON(report)
}

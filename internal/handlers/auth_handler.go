package handlers

import (
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return respondError(c, "register", err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return respondError(c, "login", err)
	}

	return c.JSON(resp)
}

// Me returns the authenticated caller.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(fiber.Map{
		"id":   actor.UserID,
		"role": actor.Role,
	})
}

package middleware

import (
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired rejects callers the authorizer does not consider admins.
// It must run after ResolveActor.
func AdminRequired(authz services.Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := identity.GetActor(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if !authz.IsAdmin(actor) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}
		return c.Next()
	}
}

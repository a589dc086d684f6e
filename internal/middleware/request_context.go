package middleware

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/logging"
	"github.com/gofiber/fiber/v2"
)

// RequestContext copies the request ID into the user context so that
// slog.*Context calls downstream are tagged with it. It must run after the
// requestid middleware.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(logging.WithAttrs(c.UserContext(), slog.String("request_id", rid)))
		}
		return c.Next()
	}
}

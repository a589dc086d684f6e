package middleware

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ActorResolver loads the caller behind a verified user ID.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uuid.UUID) (services.Actor, error)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: message,
	})
}

// JWTProtected verifies an HS256 bearer token and stores it under "user".
func JWTProtected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(secret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c, "Unauthorized: invalid or expired token")
		},
	})
}

// ResolveActor must run after JWTProtected. The role comes from the user
// row, not from the token.
func ResolveActor(resolver ActorResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := identity.GetUserID(c)
		if err != nil {
			return unauthorized(c, "Unauthorized")
		}

		actor, err := resolver.ResolveActor(c.UserContext(), userID)
		if err != nil {
			return unauthorized(c, "Unauthorized: unknown user")
		}

		identity.SetActor(c, actor)
		c.SetUserContext(logging.WithAttrs(c.UserContext(), slog.String("user_id", actor.UserID.String())))
		return c.Next()
	}
}

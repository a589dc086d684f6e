// Package identity resolves the authenticated caller from a fiber request.
package identity

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ActorKey is the fiber Locals key holding the resolved services.Actor.
const ActorKey = "actor"

var ErrNoActor = errors.New("no authenticated actor")

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// SetActor stores the resolved actor for downstream handlers.
func SetActor(c *fiber.Ctx, actor services.Actor) {
	c.Locals(ActorKey, actor)
}

// GetActor returns the actor stored by the actor middleware.
func GetActor(c *fiber.Ctx) (services.Actor, error) {
	actor, ok := c.Locals(ActorKey).(services.Actor)
	if !ok {
		return services.Actor{}, ErrNoActor
	}
	return actor, nil
}

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[uuid.UUID]services.Actor

func (f fakeResolver) ResolveActor(_ context.Context, id uuid.UUID) (services.Actor, error) {
	actor, ok := f[id]
	if !ok {
		return services.Actor{}, errors.New("unknown user")
	}
	return actor, nil
}

// withToken stands in for JWTProtected.
func withToken(sub string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"sub": sub}})
		return c.Next()
	}
}

func newApp(sub string, resolver middleware.ActorResolver) *fiber.App {
	app := fiber.New()
	app.Get("/me", withToken(sub), middleware.ResolveActor(resolver), func(c *fiber.Ctx) error {
		actor, err := identity.GetActor(c)
		if err != nil {
			return err
		}
		return c.SendString(actor.Role)
	})
	app.Get("/admin", withToken(sub), middleware.ResolveActor(resolver),
		middleware.AdminRequired(services.NewRoleAuthorizer("")),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	return app
}

func status(t *testing.T, app *fiber.App, path string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestResolveActor(t *testing.T) {
	user := uuid.New()
	admin := uuid.New()
	resolver := fakeResolver{
		user:  {UserID: user, Role: models.RoleUser},
		admin: {UserID: admin, Role: models.RoleAdmin},
	}

	tests := []struct {
		name string
		sub  string
		path string
		want int
	}{
		{"known user", user.String(), "/me", http.StatusOK},
		{"unknown user", uuid.NewString(), "/me", http.StatusUnauthorized},
		{"malformed sub", "not-a-uuid", "/me", http.StatusUnauthorized},
		{"admin route as user", user.String(), "/admin", http.StatusForbidden},
		{"admin route as admin", admin.String(), "/admin", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status(t, newApp(tt.sub, resolver), tt.path))
		})
	}
}

func TestAdminRequiredWithoutActor(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", middleware.AdminRequired(services.NewRoleAuthorizer("")), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, status(t, app, "/admin"))
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := fiber.New()
	app.Get("/", middleware.JWTProtected("secret"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString()}).SignedString([]byte("other"))
	require.NoError(t, err)
	good, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString()}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for token, want := range map[string]int{
		"":    http.StatusUnauthorized,
		other: http.StatusUnauthorized,
		good:  http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode)
	}
}

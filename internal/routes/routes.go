package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Health        *handlers.HealthHandler
	Wallet        *handlers.WalletHandler
	Plans         *handlers.PlanHandler
	Subscriptions *handlers.SubscriptionHandler
	Payments      *handlers.PaymentHandler
	Notifications *handlers.NotificationHandler
	Renewals      *handlers.RenewalHandler
}

func Setup(
	app *fiber.App,
	cfg *config.Config,
	resolver middleware.ActorResolver,
	authz services.Authorizer,
	h Handlers,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)

	// Public catalogue
	api.Get("/plans", h.Plans.List)
	api.Get("/plans/:id", h.Plans.Get)

	// Protected groups carry their own middleware so JWT checks never touch
	// the public routes above.
	protect := []fiber.Handler{middleware.JWTProtected(cfg.JWTSecret), middleware.ResolveActor(resolver)}
	RegisterUserRoutes(api, protect, h)
	RegisterAdminRoutes(api, append(protect, middleware.AdminRequired(authz)), h)
}

// RegisterUserRoutes mounts the routes available to any authenticated user.
// guard must resolve the actor.
func RegisterUserRoutes(api fiber.Router, guard []fiber.Handler, h Handlers) {
	api.Get("/me", append(guard, h.Auth.Me)...)

	wallet := api.Group("/wallet", guard...)
	wallet.Get("/balance", h.Wallet.Balance)
	wallet.Post("/topup", h.Wallet.TopUp)
	wallet.Post("/withdraw", h.Wallet.Withdraw)
	wallet.Get("/history", h.Wallet.History)

	subs := api.Group("/subscriptions", guard...)
	subs.Get("/", h.Subscriptions.ListMine)
	subs.Post("/requests", h.Subscriptions.Request)
	subs.Get("/:id", h.Subscriptions.Get)
	subs.Post("/:id/renew", h.Subscriptions.Renew)
	subs.Put("/:id/auto-renew", h.Subscriptions.ToggleAutoRenew)

	payments := api.Group("/payments", guard...)
	payments.Get("/", h.Payments.List)
	payments.Post("/", h.Payments.Create)
	payments.Post("/:id/refund", h.Payments.Refund)

	notifications := api.Group("/notifications", guard...)
	notifications.Get("/", h.Notifications.List)
	notifications.Put("/:id/read", h.Notifications.MarkRead)
}

// RegisterAdminRoutes mounts the admin panel under /admin. guard must
// resolve the actor and enforce admin access.
func RegisterAdminRoutes(api fiber.Router, guard []fiber.Handler, h Handlers) {
	admin := api.Group("/admin", guard...)

	admin.Get("/plans", h.Plans.ListAll)
	admin.Post("/plans", h.Plans.Create)
	admin.Patch("/plans/:id", h.Plans.Update)
	admin.Delete("/plans/:id", h.Plans.Delete)

	admin.Get("/requests", h.Subscriptions.ListRequests)
	admin.Post("/requests/:id/approve", h.Subscriptions.Approve)
	admin.Post("/requests/:id/reject", h.Subscriptions.Reject)

	admin.Post("/subscriptions", h.Subscriptions.Assign)

	admin.Post("/renewals/run", h.Renewals.Run)
}

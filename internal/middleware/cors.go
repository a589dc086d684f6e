package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/samber/lo"
)

// CORS allows the configured origins. CORS_ORIGINS is a comma-separated
// list; blanks are dropped.
func CORS(cfg *config.Config) fiber.Handler {
	origins := lo.Compact(lo.Map(strings.Split(cfg.CORSOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
	allow := "*"
	if len(origins) > 0 {
		allow = strings.Join(origins, ",")
	}

	return cors.New(cors.Config{
		AllowOrigins:     allow,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: false,
		MaxAge:           600,
	})
}

package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/CourseCheckout/app/controllers"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/middleware"
)

const (
	apiRateLimit       = 120
	apiRateLimitWindow = time.Minute

	webhookPath = "/api/webhook-wompi"
)

type ApiRouter struct {
	handlers    *controllers.Handlers
	storage     fiber.Storage
	adminAPIKey string
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        apiRateLimit,
		Expiration: apiRateLimitWindow,
		Storage:    h.storage,
		// Gateway retries must never be throttled into losing an event.
		Next: func(c *fiber.Ctx) bool {
			return strings.TrimRight(c.Path(), "/") == webhookPath
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
		},
	}))

	api.Get("/", h.handlers.HandleHealth)

	// public checkout flow
	api.Get("/signature", h.handlers.HandleSignature)
	api.Post("/webhook-wompi", h.handlers.HandleWompiWebhook)
	api.Post("/create-payment", h.handlers.HandleCreatePayment)

	// operator endpoints
	admin := middleware.AdminKeyMiddleware(h.adminAPIKey)
	api.Get("/setup-db", admin, h.handlers.HandleSetupDB)
	api.Post("/reconcile", admin, h.handlers.HandleReconcile)
	api.Get("/users", admin, h.handlers.HandleListUsers)
	api.Post("/users", admin, h.handlers.HandleCreateUser)
	api.Get("/users/:email", admin, h.handlers.HandleGetUser)
	api.Get("/transactions", admin, h.handlers.HandleListTransactions)
	api.Get("/enrollments", admin, h.handlers.HandleListEnrollments)
	api.Get("/webhook-events", admin, h.handlers.HandleListWebhookEvents)
	api.Get("/stats", admin, h.handlers.HandleStats)
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{
		handlers:    deps.Handlers,
		storage:     deps.LimiterStorage,
		adminAPIKey: deps.AdminAPIKey,
	}
}

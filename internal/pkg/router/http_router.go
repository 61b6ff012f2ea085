package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/ManuelReschke/CourseCheckout/app/controllers"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/config"
)

// HttpRouter serves the routes outside /api: health and metrics.
type HttpRouter struct {
	handlers *controllers.Handlers
	metrics  config.MetricsConfig
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/", h.handlers.HandleHealth)

	// fiber metrics, only with credentials configured
	if h.metrics.Enabled() {
		auth := basicauth.New(basicauth.Config{
			Users: map[string]string{
				h.metrics.User: h.metrics.Password,
			},
		})
		app.Get("/metrics", auth, monitor.New(monitor.Config{Title: "CourseCheckout Metrics"}))
		app.Get("/metrics/webhooks", auth, h.handlers.HandleWebhookStats)
	}
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{
		handlers: deps.Handlers,
		metrics:  deps.Metrics,
	}
}

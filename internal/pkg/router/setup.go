package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseCheckout/app/controllers"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/config"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps is what the routers need from the service root.
type Deps struct {
	Handlers    *controllers.Handlers
	Metrics     config.MetricsConfig
	AdminAPIKey string
	// LimiterStorage shares rate limit counters across instances; nil keeps
	// them in memory.
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Deps) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseCheckout/app/repository"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/payments"
)

const requestTimeout = 15 * time.Second

// Handlers holds the dependencies of the HTTP handlers. Everything is injected
// by the service root; handlers never reach for globals.
type Handlers struct {
	db       *gorm.DB
	repos    *repository.Repositories
	payments *payments.Service
	counter  *counter.Counter
}

func NewHandlers(db *gorm.DB, repos *repository.Repositories, svc *payments.Service) *Handlers {
	return &Handlers{
		db:       db,
		repos:    repos,
		payments: svc,
	}
}

// WithCounter enables webhook outcome counting.
func (h *Handlers) WithCounter(c *counter.Counter) *Handlers {
	h.counter = c
	return h
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

func pagination(c *fiber.Ctx) (int, int) {
	return c.QueryInt("offset", 0), c.QueryInt("limit", repository.DefaultListLimit)
}

package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/database"
)

// HandleHealth reports liveness and whether the database answers. It always
// returns 200 so load balancers keep routing while the database recovers.
func (h *Handlers) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	dbStatus := "up"
	if err := database.Ping(ctx, h.db); err != nil {
		log.Warnf("[Health] Database ping failed: %v", err)
		dbStatus = "down"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":   "ok",
		"database": dbStatus,
	})
}

// HandleSetupDB creates the tables if missing. Safe to call repeatedly.
func (h *Handlers) HandleSetupDB(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	tables, err := database.Migrate(ctx, h.db)
	if err != nil {
		log.Errorf("[SetupDB] Migration failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "setup_failed",
			"message": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "tables ready",
		"tables":  tables,
	})
}

// HandleWebhookStats returns the webhook outcome totals.
func (h *Handlers) HandleWebhookStats(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := h.counter.Snapshot(ctx)
	if err != nil {
		return apperror.WrapInternal("stats_unavailable", "could not read webhook counters", err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *Handlers) count(ctx context.Context, outcome string) {
	if err := h.counter.Add(ctx, outcome); err != nil {
		log.Debugf("[Metrics] could not count webhook outcome %s: %v", outcome, err)
	}
}

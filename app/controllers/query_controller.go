package controllers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleListUsers returns users, newest first.
func (h *Handlers) HandleListUsers(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	offset, limit := pagination(c)
	users, err := h.repos.User.List(ctx, offset, limit)
	if err != nil {
		return apperror.WrapInternal("query_failed", "failed to load users", err)
	}
	return c.Status(fiber.StatusOK).JSON(users)
}

// HandleCreateUser registers a user. An existing email returns 200 with the
// stored user instead of 201.
func (h *Handlers) HandleCreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Wrap(apperror.Validation, "invalid_request", "request body must be JSON", err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, created, err := h.payments.RegisterUser(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(user)
}

func (h *Handlers) HandleListTransactions(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	offset, limit := pagination(c)
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	txs, err := h.repos.Transaction.List(ctx, status, offset, limit)
	if err != nil {
		return apperror.WrapInternal("query_failed", "failed to load transactions", err)
	}
	return c.Status(fiber.StatusOK).JSON(txs)
}

func (h *Handlers) HandleListEnrollments(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	offset, limit := pagination(c)
	enrollments, err := h.repos.Enrollment.List(ctx, c.Query("email"), offset, limit)
	if err != nil {
		return apperror.WrapInternal("query_failed", "failed to load enrollments", err)
	}
	return c.Status(fiber.StatusOK).JSON(enrollments)
}

// HandleListWebhookEvents returns the recorded gateway deliveries, newest first.
func (h *Handlers) HandleListWebhookEvents(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	offset, limit := pagination(c)
	events, err := h.repos.WebhookEvent.List(ctx, offset, limit)
	if err != nil {
		return apperror.WrapInternal("query_failed", "failed to load webhook events", err)
	}
	return c.Status(fiber.StatusOK).JSON(events)
}

// HandleGetUser looks a user up by email.
func (h *Handlers) HandleGetUser(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil || strings.TrimSpace(email) == "" {
		return apperror.NewValidation("invalid_email", "email is required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.repos.User.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "not_found",
			"message": "user not found",
		})
	}
	if err != nil {
		return apperror.WrapInternal("query_failed", "failed to load user", err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// HandleStats returns row totals per table.
func (h *Handlers) HandleStats(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.repos.User.Count(ctx)
	if err != nil {
		return apperror.WrapInternal("query_failed", "failed to count users", err)
	}
	transactions, err := h.repos.Transaction.Count(ctx)
	if err != nil {
		return apperror.WrapInternal("query_failed", "failed to count transactions", err)
	}
	enrollments, err := h.repos.Enrollment.Count(ctx)
	if err != nil {
		return apperror.WrapInternal("query_failed", "failed to count enrollments", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"users":        users,
		"transactions": transactions,
		"enrollments":  enrollments,
	})
}

package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/payments"
)

const checksumHeader = "X-Event-Checksum"

// HandleSignature returns the signed checkout data for the payment widget.
func (h *Handlers) HandleSignature(c *fiber.Ctx) error {
	checkout, err := h.payments.Sign(
		c.Query("reference"),
		c.Query("amount"),
		c.Query("currency"),
		c.Query("expiration_time"),
	)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(checkout)
}

// HandleWompiWebhook processes a gateway event notification. Non 2xx answers
// make the gateway retry the delivery.
func (h *Handlers) HandleWompiWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	checksum := strings.TrimSpace(c.Get(checksumHeader))

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.payments.ProcessWebhook(ctx, rawBody, checksum)
	if err != nil {
		if apperror.IsKind(err, apperror.Validation) {
			h.count(ctx, counter.OutcomeRejected)
		} else {
			h.count(ctx, counter.OutcomeFailed)
		}
		return err
	}
	if res.Duplicate {
		h.count(ctx, counter.OutcomeDuplicate)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	h.count(ctx, counter.OutcomeProcessed)
	if res.Enrolled {
		h.count(ctx, counter.OutcomeEnrolled)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":       true,
		"status":   res.Status,
		"enrolled": res.Enrolled,
	})
}

// HandleCreatePayment proxies a charge to the gateway.
func (h *Handlers) HandleCreatePayment(c *fiber.Ctx) error {
	var in payments.CreatePaymentInput
	if err := c.BodyParser(&in); err != nil {
		return apperror.Wrap(apperror.Validation, "invalid_request", "request body must be JSON", err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	gt, synced, err := h.payments.CreatePayment(ctx, in)
	if err != nil {
		return err
	}

	resp := fiber.Map{"transaction": gt}
	if synced != nil {
		resp["local_transaction_id"] = synced.TransactionID
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleReconcile runs one reconciliation pass over pending transactions.
// ?older_than accepts a Go duration and defaults to one minute.
func (h *Handlers) HandleReconcile(c *fiber.Ctx) error {
	olderThan := time.Minute
	if raw := strings.TrimSpace(c.Query("older_than")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return apperror.NewValidation("invalid_older_than", "older_than must be a positive duration like 5m")
		}
		olderThan = d
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.payments.ReconcilePending(ctx, olderThan)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(res)
}

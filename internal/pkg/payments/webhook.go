package payments

import (
	"encoding/json"
	"strings"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
)

const EventTransactionUpdated = "transaction.updated"

// WebhookEvent is the envelope of a gateway notification.
type WebhookEvent struct {
	Event       string `json:"event"`
	Environment string `json:"environment"`
	SentAt      string `json:"sent_at"`
	Data        struct {
		Transaction *GatewayTransaction `json:"transaction"`
	} `json:"data"`
	Signature struct {
		Properties []string `json:"properties"`
		Checksum   string   `json:"checksum"`
	} `json:"signature"`
}

// Transaction returns the notified transaction. Only use it to know which
// transaction to re-fetch; its status is not trusted.
func (e *WebhookEvent) Transaction() *GatewayTransaction {
	return e.Data.Transaction
}

// ParseWebhookEvent validates the payload shape. A body without
// data.transaction.id is a client error.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil, apperror.NewValidation("invalid_payload", "empty webhook body")
	}

	var ev WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, apperror.Wrap(apperror.Validation, "invalid_payload", "webhook body is not valid JSON", err)
	}

	tx := ev.Data.Transaction
	if tx == nil {
		return nil, apperror.NewValidation("missing_transaction", "webhook payload has no data.transaction")
	}
	tx.ID = strings.TrimSpace(tx.ID)
	if tx.ID == "" {
		return nil, apperror.NewValidation("missing_transaction_id", "webhook transaction has no id")
	}
	tx.Status = strings.ToUpper(strings.TrimSpace(tx.Status))
	tx.CustomerEmail = strings.TrimSpace(tx.CustomerEmail)

	if ev.Event == "" {
		ev.Event = EventTransactionUpdated
	}
	return &ev, nil
}

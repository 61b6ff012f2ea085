package payments

import (
	"context"
	"time"
)

// GatewayTransaction is the gateway's view of a transaction. It is the only
// source trusted for status.
type GatewayTransaction struct {
	ID                string `json:"id"`
	CreatedAt         string `json:"created_at,omitempty"`
	AmountInCents     int64  `json:"amount_in_cents"`
	Reference         string `json:"reference"`
	Currency          string `json:"currency"`
	CustomerEmail     string `json:"customer_email"`
	PaymentMethodType string `json:"payment_method_type,omitempty"`
	Status            string `json:"status"`
	StatusMessage     string `json:"status_message,omitempty"`
}

// PaymentMethod is forwarded to the gateway as is.
type PaymentMethod struct {
	Type         string `json:"type" validate:"required,oneof=CARD NEQUI PSE BANCOLOMBIA_TRANSFER"`
	Token        string `json:"token,omitempty" validate:"required_if=Type CARD"`
	Installments int    `json:"installments,omitempty" validate:"gte=0,lte=36"`
	PhoneNumber  string `json:"phone_number,omitempty" validate:"required_if=Type NEQUI"`
}

// CreateTransactionRequest is the body of POST /transactions.
type CreateTransactionRequest struct {
	AcceptanceToken string        `json:"acceptance_token"`
	AmountInCents   int64         `json:"amount_in_cents"`
	Currency        string        `json:"currency"`
	Signature       string        `json:"signature"`
	CustomerEmail   string        `json:"customer_email"`
	Reference       string        `json:"reference"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
}

// Gateway is the subset of the payment gateway API the service depends on.
type Gateway interface {
	GetTransaction(ctx context.Context, id string) (*GatewayTransaction, error)
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*GatewayTransaction, error)
	AcceptanceToken(ctx context.Context) (string, error)
}

// TokenCache stores short lived gateway tokens. Get returns "" on a miss.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Archiver keeps a copy of raw webhook payloads.
type Archiver interface {
	Archive(ctx context.Context, key string, payload []byte) error
}

// Checkout is the signed data handed to the payment widget.
type Checkout struct {
	Reference      string `json:"reference"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Signature      string `json:"signature"`
	PublicKey      string `json:"publicKey,omitempty"`
	ExpirationTime string `json:"expirationTime,omitempty"`
}

// CreatePaymentInput is the card charge request accepted by the proxy endpoint.
type CreatePaymentInput struct {
	Email           string        `json:"email" validate:"required,email,max=150"`
	Name            string        `json:"name" validate:"max=100"`
	AmountInCents   int64         `json:"amount_in_cents" validate:"gte=0"`
	Currency        string        `json:"currency" validate:"omitempty,len=3"`
	Reference       string        `json:"reference" validate:"max=191"`
	AcceptanceToken string        `json:"acceptance_token"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
}

// SyncResult describes what a gateway transaction changed locally.
type SyncResult struct {
	TransactionID     uint   `json:"transaction_id"`
	ExternalID        string `json:"external_id"`
	Status            string `json:"status"`
	Enrolled          bool   `json:"enrolled"`
	EnrollmentCreated bool   `json:"enrollment_created"`
}

// WebhookResult is returned to the gateway after a delivery.
type WebhookResult struct {
	Duplicate bool `json:"duplicate,omitempty"`
	SyncResult
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Checked  int `json:"checked"`
	Updated  int `json:"updated"`
	Enrolled int `json:"enrolled"`
	Failed   int `json:"failed"`

	// StillOpen counts transactions the gateway has not settled yet.
	StillOpen int `json:"still_open"`
}

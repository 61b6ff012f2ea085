package models

import "time"

// Gateway transaction statuses. The gateway is authoritative, these are only
// mirrored locally.
const (
	TransactionStatusPending  = "PENDING"
	TransactionStatusApproved = "APPROVED"
	TransactionStatusDeclined = "DECLINED"
	TransactionStatusVoided   = "VOIDED"
	TransactionStatusError    = "ERROR"
)

// Transaction mirrors one gateway transaction, keyed by its external id.
type Transaction struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ExternalID        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"external_id"`
	Reference         string    `gorm:"type:varchar(191);index" json:"reference"`
	Email             string    `gorm:"type:varchar(150);index" json:"email"`
	AmountInCents     int64     `gorm:"not null;default:0" json:"amount_in_cents"`
	Currency          string    `gorm:"type:varchar(3)" json:"currency"`
	Status            string    `gorm:"type:varchar(32);not null;index" json:"status"`
	StatusMessage     string    `gorm:"type:text" json:"status_message,omitempty"`
	PaymentMethodType string    `gorm:"type:varchar(50)" json:"payment_method_type,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Transaction) IsApproved() bool {
	return t.Status == TransactionStatusApproved
}

// IsFinalTransactionStatus reports whether the gateway will not move the transaction anymore.
func IsFinalTransactionStatus(status string) bool {
	switch status {
	case TransactionStatusApproved, TransactionStatusDeclined, TransactionStatusVoided, TransactionStatusError:
		return true
	default:
		return false
	}
}

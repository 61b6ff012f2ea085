package models

import "time"

const ProviderWompi = "wompi"

// WebhookEvent stores gateway webhook payloads with deduplication metadata for
// idempotent processing.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;uniqueIndex:ux_webhook_events_provider_event,priority:1" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_provider_event,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;default:'';index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:text;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Settled reports whether the event was processed without error, meaning a
// redelivery can be acknowledged without doing the work again.
func (e *WebhookEvent) Settled() bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}

// AllModels lists every table owned by the service, in creation order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Transaction{},
		&Enrollment{},
		&WebhookEvent{},
	}
}

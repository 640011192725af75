package model

import (
	"database/sql/driver"
	"time"
)

// WebhookStatus represents the processing status of a webhook
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "pending"
	WebhookStatusCompleted WebhookStatus = "completed"
	// WebhookStatusSkipped marks events acknowledged without a write, e.g. no user attribution.
	WebhookStatusSkipped WebhookStatus = "skipped"
	WebhookStatusFailed  WebhookStatus = "failed"
)

// Final reports whether an event in this status must not be processed again.
func (w WebhookStatus) Final() bool {
	return w == WebhookStatusCompleted || w == WebhookStatusSkipped
}

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// StripeWebhookEvent is the ledger entry for one delivered provider event.
type StripeWebhookEvent struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	StripeEventID      string        `gorm:"uniqueIndex;not null;size:255" json:"stripe_event_id"`
	EventType          string        `gorm:"not null;size:100;index" json:"event_type"`
	Status             WebhookStatus `gorm:"not null;size:32;default:'pending';index" json:"status"`
	ProcessingAttempts int           `gorm:"not null;default:0" json:"processing_attempts"`
	LastError          *string       `json:"last_error,omitempty"`
	ProcessedAt        *time.Time    `json:"processed_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (StripeWebhookEvent) TableName() string {
	return "stripe_webhook_events"
}

package repository

import (
	"context"

	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
)

// WebhookEventRepository is the ledger of delivered provider events.
type WebhookEventRepository interface {
	// Record inserts the event as pending unless it exists, and returns the stored row.
	Record(ctx context.Context, eventID, eventType string) (*model.StripeWebhookEvent, error)
	MarkCompleted(ctx context.Context, eventID string) error
	MarkSkipped(ctx context.Context, eventID string, reason string) error
	MarkFailed(ctx context.Context, eventID string, err error) error
}

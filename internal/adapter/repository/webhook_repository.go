package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook event ledger
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) repository.WebhookEventRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// Record saves the event as pending if it is new and returns the stored row.
func (r *webhookRepository) Record(ctx context.Context, eventID, eventType string) (*model.StripeWebhookEvent, error) {
	event := &model.StripeWebhookEvent{
		StripeEventID: eventID,
		EventType:     eventType,
		Status:        model.WebhookStatusPending,
	}

	// Use ON CONFLICT to handle duplicate events
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_event_id"}},
			DoNothing: true,
		}).
		Create(event).Error
	if err != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save webhook event: %w", err)
	}

	var stored model.StripeWebhookEvent
	if err := r.db.WithContext(ctx).
		Where("stripe_event_id = ?", eventID).
		First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &stored, nil
}

// MarkCompleted marks a webhook event as processed
func (r *webhookRepository) MarkCompleted(ctx context.Context, eventID string) error {
	now := time.Now().UTC()
	return r.update(ctx, eventID, map[string]interface{}{
		"status":       model.WebhookStatusCompleted,
		"processed_at": &now,
		"last_error":   nil,
		"updated_at":   now,
	})
}

// MarkSkipped records an event that was acknowledged without a write.
func (r *webhookRepository) MarkSkipped(ctx context.Context, eventID string, reason string) error {
	now := time.Now().UTC()
	return r.update(ctx, eventID, map[string]interface{}{
		"status":       model.WebhookStatusSkipped,
		"processed_at": &now,
		"last_error":   &reason,
		"updated_at":   now,
	})
}

// MarkFailed marks a webhook event as failed and counts the attempt
func (r *webhookRepository) MarkFailed(ctx context.Context, eventID string, cause error) error {
	errorMsg := cause.Error()
	return r.update(ctx, eventID, map[string]interface{}{
		"status":              model.WebhookStatusFailed,
		"processing_attempts": gorm.Expr("processing_attempts + 1"),
		"last_error":          &errorMsg,
		"updated_at":          time.Now().UTC(),
	})
}

func (r *webhookRepository) update(ctx context.Context, eventID string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.StripeWebhookEvent{}).
		Where("stripe_event_id = ?", eventID).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to update webhook event",
			zap.String("event_id", eventID),
			zap.Any("status", updates["status"]),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update webhook event: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("webhook event not found: %s", eventID)
	}

	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var accessStatuses = []model.SubscriptionStatus{
	model.SubscriptionStatusActive,
	model.SubscriptionStatusCanceled,
}

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the subscription or overwrites the row with the same
// stripe_subscription_id. created_at is only set on insert.
func (r *subscriptionRepository) Upsert(ctx context.Context, subscription *model.Subscription) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stripe_subscription_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id",
				"stripe_customer_id",
				"plan_id",
				"status",
				"current_period_start",
				"current_period_end",
				"cancel_at_period_end",
				"updated_at",
			}),
		}).
		Create(subscription).Error

	if err != nil {
		r.logger.Error("Failed to upsert subscription",
			zap.String("subscription_id", subscription.StripeSubscriptionID),
			zap.String("user_id", subscription.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return nil
}

// GetByStripeID retrieves subscription by Stripe subscription ID
func (r *subscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by ID",
			zap.String("subscription_id", stripeSubscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetLatestByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("current_period_end DESC").
		Order("id DESC").
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get latest subscription",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) GetActiveByUserID(ctx context.Context, userID string, now time.Time) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND current_period_end > ?", userID, accessStatuses, now).
		Order("current_period_end DESC").
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active subscription",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	return &sub, nil
}

func (r *subscriptionRepository) MarkCanceled(ctx context.Context, stripeSubscriptionID string, periodEnd *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     model.SubscriptionStatusCanceled,
		"updated_at": time.Now().UTC(),
	}
	if periodEnd != nil {
		updates["current_period_end"] = *periodEnd
	}

	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to mark subscription canceled",
			zap.String("subscription_id", stripeSubscriptionID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to cancel subscription: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

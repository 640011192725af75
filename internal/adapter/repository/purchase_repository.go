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

type purchaseRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *gorm.DB, logger *zap.Logger) repository.PurchaseRepository {
	return &purchaseRepository{
		db:     db,
		logger: logger,
	}
}

// CreateIfAbsent inserts the purchase with ON CONFLICT DO NOTHING on the
// payment intent id, so redelivered checkout events never add credits twice.
func (r *purchaseRepository) CreateIfAbsent(ctx context.Context, purchase *model.Purchase) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_payment_intent_id"}},
			DoNothing: true,
		}).
		Create(purchase)

	if result.Error != nil {
		r.logger.Error("Failed to create purchase",
			zap.String("payment_intent_id", purchase.StripePaymentIntentID),
			zap.String("user_id", purchase.UserID),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to create purchase: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *purchaseRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Purchase, error) {
	var purchase model.Purchase

	err := r.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", paymentIntentID).
		First(&purchase).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	return &purchase, nil
}

func (r *purchaseRepository) GetActiveByUserID(ctx context.Context, userID string, now time.Time) (*model.Purchase, error) {
	var purchase model.Purchase

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND resumes_remaining > 0 AND expires_at > ?",
			userID, model.PurchaseStatusSucceeded, now).
		Order("expires_at DESC").
		First(&purchase).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active purchase",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get active purchase: %w", err)
	}

	return &purchase, nil
}

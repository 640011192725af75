package usecase

import (
	"context"
	"fmt"

	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/domain/provider"
	"github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
)

// ResyncService repairs a subscription row from the provider's current
// state, always through the reconciler.
type ResyncService struct {
	provider         provider.BillingProvider
	subscriptionRepo repository.SubscriptionRepository
	reconciler       *SubscriptionReconciler
	logger           *zap.Logger
}

// NewResyncService creates a new resync service
func NewResyncService(
	billingProvider provider.BillingProvider,
	subscriptionRepo repository.SubscriptionRepository,
	reconciler *SubscriptionReconciler,
	logger *zap.Logger,
) *ResyncService {
	return &ResyncService{
		provider:         billingProvider,
		subscriptionRepo: subscriptionRepo,
		reconciler:       reconciler,
		logger:           logger,
	}
}

// ResyncSubscription re-fetches subscriptionID and reconciles it. When the
// provider's metadata lacks a user id, the user id of the existing row is used.
func (s *ResyncService) ResyncSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	sub, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if UserIDFromMetadata(sub.Metadata) == "" {
		existing, err := s.subscriptionRepo.GetByStripeID(ctx, subscriptionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get existing subscription: %w", err)
		}
		if existing != nil {
			withUserID(sub, existing.UserID)
		}
	}

	row, err := s.reconciler.Reconcile(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Subscription re-synced",
		zap.String("subscription_id", subscriptionID),
		zap.String("user_id", row.UserID),
		zap.String("status", string(row.Status)))
	return row, nil
}

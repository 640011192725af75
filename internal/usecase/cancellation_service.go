package usecase

import (
	"context"
	"fmt"

	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/domain/provider"
	"github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
)

// CancellationService schedules a user's subscription to end at period end.
// Access is kept until then; no row is deleted.
type CancellationService struct {
	provider         provider.BillingProvider
	subscriptionRepo repository.SubscriptionRepository
	reconciler       *SubscriptionReconciler
	logger           *zap.Logger
}

// NewCancellationService creates a new cancellation service
func NewCancellationService(
	billingProvider provider.BillingProvider,
	subscriptionRepo repository.SubscriptionRepository,
	reconciler *SubscriptionReconciler,
	logger *zap.Logger,
) *CancellationService {
	return &CancellationService{
		provider:         billingProvider,
		subscriptionRepo: subscriptionRepo,
		reconciler:       reconciler,
		logger:           logger,
	}
}

// CancelForUser cancels the user's latest subscription at period end.
func (s *CancellationService) CancelForUser(ctx context.Context, userID string) (*model.Subscription, error) {
	latest, err := s.subscriptionRepo.GetLatestByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if latest == nil {
		return nil, domainErrors.ErrSubscriptionNotFound
	}

	if latest.Status == model.SubscriptionStatusCanceled || latest.CancelAtPeriodEnd {
		s.logger.Info("Subscription already canceled",
			zap.String("user_id", userID),
			zap.String("subscription_id", latest.StripeSubscriptionID))
		return latest, nil
	}

	sub, err := s.provider.CancelAtPeriodEnd(ctx, latest.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	withUserID(sub, latest.UserID)

	row, err := s.reconciler.Reconcile(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Subscription cancellation scheduled",
		zap.String("user_id", userID),
		zap.String("subscription_id", row.StripeSubscriptionID),
		zap.Time("current_period_end", row.CurrentPeriodEnd))
	return row, nil
}

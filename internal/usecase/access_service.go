package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/wekeepgrowing/resume-billing/internal/domain/dto"
	"github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
)

// AccessService answers whether a user currently has paid access. It only reads.
type AccessService struct {
	subscriptionRepo repository.SubscriptionRepository
	purchaseRepo     repository.PurchaseRepository
	recorder         Recorder
	logger           *zap.Logger
	now              func() time.Time
}

// NewAccessService creates a new access service
func NewAccessService(
	subscriptionRepo repository.SubscriptionRepository,
	purchaseRepo repository.PurchaseRepository,
	recorder Recorder,
	logger *zap.Logger,
) *AccessService {
	return &AccessService{
		subscriptionRepo: subscriptionRepo,
		purchaseRepo:     purchaseRepo,
		recorder:         recorder,
		logger:           logger,
		now:              time.Now,
	}
}

// WithClock replaces the clock used for the access cutoff.
func (s *AccessService) WithClock(now func() time.Time) *AccessService {
	s.now = now
	return s
}

// HasAccess is true when an active or canceled subscription has a period end
// after now, or a succeeded purchase has credits left and has not expired.
func (s *AccessService) HasAccess(ctx context.Context, userID string) (bool, error) {
	snapshot, err := s.Snapshot(ctx, userID)
	if err != nil {
		return false, err
	}
	return snapshot.HasAccess, nil
}

// Snapshot returns the access decision together with the rows behind it.
func (s *AccessService) Snapshot(ctx context.Context, userID string) (*dto.AccessSnapshot, error) {
	now := s.now().UTC()
	snapshot := &dto.AccessSnapshot{
		UserID:    userID,
		Source:    dto.AccessSourceNone,
		CheckedAt: now,
	}
	if userID == "" {
		return snapshot, nil
	}

	active, err := s.subscriptionRepo.GetActiveByUserID(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscription: %w", err)
	}

	display := active
	if display == nil {
		display, err = s.subscriptionRepo.GetLatestByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest subscription: %w", err)
		}
	}
	if display != nil {
		snapshot.Subscription = &dto.SubscriptionSummary{
			StripeSubscriptionID: display.StripeSubscriptionID,
			PlanID:               display.PlanID,
			Status:               string(display.Status),
			CurrentPeriodEnd:     display.CurrentPeriodEnd,
			CancelAtPeriodEnd:    display.CancelAtPeriodEnd,
		}
	}

	purchase, err := s.purchaseRepo.GetActiveByUserID(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active purchase: %w", err)
	}
	if purchase != nil {
		snapshot.Purchase = &dto.PurchaseSummary{
			PlanID:           purchase.PlanID,
			ResumesRemaining: purchase.ResumesRemaining,
			ExpiresAt:        purchase.ExpiresAt,
		}
	}

	switch {
	case active != nil && active.HasAccessAt(now):
		snapshot.HasAccess = true
		snapshot.Source = dto.AccessSourceSubscription
	case purchase != nil && purchase.HasAccessAt(now):
		snapshot.HasAccess = true
		snapshot.Source = dto.AccessSourcePurchase
	}

	s.recorder.ObserveAccess(snapshot.HasAccess, string(snapshot.Source))
	s.logger.Debug("Access decided",
		zap.String("user_id", userID),
		zap.Bool("has_access", snapshot.HasAccess),
		zap.String("source", string(snapshot.Source)))

	return snapshot, nil
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
)

// Metadata keys carrying the local user id on provider objects.
const (
	MetadataUserID       = "userId"
	MetadataUserIDLegacy = "user_id"
)

// SubscriptionReconciler turns a provider subscription into a
// user_subscriptions row. It is the only writer of that table.
type SubscriptionReconciler struct {
	subscriptionRepo repository.SubscriptionRepository
	catalog          *PlanCatalog
	notifier         AccessNotifier
	recorder         Recorder
	logger           *zap.Logger
}

// NewSubscriptionReconciler creates a new subscription reconciler
func NewSubscriptionReconciler(
	subscriptionRepo repository.SubscriptionRepository,
	catalog *PlanCatalog,
	notifier AccessNotifier,
	recorder Recorder,
	logger *zap.Logger,
) *SubscriptionReconciler {
	return &SubscriptionReconciler{
		subscriptionRepo: subscriptionRepo,
		catalog:          catalog,
		notifier:         notifier,
		recorder:         recorder,
		logger:           logger,
	}
}

// Reconcile upserts the row for sub. It writes nothing when the user id is
// missing or the period window is invalid.
func (r *SubscriptionReconciler) Reconcile(ctx context.Context, sub *stripe.Subscription) (row *model.Subscription, err error) {
	start := time.Now()
	defer func() { r.recorder.ObserveReconcile("subscription", time.Since(start), err) }()

	if sub == nil || sub.ID == "" {
		return nil, fmt.Errorf("%w: subscription without id", domainErrors.ErrInvalidEvent)
	}

	userID := UserIDFromMetadata(sub.Metadata)
	if userID == "" {
		r.logger.Warn("Subscription has no user id in metadata",
			zap.String("subscription_id", sub.ID),
			zap.String("status", string(sub.Status)))
		return nil, domainErrors.ErrMissingUserID
	}

	periodStart, periodEnd, err := PeriodWindow(sub)
	if err != nil {
		r.logger.Error("Invalid subscription period",
			zap.String("subscription_id", sub.ID),
			zap.String("status", string(sub.Status)),
			zap.Int64("trial_start", sub.TrialStart),
			zap.Int64("trial_end", sub.TrialEnd),
			zap.Int64("current_period_start", sub.CurrentPeriodStart),
			zap.Int64("current_period_end", sub.CurrentPeriodEnd),
			zap.Error(err))
		return nil, err
	}

	priceID := firstPriceID(sub)
	row = &model.Subscription{
		UserID:               userID,
		StripeCustomerID:     customerID(sub),
		StripeSubscriptionID: sub.ID,
		PlanID:               r.catalog.PlanForPrice(priceID),
		Status:               model.SubscriptionStatus(sub.Status),
		CurrentPeriodStart:   periodStart,
		CurrentPeriodEnd:     periodEnd,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}

	if err := r.subscriptionRepo.Upsert(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to store subscription: %w", err)
	}

	r.logger.Info("Subscription reconciled",
		zap.String("subscription_id", row.StripeSubscriptionID),
		zap.String("user_id", row.UserID),
		zap.String("price_id", priceID),
		zap.String("plan_id", row.PlanID),
		zap.String("status", string(row.Status)),
		zap.Time("current_period_end", row.CurrentPeriodEnd))

	notify(ctx, r.notifier, AccessChange{
		UserID:      row.UserID,
		Source:      "subscription",
		Status:      string(row.Status),
		ReferenceID: row.StripeSubscriptionID,
		OccurredAt:  time.Now().UTC(),
	}, r.logger)

	return row, nil
}

// PeriodWindow selects (trial_start, trial_end) for trialing subscriptions
// and (current_period_start, current_period_end) otherwise. Both bounds must
// be set and end must not precede start.
func PeriodWindow(sub *stripe.Subscription) (time.Time, time.Time, error) {
	startUnix, endUnix := sub.CurrentPeriodStart, sub.CurrentPeriodEnd
	if sub.Status == stripe.SubscriptionStatusTrialing {
		startUnix, endUnix = sub.TrialStart, sub.TrialEnd
	}

	if startUnix <= 0 || endUnix <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: missing bound for status %s (start=%d end=%d)",
			domainErrors.ErrInvalidPeriod, sub.Status, startUnix, endUnix)
	}
	if endUnix < startUnix {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %d precedes start %d",
			domainErrors.ErrInvalidPeriod, endUnix, startUnix)
	}

	return time.Unix(startUnix, 0).UTC(), time.Unix(endUnix, 0).UTC(), nil
}

// UserIDFromMetadata reads the local user id, preferring userId over user_id.
func UserIDFromMetadata(metadata map[string]string) string {
	if id := metadata[MetadataUserID]; id != "" {
		return id
	}
	return metadata[MetadataUserIDLegacy]
}

// withUserID sets the user id on sub when its metadata has none.
func withUserID(sub *stripe.Subscription, userID string) {
	if userID == "" || UserIDFromMetadata(sub.Metadata) != "" {
		return
	}
	if sub.Metadata == nil {
		sub.Metadata = make(map[string]string, 1)
	}
	sub.Metadata[MetadataUserID] = userID
}

func firstPriceID(sub *stripe.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	item := sub.Items.Data[0]
	if item == nil || item.Price == nil {
		return ""
	}
	return item.Price.ID
}

func customerID(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}

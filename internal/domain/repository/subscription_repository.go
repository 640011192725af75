package repository

import (
	"context"
	"time"

	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
)

// SubscriptionRepository stores user_subscriptions rows. Reads return
// (nil, nil) when nothing matches.
type SubscriptionRepository interface {
	// Upsert inserts or updates the row with the same StripeSubscriptionID.
	Upsert(ctx context.Context, subscription *model.Subscription) error
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error)
	// GetLatestByUserID returns the row with the latest period end.
	GetLatestByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	// GetActiveByUserID returns a row granting access at now.
	GetActiveByUserID(ctx context.Context, userID string, now time.Time) (*model.Subscription, error)
	// MarkCanceled sets status canceled and, when periodEnd is given, the
	// period end. It reports whether a row matched.
	MarkCanceled(ctx context.Context, stripeSubscriptionID string, periodEnd *time.Time) (bool, error)
}

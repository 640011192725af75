package repository

import (
	"context"
	"time"

	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
)

type PurchaseRepository interface {
	// CreateIfAbsent inserts the purchase unless one with the same payment
	// intent id exists. It reports whether a row was created.
	CreateIfAbsent(ctx context.Context, purchase *model.Purchase) (bool, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Purchase, error)
	// GetActiveByUserID returns the purchase granting access at now that expires last.
	GetActiveByUserID(ctx context.Context, userID string, now time.Time) (*model.Purchase, error)
}

package http

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"github.com/wekeepgrowing/resume-billing/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/usecase"
	pkgerrors "github.com/wekeepgrowing/resume-billing/pkg/errors"
	"go.uber.org/zap"
)

// WebhookProcessor applies a verified event.
type WebhookProcessor interface {
	HandleEvent(ctx context.Context, event stripe.Event) (usecase.WebhookOutcome, error)
}

// AccessChecker answers access questions for the UI.
type AccessChecker interface {
	Snapshot(ctx context.Context, userID string) (*dto.AccessSnapshot, error)
}

// SubscriptionCanceller schedules cancellation at period end.
type SubscriptionCanceller interface {
	CancelForUser(ctx context.Context, userID string) (*model.Subscription, error)
}

// SubscriptionResyncer re-reads a subscription from the provider.
type SubscriptionResyncer interface {
	ResyncSubscription(ctx context.Context, subscriptionID string) (*model.Subscription, error)
}

// subscriptionResponse is the JSON view of a subscription row.
type subscriptionResponse struct {
	StripeSubscriptionID string `json:"stripe_subscription_id"`
	PlanID               string `json:"plan_id"`
	Status               string `json:"status"`
	CurrentPeriodStart   string `json:"current_period_start"`
	CurrentPeriodEnd     string `json:"current_period_end"`
	CancelAtPeriodEnd    bool   `json:"cancel_at_period_end"`
}

func toSubscriptionResponse(sub *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		StripeSubscriptionID: sub.StripeSubscriptionID,
		PlanID:               sub.PlanID,
		Status:               string(sub.Status),
		CurrentPeriodStart:   sub.CurrentPeriodStart.UTC().Format(time.RFC3339),
		CurrentPeriodEnd:     sub.CurrentPeriodEnd.UTC().Format(time.RFC3339),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
}

// classify maps use case errors to coded application errors.
func classify(err error, fallback string) *pkgerrors.AppError {
	var appErr *pkgerrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domainErrors.ErrSubscriptionNotFound):
		return pkgerrors.NotFound("Subscription not found", err)
	case domainErrors.IsAttributionError(err):
		return pkgerrors.NewAppError(pkgerrors.ErrUnprocessable, "Subscription has no user id", err)
	case errors.Is(err, domainErrors.ErrInvalidPeriod):
		return pkgerrors.NewAppError(pkgerrors.ErrUnprocessable, "Subscription has an invalid billing period", err)
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.NewAppError(pkgerrors.ErrTimeout, "Request timed out", err)
	default:
		return pkgerrors.Internal(fallback, err)
	}
}

// respondError logs err and writes its coded JSON body. Causes stay in the log.
func respondError(c echo.Context, logger *zap.Logger, err error, fallback string, fields ...zap.Field) error {
	appErr := classify(err, fallback)
	pkgerrors.LogError(logger, appErr, fallback, fields...)
	return c.JSON(pkgerrors.ToHTTPStatus(appErr.Code()), echo.Map{
		"error": appErr.Message(),
		"code":  appErr.Code(),
	})
}

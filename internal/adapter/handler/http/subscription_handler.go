package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/resume-billing/internal/middleware/auth"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	logger    *zap.Logger
	canceller SubscriptionCanceller
}

func NewSubscriptionHandler(logger *zap.Logger, canceller SubscriptionCanceller) *SubscriptionHandler {
	return &SubscriptionHandler{
		logger:    logger,
		canceller: canceller,
	}
}

// CancelSubscription schedules the caller's subscription to end at period end.
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	h.logger.Info("Canceling subscription", zap.String("user_id", user.UserID))

	sub, err := h.canceller.CancelForUser(c.Request().Context(), user.UserID)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to cancel subscription",
			zap.String("user_id", user.UserID))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Subscription will be canceled at the end of the billing period",
		"subscription": toSubscriptionResponse(sub),
	})
}

package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	pkgerrors "github.com/wekeepgrowing/resume-billing/pkg/errors"
	"go.uber.org/zap"
)

type AdminHandler struct {
	logger   *zap.Logger
	resyncer SubscriptionResyncer
}

func NewAdminHandler(logger *zap.Logger, resyncer SubscriptionResyncer) *AdminHandler {
	return &AdminHandler{
		logger:   logger,
		resyncer: resyncer,
	}
}

// ResyncSubscription re-fetches a subscription from Stripe and reconciles it.
func (h *AdminHandler) ResyncSubscription(c echo.Context) error {
	subscriptionID := strings.TrimSpace(c.Param("id"))
	if !strings.HasPrefix(subscriptionID, "sub_") {
		return respondError(c, h.logger,
			pkgerrors.InvalidArgument("Invalid subscription id", nil),
			"Invalid subscription id",
			zap.String("subscription_id", subscriptionID))
	}

	h.logger.Info("Admin resync requested", zap.String("subscription_id", subscriptionID))

	sub, err := h.resyncer.ResyncSubscription(c.Request().Context(), subscriptionID)
	if err != nil {
		return respondError(c, h.logger, err, "Resync failed",
			zap.String("subscription_id", subscriptionID))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subscription": toSubscriptionResponse(sub),
	})
}

package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/provider"
	"github.com/wekeepgrowing/resume-billing/internal/usecase"
	"go.uber.org/zap"
)

// MaxWebhookBodyBytes bounds the body read for one event.
const MaxWebhookBodyBytes = 64 * 1024

type WebhookHandler struct {
	logger    *zap.Logger
	verifier  provider.EventVerifier
	processor WebhookProcessor
}

func NewWebhookHandler(logger *zap.Logger, verifier provider.EventVerifier, processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger,
		verifier:  verifier,
		processor: processor,
	}
}

// HandleWebhook receives Stripe events. Only invalid input and store or
// provider failures are answered with an error status.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxWebhookBodyBytes+1))
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
	}
	if len(body) > MaxWebhookBodyBytes {
		h.logger.Warn("Webhook body too large", zap.Int("limit", MaxWebhookBodyBytes))
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "Request body too large"})
	}

	event, err := h.verifier.ConstructEvent(body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, domainErrors.ErrSignatureVerification) {
			h.logger.Warn("Webhook signature verification failed", zap.Error(err))
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Webhook signature verification failed",
			})
		}
		h.logger.Warn("Invalid webhook payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid webhook payload",
		})
	}

	outcome, err := h.processor.HandleEvent(c.Request().Context(), event)
	switch outcome {
	case usecase.WebhookOutcomeInvalid:
		h.logger.Warn("Webhook event rejected",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid webhook event",
		})
	case usecase.WebhookOutcomeFailed:
		h.logger.Error("Webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Webhook processing failed",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

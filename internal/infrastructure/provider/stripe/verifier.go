package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/provider"
	"go.uber.org/zap"
)

// EventVerifier checks Stripe-Signature headers. With an empty secret it
// parses bodies unsigned, which config validation forbids in production.
type EventVerifier struct {
	secret string
	logger *zap.Logger
}

var _ provider.EventVerifier = (*EventVerifier)(nil)

// NewEventVerifier creates a verifier for the endpoint secret.
func NewEventVerifier(secret string, logger *zap.Logger) *EventVerifier {
	if secret == "" {
		logger.Warn("Stripe webhook secret not configured, webhook signatures will not be verified")
	}
	return &EventVerifier{
		secret: secret,
		logger: logger,
	}
}

// Verifies reports whether signatures are checked.
func (v *EventVerifier) Verifies() bool {
	return v.secret != ""
}

// ConstructEvent decodes payload into an event. When a secret is set the
// signature must be present and valid; there is no unsigned fallback.
func (v *EventVerifier) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if v.secret == "" {
		return parseUnsigned(payload)
	}

	if signature == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing Stripe-Signature header", domainErrors.ErrSignatureVerification)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return stripe.Event{}, fmt.Errorf("%w: %v", domainErrors.ErrSignatureVerification, err)
		}
		return stripe.Event{}, fmt.Errorf("%w: %v", domainErrors.ErrInvalidEvent, err)
	}

	if event.Type == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing event type", domainErrors.ErrInvalidEvent)
	}
	return event, nil
}

func parseUnsigned(payload []byte) (stripe.Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", domainErrors.ErrInvalidEvent, err)
	}
	if event.Type == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing event type", domainErrors.ErrInvalidEvent)
	}
	return event, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

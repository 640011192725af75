package provider

import (
	"context"

	"github.com/stripe/stripe-go/v79"
)

// BillingProvider is the subset of the billing API the service calls.
type BillingProvider interface {
	// GetSubscription fetches the current state of a subscription.
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)

	// CancelAtPeriodEnd schedules cancellation at the end of the paid period
	// and returns the updated subscription.
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// EventVerifier turns a raw webhook delivery into an event.
type EventVerifier interface {
	// ConstructEvent verifies signature against payload. Verification
	// failures wrap ErrSignatureVerification; undecodable bodies wrap ErrInvalidEvent.
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

package errors

import "errors"

var (
	// ErrSubscriptionNotFound indicates that the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrMissingUserID indicates that a subscription carries no user id in its metadata
	ErrMissingUserID = errors.New("subscription metadata has no user id")

	// ErrUserNotFound indicates that no identity-provider user matches the checkout email
	ErrUserNotFound = errors.New("no user found for checkout email")

	// ErrInvalidPeriod indicates missing or inverted billing period bounds
	ErrInvalidPeriod = errors.New("invalid subscription period")

	// ErrInvalidEvent indicates a webhook body that cannot be decoded into an event
	ErrInvalidEvent = errors.New("invalid webhook event")

	// ErrSignatureVerification indicates a missing or invalid webhook signature
	ErrSignatureVerification = errors.New("webhook signature verification failed")

	// ErrPaymentIncomplete indicates a checkout session whose payment has not been collected
	ErrPaymentIncomplete = errors.New("checkout session is not paid")
)

// IsAttributionError reports whether err means the event could not be tied
// to a user. Such events are acknowledged without a write.
func IsAttributionError(err error) bool {
	return errors.Is(err, ErrMissingUserID) || errors.Is(err, ErrUserNotFound)
}

// IsSkippable reports whether a webhook event that failed with err should be
// acknowledged without a retry. Redelivery cannot fix these.
func IsSkippable(err error) bool {
	return IsAttributionError(err) || errors.Is(err, ErrPaymentIncomplete)
}

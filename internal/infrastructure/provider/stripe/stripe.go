package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/provider"
	"go.uber.org/zap"
)

// Options configures the Stripe API client.
type Options struct {
	SecretKey         string
	Timeout           time.Duration
	MaxNetworkRetries int64
	// APIURL overrides the API base URL, for tests.
	APIURL string
}

// StripeProvider implements provider.BillingProvider on an injected
// client.API. No package-level stripe.Key is used.
type StripeProvider struct {
	api    *client.API
	logger *zap.Logger
}

var _ provider.BillingProvider = (*StripeProvider)(nil)

// NewStripeProvider creates a Stripe provider with its own HTTP client.
func NewStripeProvider(opts Options, logger *zap.Logger) *StripeProvider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(opts.MaxNetworkRetries),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	if opts.APIURL != "" {
		backendConfig.URL = stripe.String(opts.APIURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	}

	return &StripeProvider{
		api:    client.New(opts.SecretKey, backends),
		logger: logger,
	}
}

// GetSubscription fetches a subscription with its items and prices.
func (s *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	}

	sub, err := s.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		s.logger.Error("Failed to get subscription from Stripe",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription %s: %w", subscriptionID, translate(err))
	}

	return sub, nil
}

// CancelAtPeriodEnd sets cancel_at_period_end on the subscription.
func (s *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(true),
	}

	sub, err := s.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		s.logger.Error("Failed to cancel subscription at period end",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to cancel subscription %s: %w", subscriptionID, translate(err))
	}

	s.logger.Info("Subscription set to cancel at period end",
		zap.String("subscription_id", subscriptionID),
		zap.Int64("current_period_end", sub.CurrentPeriodEnd))

	return sub, nil
}

// translate maps a missing-resource response to ErrSubscriptionNotFound.
func translate(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) &&
		(stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing) {
		return fmt.Errorf("%w: %s", domainErrors.ErrSubscriptionNotFound, stripeErr.Msg)
	}
	return err
}

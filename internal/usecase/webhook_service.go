package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/provider"
	"github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
)

// WebhookOutcome classifies how an event was handled.
type WebhookOutcome string

const (
	// WebhookOutcomeProcessed: the event was applied.
	WebhookOutcomeProcessed WebhookOutcome = "processed"
	// WebhookOutcomeIgnored: the event type needs no action.
	WebhookOutcomeIgnored WebhookOutcome = "ignored"
	// WebhookOutcomeDuplicate: the event was already handled.
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	// WebhookOutcomeSkipped: the event cannot be attributed or is not actionable; acknowledged without a write.
	WebhookOutcomeSkipped WebhookOutcome = "skipped"
	// WebhookOutcomeInvalid: the event content is unusable; rejected as a client error.
	WebhookOutcomeInvalid WebhookOutcome = "invalid"
	// WebhookOutcomeFailed: a store or provider call failed; the provider should retry.
	WebhookOutcomeFailed WebhookOutcome = "failed"
)

// WebhookService dispatches verified provider events to the reconcilers.
type WebhookService struct {
	ledger                 repository.WebhookEventRepository
	subscriptionRepo       repository.SubscriptionRepository
	provider               provider.BillingProvider
	subscriptionReconciler *SubscriptionReconciler
	purchaseReconciler     *PurchaseReconciler
	notifier               AccessNotifier
	recorder               Recorder
	logger                 *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	ledger repository.WebhookEventRepository,
	subscriptionRepo repository.SubscriptionRepository,
	billingProvider provider.BillingProvider,
	subscriptionReconciler *SubscriptionReconciler,
	purchaseReconciler *PurchaseReconciler,
	notifier AccessNotifier,
	recorder Recorder,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		ledger:                 ledger,
		subscriptionRepo:       subscriptionRepo,
		provider:               billingProvider,
		subscriptionReconciler: subscriptionReconciler,
		purchaseReconciler:     purchaseReconciler,
		notifier:               notifier,
		recorder:               recorder,
		logger:                 logger,
	}
}

// HandleEvent applies event at most once per event id. The returned error is
// non-nil only for WebhookOutcomeInvalid and WebhookOutcomeFailed.
func (s *WebhookService) HandleEvent(ctx context.Context, event stripe.Event) (outcome WebhookOutcome, err error) {
	eventType := string(event.Type)
	defer func() { s.recorder.ObserveWebhook(eventType, outcome) }()

	log := s.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", eventType))

	if event.ID != "" {
		record, err := s.ledger.Record(ctx, event.ID, eventType)
		if err != nil {
			log.Error("Failed to record webhook event", zap.Error(err))
			return WebhookOutcomeFailed, err
		}
		if record.Status.Final() {
			log.Info("Webhook event already handled", zap.String("status", string(record.Status)))
			return WebhookOutcomeDuplicate, nil
		}
	}

	outcome, err = s.dispatch(ctx, event, log)

	switch {
	case err == nil:
		s.markCompleted(ctx, event.ID, log)
		log.Info("Webhook event handled", zap.String("outcome", string(outcome)))
		return outcome, nil

	case domainErrors.IsSkippable(err):
		log.Warn("Webhook event skipped", zap.Error(err))
		s.markSkipped(ctx, event.ID, err, log)
		return WebhookOutcomeSkipped, nil

	case errors.Is(err, domainErrors.ErrInvalidPeriod), errors.Is(err, domainErrors.ErrInvalidEvent):
		log.Error("Webhook event rejected", zap.Error(err))
		s.markFailed(ctx, event.ID, err, log)
		return WebhookOutcomeInvalid, err

	default:
		log.Error("Webhook event processing failed", zap.Error(err))
		s.markFailed(ctx, event.ID, err, log)
		return WebhookOutcomeFailed, err
	}
}

func (s *WebhookService) dispatch(ctx context.Context, event stripe.Event, log *zap.Logger) (WebhookOutcome, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := decodeObject(event, &session); err != nil {
			return WebhookOutcomeInvalid, err
		}
		return s.handleCheckoutCompleted(ctx, &session, log)

	case stripe.EventTypeCustomerSubscriptionCreated, stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := decodeObject(event, &sub); err != nil {
			return WebhookOutcomeInvalid, err
		}
		if _, err := s.subscriptionReconciler.Reconcile(ctx, &sub); err != nil {
			return WebhookOutcomeFailed, err
		}
		return WebhookOutcomeProcessed, nil

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := decodeObject(event, &sub); err != nil {
			return WebhookOutcomeInvalid, err
		}
		return s.handleSubscriptionDeleted(ctx, &sub, log)

	default:
		log.Debug("Unhandled webhook event type")
		return WebhookOutcomeIgnored, nil
	}
}

func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession, log *zap.Logger) (WebhookOutcome, error) {
	switch session.Mode {
	case stripe.CheckoutSessionModeSubscription:
		if session.Subscription == nil || session.Subscription.ID == "" {
			return WebhookOutcomeInvalid, fmt.Errorf("%w: subscription checkout without subscription id", domainErrors.ErrInvalidEvent)
		}

		sub, err := s.provider.GetSubscription(ctx, session.Subscription.ID)
		if err != nil {
			return WebhookOutcomeFailed, err
		}

		userID := UserIDFromMetadata(session.Metadata)
		if userID == "" {
			userID = session.ClientReferenceID
		}
		withUserID(sub, userID)

		if _, err := s.subscriptionReconciler.Reconcile(ctx, sub); err != nil {
			return WebhookOutcomeFailed, err
		}
		return WebhookOutcomeProcessed, nil

	case stripe.CheckoutSessionModePayment:
		if _, _, err := s.purchaseReconciler.Reconcile(ctx, session); err != nil {
			return WebhookOutcomeFailed, err
		}
		return WebhookOutcomeProcessed, nil

	default:
		log.Info("Ignoring checkout session mode", zap.String("mode", string(session.Mode)))
		return WebhookOutcomeIgnored, nil
	}
}

// handleSubscriptionDeleted marks the row canceled. Access runs to the paid
// period end reported by the event; ended_at is not a cutoff.
func (s *WebhookService) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription, log *zap.Logger) (WebhookOutcome, error) {
	if sub.ID == "" {
		return WebhookOutcomeInvalid, fmt.Errorf("%w: subscription without id", domainErrors.ErrInvalidEvent)
	}

	var periodEnd *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}

	found, err := s.subscriptionRepo.MarkCanceled(ctx, sub.ID, periodEnd)
	if err != nil {
		return WebhookOutcomeFailed, err
	}
	if !found {
		log.Warn("Deleted subscription not found locally", zap.String("subscription_id", sub.ID))
		return WebhookOutcomeIgnored, nil
	}

	row, err := s.subscriptionRepo.GetByStripeID(ctx, sub.ID)
	if err != nil {
		log.Warn("Failed to reload canceled subscription", zap.String("subscription_id", sub.ID), zap.Error(err))
		return WebhookOutcomeProcessed, nil
	}
	if row != nil {
		notify(ctx, s.notifier, AccessChange{
			UserID:      row.UserID,
			Source:      "subscription",
			Status:      string(row.Status),
			ReferenceID: row.StripeSubscriptionID,
			OccurredAt:  time.Now().UTC(),
		}, s.logger)
	}
	return WebhookOutcomeProcessed, nil
}

func decodeObject(event stripe.Event, out interface{}) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return fmt.Errorf("%w: event has no data object", domainErrors.ErrInvalidEvent)
	}
	if err := json.Unmarshal(event.Data.Raw, out); err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrInvalidEvent, err)
	}
	return nil
}

// Ledger writes are bookkeeping: a failure is logged and does not change
// the outcome of an event whose domain write already happened.

func (s *WebhookService) markCompleted(ctx context.Context, eventID string, log *zap.Logger) {
	if eventID == "" {
		return
	}
	if err := s.ledger.MarkCompleted(ctx, eventID); err != nil {
		log.Warn("Failed to mark webhook event completed", zap.Error(err))
	}
}

func (s *WebhookService) markSkipped(ctx context.Context, eventID string, cause error, log *zap.Logger) {
	if eventID == "" {
		return
	}
	if err := s.ledger.MarkSkipped(ctx, eventID, cause.Error()); err != nil {
		log.Warn("Failed to mark webhook event skipped", zap.Error(err))
	}
}

func (s *WebhookService) markFailed(ctx context.Context, eventID string, cause error, log *zap.Logger) {
	if eventID == "" {
		return
	}
	if err := s.ledger.MarkFailed(ctx, eventID, cause); err != nil {
		log.Warn("Failed to mark webhook event failed", zap.Error(err))
	}
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/domain/repository"
	"go.uber.org/zap"
)

// MetadataPlanID optionally names the purchased plan on a checkout session.
const MetadataPlanID = "planId"

// PurchaseReconciler records completed one-time checkouts as credit packs.
type PurchaseReconciler struct {
	purchaseRepo repository.PurchaseRepository
	directory    repository.UserDirectory
	catalog      *PlanCatalog
	notifier     AccessNotifier
	recorder     Recorder
	logger       *zap.Logger
	now          func() time.Time
}

// NewPurchaseReconciler creates a new purchase reconciler
func NewPurchaseReconciler(
	purchaseRepo repository.PurchaseRepository,
	directory repository.UserDirectory,
	catalog *PlanCatalog,
	notifier AccessNotifier,
	recorder Recorder,
	logger *zap.Logger,
) *PurchaseReconciler {
	return &PurchaseReconciler{
		purchaseRepo: purchaseRepo,
		directory:    directory,
		catalog:      catalog,
		notifier:     notifier,
		recorder:     recorder,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock replaces the clock used for expiry.
func (r *PurchaseReconciler) WithClock(now func() time.Time) *PurchaseReconciler {
	r.now = now
	return r
}

// Reconcile inserts a purchase for the session's payer. created is false
// when the payment was already recorded.
func (r *PurchaseReconciler) Reconcile(ctx context.Context, session *stripe.CheckoutSession) (purchase *model.Purchase, created bool, err error) {
	start := time.Now()
	defer func() { r.recorder.ObserveReconcile("purchase", time.Since(start), err) }()

	if session == nil || session.ID == "" {
		return nil, false, fmt.Errorf("%w: checkout session without id", domainErrors.ErrInvalidEvent)
	}

	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		r.logger.Info("Checkout session not paid yet",
			zap.String("session_id", session.ID))
		return nil, false, domainErrors.ErrPaymentIncomplete
	}

	email := sessionEmail(session)
	if email == "" {
		r.logger.Warn("Checkout session has no customer email",
			zap.String("session_id", session.ID))
		return nil, false, fmt.Errorf("%w: session has no email", domainErrors.ErrUserNotFound)
	}

	user, err := r.directory.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up user by email: %w", err)
	}
	if user == nil {
		r.logger.Warn("No user found for checkout email",
			zap.String("session_id", session.ID))
		return nil, false, domainErrors.ErrUserNotFound
	}

	purchase = &model.Purchase{
		UserID:                user.ID,
		StripePaymentIntentID: paymentReference(session),
		PlanID:                r.planID(session),
		AmountPaid:            decimal.New(session.AmountTotal, -2),
		Currency:              strings.ToLower(string(session.Currency)),
		Status:                model.PurchaseStatusSucceeded,
		ResumesRemaining:      model.PurchaseCredits,
		ExpiresAt:             r.now().UTC().Add(model.PurchaseValidity),
	}

	created, err = r.purchaseRepo.CreateIfAbsent(ctx, purchase)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store purchase: %w", err)
	}

	if !created {
		r.logger.Info("Purchase already recorded",
			zap.String("payment_intent_id", purchase.StripePaymentIntentID),
			zap.String("user_id", purchase.UserID))
		return purchase, false, nil
	}

	r.logger.Info("Purchase recorded",
		zap.String("payment_intent_id", purchase.StripePaymentIntentID),
		zap.String("user_id", purchase.UserID),
		zap.String("plan_id", purchase.PlanID),
		zap.String("amount_paid", purchase.AmountPaid.StringFixed(2)),
		zap.String("currency", purchase.Currency),
		zap.Time("expires_at", purchase.ExpiresAt))

	notify(ctx, r.notifier, AccessChange{
		UserID:      purchase.UserID,
		Source:      "purchase",
		Status:      string(purchase.Status),
		ReferenceID: purchase.StripePaymentIntentID,
		OccurredAt:  r.now().UTC(),
	}, r.logger)

	return purchase, true, nil
}

func (r *PurchaseReconciler) planID(session *stripe.CheckoutSession) string {
	if planID := session.Metadata[MetadataPlanID]; planID != "" {
		return planID
	}
	return r.catalog.DefaultCreditPlan()
}

func sessionEmail(session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return strings.TrimSpace(session.CustomerDetails.Email)
	}
	return strings.TrimSpace(session.CustomerEmail)
}

// paymentReference is the purchase idempotency key.
func paymentReference(session *stripe.CheckoutSession) string {
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		return session.PaymentIntent.ID
	}
	return session.ID
}

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/resume-billing/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/usecase"
)

type webhookFixture struct {
	ledger    *MockWebhookEventRepository
	subs      *MockSubscriptionRepository
	purchases *MockPurchaseRepository
	directory *MockUserDirectory
	provider  *MockBillingProvider
	service   *usecase.WebhookService
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	logger := zap.NewNop()
	f := &webhookFixture{
		ledger:    new(MockWebhookEventRepository),
		subs:      new(MockSubscriptionRepository),
		purchases: new(MockPurchaseRepository),
		directory: new(MockUserDirectory),
		provider:  new(MockBillingProvider),
	}
	catalog := testCatalog(t)
	notifier := usecase.NopAccessNotifier{}
	subReconciler := usecase.NewSubscriptionReconciler(f.subs, catalog, notifier, usecase.NopRecorder{}, logger)
	purchaseReconciler := usecase.NewPurchaseReconciler(f.purchases, f.directory, catalog, notifier, usecase.NopRecorder{}, logger)
	f.service = usecase.NewWebhookService(f.ledger, f.subs, f.provider, subReconciler, purchaseReconciler, notifier, usecase.NopRecorder{}, logger)
	return f
}

func (f *webhookFixture) expectNewEvent(ctx context.Context, id, eventType string) {
	f.ledger.On("Record", ctx, id, eventType).Return(&model.StripeWebhookEvent{
		StripeEventID: id,
		EventType:     eventType,
		Status:        model.WebhookStatusPending,
	}, nil)
}

func newEvent(t *testing.T, id string, eventType stripe.EventType, object interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{ID: id, Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func specSubscriptionObject() map[string]interface{} {
	return map[string]interface{}{
		"id":          "sub_1",
		"object":      "subscription",
		"status":      "trialing",
		"trial_start": 1700000000,
		"trial_end":   1700600000,
		"customer":    "cus_1",
		"metadata":    map[string]string{"userId": "u1"},
		"items": map[string]interface{}{
			"data": []map[string]interface{}{{"price": map[string]string{"id": "price_x"}}},
		},
	}
}

func TestWebhookService_SubscriptionUpdated(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	f.expectNewEvent(ctx, "evt_1", "customer.subscription.updated")
	f.subs.On("Upsert", ctx, mock.MatchedBy(func(s *model.Subscription) bool {
		return s.StripeSubscriptionID == "sub_1" &&
			s.UserID == "u1" &&
			s.StripeCustomerID == "cus_1" &&
			s.Status == model.SubscriptionStatusTrialing &&
			s.PlanID == "pro-monthly" &&
			s.CurrentPeriodStart.Equal(time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)) &&
			s.CurrentPeriodEnd.Equal(time.Date(2023, 11, 21, 22, 33, 20, 0, time.UTC))
	})).Return(nil)
	f.ledger.On("MarkCompleted", ctx, "evt_1").Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_1", stripe.EventTypeCustomerSubscriptionUpdated, specSubscriptionObject()))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeProcessed, outcome)
	f.subs.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
}

func TestWebhookService_MissingUserIDIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	obj := specSubscriptionObject()
	delete(obj, "metadata")

	f.expectNewEvent(ctx, "evt_2", "customer.subscription.created")
	f.ledger.On("MarkSkipped", ctx, "evt_2", mock.Anything).Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_2", stripe.EventTypeCustomerSubscriptionCreated, obj))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeSkipped, outcome)
	f.subs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestWebhookService_InvalidPeriodIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	obj := specSubscriptionObject()
	delete(obj, "trial_end")

	f.expectNewEvent(ctx, "evt_3", "customer.subscription.updated")
	f.ledger.On("MarkFailed", ctx, "evt_3", mock.Anything).Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_3", stripe.EventTypeCustomerSubscriptionUpdated, obj))

	assert.ErrorIs(t, err, domainErrors.ErrInvalidPeriod)
	assert.Equal(t, usecase.WebhookOutcomeInvalid, outcome)
	f.subs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestWebhookService_StoreFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	f.expectNewEvent(ctx, "evt_4", "customer.subscription.updated")
	f.subs.On("Upsert", ctx, mock.Anything).Return(errors.New("connection refused"))
	f.ledger.On("MarkFailed", ctx, "evt_4", mock.Anything).Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_4", stripe.EventTypeCustomerSubscriptionUpdated, specSubscriptionObject()))

	assert.Error(t, err)
	assert.Equal(t, usecase.WebhookOutcomeFailed, outcome)
}

func TestWebhookService_DuplicateEventIsNotReprocessed(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	f.ledger.On("Record", ctx, "evt_5", "customer.subscription.updated").Return(&model.StripeWebhookEvent{
		StripeEventID: "evt_5",
		Status:        model.WebhookStatusCompleted,
	}, nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_5", stripe.EventTypeCustomerSubscriptionUpdated, specSubscriptionObject()))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeDuplicate, outcome)
	f.subs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestWebhookService_FailedEventIsRetried(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	f.ledger.On("Record", ctx, "evt_6", "customer.subscription.updated").Return(&model.StripeWebhookEvent{
		StripeEventID:      "evt_6",
		Status:             model.WebhookStatusFailed,
		ProcessingAttempts: 1,
	}, nil)
	f.subs.On("Upsert", ctx, mock.Anything).Return(nil)
	f.ledger.On("MarkCompleted", ctx, "evt_6").Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_6", stripe.EventTypeCustomerSubscriptionUpdated, specSubscriptionObject()))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeProcessed, outcome)
}

func TestWebhookService_CheckoutSubscriptionFetchesFromProvider(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	session := map[string]interface{}{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"mode":                "subscription",
		"subscription":        "sub_9",
		"client_reference_id": "u9",
	}
	f.expectNewEvent(ctx, "evt_7", "checkout.session.completed")
	f.provider.On("GetSubscription", ctx, "sub_9").Return(&stripe.Subscription{
		ID:                 "sub_9",
		Status:             stripe.SubscriptionStatusActive,
		CurrentPeriodStart: 1700000000,
		CurrentPeriodEnd:   1702592000,
		Customer:           &stripe.Customer{ID: "cus_9"},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{Price: &stripe.Price{ID: "price_yearly"}}},
		},
	}, nil)
	f.subs.On("Upsert", ctx, mock.MatchedBy(func(s *model.Subscription) bool {
		return s.UserID == "u9" && s.PlanID == "pro-yearly" && s.Status == model.SubscriptionStatusActive
	})).Return(nil)
	f.ledger.On("MarkCompleted", ctx, "evt_7").Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_7", stripe.EventTypeCheckoutSessionCompleted, session))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeProcessed, outcome)
	f.provider.AssertExpectations(t)
	f.subs.AssertExpectations(t)
}

func TestWebhookService_CheckoutPaymentRecordsPurchase(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	session := map[string]interface{}{
		"id":               "cs_2",
		"object":           "checkout.session",
		"mode":             "payment",
		"payment_status":   "paid",
		"payment_intent":   "pi_2",
		"amount_total":     999,
		"currency":         "usd",
		"customer_details": map[string]string{"email": "buyer@example.com"},
	}
	f.expectNewEvent(ctx, "evt_8", "checkout.session.completed")
	f.directory.On("FindUserByEmail", ctx, "buyer@example.com").Return(&entity.User{ID: "u1"}, nil)
	f.purchases.On("CreateIfAbsent", ctx, mock.MatchedBy(func(p *model.Purchase) bool {
		return p.UserID == "u1" && p.StripePaymentIntentID == "pi_2" && p.AmountPaid.StringFixed(2) == "9.99"
	})).Return(true, nil)
	f.ledger.On("MarkCompleted", ctx, "evt_8").Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_8", stripe.EventTypeCheckoutSessionCompleted, session))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeProcessed, outcome)
	f.purchases.AssertExpectations(t)
}

func TestWebhookService_CheckoutPaymentUnknownEmailIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	session := map[string]interface{}{
		"id":             "cs_3",
		"object":         "checkout.session",
		"mode":           "payment",
		"payment_status": "paid",
		"customer_email": "ghost@example.com",
	}
	f.expectNewEvent(ctx, "evt_9", "checkout.session.completed")
	f.directory.On("FindUserByEmail", ctx, "ghost@example.com").Return(nil, nil)
	f.ledger.On("MarkSkipped", ctx, "evt_9", mock.Anything).Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_9", stripe.EventTypeCheckoutSessionCompleted, session))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeSkipped, outcome)
	f.purchases.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
}

func TestWebhookService_SubscriptionDeleted(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	obj := map[string]interface{}{
		"id":                 "sub_1",
		"object":             "subscription",
		"status":             "canceled",
		"current_period_end": 1702592000,
	}
	end := time.Unix(1702592000, 0).UTC()

	f.expectNewEvent(ctx, "evt_10", "customer.subscription.deleted")
	f.subs.On("MarkCanceled", ctx, "sub_1", mock.MatchedBy(func(got *time.Time) bool {
		return got != nil && got.Equal(end)
	})).Return(true, nil)
	f.subs.On("GetByStripeID", ctx, "sub_1").Return(&model.Subscription{
		UserID: "u1", StripeSubscriptionID: "sub_1", Status: model.SubscriptionStatusCanceled,
	}, nil)
	f.ledger.On("MarkCompleted", ctx, "evt_10").Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_10", stripe.EventTypeCustomerSubscriptionDeleted, obj))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeProcessed, outcome)
	f.subs.AssertExpectations(t)
}

func TestWebhookService_SubscriptionDeletedKeepsAccessUntilPeriodEnd(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	now := time.Now().UTC()
	periodEnd := now.Add(20 * 24 * time.Hour).Truncate(time.Second)
	obj := map[string]interface{}{
		"id":                 "sub_1",
		"object":             "subscription",
		"status":             "canceled",
		"current_period_end": periodEnd.Unix(),
		"ended_at":           now.Add(-time.Minute).Unix(),
	}

	var stored *time.Time
	f.expectNewEvent(ctx, "evt_13", "customer.subscription.deleted")
	f.subs.On("MarkCanceled", ctx, "sub_1", mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(2).(*time.Time) }).
		Return(true, nil)
	f.subs.On("GetByStripeID", ctx, "sub_1").Return(&model.Subscription{
		UserID: "u1", StripeSubscriptionID: "sub_1", Status: model.SubscriptionStatusCanceled,
	}, nil)
	f.ledger.On("MarkCompleted", ctx, "evt_13").Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_13", stripe.EventTypeCustomerSubscriptionDeleted, obj))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeProcessed, outcome)
	require.NotNil(t, stored)
	assert.True(t, stored.Equal(periodEnd))

	row := &model.Subscription{Status: model.SubscriptionStatusCanceled, CurrentPeriodEnd: *stored}
	assert.True(t, row.HasAccessAt(now))
}

func TestWebhookService_TruncatedDirectoryIsRetryable(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	session := map[string]interface{}{
		"id":             "cs_trunc",
		"object":         "checkout.session",
		"mode":           "payment",
		"payment_status": "paid",
		"payment_intent": "pi_trunc",
		"amount_total":   999,
		"currency":       "usd",
		"customer_email": "late@example.com",
	}

	f.expectNewEvent(ctx, "evt_14", "checkout.session.completed")
	f.directory.On("FindUserByEmail", ctx, "late@example.com").Return(nil,
		domainErrors.NewDirectoryError(domainErrors.DirectoryErrorTypeTruncated, "user listing truncated", 0, nil))
	f.ledger.On("MarkFailed", ctx, "evt_14", mock.Anything).Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_14", stripe.EventTypeCheckoutSessionCompleted, session))

	require.Error(t, err)
	assert.Equal(t, usecase.WebhookOutcomeFailed, outcome)
	f.ledger.AssertNotCalled(t, "MarkSkipped", mock.Anything, mock.Anything, mock.Anything)
	f.purchases.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
}

func TestWebhookService_UnhandledTypeIsAcknowledged(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	f.expectNewEvent(ctx, "evt_11", "invoice.paid")
	f.ledger.On("MarkCompleted", ctx, "evt_11").Return(nil)

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_11", stripe.EventType("invoice.paid"), map[string]string{"id": "in_1"}))

	require.NoError(t, err)
	assert.Equal(t, usecase.WebhookOutcomeIgnored, outcome)
}

func TestWebhookService_LedgerFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	f := newWebhookFixture(t)

	f.ledger.On("Record", ctx, "evt_12", "customer.subscription.updated").Return(nil, errors.New("db down"))

	outcome, err := f.service.HandleEvent(ctx, newEvent(t, "evt_12", stripe.EventTypeCustomerSubscriptionUpdated, specSubscriptionObject()))

	assert.Error(t, err)
	assert.Equal(t, usecase.WebhookOutcomeFailed, outcome)
	f.subs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/resume-billing/internal/domain/errors"
	"github.com/wekeepgrowing/resume-billing/internal/domain/model"
	"github.com/wekeepgrowing/resume-billing/internal/usecase"
)

func activeProviderSubscription(metadata map[string]string) *stripe.Subscription {
	return &stripe.Subscription{
		ID:                 "sub_1",
		Status:             stripe.SubscriptionStatusActive,
		CurrentPeriodStart: 1700000000,
		CurrentPeriodEnd:   1702592000,
		Customer:           &stripe.Customer{ID: "cus_1"},
		Metadata:           metadata,
	}
}

func TestResyncService_ResyncSubscription(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("reconciles the provider state", func(t *testing.T) {
		provider := new(MockBillingProvider)
		subs := new(MockSubscriptionRepository)
		reconciler := usecase.NewSubscriptionReconciler(subs, usecase.DefaultPlanCatalog(), usecase.NopAccessNotifier{}, usecase.NopRecorder{}, logger)
		service := usecase.NewResyncService(provider, subs, reconciler, logger)

		provider.On("GetSubscription", ctx, "sub_1").Return(activeProviderSubscription(map[string]string{"userId": "u1"}), nil)
		subs.On("Upsert", ctx, mock.Anything).Return(nil)

		row, err := service.ResyncSubscription(ctx, "sub_1")

		require.NoError(t, err)
		assert.Equal(t, "u1", row.UserID)
		assert.Equal(t, model.SubscriptionStatusActive, row.Status)
		subs.AssertNotCalled(t, "GetByStripeID", mock.Anything, mock.Anything)
	})

	t.Run("uses existing row user id when metadata is missing", func(t *testing.T) {
		provider := new(MockBillingProvider)
		subs := new(MockSubscriptionRepository)
		reconciler := usecase.NewSubscriptionReconciler(subs, usecase.DefaultPlanCatalog(), usecase.NopAccessNotifier{}, usecase.NopRecorder{}, logger)
		service := usecase.NewResyncService(provider, subs, reconciler, logger)

		provider.On("GetSubscription", ctx, "sub_1").Return(activeProviderSubscription(nil), nil)
		subs.On("GetByStripeID", ctx, "sub_1").Return(&model.Subscription{UserID: "u-existing", StripeSubscriptionID: "sub_1"}, nil)
		subs.On("Upsert", ctx, mock.MatchedBy(func(s *model.Subscription) bool { return s.UserID == "u-existing" })).Return(nil)

		row, err := service.ResyncSubscription(ctx, "sub_1")

		require.NoError(t, err)
		assert.Equal(t, "u-existing", row.UserID)
	})

	t.Run("unknown user stays unattributed", func(t *testing.T) {
		provider := new(MockBillingProvider)
		subs := new(MockSubscriptionRepository)
		reconciler := usecase.NewSubscriptionReconciler(subs, usecase.DefaultPlanCatalog(), usecase.NopAccessNotifier{}, usecase.NopRecorder{}, logger)
		service := usecase.NewResyncService(provider, subs, reconciler, logger)

		provider.On("GetSubscription", ctx, "sub_1").Return(activeProviderSubscription(nil), nil)
		subs.On("GetByStripeID", ctx, "sub_1").Return(nil, nil)

		_, err := service.ResyncSubscription(ctx, "sub_1")

		assert.ErrorIs(t, err, domainErrors.ErrMissingUserID)
		subs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("provider error is returned", func(t *testing.T) {
		provider := new(MockBillingProvider)
		subs := new(MockSubscriptionRepository)
		reconciler := usecase.NewSubscriptionReconciler(subs, usecase.DefaultPlanCatalog(), usecase.NopAccessNotifier{}, usecase.NopRecorder{}, logger)
		service := usecase.NewResyncService(provider, subs, reconciler, logger)

		provider.On("GetSubscription", ctx, "sub_1").Return(nil, errors.New("no such subscription"))

		_, err := service.ResyncSubscription(ctx, "sub_1")

		assert.Error(t, err)
	})
}

func TestCancellationService_CancelForUser(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("schedules cancellation and keeps the row", func(t *testing.T) {
		provider := new(MockBillingProvider)
		subs := new(MockSubscriptionRepository)
		reconciler := usecase.NewSubscriptionReconciler(subs, usecase.DefaultPlanCatalog(), usecase.NopAccessNotifier{}, usecase.NopRecorder{}, logger)
		service := usecase.NewCancellationService(provider, subs, reconciler, logger)

		subs.On("GetLatestByUserID", ctx, "u1").Return(&model.Subscription{
			UserID: "u1", StripeSubscriptionID: "sub_1", Status: model.SubscriptionStatusActive,
		}, nil)
		canceled := activeProviderSubscription(nil)
		canceled.CancelAtPeriodEnd = true
		provider.On("CancelAtPeriodEnd", ctx, "sub_1").Return(canceled, nil)
		subs.On("Upsert", ctx, mock.MatchedBy(func(s *model.Subscription) bool {
			return s.UserID == "u1" && s.CancelAtPeriodEnd && s.Status == model.SubscriptionStatusActive
		})).Return(nil)

		row, err := service.CancelForUser(ctx, "u1")

		require.NoError(t, err)
		assert.True(t, row.CancelAtPeriodEnd)
		provider.AssertExpectations(t)
	})

	t.Run("no subscription", func(t *testing.T) {
		provider := new(MockBillingProvider)
		subs := new(MockSubscriptionRepository)
		reconciler := usecase.NewSubscriptionReconciler(subs, usecase.DefaultPlanCatalog(), usecase.NopAccessNotifier{}, usecase.NopRecorder{}, logger)
		service := usecase.NewCancellationService(provider, subs, reconciler, logger)

		subs.On("GetLatestByUserID", ctx, "u1").Return(nil, nil)

		_, err := service.CancelForUser(ctx, "u1")

		assert.ErrorIs(t, err, domainErrors.ErrSubscriptionNotFound)
	})

	t.Run("already canceled is not sent to the provider", func(t *testing.T) {
		provider := new(MockBillingProvider)
		subs := new(MockSubscriptionRepository)
		reconciler := usecase.NewSubscriptionReconciler(subs, usecase.DefaultPlanCatalog(), usecase.NopAccessNotifier{}, usecase.NopRecorder{}, logger)
		service := usecase.NewCancellationService(provider, subs, reconciler, logger)

		subs.On("GetLatestByUserID", ctx, "u1").Return(&model.Subscription{
			UserID: "u1", StripeSubscriptionID: "sub_1", Status: model.SubscriptionStatusCanceled,
		}, nil)

		row, err := service.CancelForUser(ctx, "u1")

		require.NoError(t, err)
		assert.Equal(t, model.SubscriptionStatusCanceled, row.Status)
		provider.AssertNotCalled(t, "CancelAtPeriodEnd", mock.Anything, mock.Anything)
	})
}

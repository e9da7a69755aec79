package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/usecase"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

var selfServiceNow = time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)

func newSelfService(f *fixture) *usecase.SelfServiceUsecase {
	u := usecase.NewSelfServiceUsecase(fakeTx{}, f.orders, f.payments, f.subs, f.publisher, zap.NewNop())
	usecase.SetSelfServiceClock(u, func() time.Time { return selfServiceNow })
	return u
}

func cancelRequest() usecase.SelfServiceRequest {
	return usecase.SelfServiceRequest{UserID: testUserID, Action: model.SelfServiceCancel, Reason: "changed my mind"}
}

func refundRequest() usecase.SelfServiceRequest {
	return usecase.SelfServiceRequest{UserID: testUserID, Action: model.SelfServiceRefund, Reason: "not for me", Channel: "support"}
}

func TestSelfServiceUsecase_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("active subscription is canceled at period end once", func(t *testing.T) {
		f := newFixture()
		periodEnd := selfServiceNow.AddDate(0, 0, 20)
		f.seedSubscription(subA, model.SubscriptionStatusActive, &periodEnd)
		f.seedOrder(orderA, model.OrderTypeSubscription, model.OrderStatusCompleted, strPtr(subA))
		u := newSelfService(f)

		view, err := u.RequestAction(ctx, orderA, cancelRequest())
		require.NoError(t, err)
		require.NotNil(t, view.Subscription)
		assert.True(t, view.Subscription.CancelAtPeriodEnd)
		assert.Equal(t, model.SubscriptionStatusActive, view.Subscription.Status)

		entries := view.Metadata.SelfServiceLog.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, model.SelfServiceScheduled, entries[0].Status)
		assert.Equal(t, usecase.DefaultSelfServiceChannel, entries[0].Channel)
		require.NotNil(t, entries[0].EffectiveAt)
		assert.Equal(t, periodEnd, *entries[0].EffectiveAt)
		assert.Equal(t, 1, f.subscription(subA).Meta().SelfServiceLog.Len())

		view, err = u.RequestAction(ctx, orderA, cancelRequest())
		require.NoError(t, err)
		assert.Equal(t, 1, view.Metadata.SelfServiceLog.Len())
		assert.Equal(t, 1, f.subscription(subA).Meta().SelfServiceLog.Len())
	})

	t.Run("subscription already flagged is left alone", func(t *testing.T) {
		f := newFixture()
		periodEnd := selfServiceNow.AddDate(0, 0, 20)
		f.seedSubscription(subA, model.SubscriptionStatusActive, &periodEnd)
		f.seedOrder(orderA, model.OrderTypeSubscription, model.OrderStatusRefunded, strPtr(subA))
		sub := f.subscription(subA)
		canceledAt := selfServiceNow.Add(-time.Hour)
		sub.Status = model.SubscriptionStatusCanceled
		sub.CanceledAt = &canceledAt
		sub.CancelAtPeriodEnd = true
		require.NoError(t, f.subs.Update(ctx, sub))
		u := newSelfService(f)

		view, err := u.RequestAction(ctx, orderA, cancelRequest())
		require.NoError(t, err)
		assert.Equal(t, 0, view.Metadata.SelfServiceLog.Len())
		assert.Equal(t, 0, f.subscription(subA).Meta().SelfServiceLog.Len())
		assert.Equal(t, canceledAt, *f.subscription(subA).CanceledAt)
	})

	t.Run("unpaid subscription is canceled immediately", func(t *testing.T) {
		f := newFixture()
		f.seedSubscription(subA, model.SubscriptionStatusIncomplete, nil)
		f.seedOrder(orderA, model.OrderTypeSubscription, model.OrderStatusPending, strPtr(subA))
		u := newSelfService(f)

		view, err := u.RequestAction(ctx, orderA, cancelRequest())
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCanceled, view.Status)
		assert.Equal(t, model.SubscriptionStatusCanceled, view.Subscription.Status)
		assert.Equal(t, model.SelfServiceProcessed, view.Metadata.SelfServiceLog.Entries()[0].Status)
	})

	t.Run("pending one-time order is canceled", func(t *testing.T) {
		f := newFixture()
		f.seedOrder(orderA, model.OrderTypeOneTime, model.OrderStatusPending, nil)
		u := newSelfService(f)

		view, err := u.RequestAction(ctx, orderA, cancelRequest())
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCanceled, view.Status)

		view, err = u.RequestAction(ctx, orderA, cancelRequest())
		require.NoError(t, err)
		assert.Equal(t, 1, view.Metadata.SelfServiceLog.Len())
	})

	t.Run("paid one-time order cannot be canceled", func(t *testing.T) {
		f := newFixture()
		f.seedOrder(orderA, model.OrderTypeOneTime, model.OrderStatusCompleted, nil)
		u := newSelfService(f)

		_, err := u.RequestAction(ctx, orderA, cancelRequest())
		assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.CodeOf(err))
	})

	t.Run("foreign and missing orders", func(t *testing.T) {
		f := newFixture()
		f.seedOrder(orderA, model.OrderTypeOneTime, model.OrderStatusPending, nil)
		u := newSelfService(f)

		req := cancelRequest()
		req.UserID = otherUserID
		_, err := u.RequestAction(ctx, orderA, req)
		assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
		assert.Equal(t, model.OrderStatusPending, f.order(orderA).Status)

		_, err = u.RequestAction(ctx, orderB, cancelRequest())
		assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
	})

	t.Run("unknown action", func(t *testing.T) {
		f := newFixture()
		f.seedOrder(orderA, model.OrderTypeOneTime, model.OrderStatusPending, nil)
		u := newSelfService(f)

		req := cancelRequest()
		req.Action = "pause"
		_, err := u.RequestAction(ctx, orderA, req)
		assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.CodeOf(err))
	})
}

func TestSelfServiceUsecase_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds the latest settled payment and cancels the subscription", func(t *testing.T) {
		f := newFixture()
		periodEnd := selfServiceNow.AddDate(0, 1, 0)
		f.seedSubscription(subA, model.SubscriptionStatusActive, &periodEnd)
		f.seedOrder(orderA, model.OrderTypeSubscription, model.OrderStatusPending, strPtr(subA))
		r := newReconciler(f, nil)
		_, err := r.Apply(ctx, stripeEvent(orderA, "pi_1", model.PaymentStatusSucceeded))
		require.NoError(t, err)
		u := newSelfService(f)

		view, err := u.RequestAction(ctx, orderA, refundRequest())
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusRefunded, view.Status)
		require.Len(t, view.Payments, 1)
		assert.Equal(t, model.PaymentStatusRefunded, view.Payments[0].Status)
		require.NotNil(t, view.Payments[0].Refund)
		assert.Equal(t, "support", view.Payments[0].Refund.Channel)

		refunds := view.Metadata.Refunds.Entries()
		require.Len(t, refunds, 1)
		assert.Equal(t, model.RefundSourceSelfService, refunds[0].Source)

		sub := f.subscription(subA)
		assert.Equal(t, model.SubscriptionStatusCanceled, sub.Status)
		assert.Equal(t, "self_service_refund", sub.Meta().CancelReason)
		assert.Len(t, f.publisher.ofType(entity.EventPaymentRefunded), 1)

		_, err = u.RequestAction(ctx, orderA, refundRequest())
		require.NoError(t, err)
		assert.Len(t, f.publisher.ofType(entity.EventPaymentRefunded), 1)
		assert.Equal(t, 1, f.order(orderA).Meta().Refunds.Len())
	})

	t.Run("nothing to refund", func(t *testing.T) {
		f := newFixture()
		f.seedOrder(orderA, model.OrderTypeOneTime, model.OrderStatusPending, nil)
		u := newSelfService(f)

		_, err := u.RequestAction(ctx, orderA, refundRequest())
		assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.CodeOf(err))
	})
}

package usecase

import (
	"time"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
)

// Subscription cancel and failure reasons recorded in metadata.
const (
	reasonPaymentFailed     = "payment_failed"
	reasonPaymentRefunded   = "payment_refunded"
	reasonSelfServiceRefund = "self_service_refund"
	reasonOperatorRefund    = "operator_refund"
)

// subscriptionInterval returns the billing interval of sub: the plan's when
// loaded, else the one recorded at creation, else one month.
func subscriptionInterval(sub *model.Subscription) model.Interval {
	if sub.Plan != nil {
		return sub.Plan.Interval()
	}
	if interval := sub.Meta().Interval; interval != nil {
		return *interval
	}
	return model.Interval{Unit: model.IntervalMonth, Count: 1}
}

// applyPaymentOutcome moves sub according to a payment outcome observed at
// now and reports whether anything changed. A canceled subscription is
// final and never changes.
func applyPaymentOutcome(sub *model.Subscription, status model.PaymentStatus, orderID, reason string, now time.Time) bool {
	if sub.Status == model.SubscriptionStatusCanceled {
		return false
	}

	switch status {
	case model.PaymentStatusSucceeded:
		start := now
		if sub.Status == model.SubscriptionStatusTrialing && sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
			start = *sub.CurrentPeriodEnd
		}
		end := subscriptionInterval(sub).AddTo(start)

		sub.Status = model.SubscriptionStatusActive
		sub.CurrentPeriodStart = &start
		sub.CurrentPeriodEnd = &end
		sub.UpdateMeta(func(m *model.SubscriptionMetadata) {
			paidAt := now
			m.LastPaymentAt = &paidAt
			m.LastOrderID = orderID
		})
		return true

	case model.PaymentStatusFailed:
		if sub.Status != model.SubscriptionStatusTrialing {
			sub.Status = model.SubscriptionStatusPastDue
		}
		sub.UpdateMeta(func(m *model.SubscriptionMetadata) {
			failedAt := now
			m.LastFailureAt = &failedAt
			m.FailureReason = reasonPaymentFailed
			m.LastOrderID = orderID
		})
		return true

	case model.PaymentStatusRefunded:
		cancelSubscription(sub, reason, now)
		return true
	}

	return false
}

// cancelSubscription ends sub immediately.
func cancelSubscription(sub *model.Subscription, reason string, now time.Time) {
	canceledAt := now
	sub.Status = model.SubscriptionStatusCanceled
	sub.CanceledAt = &canceledAt
	sub.CancelAtPeriodEnd = true
	sub.UpdateMeta(func(m *model.SubscriptionMetadata) {
		m.CancelReason = reason
	})
}

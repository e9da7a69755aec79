package usecase

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

// Payment feed bounds.
const (
	DefaultPaymentFeedSize = 20
	MaxPaymentFeedSize     = 100
)

// refundChannelOperator marks refunds issued from the admin API.
const refundChannelOperator = "operator"

// RefundUsecase handles operator refunds and the admin payment feed.
// Operator refunds skip the ownership check.
type RefundUsecase struct {
	tx            repository.TxManager
	orders        repository.OrderRepository
	payments      repository.PaymentRepository
	subscriptions repository.SubscriptionRepository
	publisher     EventPublisher
	logger        *zap.Logger
	now           func() time.Time
}

// NewRefundUsecase creates a new refund usecase instance
func NewRefundUsecase(
	tx repository.TxManager,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	subscriptions repository.SubscriptionRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *RefundUsecase {
	return &RefundUsecase{
		tx:            tx,
		orders:        orders,
		payments:      payments,
		subscriptions: subscriptions,
		publisher:     publisher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// markRefunded flags payment as refunded outside the provider webhook flow.
func markRefunded(payment *model.Payment, reason, channel string, now time.Time) {
	payment.Status = model.PaymentStatusRefunded
	payment.ProcessedAt = &now
	payment.Refund = datatypes.NewJSONType(&model.RefundAnnotation{
		Reason:      reason,
		RequestedAt: now,
		Channel:     channel,
	})
}

// cancelLinkedSubscription cancels the subscription of a refunded order.
func cancelLinkedSubscription(ctx context.Context, subscriptions repository.SubscriptionRepository, subscriptionID, reason string, now time.Time) error {
	sub, err := subscriptions.GetForUpdate(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub == nil || !applyPaymentOutcome(sub, model.PaymentStatusRefunded, "", reason, now) {
		return nil
	}
	return subscriptions.Update(ctx, sub)
}

// RefundPayment marks one payment and its order refunded and cancels the
// linked subscription. Refunding an already refunded payment returns the
// recorded refund.
func (u *RefundUsecase) RefundPayment(ctx context.Context, paymentID, reason string) (*entity.RefundResult, error) {
	var result *entity.RefundResult
	var events []entity.BillingEvent

	err := u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		events = nil
		payment, err := u.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return apperrors.NotFound("payment %s not found", paymentID)
		}

		order, err := u.orders.GetForUpdate(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.NotFound("order %s not found", payment.OrderID)
		}

		// webhooks write payments under the same order lock
		payment, err = u.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return apperrors.NotFound("payment %s not found", paymentID)
		}

		if payment.Status == model.PaymentStatusRefunded && order.Status == model.OrderStatusRefunded {
			result = recordedRefund(order, payment)
			return nil
		}

		now := u.now()
		result, events, err = u.refund(ctx, order, []*model.Payment{payment}, reason, now)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to refund payment")
	}

	publishAll(ctx, u.publisher, u.logger, events)
	return result, nil
}

// RefundOrder refunds every settled payment of the order.
func (u *RefundUsecase) RefundOrder(ctx context.Context, orderID, reason string) (*entity.RefundResult, error) {
	var result *entity.RefundResult
	var events []entity.BillingEvent

	err := u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		events = nil
		order, err := u.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.NotFound("order %s not found", orderID)
		}

		payments, err := u.payments.ListByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if len(payments) == 0 {
			return apperrors.BadRequest("order %s has no payments to refund", orderID)
		}

		if order.Status == model.OrderStatusRefunded {
			result = recordedRefund(order, nil)
			return nil
		}

		var settled []*model.Payment
		for _, p := range payments {
			if p.Status == model.PaymentStatusSucceeded {
				settled = append(settled, p)
			}
		}
		if len(settled) == 0 {
			return apperrors.BadRequest("order %s has no settled payments", orderID)
		}

		result, events, err = u.refund(ctx, order, settled, reason, u.now())
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to refund order")
	}

	publishAll(ctx, u.publisher, u.logger, events)
	return result, nil
}

func (u *RefundUsecase) refund(ctx context.Context, order *model.Order, payments []*model.Payment, reason string, now time.Time) (*entity.RefundResult, []entity.BillingEvent, error) {
	result := &entity.RefundResult{OrderID: order.ID, RefundedAt: now, Reason: reason}
	var events []entity.BillingEvent

	for _, payment := range payments {
		if payment.Status != model.PaymentStatusRefunded {
			markRefunded(payment, reason, refundChannelOperator, now)
			if err := u.payments.Update(ctx, payment); err != nil {
				return nil, nil, err
			}
		}
		result.PaymentIDs = append(result.PaymentIDs, payment.ID)
		events = append(events, entity.BillingEvent{
			Type:        entity.EventPaymentRefunded,
			OrderID:     order.ID,
			UserID:      order.UserID,
			PaymentID:   payment.ID,
			Provider:    payment.Provider,
			OrderStatus: model.OrderStatusRefunded,
			OccurredAt:  now,
		})
	}

	order.Status = model.OrderStatusRefunded
	order.UpdateMeta(func(m *model.OrderMetadata) {
		m.Refunds.Append(model.RefundEntry{
			PaymentIDs:  result.PaymentIDs,
			Reason:      reason,
			Source:      model.RefundSourceOperator,
			ProcessedAt: now,
		})
	})
	if err := u.orders.Update(ctx, order); err != nil {
		return nil, nil, err
	}

	if order.SubscriptionID != nil {
		if err := cancelLinkedSubscription(ctx, u.subscriptions, *order.SubscriptionID, reasonOperatorRefund, now); err != nil {
			return nil, nil, err
		}
	}

	u.logger.Info("Refund issued by operator",
		zap.String("order_id", order.ID),
		zap.Strings("payment_ids", result.PaymentIDs),
		zap.String("reason", reason))

	return result, events, nil
}

// recordedRefund rebuilds the result of an earlier refund from the order
// log, preferring the entry that covers payment.
func recordedRefund(order *model.Order, payment *model.Payment) *entity.RefundResult {
	result := &entity.RefundResult{OrderID: order.ID}
	entries := order.Meta().Refunds.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if payment != nil && !slices.Contains(e.PaymentIDs, payment.ID) {
			continue
		}
		result.PaymentIDs = e.PaymentIDs
		result.RefundedAt = e.ProcessedAt
		result.Reason = e.Reason
		return result
	}

	if payment != nil {
		result.PaymentIDs = []string{payment.ID}
		if annotation := payment.Refund.Data(); annotation != nil {
			result.RefundedAt = annotation.RequestedAt
			result.Reason = annotation.Reason
		}
	}
	return result
}

// ListRecentPayments returns the newest payments for the admin feed.
func (u *RefundUsecase) ListRecentPayments(ctx context.Context, limit int) ([]entity.PaymentView, error) {
	if limit <= 0 {
		limit = DefaultPaymentFeedSize
	}
	if limit > MaxPaymentFeedSize {
		limit = MaxPaymentFeedSize
	}

	payments, err := u.payments.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list payments")
	}

	views := make([]entity.PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, entity.NewPaymentView(p))
	}
	return views, nil
}

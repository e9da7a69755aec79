package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

// DefaultSelfServiceChannel is recorded when the caller names no channel.
const DefaultSelfServiceChannel = "dashboard"

// SelfServiceRequest is a customer-initiated cancel or refund.
type SelfServiceRequest struct {
	UserID  string
	Action  model.SelfServiceAction
	Reason  string
	Channel string
}

// SelfServiceUsecase handles cancel and refund requests from order owners.
// Repeating a request that already took effect changes nothing.
type SelfServiceUsecase struct {
	tx            repository.TxManager
	orders        repository.OrderRepository
	payments      repository.PaymentRepository
	subscriptions repository.SubscriptionRepository
	publisher     EventPublisher
	logger        *zap.Logger
	now           func() time.Time
}

// NewSelfServiceUsecase creates a new self-service usecase instance
func NewSelfServiceUsecase(
	tx repository.TxManager,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	subscriptions repository.SubscriptionRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *SelfServiceUsecase {
	return &SelfServiceUsecase{
		tx:            tx,
		orders:        orders,
		payments:      payments,
		subscriptions: subscriptions,
		publisher:     publisher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RequestAction applies req to the order and returns its projection.
func (u *SelfServiceUsecase) RequestAction(ctx context.Context, orderID string, req SelfServiceRequest) (*entity.OrderView, error) {
	if req.Action != model.SelfServiceCancel && req.Action != model.SelfServiceRefund {
		return nil, apperrors.BadRequest("unsupported self-service action %q", req.Action)
	}
	if req.Channel == "" {
		req.Channel = DefaultSelfServiceChannel
	}

	var order *model.Order
	var events []entity.BillingEvent

	err := u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		events = nil
		var err error
		order, err = u.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.NotFound("order %s not found", orderID)
		}
		if order.UserID != req.UserID {
			return apperrors.Forbidden("order %s does not belong to user %s", orderID, req.UserID)
		}

		now := u.now()
		if req.Action == model.SelfServiceCancel {
			return u.cancel(ctx, order, req, now)
		}
		events, err = u.refund(ctx, order, req, now)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "self-service request failed")
	}

	publishAll(ctx, u.publisher, u.logger, events)
	return loadOrderView(ctx, u.subscriptions, u.payments, order)
}

func newSelfServiceEntry(req SelfServiceRequest, status model.SelfServiceStatus, now time.Time, effectiveAt *time.Time) model.SelfServiceEntry {
	return model.SelfServiceEntry{
		ID:          uuid.NewString(),
		Action:      req.Action,
		Channel:     req.Channel,
		Reason:      req.Reason,
		RequestedAt: now,
		Status:      status,
		EffectiveAt: effectiveAt,
	}
}

// hasEntry reports whether the log already holds an action entry that took effect.
func hasEntry(log model.BoundedLog[model.SelfServiceEntry], action model.SelfServiceAction) bool {
	for _, e := range log.Entries() {
		if e.Action == action && e.Status != model.SelfServiceSubmitted {
			return true
		}
	}
	return false
}

func (u *SelfServiceUsecase) cancel(ctx context.Context, order *model.Order, req SelfServiceRequest, now time.Time) error {
	if order.SubscriptionID == nil {
		return u.cancelOrder(ctx, order, req, now)
	}

	sub, err := u.subscriptions.GetForUpdate(ctx, *order.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		u.logger.Warn("Order references missing subscription",
			zap.String("order_id", order.ID),
			zap.String("subscription_id", *order.SubscriptionID))
		return u.cancelOrder(ctx, order, req, now)
	}

	if sub.CancelAtPeriodEnd {
		return nil
	}
	if sub.Status == model.SubscriptionStatusCanceled && hasEntry(order.Meta().SelfServiceLog, model.SelfServiceCancel) {
		return nil
	}

	var entry model.SelfServiceEntry
	switch {
	case sub.Status == model.SubscriptionStatusCanceled:
		entry = newSelfServiceEntry(req, model.SelfServiceProcessed, now, sub.CanceledAt)
	case sub.CurrentPeriodEnd == nil:
		// nothing paid yet, there is no period to run out
		cancelSubscription(sub, "self_service_cancel", now)
		entry = newSelfServiceEntry(req, model.SelfServiceProcessed, now, &now)
		if order.Status.CanTransitionTo(model.OrderStatusCanceled) {
			order.Status = model.OrderStatusCanceled
		}
	default:
		sub.CancelAtPeriodEnd = true
		effectiveAt := *sub.CurrentPeriodEnd
		entry = newSelfServiceEntry(req, model.SelfServiceScheduled, now, &effectiveAt)
	}

	sub.UpdateMeta(func(m *model.SubscriptionMetadata) {
		m.SelfServiceLog.Append(entry)
	})
	if err := u.subscriptions.Update(ctx, sub); err != nil {
		return err
	}

	order.UpdateMeta(func(m *model.OrderMetadata) {
		m.SelfServiceLog.Append(entry)
	})
	if err := u.orders.Update(ctx, order); err != nil {
		return err
	}

	u.logger.Info("Subscription cancellation requested",
		zap.String("order_id", order.ID),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(entry.Status)),
		zap.String("channel", req.Channel))
	return nil
}

func (u *SelfServiceUsecase) cancelOrder(ctx context.Context, order *model.Order, req SelfServiceRequest, now time.Time) error {
	switch order.Status {
	case model.OrderStatusCanceled, model.OrderStatusRefunded:
		return nil
	case model.OrderStatusCompleted:
		return apperrors.BadRequest("order %s is already paid, request a refund instead", order.ID)
	}

	order.Status = model.OrderStatusCanceled
	order.UpdateMeta(func(m *model.OrderMetadata) {
		m.SelfServiceLog.Append(newSelfServiceEntry(req, model.SelfServiceProcessed, now, &now))
	})
	if err := u.orders.Update(ctx, order); err != nil {
		return err
	}

	u.logger.Info("Order canceled by customer",
		zap.String("order_id", order.ID),
		zap.String("channel", req.Channel))
	return nil
}

func (u *SelfServiceUsecase) refund(ctx context.Context, order *model.Order, req SelfServiceRequest, now time.Time) ([]entity.BillingEvent, error) {
	if order.Status == model.OrderStatusRefunded {
		return nil, nil
	}

	payment, err := u.payments.GetLatestSucceeded(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperrors.BadRequest("order %s has no succeeded payment to refund", order.ID)
	}

	markRefunded(payment, req.Reason, req.Channel, now)
	if err := u.payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	order.Status = model.OrderStatusRefunded
	order.UpdateMeta(func(m *model.OrderMetadata) {
		m.Refunds.Append(model.RefundEntry{
			PaymentIDs:  []string{payment.ID},
			Reason:      req.Reason,
			Source:      model.RefundSourceSelfService,
			ProcessedAt: now,
		})
		m.SelfServiceLog.Append(newSelfServiceEntry(req, model.SelfServiceProcessed, now, &now))
	})
	if err := u.orders.Update(ctx, order); err != nil {
		return nil, err
	}

	if order.SubscriptionID != nil {
		if err := cancelLinkedSubscription(ctx, u.subscriptions, *order.SubscriptionID, reasonSelfServiceRefund, now); err != nil {
			return nil, err
		}
	}

	u.logger.Info("Order refunded by customer",
		zap.String("order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.String("channel", req.Channel))

	return []entity.BillingEvent{{
		Type:        entity.EventPaymentRefunded,
		OrderID:     order.ID,
		UserID:      order.UserID,
		PaymentID:   payment.ID,
		Provider:    payment.Provider,
		OrderStatus: order.Status,
		OccurredAt:  now,
	}}, nil
}

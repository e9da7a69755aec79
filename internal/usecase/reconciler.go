package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/provider"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

// ApplyResult describes what one normalized event did.
type ApplyResult struct {
	OrderID     string
	PaymentID   string
	OrderStatus model.OrderStatus
	// Discarded is set when the event referenced an unknown order.
	Discarded bool
	// Changed is false for a replay of an already applied event.
	Changed bool
}

// Reconciler applies provider notifications to payments, orders and
// subscriptions.
type Reconciler struct {
	tx            repository.TxManager
	orders        repository.OrderRepository
	payments      repository.PaymentRepository
	subscriptions repository.SubscriptionRepository
	providers     ProviderRegistry
	publisher     EventPublisher
	logger        *zap.Logger
	now           func() time.Time
}

// NewReconciler creates a new webhook reconciler
func NewReconciler(
	tx repository.TxManager,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	subscriptions repository.SubscriptionRepository,
	providers ProviderRegistry,
	publisher EventPublisher,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		tx:            tx,
		orders:        orders,
		payments:      payments,
		subscriptions: subscriptions,
		providers:     providers,
		publisher:     publisher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// HandleWebhook parses a raw notification and applies it. Undecodable
// payloads and payloads without an order reference are logged and
// discarded so the provider does not retry them; only an invalid signature
// is reported back to the caller.
func (r *Reconciler) HandleWebhook(ctx context.Context, providerType model.ProviderType, body []byte, headers http.Header) (*ApplyResult, error) {
	adapter, err := r.providers.GetProvider(providerType)
	if err != nil {
		return nil, apperrors.NotFound("unknown payment provider %s", providerType)
	}

	event, err := adapter.ParseWebhook(ctx, body, headers)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrInvalidSignature):
			r.logger.Warn("Webhook signature verification failed",
				zap.String("provider", string(providerType)),
				zap.Error(err))
			return nil, apperrors.NewAppError(apperrors.ErrInvalidArgument, "webhook signature verification failed", err)
		case errors.Is(err, provider.ErrMalformedPayload), errors.Is(err, provider.ErrMissingOrderReference):
			r.logger.Warn("Discarding webhook",
				zap.String("provider", string(providerType)),
				zap.Error(err))
			return &ApplyResult{Discarded: true}, nil
		default:
			return nil, apperrors.Wrap(err, "failed to parse webhook")
		}
	}

	return r.Apply(ctx, event)
}

// Apply upserts the payment named by event and derives the order and
// subscription state from it, all under a row lock on the order.
func (r *Reconciler) Apply(ctx context.Context, event *provider.NormalizedEvent) (*ApplyResult, error) {
	result := &ApplyResult{OrderID: event.OrderID}
	var events []entity.BillingEvent

	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		events = nil
		now := r.now()

		order, err := r.orders.GetForUpdate(ctx, event.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			r.logger.Warn("Webhook referenced missing order",
				zap.String("order_id", event.OrderID),
				zap.String("provider", string(event.Provider)),
				zap.String("provider_ref", event.ProviderRef))
			result.Discarded = true
			return nil
		}

		payment, err := r.findPayment(ctx, event)
		if err != nil {
			return err
		}
		if payment != nil && payment.OrderID != order.ID {
			r.logger.Warn("Webhook provider reference belongs to another order",
				zap.String("order_id", order.ID),
				zap.String("payment_order_id", payment.OrderID),
				zap.String("provider_ref", event.ProviderRef))
			result.Discarded = true
			return nil
		}

		payment, statusChanged, err := r.upsertPayment(ctx, order, payment, event, now)
		if err != nil {
			return err
		}
		result.PaymentID = payment.ID
		result.OrderStatus = order.Status
		if !statusChanged {
			return nil
		}
		result.Changed = true

		orderChanged, err := r.applyOrderStatus(ctx, order, payment, now)
		if err != nil {
			return err
		}

		if order.SubscriptionID != nil {
			if err := r.syncSubscription(ctx, *order.SubscriptionID, payment.Status, order.ID, now); err != nil {
				return err
			}
		}

		if orderChanged {
			if err := r.orders.Update(ctx, order); err != nil {
				return err
			}
			events = append(events, entity.BillingEvent{
				Type:        entity.EventOrderStatusChanged,
				OrderID:     order.ID,
				UserID:      order.UserID,
				PaymentID:   payment.ID,
				Provider:    payment.Provider,
				OrderStatus: order.Status,
				OccurredAt:  now,
			})
		}
		result.OrderStatus = order.Status
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to apply payment event")
	}

	publishAll(ctx, r.publisher, r.logger, events)
	return result, nil
}

// findPayment looks the payment up by (provider, ref), or by the latest
// payment of the provider for the order when the event carries no ref.
func (r *Reconciler) findPayment(ctx context.Context, event *provider.NormalizedEvent) (*model.Payment, error) {
	if event.ProviderRef != "" {
		return r.payments.GetByProviderRef(ctx, event.Provider, event.ProviderRef)
	}
	return r.payments.GetLatestForOrder(ctx, event.Provider, event.OrderID)
}

// upsertPayment writes the event onto payment, creating it when nil, and
// reports whether the payment status was observed for the first time or
// moved. A replay with nothing new is not written.
func (r *Reconciler) upsertPayment(ctx context.Context, order *model.Order, payment *model.Payment, event *provider.NormalizedEvent, now time.Time) (*model.Payment, bool, error) {
	if payment == nil {
		payment = &model.Payment{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			Provider:    event.Provider,
			Status:      event.Status,
			Amount:      order.Amount,
			Currency:    order.Currency,
			ProcessedAt: &now,
			Payload:     datatypes.JSON(event.Payload),
		}
		if payment.Status == "" {
			payment.Status = model.PaymentStatusPending
		}
		if event.Amount != nil {
			payment.Amount = *event.Amount
		}
		if event.Currency != "" {
			payment.Currency = event.Currency
		}
		if event.ProviderRef != "" {
			ref := event.ProviderRef
			payment.ProviderRef = &ref
		}
		if err := r.payments.Create(ctx, payment); err != nil {
			return nil, false, err
		}
		r.logger.Info("Payment recorded from webhook",
			zap.String("order_id", order.ID),
			zap.String("payment_id", payment.ID),
			zap.String("provider", string(payment.Provider)),
			zap.String("status", string(payment.Status)))
		return payment, true, nil
	}

	dirty := false
	statusChanged := false

	if event.Status != "" && event.Status != payment.Status {
		if payment.Status.CanBecome(event.Status) {
			payment.Status = event.Status
			statusChanged = true
			dirty = true
		} else {
			r.logger.Info("Ignoring stale payment status",
				zap.String("payment_id", payment.ID),
				zap.String("status", string(payment.Status)),
				zap.String("reported", string(event.Status)))
		}
	}
	if event.Amount != nil && !event.Amount.Equal(payment.Amount) {
		payment.Amount = *event.Amount
		dirty = true
	}
	if event.Currency != "" && event.Currency != payment.Currency {
		payment.Currency = event.Currency
		dirty = true
	}
	if event.ProviderRef != "" && payment.Ref() != event.ProviderRef {
		ref := event.ProviderRef
		payment.ProviderRef = &ref
		dirty = true
	}
	if !dirty {
		return payment, false, nil
	}

	payment.ProcessedAt = &now
	if len(event.Payload) > 0 {
		payment.Payload = datatypes.JSON(event.Payload)
	}
	if err := r.payments.Update(ctx, payment); err != nil {
		return nil, false, err
	}

	r.logger.Info("Payment updated from webhook",
		zap.String("order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.String("status", string(payment.Status)),
		zap.Bool("status_changed", statusChanged))
	return payment, statusChanged, nil
}

// applyOrderStatus derives the order status from the payment. Moves the
// transition graph does not allow are recorded as anomalies instead.
func (r *Reconciler) applyOrderStatus(ctx context.Context, order *model.Order, payment *model.Payment, now time.Time) (bool, error) {
	next, ok := payment.Status.OrderStatus()
	if !ok {
		return false, nil
	}

	if next == order.Status {
		if payment.Status != model.PaymentStatusSucceeded || order.Type != model.OrderTypeOneTime {
			return false, nil
		}
		duplicate, err := r.hasOtherSettlement(ctx, order.ID, payment.ID)
		if err != nil || !duplicate {
			return false, err
		}
		r.logger.Warn("Second settled payment on completed order",
			zap.String("order_id", order.ID),
			zap.String("payment_id", payment.ID))
		r.recordAnomaly(order, model.AnomalyDuplicateSettlement, payment, now)
		return true, nil
	}

	if !order.Status.CanTransitionTo(next) {
		r.logger.Warn("Rejected order status transition",
			zap.String("order_id", order.ID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(next)),
			zap.String("payment_id", payment.ID))
		r.recordAnomaly(order, model.AnomalyRejectedTransition, payment, now)
		return true, nil
	}

	r.logger.Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)))
	order.Status = next
	if next == model.OrderStatusRefunded {
		order.UpdateMeta(func(m *model.OrderMetadata) {
			m.Refunds.Append(model.RefundEntry{
				PaymentIDs:  []string{payment.ID},
				Source:      model.RefundSourceProvider,
				ProcessedAt: now,
			})
		})
	}
	return true, nil
}

func (r *Reconciler) hasOtherSettlement(ctx context.Context, orderID, paymentID string) (bool, error) {
	payments, err := r.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, p := range payments {
		if p.ID != paymentID && p.Status == model.PaymentStatusSucceeded {
			return true, nil
		}
	}
	return false, nil
}

func (r *Reconciler) recordAnomaly(order *model.Order, kind string, payment *model.Payment, now time.Time) {
	order.UpdateMeta(func(m *model.OrderMetadata) {
		m.Anomalies.Append(model.AnomalyEntry{
			Kind:        kind,
			PaymentID:   payment.ID,
			ProviderRef: payment.Ref(),
			Status:      payment.Status,
			OrderStatus: order.Status,
			DetectedAt:  now,
		})
	})
}

func (r *Reconciler) syncSubscription(ctx context.Context, subscriptionID string, status model.PaymentStatus, orderID string, now time.Time) error {
	if status == model.PaymentStatusPending {
		return nil
	}

	sub, err := r.subscriptions.GetForUpdate(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		r.logger.Warn("Order references missing subscription",
			zap.String("order_id", orderID),
			zap.String("subscription_id", subscriptionID))
		return nil
	}

	previous := sub.Status
	if !applyPaymentOutcome(sub, status, orderID, reasonPaymentRefunded, now) {
		return nil
	}
	if err := r.subscriptions.Update(ctx, sub); err != nil {
		return err
	}

	r.logger.Info("Subscription synchronized",
		zap.String("subscription_id", sub.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(sub.Status)),
		zap.String("payment_status", string(status)))
	return nil
}

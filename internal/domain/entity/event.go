package entity

import (
	"time"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
)

// EventType names a billing notification.
type EventType string

const (
	EventOrderStatusChanged EventType = "order.status_changed"
	EventPaymentRefunded    EventType = "payment.refunded"
	EventDunningReminder    EventType = "dunning.reminder"
)

// BillingEvent is published after the change it describes is committed.
type BillingEvent struct {
	Type          EventType          `json:"type"`
	OrderID       string             `json:"order_id"`
	UserID        string             `json:"user_id"`
	PaymentID     string             `json:"payment_id,omitempty"`
	Provider      model.ProviderType `json:"provider,omitempty"`
	OrderStatus   model.OrderStatus  `json:"order_status,omitempty"`
	ReminderCount int                `json:"reminder_count,omitempty"`
	OccurredAt    time.Time          `json:"occurred_at"`
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OrderType distinguishes one-time purchases from subscriptions.
type OrderType string

const (
	OrderTypeOneTime      OrderType = "one_time"
	OrderTypeSubscription OrderType = "subscription"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusRequiresAction OrderStatus = "requires_action"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCanceled       OrderStatus = "canceled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// orderTransitions is the forward-only transition graph.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusRequiresAction, OrderStatusCompleted, OrderStatusCanceled, OrderStatusRefunded},
	OrderStatusRequiresAction: {OrderStatusCompleted, OrderStatusCanceled, OrderStatusRefunded},
	OrderStatusCompleted:      {OrderStatusRefunded},
	OrderStatusCanceled:       {OrderStatusRefunded},
}

// CanTransitionTo reports whether moving to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOpen reports whether the order still awaits payment.
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusPending || s == OrderStatusRequiresAction
}

// Order is a purchase intent.
type Order struct {
	ID             string                            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string                            `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID       *string                           `gorm:"type:uuid;index" json:"course_id,omitempty"`
	SubscriptionID *string                           `gorm:"type:uuid;index" json:"subscription_id,omitempty"`
	Type           OrderType                         `gorm:"size:20;not null" json:"type"`
	Status         OrderStatus                       `gorm:"size:20;not null;index:idx_orders_status_created,priority:1" json:"status"`
	Amount         decimal.Decimal                   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency       string                            `gorm:"size:3;not null" json:"currency"`
	Metadata       datatypes.JSONType[OrderMetadata] `gorm:"type:jsonb;not null" json:"metadata"`
	CreatedAt      time.Time                         `gorm:"not null;index:idx_orders_status_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time                         `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// Meta returns a copy of the order metadata.
func (o *Order) Meta() OrderMetadata {
	return o.Metadata.Data()
}

// UpdateMeta applies fn to a copy of the metadata and stores the result.
func (o *Order) UpdateMeta(fn func(m *OrderMetadata)) {
	m := o.Metadata.Data()
	fn(&m)
	o.Metadata = datatypes.NewJSONType(m)
}

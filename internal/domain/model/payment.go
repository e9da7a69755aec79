package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProviderType names an external payment provider.
type ProviderType string

const (
	ProviderManual        ProviderType = "manual"
	ProviderStripe        ProviderType = "stripe"
	ProviderYooKassa      ProviderType = "yookassa"
	ProviderCloudPayments ProviderType = "cloudpayments"
)

// ProviderTypes lists every supported provider.
var ProviderTypes = []ProviderType{ProviderManual, ProviderStripe, ProviderYooKassa, ProviderCloudPayments}

// ParseProviderType returns the provider named s.
func ParseProviderType(s string) (ProviderType, bool) {
	for _, p := range ProviderTypes {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// PaymentStatus is the provider-reported state of one payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// CanBecome reports whether a payment may move to next. Settled payments
// only move to refunded and refunded payments never move.
func (s PaymentStatus) CanBecome(next PaymentStatus) bool {
	switch s {
	case PaymentStatusSucceeded:
		return next == PaymentStatusRefunded
	case PaymentStatusRefunded:
		return false
	default:
		return next != s
	}
}

// OrderStatus maps a payment outcome to the order status it implies.
// Pending implies no change.
func (s PaymentStatus) OrderStatus() (OrderStatus, bool) {
	switch s {
	case PaymentStatusSucceeded:
		return OrderStatusCompleted, true
	case PaymentStatusFailed:
		return OrderStatusRequiresAction, true
	case PaymentStatusRefunded:
		return OrderStatusRefunded, true
	default:
		return "", false
	}
}

// RefundAnnotation records a refund issued outside the provider webhook flow.
type RefundAnnotation struct {
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
	Channel     string    `json:"channel"`
}

// Payment is one provider attempt against an order. (Provider, ProviderRef)
// is unique and serves as the webhook idempotency key.
type Payment struct {
	ID          string                                `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     string                                `gorm:"type:uuid;not null;index:idx_payments_order_processed,priority:1" json:"order_id"`
	Provider    ProviderType                          `gorm:"size:20;not null;uniqueIndex:idx_payments_provider_ref,priority:1" json:"provider"`
	Status      PaymentStatus                         `gorm:"size:20;not null" json:"status"`
	Amount      decimal.Decimal                       `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency    string                                `gorm:"size:3;not null" json:"currency"`
	ProviderRef *string                               `gorm:"size:191;uniqueIndex:idx_payments_provider_ref,priority:2" json:"provider_ref,omitempty"`
	ProcessedAt *time.Time                            `gorm:"index:idx_payments_order_processed,priority:2" json:"processed_at,omitempty"`
	Payload     datatypes.JSON                        `gorm:"type:jsonb" json:"payload,omitempty"`
	Refund      datatypes.JSONType[*RefundAnnotation] `gorm:"type:jsonb" json:"refund,omitempty"`
	CreatedAt   time.Time                             `json:"created_at"`
	UpdatedAt   time.Time                             `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// Ref returns the provider reference or "".
func (p *Payment) Ref() string {
	if p.ProviderRef == nil {
		return ""
	}
	return *p.ProviderRef
}

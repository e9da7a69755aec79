package entity

import "time"

// RefundResult reports an operator refund.
type RefundResult struct {
	OrderID    string    `json:"order_id"`
	PaymentIDs []string  `json:"payment_ids"`
	RefundedAt time.Time `json:"refunded_at"`
	Reason     string    `json:"reason,omitempty"`
}

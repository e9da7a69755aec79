package entity

import (
	"time"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/money"
)

// Order paging bounds.
const (
	DefaultOrderPageSize = 20
	MaxOrderPageSize     = 100
)

// OrderView is the order projection returned to callers.
type OrderView struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	CourseID     *string             `json:"course_id,omitempty"`
	Type         model.OrderType     `json:"type"`
	Status       model.OrderStatus   `json:"status"`
	Amount       string              `json:"amount"`
	Currency     string              `json:"currency"`
	Metadata     model.OrderMetadata `json:"metadata"`
	Subscription *SubscriptionView   `json:"subscription,omitempty"`
	Payments     []PaymentView       `json:"payments,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// SubscriptionView is the subscription projection.
type SubscriptionView struct {
	ID                 string                   `json:"id"`
	PlanID             string                   `json:"plan_id"`
	Status             model.SubscriptionStatus `json:"status"`
	CurrentPeriodStart *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool                     `json:"cancel_at_period_end"`
	CanceledAt         *time.Time               `json:"canceled_at,omitempty"`
}

// PaymentView is the payment projection.
type PaymentView struct {
	ID          string                  `json:"id"`
	OrderID     string                  `json:"order_id"`
	Provider    model.ProviderType      `json:"provider"`
	Status      model.PaymentStatus     `json:"status"`
	Amount      string                  `json:"amount"`
	Currency    string                  `json:"currency"`
	ProviderRef string                  `json:"provider_ref,omitempty"`
	ProcessedAt *time.Time              `json:"processed_at,omitempty"`
	Refund      *model.RefundAnnotation `json:"refund,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// OrderPage is one page of a user's orders.
type OrderPage struct {
	Items      []OrderView `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// NewOrderView projects an order with optional subscription and payments.
func NewOrderView(order *model.Order, subscription *model.Subscription, payments []*model.Payment) OrderView {
	view := OrderView{
		ID:        order.ID,
		UserID:    order.UserID,
		CourseID:  order.CourseID,
		Type:      order.Type,
		Status:    order.Status,
		Amount:    money.Format(order.Amount, money.Currency(order.Currency)),
		Currency:  order.Currency,
		Metadata:  order.Meta(),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	if subscription != nil {
		sv := NewSubscriptionView(subscription)
		view.Subscription = &sv
	}
	for _, p := range payments {
		view.Payments = append(view.Payments, NewPaymentView(p))
	}
	return view
}

// NewSubscriptionView projects a subscription.
func NewSubscriptionView(s *model.Subscription) SubscriptionView {
	return SubscriptionView{
		ID:                 s.ID,
		PlanID:             s.PlanID,
		Status:             s.Status,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CanceledAt:         s.CanceledAt,
	}
}

// NewPaymentView projects a payment.
func NewPaymentView(p *model.Payment) PaymentView {
	return PaymentView{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Provider:    p.Provider,
		Status:      p.Status,
		Amount:      money.Format(p.Amount, money.Currency(p.Currency)),
		Currency:    p.Currency,
		ProviderRef: p.Ref(),
		ProcessedAt: p.ProcessedAt,
		Refund:      p.Refund.Data(),
		CreatedAt:   p.CreatedAt,
	}
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
)

// IntervalUnit is the billing period unit.
type IntervalUnit string

const (
	IntervalMonth IntervalUnit = "month"
	IntervalYear  IntervalUnit = "year"
)

// Interval is a billing period length.
type Interval struct {
	Unit  IntervalUnit `json:"unit"`
	Count int          `json:"count"`
}

// AddTo advances t by the interval using calendar arithmetic. When the
// target month is shorter than t's day, the result is clamped to the last
// day of that month (Jan 31 + 1 month = Feb 28/29).
func (i Interval) AddTo(t time.Time) time.Time {
	count := i.Count
	if count < 1 {
		count = 1
	}

	months := count
	if i.Unit == IntervalYear {
		months = count * 12
	}

	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// SubscriptionMetadata is the typed metadata stored on a subscription.
type SubscriptionMetadata struct {
	CohortCode     string                       `json:"cohortCode,omitempty"`
	Interval       *Interval                    `json:"interval,omitempty"`
	TrialDays      int                          `json:"trialDays,omitempty"`
	LastPaymentAt  *time.Time                   `json:"lastPaymentAt,omitempty"`
	LastOrderID    string                       `json:"lastOrderId,omitempty"`
	LastFailureAt  *time.Time                   `json:"lastFailureAt,omitempty"`
	FailureReason  string                       `json:"failureReason,omitempty"`
	CancelReason   string                       `json:"cancelReason,omitempty"`
	SelfServiceLog BoundedLog[SelfServiceEntry] `json:"selfServiceLog"`
}

// Subscription is a recurring billing instance.
type Subscription struct {
	ID                 string                                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             string                                   `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID             string                                   `gorm:"type:uuid;not null;index" json:"plan_id"`
	Provider           ProviderType                             `gorm:"size:20;not null" json:"provider"`
	Status             SubscriptionStatus                       `gorm:"size:20;not null" json:"status"`
	CurrentPeriodStart *time.Time                               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time                               `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool                                     `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CanceledAt         *time.Time                               `json:"canceled_at,omitempty"`
	Metadata           datatypes.JSONType[SubscriptionMetadata] `gorm:"type:jsonb;not null" json:"metadata"`
	CreatedAt          time.Time                                `json:"created_at"`
	UpdatedAt          time.Time                                `json:"updated_at"`

	// Relations
	Plan *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// Meta returns a copy of the subscription metadata.
func (s *Subscription) Meta() SubscriptionMetadata {
	return s.Metadata.Data()
}

// UpdateMeta applies fn to a copy of the metadata and stores the result.
func (s *Subscription) UpdateMeta(fn func(m *SubscriptionMetadata)) {
	m := s.Metadata.Data()
	fn(&m)
	s.Metadata = datatypes.NewJSONType(m)
}

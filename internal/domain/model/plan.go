package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionPlan is a read-only pricing template owned by billing
// configuration.
type SubscriptionPlan struct {
	ID            string          `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID      string          `gorm:"type:uuid;not null;index" json:"course_id"`
	Name          string          `gorm:"size:255" json:"name"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	IntervalUnit  IntervalUnit    `gorm:"size:10;not null" json:"interval_unit"`
	IntervalCount int             `gorm:"not null;default:1" json:"interval_count"`
	TrialDays     int             `gorm:"not null;default:0" json:"trial_days"`
	CohortCode    *string         `gorm:"size:64" json:"cohort_code,omitempty"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// Interval returns the plan billing interval.
func (p *SubscriptionPlan) Interval() Interval {
	count := p.IntervalCount
	if count < 1 {
		count = 1
	}
	unit := p.IntervalUnit
	if unit != IntervalYear {
		unit = IntervalMonth
	}
	return Interval{Unit: unit, Count: count}
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is the slice of the catalog billing reads: prices and cohort.
type Course struct {
	ID         string           `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string           `gorm:"size:255" json:"title"`
	PriceUSD   *decimal.Decimal `gorm:"column:price_usd;type:numeric(12,2)" json:"price_usd,omitempty"`
	PriceRUB   *decimal.Decimal `gorm:"column:price_rub;type:numeric(12,2)" json:"price_rub,omitempty"`
	PriceKZT   *decimal.Decimal `gorm:"column:price_kzt;type:numeric(12,2)" json:"price_kzt,omitempty"`
	CohortCode *string          `gorm:"size:64" json:"cohort_code,omitempty"`
}

// TableName specifies the table name for GORM
func (Course) TableName() string {
	return "courses"
}

// PriceFor returns the course price in currency, if one is set.
func (c *Course) PriceFor(currency string) (decimal.Decimal, bool) {
	var price *decimal.Decimal
	switch currency {
	case "USD":
		price = c.PriceUSD
	case "RUB":
		price = c.PriceRUB
	case "KZT":
		price = c.PriceKZT
	}
	if price == nil {
		return decimal.Zero, false
	}
	return *price, true
}

// User is the account fields billing needs.
type User struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	Email  string `gorm:"size:255" json:"email"`
	Locale string `gorm:"size:5" json:"locale"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// EnrollmentStatus is owned by the enrollment collaborator; billing only
// ever writes paused.
type EnrollmentStatus string

const EnrollmentStatusPaused EnrollmentStatus = "paused"

// Enrollment links a user to a course.
type Enrollment struct {
	ID        string           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string           `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_user_course,priority:1" json:"user_id"`
	CourseID  string           `gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_user_course,priority:2" json:"course_id"`
	OrderID   *string          `gorm:"type:uuid" json:"order_id,omitempty"`
	Status    EnrollmentStatus `gorm:"size:20;not null" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Enrollment) TableName() string {
	return "enrollments"
}

package repository

import (
	"context"
	"time"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
)

// TxManager runs fn in one storage transaction. Repositories called with
// the ctx passed to fn join that transaction.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository stores orders. Getters return nil, nil when not found.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	// GetForUpdate reads the order holding a row lock until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id string) (*model.Order, error)
	Update(ctx context.Context, order *model.Order) error
	// ListByUser pages a user's orders newest first. cursor is the id of the
	// last order of the previous page.
	ListByUser(ctx context.Context, userID, cursor string, take int) ([]*model.Order, error)
	// ListOverdue returns orders in statuses created at or before cutoff,
	// oldest first.
	ListOverdue(ctx context.Context, statuses []model.OrderStatus, cutoff time.Time, limit int) ([]*model.Order, error)
}

// PaymentRepository stores payments. Getters return nil, nil when not found.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Update(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	GetByProviderRef(ctx context.Context, provider model.ProviderType, ref string) (*model.Payment, error)
	// GetLatestForOrder returns the most recently processed payment of the
	// provider for the order.
	GetLatestForOrder(ctx context.Context, provider model.ProviderType, orderID string) (*model.Payment, error)
	// GetLatestSucceeded returns the most recently processed succeeded payment.
	GetLatestSucceeded(ctx context.Context, orderID string) (*model.Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]*model.Payment, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Payment, error)
}

// SubscriptionRepository stores subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *model.Subscription) error
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	GetForUpdate(ctx context.Context, id string) (*model.Subscription, error)
	Update(ctx context.Context, subscription *model.Subscription) error
	Delete(ctx context.Context, id string) error
}

// PlanRepository reads subscription plans.
type PlanRepository interface {
	GetByID(ctx context.Context, id string) (*model.SubscriptionPlan, error)
}

// CatalogRepository resolves courses and users owned by other services.
type CatalogRepository interface {
	GetCourse(ctx context.Context, id string) (*model.Course, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// EnrollmentRepository creates the paused enrollment a paid order unlocks.
type EnrollmentRepository interface {
	UpsertPaused(ctx context.Context, userID, courseID, orderID string) error
}

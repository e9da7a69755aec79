package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/Radamanths/Irina-online-school-sub000/internal/domain/errors"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db, logger: logger}
}

// Create saves a new subscription
func (r *subscriptionRepository) Create(ctx context.Context, subscription *model.Subscription) error {
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(subscription).Error; err != nil {
		r.logger.Error("Failed to save subscription",
			zap.String("user_id", subscription.UserID),
			zap.String("plan_id", subscription.PlanID),
			zap.Error(err))
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// GetByID retrieves a subscription with its plan
func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	return r.get(conn(ctx, r.db), id)
}

// GetForUpdate retrieves a subscription holding a row lock
func (r *subscriptionRepository) GetForUpdate(ctx context.Context, id string) (*model.Subscription, error) {
	return r.get(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}}), id)
}

func (r *subscriptionRepository) get(db *gorm.DB, id string) (*model.Subscription, error) {
	var sub model.Subscription
	err := db.Preload("Plan").Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription",
			zap.String("subscription_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// Update writes the billing state of an existing subscription
func (r *subscriptionRepository) Update(ctx context.Context, subscription *model.Subscription) error {
	result := conn(ctx, r.db).
		Model(subscription).
		Select("status", "current_period_start", "current_period_end", "cancel_at_period_end", "canceled_at", "metadata", "updated_at").
		Updates(subscription)
	if result.Error != nil {
		r.logger.Error("Failed to update subscription",
			zap.String("subscription_id", subscription.ID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrSubscriptionNotFound
	}
	return nil
}

// Delete removes a subscription. Deleting a missing row is not an error.
func (r *subscriptionRepository) Delete(ctx context.Context, id string) error {
	if err := conn(ctx, r.db).Where("id = ?", id).Delete(&model.Subscription{}).Error; err != nil {
		r.logger.Error("Failed to delete subscription",
			zap.String("subscription_id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

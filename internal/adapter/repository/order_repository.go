package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErrors "github.com/Radamanths/Irina-online-school-sub000/internal/domain/errors"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
)

type orderRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB, logger *zap.Logger) repository.OrderRepository {
	return &orderRepository{db: db, logger: logger}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	if err := conn(ctx, r.db).Create(order).Error; err != nil {
		r.logger.Error("Failed to create order",
			zap.String("user_id", order.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	return r.get(conn(ctx, r.db), id)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (*model.Order, error) {
	return r.get(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *orderRepository) get(db *gorm.DB, id string) (*model.Order, error) {
	var order model.Order
	err := db.Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get order", zap.String("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// Update writes the mutable order fields: status, subscription link and metadata.
func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	result := conn(ctx, r.db).
		Model(order).
		Select("status", "subscription_id", "metadata", "updated_at").
		Updates(order)
	if result.Error != nil {
		r.logger.Error("Failed to update order",
			zap.String("order_id", order.ID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID, cursor string, take int) ([]*model.Order, error) {
	query := conn(ctx, r.db).Where("user_id = ?", userID)

	if cursor != "" {
		var anchor model.Order
		err := conn(ctx, r.db).Select("id", "created_at").Where("id = ? AND user_id = ?", cursor, userID).First(&anchor).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to resolve order cursor: %w", err)
		}
		if err == nil {
			query = query.Where("(created_at, id) < (?, ?)", anchor.CreatedAt, anchor.ID)
		}
	}

	var orders []*model.Order
	err := query.Order("created_at DESC").Order("id DESC").Limit(take).Find(&orders).Error
	if err != nil {
		r.logger.Error("Failed to list orders", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) ListOverdue(ctx context.Context, statuses []model.OrderStatus, cutoff time.Time, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := conn(ctx, r.db).
		Where("status IN ? AND created_at <= ?", statuses, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		r.logger.Error("Failed to list overdue orders", zap.Time("cutoff", cutoff), zap.Error(err))
		return nil, fmt.Errorf("failed to list overdue orders: %w", err)
	}
	return orders, nil
}

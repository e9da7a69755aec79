package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErrors "github.com/Radamanths/Irina-online-school-sub000/internal/domain/errors"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
)

const latestProcessedOrder = "processed_at DESC NULLS LAST, created_at DESC"

type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) repository.PaymentRepository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	err := conn(ctx, r.db).Create(payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainErrors.ErrDuplicateProviderRef
		}
		r.logger.Error("Failed to create payment",
			zap.String("order_id", payment.OrderID),
			zap.String("provider", string(payment.Provider)),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	result := conn(ctx, r.db).
		Model(payment).
		Select("status", "amount", "currency", "provider_ref", "processed_at", "payload", "refund", "updated_at").
		Updates(payment)
	if err := result.Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainErrors.ErrDuplicateProviderRef
		}
		r.logger.Error("Failed to update payment",
			zap.String("payment_id", payment.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

func (r *paymentRepository) GetByProviderRef(ctx context.Context, provider model.ProviderType, ref string) (*model.Payment, error) {
	return r.first(conn(ctx, r.db).Where("provider = ? AND provider_ref = ?", provider, ref))
}

func (r *paymentRepository) GetLatestForOrder(ctx context.Context, provider model.ProviderType, orderID string) (*model.Payment, error) {
	return r.first(conn(ctx, r.db).
		Where("provider = ? AND order_id = ?", provider, orderID).
		Order(latestProcessedOrder))
}

func (r *paymentRepository) GetLatestSucceeded(ctx context.Context, orderID string) (*model.Payment, error) {
	return r.first(conn(ctx, r.db).
		Where("order_id = ? AND status = ?", orderID, model.PaymentStatusSucceeded).
		Order(latestProcessedOrder))
}

func (r *paymentRepository) first(query *gorm.DB) (*model.Payment, error) {
	var payment model.Payment
	if err := query.Limit(1).Find(&payment).Error; err != nil {
		r.logger.Error("Failed to get payment", zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment.ID == "" {
		return nil, nil
	}
	return &payment, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID string) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := conn(ctx, r.db).Where("order_id = ?", orderID).Order("created_at ASC").Find(&payments).Error
	if err != nil {
		r.logger.Error("Failed to list payments", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) ListRecent(ctx context.Context, limit int) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := conn(ctx, r.db).Order("created_at DESC").Limit(limit).Find(&payments).Error
	if err != nil {
		r.logger.Error("Failed to list recent payments", zap.Error(err))
		return nil, fmt.Errorf("failed to list recent payments: %w", err)
	}
	return payments, nil
}

package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
)

// Migrate creates the billing tables. Courses and users belong to the
// catalog service and are only created here when missing, so local and
// test databases work standalone.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.Course{},
		&model.User{},
		&model.Enrollment{},
		&model.SubscriptionPlan{},
		&model.Subscription{},
		&model.Order{},
		&model.Payment{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes gorm tags cannot express
func createCustomIndexes(db *gorm.DB) error {
	// dunning scan
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_orders_open_created ON orders (created_at) WHERE status IN ('pending', 'requires_action')`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_order_succeeded ON payments (order_id, processed_at DESC) WHERE status = 'succeeded'`).Error; err != nil {
		return err
	}

	return nil
}

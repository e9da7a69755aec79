package repository

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domainRepo "github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
)

type txKey struct{}

type transactionManager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTxManager creates a TxManager backed by gorm transactions
func NewTxManager(db *gorm.DB, logger *zap.Logger) domainRepo.TxManager {
	return &transactionManager{db: db, logger: logger}
}

// WithinTransaction runs fn in a transaction. A nested call joins the
// outer transaction.
func (m *transactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction bound to ctx, or db.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

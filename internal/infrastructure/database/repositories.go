package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Radamanths/Irina-online-school-sub000/internal/adapter/repository"
	domainRepo "github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Tx           domainRepo.TxManager
	Order        domainRepo.OrderRepository
	Payment      domainRepo.PaymentRepository
	Subscription domainRepo.SubscriptionRepository
	Plan         domainRepo.PlanRepository
	Catalog      domainRepo.CatalogRepository
	Enrollment   domainRepo.EnrollmentRepository
}

// NewRepositories creates new repository instances with database connection
func NewRepositories(db *gorm.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Tx:           repository.NewTxManager(db, logger),
		Order:        repository.NewOrderRepository(db, logger),
		Payment:      repository.NewPaymentRepository(db, logger),
		Subscription: repository.NewSubscriptionRepository(db, logger),
		Plan:         repository.NewPlanRepository(db, logger),
		Catalog:      repository.NewCatalogRepository(db, logger),
		Enrollment:   repository.NewEnrollmentRepository(db, logger),
	}
}

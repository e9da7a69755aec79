package app

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Radamanths/Irina-online-school-sub000/internal/config"
	"github.com/Radamanths/Irina-online-school-sub000/internal/infrastructure/database"
	"github.com/Radamanths/Irina-online-school-sub000/internal/infrastructure/messaging"
	"github.com/Radamanths/Irina-online-school-sub000/internal/infrastructure/provider"
	"github.com/Radamanths/Irina-online-school-sub000/internal/usecase"
	pkgmessaging "github.com/Radamanths/Irina-online-school-sub000/pkg/messaging"
)

// App holds the wired dependencies shared by the server and billingctl.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *gorm.DB
	Repos     *database.Repositories
	Redis     pkgmessaging.RedisClient
	Publisher usecase.EventPublisher
	Providers *provider.Factory

	Orders      *usecase.OrderUsecase
	Checkout    *usecase.CheckoutUsecase
	Reconciler  *usecase.Reconciler
	Dunning     *usecase.DunningService
	SelfService *usecase.SelfServiceUsecase
	Refunds     *usecase.RefundUsecase
}

// New connects to the database and Redis and builds every use case.
// Migrations are not run here.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Logger: log,
		DB:     db,
		Repos:  database.NewRepositories(db, log),
	}

	if cfg.Redis.Addr != "" {
		client, err := pkgmessaging.NewRedisClient(pkgmessaging.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = database.Close(db, log)
			return nil, fmt.Errorf("failed to connect event bus: %w", err)
		}
		a.Redis = client
		a.Publisher = messaging.NewRedisNotifier(client, cfg.Redis.Channel, log)
	} else {
		log.Info("Redis address not configured, billing events are only logged")
		a.Publisher = messaging.NewLogNotifier(log)
	}

	a.Providers = provider.NewFactory(cfg, log)

	r := a.Repos
	a.Orders = usecase.NewOrderUsecase(r.Tx, r.Order, r.Payment, r.Subscription, r.Plan, r.Catalog, r.Enrollment, log)
	a.Checkout = usecase.NewCheckoutUsecase(a.Orders, r.Tx, r.Order, r.Payment, a.Providers, cfg.Service, log)
	a.Reconciler = usecase.NewReconciler(r.Tx, r.Order, r.Payment, r.Subscription, a.Providers, a.Publisher, log)
	a.Dunning = usecase.NewDunningService(r.Tx, r.Order, a.Publisher, cfg.Dunning, log)
	a.SelfService = usecase.NewSelfServiceUsecase(r.Tx, r.Order, r.Payment, r.Subscription, a.Publisher, log)
	a.Refunds = usecase.NewRefundUsecase(r.Tx, r.Order, r.Payment, r.Subscription, a.Publisher, log)

	return a, nil
}

// Migrate runs the schema migrations.
func (a *App) Migrate() error {
	return database.Migrate(a.DB, a.Logger)
}

// Close releases Redis and the database pool.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if err := database.Close(a.DB, a.Logger); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
}

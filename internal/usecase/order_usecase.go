package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/money"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

// CreateOrderInput is a purchase intent.
type CreateOrderInput struct {
	UserID             string
	CourseID           string
	Currency           string
	SubscriptionPlanID string
	Provider           model.ProviderType
	Locale             string
	Metadata           map[string]string
}

// OrderUsecase creates orders and reads them back.
type OrderUsecase struct {
	tx            repository.TxManager
	orders        repository.OrderRepository
	payments      repository.PaymentRepository
	subscriptions repository.SubscriptionRepository
	plans         repository.PlanRepository
	catalog       repository.CatalogRepository
	enrollments   repository.EnrollmentRepository
	logger        *zap.Logger
}

// NewOrderUsecase creates a new order usecase instance
func NewOrderUsecase(
	tx repository.TxManager,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	subscriptions repository.SubscriptionRepository,
	plans repository.PlanRepository,
	catalog repository.CatalogRepository,
	enrollments repository.EnrollmentRepository,
	logger *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:            tx,
		orders:        orders,
		payments:      payments,
		subscriptions: subscriptions,
		plans:         plans,
		catalog:       catalog,
		enrollments:   enrollments,
		logger:        logger,
	}
}

var cohortInvalidChars = regexp.MustCompile(`[^A-Z0-9-]+`)
var cohortDashes = regexp.MustCompile(`-{2,}`)

// NormalizeCohort uppercases code, replaces characters outside [A-Z0-9-]
// with dashes, collapses repeated dashes and trims them from both ends.
func NormalizeCohort(code string) string {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	normalized = cohortInvalidChars.ReplaceAllString(normalized, "-")
	normalized = cohortDashes.ReplaceAllString(normalized, "-")
	return strings.Trim(normalized, "-")
}

func derefCohort(code *string) string {
	if code == nil {
		return ""
	}
	return NormalizeCohort(*code)
}

// CreateOrder resolves the price, creates the draft subscription when a
// plan is requested, then the order and a paused enrollment.
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	course, err := u.catalog.GetCourse(ctx, in.CourseID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load course")
	}
	if course == nil {
		return nil, apperrors.NotFound("course %s not found", in.CourseID)
	}

	user, err := u.catalog.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load user")
	}
	if user == nil {
		return nil, apperrors.NotFound("user %s not found", in.UserID)
	}

	var plan *model.SubscriptionPlan
	if in.SubscriptionPlanID != "" {
		plan, err = u.plans.GetByID(ctx, in.SubscriptionPlanID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to load subscription plan")
		}
		if plan == nil {
			return nil, apperrors.NotFound("subscription plan %s not found", in.SubscriptionPlanID)
		}
	}

	courseCohort := derefCohort(course.CohortCode)
	cohort := courseCohort

	var currency money.Currency
	var amount decimal.Decimal
	if plan != nil {
		if !plan.IsActive {
			return nil, apperrors.BadRequest("subscription plan %s is not active", plan.ID)
		}
		if plan.CourseID != course.ID {
			return nil, apperrors.BadRequest("subscription plan %s does not belong to course %s", plan.ID, course.ID)
		}

		planCohort := derefCohort(plan.CohortCode)
		switch {
		case planCohort != "" && courseCohort != "" && planCohort != courseCohort:
			return nil, apperrors.BadRequest("subscription plan cohort %s does not match course cohort %s", planCohort, courseCohort)
		case planCohort != "" && courseCohort == "":
			u.logger.Warn("Subscription plan has a cohort but the course has none",
				zap.String("plan_id", plan.ID),
				zap.String("course_id", course.ID),
				zap.String("cohort", planCohort))
			cohort = planCohort
		}

		currency = money.ParseCurrency(plan.Currency)
		amount = plan.Amount
	} else {
		code := in.Currency
		if code == "" {
			code = string(money.USD)
		}
		currency, err = money.NormalizeCurrency(code)
		if err != nil {
			return nil, apperrors.BadRequest("%s", err.Error())
		}
		price, ok := course.PriceFor(string(currency))
		if !ok {
			return nil, apperrors.BadRequest("course %s has no price in %s", course.ID, currency)
		}
		amount = price
	}

	now := time.Now().UTC()
	courseID := course.ID
	order := &model.Order{
		ID:       uuid.NewString(),
		UserID:   user.ID,
		CourseID: &courseID,
		Type:     model.OrderTypeOneTime,
		Status:   model.OrderStatusPending,
		Amount:   money.Canonical(amount, currency),
		Currency: string(currency),
	}

	meta := model.OrderMetadata{
		Provider:   string(in.Provider),
		CourseID:   course.ID,
		CohortCode: cohort,
		Locale:     in.Locale,
		Extra:      in.Metadata,
	}

	var draft *model.Subscription
	if plan != nil {
		interval := plan.Interval()
		draft = newDraftSubscription(user.ID, plan, in.Provider, cohort, now)
		order.Type = model.OrderTypeSubscription
		order.SubscriptionID = &draft.ID
		meta.SubscriptionPlanID = plan.ID
		meta.SubscriptionInterval = &interval
		meta.TrialDays = plan.TrialDays
	}
	order.Metadata = datatypes.NewJSONType(meta)

	draftCreated := false
	err = u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if draft != nil {
			if err := u.subscriptions.Create(ctx, draft); err != nil {
				return err
			}
			draftCreated = true
		}
		if err := u.orders.Create(ctx, order); err != nil {
			return err
		}
		return u.enrollments.UpsertPaused(ctx, user.ID, course.ID, order.ID)
	})
	if err != nil {
		if draftCreated {
			u.discardDraftSubscription(ctx, draft.ID)
		}
		return nil, apperrors.Wrap(err, "failed to create order")
	}

	u.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("course_id", course.ID),
		zap.String("type", string(order.Type)),
		zap.String("amount", money.Format(order.Amount, currency)),
		zap.String("currency", order.Currency))

	return order, nil
}

// newDraftSubscription builds the subscription created ahead of the order:
// trialing through the trial when the plan has one, else incomplete.
func newDraftSubscription(userID string, plan *model.SubscriptionPlan, providerType model.ProviderType, cohort string, now time.Time) *model.Subscription {
	interval := plan.Interval()
	sub := &model.Subscription{
		ID:       uuid.NewString(),
		UserID:   userID,
		PlanID:   plan.ID,
		Provider: providerType,
		Status:   model.SubscriptionStatusIncomplete,
		Metadata: datatypes.NewJSONType(model.SubscriptionMetadata{
			CohortCode: cohort,
			Interval:   &interval,
			TrialDays:  plan.TrialDays,
		}),
	}
	if sub.Provider == "" {
		sub.Provider = model.ProviderManual
	}

	if plan.TrialDays > 0 {
		start := now
		end := now.AddDate(0, 0, plan.TrialDays)
		sub.Status = model.SubscriptionStatusTrialing
		sub.CurrentPeriodStart = &start
		sub.CurrentPeriodEnd = &end
	}
	return sub
}

// discardDraftSubscription deletes a draft left behind by a failed order
// write. It is a no-op when the transaction already rolled the draft back.
// Its own failure is logged and never replaces the original error.
func (u *OrderUsecase) discardDraftSubscription(ctx context.Context, subscriptionID string) {
	if err := u.subscriptions.Delete(ctx, subscriptionID); err != nil {
		u.logger.Error("Failed to discard draft subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return
	}
	u.logger.Info("Discarded draft subscription after failed order",
		zap.String("subscription_id", subscriptionID))
}

// GetOrder returns the order with its subscription and payments.
func (u *OrderUsecase) GetOrder(ctx context.Context, id string) (*entity.OrderView, error) {
	order, err := u.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load order")
	}
	if order == nil {
		return nil, apperrors.NotFound("order %s not found", id)
	}
	return loadOrderView(ctx, u.subscriptions, u.payments, order)
}

// loadOrderView projects order with its subscription and payments.
func loadOrderView(ctx context.Context, subscriptions repository.SubscriptionRepository, payments repository.PaymentRepository, order *model.Order) (*entity.OrderView, error) {
	var sub *model.Subscription
	if order.SubscriptionID != nil {
		var err error
		sub, err = subscriptions.GetByID(ctx, *order.SubscriptionID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to load subscription")
		}
	}

	list, err := payments.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load payments")
	}

	view := entity.NewOrderView(order, sub, list)
	return &view, nil
}

// ListOrders pages a user's orders newest first.
func (u *OrderUsecase) ListOrders(ctx context.Context, userID, cursor string, take int) (*entity.OrderPage, error) {
	if take <= 0 {
		take = entity.DefaultOrderPageSize
	}
	if take > entity.MaxOrderPageSize {
		take = entity.MaxOrderPageSize
	}

	orders, err := u.orders.ListByUser(ctx, userID, cursor, take+1)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list orders")
	}

	page := &entity.OrderPage{Items: make([]entity.OrderView, 0, len(orders))}
	if len(orders) > take {
		orders = orders[:take]
		page.NextCursor = orders[len(orders)-1].ID
	}
	for _, order := range orders {
		page.Items = append(page.Items, entity.NewOrderView(order, nil, nil))
	}
	return page, nil
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Radamanths/Irina-online-school-sub000/internal/config"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/provider"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

// Checkout locales.
const (
	LocaleRU = "ru"
	LocaleEN = "en"
)

// CheckoutInput starts a purchase.
type CheckoutInput struct {
	UserID             string
	CourseID           string
	SubscriptionPlanID string
	Provider           string
	Currency           string
	Locale             string
	Email              string
	Metadata           map[string]string
}

// PaymentLinkInput reopens payment for an existing order.
type PaymentLinkInput struct {
	Provider string
	Locale   string
}

// CheckoutUsecase opens provider sessions for new and unpaid orders.
type CheckoutUsecase struct {
	orderUsecase    *OrderUsecase
	tx              repository.TxManager
	orders          repository.OrderRepository
	payments        repository.PaymentRepository
	providers       ProviderRegistry
	frontendURL     string
	defaultProvider model.ProviderType
	logger          *zap.Logger
}

// NewCheckoutUsecase creates a new checkout usecase instance
func NewCheckoutUsecase(
	orderUsecase *OrderUsecase,
	tx repository.TxManager,
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	providers ProviderRegistry,
	cfg config.ServiceConfig,
	logger *zap.Logger,
) *CheckoutUsecase {
	defaultProvider, ok := model.ParseProviderType(cfg.DefaultProvider)
	if !ok {
		defaultProvider = model.ProviderManual
	}
	return &CheckoutUsecase{
		orderUsecase:    orderUsecase,
		tx:              tx,
		orders:          orders,
		payments:        payments,
		providers:       providers,
		frontendURL:     strings.TrimRight(cfg.FrontendURL, "/"),
		defaultProvider: defaultProvider,
		logger:          logger,
	}
}

func (u *CheckoutUsecase) resolveProvider(name string) (model.ProviderType, error) {
	if name == "" {
		return u.defaultProvider, nil
	}
	p, ok := model.ParseProviderType(name)
	if !ok {
		return "", apperrors.BadRequest("unsupported payment provider %q", name)
	}
	return p, nil
}

// NormalizeLocale maps locale to ru or en, defaulting to ru.
func NormalizeLocale(locale string) string {
	if strings.EqualFold(strings.TrimSpace(locale), LocaleEN) {
		return LocaleEN
	}
	return LocaleRU
}

// CreateSession creates the order, opens a provider session for it and
// records the pending payment.
func (u *CheckoutUsecase) CreateSession(ctx context.Context, in CheckoutInput) (*entity.CheckoutResult, error) {
	providerType, err := u.resolveProvider(in.Provider)
	if err != nil {
		return nil, err
	}
	locale := NormalizeLocale(in.Locale)

	order, err := u.orderUsecase.CreateOrder(ctx, CreateOrderInput{
		UserID:             in.UserID,
		CourseID:           in.CourseID,
		Currency:           in.Currency,
		SubscriptionPlanID: in.SubscriptionPlanID,
		Provider:           providerType,
		Locale:             locale,
		Metadata:           in.Metadata,
	})
	if err != nil {
		return nil, err
	}

	session := u.openSession(ctx, providerType, &provider.SessionRequest{
		Order:         order,
		Locale:        locale,
		CustomerEmail: in.Email,
		Description:   fmt.Sprintf("Order %s", order.ID),
	})

	var payment *model.Payment
	err = u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		payment, err = u.pendingPayment(ctx, order, providerType, session)
		return err
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to record checkout payment")
	}

	u.logger.Info("Checkout session created",
		zap.String("order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.String("provider", string(providerType)),
		zap.Bool("simulated", session.Simulated))

	return u.result(order, payment, providerType, session, locale), nil
}

// CreatePaymentLink opens a new session for an order that is still
// awaiting payment and records it in the order's payment link history.
func (u *CheckoutUsecase) CreatePaymentLink(ctx context.Context, orderID string, in PaymentLinkInput) (*entity.CheckoutResult, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load order")
	}
	if order == nil {
		return nil, apperrors.NotFound("order %s not found", orderID)
	}
	if !order.Status.IsOpen() {
		return nil, apperrors.BadRequest("order %s is %s and cannot be paid", orderID, order.Status)
	}

	meta := order.Meta()
	name := in.Provider
	if name == "" {
		name = meta.Provider
	}
	providerType, err := u.resolveProvider(name)
	if err != nil {
		return nil, err
	}
	locale := in.Locale
	if locale == "" {
		locale = meta.Locale
	}
	locale = NormalizeLocale(locale)

	session := u.openSession(ctx, providerType, &provider.SessionRequest{
		Order:          order,
		Locale:         locale,
		Description:    fmt.Sprintf("Order %s", order.ID),
		IdempotencyKey: uuid.NewString(),
	})

	var payment *model.Payment
	var result *entity.CheckoutResult
	err = u.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := u.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if locked == nil {
			return apperrors.NotFound("order %s not found", orderID)
		}
		if !locked.Status.IsOpen() {
			return apperrors.BadRequest("order %s is %s and cannot be paid", orderID, locked.Status)
		}

		payment, err = u.pendingPayment(ctx, locked, providerType, session)
		if err != nil {
			return err
		}

		result = u.result(locked, payment, providerType, session, locale)
		locked.UpdateMeta(func(m *model.OrderMetadata) {
			m.PaymentLinks.Append(model.PaymentLinkEntry{
				ID:          uuid.NewString(),
				URL:         result.URL,
				Provider:    providerType,
				Locale:      locale,
				CreatedAt:   time.Now().UTC(),
				PaymentID:   payment.ID,
				ProviderRef: session.Reference,
				Simulated:   session.Simulated,
			})
		})
		return u.orders.Update(ctx, locked)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create payment link")
	}

	u.logger.Info("Payment link created",
		zap.String("order_id", orderID),
		zap.String("payment_id", payment.ID),
		zap.String("provider", string(providerType)))

	return result, nil
}

// openSession asks the provider for a session and degrades to a simulated
// one when the provider is unavailable.
func (u *CheckoutUsecase) openSession(ctx context.Context, providerType model.ProviderType, req *provider.SessionRequest) *provider.Session {
	p, err := u.providers.GetProvider(providerType)
	if err == nil {
		var session *provider.Session
		session, err = p.CreateSession(ctx, req)
		if err == nil {
			return session
		}
	}

	if errors.Is(err, provider.ErrNotConfigured) {
		u.logger.Info("Provider not configured, using simulated checkout",
			zap.String("provider", string(providerType)),
			zap.String("order_id", req.Order.ID))
	} else {
		u.logger.Warn("Provider session failed, using simulated checkout",
			zap.String("provider", string(providerType)),
			zap.String("order_id", req.Order.ID),
			zap.Error(err))
	}
	return provider.FallbackSession(providerType, req.Order.ID, u.frontendURL)
}

// pendingPayment records the session as a pending payment. A session whose
// reference is already stored for the order reuses that payment.
func (u *CheckoutUsecase) pendingPayment(ctx context.Context, order *model.Order, providerType model.ProviderType, session *provider.Session) (*model.Payment, error) {
	ref := session.Reference
	if ref != "" {
		existing, err := u.payments.GetByProviderRef(ctx, providerType, ref)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.OrderID != order.ID {
				return nil, apperrors.Conflict("provider reference %s belongs to another order", ref)
			}
			return existing, nil
		}
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	payment := &model.Payment{
		ID:       uuid.NewString(),
		OrderID:  order.ID,
		Provider: providerType,
		Status:   model.PaymentStatusPending,
		Amount:   order.Amount,
		Currency: order.Currency,
		Payload:  datatypes.JSON(payload),
	}
	if ref != "" {
		payment.ProviderRef = &ref
	}
	if err := u.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (u *CheckoutUsecase) result(order *model.Order, payment *model.Payment, providerType model.ProviderType, session *provider.Session, locale string) *entity.CheckoutResult {
	query := url.Values{}
	query.Set("provider", string(providerType))
	query.Set("locale", locale)

	result := &entity.CheckoutResult{
		OrderID:     order.ID,
		PaymentID:   payment.ID,
		Provider:    providerType,
		ProviderRef: session.Reference,
		Locale:      locale,
		Simulated:   session.Simulated,
	}
	if !session.Simulated && session.ConfirmationURL != "" {
		result.ProviderURL = session.ConfirmationURL
		query.Set("providerUrl", session.ConfirmationURL)
	}
	result.URL = fmt.Sprintf("%s/checkout/%s?%s", u.frontendURL, order.ID, query.Encode())
	return result
}

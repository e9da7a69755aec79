package usecase_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/config"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/provider"
	"github.com/Radamanths/Irina-online-school-sub000/internal/usecase"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

const frontendURL = "https://school.example"

func newCheckoutUsecase(f *fixture, registry providerRegistry, defaultProvider string) *usecase.CheckoutUsecase {
	return usecase.NewCheckoutUsecase(
		newOrderUsecase(f),
		fakeTx{},
		f.orders,
		f.payments,
		registry,
		config.ServiceConfig{FrontendURL: frontendURL + "/", DefaultProvider: defaultProvider},
		zap.NewNop(),
	)
}

func checkoutInput() usecase.CheckoutInput {
	return usecase.CheckoutInput{UserID: testUserID, CourseID: testCourseID, Email: "student@example.com"}
}

func TestNormalizeLocale(t *testing.T) {
	assert.Equal(t, "en", usecase.NormalizeLocale("EN"))
	assert.Equal(t, "ru", usecase.NormalizeLocale("de"))
	assert.Equal(t, "ru", usecase.NormalizeLocale(""))
}

func TestCheckoutUsecase_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("provider session", func(t *testing.T) {
		f := newFixture()
		f.seedCatalog(nil)
		stripeProvider := &MockPaymentProvider{kind: model.ProviderStripe}
		stripeProvider.On("CreateSession", mock.Anything, mock.MatchedBy(func(req *provider.SessionRequest) bool {
			return req.Locale == "en" && req.CustomerEmail == "student@example.com"
		})).Return(&provider.Session{
			Reference:       "pi_123",
			ConfirmationURL: "https://pay.example/confirm?id=pi_123",
		}, nil)
		uc := newCheckoutUsecase(f, providerRegistry{model.ProviderStripe: stripeProvider}, "stripe")

		in := checkoutInput()
		in.Locale = "en"
		result, err := uc.CreateSession(ctx, in)
		require.NoError(t, err)

		assert.Equal(t, model.ProviderStripe, result.Provider)
		assert.Equal(t, "pi_123", result.ProviderRef)
		assert.False(t, result.Simulated)
		assert.Equal(t, "https://pay.example/confirm?id=pi_123", result.ProviderURL)

		u, err := url.Parse(result.URL)
		require.NoError(t, err)
		assert.Equal(t, "/checkout/"+result.OrderID, u.Path)
		assert.Equal(t, "stripe", u.Query().Get("provider"))
		assert.Equal(t, "en", u.Query().Get("locale"))
		assert.Equal(t, "https://pay.example/confirm?id=pi_123", u.Query().Get("providerUrl"))

		payments := f.paymentsOf(result.OrderID)
		require.Len(t, payments, 1)
		assert.Equal(t, result.PaymentID, payments[0].ID)
		assert.Equal(t, model.PaymentStatusPending, payments[0].Status)
		assert.Equal(t, "pi_123", payments[0].Ref())
		stripeProvider.AssertExpectations(t)
	})

	t.Run("unconfigured provider falls back to simulated checkout", func(t *testing.T) {
		f := newFixture()
		f.seedCatalog(nil)
		yookassa := &MockPaymentProvider{kind: model.ProviderYooKassa}
		yookassa.On("CreateSession", mock.Anything, mock.Anything).Return(nil, provider.ErrNotConfigured)
		uc := newCheckoutUsecase(f, providerRegistry{model.ProviderYooKassa: yookassa}, "")

		in := checkoutInput()
		in.Provider = "yookassa"
		result, err := uc.CreateSession(ctx, in)
		require.NoError(t, err)

		assert.True(t, result.Simulated)
		assert.Equal(t, "yookassa-"+result.OrderID, result.ProviderRef)
		assert.Empty(t, result.ProviderURL)
		assert.Equal(t, frontendURL+"/checkout/"+result.OrderID+"?locale=ru&provider=yookassa", result.URL)
	})

	t.Run("provider failure falls back too", func(t *testing.T) {
		f := newFixture()
		f.seedCatalog(nil)
		stripeProvider := &MockPaymentProvider{kind: model.ProviderStripe}
		stripeProvider.On("CreateSession", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
		uc := newCheckoutUsecase(f, providerRegistry{model.ProviderStripe: stripeProvider}, "stripe")

		result, err := uc.CreateSession(ctx, checkoutInput())
		require.NoError(t, err)
		assert.True(t, result.Simulated)
		assert.Len(t, f.paymentsOf(result.OrderID), 1)
	})

	t.Run("default provider is manual", func(t *testing.T) {
		f := newFixture()
		f.seedCatalog(nil)
		uc := newCheckoutUsecase(f, providerRegistry{}, "")

		result, err := uc.CreateSession(ctx, checkoutInput())
		require.NoError(t, err)
		assert.Equal(t, model.ProviderManual, result.Provider)
		assert.Equal(t, "manual", f.order(result.OrderID).Meta().Provider)
	})

	t.Run("unknown provider", func(t *testing.T) {
		f := newFixture()
		f.seedCatalog(nil)
		uc := newCheckoutUsecase(f, providerRegistry{}, "")

		in := checkoutInput()
		in.Provider = "paypal"
		_, err := uc.CreateSession(ctx, in)
		assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.CodeOf(err))
		assert.Empty(t, f.store.orders)
	})

	t.Run("order errors pass through", func(t *testing.T) {
		f := newFixture()
		f.seedCatalog(nil)
		uc := newCheckoutUsecase(f, providerRegistry{}, "")

		in := checkoutInput()
		in.Currency = "KZT"
		_, err := uc.CreateSession(ctx, in)
		assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.CodeOf(err))
	})
}

func TestCheckoutUsecase_CreatePaymentLink(t *testing.T) {
	ctx := context.Background()

	t.Run("new session for an open order", func(t *testing.T) {
		f := newFixture()
		f.seedOrder(orderA, model.OrderTypeOneTime, model.OrderStatusRequiresAction, nil)
		stripeProvider := &MockPaymentProvider{kind: model.ProviderStripe}
		stripeProvider.On("CreateSession", mock.Anything, mock.MatchedBy(func(req *provider.SessionRequest) bool {
			return req.Order.ID == orderA && req.IdempotencyKey != "" && req.Key() != orderA
		})).Return(&provider.Session{Reference: "pi_link", ConfirmationURL: "https://pay.example/pi_link"}, nil)
		uc := newCheckoutUsecase(f, providerRegistry{model.ProviderStripe: stripeProvider}, "")

		result, err := uc.CreatePaymentLink(ctx, orderA, usecase.PaymentLinkInput{Provider: "stripe", Locale: "en"})
		require.NoError(t, err)
		assert.Equal(t, "pi_link", result.ProviderRef)

		links := f.order(orderA).Meta().PaymentLinks.Entries()
		require.Len(t, links, 1)
		assert.Equal(t, result.URL, links[0].URL)
		assert.Equal(t, result.PaymentID, links[0].PaymentID)
		assert.Equal(t, model.ProviderStripe, links[0].Provider)
		assert.Equal(t, "en", links[0].Locale)
		stripeProvider.AssertExpectations(t)
	})

	t.Run("repeated simulated link reuses the payment", func(t *testing.T) {
		f := newFixture()
		f.seedOrder(orderA, model.OrderTypeOneTime, model.OrderStatusPending, nil)
		uc := newCheckoutUsecase(f, providerRegistry{}, "")

		first, err := uc.CreatePaymentLink(ctx, orderA, usecase.PaymentLinkInput{})
		require.NoError(t, err)
		second, err := uc.CreatePaymentLink(ctx, orderA, usecase.PaymentLinkInput{})
		require.NoError(t, err)

		assert.Equal(t, first.PaymentID, second.PaymentID)
		assert.Len(t, f.paymentsOf(orderA), 1)
		assert.Equal(t, 2, f.order(orderA).Meta().PaymentLinks.Len())
	})

	t.Run("paid order", func(t *testing.T) {
		f := newFixture()
		f.seedOrder(orderA, model.OrderTypeOneTime, model.OrderStatusCompleted, nil)
		uc := newCheckoutUsecase(f, providerRegistry{}, "")

		_, err := uc.CreatePaymentLink(ctx, orderA, usecase.PaymentLinkInput{})
		assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.CodeOf(err))
	})

	t.Run("missing order", func(t *testing.T) {
		uc := newCheckoutUsecase(newFixture(), providerRegistry{}, "")

		_, err := uc.CreatePaymentLink(ctx, orderA, usecase.PaymentLinkInput{})
		assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
	})
}

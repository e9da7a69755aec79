package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/usecase"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
	"github.com/Radamanths/Irina-online-school-sub000/pkg/logger"
)

type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) CreateSession(ctx context.Context, in usecase.CheckoutInput) (*entity.CheckoutResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CheckoutResult), args.Error(1)
}

func (m *MockCheckoutService) CreatePaymentLink(ctx context.Context, orderID string, in usecase.PaymentLinkInput) (*entity.CheckoutResult, error) {
	args := m.Called(ctx, orderID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CheckoutResult), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetOrder(ctx context.Context, id string) (*entity.OrderView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OrderView), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, userID, cursor string, take int) (*entity.OrderPage, error) {
	args := m.Called(ctx, userID, cursor, take)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OrderPage), args.Error(1)
}

func (m *MockOrderService) RequestAction(ctx context.Context, orderID string, req usecase.SelfServiceRequest) (*entity.OrderView, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OrderView), args.Error(1)
}

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) HandleWebhook(ctx context.Context, providerType model.ProviderType, body []byte, headers http.Header) (*usecase.ApplyResult, error) {
	args := m.Called(ctx, providerType, body, headers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ApplyResult), args.Error(1)
}

type MockAdminServices struct {
	mock.Mock
}

func (m *MockAdminServices) ProcessReminders(ctx context.Context, limit int, dryRun bool) (*entity.DunningSummary, error) {
	args := m.Called(ctx, limit, dryRun)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DunningSummary), args.Error(1)
}

func (m *MockAdminServices) RefundPayment(ctx context.Context, paymentID, reason string) (*entity.RefundResult, error) {
	args := m.Called(ctx, paymentID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RefundResult), args.Error(1)
}

func (m *MockAdminServices) RefundOrder(ctx context.Context, orderID, reason string) (*entity.RefundResult, error) {
	args := m.Called(ctx, orderID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RefundResult), args.Error(1)
}

func (m *MockAdminServices) ListRecentPayments(ctx context.Context, limit int) ([]entity.PaymentView, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]entity.PaymentView), args.Error(1)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	logger.WithEchoLogger(e, zap.NewNop())
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const (
	userID   = "7b0c2a56-3d1f-4a0e-9a61-0f4a6f2c1a01"
	courseID = "2f6b8c1e-5a4d-4b7e-8e0f-9c3d2a1b0c01"
	orderID  = "11111111-1111-4111-8111-111111111111"
)

func TestCheckoutHandler_CreateCheckout(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockCheckoutService)
		e := newEcho()
		e.POST("/checkout", NewCheckoutHandler(zap.NewNop(), svc).CreateCheckout)

		svc.On("CreateSession", mock.Anything, usecase.CheckoutInput{
			UserID:   userID,
			CourseID: courseID,
			Provider: "stripe",
			Locale:   "en",
		}).Return(&entity.CheckoutResult{OrderID: orderID, URL: "https://school.example/checkout/" + orderID}, nil)

		rec := do(e, http.MethodPost, "/checkout",
			`{"userId":"`+userID+`","courseId":"`+courseID+`","provider":"stripe","locale":"en"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), orderID)
		svc.AssertExpectations(t)
	})

	t.Run("validation failure", func(t *testing.T) {
		svc := new(MockCheckoutService)
		e := newEcho()
		e.POST("/checkout", NewCheckoutHandler(zap.NewNop(), svc).CreateCheckout)

		rec := do(e, http.MethodPost, "/checkout", `{"userId":"not-a-uuid","courseId":"`+courseID+`","provider":"paypal"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
		svc.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})

	t.Run("use case error is mapped", func(t *testing.T) {
		svc := new(MockCheckoutService)
		e := newEcho()
		e.POST("/checkout", NewCheckoutHandler(zap.NewNop(), svc).CreateCheckout)

		svc.On("CreateSession", mock.Anything, mock.Anything).Return(nil, apperrors.NotFound("course %s not found", courseID))

		rec := do(e, http.MethodPost, "/checkout", `{"userId":"`+userID+`","courseId":"`+courseID+`"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "NOT_FOUND")
	})
}

func TestOrderHandler(t *testing.T) {
	setup := func() (*echo.Echo, *MockOrderService) {
		svc := new(MockOrderService)
		h := NewOrderHandler(zap.NewNop(), svc, svc)
		e := newEcho()
		e.GET("/orders/:id", h.GetOrder)
		e.GET("/users/:userId/orders", h.ListUserOrders)
		e.POST("/orders/:id/self-service", h.RequestSelfService)
		return e, svc
	}

	t.Run("get order", func(t *testing.T) {
		e, svc := setup()
		svc.On("GetOrder", mock.Anything, orderID).Return(&entity.OrderView{ID: orderID, Status: model.OrderStatusCompleted}, nil)

		rec := do(e, http.MethodGet, "/orders/"+orderID, "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"completed"`)
	})

	t.Run("list orders passes paging", func(t *testing.T) {
		e, svc := setup()
		svc.On("ListOrders", mock.Anything, userID, "abc", 5).Return(&entity.OrderPage{Items: []entity.OrderView{}}, nil)

		rec := do(e, http.MethodGet, "/users/"+userID+"/orders?cursor=abc&take=5", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("invalid take", func(t *testing.T) {
		e, _ := setup()

		rec := do(e, http.MethodGet, "/users/"+userID+"/orders?take=zero", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("self-service forbidden", func(t *testing.T) {
		e, svc := setup()
		svc.On("RequestAction", mock.Anything, orderID, usecase.SelfServiceRequest{
			UserID: userID,
			Action: model.SelfServiceCancel,
		}).Return(nil, apperrors.Forbidden("order does not belong to user"))

		rec := do(e, http.MethodPost, "/orders/"+orderID+"/self-service", `{"userId":"`+userID+`","action":"cancel"}`)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("self-service validation reason reaches the client", func(t *testing.T) {
		e, svc := setup()
		reason := apperrors.BadRequest("order %s is already paid, request a refund instead", orderID)
		svc.On("RequestAction", mock.Anything, orderID, usecase.SelfServiceRequest{
			UserID: userID,
			Action: model.SelfServiceCancel,
		}).Return(nil, apperrors.Wrap(reason, "self-service request failed"))

		rec := do(e, http.MethodPost, "/orders/"+orderID+"/self-service", `{"userId":"`+userID+`","action":"cancel"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "request a refund instead")
		assert.NotContains(t, rec.Body.String(), "self-service request failed")
	})

	t.Run("self-service unknown action", func(t *testing.T) {
		e, _ := setup()

		rec := do(e, http.MethodPost, "/orders/"+orderID+"/self-service", `{"userId":"`+userID+`","action":"pause"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWebhookHandler_HandleWebhook(t *testing.T) {
	setup := func() (*echo.Echo, *MockWebhookProcessor) {
		processor := new(MockWebhookProcessor)
		e := newEcho()
		e.POST("/webhooks/:provider", NewWebhookHandler(zap.NewNop(), processor).HandleWebhook)
		return e, processor
	}
	body := `{"type":"payment_intent.succeeded"}`

	t.Run("applied", func(t *testing.T) {
		e, processor := setup()
		processor.On("HandleWebhook", mock.Anything, model.ProviderStripe, []byte(body), mock.Anything).
			Return(&usecase.ApplyResult{OrderID: orderID, OrderStatus: model.OrderStatusCompleted, Changed: true}, nil)

		rec := do(e, http.MethodPost, "/webhooks/stripe", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"orderStatus":"completed"`)
		processor.AssertExpectations(t)
	})

	t.Run("discarded is acknowledged", func(t *testing.T) {
		e, processor := setup()
		processor.On("HandleWebhook", mock.Anything, model.ProviderYooKassa, mock.Anything, mock.Anything).
			Return(&usecase.ApplyResult{Discarded: true}, nil)

		rec := do(e, http.MethodPost, "/webhooks/yookassa", body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"discarded":true`)
	})

	t.Run("bad signature", func(t *testing.T) {
		e, processor := setup()
		processor.On("HandleWebhook", mock.Anything, model.ProviderCloudPayments, mock.Anything, mock.Anything).
			Return(nil, apperrors.NewAppError(apperrors.ErrInvalidArgument, "webhook signature verification failed", nil))

		rec := do(e, http.MethodPost, "/webhooks/cloudpayments", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown provider", func(t *testing.T) {
		e, processor := setup()

		rec := do(e, http.MethodPost, "/webhooks/paypal", body)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		processor.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAdminHandler(t *testing.T) {
	setup := func() (*echo.Echo, *MockAdminServices) {
		svc := new(MockAdminServices)
		h := NewAdminHandler(zap.NewNop(), svc, svc)
		e := newEcho()
		e.POST("/dunning/run", h.RunDunning)
		e.POST("/payments/:id/refund", h.RefundPayment)
		e.POST("/orders/:id/refund", h.RefundOrder)
		e.GET("/payments", h.ListPayments)
		return e, svc
	}

	t.Run("dunning run", func(t *testing.T) {
		e, svc := setup()
		svc.On("ProcessReminders", mock.Anything, 10, true).Return(&entity.DunningSummary{Evaluated: 2, DryRun: true}, nil)

		rec := do(e, http.MethodPost, "/dunning/run", `{"limit":10,"dryRun":true}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"evaluated":2`)
		svc.AssertExpectations(t)
	})

	t.Run("dunning run without body", func(t *testing.T) {
		e, svc := setup()
		svc.On("ProcessReminders", mock.Anything, 0, false).Return(&entity.DunningSummary{}, nil)

		rec := do(e, http.MethodPost, "/dunning/run", "")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("refund payment", func(t *testing.T) {
		e, svc := setup()
		svc.On("RefundPayment", mock.Anything, "pay-1", "duplicate").
			Return(&entity.RefundResult{OrderID: orderID, PaymentIDs: []string{"pay-1"}}, nil)

		rec := do(e, http.MethodPost, "/payments/pay-1/refund", `{"reason":"duplicate"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "pay-1")
	})

	t.Run("refund order without payments", func(t *testing.T) {
		e, svc := setup()
		svc.On("RefundOrder", mock.Anything, orderID, "").Return(nil, apperrors.BadRequest("order has no payments to refund"))

		rec := do(e, http.MethodPost, "/orders/"+orderID+"/refund", `{}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list payments", func(t *testing.T) {
		e, svc := setup()
		svc.On("ListRecentPayments", mock.Anything, 50).Return([]entity.PaymentView{{ID: "pay-1"}}, nil)

		rec := do(e, http.MethodGet, "/payments?limit=50", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"items"`)
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		e, svc := setup()
		svc.On("ListRecentPayments", mock.Anything, 0).Return([]entity.PaymentView(nil), apperrors.Wrap(assert.AnError, "failed to list payments"))

		rec := do(e, http.MethodGet, "/payments", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	})
}

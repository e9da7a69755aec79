package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/usecase"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

// CheckoutService opens checkout sessions.
type CheckoutService interface {
	CreateSession(ctx context.Context, in usecase.CheckoutInput) (*entity.CheckoutResult, error)
	CreatePaymentLink(ctx context.Context, orderID string, in usecase.PaymentLinkInput) (*entity.CheckoutResult, error)
}

type CheckoutHandler struct {
	logger   *zap.Logger
	checkout CheckoutService
}

// NewCheckoutHandler creates a new checkout handler instance
func NewCheckoutHandler(logger *zap.Logger, checkout CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		logger:   logger,
		checkout: checkout,
	}
}

type CreateCheckoutRequest struct {
	UserID             string            `json:"userId" validate:"required,uuid"`
	CourseID           string            `json:"courseId" validate:"required,uuid"`
	SubscriptionPlanID string            `json:"subscriptionPlanId" validate:"omitempty,uuid"`
	Provider           string            `json:"provider" validate:"omitempty,oneof=manual stripe yookassa cloudpayments"`
	Currency           string            `json:"currency" validate:"omitempty,len=3"`
	Locale             string            `json:"locale" validate:"omitempty,oneof=ru en"`
	Email              string            `json:"email" validate:"omitempty,email"`
	Metadata           map[string]string `json:"metadata"`
}

// CreateCheckout handles POST /api/v1/checkout
func (h *CheckoutHandler) CreateCheckout(c echo.Context) error {
	var req CreateCheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.checkout.CreateSession(c.Request().Context(), usecase.CheckoutInput{
		UserID:             req.UserID,
		CourseID:           req.CourseID,
		SubscriptionPlanID: req.SubscriptionPlanID,
		Provider:           req.Provider,
		Currency:           req.Currency,
		Locale:             req.Locale,
		Email:              req.Email,
		Metadata:           req.Metadata,
	})
	if err != nil {
		apperrors.LogError(h.logger, err, "Checkout failed",
			zap.String("user_id", req.UserID),
			zap.String("course_id", req.CourseID))
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, result)
}

type CreatePaymentLinkRequest struct {
	Provider string `json:"provider" validate:"omitempty,oneof=manual stripe yookassa cloudpayments"`
	Locale   string `json:"locale" validate:"omitempty,oneof=ru en"`
}

// CreatePaymentLink handles POST /api/v1/admin/orders/:id/payment-link
func (h *CheckoutHandler) CreatePaymentLink(c echo.Context) error {
	var req CreatePaymentLinkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	orderID := c.Param("id")
	result, err := h.checkout.CreatePaymentLink(c.Request().Context(), orderID, usecase.PaymentLinkInput{
		Provider: req.Provider,
		Locale:   req.Locale,
	})
	if err != nil {
		apperrors.LogError(h.logger, err, "Payment link creation failed", zap.String("order_id", orderID))
		return apperrors.ToHTTPError(err)
	}

	return c.JSON(http.StatusCreated, result)
}

package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/middleware/auth"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

// DunningRunner runs one dunning batch.
type DunningRunner interface {
	ProcessReminders(ctx context.Context, limit int, dryRun bool) (*entity.DunningSummary, error)
}

// RefundService issues operator refunds and lists payments.
type RefundService interface {
	RefundPayment(ctx context.Context, paymentID, reason string) (*entity.RefundResult, error)
	RefundOrder(ctx context.Context, orderID, reason string) (*entity.RefundResult, error)
	ListRecentPayments(ctx context.Context, limit int) ([]entity.PaymentView, error)
}

// AdminHandler serves operator endpoints
type AdminHandler struct {
	logger  *zap.Logger
	dunning DunningRunner
	refunds RefundService
}

// NewAdminHandler creates a new admin handler instance
func NewAdminHandler(logger *zap.Logger, dunning DunningRunner, refunds RefundService) *AdminHandler {
	return &AdminHandler{
		logger:  logger,
		dunning: dunning,
		refunds: refunds,
	}
}

type RunDunningRequest struct {
	Limit  int  `json:"limit" validate:"min=0"`
	DryRun bool `json:"dryRun"`
}

// RunDunning handles POST /api/v1/admin/dunning/run
func (h *AdminHandler) RunDunning(c echo.Context) error {
	var req RunDunningRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	summary, err := h.dunning.ProcessReminders(c.Request().Context(), req.Limit, req.DryRun)
	if err != nil {
		apperrors.LogError(h.logger, err, "Dunning run failed", h.operator(c))
		return apperrors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// RefundPayment handles POST /api/v1/admin/payments/:id/refund
func (h *AdminHandler) RefundPayment(c echo.Context) error {
	var req RefundRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	paymentID := c.Param("id")
	result, err := h.refunds.RefundPayment(c.Request().Context(), paymentID, req.Reason)
	if err != nil {
		apperrors.LogError(h.logger, err, "Payment refund failed", zap.String("payment_id", paymentID), h.operator(c))
		return apperrors.ToHTTPError(err)
	}

	h.logger.Info("Payment refunded by operator", zap.String("payment_id", paymentID), h.operator(c))
	return c.JSON(http.StatusOK, result)
}

// RefundOrder handles POST /api/v1/admin/orders/:id/refund
func (h *AdminHandler) RefundOrder(c echo.Context) error {
	var req RefundRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	orderID := c.Param("id")
	result, err := h.refunds.RefundOrder(c.Request().Context(), orderID, req.Reason)
	if err != nil {
		apperrors.LogError(h.logger, err, "Order refund failed", zap.String("order_id", orderID), h.operator(c))
		return apperrors.ToHTTPError(err)
	}

	h.logger.Info("Order refunded by operator", zap.String("order_id", orderID), h.operator(c))
	return c.JSON(http.StatusOK, result)
}

// ListPayments handles GET /api/v1/admin/payments
func (h *AdminHandler) ListPayments(c echo.Context) error {
	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid limit parameter",
				"code":  apperrors.ErrInvalidArgument,
			})
		}
		limit = parsed
	}

	payments, err := h.refunds.ListRecentPayments(c.Request().Context(), limit)
	if err != nil {
		apperrors.LogError(h.logger, err, "Failed to list payments")
		return apperrors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": payments})
}

func (h *AdminHandler) operator(c echo.Context) zap.Field {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return zap.Skip()
	}
	return zap.String("operator_id", user.UserID)
}

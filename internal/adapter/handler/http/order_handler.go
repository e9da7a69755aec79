package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/usecase"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

// OrderService reads orders.
type OrderService interface {
	GetOrder(ctx context.Context, id string) (*entity.OrderView, error)
	ListOrders(ctx context.Context, userID, cursor string, take int) (*entity.OrderPage, error)
}

// SelfService applies customer cancel and refund requests.
type SelfService interface {
	RequestAction(ctx context.Context, orderID string, req usecase.SelfServiceRequest) (*entity.OrderView, error)
}

// OrderHandler serves order reads and self-service requests
type OrderHandler struct {
	logger      *zap.Logger
	orders      OrderService
	selfService SelfService
}

// NewOrderHandler creates a new order handler instance
func NewOrderHandler(logger *zap.Logger, orders OrderService, selfService SelfService) *OrderHandler {
	return &OrderHandler{
		logger:      logger,
		orders:      orders,
		selfService: selfService,
	}
}

// GetOrder handles GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	id := c.Param("id")
	view, err := h.orders.GetOrder(c.Request().Context(), id)
	if err != nil {
		apperrors.LogError(h.logger, err, "Failed to get order", zap.String("order_id", id))
		return apperrors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// ListUserOrders handles GET /api/v1/users/:userId/orders
func (h *OrderHandler) ListUserOrders(c echo.Context) error {
	userID := c.Param("userId")

	take := 0
	if takeStr := c.QueryParam("take"); takeStr != "" {
		parsed, err := strconv.Atoi(takeStr)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "invalid take parameter",
				"code":  apperrors.ErrInvalidArgument,
			})
		}
		take = parsed
	}

	page, err := h.orders.ListOrders(c.Request().Context(), userID, c.QueryParam("cursor"), take)
	if err != nil {
		apperrors.LogError(h.logger, err, "Failed to list orders", zap.String("user_id", userID))
		return apperrors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, page)
}

type SelfServiceRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Action  string `json:"action" validate:"required,oneof=cancel refund"`
	Reason  string `json:"reason" validate:"max=500"`
	Channel string `json:"channel" validate:"max=50"`
}

// RequestSelfService handles POST /api/v1/orders/:id/self-service
func (h *OrderHandler) RequestSelfService(c echo.Context) error {
	var req SelfServiceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	orderID := c.Param("id")
	view, err := h.selfService.RequestAction(c.Request().Context(), orderID, usecase.SelfServiceRequest{
		UserID:  req.UserID,
		Action:  model.SelfServiceAction(req.Action),
		Reason:  req.Reason,
		Channel: req.Channel,
	})
	if err != nil {
		apperrors.LogError(h.logger, err, "Self-service request failed",
			zap.String("order_id", orderID),
			zap.String("action", req.Action))
		return apperrors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, view)
}

package http

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/usecase"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

// maxWebhookBody caps the notification body read into memory.
const maxWebhookBody = 1 << 20

// WebhookProcessor applies provider notifications.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, providerType model.ProviderType, body []byte, headers http.Header) (*usecase.ApplyResult, error)
}

type WebhookHandler struct {
	logger     *zap.Logger
	reconciler WebhookProcessor
}

// NewWebhookHandler creates a new webhook handler instance
func NewWebhookHandler(logger *zap.Logger, reconciler WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{
		logger:     logger,
		reconciler: reconciler,
	}
}

// HandleWebhook handles POST /api/v1/webhooks/:provider. Discarded
// notifications are acknowledged with 200 so providers stop retrying.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	providerType, ok := model.ParseProviderType(c.Param("provider"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "unknown payment provider",
			"code":  apperrors.ErrNotFound,
		})
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.String("provider", string(providerType)), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "failed to read request body",
			"code":  apperrors.ErrInvalidArgument,
		})
	}

	result, err := h.reconciler.HandleWebhook(c.Request().Context(), providerType, body, c.Request().Header)
	if err != nil {
		apperrors.LogError(h.logger, err, "Webhook processing failed", zap.String("provider", string(providerType)))
		return apperrors.ToHTTPError(err)
	}

	h.logger.Info("Webhook processed",
		zap.String("provider", string(providerType)),
		zap.String("order_id", result.OrderID),
		zap.Bool("discarded", result.Discarded),
		zap.Bool("changed", result.Changed))

	return c.JSON(http.StatusOK, echo.Map{
		"received":    true,
		"discarded":   result.Discarded,
		"orderStatus": result.OrderStatus,
	})
}

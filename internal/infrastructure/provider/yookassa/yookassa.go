package yookassa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/money"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/provider"
)

const defaultBaseURL = "https://api.yookassa.ru/v3"

// Options configures the YooKassa adapter.
type Options struct {
	ShopID    string
	SecretKey string
	// ReturnURL overrides the redirect target after payment.
	ReturnURL   string
	BaseURL     string
	FrontendURL string
	HTTPClient  *http.Client
}

// YooKassaProvider creates YooKassa payments and parses their notifications.
type YooKassaProvider struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
}

// NewYooKassaProvider creates a new YooKassa provider
func NewYooKassaProvider(opts Options, logger *zap.Logger) *YooKassaProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &YooKassaProvider{opts: opts, client: client, logger: logger}
}

func (y *YooKassaProvider) Type() model.ProviderType {
	return model.ProviderYooKassa
}

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type createPaymentRequest struct {
	Amount       amount            `json:"amount"`
	Capture      bool              `json:"capture"`
	Description  string            `json:"description,omitempty"`
	Confirmation confirmation      `json:"confirmation"`
	Metadata     map[string]string `json:"metadata"`
}

type confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type paymentResponse struct {
	ID           string       `json:"id"`
	Status       string       `json:"status"`
	Confirmation confirmation `json:"confirmation"`
}

// CreateSession creates a redirect payment
// POST /v3/payments
func (y *YooKassaProvider) CreateSession(ctx context.Context, req *provider.SessionRequest) (*provider.Session, error) {
	if y.opts.ShopID == "" || y.opts.SecretKey == "" {
		return nil, provider.ErrNotConfigured
	}

	order := req.Order
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = y.opts.ReturnURL
	}
	if returnURL == "" {
		returnURL = fmt.Sprintf("%s/checkout/%s?locale=%s&provider=%s", y.opts.FrontendURL, order.ID, req.Locale, model.ProviderYooKassa)
	}

	metadata := map[string]string{
		"orderId": order.ID,
		"userId":  order.UserID,
	}
	if order.CourseID != nil {
		metadata["courseId"] = *order.CourseID
	}

	body := createPaymentRequest{
		Amount: amount{
			Value:    money.Format(order.Amount, money.Currency(order.Currency)),
			Currency: order.Currency,
		},
		Capture:      true,
		Description:  req.Description,
		Confirmation: confirmation{Type: "redirect", ReturnURL: returnURL},
		Metadata:     metadata,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    provider.CodeMarshal,
			Message: "Failed to prepare request",
			Details: err.Error(),
			Err:     err,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, y.opts.BaseURL+"/payments", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    provider.CodeRequest,
			Message: "Failed to create request",
			Details: err.Error(),
			Err:     err,
		}
	}

	auth := base64.StdEncoding.EncodeToString([]byte(y.opts.ShopID + ":" + y.opts.SecretKey))
	httpReq.Header.Set("Authorization", "Basic "+auth)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", req.Key())

	resp, err := y.client.Do(httpReq)
	if err != nil {
		y.logger.Error("YooKassaProvider: payment request failed", zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    provider.CodeAPI,
			Message: "YooKassa API request failed",
			Details: err.Error(),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    provider.CodeResponse,
			Message: "Failed to read response",
			Details: err.Error(),
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		y.logger.Error("YooKassaProvider: payment creation rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))
		return nil, &provider.ProviderError{
			Code:    provider.CodeAPI,
			Message: fmt.Sprintf("YooKassa API returned %d", resp.StatusCode),
			Details: string(respBody),
		}
	}

	var result paymentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    provider.CodeParse,
			Message: "Failed to parse response",
			Details: err.Error(),
			Err:     err,
		}
	}
	if result.ID == "" {
		return nil, &provider.ProviderError{
			Code:    provider.CodeParse,
			Message: "YooKassa response has no payment id",
			Details: string(respBody),
		}
	}

	y.logger.Info("YooKassaProvider: payment created",
		zap.String("order_id", order.ID),
		zap.String("payment_id", result.ID))

	return &provider.Session{
		Reference:       result.ID,
		ConfirmationURL: result.Confirmation.ConfirmationURL,
		ProviderData: map[string]interface{}{
			"id":     result.ID,
			"status": result.Status,
		},
	}, nil
}

type notification struct {
	Event  string `json:"event"`
	Object *struct {
		ID       string                 `json:"id"`
		Status   string                 `json:"status"`
		Amount   *amount                `json:"amount"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"object"`
}

// ParseWebhook normalizes a YooKassa notification.
func (y *YooKassaProvider) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*provider.NormalizedEvent, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err)
	}
	if n.Object == nil {
		return nil, fmt.Errorf("%w: yookassa notification without object", provider.ErrMalformedPayload)
	}

	orderID := provider.OrderIDFrom(n.Object.Metadata)
	if orderID == "" {
		return nil, provider.ErrMissingOrderReference
	}

	event := &provider.NormalizedEvent{
		Provider:    model.ProviderYooKassa,
		OrderID:     orderID,
		ProviderRef: n.Object.ID,
		EventType:   n.Event,
		Status:      mapStatus(n.Object.Status),
		Payload:     payload,
	}

	if n.Object.Amount != nil && n.Object.Amount.Value != "" {
		currency := money.ParseCurrency(n.Object.Amount.Currency)
		value, err := money.ParseDecimal(n.Object.Amount.Value, currency)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err)
		}
		event.Amount = &value
		event.Currency = strings.ToUpper(string(currency))
	}

	return event, nil
}

func mapStatus(status string) model.PaymentStatus {
	switch status {
	case "succeeded":
		return model.PaymentStatusSucceeded
	case "canceled":
		return model.PaymentStatusFailed
	case "refunded":
		return model.PaymentStatusRefunded
	default:
		return model.PaymentStatusPending
	}
}

package cloudpayments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/money"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/provider"
)

const defaultBaseURL = "https://api.cloudpayments.ru"

// Notification signature headers. CloudPayments sends both.
const (
	HMACHeader    = "Content-HMAC"
	AltHMACHeader = "X-Content-HMAC"
)

// Options configures the CloudPayments adapter.
type Options struct {
	PublicID   string
	APISecret  string
	BaseURL    string
	HTTPClient *http.Client
}

// CloudPaymentsProvider issues invoices and parses JSON notifications.
type CloudPaymentsProvider struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
}

// NewCloudPaymentsProvider creates a new CloudPayments provider
func NewCloudPaymentsProvider(opts Options, logger *zap.Logger) *CloudPaymentsProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &CloudPaymentsProvider{opts: opts, client: client, logger: logger}
}

func (c *CloudPaymentsProvider) Type() model.ProviderType {
	return model.ProviderCloudPayments
}

type invoiceRequest struct {
	Amount      json.Number       `json:"Amount"`
	Currency    string            `json:"Currency"`
	Description string            `json:"Description,omitempty"`
	AccountID   string            `json:"AccountId"`
	Email       string            `json:"Email,omitempty"`
	SendEmail   bool              `json:"SendEmail"`
	JSONData    map[string]string `json:"JsonData"`
}

type invoiceResponse struct {
	Success bool   `json:"Success"`
	Message string `json:"Message"`
	Model   *struct {
		ID  json.RawMessage `json:"Id"`
		URL string          `json:"Url"`
	} `json:"Model"`
}

// CreateSession issues an invoice link
// POST /invoices/create
func (c *CloudPaymentsProvider) CreateSession(ctx context.Context, req *provider.SessionRequest) (*provider.Session, error) {
	if c.opts.PublicID == "" || c.opts.APISecret == "" {
		return nil, provider.ErrNotConfigured
	}

	order := req.Order
	jsonData := map[string]string{
		"orderId": order.ID,
		"locale":  req.Locale,
	}
	if order.CourseID != nil {
		jsonData["courseId"] = *order.CourseID
	}

	body := invoiceRequest{
		Amount:      json.Number(money.Format(order.Amount, money.Currency(order.Currency))),
		Currency:    order.Currency,
		Description: req.Description,
		AccountID:   order.UserID,
		Email:       req.CustomerEmail,
		SendEmail:   req.CustomerEmail != "",
		JSONData:    jsonData,
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

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/invoices/create", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    provider.CodeRequest,
			Message: "Failed to create request",
			Details: err.Error(),
			Err:     err,
		}
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.opts.PublicID + ":" + c.opts.APISecret))
	httpReq.Header.Set("Authorization", "Basic "+auth)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", req.Key())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("CloudPaymentsProvider: invoice request failed", zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    provider.CodeAPI,
			Message: "CloudPayments API request failed",
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

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("CloudPaymentsProvider: invoice creation rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))
		return nil, &provider.ProviderError{
			Code:    provider.CodeAPI,
			Message: fmt.Sprintf("CloudPayments API returned %d", resp.StatusCode),
			Details: string(respBody),
		}
	}

	var result invoiceResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    provider.CodeParse,
			Message: "Failed to parse response",
			Details: err.Error(),
			Err:     err,
		}
	}
	if !result.Success || result.Model == nil {
		message := result.Message
		if message == "" {
			message = "CloudPayments invoice creation failed"
		}
		return nil, &provider.ProviderError{
			Code:    provider.CodeAPI,
			Message: message,
			Details: string(respBody),
		}
	}

	id := rawID(result.Model.ID)
	if id == "" {
		return nil, &provider.ProviderError{
			Code:    provider.CodeParse,
			Message: "CloudPayments response has no invoice id",
			Details: string(respBody),
		}
	}

	c.logger.Info("CloudPaymentsProvider: invoice created",
		zap.String("order_id", order.ID),
		zap.String("invoice_id", id))

	return &provider.Session{
		Reference:       id,
		ConfirmationURL: result.Model.URL,
		ProviderData: map[string]interface{}{
			"id":  id,
			"url": result.Model.URL,
		},
	}, nil
}

type notification struct {
	TransactionID json.RawMessage  `json:"TransactionId"`
	InvoiceID     string           `json:"InvoiceId"`
	Amount        *decimal.Decimal `json:"Amount"`
	Currency      string           `json:"Currency"`
	Status        string           `json:"Status"`
	Data          json.RawMessage  `json:"Data"`
	JSONData      json.RawMessage  `json:"JsonData"`
}

// ParseWebhook verifies Content-HMAC when an API secret is configured and
// normalizes the notification.
func (c *CloudPaymentsProvider) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*provider.NormalizedEvent, error) {
	if c.opts.APISecret != "" {
		if err := c.verify(payload, headers); err != nil {
			return nil, err
		}
	}

	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err)
	}

	data := objectField(n.Data)
	if data == nil {
		data = objectField(n.JSONData)
	}
	orderID := provider.OrderIDFrom(data)
	if orderID == "" {
		return nil, provider.ErrMissingOrderReference
	}

	ref := n.InvoiceID
	if ref == "" {
		ref = rawID(n.TransactionID)
	}

	event := &provider.NormalizedEvent{
		Provider:    model.ProviderCloudPayments,
		OrderID:     orderID,
		ProviderRef: ref,
		EventType:   n.Status,
		Currency:    strings.ToUpper(n.Currency),
		Status:      mapStatus(n.Status),
		Payload:     payload,
	}
	if n.Amount != nil {
		value := money.Canonical(*n.Amount, money.Currency(event.Currency))
		event.Amount = &value
	}
	return event, nil
}

func (c *CloudPaymentsProvider) verify(payload []byte, headers http.Header) error {
	signature := headers.Get(HMACHeader)
	if signature == "" {
		signature = headers.Get(AltHMACHeader)
	}
	if signature == "" {
		return &provider.ProviderError{
			Code:    provider.CodeSignature,
			Message: "CloudPayments notification is not signed",
			Err:     provider.ErrInvalidSignature,
		}
	}

	if !hmac.Equal([]byte(signature), []byte(Sign(payload, c.opts.APISecret))) {
		return &provider.ProviderError{
			Code:    provider.CodeSignature,
			Message: "CloudPayments signature mismatch",
			Err:     provider.ErrInvalidSignature,
		}
	}
	return nil
}

// Sign returns the base64 HMAC-SHA256 of payload, as sent in Content-HMAC.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// objectField decodes a JSON object that may also arrive as a JSON string.
func objectField(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil || encoded == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(encoded), &obj); err != nil {
		return nil
	}
	return obj
}

// rawID reads an id sent as a string or a number.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func mapStatus(status string) model.PaymentStatus {
	switch status {
	case "Completed":
		return model.PaymentStatusSucceeded
	case "Declined", "Cancelled":
		return model.PaymentStatusFailed
	case "Refunded":
		return model.PaymentStatusRefunded
	default:
		return model.PaymentStatusPending
	}
}

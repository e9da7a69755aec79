package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
)

// PaymentProvider is implemented once per external provider. New providers
// add an adapter; the reconciler only sees NormalizedEvent.
type PaymentProvider interface {
	// Type returns the provider name
	Type() model.ProviderType

	// CreateSession opens a provider checkout for the order
	CreateSession(ctx context.Context, req *SessionRequest) (*Session, error)

	// ParseWebhook verifies and normalizes a provider notification
	ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*NormalizedEvent, error)
}

// SessionRequest describes the order a session is opened for.
type SessionRequest struct {
	Order         *model.Order
	Locale        string
	CustomerEmail string
	Description   string
	ReturnURL     string
	// IdempotencyKey defaults to the order id.
	IdempotencyKey string
}

// Key returns the idempotency key sent to the provider.
func (r *SessionRequest) Key() string {
	if r.IdempotencyKey != "" {
		return r.IdempotencyKey
	}
	return r.Order.ID
}

// Session is the provider's answer to CreateSession.
type Session struct {
	Reference       string                 `json:"reference"`
	ConfirmationURL string                 `json:"confirmation_url,omitempty"`
	Simulated       bool                   `json:"simulated"`
	ProviderData    map[string]interface{} `json:"provider_data,omitempty"`
}

// NormalizedEvent is a provider notification reduced to what the
// reconciler needs. Amount nil and Status "" mean the provider did not say.
type NormalizedEvent struct {
	Provider    model.ProviderType  `json:"provider"`
	OrderID     string              `json:"order_id"`
	ProviderRef string              `json:"provider_ref,omitempty"`
	EventType   string              `json:"event_type,omitempty"`
	Amount      *decimal.Decimal    `json:"amount,omitempty"`
	Currency    string              `json:"currency,omitempty"`
	Status      model.PaymentStatus `json:"status,omitempty"`
	Payload     []byte              `json:"-"`
}

var (
	// ErrMalformedPayload marks a notification that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrMissingOrderReference marks a notification without an order id.
	ErrMissingOrderReference = errors.New("webhook payload has no order reference")

	// ErrInvalidSignature marks a notification that failed verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrNotConfigured marks a provider without credentials.
	ErrNotConfigured = errors.New("payment provider not configured")
)

// OrderIDKeys are the metadata keys providers may carry the order id under.
var OrderIDKeys = []string{"orderId", "order_id", "order-id"}

// OrderIDFrom returns the first non-empty order id in metadata.
func OrderIDFrom(metadata map[string]interface{}) string {
	for _, key := range OrderIDKeys {
		if v, ok := metadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// FallbackSession is the simulated session used when a provider has no
// credentials or its API call fails. Checkout never blocks on a provider.
func FallbackSession(p model.ProviderType, orderID, frontendURL string) *Session {
	return &Session{
		Reference:       fmt.Sprintf("%s-%s", p, orderID),
		ConfirmationURL: fmt.Sprintf("%s/checkout/%s?provider=%s", frontendURL, orderID, p),
		Simulated:       true,
		ProviderData: map[string]interface{}{
			"provider":  string(p),
			"orderId":   orderID,
			"simulated": true,
		},
	}
}

// Provider error codes.
const (
	CodeMarshal   = "MARSHAL_ERROR"
	CodeRequest   = "REQUEST_ERROR"
	CodeAPI       = "API_ERROR"
	CodeResponse  = "RESPONSE_ERROR"
	CodeParse     = "PARSE_ERROR"
	CodeSignature = "SIGNATURE_ERROR"
)

// ProviderError describes a failed provider call.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

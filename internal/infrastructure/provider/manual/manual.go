package manual

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/money"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/provider"
)

// ManualProvider settles orders by operator action. Sessions are always
// simulated and the webhook body is written by an operator tool.
type ManualProvider struct {
	frontendURL string
	logger      *zap.Logger
}

// NewManualProvider creates a new manual provider
func NewManualProvider(frontendURL string, logger *zap.Logger) *ManualProvider {
	return &ManualProvider{frontendURL: frontendURL, logger: logger}
}

func (m *ManualProvider) Type() model.ProviderType {
	return model.ProviderManual
}

func (m *ManualProvider) CreateSession(ctx context.Context, req *provider.SessionRequest) (*provider.Session, error) {
	return provider.FallbackSession(model.ProviderManual, req.Order.ID, m.frontendURL), nil
}

type operatorEvent struct {
	OrderID     string              `json:"orderId"`
	ProviderRef string              `json:"providerRef"`
	Status      model.PaymentStatus `json:"status"`
	Amount      *decimal.Decimal    `json:"amount"`
	Currency    string              `json:"currency"`
}

// ParseWebhook reads {orderId, providerRef?, status, amount?, currency?}.
func (m *ManualProvider) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*provider.NormalizedEvent, error) {
	var in operatorEvent
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMalformedPayload, err)
	}
	if in.OrderID == "" {
		return nil, provider.ErrMissingOrderReference
	}

	switch in.Status {
	case model.PaymentStatusPending, model.PaymentStatusSucceeded, model.PaymentStatusFailed, model.PaymentStatusRefunded:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", provider.ErrMalformedPayload, in.Status)
	}

	event := &provider.NormalizedEvent{
		Provider:    model.ProviderManual,
		OrderID:     in.OrderID,
		ProviderRef: in.ProviderRef,
		EventType:   "manual." + string(in.Status),
		Currency:    string(money.ParseCurrency(in.Currency)),
		Status:      in.Status,
		Payload:     payload,
	}
	if in.Amount != nil {
		value := money.Canonical(*in.Amount, money.ParseCurrency(in.Currency))
		event.Amount = &value
	}
	return event, nil
}

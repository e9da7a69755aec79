package entity

import "github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"

// CheckoutResult is returned by checkout and payment-link creation.
type CheckoutResult struct {
	URL         string             `json:"url"`
	OrderID     string             `json:"order_id"`
	PaymentID   string             `json:"payment_id"`
	Provider    model.ProviderType `json:"provider"`
	ProviderRef string             `json:"provider_ref"`
	ProviderURL string             `json:"provider_url,omitempty"`
	Locale      string             `json:"locale"`
	Simulated   bool               `json:"simulated"`
}

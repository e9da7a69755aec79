package config

import "time"

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	// FrontendURL is the base of checkout redirect URLs.
	FrontendURL string `yaml:"frontend_url"`
	// DefaultProvider is used when checkout does not name one.
	DefaultProvider string `yaml:"default_provider"`
}

type ProvidersConfig struct {
	Stripe        StripeConfig        `yaml:"stripe"`
	YooKassa      YooKassaConfig      `yaml:"yookassa"`
	CloudPayments CloudPaymentsConfig `yaml:"cloudpayments"`
	// Timeout bounds outbound provider calls.
	Timeout time.Duration `yaml:"timeout"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type YooKassaConfig struct {
	ShopID    string `yaml:"shop_id"`
	SecretKey string `yaml:"secret_key"`
	ReturnURL string `yaml:"return_url"`
	BaseURL   string `yaml:"base_url"`
}

type CloudPaymentsConfig struct {
	PublicID  string `yaml:"public_id"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

package provider

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/config"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/provider"
	cloudpaymentsProvider "github.com/Radamanths/Irina-online-school-sub000/internal/infrastructure/provider/cloudpayments"
	manualProvider "github.com/Radamanths/Irina-online-school-sub000/internal/infrastructure/provider/manual"
	stripeProvider "github.com/Radamanths/Irina-online-school-sub000/internal/infrastructure/provider/stripe"
	yookassaProvider "github.com/Radamanths/Irina-online-school-sub000/internal/infrastructure/provider/yookassa"
)

// Factory holds one adapter per provider type
type Factory struct {
	providers map[model.ProviderType]provider.PaymentProvider
	logger    *zap.Logger
}

// NewFactory builds every adapter from config. Adapters without
// credentials are still registered; their sessions fall back to simulated.
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	httpClient := &http.Client{Timeout: cfg.Providers.Timeout}
	frontendURL := cfg.Service.FrontendURL

	return NewFactoryWith(logger,
		manualProvider.NewManualProvider(frontendURL, logger),
		stripeProvider.NewStripeProvider(stripeProvider.Options{
			SecretKey:     cfg.Providers.Stripe.SecretKey,
			WebhookSecret: cfg.Providers.Stripe.WebhookSecret,
			HTTPClient:    httpClient,
		}, logger),
		yookassaProvider.NewYooKassaProvider(yookassaProvider.Options{
			ShopID:      cfg.Providers.YooKassa.ShopID,
			SecretKey:   cfg.Providers.YooKassa.SecretKey,
			ReturnURL:   cfg.Providers.YooKassa.ReturnURL,
			BaseURL:     cfg.Providers.YooKassa.BaseURL,
			FrontendURL: frontendURL,
			HTTPClient:  httpClient,
		}, logger),
		cloudpaymentsProvider.NewCloudPaymentsProvider(cloudpaymentsProvider.Options{
			PublicID:   cfg.Providers.CloudPayments.PublicID,
			APISecret:  cfg.Providers.CloudPayments.APISecret,
			BaseURL:    cfg.Providers.CloudPayments.BaseURL,
			HTTPClient: httpClient,
		}, logger),
	)
}

// NewFactoryWith registers the given adapters.
func NewFactoryWith(logger *zap.Logger, providers ...provider.PaymentProvider) *Factory {
	f := &Factory{
		providers: make(map[model.ProviderType]provider.PaymentProvider, len(providers)),
		logger:    logger,
	}
	for _, p := range providers {
		f.providers[p.Type()] = p
	}
	return f
}

// GetProvider returns the adapter for providerType
func (f *Factory) GetProvider(providerType model.ProviderType) (provider.PaymentProvider, error) {
	p, ok := f.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
	return p, nil
}

package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/provider"
)

// EventPublisher delivers billing events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.BillingEvent) error
}

// ProviderRegistry resolves the adapter for a provider type.
type ProviderRegistry interface {
	GetProvider(providerType model.ProviderType) (provider.PaymentProvider, error)
}

// publishAll sends events collected inside a committed transaction. A
// failed publish is logged; the state change already happened.
func publishAll(ctx context.Context, publisher EventPublisher, logger *zap.Logger, events []entity.BillingEvent) {
	for _, event := range events {
		if err := publisher.Publish(ctx, event); err != nil {
			logger.Warn("Failed to publish billing event",
				zap.String("type", string(event.Type)),
				zap.String("order_id", event.OrderID),
				zap.Error(err))
		}
	}
}

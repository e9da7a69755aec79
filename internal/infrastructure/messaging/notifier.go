package messaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/pkg/messaging"
)

// RedisNotifier publishes billing events on one Redis channel.
type RedisNotifier struct {
	client  messaging.RedisClient
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier creates a notifier publishing on channel
func NewRedisNotifier(client messaging.RedisClient, channel string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (n *RedisNotifier) Publish(ctx context.Context, event entity.BillingEvent) error {
	if err := n.client.Publish(ctx, n.channel, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	n.logger.Debug("Billing event published",
		zap.String("type", string(event.Type)),
		zap.String("order_id", event.OrderID),
		zap.String("channel", n.channel))
	return nil
}

// LogNotifier only logs events. Used when no Redis address is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, event entity.BillingEvent) error {
	n.logger.Info("Billing event",
		zap.String("type", string(event.Type)),
		zap.String("order_id", event.OrderID),
		zap.String("user_id", event.UserID),
		zap.String("order_status", string(event.OrderStatus)),
		zap.Int("reminder_count", event.ReminderCount))
	return nil
}

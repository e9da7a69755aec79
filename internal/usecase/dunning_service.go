package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/config"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/entity"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/repository"
	apperrors "github.com/Radamanths/Irina-online-school-sub000/pkg/errors"
)

var dunningStatuses = []model.OrderStatus{model.OrderStatusPending, model.OrderStatusRequiresAction}

// DunningService sends bounded reminders for overdue unpaid orders.
type DunningService struct {
	tx        repository.TxManager
	orders    repository.OrderRepository
	publisher EventPublisher
	config    config.DunningConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewDunningService creates a new dunning service. cfg is normalized.
func NewDunningService(
	tx repository.TxManager,
	orders repository.OrderRepository,
	publisher EventPublisher,
	cfg config.DunningConfig,
	logger *zap.Logger,
) *DunningService {
	return &DunningService{
		tx:        tx,
		orders:    orders,
		publisher: publisher,
		config:    cfg.Normalize(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessReminders scans up to limit overdue orders, oldest first, and
// reminds those below the reminder cap whose last reminder is older than
// the interval. limit 0 means the configured batch size. A dry run
// reports what would be sent without writing.
func (s *DunningService) ProcessReminders(ctx context.Context, limit int, dryRun bool) (*entity.DunningSummary, error) {
	if limit <= 0 {
		limit = s.config.BatchSize
	}
	if limit > config.MaxBatchSize {
		limit = config.MaxBatchSize
	}

	now := s.now()
	cutoff := now.Add(-time.Duration(s.config.OverdueDays) * 24 * time.Hour)

	candidates, err := s.orders.ListOverdue(ctx, dunningStatuses, cutoff, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list overdue orders")
	}

	summary := &entity.DunningSummary{
		Evaluated:             len(candidates),
		DryRun:                dryRun,
		OverdueDays:           s.config.OverdueDays,
		ReminderIntervalHours: s.config.ReminderIntervalHours,
		MaxReminders:          s.config.MaxReminders,
		Entries:               []entity.DunningOrderEntry{},
	}

	for _, candidate := range candidates {
		var entry *entity.DunningOrderEntry
		var event *entity.BillingEvent

		if dryRun {
			preview := *candidate
			entry, _ = s.remind(&preview, now, model.DunningModeDryRun)
		} else {
			err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
				entry, event = nil, nil
				order, err := s.orders.GetForUpdate(ctx, candidate.ID)
				if err != nil || order == nil {
					return err
				}
				entry, event = s.remind(order, now, model.DunningModeAuto)
				if entry == nil {
					return nil
				}
				return s.orders.Update(ctx, order)
			})
			if err != nil {
				return nil, apperrors.Wrap(err, "failed to record dunning reminder")
			}
		}

		if entry == nil {
			continue
		}
		summary.RemindersSent++
		summary.Entries = append(summary.Entries, *entry)
		if event != nil {
			publishAll(ctx, s.publisher, s.logger, []entity.BillingEvent{*event})
		}
	}

	s.logger.Info("Dunning batch processed",
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("reminders_sent", summary.RemindersSent),
		zap.Bool("dry_run", dryRun))

	return summary, nil
}

// remind advances the reminder counter of order when it is due. The order
// status is never touched.
func (s *DunningService) remind(order *model.Order, now time.Time, mode model.DunningMode) (*entity.DunningOrderEntry, *entity.BillingEvent) {
	if !order.Status.IsOpen() {
		return nil, nil
	}

	state := order.Meta().Reminders
	if state.Count >= s.config.MaxReminders {
		return nil, nil
	}
	interval := time.Duration(s.config.ReminderIntervalHours) * time.Hour
	if state.LastSentAt != nil && now.Sub(*state.LastSentAt) < interval {
		return nil, nil
	}

	count := state.Count + 1
	nextStep := model.DunningNextFollowUp
	if count >= s.config.MaxReminders {
		nextStep = model.DunningNextHandoff
	}

	order.UpdateMeta(func(m *model.OrderMetadata) {
		sentAt := now
		m.Reminders = model.ReminderState{Count: count, LastSentAt: &sentAt}
		m.DunningLog.Append(model.DunningEntry{
			SentAt:      now,
			Mode:        mode,
			Count:       count,
			OrderStatus: order.Status,
			NextStep:    nextStep,
		})
	})

	s.logger.Info("Dunning reminder",
		zap.String("order_id", order.ID),
		zap.Int("reminder_count", count),
		zap.String("next_step", nextStep),
		zap.String("mode", string(mode)))

	entry := &entity.DunningOrderEntry{
		OrderID:        order.ID,
		ReminderCount:  count,
		LastReminderAt: now,
	}
	if mode == model.DunningModeDryRun {
		return entry, nil
	}
	return entry, &entity.BillingEvent{
		Type:          entity.EventDunningReminder,
		OrderID:       order.ID,
		UserID:        order.UserID,
		OrderStatus:   order.Status,
		ReminderCount: count,
		OccurredAt:    now,
	}
}

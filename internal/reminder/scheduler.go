package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/workdesk/internal/notify"
	"github.com/fieldops/workdesk/internal/observability"
	"github.com/fieldops/workdesk/internal/store"
	"github.com/fieldops/workdesk/model"
)

// Scheduler persists reminders and fires the due ones. Delivery is
// at-most-once: a reminder is claimed before sending, and a failed
// send does not return it to pending.
type Scheduler struct {
	store    store.ReminderStore
	notifier notify.Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
	grace    time.Duration
	now      func() time.Time
}

// New creates a reminder scheduler. grace is how far in the past a
// requested fire time may be before scheduling is refused.
func New(st store.ReminderStore, notifier notify.Notifier, metrics *observability.Metrics, logger *zap.Logger, grace time.Duration) *Scheduler {
	if grace == 0 {
		grace = 5 * time.Minute
	}
	return &Scheduler{
		store:    st,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		grace:    grace,
		now:      time.Now,
	}
}

// Schedule registers a reminder and returns its id. orderNumber may be
// empty for a free-standing reminder.
func (s *Scheduler) Schedule(ctx context.Context, firesAt time.Time, message, channel, orderNumber string) (string, error) {
	if firesAt.Before(s.now().Add(-s.grace)) {
		return "", model.NewSchedulingError(
			fmt.Sprintf("fire time %s is in the past", firesAt.Format(model.DateTimeLayout)))
	}

	r := model.Reminder{
		ID:          uuid.NewString(),
		OrderNumber: orderNumber,
		FiresAt:     firesAt,
		Message:     message,
		Channel:     channel,
		Status:      model.ReminderPending,
		CreatedAt:   s.now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return "", model.NewPersistenceError("schedule reminder", err)
	}

	s.metrics.RemindersScheduledTotal.Inc()
	s.logger.Info("reminder scheduled",
		zap.String("id", r.ID),
		zap.String("order", orderNumber),
		zap.Time("fires_at", firesAt))
	return r.ID, nil
}

// Cancel stops a pending reminder. Cancelling an already fired or
// cancelled reminder is a no-op and reports false.
func (s *Scheduler) Cancel(ctx context.Context, id string) (bool, error) {
	cancelled, err := s.store.Cancel(ctx, id)
	if err != nil {
		return false, model.NewPersistenceError("cancel reminder", err)
	}
	if cancelled {
		s.metrics.RemindersCancelledTotal.Inc()
	}
	return cancelled, nil
}

// CancelAllFor cancels every pending reminder attached to an order.
// Called when the order is deleted.
func (s *Scheduler) CancelAllFor(ctx context.Context, orderNumber string) (int, error) {
	n, err := s.store.CancelAllFor(ctx, orderNumber)
	if err != nil {
		return 0, model.NewPersistenceError("cancel reminders for order", err)
	}
	if n > 0 {
		s.metrics.RemindersCancelledTotal.Add(float64(n))
		s.logger.Info("cascade-cancelled reminders",
			zap.String("order", orderNumber), zap.Int("count", n))
	}
	return n, nil
}

// Run polls for due reminders until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval == 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.FireDue(ctx); err != nil {
				s.logger.Error("reminder pass failed", zap.Error(err))
			}
		}
	}
}

// FireDue delivers every pending reminder whose fire time has passed.
// Each reminder is claimed first; losing the claim means another pass
// took it, which is the expected outcome, not an error.
func (s *Scheduler) FireDue(ctx context.Context) error {
	due, err := s.store.FindDue(ctx, s.now())
	if err != nil {
		s.metrics.StoreErrorsTotal.WithLabelValues("find_due").Inc()
		return fmt.Errorf("reminder: find due: %w", err)
	}

	for _, r := range due {
		claimed, err := s.store.Claim(ctx, r.ID)
		if err != nil {
			s.metrics.StoreErrorsTotal.WithLabelValues("claim").Inc()
			s.logger.Error("reminder claim failed",
				zap.String("id", r.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		if err := s.notifier.Send(ctx, r.Channel, reminderText(r), nil); err != nil {
			// Claimed but undelivered. At-most-once means we do not retry.
			s.logger.Error("reminder delivery failed",
				zap.String("id", r.ID),
				zap.String("order", r.OrderNumber),
				zap.Error(err))
			continue
		}

		s.metrics.RemindersFiredTotal.Inc()
		s.logger.Info("reminder fired",
			zap.String("id", r.ID),
			zap.String("order", r.OrderNumber))
	}
	return nil
}

func reminderText(r model.Reminder) string {
	if r.OrderNumber != "" {
		return fmt.Sprintf("🔔 Reminder for order %s: %s", r.OrderNumber, r.Message)
	}
	return fmt.Sprintf("🔔 Reminder: %s", r.Message)
}

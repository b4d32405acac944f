package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/workdesk/internal/alert"
	"github.com/fieldops/workdesk/internal/notify"
	"github.com/fieldops/workdesk/internal/observability"
	"github.com/fieldops/workdesk/internal/store"
	"github.com/fieldops/workdesk/model"
)

// dayLayout keys dedup entries to a calendar day.
const dayLayout = "2006-01-02"

// Monitor sweeps open work orders and raises deadline alerts. Each
// (order, class, day) tuple alerts at most once; the dedup store is
// the gate.
type Monitor struct {
	orders   store.WorkOrderStore
	dedup    alert.DedupStore
	notifier notify.Notifier
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a deadline monitor.
func New(orders store.WorkOrderStore, dedup alert.DedupStore, notifier notify.Notifier, metrics *observability.Metrics, logger *zap.Logger) *Monitor {
	return &Monitor{
		orders:   orders,
		dedup:    dedup,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval == 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				m.logger.Error("deadline sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep inspects every non-terminal order once. A bad order is logged
// and skipped; only a failed store query aborts the sweep.
func (m *Monitor) Sweep(ctx context.Context) error {
	start := m.now()
	defer func() {
		m.metrics.SweepsTotal.Inc()
		m.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	orders, err := m.orders.Query(ctx, store.OrderFilters{ExcludeTerminal: true})
	if err != nil {
		m.metrics.StoreErrorsTotal.WithLabelValues("query_orders").Inc()
		return fmt.Errorf("monitor: query open orders: %w", err)
	}

	today := m.now()
	for _, order := range orders {
		m.inspect(ctx, order, today)
	}
	return nil
}

func (m *Monitor) inspect(ctx context.Context, order *model.WorkOrder, today time.Time) {
	field := order.Field(model.FieldDeadline)
	if !field.IsSet() {
		return
	}
	deadline, err := field.Date()
	if err != nil {
		m.metrics.SweepItemsSkippedTotal.Inc()
		m.logger.Warn("order has malformed deadline, skipping",
			zap.String("order", order.Number),
			zap.String("deadline", field.Value))
		return
	}

	class, ok := classify(daysUntil(today, deadline))
	if !ok {
		return
	}

	key := model.AlertKey{
		OrderNumber: order.Number,
		Class:       class,
		Day:         today.Format(dayLayout),
	}
	first, err := m.dedup.MarkIfNew(ctx, key)
	if err != nil {
		m.logger.Error("alert dedup check failed",
			zap.String("order", order.Number), zap.Error(err))
		return
	}
	if !first {
		m.metrics.AlertsSuppressedTotal.Inc()
		return
	}

	if err := m.notifier.Send(ctx, order.Channel, alertText(order, class, deadline), nil); err != nil {
		m.logger.Error("deadline alert delivery failed",
			zap.String("order", order.Number),
			zap.String("class", string(class)),
			zap.Error(err))
		return
	}

	m.metrics.AlertsSentTotal.WithLabelValues(string(class)).Inc()
	m.logger.Info("deadline alert sent",
		zap.String("order", order.Number),
		zap.String("class", string(class)),
		zap.String("deadline", deadline.Format(model.DateLayout)))
}

// daysUntil counts whole calendar days from today to the deadline,
// ignoring the time of day on both sides.
func daysUntil(today, deadline time.Time) int {
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(t).Hours() / 24)
}

func classify(days int) (model.AlertClass, bool) {
	switch {
	case days < 0:
		return model.AlertOverdue, true
	case days == 0:
		return model.AlertDueToday, true
	case days == 1:
		return model.AlertDueTomorrow, true
	case days == 2:
		return model.AlertDueIn2Days, true
	default:
		return "", false
	}
}

func alertText(order *model.WorkOrder, class model.AlertClass, deadline time.Time) string {
	date := deadline.Format(model.DateLayout)
	desc := "-"
	if v, ok := order.Fields[model.FieldDescription]; ok {
		desc = v.Render()
	}

	switch class {
	case model.AlertOverdue:
		return fmt.Sprintf("⚠️ Order %s is OVERDUE (deadline was %s).\n%s", order.Number, date, desc)
	case model.AlertDueToday:
		return fmt.Sprintf("⏰ Order %s is due TODAY (%s).\n%s", order.Number, date, desc)
	case model.AlertDueTomorrow:
		return fmt.Sprintf("📅 Order %s is due tomorrow (%s).\n%s", order.Number, date, desc)
	default:
		return fmt.Sprintf("📅 Order %s is due in 2 days (%s).\n%s", order.Number, date, desc)
	}
}

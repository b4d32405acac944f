package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var sweepDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics holds all Prometheus metric instruments for workdesk.
type Metrics struct {
	// Dialogue metrics
	TurnsTotal          *prometheus.CounterVec
	TurnFailuresTotal   *prometheus.CounterVec
	OrdersCreatedTotal  prometheus.Counter
	OrdersDeletedTotal  prometheus.Counter
	FieldEditsTotal     *prometheus.CounterVec
	DuplicateHitsTotal  prometheus.Counter

	// Deadline monitor metrics
	SweepsTotal            prometheus.Counter
	SweepDuration          prometheus.Histogram
	AlertsSentTotal        *prometheus.CounterVec
	AlertsSuppressedTotal  prometheus.Counter
	SweepItemsSkippedTotal prometheus.Counter

	// Reminder metrics
	RemindersScheduledTotal prometheus.Counter
	RemindersFiredTotal     prometheus.Counter
	RemindersCancelledTotal prometheus.Counter

	// Store metrics
	StoreErrorsTotal *prometheus.CounterVec
}

// InitMetrics registers all metrics with the given registerer.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdesk_turns_total",
			Help: "Dialogue turns processed, by resulting state.",
		}, []string{"state"}),
		TurnFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdesk_turn_failures_total",
			Help: "Dialogue turns ending in an error, by error code.",
		}, []string{"code"}),
		OrdersCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdesk_orders_created_total",
			Help: "Work orders persisted by confirmed create flows.",
		}),
		OrdersDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdesk_orders_deleted_total",
			Help: "Work orders removed by confirmed delete flows.",
		}),
		FieldEditsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdesk_field_edits_total",
			Help: "Accepted field edits, by field key.",
		}, []string{"field"}),
		DuplicateHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdesk_duplicate_hits_total",
			Help: "Create flows routed to the duplicate-resolution choice.",
		}),
		SweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdesk_deadline_sweeps_total",
			Help: "Deadline monitor sweeps completed.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "workdesk_deadline_sweep_duration_seconds",
			Help:    "Duration of deadline monitor sweeps.",
			Buckets: sweepDurationBuckets,
		}),
		AlertsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdesk_alerts_sent_total",
			Help: "Deadline alerts delivered, by alert class.",
		}, []string{"class"}),
		AlertsSuppressedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdesk_alerts_suppressed_total",
			Help: "Deadline alerts suppressed by the dedup store.",
		}),
		SweepItemsSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdesk_sweep_items_skipped_total",
			Help: "Orders skipped during a sweep (malformed deadline).",
		}),
		RemindersScheduledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdesk_reminders_scheduled_total",
			Help: "Manual reminders accepted by the scheduler.",
		}),
		RemindersFiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdesk_reminders_fired_total",
			Help: "Manual reminders delivered.",
		}),
		RemindersCancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workdesk_reminders_cancelled_total",
			Help: "Manual reminders cancelled before firing.",
		}),
		StoreErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workdesk_store_errors_total",
			Help: "Store operation failures, by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.TurnFailuresTotal,
		m.OrdersCreatedTotal,
		m.OrdersDeletedTotal,
		m.FieldEditsTotal,
		m.DuplicateHitsTotal,
		m.SweepsTotal,
		m.SweepDuration,
		m.AlertsSentTotal,
		m.AlertsSuppressedTotal,
		m.SweepItemsSkippedTotal,
		m.RemindersScheduledTotal,
		m.RemindersFiredTotal,
		m.RemindersCancelledTotal,
		m.StoreErrorsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

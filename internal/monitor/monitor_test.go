package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fieldops/workdesk/internal/alert"
	"github.com/fieldops/workdesk/internal/notify"
	"github.com/fieldops/workdesk/internal/observability"
	"github.com/fieldops/workdesk/internal/store"
	"github.com/fieldops/workdesk/model"
)

type fixture struct {
	monitor  *Monitor
	orders   *store.MemoryOrderStore
	notifier *notify.RecordingNotifier
}

func newFixture(t *testing.T, today time.Time) *fixture {
	t.Helper()
	orders := store.NewMemoryOrderStore()
	notifier := notify.NewRecordingNotifier()
	metrics := observability.InitMetrics(prometheus.NewRegistry())
	m := New(orders, alert.NewMemoryDedupStore(), notifier, metrics, zap.NewNop())
	m.now = func() time.Time { return today }
	return &fixture{monitor: m, orders: orders, notifier: notifier}
}

func seedOrder(t *testing.T, f *fixture, number, deadline, status string) {
	t.Helper()
	o := &model.WorkOrder{Number: number, Fields: map[string]model.FieldValue{}, Channel: "chan-1"}
	o.SetField(model.FieldNumber, model.TextValue(number))
	o.SetField(model.FieldStatus, model.ChoiceValue(status))
	o.SetField(model.FieldDescription, model.TextValue("desc "+number))
	if deadline != "" {
		o.SetField(model.FieldDeadline, model.TextValue(deadline))
	}
	if err := f.orders.Create(context.Background(), o); err != nil {
		t.Fatal(err)
	}
}

func TestSweepClassifiesByCalendarDay(t *testing.T) {
	today := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	f := newFixture(t, today)

	seedOrder(t, f, "1", "28/08/2026", model.StatusOpen) // overdue
	seedOrder(t, f, "2", "29/08/2026", model.StatusOpen) // due today
	seedOrder(t, f, "3", "30/08/2026", model.StatusOpen) // due tomorrow
	seedOrder(t, f, "4", "31/08/2026", model.StatusOpen) // due in 2 days
	seedOrder(t, f, "5", "01/09/2026", model.StatusOpen) // outside window
	seedOrder(t, f, "6", "", model.StatusOpen)           // no deadline

	if err := f.monitor.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep error: %v", err)
	}

	msgs := f.notifier.Messages()
	if len(msgs) != 4 {
		t.Fatalf("sent %d alerts, want 4", len(msgs))
	}

	wantFragments := map[string]string{
		"1": "OVERDUE",
		"2": "due TODAY",
		"3": "due tomorrow",
		"4": "due in 2 days",
	}
	for _, msg := range msgs {
		matched := false
		for number, fragment := range wantFragments {
			if strings.Contains(msg.Text, "Order "+number+" ") {
				matched = true
				if !strings.Contains(msg.Text, fragment) {
					t.Errorf("alert for order %s = %q, want fragment %q", number, msg.Text, fragment)
				}
			}
		}
		if !matched {
			t.Errorf("unexpected alert: %q", msg.Text)
		}
	}
}

func TestSweepSuppressesRepeatAlerts(t *testing.T) {
	today := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, today)
	seedOrder(t, f, "9", "29/08/2026", model.StatusOpen)

	ctx := context.Background()
	if err := f.monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	if got := len(f.notifier.Messages()); got != 1 {
		t.Errorf("sent %d alerts across two sweeps, want 1", got)
	}
}

func TestSweepAlertsAgainNextDay(t *testing.T) {
	today := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, today)
	seedOrder(t, f, "9", "28/08/2026", model.StatusOpen)

	ctx := context.Background()
	if err := f.monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	today = today.AddDate(0, 0, 1)
	f.monitor.now = func() time.Time { return today }
	if err := f.monitor.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	if got := len(f.notifier.Messages()); got != 2 {
		t.Errorf("sent %d alerts across two days, want 2", got)
	}
}

func TestSweepSkipsTerminalOrders(t *testing.T) {
	today := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, today)
	seedOrder(t, f, "1", "28/08/2026", model.StatusDone)
	seedOrder(t, f, "2", "28/08/2026", model.StatusCancelled)

	if err := f.monitor.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(f.notifier.Messages()); got != 0 {
		t.Errorf("sent %d alerts for terminal orders, want 0", got)
	}
}

func TestSweepSkipsMalformedDeadline(t *testing.T) {
	today := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, today)
	seedOrder(t, f, "1", "not-a-date", model.StatusOpen)
	seedOrder(t, f, "2", "29/08/2026", model.StatusOpen)

	if err := f.monitor.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}

	msgs := f.notifier.Messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Order 2 ") {
		t.Fatalf("alerts = %+v, want only order 2", msgs)
	}
}

func TestSweepContinuesPastDeliveryFailure(t *testing.T) {
	today := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, today)
	seedOrder(t, f, "1", "29/08/2026", model.StatusOpen)

	f.notifier.FailWith = context.DeadlineExceeded
	if err := f.monitor.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep should not fail on delivery errors: %v", err)
	}
}

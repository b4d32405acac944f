package store

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/workdesk/model"
)

func newOrder(number string, fields map[string]model.FieldValue) *model.WorkOrder {
	o := &model.WorkOrder{Number: number, Fields: map[string]model.FieldValue{}, Channel: "chan-1"}
	o.SetField(model.FieldNumber, model.TextValue(number))
	for k, v := range fields {
		o.SetField(k, v)
	}
	return o
}

func TestMemoryOrderStoreCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrderStore()

	if err := s.Create(ctx, newOrder("100", nil)); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	err := s.Create(ctx, newOrder("100", nil))
	if !model.IsCode(err, model.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestMemoryOrderStoreGetByNumber(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrderStore()

	if _, err := s.GetByNumber(ctx, "missing"); !model.IsCode(err, model.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}

	if err := s.Create(ctx, newOrder("42", map[string]model.FieldValue{
		model.FieldBranch: model.TextValue("North"),
	})); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := s.GetByNumber(ctx, "42")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Field(model.FieldBranch).Value != "North" {
		t.Errorf("branch = %q, want North", got.Field(model.FieldBranch).Value)
	}

	// Mutating the returned copy must not affect the stored order.
	got.SetField(model.FieldBranch, model.TextValue("South"))
	again, _ := s.GetByNumber(ctx, "42")
	if again.Field(model.FieldBranch).Value != "North" {
		t.Error("store returned a shared reference instead of a copy")
	}
}

func TestMemoryOrderStoreUpdateFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrderStore()

	if err := s.Create(ctx, newOrder("7", map[string]model.FieldValue{
		model.FieldBranch:      model.TextValue("East"),
		model.FieldDescription: model.TextValue("pump failure"),
	})); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := s.UpdateFields(ctx, "7", map[string]model.FieldValue{
		model.FieldBranch: model.TextValue("West"),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Field(model.FieldBranch).Value != "West" {
		t.Errorf("branch = %q, want West", updated.Field(model.FieldBranch).Value)
	}
	if updated.Field(model.FieldDescription).Value != "pump failure" {
		t.Error("untouched field was lost during partial update")
	}

	if _, err := s.UpdateFields(ctx, "999", nil); !model.IsCode(err, model.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestMemoryOrderStoreRenumber(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrderStore()

	if err := s.Create(ctx, newOrder("1", nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, newOrder("2", nil)); err != nil {
		t.Fatal(err)
	}

	if err := s.Renumber(ctx, "1", "2"); !model.IsCode(err, model.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	if err := s.Renumber(ctx, "1", "3"); err != nil {
		t.Fatalf("renumber failed: %v", err)
	}
	if _, err := s.GetByNumber(ctx, "1"); !model.IsCode(err, model.ErrNotFound) {
		t.Error("old number still resolves after renumber")
	}
	got, err := s.GetByNumber(ctx, "3")
	if err != nil {
		t.Fatalf("new number not found: %v", err)
	}
	if got.Field(model.FieldNumber).Value != "3" {
		t.Errorf("number field = %q, want 3", got.Field(model.FieldNumber).Value)
	}
}

func TestMemoryOrderStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrderStore()

	existed, err := s.Delete(ctx, "nope")
	if err != nil || existed {
		t.Fatalf("delete of missing order: existed=%v err=%v", existed, err)
	}

	if err := s.Create(ctx, newOrder("5", nil)); err != nil {
		t.Fatal(err)
	}
	existed, err = s.Delete(ctx, "5")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	if s.Len() != 0 {
		t.Errorf("store has %d orders after delete, want 0", s.Len())
	}
}

func TestMemoryOrderStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrderStore()

	seed := []struct {
		number, category, status, deadline string
	}{
		{"1", "corrective", model.StatusOpen, "10/09/2026"},
		{"2", "preventive", model.StatusOpen, "01/09/2026"},
		{"3", "corrective", model.StatusDone, "02/09/2026"},
		{"4", "corrective", model.StatusOpen, ""},
	}
	for _, o := range seed {
		fields := map[string]model.FieldValue{
			model.FieldCategory: model.ChoiceValue(o.category),
			model.FieldStatus:   model.ChoiceValue(o.status),
		}
		if o.deadline != "" {
			fields[model.FieldDeadline] = model.TextValue(o.deadline)
		}
		if err := s.Create(ctx, newOrder(o.number, fields)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Query(ctx, OrderFilters{Category: "corrective"})
	if err != nil {
		t.Fatal(err)
	}
	if want := 3; len(got) != want {
		t.Fatalf("category filter returned %d orders, want %d", len(got), want)
	}

	got, err = s.Query(ctx, OrderFilters{Status: model.StatusOpen})
	if err != nil {
		t.Fatal(err)
	}
	if want := 3; len(got) != want {
		t.Fatalf("status filter returned %d orders, want %d", len(got), want)
	}

	got, err = s.Query(ctx, OrderFilters{ExcludeTerminal: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range got {
		if model.IsTerminalStatus(o.Status()) {
			t.Errorf("order %s has terminal status %s", o.Number, o.Status())
		}
	}

	// Deadline ascending, orders without a parseable deadline last.
	got, err = s.Query(ctx, OrderFilters{})
	if err != nil {
		t.Fatal(err)
	}
	var numbers []string
	for _, o := range got {
		numbers = append(numbers, o.Number)
	}
	want := []string{"2", "3", "1", "4"}
	for i := range want {
		if numbers[i] != want[i] {
			t.Fatalf("sort order = %v, want %v", numbers, want)
		}
	}
}

func TestMemoryReminderStoreClaim(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReminderStore()

	r := model.Reminder{
		ID:      "r1",
		FiresAt: time.Now().Add(-time.Minute),
		Message: "check pump",
		Channel: "chan-1",
		Status:  model.ReminderPending,
	}
	if err := s.Create(ctx, r); err != nil {
		t.Fatal(err)
	}

	ok, err := s.Claim(ctx, "r1")
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = s.Claim(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("second claim succeeded, delivery would not be at-most-once")
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.ReminderDelivered {
		t.Errorf("status = %s, want delivered", got.Status)
	}
	if got.DeliveredAt == nil {
		t.Error("delivered_at not set on claim")
	}
}

func TestMemoryReminderStoreFindDue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReminderStore()
	now := time.Now()

	for _, r := range []model.Reminder{
		{ID: "past", FiresAt: now.Add(-time.Hour), Status: model.ReminderPending},
		{ID: "future", FiresAt: now.Add(time.Hour), Status: model.ReminderPending},
		{ID: "cancelled", FiresAt: now.Add(-time.Hour), Status: model.ReminderCancelled},
	} {
		if err := s.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	due, err := s.FindDue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != "past" {
		t.Fatalf("FindDue returned %v, want only 'past'", due)
	}
}

func TestMemoryReminderStoreCancelAllFor(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReminderStore()
	now := time.Now()

	for _, r := range []model.Reminder{
		{ID: "a", OrderNumber: "10", FiresAt: now, Status: model.ReminderPending},
		{ID: "b", OrderNumber: "10", FiresAt: now, Status: model.ReminderPending},
		{ID: "c", OrderNumber: "11", FiresAt: now, Status: model.ReminderPending},
		{ID: "d", OrderNumber: "10", FiresAt: now, Status: model.ReminderDelivered},
	} {
		if err := s.Create(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.CancelAllFor(ctx, "10")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("cancelled %d reminders, want 2", n)
	}

	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != "c" {
		t.Fatalf("pending after cascade = %v, want only 'c'", pending)
	}

	// Delivered reminders are untouched by a cascade cancel.
	d, err := s.Get(ctx, "d")
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != model.ReminderDelivered {
		t.Errorf("delivered reminder status changed to %s", d.Status)
	}
}

package model

import "testing"

func TestWorkOrderStatusDefaultsToOpen(t *testing.T) {
	o := &WorkOrder{Number: "1"}
	if got := o.Status(); got != StatusOpen {
		t.Errorf("Status() = %q, want open", got)
	}

	o.SetField(FieldStatus, ChoiceValue(StatusDone))
	if got := o.Status(); got != StatusDone {
		t.Errorf("Status() = %q, want done", got)
	}
}

func TestWorkOrderFieldMissingIsUnset(t *testing.T) {
	o := &WorkOrder{Number: "1"}
	if o.Field(FieldBranch).IsSet() {
		t.Error("missing field reported as set")
	}
}

func TestIsTerminalStatus(t *testing.T) {
	for status, terminal := range map[string]bool{
		StatusOpen:       false,
		StatusScheduled:  false,
		StatusInProgress: false,
		StatusDone:       true,
		StatusCancelled:  true,
	} {
		if got := IsTerminalStatus(status); got != terminal {
			t.Errorf("IsTerminalStatus(%q) = %v, want %v", status, got, terminal)
		}
	}
}

func TestWorkOrderClone(t *testing.T) {
	o := &WorkOrder{Number: "1"}
	o.SetField(FieldBranch, TextValue("East"))

	dup := o.Clone()
	dup.SetField(FieldBranch, TextValue("West"))

	if o.Field(FieldBranch).Value != "East" {
		t.Error("mutating the clone changed the original")
	}
}

func TestAlertKeyString(t *testing.T) {
	k := AlertKey{OrderNumber: "42", Class: AlertDueToday, Day: "2026-08-29"}
	want := "alert:42:due_today:2026-08-29"
	if got := k.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

package schema

import (
	"testing"

	"github.com/fieldops/workdesk/model"
)

func TestNormalizeNumber(t *testing.T) {
	cases := []struct {
		in, want string
		ok       bool
	}{
		{"58213", "58213", true},
		{"  42  ", "42", true},
		{"007", "007", true},
		{"AB-12", "", false},
		{"12 34", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeNumber(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("NormalizeNumber(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && !model.IsCode(err, model.ErrValidation) {
			t.Errorf("NormalizeNumber(%q) error = %v, want validation error", tc.in, err)
		}
	}
}

func TestValidateTextByKind(t *testing.T) {
	branch, _ := Lookup(model.FieldBranch)
	if _, err := branch.ValidateText("   "); !model.IsCode(err, model.ErrValidation) {
		t.Errorf("blank text accepted: %v", err)
	}
	v, err := branch.ValidateText("  North Depot ")
	if err != nil || v.Value != "North Depot" {
		t.Errorf("text = %+v, %v; want trimmed", v, err)
	}

	distance, _ := Lookup(model.FieldDistance)
	if _, err := distance.ValidateText("twelve"); !model.IsCode(err, model.ErrValidation) {
		t.Error("non-numeric distance accepted")
	}
	if _, err := distance.ValidateText("12,5"); err != nil {
		t.Errorf("decimal distance rejected: %v", err)
	}

	deadline, _ := Lookup(model.FieldDeadline)
	if _, err := deadline.ValidateText("31/02/2026"); !model.IsCode(err, model.ErrValidation) {
		t.Error("impossible date accepted")
	}
	v, err = deadline.ValidateText("05/09/2026")
	if err != nil || v.Kind != model.ValueDate {
		t.Errorf("date = %+v, %v", v, err)
	}

	crit, _ := Lookup(model.FieldCriticality)
	if _, err := crit.ValidateText("urgent"); !model.IsCode(err, model.ErrValidation) {
		t.Error("typed text accepted for a choice field")
	}
}

func TestValidateOptionalDateSentinel(t *testing.T) {
	sched, _ := Lookup(model.FieldScheduledDate)

	v, err := sched.ValidateText("N/A")
	if err != nil {
		t.Fatalf("N/A rejected: %v", err)
	}
	if v.IsSet() {
		t.Error("N/A did not produce the unset marker")
	}

	v, err = sched.ValidateText("10/09/2026")
	if err != nil || v.Kind != model.ValueDate {
		t.Errorf("date = %+v, %v", v, err)
	}

	if _, err := sched.ValidateText("whenever"); !model.IsCode(err, model.ErrValidation) {
		t.Error("junk accepted for optional date")
	}
}

func TestValidateChoice(t *testing.T) {
	crit, _ := Lookup(model.FieldCriticality)

	v, err := crit.ValidateChoice("urgent")
	if err != nil || v.Value != "urgent" || v.Kind != model.ValueChoice {
		t.Errorf("choice = %+v, %v", v, err)
	}
	if _, err := crit.ValidateChoice("mild"); !model.IsCode(err, model.ErrValidation) {
		t.Error("token outside the set accepted")
	}
}

func TestChoiceLabel(t *testing.T) {
	status, _ := Lookup(model.FieldStatus)
	if got := status.ChoiceLabel(model.StatusInProgress); got != "In progress" {
		t.Errorf("ChoiceLabel = %q", got)
	}
	if got := status.ChoiceLabel("mystery"); got != "mystery" {
		t.Errorf("unknown token label = %q", got)
	}
}

func TestCreateSequenceCoversRequiredFields(t *testing.T) {
	seq := CreateSequence()
	seen := map[string]bool{}
	for _, key := range seq {
		if _, ok := Lookup(key); !ok {
			t.Errorf("sequence names unknown field %q", key)
		}
		if seen[key] {
			t.Errorf("field %q appears twice", key)
		}
		seen[key] = true
	}
	for _, key := range []string{model.FieldBranch, model.FieldDeadline, model.FieldScheduledDate} {
		if !seen[key] {
			t.Errorf("sequence is missing %q", key)
		}
	}
	if seen[model.FieldNumber] {
		t.Error("identifier is collected before the sequence, not in it")
	}
	if seen[model.FieldReminderNote] {
		t.Error("reminder note must not be collected in the create flow")
	}
}

func TestEditableKeysExcludeReminderNote(t *testing.T) {
	for _, key := range EditableKeys() {
		if key == model.FieldReminderNote {
			t.Fatal("reminder note offered in the edit menu")
		}
	}
	var hasNumber bool
	for _, key := range EditableKeys() {
		if key == model.FieldNumber {
			hasNumber = true
		}
	}
	if !hasNumber {
		t.Error("change-identifier entry missing from the edit menu")
	}
}

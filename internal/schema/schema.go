// Package schema is the static description of the work-order fields: their
// keys, labels, value domains, prompts, and display order. The dialogue
// controller drives data capture off this table and every value entering
// the store passes through its validation, whichever path it arrived by.
package schema

import (
	"regexp"
	"strings"
	"time"

	"github.com/fieldops/workdesk/model"
)

// Kind is the value domain of a field.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindChoice
	KindDate
	// KindOptionalDate accepts the "N/A" sentinel and stores the distinct
	// unset marker for it.
	KindOptionalDate
)

// Choice is one entry of a closed choice set, presented as a button.
type Choice struct {
	Label string
	Token string
}

// Field describes one work-order field.
type Field struct {
	Key      string
	Label    string
	Kind     Kind
	Prompt   string
	Choices  []Choice
	Optional bool
}

// NASentinel is the operator input that marks an optional date as
// explicitly not applicable.
const NASentinel = "n/a"

var (
	numberPattern   = regexp.MustCompile(`^\d+$`)
	distancePattern = regexp.MustCompile(`^[\d\s,.]+$`)
)

// CriticalityChoices is the closed set for the criticality field.
var CriticalityChoices = []Choice{
	{Label: "Emergency", Token: "emergency"},
	{Label: "Urgent", Token: "urgent"},
	{Label: "Normal", Token: "normal"},
}

// CategoryChoices is the closed set for the service category field.
var CategoryChoices = []Choice{
	{Label: "Corrective", Token: "corrective"},
	{Label: "Preventive", Token: "preventive"},
}

// StatusChoices is the closed set for the status field.
var StatusChoices = []Choice{
	{Label: "Open", Token: model.StatusOpen},
	{Label: "Scheduled", Token: model.StatusScheduled},
	{Label: "In progress", Token: model.StatusInProgress},
	{Label: "Done", Token: model.StatusDone},
	{Label: "Cancelled", Token: model.StatusCancelled},
}

// fields is the full schema in display order.
var fields = []Field{
	{Key: model.FieldNumber, Label: "Number", Kind: KindText,
		Prompt: "Enter the work order number (digits only):"},
	{Key: model.FieldBranch, Label: "Branch", Kind: KindText,
		Prompt: "Enter the branch or site reference:"},
	{Key: model.FieldCallRef, Label: "Call reference", Kind: KindText,
		Prompt: "Enter the call reference:"},
	{Key: model.FieldDistance, Label: "Distance (km)", Kind: KindNumeric,
		Prompt: "Enter the distance in km (numbers only):"},
	{Key: model.FieldDescription, Label: "Description", Kind: KindText,
		Prompt: "Describe the service to be performed:"},
	{Key: model.FieldCriticality, Label: "Criticality", Kind: KindChoice,
		Prompt: "Select the criticality:", Choices: CriticalityChoices},
	{Key: model.FieldCategory, Label: "Category", Kind: KindChoice,
		Prompt: "Select the service category:", Choices: CategoryChoices},
	{Key: model.FieldDeadline, Label: "Deadline", Kind: KindDate,
		Prompt: "Enter the completion deadline (DD/MM/YYYY):"},
	{Key: model.FieldStatus, Label: "Status", Kind: KindChoice,
		Prompt: "Select the current status:", Choices: StatusChoices, Optional: true},
	{Key: model.FieldAssignee, Label: "Technician", Kind: KindText,
		Prompt: "Enter the name of the responsible technician:", Optional: true},
	{Key: model.FieldScheduledDate, Label: "Scheduled date", Kind: KindOptionalDate,
		Prompt: "Enter the scheduled visit date (DD/MM/YYYY) or N/A:", Optional: true},
	{Key: model.FieldReminderNote, Label: "Reminder", Kind: KindText, Optional: true},
}

// Fields returns the full schema in display order.
func Fields() []Field {
	return fields
}

// Lookup returns the field description for key.
func Lookup(key string) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// CreateSequence is the order in which the create flow collects fields
// after the identifier. The reminder note is only ever written by the
// reminder flow.
func CreateSequence() []string {
	return []string{
		model.FieldBranch,
		model.FieldCallRef,
		model.FieldDistance,
		model.FieldDescription,
		model.FieldCriticality,
		model.FieldCategory,
		model.FieldDeadline,
		model.FieldStatus,
		model.FieldAssignee,
		model.FieldScheduledDate,
	}
}

// EditableKeys lists the fields offered by the field-edit menu. The
// identifier is included: editing it is the explicit change-identifier
// path, which re-checks uniqueness.
func EditableKeys() []string {
	keys := make([]string, 0, len(fields)-1)
	for _, f := range fields {
		if f.Key == model.FieldReminderNote {
			continue
		}
		keys = append(keys, f.Key)
	}
	return keys
}

// NormalizeNumber validates and canonicalizes a work-order identifier.
func NormalizeNumber(raw string) (string, error) {
	n := strings.TrimSpace(raw)
	if !numberPattern.MatchString(n) {
		return "", model.NewValidationError(model.FieldNumber,
			"the work order number must contain digits only")
	}
	return n, nil
}

// ValidateText validates free-form input against the field's domain and
// returns the canonical value. Choice fields reject text input outright;
// they only accept tokens from their choice set.
func (f Field) ValidateText(raw string) (model.FieldValue, error) {
	v := strings.TrimSpace(raw)

	switch f.Kind {
	case KindText:
		if v == "" {
			return model.FieldValue{}, model.NewValidationError(f.Key,
				f.Label+" cannot be empty")
		}
		return model.TextValue(v), nil

	case KindNumeric:
		if v == "" || !distancePattern.MatchString(v) {
			return model.FieldValue{}, model.NewValidationError(f.Key,
				f.Label+" must contain numbers only")
		}
		return model.TextValue(v), nil

	case KindDate:
		t, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return model.FieldValue{}, model.NewValidationError(f.Key,
				"invalid date, use DD/MM/YYYY")
		}
		return model.DateValue(t), nil

	case KindOptionalDate:
		if strings.EqualFold(v, NASentinel) {
			return model.UnsetValue(), nil
		}
		t, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return model.FieldValue{}, model.NewValidationError(f.Key,
				"invalid date, use DD/MM/YYYY or N/A")
		}
		return model.DateValue(t), nil

	case KindChoice:
		return model.FieldValue{}, model.NewValidationError(f.Key,
			f.Label+" must be selected from the offered options")
	}

	return model.FieldValue{}, model.NewValidationError(f.Key, "unknown field kind")
}

// ValidateChoice validates a choice-set token for the field.
func (f Field) ValidateChoice(token string) (model.FieldValue, error) {
	for _, c := range f.Choices {
		if c.Token == token {
			return model.ChoiceValue(token), nil
		}
	}
	return model.FieldValue{}, model.NewValidationError(f.Key,
		"not a valid option for "+f.Label)
}

// ChoiceLabel returns the display label for a stored choice token, or the
// token itself when it is not part of the set.
func (f Field) ChoiceLabel(token string) string {
	for _, c := range f.Choices {
		if c.Token == token {
			return c.Label
		}
	}
	return token
}

package model

import (
	"fmt"
	"time"
)

// Canonical date grammars. All date input is parsed against these; no other
// formats are accepted anywhere in the system.
const (
	DateLayout     = "02/01/2006"
	DateTimeLayout = "02/01/2006 15:04"
)

// ValueKind discriminates the variants of a FieldValue.
type ValueKind int

const (
	// ValueUnset is the explicit "not applicable" marker. It is distinct
	// from an empty string and from a missing map entry, and renders
	// differently from both.
	ValueUnset ValueKind = iota
	ValueText
	ValueChoice
	ValueDate
)

// FieldValue is the tagged value of one work-order field: free text, a
// token from a closed choice set, a calendar date, or the unset marker.
type FieldValue struct {
	Kind  ValueKind `json:"kind"`
	Value string    `json:"value,omitempty"`
}

// TextValue returns a free-text field value.
func TextValue(s string) FieldValue {
	return FieldValue{Kind: ValueText, Value: s}
}

// ChoiceValue returns a field value holding a choice-set token.
func ChoiceValue(token string) FieldValue {
	return FieldValue{Kind: ValueChoice, Value: token}
}

// DateValue returns a field value holding a calendar date.
func DateValue(t time.Time) FieldValue {
	return FieldValue{Kind: ValueDate, Value: t.Format(DateLayout)}
}

// UnsetValue returns the explicit "not applicable" marker.
func UnsetValue() FieldValue {
	return FieldValue{Kind: ValueUnset}
}

// IsSet reports whether the value is anything other than the unset marker.
func (v FieldValue) IsSet() bool {
	return v.Kind != ValueUnset
}

// Date parses the value under the canonical date grammar. The kind is
// not consulted: a text value holding a well-formed date parses too.
func (v FieldValue) Date() (time.Time, error) {
	if !v.IsSet() || v.Value == "" {
		return time.Time{}, fmt.Errorf("field value holds no date")
	}
	return time.Parse(DateLayout, v.Value)
}

// Render returns the operator-facing form of the value. The three
// "nothing there" shapes each render distinctly: the unset marker, an
// empty string, and a missing field (rendered by the caller as "-").
func (v FieldValue) Render() string {
	if v.Kind == ValueUnset {
		return "not applicable"
	}
	if v.Value == "" {
		return "(empty)"
	}
	return v.Value
}

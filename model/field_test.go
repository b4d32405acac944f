package model

import (
	"testing"
	"time"
)

func TestFieldValueRenderDistinguishesEmptyShapes(t *testing.T) {
	cases := []struct {
		name string
		v    FieldValue
		want string
	}{
		{"unset marker", UnsetValue(), "not applicable"},
		{"empty string", TextValue(""), "(empty)"},
		{"plain text", TextValue("North"), "North"},
		{"choice token", ChoiceValue("urgent"), "urgent"},
	}
	for _, tc := range cases {
		if got := tc.v.Render(); got != tc.want {
			t.Errorf("%s: Render() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFieldValueDate(t *testing.T) {
	d := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)
	v := DateValue(d)
	if v.Value != "05/09/2026" {
		t.Fatalf("DateValue = %q", v.Value)
	}

	got, err := v.Date()
	if err != nil {
		t.Fatalf("Date() error = %v", err)
	}
	if !got.Equal(d) {
		t.Errorf("Date() = %v, want %v", got, d)
	}

	// Text holding a well-formed date parses as well.
	if _, err := TextValue("05/09/2026").Date(); err != nil {
		t.Errorf("text date did not parse: %v", err)
	}
	if _, err := TextValue("soon").Date(); err == nil {
		t.Error("malformed date parsed")
	}
	if _, err := UnsetValue().Date(); err == nil {
		t.Error("unset value parsed as a date")
	}
}

func TestFieldValueIsSet(t *testing.T) {
	if UnsetValue().IsSet() {
		t.Error("unset marker reports set")
	}
	if !TextValue("").IsSet() {
		t.Error("empty text is still a set value")
	}
}

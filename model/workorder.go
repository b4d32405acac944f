package model

import "time"

// Work-order field keys. FieldNumber is the business identifier and is
// immutable except through the explicit change-identifier edit.
const (
	FieldNumber        = "number"
	FieldBranch        = "branch"
	FieldCallRef       = "call_ref"
	FieldDistance      = "distance_km"
	FieldDescription   = "description"
	FieldCriticality   = "criticality"
	FieldCategory      = "category"
	FieldDeadline      = "deadline"
	FieldStatus        = "status"
	FieldAssignee      = "assignee"
	FieldScheduledDate = "scheduled_date"
	FieldReminderNote  = "reminder_note"
)

// Work-order status tokens. Done and cancelled are terminal and excluded
// from deadline sweeps.
const (
	StatusOpen       = "open"
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// Unassigned is the sentinel stored when no technician is responsible.
const Unassigned = "unassigned"

// IsTerminalStatus reports whether orders in the given status are closed.
func IsTerminalStatus(status string) bool {
	return status == StatusDone || status == StatusCancelled
}

// WorkOrder is the persisted service-ticket entity. Number is the
// externally visible identifier, unique across all non-deleted orders.
// CreatedAt and UpdatedAt are owned by the store, never set by callers.
type WorkOrder struct {
	Number    string                `json:"number"`
	Fields    map[string]FieldValue `json:"fields"`
	Channel   string                `json:"channel"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Field returns the value stored under key, or the unset marker.
func (o *WorkOrder) Field(key string) FieldValue {
	if v, ok := o.Fields[key]; ok {
		return v
	}
	return UnsetValue()
}

// SetField stores a value under key, allocating the map if needed.
func (o *WorkOrder) SetField(key string, v FieldValue) {
	if o.Fields == nil {
		o.Fields = make(map[string]FieldValue)
	}
	o.Fields[key] = v
}

// Status returns the status token, defaulting to open.
func (o *WorkOrder) Status() string {
	if v, ok := o.Fields[FieldStatus]; ok && v.IsSet() && v.Value != "" {
		return v.Value
	}
	return StatusOpen
}

// Category returns the category token, or "" when not set.
func (o *WorkOrder) Category() string {
	if v, ok := o.Fields[FieldCategory]; ok && v.IsSet() {
		return v.Value
	}
	return ""
}

// Deadline parses the due date under the canonical date grammar.
func (o *WorkOrder) Deadline() (time.Time, error) {
	return o.Field(FieldDeadline).Date()
}

// Clone returns a deep copy safe to mutate as a session draft.
func (o *WorkOrder) Clone() *WorkOrder {
	dup := *o
	dup.Fields = make(map[string]FieldValue, len(o.Fields))
	for k, v := range o.Fields {
		dup.Fields[k] = v
	}
	return &dup
}

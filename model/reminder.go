package model

import (
	"fmt"
	"time"
)

// Reminder status tokens.
const (
	ReminderPending   = "pending"
	ReminderDelivered = "delivered"
	ReminderCancelled = "cancelled"
)

// Reminder is a one-shot manual notification scheduled for an arbitrary
// future time. OrderNumber ties it to a work order for cascade
// cancellation; it may be empty for free-standing reminders.
type Reminder struct {
	ID          string     `json:"id"`
	OrderNumber string     `json:"order_number,omitempty"`
	FiresAt     time.Time  `json:"fires_at"`
	Message     string     `json:"message"`
	Channel     string     `json:"channel"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// AlertClass classifies a work order by due-date proximity.
type AlertClass string

const (
	AlertOverdue     AlertClass = "overdue"
	AlertDueToday    AlertClass = "due_today"
	AlertDueTomorrow AlertClass = "due_tomorrow"
	AlertDueIn2Days  AlertClass = "due_in_2_days"
)

// AlertKey is the dedup tuple for deadline notifications: at most one
// notification is ever sent for a given key.
type AlertKey struct {
	OrderNumber string
	Class       AlertClass
	Day         string // calendar day, 2006-01-02
}

// String renders the key in its stored form.
func (k AlertKey) String() string {
	return fmt.Sprintf("alert:%s:%s:%s", k.OrderNumber, k.Class, k.Day)
}

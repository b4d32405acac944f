// Package store persists work orders and reminders. It translates between
// the domain entities and their stored representation and enforces the
// uniqueness of work-order numbers; all other domain logic lives above it.
package store

import (
	"context"
	"time"

	"github.com/fieldops/workdesk/model"
)

// WorkOrderStore persists work orders keyed by their business number.
type WorkOrderStore interface {
	// Create persists a new order. Returns DUPLICATE if an order with the
	// same number already exists. CreatedAt/UpdatedAt are set here.
	Create(ctx context.Context, order *model.WorkOrder) error

	// GetByNumber retrieves an order by its business number.
	// Returns NOT_FOUND if no such order exists.
	GetByNumber(ctx context.Context, number string) (*model.WorkOrder, error)

	// UpdateFields merges the supplied fields into the stored order: only
	// supplied keys are overwritten, all others keep their prior values.
	// UpdatedAt is bumped. Returns the merged order, or NOT_FOUND.
	UpdateFields(ctx context.Context, number string, fields map[string]model.FieldValue) (*model.WorkOrder, error)

	// Renumber changes an order's business number, re-checking uniqueness.
	// Returns DUPLICATE if the new number is taken, NOT_FOUND if the old
	// number does not exist.
	Renumber(ctx context.Context, oldNumber, newNumber string) error

	// Delete removes an order. Returns false when it did not exist.
	Delete(ctx context.Context, number string) (bool, error)

	// Query returns orders matching the filters, ordered by deadline
	// ascending (orders with unparseable deadlines sort last).
	Query(ctx context.Context, filters OrderFilters) ([]*model.WorkOrder, error)
}

// OrderFilters narrows a Query. Empty fields match everything.
type OrderFilters struct {
	Category        string
	Status          string
	ExcludeTerminal bool
}

// ReminderStore persists manual reminders keyed by generated id.
type ReminderStore interface {
	// Create persists a new reminder. CreatedAt is set here.
	Create(ctx context.Context, r model.Reminder) error

	// Get retrieves a reminder by id. Returns NOT_FOUND if absent.
	Get(ctx context.Context, id string) (model.Reminder, error)

	// FindDue returns pending reminders whose fire time is at or before
	// the cutoff, ordered by fire time ascending.
	FindDue(ctx context.Context, cutoff time.Time) ([]model.Reminder, error)

	// Claim atomically moves a pending reminder to delivered. Returns
	// false when the reminder was not pending (already claimed, cancelled,
	// or absent) - the caller must not deliver in that case.
	Claim(ctx context.Context, id string) (bool, error)

	// Cancel marks a pending reminder cancelled. Cancelling a fired,
	// already-cancelled, or unknown reminder is a no-op returning false.
	Cancel(ctx context.Context, id string) (bool, error)

	// CancelAllFor cancels every pending reminder tied to the given order
	// number and reports how many were cancelled.
	CancelAllFor(ctx context.Context, orderNumber string) (int, error)

	// ListPending returns all pending reminders, ordered by fire time.
	ListPending(ctx context.Context) ([]model.Reminder, error)
}

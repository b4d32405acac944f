package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fieldops/workdesk/model"
)

// MemoryOrderStore is an in-memory WorkOrderStore for testing and
// single-instance deployments.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*model.WorkOrder // key: business number
}

// NewMemoryOrderStore creates a new in-memory work-order store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]*model.WorkOrder)}
}

// Create persists a new order, rejecting duplicate numbers.
func (s *MemoryOrderStore) Create(_ context.Context, order *model.WorkOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.Number]; exists {
		return model.NewDuplicateError(
			fmt.Sprintf("work order %q already exists", order.Number),
		)
	}

	now := time.Now().UTC()
	stored := order.Clone()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.orders[order.Number] = stored

	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

// GetByNumber retrieves an order by business number.
func (s *MemoryOrderStore) GetByNumber(_ context.Context, number string) (*model.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.orders[number]
	if !exists {
		return nil, model.NewNotFoundError(
			fmt.Sprintf("work order %q not found", number),
		)
	}
	return order.Clone(), nil
}

// UpdateFields merges the supplied fields into the stored order.
func (s *MemoryOrderStore) UpdateFields(_ context.Context, number string, fields map[string]model.FieldValue) (*model.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.orders[number]
	if !exists {
		return nil, model.NewNotFoundError(
			fmt.Sprintf("work order %q not found", number),
		)
	}

	for k, v := range fields {
		order.SetField(k, v)
	}
	order.UpdatedAt = time.Now().UTC()
	return order.Clone(), nil
}

// Renumber changes an order's business number with a uniqueness re-check.
func (s *MemoryOrderStore) Renumber(_ context.Context, oldNumber, newNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.orders[oldNumber]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("work order %q not found", oldNumber),
		)
	}
	if oldNumber == newNumber {
		return nil
	}
	if _, taken := s.orders[newNumber]; taken {
		return model.NewDuplicateError(
			fmt.Sprintf("work order %q already exists", newNumber),
		)
	}

	delete(s.orders, oldNumber)
	order.Number = newNumber
	order.SetField(model.FieldNumber, model.TextValue(newNumber))
	order.UpdatedAt = time.Now().UTC()
	s.orders[newNumber] = order
	return nil
}

// Delete removes an order, reporting whether it existed.
func (s *MemoryOrderStore) Delete(_ context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[number]; !exists {
		return false, nil
	}
	delete(s.orders, number)
	return true, nil
}

// Query returns matching orders ordered by deadline ascending.
func (s *MemoryOrderStore) Query(_ context.Context, filters OrderFilters) ([]*model.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.WorkOrder
	for _, order := range s.orders {
		if filters.Category != "" && order.Category() != filters.Category {
			continue
		}
		if filters.Status != "" && order.Status() != filters.Status {
			continue
		}
		if filters.ExcludeTerminal && model.IsTerminalStatus(order.Status()) {
			continue
		}
		result = append(result, order.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return deadlineSortKey(result[i]).Before(deadlineSortKey(result[j]))
	})
	return result, nil
}

// Len returns the total number of orders. For testing.
func (s *MemoryOrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// deadlineSortKey orders by parsed deadline, pushing unparseable or
// missing deadlines to the end.
func deadlineSortKey(order *model.WorkOrder) time.Time {
	t, err := order.Deadline()
	if err != nil {
		return time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// MemoryReminderStore is an in-memory ReminderStore.
type MemoryReminderStore struct {
	mu        sync.RWMutex
	reminders map[string]model.Reminder
}

// NewMemoryReminderStore creates a new in-memory reminder store.
func NewMemoryReminderStore() *MemoryReminderStore {
	return &MemoryReminderStore{reminders: make(map[string]model.Reminder)}
}

// Create persists a new reminder.
func (s *MemoryReminderStore) Create(_ context.Context, r model.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reminders[r.ID]; exists {
		return model.NewDuplicateError(
			fmt.Sprintf("reminder %q already exists", r.ID),
		)
	}
	r.CreatedAt = time.Now().UTC()
	s.reminders[r.ID] = r
	return nil
}

// Get retrieves a reminder by id.
func (s *MemoryReminderStore) Get(_ context.Context, id string) (model.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.reminders[id]
	if !exists {
		return model.Reminder{}, model.NewNotFoundError(
			fmt.Sprintf("reminder %q not found", id),
		)
	}
	return r, nil
}

// FindDue returns pending reminders due at or before the cutoff.
func (s *MemoryReminderStore) FindDue(_ context.Context, cutoff time.Time) ([]model.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []model.Reminder
	for _, r := range s.reminders {
		if r.Status == model.ReminderPending && !r.FiresAt.After(cutoff) {
			due = append(due, r)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].FiresAt.Before(due[j].FiresAt)
	})
	return due, nil
}

// Claim atomically moves a pending reminder to delivered.
func (s *MemoryReminderStore) Claim(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reminders[id]
	if !exists || r.Status != model.ReminderPending {
		return false, nil
	}
	now := time.Now().UTC()
	r.Status = model.ReminderDelivered
	r.DeliveredAt = &now
	s.reminders[id] = r
	return true, nil
}

// Cancel marks a pending reminder cancelled. No-op otherwise.
func (s *MemoryReminderStore) Cancel(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.reminders[id]
	if !exists || r.Status != model.ReminderPending {
		return false, nil
	}
	r.Status = model.ReminderCancelled
	s.reminders[id] = r
	return true, nil
}

// CancelAllFor cancels every pending reminder for an order number.
func (s *MemoryReminderStore) CancelAllFor(_ context.Context, orderNumber string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := 0
	for id, r := range s.reminders {
		if r.OrderNumber == orderNumber && r.Status == model.ReminderPending {
			r.Status = model.ReminderCancelled
			s.reminders[id] = r
			cancelled++
		}
	}
	return cancelled, nil
}

// ListPending returns all pending reminders ordered by fire time.
func (s *MemoryReminderStore) ListPending(_ context.Context) ([]model.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []model.Reminder
	for _, r := range s.reminders {
		if r.Status == model.ReminderPending {
			pending = append(pending, r)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].FiresAt.Before(pending[j].FiresAt)
	})
	return pending, nil
}

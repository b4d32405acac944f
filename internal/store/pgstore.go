package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/workdesk/model"
)

// schemaDDL creates the tables when they do not exist yet. Category,
// status, and deadline are denormalized from the field map so listing
// filters and the sweep query stay single-statement.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS work_orders (
	number      TEXT PRIMARY KEY,
	fields      JSONB NOT NULL,
	status      TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	deadline    DATE,
	channel     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_work_orders_status ON work_orders(status);
CREATE INDEX IF NOT EXISTS idx_work_orders_category ON work_orders(category);

CREATE TABLE IF NOT EXISTS reminders (
	id            TEXT PRIMARY KEY,
	order_number  TEXT NOT NULL DEFAULT '',
	fires_at      TIMESTAMPTZ NOT NULL,
	message       TEXT NOT NULL,
	channel       TEXT NOT NULL,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	delivered_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(status, fires_at);
CREATE INDEX IF NOT EXISTS idx_reminders_order ON reminders(order_number);
`

// isUniqueViolation reports whether err is a unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// PgOrderStore is a PostgreSQL-backed WorkOrderStore using pgx/v5.
type PgOrderStore struct {
	pool *pgxpool.Pool
}

// NewPgOrderStore creates a new PostgreSQL work-order store.
func NewPgOrderStore(pool *pgxpool.Pool) *PgOrderStore {
	return &PgOrderStore{pool: pool}
}

// EnsureSchema creates the tables if they do not exist.
func (s *PgOrderStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// HealthCheck verifies database connectivity.
func (s *PgOrderStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create inserts a new order, rejecting duplicate numbers.
func (s *PgOrderStore) Create(ctx context.Context, order *model.WorkOrder) error {
	fieldsJSON, err := json.Marshal(order.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO work_orders (number, fields, status, category, deadline, channel, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (number) DO NOTHING`,
		order.Number, fieldsJSON, order.Status(), order.Category(),
		deadlineColumn(order), order.Channel, now,
	)
	if err != nil {
		return fmt.Errorf("insert work order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewDuplicateError(
			fmt.Sprintf("work order %q already exists", order.Number),
		)
	}

	order.CreatedAt = now
	order.UpdatedAt = now
	return nil
}

// GetByNumber retrieves an order by business number.
func (s *PgOrderStore) GetByNumber(ctx context.Context, number string) (*model.WorkOrder, error) {
	return s.scanOne(ctx, `
		SELECT number, fields, channel, created_at, updated_at
		FROM work_orders WHERE number = $1`, number)
}

// UpdateFields merges the supplied fields into the stored order.
func (s *PgOrderStore) UpdateFields(ctx context.Context, number string, fields map[string]model.FieldValue) (*model.WorkOrder, error) {
	order, err := s.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	for k, v := range fields {
		order.SetField(k, v)
	}
	fieldsJSON, err := json.Marshal(order.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE work_orders
		SET fields = $1, status = $2, category = $3, deadline = $4, updated_at = $5
		WHERE number = $6`,
		fieldsJSON, order.Status(), order.Category(), deadlineColumn(order), now, number,
	)
	if err != nil {
		return nil, fmt.Errorf("update work order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, model.NewNotFoundError(
			fmt.Sprintf("work order %q not found", number),
		)
	}

	order.UpdatedAt = now
	return order, nil
}

// Renumber changes an order's business number with a uniqueness re-check.
func (s *PgOrderStore) Renumber(ctx context.Context, oldNumber, newNumber string) error {
	if oldNumber == newNumber {
		return nil
	}

	var taken bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM work_orders WHERE number = $1)`, newNumber,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check number: %w", err)
	}
	if taken {
		return model.NewDuplicateError(
			fmt.Sprintf("work order %q already exists", newNumber),
		)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE work_orders
		SET number = $1,
		    fields = jsonb_set(fields, '{number}', jsonb_build_object('kind', 1, 'value', $1::text)),
		    updated_at = $2
		WHERE number = $3`,
		newNumber, time.Now().UTC(), oldNumber,
	)
	if err != nil {
		// A concurrent create or renumber can take the number between
		// the check above and this statement; the primary key reports it.
		if isUniqueViolation(err) {
			return model.NewDuplicateError(
				fmt.Sprintf("work order %q already exists", newNumber),
			)
		}
		return fmt.Errorf("renumber work order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(
			fmt.Sprintf("work order %q not found", oldNumber),
		)
	}
	return nil
}

// Delete removes an order, reporting whether it existed.
func (s *PgOrderStore) Delete(ctx context.Context, number string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM work_orders WHERE number = $1`, number)
	if err != nil {
		return false, fmt.Errorf("delete work order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Query returns matching orders ordered by deadline ascending.
func (s *PgOrderStore) Query(ctx context.Context, filters OrderFilters) ([]*model.WorkOrder, error) {
	q := `SELECT number, fields, channel, created_at, updated_at FROM work_orders WHERE 1=1`
	args := []any{}

	if filters.Category != "" {
		args = append(args, filters.Category)
		q += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.ExcludeTerminal {
		args = append(args, model.StatusDone, model.StatusCancelled)
		q += fmt.Sprintf(" AND status NOT IN ($%d, $%d)", len(args)-1, len(args))
	}
	q += " ORDER BY deadline ASC NULLS LAST, number ASC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query work orders: %w", err)
	}
	defer rows.Close()

	var result []*model.WorkOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}

func (s *PgOrderStore) scanOne(ctx context.Context, q, number string) (*model.WorkOrder, error) {
	row := s.pool.QueryRow(ctx, q, number)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFoundError(
			fmt.Sprintf("work order %q not found", number),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query work order: %w", err)
	}
	return order, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.WorkOrder, error) {
	var order model.WorkOrder
	var fieldsJSON []byte

	if err := row.Scan(&order.Number, &fieldsJSON, &order.Channel,
		&order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fieldsJSON, &order.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return &order, nil
}

// deadlineColumn converts the deadline field to a nullable column value.
func deadlineColumn(order *model.WorkOrder) *time.Time {
	t, err := order.Deadline()
	if err != nil {
		return nil
	}
	return &t
}

// PgReminderStore is a PostgreSQL-backed ReminderStore using pgx/v5.
type PgReminderStore struct {
	pool *pgxpool.Pool
}

// NewPgReminderStore creates a new PostgreSQL reminder store.
func NewPgReminderStore(pool *pgxpool.Pool) *PgReminderStore {
	return &PgReminderStore{pool: pool}
}

// HealthCheck verifies database connectivity.
func (s *PgReminderStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create persists a new reminder.
func (s *PgReminderStore) Create(ctx context.Context, r model.Reminder) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reminders (id, order_number, fires_at, message, channel, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.OrderNumber, r.FiresAt, r.Message, r.Channel, r.Status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// Get retrieves a reminder by id.
func (s *PgReminderStore) Get(ctx context.Context, id string) (model.Reminder, error) {
	var r model.Reminder
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_number, fires_at, message, channel, status, created_at, delivered_at
		FROM reminders WHERE id = $1`, id,
	).Scan(&r.ID, &r.OrderNumber, &r.FiresAt, &r.Message, &r.Channel,
		&r.Status, &r.CreatedAt, &r.DeliveredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Reminder{}, model.NewNotFoundError(
			fmt.Sprintf("reminder %q not found", id),
		)
	}
	if err != nil {
		return model.Reminder{}, fmt.Errorf("query reminder: %w", err)
	}
	return r, nil
}

// FindDue returns pending reminders due at or before the cutoff.
func (s *PgReminderStore) FindDue(ctx context.Context, cutoff time.Time) ([]model.Reminder, error) {
	return s.list(ctx, `
		SELECT id, order_number, fires_at, message, channel, status, created_at, delivered_at
		FROM reminders WHERE status = $1 AND fires_at <= $2
		ORDER BY fires_at ASC`, model.ReminderPending, cutoff)
}

// Claim atomically moves a pending reminder to delivered. The conditional
// update is the at-most-once guard: only one caller wins the transition.
func (s *PgReminderStore) Claim(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reminders SET status = $1, delivered_at = $2
		WHERE id = $3 AND status = $4`,
		model.ReminderDelivered, time.Now().UTC(), id, model.ReminderPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Cancel marks a pending reminder cancelled. No-op otherwise.
func (s *PgReminderStore) Cancel(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reminders SET status = $1
		WHERE id = $2 AND status = $3`,
		model.ReminderCancelled, id, model.ReminderPending,
	)
	if err != nil {
		return false, fmt.Errorf("cancel reminder: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CancelAllFor cancels every pending reminder for an order number.
func (s *PgReminderStore) CancelAllFor(ctx context.Context, orderNumber string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reminders SET status = $1
		WHERE order_number = $2 AND status = $3`,
		model.ReminderCancelled, orderNumber, model.ReminderPending,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel reminders for order: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListPending returns all pending reminders ordered by fire time.
func (s *PgReminderStore) ListPending(ctx context.Context) ([]model.Reminder, error) {
	return s.list(ctx, `
		SELECT id, order_number, fires_at, message, channel, status, created_at, delivered_at
		FROM reminders WHERE status = $1
		ORDER BY fires_at ASC`, model.ReminderPending)
}

func (s *PgReminderStore) list(ctx context.Context, q string, args ...any) ([]model.Reminder, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var result []model.Reminder
	for rows.Next() {
		var r model.Reminder
		if err := rows.Scan(&r.ID, &r.OrderNumber, &r.FiresAt, &r.Message,
			&r.Channel, &r.Status, &r.CreatedAt, &r.DeliveredAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

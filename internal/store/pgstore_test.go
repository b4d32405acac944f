package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pkErr := &pgconn.PgError{Code: "23505", ConstraintName: "work_orders_pkey"}
	if !isUniqueViolation(pkErr) {
		t.Fatal("expected unique-violation error to be detected")
	}
	if !isUniqueViolation(fmt.Errorf("renumber work order: %w", pkErr)) {
		t.Fatal("expected wrapped unique-violation error to be detected")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign-key violation must not be treated as a duplicate")
	}
	if isUniqueViolation(errors.New("connection reset")) {
		t.Fatal("plain error must not be treated as a duplicate")
	}
}

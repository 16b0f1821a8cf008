// Package storeerr holds the error kinds shared by every store backend.
package storeerr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no row matches the id within the tenant.
	ErrNotFound = errors.New("record not found")
	// ErrConstraint is returned when the store rejects a write (unique, foreign key, check, not null).
	ErrConstraint = errors.New("constraint violation")
	// ErrUnavailable is returned for transport failures reaching the store.
	ErrUnavailable = errors.New("store unavailable")
)

// IsConstraintCode reports whether a SQLSTATE belongs to integrity or data exceptions (classes 23 and 22).
func IsConstraintCode(code string) bool {
	return strings.HasPrefix(code, "23") || strings.HasPrefix(code, "22")
}

// FromSQL classifies a database/sql error under op. Nil stays nil; context errors pass through unchanged.
func FromSQL(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if IsConstraintCode(pgErr.Code) {
			return fmt.Errorf("%s: %w: %s", op, ErrConstraint, pgErr.Message)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budgetit/internal/core"
)

// classify wraps err with the core error kind it represents.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	case isConstraintViolation(err):
		return fmt.Errorf("%s: %w: %w", op, core.ErrConstraintViolation, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, core.ErrStorage, err)
	}
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// Extended codes keep the primary code in the low byte.
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

package pgutils

import (
	"errors"
	"fmt"

	"github.com/fastprodman/coinescrow/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	CodeUniqueViolation  = "23505"
	CodeCheckViolation   = "23514"
	CodeLockNotAvailable = "55P03"
	CodeQueryCanceled    = "57014"
	CodeDeadlockDetected = "40P01"
)

// Classify tags a Postgres error with the matching domain sentinel while
// keeping the original error in the chain. Errors that already carry a
// domain sentinel, or are not Postgres errors, are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	var sentinel error

	switch pgErr.Code {
	case CodeUniqueViolation:
		sentinel = domain.ErrConflict
	case CodeCheckViolation:
		sentinel = domain.ErrValidation
	case CodeLockNotAvailable, CodeQueryCanceled, CodeDeadlockDetected:
		sentinel = domain.ErrLockTimeout
	default:
		return err
	}

	if errors.Is(err, sentinel) {
		return err
	}

	return fmt.Errorf("%w: %w", sentinel, err)
}

// IsUniqueViolation reports whether err is a unique_violation on the given
// constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != CodeUniqueViolation {
		return false
	}

	return constraint == "" || pgErr.ConstraintName == constraint
}

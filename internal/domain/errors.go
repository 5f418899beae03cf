// Package domain holds the error taxonomy shared by the stores and services.
//
// Store packages declare their own sentinels wrapping these, so callers can
// branch either on the precise cause (escrows.ErrDuplicateEscrow) or on its
// category (domain.ErrConflict).
package domain

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConflict            = errors.New("conflict")
	ErrInvalidState        = errors.New("invalid state")
	ErrLockTimeout         = errors.New("lock wait timeout")
	ErrNotFound            = errors.New("not found")
)

// IsRetryable reports whether err is safe to retry by re-invoking the same
// operation. Only lock waits that gave up are retryable; every other failure
// is a caller or data problem.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

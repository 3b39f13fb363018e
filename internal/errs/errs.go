package errs

import (
	cr "github.com/cockroachdb/errors"
)

// Failure categories shared by the stock and order packages. Callers match
// them with errors.Is; concrete errors are marked, not replaced.
var (
	// ErrLockContention: another holder owns the SKU lock. Retryable.
	ErrLockContention = cr.New("stock temporarily locked, retry")
	// ErrInsufficientStock: requested quantity exceeds what is available.
	ErrInsufficientStock = cr.New("insufficient stock")
	// ErrIllegalTransition: the item state machine rejected the change.
	ErrIllegalTransition = cr.New("illegal status transition")
	// ErrStoreUnavailable: the lock or quantity store could not be reached.
	ErrStoreUnavailable = cr.New("store unavailable")

	ErrNotFound     = cr.New("not found")
	ErrInvalidInput = cr.New("invalid input")
)

func New(msg string) error {
	return cr.New(msg)
}

func Newf(format string, args ...any) error {
	return cr.Newf(format, args...)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

// Mark attaches markErr to err so errors.Is(err, markErr) holds while the
// original message and cause chain are kept.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return cr.Mark(err, markErr)
}

// Unavailable wraps a store failure and marks it ErrStoreUnavailable.
func Unavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Mark(cr.Wrap(err, msg), ErrStoreUnavailable)
}

func Is(err, target error) bool {
	return cr.Is(err, target)
}

func As(err error, target any) bool {
	return cr.As(err, target)
}

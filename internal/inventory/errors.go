package inventory

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
)

type Reason string

const (
	ReasonInsufficientStock Reason = "INSUFFICIENT_STOCK"
	ReasonLocked            Reason = "LOCKED"
)

// ReservationError is the business failure of a reservation. It is always
// returned marked with errs.ErrInsufficientStock or errs.ErrLockContention.
type ReservationError struct {
	Reason Reason
	SKUs   []string
	cause  error
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("%s: %s", strings.ToLower(string(e.Reason)), strings.Join(e.SKUs, ","))
}

func (e *ReservationError) Unwrap() error { return e.cause }

// Retryable reports whether trying again later can succeed without new supply.
func (e *ReservationError) Retryable() bool { return e.Reason == ReasonLocked }

func insufficientStock(skus []string) error {
	return errs.Mark(&ReservationError{Reason: ReasonInsufficientStock, SKUs: skus}, errs.ErrInsufficientStock)
}

func locked(sku string, cause error) error {
	return errs.Mark(&ReservationError{Reason: ReasonLocked, SKUs: []string{sku}, cause: cause}, errs.ErrLockContention)
}

// AsReservationError extracts the business failure from err, if any.
func AsReservationError(err error) (*ReservationError, bool) {
	var re *ReservationError
	if errs.As(err, &re) {
		return re, true
	}
	return nil, false
}

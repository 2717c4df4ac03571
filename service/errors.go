package service

import (
	"errors"
	"fmt"
)

// Business-rule failures. None of these are retryable: the same call will
// fail the same way until the state of the world changes.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyOrder      = errors.New("transaction total must be greater than zero")
	ErrNotFound        = errors.New("transaction not found")
	ErrUnauthorized    = errors.New("unauthorized")
)

// InsufficientStockError carries the offending product name so the caller
// can tell the buyer which line blocked the order.
type InsufficientStockError struct {
	Product string
	Stock   int
	Wanted  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: have %d, want %d", e.Product, e.Stock, e.Wanted)
}

type CannotCancelError struct {
	Reason string
}

func (e *CannotCancelError) Error() string {
	return "cannot cancel transaction: " + e.Reason
}

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// transientError marks infrastructure failures (database, broker) that the
// caller may retry, as opposed to business-rule violations that it must not.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func markTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsRetryable reports whether the failure came from infrastructure rather
// than a business rule.
func IsRetryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

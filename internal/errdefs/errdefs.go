// internal/errdefs/errdefs.go

// Package errdefs defines the domain failures shared across the front desk.
// Every failure is recoverable at the session boundary; callers match them
// with errors.Is against the sentinels or errors.As against the structured types.
package errdefs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidState       = errors.New("operation not permitted in current session state")
	ErrUnknownVisitor     = errors.New("unknown visitor")
	ErrDuplicateVisitor   = errors.New("visitor already registered")
	ErrDuplicateVisit     = errors.New("visitor is already visiting")
	ErrNotVisiting        = errors.New("visitor is not visiting")
	ErrNoRecentSearch     = errors.New("no recent search")
	ErrCapacity           = errors.New("checkout limit exceeded")
	ErrOutstandingBalance = errors.New("outstanding balance")
	ErrUnavailable        = errors.New("no copies available")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// CapacityError reports a checkout batch that would exceed the per-visitor limit.
type CapacityError struct {
	Active    int
	Requested int
	Limit     int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %d active + %d requested > %d", ErrCapacity, e.Active, e.Requested, e.Limit)
}

func (e *CapacityError) Unwrap() error { return ErrCapacity }

// OutstandingBalanceError reports the unpaid balance that blocks a checkout.
type OutstandingBalanceError struct {
	Balance int
}

func (e *OutstandingBalanceError) Error() string {
	return fmt.Sprintf("%s: %d", ErrOutstandingBalance, e.Balance)
}

func (e *OutstandingBalanceError) Unwrap() error { return ErrOutstandingBalance }

// InvalidArgumentError names the offending argument.
type InvalidArgumentError struct {
	Name   string
	Value  string
	Reason string
}

// InvalidArgument builds an InvalidArgumentError.
func InvalidArgument(name, value, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Name: name, Value: value, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s %s: %s", ErrInvalidArgument, e.Name, e.Reason)
	}
	return fmt.Sprintf("%s %s=%q: %s", ErrInvalidArgument, e.Name, e.Value, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// BooksError attaches the book IDs a failure applies to. Err is one of the
// sentinels, typically ErrInvalidArgument or ErrUnavailable.
type BooksError struct {
	Err error
	IDs []string
}

func (e *BooksError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, strings.Join(e.IDs, ","))
}

func (e *BooksError) Unwrap() error { return e.Err }

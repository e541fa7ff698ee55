/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error kinds in one place. Callers branch with errors.Is/errors.As;
  the API layer maps them onto HTTP statuses.

ERROR CATEGORIES:
  1. Resolution errors   - id does not resolve, or wrong owner
  2. Validation errors   - missing/malformed protocol input
  3. Balance errors      - spend exceeds available points

PROPAGATION POLICY:
  Every error aborts the enclosing store transaction; no partial ledger
  mutation is ever persisted. InsufficientBalanceError with kind
  Retroactive is the only error designed for a caller-driven retry
  (re-invoke with AdjustBalance=true); everything else is terminal for
  the request.
*/
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when an account id does not resolve.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEntryNotFound is returned when a history entry id does not resolve.
	ErrEntryNotFound = errors.New("history entry not found")

	// ErrTransactionNotFound is returned when a transaction id does not resolve.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrAccessDenied is returned when a resolved entity belongs to a
	// different owner than the caller.
	ErrAccessDenied = errors.New("access denied")

	// ErrValidation is the base for all input validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientBalance is the base for both insufficient-balance kinds.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// =============================================================================
// INSUFFICIENT BALANCE - Two kinds, one recoverable
// =============================================================================

type InsufficientKind string

const (
	// InsufficientCurrent: spend exceeds the present-day balance. Hard fail.
	InsufficientCurrent InsufficientKind = "INSUFFICIENT_BALANCE_CURRENT"

	// InsufficientRetroactive: spend exceeds the balance at a past date.
	// Recoverable by retrying with SpendData.AdjustBalance = true.
	InsufficientRetroactive InsufficientKind = "INSUFFICIENT_BALANCE_RETROACTIVE"
)

// InsufficientBalanceError reports that a spend exceeds the balance at
// its date, with the computed shortfall for display.
type InsufficientBalanceError struct {
	Kind      InsufficientKind
	AccountID string
	Date      time.Time
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Shortfall() int64 { return e.Requested - e.Available }

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on %s: available %d, requested %d (shortfall %d)",
		e.Date.Format("2006-01-02"), e.Available, e.Requested, e.Shortfall())
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Recoverable reports whether a retry with AdjustBalance=true can succeed.
func (e *InsufficientBalanceError) Recoverable() bool {
	return e.Kind == InsufficientRetroactive
}

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError reports a missing or malformed protocol input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsClientError reports whether err is caused by invalid client input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrAccessDenied) ||
		IsNotFound(err)
}

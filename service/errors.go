package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	// ErrBalanceNotFound is returned when the user has no balance row of the
	// requested type. Balance rows are provisioned with the account; a missing
	// row is not created on the fly.
	ErrBalanceNotFound = errors.New("balance not found")

	// ErrBetNotFound is returned when no bet matches the (id, user) pair
	ErrBetNotFound = errors.New("bet not found")

	// ErrConcurrencyConflict is returned when the transaction lost a
	// serialization race and rolled back cleanly. The whole operation is safe
	// to retry.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrStorage wraps infrastructure failures from the underlying store.
	// Full detail is logged; callers see a generic failure.
	ErrStorage = errors.New("storage failure")
)

// InsufficientFundsError rejects a stake larger than the available balance
type InsufficientFundsError struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, required %s",
		e.Available.StringFixed(2), e.Required.StringFixed(2))
}

// ValidationError reports a malformed bet request. EventIndex is the index of
// the offending leg, or -1 when the problem is not tied to a specific leg.
type ValidationError struct {
	EventIndex int
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.EventIndex >= 0 {
		return fmt.Sprintf("invalid bet: event %d: %s", e.EventIndex, e.Reason)
	}
	return fmt.Sprintf("invalid bet: %s", e.Reason)
}

func validationErr(index int, format string, args ...any) *ValidationError {
	return &ValidationError{EventIndex: index, Reason: fmt.Sprintf(format, args...)}
}

// Postgres error codes that indicate a lost race rather than a broken request
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// classifyStoreError maps a repository error onto the service error taxonomy.
// Serialization failures and deadlocks become retryable conflicts; anything
// else is an infrastructure failure.
func classifyStoreError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrConcurrencyConflict, pgErr.Code)
		}
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

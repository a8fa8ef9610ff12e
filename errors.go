package udhaar

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("udhaar: not found")
	ErrAlreadyExists = errors.New("udhaar: already exists")
	ErrInvalidInput  = errors.New("udhaar: invalid input")

	// Customer errors
	ErrCustomerNotFound = errors.New("udhaar: customer not found")

	// Bill errors
	ErrBillNotFound = errors.New("udhaar: bill not found")
	ErrInvalidBill  = bill.ErrInvalid

	// Payment errors
	ErrInvalidAmount        = errors.New("udhaar: invalid payment amount")
	ErrDuplicateTransaction = errors.New("udhaar: transaction already recorded")

	// Ledger integrity errors
	ErrLedgerCorrupt = errors.New("udhaar: ledger state does not match journal")

	// Store errors
	ErrStoreNotReady    = errors.New("udhaar: store not ready")
	ErrStoreClosed      = errors.New("udhaar: store is closed")
	ErrStoreUnavailable = errors.New("udhaar: store unavailable")
	ErrMigrationFailed  = errors.New("udhaar: migration failed")
)

// InvalidBillError is returned by CreateBill when an item or the bill as a
// whole is rejected. It matches ErrInvalidBill.
type InvalidBillError = bill.InvalidError

// NegativeResultError is raised when an allocation would push a balance
// below zero. It signals a defect in the caller, not bad input.
type NegativeResultError = types.NegativeResultError

// InvalidAmountError is returned by RecordPayment for a non-positive or
// wrongly denominated amount. It matches ErrInvalidAmount.
type InvalidAmountError struct {
	Amount types.Money
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("udhaar: invalid payment amount %s: %s", e.Amount, e.Reason)
}

func (e *InvalidAmountError) Is(target error) bool { return target == ErrInvalidAmount }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("udhaar: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// PersistenceError wraps a storage failure during a mutation. The ledger
// state is unchanged when it is returned.
type PersistenceError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *PersistenceError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("udhaar: persist %s (%s): %v", e.Op, kind, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func newPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Transient: isTransient(err), Err: err}
}

func isTransient(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrStoreNotReady)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrBillNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried with the same transaction id.
func IsRetryable(err error) bool {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrStoreUnavailable)
}

// IsCorrupt reports whether err means stored bills disagree with the
// journal.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrLedgerCorrupt) || errors.Is(err, allocation.ErrJournalMismatch)
}

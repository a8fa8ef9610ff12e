// Package transaction defines the append-only journal of bill postings and
// payments. The journal is the record from which bill paid amounts and
// customer credit are derived.
package transaction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/types"
)

type Type string

const (
	TypeBill    Type = "bill"
	TypePayment Type = "payment"
)

type Method string

const (
	MethodCash Method = "cash"
	MethodBank Method = "bank"
	MethodCard Method = "card"
)

// ParseMethod accepts a method name case-insensitively. The empty string
// maps to cash.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodCash, nil
	case MethodCash, MethodBank, MethodCard:
		return m, nil
	default:
		return "", fmt.Errorf("transaction: unknown payment method %q", s)
	}
}

var ErrInvalid = errors.New("transaction: invalid journal entry")

type Transaction struct {
	types.Entity
	ID         id.TransactionID `json:"id"`
	CustomerID id.CustomerID    `json:"customer_id"`
	Seq        int64            `json:"seq"`
	Date       time.Time        `json:"date"`
	Type       Type             `json:"type"`
	Amount     types.Money      `json:"amount"`
	BillID     id.BillID        `json:"bill_id,omitempty"`
	Method     Method           `json:"method,omitempty"`
	// Unapplied is the part of a payment that found no outstanding bill
	// when it was posted.
	Unapplied types.Money       `json:"unapplied"`
	Notes     string            `json:"notes,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type ListOpts struct {
	Type   Type
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// Validate checks a journal entry read from storage or about to be written.
func (t *Transaction) Validate() error {
	if t.ID.IsNil() {
		return fmt.Errorf("%w: missing id", ErrInvalid)
	}
	if t.CustomerID.IsNil() {
		return fmt.Errorf("%w: %s: missing customer id", ErrInvalid, t.ID)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: %s: amount %s must be positive", ErrInvalid, t.ID, t.Amount)
	}
	switch t.Type {
	case TypeBill:
		if t.BillID.IsNil() {
			return fmt.Errorf("%w: %s: bill entry without bill id", ErrInvalid, t.ID)
		}
	case TypePayment:
		if !t.BillID.IsNil() {
			return fmt.Errorf("%w: %s: payment entry must not reference a bill", ErrInvalid, t.ID)
		}
		if _, err := ParseMethod(string(t.Method)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, t.ID, err)
		}
		if t.Unapplied.Currency != "" && t.Unapplied.Currency != t.Amount.Currency {
			return fmt.Errorf("%w: %s: unapplied currency mismatch", ErrInvalid, t.ID)
		}
		if t.Unapplied.IsNegative() || t.Unapplied.Amount > t.Amount.Amount {
			return fmt.Errorf("%w: %s: unapplied %s outside [0, %s]", ErrInvalid, t.ID, t.Unapplied, t.Amount)
		}
	default:
		return fmt.Errorf("%w: %s: unknown type %q", ErrInvalid, t.ID, t.Type)
	}
	return nil
}

// Clone returns a deep copy.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	out := *t
	if t.Metadata != nil {
		out.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

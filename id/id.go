// Package id defines TypeID-based identity types for all Udhaar entities.
//
// Every entity in Udhaar uses a single ID struct with a prefix that identifies
// the entity type. IDs are K-sortable (UUIDv7-based), globally unique,
// and URL-safe in the format "prefix_suffix".
package id

import (
	"fmt"
	"strings"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Udhaar entity types.
const (
	PrefixCustomer    Prefix = "cust"  // Shop customer
	PrefixBill        Prefix = "bill"  // Credit bill
	PrefixBillItem    Prefix = "bitem" // Bill line item
	PrefixTransaction Prefix = "txn"   // Journal entry (bill posting or payment)
)

// ID is the primary identifier type for all Udhaar entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "bill_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// CustomerID is a type-safe identifier for customers (prefix: "cust").
type CustomerID = ID

// BillID is a type-safe identifier for bills (prefix: "bill").
type BillID = ID

// BillItemID is a type-safe identifier for bill items (prefix: "bitem").
type BillItemID = ID

// TransactionID is a type-safe identifier for journal entries (prefix: "txn").
type TransactionID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewCustomerID generates a new unique customer ID.
func NewCustomerID() ID { return New(PrefixCustomer) }

// NewBillID generates a new unique bill ID.
func NewBillID() ID { return New(PrefixBill) }

// NewBillItemID generates a new unique bill item ID.
func NewBillItemID() ID { return New(PrefixBillItem) }

// NewTransactionID generates a new unique transaction ID.
func NewTransactionID() ID { return New(PrefixTransaction) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseCustomerID parses a string and validates the "cust" prefix.
func ParseCustomerID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCustomer) }

// ParseBillID parses a string and validates the "bill" prefix.
func ParseBillID(s string) (ID, error) { return ParseWithPrefix(s, PrefixBill) }

// ParseBillItemID parses a string and validates the "bitem" prefix.
func ParseBillItemID(s string) (ID, error) { return ParseWithPrefix(s, PrefixBillItem) }

// ParseTransactionID parses a string and validates the "txn" prefix.
func ParseTransactionID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTransaction) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// Compare orders two IDs by their string form. IDs of one prefix are
// K-sortable, so this follows generation order. The Nil ID sorts first.
func (i ID) Compare(other ID) int {
	return strings.Compare(i.String(), other.String())
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

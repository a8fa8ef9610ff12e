// Package bill defines credit bills and the rules that keep their paid
// amount and status consistent.
package bill

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/types"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid:
		return true
	}
	return false
}

// ErrInvalid is matched by every *InvalidError via errors.Is.
var ErrInvalid = errors.New("udhaar: invalid bill")

// InvalidError describes why a bill was rejected. Index is the offending
// item position, or -1 when the problem is not tied to an item.
type InvalidError struct {
	Field  string
	Index  int
	Reason string
}

func (e *InvalidError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("udhaar: invalid bill: items[%d].%s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("udhaar: invalid bill: %s: %s", e.Field, e.Reason)
}

func (e *InvalidError) Is(target error) bool { return target == ErrInvalid }

func invalid(field, reason string) *InvalidError {
	return &InvalidError{Field: field, Index: -1, Reason: reason}
}

func invalidItem(idx int, field, reason string) *InvalidError {
	return &InvalidError{Field: field, Index: idx, Reason: reason}
}

type Item struct {
	ID        id.BillItemID `json:"id"`
	Name      string        `json:"name"`
	Quantity  int64         `json:"quantity"`
	UnitPrice types.Money   `json:"unit_price"`
}

// Total returns quantity times unit price.
func (i Item) Total() types.Money { return i.UnitPrice.Multiply(i.Quantity) }

// ItemInput is a caller-supplied line before it is assigned an id.
type ItemInput struct {
	Name      string      `json:"name"`
	Quantity  int64       `json:"quantity"`
	UnitPrice types.Money `json:"unit_price"`
}

type Bill struct {
	types.Entity
	ID          id.BillID         `json:"id"`
	CustomerID  id.CustomerID     `json:"customer_id"`
	Seq         int64             `json:"seq"`
	Date        time.Time         `json:"date"`
	Items       []Item            `json:"items"`
	TotalAmount types.Money       `json:"total_amount"`
	PaidAmount  types.Money       `json:"paid_amount"`
	Status      Status            `json:"status"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type ListOpts struct {
	Statuses []Status
	From     time.Time
	To       time.Time
	// OverdueAsOf, when set, keeps only unpaid bills whose due date is
	// strictly before it.
	OverdueAsOf time.Time
	Limit       int
	Offset      int
}

// DeriveStatus maps a paid amount against a total to a bill status.
func DeriveStatus(total, paid types.Money) Status {
	switch {
	case paid.IsZero():
		return StatusPending
	case paid.Equal(total):
		return StatusPaid
	default:
		return StatusPartial
	}
}

// Build validates the item lines and assembles an unpaid bill for
// customerID. Nothing is assigned unless every line is valid.
func Build(customerID id.CustomerID, currency string, date time.Time, items []ItemInput) (*Bill, error) {
	currency = strings.ToLower(currency)
	if customerID.IsNil() {
		return nil, invalid("customer_id", "is required")
	}
	if len(items) == 0 {
		return nil, invalid("items", "at least one item is required")
	}

	total := types.Zero(currency)
	lines := make([]Item, 0, len(items))
	for i, in := range items {
		if strings.TrimSpace(in.Name) == "" {
			return nil, invalidItem(i, "name", "is required")
		}
		if in.Quantity <= 0 {
			return nil, invalidItem(i, "quantity", "must be positive")
		}
		if in.UnitPrice.IsNegative() {
			return nil, invalidItem(i, "unit_price", "must not be negative")
		}
		price := in.UnitPrice
		if price.Currency == "" {
			price.Currency = currency
		}
		if price.Currency != currency {
			return nil, invalidItem(i, "unit_price", fmt.Sprintf("currency %s does not match %s", price.Currency, currency))
		}
		line := Item{
			ID:        id.NewBillItemID(),
			Name:      strings.TrimSpace(in.Name),
			Quantity:  in.Quantity,
			UnitPrice: price,
		}
		lineTotal, err := price.MultiplyChecked(line.Quantity)
		if err != nil {
			return nil, invalidItem(i, "unit_price", "quantity x unit price out of range")
		}
		if total, err = total.AddChecked(lineTotal); err != nil {
			return nil, invalid("total_amount", "out of range")
		}
		lines = append(lines, line)
	}
	if !total.IsPositive() {
		return nil, invalid("total_amount", "must be positive")
	}

	return &Bill{
		Entity:      types.NewEntityAt(date),
		ID:          id.NewBillID(),
		CustomerID:  customerID,
		Date:        date.UTC(),
		Items:       lines,
		TotalAmount: total,
		PaidAmount:  types.Zero(currency),
		Status:      StatusPending,
	}, nil
}

// Remaining returns the outstanding balance.
func (b *Bill) Remaining() types.Money {
	return b.TotalAmount.Subtract(b.PaidAmount)
}

// IsOutstanding reports whether anything is still owed on the bill.
func (b *Bill) IsOutstanding() bool { return b.Status != StatusPaid }

// IsOverdue reports whether the bill is unpaid past its due date.
func (b *Bill) IsOverdue(asOf time.Time) bool {
	return b.DueDate != nil && b.IsOutstanding() && b.DueDate.Before(asOf)
}

// Apply records a payment portion against the bill. The paid amount can
// never exceed the total; an over-application fails with
// *types.NegativeResultError and leaves the bill untouched.
func (b *Bill) Apply(amount types.Money, at time.Time) error {
	if amount.IsNegative() {
		return &types.NegativeResultError{Left: types.Zero(amount.Currency), Right: amount.Negate()}
	}
	if _, err := b.Remaining().SubtractNonNegative(amount); err != nil {
		return err
	}
	b.PaidAmount = b.PaidAmount.Add(amount)
	b.Status = DeriveStatus(b.TotalAmount, b.PaidAmount)
	b.Touch(at)
	return nil
}

// Reset clears all payments so the bill can be rebuilt from the journal.
func (b *Bill) Reset() {
	b.PaidAmount = types.Zero(b.TotalAmount.Currency)
	b.Status = StatusPending
}

// Validate checks the structural invariants of a stored bill.
func (b *Bill) Validate() error {
	if b.ID.IsNil() {
		return invalid("id", "is required")
	}
	if b.CustomerID.IsNil() {
		return invalid("customer_id", "is required")
	}
	if len(b.Items) == 0 {
		return invalid("items", "at least one item is required")
	}
	currency := b.TotalAmount.Currency
	sum := types.Zero(currency)
	for i, it := range b.Items {
		if it.Quantity <= 0 {
			return invalidItem(i, "quantity", "must be positive")
		}
		if it.UnitPrice.IsNegative() {
			return invalidItem(i, "unit_price", "must not be negative")
		}
		if it.UnitPrice.Currency != currency {
			return invalidItem(i, "unit_price", "currency mismatch")
		}
		lineTotal, err := it.UnitPrice.MultiplyChecked(it.Quantity)
		if err != nil {
			return invalidItem(i, "unit_price", "quantity x unit price out of range")
		}
		if sum, err = sum.AddChecked(lineTotal); err != nil {
			return invalid("total_amount", "item sum out of range")
		}
	}
	if !sum.Equal(b.TotalAmount) {
		return invalid("total_amount", fmt.Sprintf("%s does not equal item sum %s", b.TotalAmount, sum))
	}
	if b.PaidAmount.Currency != currency {
		return invalid("paid_amount", "currency mismatch")
	}
	if b.PaidAmount.IsNegative() || b.PaidAmount.GreaterThan(b.TotalAmount) {
		return invalid("paid_amount", fmt.Sprintf("%s outside [0, %s]", b.PaidAmount, b.TotalAmount))
	}
	if want := DeriveStatus(b.TotalAmount, b.PaidAmount); b.Status != want {
		return invalid("status", fmt.Sprintf("%q should be %q", b.Status, want))
	}
	return nil
}

// Clone returns a deep copy.
func (b *Bill) Clone() *Bill {
	if b == nil {
		return nil
	}
	out := *b
	out.Items = append([]Item(nil), b.Items...)
	if b.DueDate != nil {
		d := *b.DueDate
		out.DueDate = &d
	}
	if b.Metadata != nil {
		out.Metadata = make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

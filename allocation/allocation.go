// Package allocation distributes payments across a customer's outstanding
// bills and rebuilds bill state from the transaction journal.
//
// Allocation is pure: it works on the bills it is handed and never touches
// storage. Callers pass clones when they need the originals preserved.
package allocation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/types"
)

// ErrNonPositiveAmount is returned when asked to allocate zero or less.
var ErrNonPositiveAmount = errors.New("allocation: amount must be positive")

// Policy decides which outstanding bills absorb a payment first.
type Policy interface {
	Name() string
	// Order returns the outstanding bills among bills in absorption order.
	// Fully paid bills are dropped.
	Order(bills []*bill.Bill) []*bill.Bill
}

// OldestFirst settles bills by creation date, oldest first. Bills with the
// same date are ordered by id.
type OldestFirst struct{}

func (OldestFirst) Name() string { return "oldest_first" }

func (OldestFirst) Order(bills []*bill.Bill) []*bill.Bill {
	out := outstanding(bills)
	slices.SortStableFunc(out, byAge)
	return out
}

// DueFirst settles bills with the earliest due date first. Bills without a
// due date come last, and ties fall back to OldestFirst.
type DueFirst struct{}

func (DueFirst) Name() string { return "due_first" }

func (DueFirst) Order(bills []*bill.Bill) []*bill.Bill {
	out := outstanding(bills)
	slices.SortStableFunc(out, func(a, b *bill.Bill) int {
		switch {
		case a.DueDate == nil && b.DueDate == nil:
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		default:
			if c := a.DueDate.Compare(*b.DueDate); c != 0 {
				return c
			}
		}
		return byAge(a, b)
	})
	return out
}

// PolicyByName resolves a policy name. The empty string selects OldestFirst.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "oldest_first":
		return OldestFirst{}, nil
	case "due_first":
		return DueFirst{}, nil
	default:
		return nil, fmt.Errorf("allocation: unknown policy %q", name)
	}
}

func byAge(a, b *bill.Bill) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return a.ID.Compare(b.ID)
}

func outstanding(bills []*bill.Bill) []*bill.Bill {
	out := make([]*bill.Bill, 0, len(bills))
	for _, b := range bills {
		if b.IsOutstanding() {
			out = append(out, b)
		}
	}
	return out
}

// Allocation is the portion of a payment applied to one bill.
type Allocation struct {
	BillID        id.BillID   `json:"bill_id"`
	Applied       types.Money `json:"applied"`
	BalanceBefore types.Money `json:"balance_before"`
	BalanceAfter  types.Money `json:"balance_after"`
	StatusBefore  bill.Status `json:"status_before"`
	StatusAfter   bill.Status `json:"status_after"`
}

// Result is the outcome of allocating one amount.
type Result struct {
	Allocations []Allocation `json:"allocations"`
	Allocated   types.Money  `json:"allocated"`
	Unapplied   types.Money  `json:"unapplied"`
}

// Settled returns the ids of bills that became fully paid.
func (r Result) Settled() []id.BillID {
	var out []id.BillID
	for _, a := range r.Allocations {
		if a.StatusAfter == bill.StatusPaid && a.StatusBefore != bill.StatusPaid {
			out = append(out, a.BillID)
		}
	}
	return out
}

// Allocate applies amount to bills in the order chosen by policy. Each bill
// takes min(remaining amount, bill balance). Whatever is left once every
// outstanding bill is settled is returned as Unapplied. Bills are mutated
// in place.
func Allocate(policy Policy, bills []*bill.Bill, amount types.Money, at time.Time) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, fmt.Errorf("%w: got %s", ErrNonPositiveAmount, amount)
	}
	if policy == nil {
		policy = OldestFirst{}
	}

	res := Result{Allocated: types.Zero(amount.Currency)}
	left := amount
	for _, b := range policy.Order(bills) {
		if left.IsZero() {
			break
		}
		balance := b.Remaining()
		applied := left.Min(balance)
		if applied.IsZero() {
			continue
		}
		before := b.Status
		if err := b.Apply(applied, at); err != nil {
			return Result{}, fmt.Errorf("allocation: bill %s: %w", b.ID, err)
		}
		next, err := left.SubtractNonNegative(applied)
		if err != nil {
			return Result{}, fmt.Errorf("allocation: payment remainder: %w", err)
		}
		left = next
		res.Allocated = res.Allocated.Add(applied)
		res.Allocations = append(res.Allocations, Allocation{
			BillID:        b.ID,
			Applied:       applied,
			BalanceBefore: balance,
			BalanceAfter:  b.Remaining(),
			StatusBefore:  before,
			StatusAfter:   b.Status,
		})
	}
	res.Unapplied = left
	return res, nil
}

// Package balance derives customer balances from bills and the journal.
// Every figure here is computed, never stored.
package balance

import (
	"time"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// Pending returns the sum of (total - paid) over every bill. Credit is not
// netted against it.
func Pending(currency string, bills []*bill.Bill) types.Money {
	sum := types.Zero(currency)
	for _, b := range bills {
		sum = sum.Add(b.Remaining())
	}
	return sum
}

// Overdue returns the unpaid remainder of bills whose due date is strictly
// before asOf.
func Overdue(currency string, bills []*bill.Bill, asOf time.Time) types.Money {
	sum := types.Zero(currency)
	for _, b := range bills {
		if b.IsOverdue(asOf) {
			sum = sum.Add(b.Remaining())
		}
	}
	return sum
}

// Credit returns money received that no bill has absorbed: total payments
// minus total paid across bills.
func Credit(currency string, bills []*bill.Bill, journal []*transaction.Transaction) types.Money {
	received := types.Zero(currency)
	for _, t := range journal {
		if t.Type == transaction.TypePayment {
			received = received.Add(t.Amount)
		}
	}
	applied := types.Zero(currency)
	for _, b := range bills {
		applied = applied.Add(b.PaidAmount)
	}
	return received.Subtract(applied)
}

// Summary is the per-customer roll-up shown on balance screens.
type Summary struct {
	CustomerID id.CustomerID       `json:"customer_id"`
	Billed     types.Money         `json:"billed"`
	Received   types.Money         `json:"received"`
	Pending    types.Money         `json:"pending"`
	Overdue    types.Money         `json:"overdue"`
	Credit     types.Money         `json:"credit"`
	Bills      int                 `json:"bills"`
	ByStatus   map[bill.Status]int `json:"by_status"`
	LastActive time.Time           `json:"last_active,omitzero"`
}

// Net is what the customer owes after standing credit. Negative means the
// shop owes the customer.
func (s Summary) Net() types.Money { return s.Pending.Subtract(s.Credit) }

// HasDues reports whether anything is still owed.
func (s Summary) HasDues() bool { return s.Pending.IsPositive() }

// Summarize rolls up one customer's bills and journal.
func Summarize(currency string, customerID id.CustomerID, bills []*bill.Bill, journal []*transaction.Transaction, asOf time.Time) Summary {
	s := Summary{
		CustomerID: customerID,
		Billed:     types.Zero(currency),
		Received:   types.Zero(currency),
		Pending:    Pending(currency, bills),
		Overdue:    Overdue(currency, bills, asOf),
		Credit:     Credit(currency, bills, journal),
		Bills:      len(bills),
		ByStatus:   make(map[bill.Status]int, 3),
	}
	for _, b := range bills {
		s.Billed = s.Billed.Add(b.TotalAmount)
		s.ByStatus[b.Status]++
	}
	for _, t := range journal {
		if t.Type == transaction.TypePayment {
			s.Received = s.Received.Add(t.Amount)
		}
		if t.Date.After(s.LastActive) {
			s.LastActive = t.Date
		}
	}
	return s
}

// Totals aggregates summaries across customers.
type Totals struct {
	Pending           types.Money         `json:"pending"`
	Overdue           types.Money         `json:"overdue"`
	Credit            types.Money         `json:"credit"`
	Billed            types.Money         `json:"billed"`
	Received          types.Money         `json:"received"`
	Customers         int                 `json:"customers"`
	CustomersWithDues int                 `json:"customers_with_dues"`
	Bills             int                 `json:"bills"`
	ByStatus          map[bill.Status]int `json:"by_status"`
	AsOf              time.Time           `json:"as_of"`
}

// Aggregate sums summaries into shop-wide totals.
func Aggregate(currency string, asOf time.Time, summaries []Summary) Totals {
	t := Totals{
		Pending:  types.Zero(currency),
		Overdue:  types.Zero(currency),
		Credit:   types.Zero(currency),
		Billed:   types.Zero(currency),
		Received: types.Zero(currency),
		ByStatus: map[bill.Status]int{bill.StatusPending: 0, bill.StatusPartial: 0, bill.StatusPaid: 0},
		AsOf:     asOf,
	}
	for _, s := range summaries {
		t.Customers++
		if s.HasDues() {
			t.CustomersWithDues++
		}
		t.Pending = t.Pending.Add(s.Pending)
		t.Overdue = t.Overdue.Add(s.Overdue)
		t.Credit = t.Credit.Add(s.Credit)
		t.Billed = t.Billed.Add(s.Billed)
		t.Received = t.Received.Add(s.Received)
		t.Bills += s.Bills
		for status, n := range s.ByStatus {
			t.ByStatus[status] += n
		}
	}
	return t
}

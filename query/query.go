// Package query filters and orders in-memory snapshots of bills, journal
// entries and customers.
package query

import (
	"slices"
	"strings"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// Bills returns the bills matching opts ordered by date, then by insertion
// sequence.
func Bills(bills []*bill.Bill, opts bill.ListOpts) []*bill.Bill {
	out := make([]*bill.Bill, 0, len(bills))
	for _, b := range bills {
		if matchBill(b, opts) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b *bill.Bill) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmpSeq(a.Seq, b.Seq)
	})
	return page(out, opts.Limit, opts.Offset)
}

func matchBill(b *bill.Bill, opts bill.ListOpts) bool {
	if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, b.Status) {
		return false
	}
	if !opts.From.IsZero() && b.Date.Before(opts.From) {
		return false
	}
	if !opts.To.IsZero() && b.Date.After(opts.To) {
		return false
	}
	if !opts.OverdueAsOf.IsZero() && !b.IsOverdue(opts.OverdueAsOf) {
		return false
	}
	return true
}

// Transactions returns journal entries matching opts ordered by date, then
// by insertion sequence.
func Transactions(journal []*transaction.Transaction, opts transaction.ListOpts) []*transaction.Transaction {
	out := make([]*transaction.Transaction, 0, len(journal))
	for _, t := range journal {
		if opts.Type != "" && t.Type != opts.Type {
			continue
		}
		if !opts.From.IsZero() && t.Date.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && t.Date.After(opts.To) {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b *transaction.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmpSeq(a.Seq, b.Seq)
	})
	return page(out, opts.Limit, opts.Offset)
}

// HistoryEntry is a journal entry with the customer's running net balance
// after it. Bills raise the balance and payments lower it, so a negative
// balance is credit held for the customer.
type HistoryEntry struct {
	Transaction *transaction.Transaction `json:"transaction"`
	Balance     types.Money              `json:"balance"`
}

// History builds the running balance over the journal in date order.
func History(currency string, journal []*transaction.Transaction) []HistoryEntry {
	ordered := Transactions(journal, transaction.ListOpts{})
	out := make([]HistoryEntry, 0, len(ordered))
	running := types.Zero(currency)
	for _, t := range ordered {
		switch t.Type {
		case transaction.TypeBill:
			running = running.Add(t.Amount)
		case transaction.TypePayment:
			running = running.Subtract(t.Amount)
		}
		out = append(out, HistoryEntry{Transaction: t, Balance: running})
	}
	return out
}

// MatchCustomer reports whether term matches the customer: a
// case-insensitive substring of the name, or a prefix of the phone digits.
// An empty term matches everyone.
func MatchCustomer(c *customer.Customer, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
		return true
	}
	digits := customer.NormalizePhone(term)
	if digits == "" || !isPhoneTerm(term) {
		return false
	}
	return strings.HasPrefix(customer.NormalizePhone(c.Phone), digits)
}

// isPhoneTerm reports whether term is made only of digits and the usual
// phone punctuation.
func isPhoneTerm(term string) bool {
	for _, r := range term {
		switch {
		case r >= '0' && r <= '9':
		case r == '+', r == '-', r == ' ', r == '(', r == ')':
		default:
			return false
		}
	}
	return true
}

// SearchCustomers filters customers by term, keeping their order.
func SearchCustomers(customers []*customer.Customer, term string) []*customer.Customer {
	out := make([]*customer.Customer, 0, len(customers))
	for _, c := range customers {
		if MatchCustomer(c, term) {
			out = append(out, c)
		}
	}
	return out
}

func cmpSeq(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

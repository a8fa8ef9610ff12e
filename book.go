package udhaar

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// book is one customer's ledger state: the customer record, its bills and
// its journal, both in Seq order. Readers hold mu.RLock, mutations hold
// mu.Lock for the whole read-modify-persist cycle.
type book struct {
	mu sync.RWMutex

	customer *customer.Customer
	bills    []*bill.Bill
	journal  []*transaction.Transaction
	txnIdx   map[string]*transaction.Transaction
	credit   types.Money
	seq      int64

	// evicted is set once the book is no longer authoritative.
	evicted bool
}

func newBook(c *customer.Customer, currency string) *book {
	return &book{
		customer: c,
		txnIdx:   make(map[string]*transaction.Transaction),
		credit:   types.Zero(currency),
	}
}

func (bk *book) evict() { bk.evicted = true }

// draft is a working copy of a book that a mutation edits before it is
// persisted. The book itself is only changed by commit.
type draft struct {
	bills   []*bill.Bill
	journal []*transaction.Transaction
	credit  types.Money
	seq     int64

	// pre-images of bills touched by the mutation, keyed by bill id
	priors map[string]*bill.Bill
}

func (bk *book) draft() *draft {
	d := &draft{
		bills:   make([]*bill.Bill, len(bk.bills)),
		journal: slices.Clone(bk.journal),
		credit:  bk.credit,
		seq:     bk.seq,
		priors:  make(map[string]*bill.Bill),
	}
	for i, b := range bk.bills {
		d.bills[i] = b.Clone()
	}
	return d
}

func (d *draft) nextSeq() int64 {
	d.seq++
	return d.seq
}

// totalFits reports whether the sum of the customer's journal entries of
// type typ still fits in int64 minor units once amount is added.
func (d *draft) totalFits(typ transaction.Type, amount types.Money) bool {
	sum := amount
	for _, t := range d.journal {
		if t.Type != typ {
			continue
		}
		var err error
		if sum, err = sum.AddChecked(t.Amount); err != nil {
			return false
		}
	}
	return true
}

func (d *draft) billByID(billID id.BillID) *bill.Bill {
	for _, b := range d.bills {
		if b.ID.String() == billID.String() {
			return b
		}
	}
	return nil
}

// commit installs a persisted draft as the book's state.
func (bk *book) commit(d *draft) {
	for _, t := range d.journal[len(bk.journal):] {
		bk.txnIdx[t.ID.String()] = t
	}
	bk.bills = d.bills
	bk.journal = d.journal
	bk.credit = d.credit
	bk.seq = d.seq
}

func (bk *book) billsSnapshot() []*bill.Bill {
	out := make([]*bill.Bill, len(bk.bills))
	for i, b := range bk.bills {
		out[i] = b.Clone()
	}
	return out
}

func (bk *book) journalSnapshot() []*transaction.Transaction {
	out := make([]*transaction.Transaction, len(bk.journal))
	for i, t := range bk.journal {
		out[i] = t.Clone()
	}
	return out
}

func (bk *book) findBill(billID id.BillID) *bill.Bill {
	for _, b := range bk.bills {
		if b.ID.String() == billID.String() {
			return b
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Loading
// ──────────────────────────────────────────────────

// loadBook reads a customer's rows and converts them into a validated book.
// Rows that break a model invariant, or a journal that does not reproduce
// the stored bills, fail with ErrLedgerCorrupt.
func (l *Ledger) loadBook(ctx context.Context, customerID id.CustomerID) (*book, error) {
	c, err := l.store.FetchCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	bills, err := l.store.FetchBills(ctx, customerID)
	if err != nil {
		return nil, err
	}
	journal, err := l.store.FetchTransactions(ctx, customerID)
	if err != nil {
		return nil, err
	}

	bk, err := l.buildBook(c, bills, journal)
	if err != nil {
		l.logger.Error("book failed validation",
			"customer_id", customerID.String(),
			"error", err,
		)
		return nil, err
	}
	return bk, nil
}

func (l *Ledger) buildBook(c *customer.Customer, bills []*bill.Bill, journal []*transaction.Transaction) (*book, error) {
	if err := c.Validate(); err != nil {
		return nil, corrupt("customer %s: %w", c.ID, err)
	}
	owner := c.ID.String()

	seen := make(map[int64]string, len(journal))
	for _, b := range bills {
		if err := b.Validate(); err != nil {
			return nil, corrupt("bill %s: %w", b.ID, err)
		}
		if b.CustomerID.String() != owner {
			return nil, corrupt("bill %s belongs to %s", b.ID, b.CustomerID)
		}
		if b.TotalAmount.Currency != l.currency {
			return nil, corrupt("bill %s is in %s, ledger uses %s", b.ID, b.TotalAmount.Currency, l.currency)
		}
	}
	for _, t := range journal {
		if err := t.Validate(); err != nil {
			return nil, corrupt("%w", err)
		}
		if t.CustomerID.String() != owner {
			return nil, corrupt("transaction %s belongs to %s", t.ID, t.CustomerID)
		}
		if t.Amount.Currency != l.currency {
			return nil, corrupt("transaction %s is in %s, ledger uses %s", t.ID, t.Amount.Currency, l.currency)
		}
		if prev, dup := seen[t.Seq]; dup {
			return nil, corrupt("transactions %s and %s share seq %d", prev, t.ID, t.Seq)
		}
		seen[t.Seq] = t.ID.String()
	}

	state, err := allocation.Replay(l.policy, l.creditPolicy, l.currency, bills, journal)
	if err != nil {
		return nil, corrupt("%w", err)
	}
	if err := state.Compare(bills); err != nil {
		return nil, corrupt("%w", err)
	}

	bk := newBook(c, l.currency)
	bk.bills = slices.Clone(bills)
	slices.SortStableFunc(bk.bills, func(a, b *bill.Bill) int { return cmpInt64(a.Seq, b.Seq) })
	bk.journal = slices.Clone(journal)
	slices.SortStableFunc(bk.journal, func(a, b *transaction.Transaction) int { return cmpInt64(a.Seq, b.Seq) })
	for _, t := range bk.journal {
		bk.txnIdx[t.ID.String()] = t
		bk.seq = max(bk.seq, t.Seq)
	}
	for _, b := range bk.bills {
		bk.seq = max(bk.seq, b.Seq)
	}
	bk.credit = state.Credit
	return bk, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrLedgerCorrupt, fmt.Errorf(format, args...))
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// sameState reports whether two books hold identical bill amounts and
// journals.
func sameState(a, b *book) error {
	if len(a.journal) != len(b.journal) {
		return fmt.Errorf("%d journal entries cached, %d stored", len(a.journal), len(b.journal))
	}
	for i := range a.journal {
		if a.journal[i].ID.String() != b.journal[i].ID.String() {
			return fmt.Errorf("journal entry %d is %s cached, %s stored", i, a.journal[i].ID, b.journal[i].ID)
		}
	}
	if len(a.bills) != len(b.bills) {
		return fmt.Errorf("%d bills cached, %d stored", len(a.bills), len(b.bills))
	}
	for i := range a.bills {
		x, y := a.bills[i], b.bills[i]
		if x.ID.String() != y.ID.String() || !x.PaidAmount.Equal(y.PaidAmount) || x.Status != y.Status {
			return fmt.Errorf("bill %s differs between cache and store", x.ID)
		}
	}
	if !a.credit.Equal(b.credit) {
		return fmt.Errorf("credit %s cached, %s stored", a.credit, b.credit)
	}
	return nil
}

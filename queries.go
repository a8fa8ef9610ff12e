package udhaar

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/xraph/udhaar/balance"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/query"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// GetCustomerBalance returns the customer's pending balance: the unpaid
// remainder of every bill. Standing credit is reported separately by
// Credit.
func (l *Ledger) GetCustomerBalance(ctx context.Context, customerID id.CustomerID) (types.Money, error) {
	bk, err := l.rlockBook(ctx, customerID)
	if err != nil {
		return types.Money{}, err
	}
	defer bk.mu.RUnlock()
	return balance.Pending(l.currency, bk.bills), nil
}

// OverdueAmount returns the unpaid remainder of bills due before asOf.
func (l *Ledger) OverdueAmount(ctx context.Context, customerID id.CustomerID, asOf time.Time) (types.Money, error) {
	bk, err := l.rlockBook(ctx, customerID)
	if err != nil {
		return types.Money{}, err
	}
	defer bk.mu.RUnlock()
	return balance.Overdue(l.currency, bk.bills, asOf), nil
}

// Credit returns payments the customer made that no bill has absorbed.
func (l *Ledger) Credit(ctx context.Context, customerID id.CustomerID) (types.Money, error) {
	bk, err := l.rlockBook(ctx, customerID)
	if err != nil {
		return types.Money{}, err
	}
	defer bk.mu.RUnlock()
	return bk.credit, nil
}

// Summary rolls up one customer's balances as of asOf.
func (l *Ledger) Summary(ctx context.Context, customerID id.CustomerID, asOf time.Time) (balance.Summary, error) {
	bk, err := l.rlockBook(ctx, customerID)
	if err != nil {
		return balance.Summary{}, err
	}
	defer bk.mu.RUnlock()
	if asOf.IsZero() {
		asOf = l.now()
	}
	return balance.Summarize(l.currency, customerID, bk.bills, bk.journal, asOf), nil
}

// ListTransactions returns journal entries matching opts, ordered by date
// and then by insertion order.
func (l *Ledger) ListTransactions(ctx context.Context, customerID id.CustomerID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	bk, err := l.rlockBook(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer bk.mu.RUnlock()
	return query.Transactions(bk.journalSnapshot(), opts), nil
}

// History returns the journal with the running balance after each entry.
func (l *Ledger) History(ctx context.Context, customerID id.CustomerID) ([]query.HistoryEntry, error) {
	bk, err := l.rlockBook(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer bk.mu.RUnlock()
	return query.History(l.currency, bk.journalSnapshot()), nil
}

// Dashboard returns shop-wide totals as of asOf. A zero asOf means the
// start of the current UTC day. The result is cached until the next
// mutation.
func (l *Ledger) Dashboard(ctx context.Context, asOf time.Time) (balance.Totals, error) {
	if asOf.IsZero() {
		asOf = l.now().UTC().Truncate(24 * time.Hour)
	}
	if t, ok := l.dashboard.get(asOf); ok {
		return t, nil
	}

	gen := l.dashboard.generation()
	customers, err := l.allCustomers(ctx)
	if err != nil {
		return balance.Totals{}, err
	}
	summaries := make([]balance.Summary, 0, len(customers))
	for _, c := range customers {
		s, err := l.Summary(ctx, c.ID, asOf)
		if err != nil {
			return balance.Totals{}, err
		}
		summaries = append(summaries, s)
	}

	totals := balance.Aggregate(l.currency, asOf, summaries)
	l.dashboard.put(gen, asOf, totals)
	return cloneTotals(totals), nil
}

// Verify replays the customer's stored journal and checks it against the
// stored bills and the loaded book. A mismatch returns ErrLedgerCorrupt and
// drops the loaded book.
func (l *Ledger) Verify(ctx context.Context, customerID id.CustomerID) error {
	bk, err := l.lockBook(ctx, customerID)
	if err != nil {
		return err
	}
	defer bk.mu.Unlock()

	fresh, err := l.loadBook(ctx, customerID)
	if err != nil {
		if IsCorrupt(err) {
			l.dropBook(bk)
		}
		return err
	}
	if err := sameState(bk, fresh); err != nil {
		l.dropBook(bk)
		l.logger.Error("loaded book diverges from store",
			"customer_id", customerID.String(),
			"error", err,
		)
		return corrupt("customer %s: %w", customerID, err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Dashboard cache
// ──────────────────────────────────────────────────

type dashboardCache struct {
	mu     sync.Mutex
	gen    uint64
	valid  bool
	asOf   time.Time
	totals balance.Totals
}

func (c *dashboardCache) get(asOf time.Time) (balance.Totals, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || !c.asOf.Equal(asOf) {
		return balance.Totals{}, false
	}
	return cloneTotals(c.totals), true
}

func (c *dashboardCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// put stores totals computed at generation gen, unless a mutation has
// happened since.
func (c *dashboardCache) put(gen uint64, asOf time.Time, totals balance.Totals) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.valid = true
	c.asOf = asOf
	c.totals = totals
}

func (c *dashboardCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.valid = false
}

func cloneTotals(t balance.Totals) balance.Totals {
	t.ByStatus = maps.Clone(t.ByStatus)
	return t
}

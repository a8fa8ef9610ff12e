package udhaar

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/query"
	"github.com/xraph/udhaar/store"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// BillInput describes a bill to create. Date defaults to now. Passing the
// TransactionID of an earlier attempt makes a retry safe: if that entry is
// already in the journal nothing is created.
type BillInput struct {
	CustomerID    id.CustomerID
	Items         []bill.ItemInput
	Date          time.Time
	DueDate       *time.Time
	Notes         string
	Metadata      map[string]string
	TransactionID id.TransactionID
}

// CreateBill records a bill and its journal posting as one unit. Under
// CreditAutoApply any standing credit is applied in the same unit.
func (l *Ledger) CreateBill(ctx context.Context, in BillInput) (*bill.Bill, error) {
	now := l.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	b, err := bill.Build(in.CustomerID, l.currency, date, in.Items)
	if err != nil {
		return nil, err
	}
	if in.DueDate != nil {
		due := in.DueDate.UTC()
		if due.Before(b.Date) {
			return nil, &InvalidBillError{Field: "due_date", Index: -1, Reason: "must not be before the bill date"}
		}
		b.DueDate = &due
	}
	txnID, err := transactionID(in.TransactionID)
	if err != nil {
		return nil, err
	}
	b.Entity = types.NewEntityAt(now)
	b.Notes = strings.TrimSpace(in.Notes)
	if len(in.Metadata) > 0 {
		b.Metadata = maps.Clone(in.Metadata)
	}

	bk, err := l.lockBook(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	if prior, dup := bk.txnIdx[txnID.String()]; dup {
		existing := bk.findBill(prior.BillID)
		bk.mu.Unlock()
		return existing.Clone(), fmt.Errorf("transaction %s: %w", txnID, ErrDuplicateTransaction)
	}

	d := bk.draft()
	if !d.totalFits(transaction.TypeBill, b.TotalAmount) {
		bk.mu.Unlock()
		return nil, &InvalidBillError{Field: "total_amount", Index: -1, Reason: "customer billed total out of range"}
	}
	b.Seq = d.nextSeq()
	posting := &transaction.Transaction{
		Entity:     types.NewEntityAt(now),
		ID:         txnID,
		CustomerID: b.CustomerID,
		Seq:        b.Seq,
		Date:       b.Date,
		Type:       transaction.TypeBill,
		Amount:     b.TotalAmount,
		BillID:     b.ID,
		Notes:      b.Notes,
	}
	d.bills = append(d.bills, b)
	d.journal = append(d.journal, posting)

	var applied allocation.Result
	if l.creditPolicy == allocation.CreditAutoApply && d.credit.IsPositive() {
		for _, x := range d.bills {
			d.priors[x.ID.String()] = x.Clone()
		}
		applied, err = allocation.Allocate(l.policy, d.bills, d.credit, now)
		if err != nil {
			bk.mu.Unlock()
			l.logger.Error("credit allocation guard violated",
				"customer_id", b.CustomerID.String(),
				"bill_id", b.ID.String(),
				"error", err,
			)
			return nil, err
		}
		d.credit = applied.Unapplied
	}

	batch := store.NewBatch(b.CustomerID, now)
	batch.NewBills = []*bill.Bill{b}
	for _, a := range applied.Allocations {
		if a.BillID.String() == b.ID.String() {
			continue
		}
		batch.UpdateBill(d.priors[a.BillID.String()], d.billByID(a.BillID))
	}
	batch.Transactions = []*transaction.Transaction{posting}

	if err := l.persist(ctx, "create_bill", bk, batch); err != nil {
		bk.mu.Unlock()
		return nil, err
	}
	bk.commit(d)
	out := b.Clone()
	settled := settledBills(d, applied)
	bk.mu.Unlock()

	l.logger.Info("bill created",
		"customer_id", out.CustomerID.String(),
		"bill_id", out.ID.String(),
		"total", out.TotalAmount.String(),
		"items", len(out.Items),
		"credit_applied", applied.Allocated.Amount,
	)
	l.plugins.EmitBillCreated(ctx, out.Clone(), posting.Clone())
	for _, s := range settled {
		l.plugins.EmitBillSettled(ctx, s)
	}

	return out, nil
}

// GetBill returns one of a customer's bills.
func (l *Ledger) GetBill(ctx context.Context, customerID id.CustomerID, billID id.BillID) (*bill.Bill, error) {
	bk, err := l.rlockBook(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer bk.mu.RUnlock()

	b := bk.findBill(billID)
	if b == nil {
		return nil, fmt.Errorf("bill %s: %w", billID, ErrBillNotFound)
	}
	return b.Clone(), nil
}

// ListBills returns a customer's bills matching opts, ordered by date and
// then by creation order.
func (l *Ledger) ListBills(ctx context.Context, customerID id.CustomerID, opts bill.ListOpts) ([]*bill.Bill, error) {
	bk, err := l.rlockBook(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer bk.mu.RUnlock()

	return query.Bills(bk.billsSnapshot(), opts), nil
}

func transactionID(supplied id.TransactionID) (id.TransactionID, error) {
	if supplied.IsNil() {
		return id.NewTransactionID(), nil
	}
	if supplied.Prefix() != id.PrefixTransaction {
		return id.Nil, ValidationError{Field: "transaction_id", Message: fmt.Sprintf("expected prefix %q", id.PrefixTransaction)}
	}
	return supplied, nil
}

// settledBills returns clones of the draft bills that res fully paid.
func settledBills(d *draft, res allocation.Result) []*bill.Bill {
	ids := res.Settled()
	out := make([]*bill.Bill, 0, len(ids))
	for _, billID := range ids {
		if b := d.billByID(billID); b != nil {
			out = append(out, b.Clone())
		}
	}
	return out
}

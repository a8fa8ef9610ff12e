package udhaar

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/store"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// PaymentInput describes a payment received from a customer. An empty
// Method is cash and a zero Date is now. Reuse TransactionID when retrying
// a payment whose outcome is unknown.
type PaymentInput struct {
	CustomerID    id.CustomerID
	Amount        types.Money
	Method        transaction.Method
	Notes         string
	Date          time.Time
	Metadata      map[string]string
	TransactionID id.TransactionID
}

// PaymentReceipt is the outcome of RecordPayment: the journal entry, how it
// was split across bills, and the customer's standing credit afterwards.
type PaymentReceipt struct {
	Transaction *transaction.Transaction `json:"transaction"`
	Allocations []allocation.Allocation  `json:"allocations"`
	Credit      types.Money              `json:"credit"`
}

// Unapplied is the part of the payment no bill absorbed.
func (r *PaymentReceipt) Unapplied() types.Money { return r.Transaction.Unapplied }

// RecordPayment applies a payment to the customer's outstanding bills with
// the configured allocation policy and appends a single payment entry to
// the journal. The bill updates and the entry are persisted as one unit.
func (l *Ledger) RecordPayment(ctx context.Context, in PaymentInput) (*PaymentReceipt, error) {
	amount := in.Amount
	if amount.Currency == "" {
		amount.Currency = l.currency
	}
	if amount.Currency != l.currency {
		return nil, &InvalidAmountError{Amount: amount, Reason: fmt.Sprintf("currency must be %s", l.currency)}
	}
	if !amount.IsPositive() {
		return nil, &InvalidAmountError{Amount: amount, Reason: "must be positive"}
	}
	method, err := transaction.ParseMethod(string(in.Method))
	if err != nil {
		return nil, ValidationError{Field: "method", Message: err.Error()}
	}
	txnID, err := transactionID(in.TransactionID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	bk, err := l.lockBook(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	if prior, dup := bk.txnIdx[txnID.String()]; dup {
		receipt := &PaymentReceipt{Transaction: prior.Clone(), Credit: bk.credit}
		bk.mu.Unlock()
		return receipt, fmt.Errorf("transaction %s: %w", txnID, ErrDuplicateTransaction)
	}

	d := bk.draft()
	if !d.totalFits(transaction.TypePayment, amount) {
		bk.mu.Unlock()
		return nil, &InvalidAmountError{Amount: amount, Reason: "customer received total out of range"}
	}
	for _, b := range d.bills {
		if b.IsOutstanding() {
			d.priors[b.ID.String()] = b.Clone()
		}
	}

	res, err := allocation.Allocate(l.policy, d.bills, amount, now)
	if err != nil {
		bk.mu.Unlock()
		l.logger.Error("payment allocation guard violated",
			"customer_id", in.CustomerID.String(),
			"amount", amount.String(),
			"error", err,
		)
		return nil, err
	}

	payment := &transaction.Transaction{
		Entity:     types.NewEntityAt(now),
		ID:         txnID,
		CustomerID: in.CustomerID,
		Seq:        d.nextSeq(),
		Date:       date.UTC(),
		Type:       transaction.TypePayment,
		Amount:     amount,
		Method:     method,
		Unapplied:  res.Unapplied,
		Notes:      strings.TrimSpace(in.Notes),
	}
	if len(in.Metadata) > 0 {
		payment.Metadata = maps.Clone(in.Metadata)
	}
	d.journal = append(d.journal, payment)
	d.credit = d.credit.Add(res.Unapplied)

	batch := store.NewBatch(in.CustomerID, now)
	for _, a := range res.Allocations {
		batch.UpdateBill(d.priors[a.BillID.String()], d.billByID(a.BillID))
	}
	batch.Transactions = []*transaction.Transaction{payment}

	if err := l.persist(ctx, "record_payment", bk, batch); err != nil {
		bk.mu.Unlock()
		return nil, err
	}
	bk.commit(d)
	receipt := &PaymentReceipt{
		Transaction: payment.Clone(),
		Allocations: res.Allocations,
		Credit:      d.credit,
	}
	settled := settledBills(d, res)
	bk.mu.Unlock()

	l.logger.Info("payment recorded",
		"customer_id", in.CustomerID.String(),
		"transaction_id", txnID.String(),
		"amount", amount.String(),
		"allocated", res.Allocated.String(),
		"unapplied", res.Unapplied.String(),
		"bills", len(res.Allocations),
	)
	l.plugins.EmitPaymentRecorded(ctx, payment.Clone(), receipt.Allocations)
	for _, s := range settled {
		l.plugins.EmitBillSettled(ctx, s)
	}
	if res.Unapplied.IsPositive() {
		l.plugins.EmitCreditRecorded(ctx, in.CustomerID, res.Unapplied, receipt.Credit)
	}

	return receipt, nil
}

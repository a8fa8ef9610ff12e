// Package udhaar provides a shop-credit ledger for Go applications.
//
// Udhaar tracks, per customer, the bills a shop has issued and the payments
// it has received, and always knows how much is still owed. It provides:
//
//   - Integer minor-unit money, with no floating point anywhere
//   - Deterministic oldest-first payment allocation across open bills
//   - An append-only journal that reproduces every bill's paid amount
//   - Atomic mutations: a failed store write leaves nothing behind
//   - Derived balances, overdue amounts and shop-wide dashboard totals
//   - Pluggable storage (memory, PostgreSQL, SQLite, MongoDB via Grove)
//
// # Quick Start
//
// Create a ledger with your preferred store:
//
//	import (
//	    "github.com/xraph/udhaar"
//	    "github.com/xraph/udhaar/store/memory"
//	)
//
//	l := udhaar.New(memory.New(), udhaar.WithCurrency("inr"))
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Customers own bills and payments:
//
//	c, err := l.RegisterCustomer(ctx, udhaar.CustomerInput{
//	    Name:  "Asha",
//	    Phone: "+91 98200 12345",
//	})
//
// A bill is created together with its items and posted to the journal:
//
//	b, err := l.CreateBill(ctx, udhaar.BillInput{
//	    CustomerID: c.ID,
//	    Items: []udhaar.ItemInput{
//	        {Name: "Rice 5kg", Quantity: 2, UnitPrice: udhaar.INR(45000)},
//	    },
//	})
//
// A payment settles the oldest open bills first. Anything left over is
// held as credit for the customer:
//
//	receipt, err := l.RecordPayment(ctx, udhaar.PaymentInput{
//	    CustomerID: c.ID,
//	    Amount:     udhaar.INR(50000),
//	    Method:     udhaar.MethodCash,
//	})
//
// Balances are always derived from bill state:
//
//	pending, err := l.GetCustomerBalance(ctx, c.ID)
//	overdue, err := l.OverdueAmount(ctx, c.ID, time.Now())
//
// # Consistency
//
// Mutations on one customer are serialized. Each mutation is computed on a
// copy of the customer's book and only installed once the store accepts the
// whole batch, so readers never see a half-applied payment. Books loaded
// from the store are replayed from the journal and rejected with
// ErrLedgerCorrupt if the stored bills disagree with it.
//
// Retries are safe when the caller reuses the TransactionID of the first
// attempt: an entry already in the journal yields ErrDuplicateTransaction
// and the original record.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	cust_01h2xcejqtf2nbrexx3vqjhp41  // Customer ID
//	bill_01h2xcejqtf2nbrexx3vqjhp41  // Bill ID
//	txn_01h455vb4pex5vsknk084sn02q   // Transaction ID
//
// TypeIDs are K-sortable, which gives bills created on the same date a
// stable creation order.
package udhaar

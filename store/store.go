package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/transaction"
)

// Store is the unified storage interface for all Udhaar records.
//
// Reads hand back a customer's full book. Writes go through Persist, which
// receives every row touched by one ledger operation so that a backend can
// apply them together.
type Store interface {
	// Customer methods
	FetchCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error)
	ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error)

	// Book methods. Bills and transactions come back in insertion (Seq) order.
	FetchBills(ctx context.Context, customerID id.CustomerID) ([]*bill.Bill, error)
	FetchTransactions(ctx context.Context, customerID id.CustomerID) ([]*transaction.Transaction, error)

	// Persist writes a mutation batch. Implementations must either apply the
	// whole batch or leave storage as it was before the call.
	Persist(ctx context.Context, batch *MutationBatch) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// MutationBatch is the set of rows written by a single ledger operation.
type MutationBatch struct {
	ID         uuid.UUID
	CustomerID id.CustomerID
	CreatedAt  time.Time

	// Customer is set when the operation registers a customer.
	Customer *customer.Customer

	NewBills     []*bill.Bill
	UpdatedBills []*bill.Bill
	// PriorBills holds the pre-images of UpdatedBills, keyed by bill id, for
	// backends that undo a partially applied batch.
	PriorBills map[string]*bill.Bill

	Transactions []*transaction.Transaction
}

// NewBatch starts an empty batch for customerID.
func NewBatch(customerID id.CustomerID, at time.Time) *MutationBatch {
	return &MutationBatch{
		ID:         uuid.New(),
		CustomerID: customerID,
		CreatedAt:  at,
		PriorBills: make(map[string]*bill.Bill),
	}
}

// UpdateBill records next as an update and keeps prior as its pre-image.
// Repeated updates of one bill keep the first pre-image.
func (b *MutationBatch) UpdateBill(prior, next *bill.Bill) {
	key := next.ID.String()
	if _, seen := b.PriorBills[key]; seen {
		for i, u := range b.UpdatedBills {
			if u.ID.String() == key {
				b.UpdatedBills[i] = next
			}
		}
		return
	}
	if b.PriorBills == nil {
		b.PriorBills = make(map[string]*bill.Bill)
	}
	b.PriorBills[key] = prior
	b.UpdatedBills = append(b.UpdatedBills, next)
}

// IsEmpty reports whether the batch carries no rows.
func (b *MutationBatch) IsEmpty() bool {
	return b.Customer == nil && len(b.NewBills) == 0 && len(b.UpdatedBills) == 0 && len(b.Transactions) == 0
}

// Size is the number of rows in the batch.
func (b *MutationBatch) Size() int {
	n := len(b.NewBills) + len(b.UpdatedBills) + len(b.Transactions)
	if b.Customer != nil {
		n++
	}
	return n
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/store"
	"github.com/xraph/udhaar/transaction"
)

// FailureFunc decides whether a Persist call should fail. A non-nil return
// aborts the batch before anything is written.
type FailureFunc func(batch *store.MutationBatch) error

type Store struct {
	mu     sync.RWMutex
	closed bool

	// Customer storage, plus registration order for listing
	customers map[string]*customer.Customer
	order     []string

	// Per-customer books in Seq order
	bills   map[string][]*bill.Bill
	billIdx map[string]*bill.Bill
	txns    map[string][]*transaction.Transaction
	txnIdx  map[string]struct{}

	fail    FailureFunc
	batches int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		customers: make(map[string]*customer.Customer),
		bills:     make(map[string][]*bill.Bill),
		billIdx:   make(map[string]*bill.Bill),
		txns:      make(map[string][]*transaction.Transaction),
		txnIdx:    make(map[string]struct{}),
	}
}

// FailWith installs fn to be consulted on every Persist. Pass nil to clear.
func (s *Store) FailWith(fn FailureFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fn
}

// FailNext makes the next Persist call fail with err.
func (s *Store) FailNext(err error) {
	var once sync.Once
	s.FailWith(func(*store.MutationBatch) error {
		var out error
		once.Do(func() { out = err })
		return out
	})
}

// Batches returns the number of batches committed so far.
func (s *Store) Batches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches
}

// Customer Store implementation
func (s *Store) FetchCustomer(_ context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, udhaar.ErrStoreClosed
	}
	if c, ok := s.customers[customerID.String()]; ok {
		return c.Clone(), nil
	}
	return nil, udhaar.ErrCustomerNotFound
}

func (s *Store) ListCustomers(_ context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, udhaar.ErrStoreClosed
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(s.order) {
		start = len(s.order)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(s.order) {
		end = len(s.order)
	}

	result := make([]*customer.Customer, 0, end-start)
	for _, key := range s.order[start:end] {
		result = append(result, s.customers[key].Clone())
	}
	return result, nil
}

// Book Store implementation
func (s *Store) FetchBills(_ context.Context, customerID id.CustomerID) ([]*bill.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, udhaar.ErrStoreClosed
	}
	src := s.bills[customerID.String()]
	result := make([]*bill.Bill, len(src))
	for i, b := range src {
		result[i] = b.Clone()
	}
	return result, nil
}

func (s *Store) FetchTransactions(_ context.Context, customerID id.CustomerID) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, udhaar.ErrStoreClosed
	}
	src := s.txns[customerID.String()]
	result := make([]*transaction.Transaction, len(src))
	for i, t := range src {
		result[i] = t.Clone()
	}
	return result, nil
}

// Persist checks the whole batch under the write lock and only then applies
// it, so a rejected batch leaves nothing behind.
func (s *Store) Persist(_ context.Context, batch *store.MutationBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return udhaar.ErrStoreClosed
	}
	if s.fail != nil {
		if err := s.fail(batch); err != nil {
			return err
		}
	}
	if err := s.check(batch); err != nil {
		return err
	}

	key := batch.CustomerID.String()
	if c := batch.Customer; c != nil {
		s.customers[key] = c.Clone()
		s.order = append(s.order, key)
	}
	for _, b := range batch.NewBills {
		c := b.Clone()
		s.bills[key] = append(s.bills[key], c)
		s.billIdx[c.ID.String()] = c
	}
	for _, b := range batch.UpdatedBills {
		cur := s.billIdx[b.ID.String()]
		*cur = *b.Clone()
	}
	for _, t := range batch.Transactions {
		s.txns[key] = append(s.txns[key], t.Clone())
		s.txnIdx[t.ID.String()] = struct{}{}
	}
	s.batches++
	return nil
}

func (s *Store) check(batch *store.MutationBatch) error {
	key := batch.CustomerID.String()
	if c := batch.Customer; c != nil {
		if _, exists := s.customers[key]; exists {
			return fmt.Errorf("customer %s: %w", key, udhaar.ErrAlreadyExists)
		}
	} else if _, exists := s.customers[key]; !exists {
		return udhaar.ErrCustomerNotFound
	}
	for _, b := range batch.NewBills {
		if _, exists := s.billIdx[b.ID.String()]; exists {
			return fmt.Errorf("bill %s: %w", b.ID, udhaar.ErrAlreadyExists)
		}
	}
	for _, b := range batch.UpdatedBills {
		cur, ok := s.billIdx[b.ID.String()]
		if !ok && !batchAdds(batch, b.ID) {
			return fmt.Errorf("update bill %s: %w", b.ID, udhaar.ErrBillNotFound)
		}
		if ok && cur.CustomerID.String() != key {
			return fmt.Errorf("update bill %s: belongs to another customer: %w", b.ID, udhaar.ErrInvalidInput)
		}
	}
	for _, t := range batch.Transactions {
		if _, exists := s.txnIdx[t.ID.String()]; exists {
			return fmt.Errorf("transaction %s: %w", t.ID, udhaar.ErrDuplicateTransaction)
		}
	}
	return nil
}

func batchAdds(batch *store.MutationBatch, billID id.BillID) bool {
	for _, b := range batch.NewBills {
		if b.ID.String() == billID.String() {
			return true
		}
	}
	return false
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return udhaar.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// snapshot is the on-disk form written by Export.
type snapshot struct {
	Version      int                        `json:"version"`
	Customers    []*customer.Customer       `json:"customers"`
	Bills        []*bill.Bill               `json:"bills"`
	Transactions []*transaction.Transaction `json:"transactions"`
}

const snapshotVersion = 1

// Export writes every record as JSON.
func (s *Store) Export(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{Version: snapshotVersion}
	for _, key := range s.order {
		snap.Customers = append(snap.Customers, s.customers[key])
		snap.Bills = append(snap.Bills, s.bills[key]...)
		snap.Transactions = append(snap.Transactions, s.txns[key]...)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("udhaar/memory: export: %w", err)
	}
	return nil
}

// Import replaces the store contents with a snapshot written by Export.
// Records are loaded as stored; the ledger validates them when a customer
// book is first read.
func (s *Store) Import(r io.Reader) error {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("udhaar/memory: import: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("udhaar/memory: import: unsupported snapshot version %d", snap.Version)
	}

	fresh := New()
	for _, c := range snap.Customers {
		key := c.ID.String()
		if _, dup := fresh.customers[key]; dup {
			return fmt.Errorf("udhaar/memory: import: customer %s: %w", key, udhaar.ErrAlreadyExists)
		}
		fresh.customers[key] = c
		fresh.order = append(fresh.order, key)
	}
	for _, b := range snap.Bills {
		key := b.CustomerID.String()
		if _, ok := fresh.customers[key]; !ok {
			return fmt.Errorf("udhaar/memory: import: bill %s: %w", b.ID, udhaar.ErrCustomerNotFound)
		}
		fresh.bills[key] = append(fresh.bills[key], b)
		fresh.billIdx[b.ID.String()] = b
	}
	for _, t := range snap.Transactions {
		key := t.CustomerID.String()
		if _, ok := fresh.customers[key]; !ok {
			return fmt.Errorf("udhaar/memory: import: transaction %s: %w", t.ID, udhaar.ErrCustomerNotFound)
		}
		fresh.txns[key] = append(fresh.txns[key], t)
		fresh.txnIdx[t.ID.String()] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = fresh.customers
	s.order = fresh.order
	s.bills = fresh.bills
	s.billIdx = fresh.billIdx
	s.txns = fresh.txns
	s.txnIdx = fresh.txnIdx
	return nil
}

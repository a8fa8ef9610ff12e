package udhaar

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/xraph/udhaar/balance"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/query"
	"github.com/xraph/udhaar/store"
	"github.com/xraph/udhaar/types"
)

// CustomerInput registers a customer. ID is optional; a new one is
// generated when it is nil.
type CustomerInput struct {
	ID       id.CustomerID
	Name     string
	Phone    string
	Address  string
	Metadata map[string]string
}

// CustomerSummary pairs a customer with its balance roll-up.
type CustomerSummary struct {
	Customer *customer.Customer `json:"customer"`
	balance.Summary
}

// customerPageSize is the page size used when walking every customer.
const customerPageSize = 500

// RegisterCustomer validates and stores a new customer.
func (l *Ledger) RegisterCustomer(ctx context.Context, in CustomerInput) (*customer.Customer, error) {
	custID := in.ID
	if custID.IsNil() {
		custID = id.NewCustomerID()
	} else if custID.Prefix() != id.PrefixCustomer {
		return nil, ValidationError{Field: "id", Message: fmt.Sprintf("expected prefix %q", id.PrefixCustomer)}
	}

	now := l.now()
	c := &customer.Customer{
		Entity:  types.NewEntityAt(now),
		ID:      custID,
		Name:    strings.TrimSpace(in.Name),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
	}
	if len(in.Metadata) > 0 {
		c.Metadata = maps.Clone(in.Metadata)
	}
	if err := c.Validate(); err != nil {
		return nil, customerValidation(err)
	}

	batch := store.NewBatch(custID, now)
	batch.Customer = c
	if err := l.persist(ctx, "register_customer", nil, batch); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("customer %s: %w", custID, ErrAlreadyExists)
		}
		return nil, err
	}

	l.mu.Lock()
	if _, loaded := l.books[custID.String()]; !loaded {
		l.books[custID.String()] = newBook(c.Clone(), l.currency)
	}
	l.mu.Unlock()

	l.logger.Info("customer registered", "customer_id", custID.String())
	l.plugins.EmitCustomerRegistered(ctx, c.Clone())

	return c.Clone(), nil
}

func customerValidation(err error) error {
	switch {
	case errors.Is(err, customer.ErrNameRequired):
		return ValidationError{Field: "name", Message: "is required"}
	case errors.Is(err, customer.ErrPhoneRequired):
		return ValidationError{Field: "phone", Message: "is required"}
	case errors.Is(err, customer.ErrPhoneInvalid):
		return ValidationError{Field: "phone", Message: "must contain digits"}
	default:
		return ValidationError{Field: "customer", Message: err.Error()}
	}
}

// GetCustomer returns a customer by id.
func (l *Ledger) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	bk, err := l.rlockBook(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer bk.mu.RUnlock()
	return bk.customer.Clone(), nil
}

// ListCustomers returns customers in registration order.
func (l *Ledger) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	return l.store.ListCustomers(ctx, opts)
}

// SearchCustomers returns customers whose name contains term, ignoring
// case, or whose phone digits start with term.
func (l *Ledger) SearchCustomers(ctx context.Context, term string) ([]*customer.Customer, error) {
	all, err := l.allCustomers(ctx)
	if err != nil {
		return nil, err
	}
	return query.SearchCustomers(all, term), nil
}

// CustomerSummaries returns every customer with its balance as of asOf,
// in registration order.
func (l *Ledger) CustomerSummaries(ctx context.Context, asOf time.Time) ([]CustomerSummary, error) {
	all, err := l.allCustomers(ctx)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = l.now()
	}

	out := make([]CustomerSummary, 0, len(all))
	for _, c := range all {
		s, err := l.Summary(ctx, c.ID, asOf)
		if err != nil {
			return nil, err
		}
		out = append(out, CustomerSummary{Customer: c, Summary: s})
	}
	return out, nil
}

func (l *Ledger) allCustomers(ctx context.Context) ([]*customer.Customer, error) {
	var all []*customer.Customer
	for offset := 0; ; offset += customerPageSize {
		page, err := l.store.ListCustomers(ctx, customer.ListOpts{Limit: customerPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < customerPageSize {
			return all, nil
		}
	}
}

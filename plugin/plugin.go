// Package plugin provides an extensible plugin system for Udhaar.
// Plugins can hook into ledger lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Customer hooks
// ──────────────────────────────────────────────────

// OnCustomerRegistered is called after a customer is persisted.
type OnCustomerRegistered interface {
	Plugin
	OnCustomerRegistered(ctx context.Context, c *customer.Customer) error
}

// ──────────────────────────────────────────────────
// Bill and payment hooks
// ──────────────────────────────────────────────────

// OnBillCreated is called after a bill and its posting are persisted.
type OnBillCreated interface {
	Plugin
	OnBillCreated(ctx context.Context, b *bill.Bill, posting *transaction.Transaction) error
}

// OnPaymentRecorded is called after a payment and the bill updates it
// caused are persisted.
type OnPaymentRecorded interface {
	Plugin
	OnPaymentRecorded(ctx context.Context, payment *transaction.Transaction, allocations []allocation.Allocation) error
}

// OnBillSettled is called for every bill that became fully paid.
type OnBillSettled interface {
	Plugin
	OnBillSettled(ctx context.Context, b *bill.Bill) error
}

// OnCreditRecorded is called when a payment leaves money unapplied.
// balance is the customer's standing credit after the payment.
type OnCreditRecorded interface {
	Plugin
	OnCreditRecorded(ctx context.Context, customerID id.CustomerID, unapplied, balance types.Money) error
}

// OnPersistFailed is called when a mutation was rolled back because the
// store rejected it.
type OnPersistFailed interface {
	Plugin
	OnPersistFailed(ctx context.Context, op string, customerID id.CustomerID, err error) error
}

// ──────────────────────────────────────────────────
// Allocation policies
// ──────────────────────────────────────────────────

// AllocationPolicy contributes a named payment allocation order. The
// ledger resolves WithAllocationPolicyName against registered policies
// before the built-in ones.
type AllocationPolicy interface {
	Plugin
	Policy() allocation.Policy
}

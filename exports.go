package udhaar

import (
	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/balance"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/query"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Record types
type (
	Customer     = customer.Customer
	Bill         = bill.Bill
	BillItem     = bill.Item
	ItemInput    = bill.ItemInput
	BillStatus   = bill.Status
	Transaction  = transaction.Transaction
	Allocation   = allocation.Allocation
	Balance      = balance.Summary
	Totals       = balance.Totals
	HistoryEntry = query.HistoryEntry
)

// Bill statuses
const (
	StatusPending = bill.StatusPending
	StatusPartial = bill.StatusPartial
	StatusPaid    = bill.StatusPaid
)

// Payment methods
const (
	MethodCash = transaction.MethodCash
	MethodBank = transaction.MethodBank
	MethodCard = transaction.MethodCard
)

// Credit policies
const (
	CreditStanding  = allocation.CreditStanding
	CreditAutoApply = allocation.CreditAutoApply
)

// Re-export Money constructors
var (
	INR        = types.INR
	PKR        = types.PKR
	USD        = types.USD
	Zero       = types.Zero
	Sum        = types.Sum
	ParseMoney = types.ParseMoney
)

// Re-export Entity constructor
var NewEntity = types.NewEntity

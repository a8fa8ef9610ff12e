// Package audithook bridges Udhaar ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/plugin"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnCustomerRegistered = (*Extension)(nil)
	_ plugin.OnBillCreated        = (*Extension)(nil)
	_ plugin.OnBillSettled        = (*Extension)(nil)
	_ plugin.OnPaymentRecorded    = (*Extension)(nil)
	_ plugin.OnCreditRecorded     = (*Extension)(nil)
	_ plugin.OnPersistFailed      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single entry in the audit trail.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Customer hooks
// ──────────────────────────────────────────────────

// OnCustomerRegistered implements plugin.OnCustomerRegistered.
func (e *Extension) OnCustomerRegistered(ctx context.Context, c *customer.Customer) error {
	return e.record(ctx, ActionCustomerRegistered, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, c.ID.String(), CategoryCustomer, nil,
		"name", c.Name,
		"phone", c.Phone,
	)
}

// ──────────────────────────────────────────────────
// Bill hooks
// ──────────────────────────────────────────────────

// OnBillCreated implements plugin.OnBillCreated.
func (e *Extension) OnBillCreated(ctx context.Context, b *bill.Bill, posting *transaction.Transaction) error {
	outcome := OutcomeSuccess
	if b.Status == bill.StatusPartial {
		outcome = OutcomePartial
	}
	return e.record(ctx, ActionBillCreated, SeverityInfo, outcome,
		ResourceBill, b.ID.String(), CategoryBilling, nil,
		"customer_id", b.CustomerID.String(),
		"transaction_id", posting.ID.String(),
		"total", b.TotalAmount.String(),
		"items", len(b.Items),
		"status", string(b.Status),
	)
}

// OnBillSettled implements plugin.OnBillSettled.
func (e *Extension) OnBillSettled(ctx context.Context, b *bill.Bill) error {
	return e.record(ctx, ActionBillSettled, SeverityInfo, OutcomeSuccess,
		ResourceBill, b.ID.String(), CategoryBilling, nil,
		"customer_id", b.CustomerID.String(),
		"total", b.TotalAmount.String(),
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (e *Extension) OnPaymentRecorded(ctx context.Context, payment *transaction.Transaction, allocations []allocation.Allocation) error {
	bills := make([]string, len(allocations))
	for i, a := range allocations {
		bills[i] = a.BillID.String()
	}
	outcome := OutcomeSuccess
	if payment.Unapplied.IsPositive() {
		outcome = OutcomePartial
	}
	return e.record(ctx, ActionPaymentRecorded, SeverityInfo, outcome,
		ResourceTransaction, payment.ID.String(), CategoryPayment, nil,
		"customer_id", payment.CustomerID.String(),
		"amount", payment.Amount.String(),
		"method", string(payment.Method),
		"unapplied", payment.Unapplied.String(),
		"bills", bills,
	)
}

// OnCreditRecorded implements plugin.OnCreditRecorded.
func (e *Extension) OnCreditRecorded(ctx context.Context, customerID id.CustomerID, unapplied, balance types.Money) error {
	return e.record(ctx, ActionCreditRecorded, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, customerID.String(), CategoryPayment, nil,
		"unapplied", unapplied.String(),
		"credit", balance.String(),
	)
}

// ──────────────────────────────────────────────────
// Store hooks
// ──────────────────────────────────────────────────

// OnPersistFailed implements plugin.OnPersistFailed.
func (e *Extension) OnPersistFailed(ctx context.Context, op string, customerID id.CustomerID, err error) error {
	return e.record(ctx, ActionPersistFailed, SeverityError, OutcomeFailure,
		ResourceCustomer, customerID.String(), CategoryStorage, err,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	// A failing audit backend must not fail the ledger mutation that
	// already committed.
	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

// Package observability provides a metrics extension for Udhaar that
// records ledger event counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/plugin"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnCustomerRegistered = (*MetricsExtension)(nil)
	_ plugin.OnBillCreated        = (*MetricsExtension)(nil)
	_ plugin.OnBillSettled        = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRecorded    = (*MetricsExtension)(nil)
	_ plugin.OnCreditRecorded     = (*MetricsExtension)(nil)
	_ plugin.OnPersistFailed      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide metrics. Amount histograms observe
// minor units.
type MetricsExtension struct {
	factory MetricFactory

	// Customer metrics
	CustomersRegistered Counter

	// Bill metrics
	BillsCreated Counter
	BillItems    Histogram
	BillTotal    Histogram
	BillsSettled Counter

	// Payment metrics
	PaymentsRecorded   Counter
	PaymentAmount      Histogram
	PaymentAllocations Histogram
	AmountAllocated    Counter

	// Credit metrics
	CreditRecorded Counter
	CreditAmount   Histogram

	// Error metrics
	PersistFailures Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CustomersRegistered: factory.Counter("udhaar.customer.registered"),

		BillsCreated: factory.Counter("udhaar.bill.created"),
		BillItems:    factory.Histogram("udhaar.bill.items"),
		BillTotal:    factory.Histogram("udhaar.bill.total_amount"),
		BillsSettled: factory.Counter("udhaar.bill.settled"),

		PaymentsRecorded:   factory.Counter("udhaar.payment.recorded"),
		PaymentAmount:      factory.Histogram("udhaar.payment.amount"),
		PaymentAllocations: factory.Histogram("udhaar.payment.allocations"),
		AmountAllocated:    factory.Counter("udhaar.payment.allocated_amount"),

		CreditRecorded: factory.Counter("udhaar.credit.recorded"),
		CreditAmount:   factory.Histogram("udhaar.credit.amount"),

		PersistFailures: factory.Counter("udhaar.store.persist_failures"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnCustomerRegistered implements plugin.OnCustomerRegistered.
func (m *MetricsExtension) OnCustomerRegistered(_ context.Context, _ *customer.Customer) error {
	m.CustomersRegistered.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Bill hooks
// ──────────────────────────────────────────────────

// OnBillCreated implements plugin.OnBillCreated.
func (m *MetricsExtension) OnBillCreated(_ context.Context, b *bill.Bill, _ *transaction.Transaction) error {
	m.BillsCreated.Inc()
	m.BillItems.Observe(float64(len(b.Items)))
	m.BillTotal.Observe(float64(b.TotalAmount.Amount))
	return nil
}

// OnBillSettled implements plugin.OnBillSettled.
func (m *MetricsExtension) OnBillSettled(_ context.Context, _ *bill.Bill) error {
	m.BillsSettled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (m *MetricsExtension) OnPaymentRecorded(_ context.Context, payment *transaction.Transaction, allocations []allocation.Allocation) error {
	m.PaymentsRecorded.Inc()
	m.PaymentAmount.Observe(float64(payment.Amount.Amount))
	m.PaymentAllocations.Observe(float64(len(allocations)))
	m.AmountAllocated.Add(float64(payment.Amount.Amount - payment.Unapplied.Amount))
	return nil
}

// OnCreditRecorded implements plugin.OnCreditRecorded.
func (m *MetricsExtension) OnCreditRecorded(_ context.Context, _ id.CustomerID, unapplied, _ types.Money) error {
	m.CreditRecorded.Inc()
	m.CreditAmount.Observe(float64(unapplied.Amount))
	return nil
}

// OnPersistFailed implements plugin.OnPersistFailed.
func (m *MetricsExtension) OnPersistFailed(_ context.Context, _ string, _ id.CustomerID, _ error) error {
	m.PersistFailures.Inc()
	return nil
}

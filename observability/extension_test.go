package observability_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/udhaar"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/observability"
	"github.com/xraph/udhaar/store/memory"
	"github.com/xraph/udhaar/types"
)

type metric struct {
	mu    sync.Mutex
	total float64
	obs   []float64
}

func (m *metric) Inc() { m.Add(1) }

func (m *metric) Add(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total += v
}

func (m *metric) Observe(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = append(m.obs, v)
}

type factory struct {
	metrics map[string]*metric
}

func newFactory() *factory { return &factory{metrics: make(map[string]*metric)} }

func (f *factory) get(name string) *metric {
	m, ok := f.metrics[name]
	if !ok {
		m = &metric{}
		f.metrics[name] = m
	}
	return m
}

func (f *factory) Counter(name string) observability.Counter     { return f.get(name) }
func (f *factory) Histogram(name string) observability.Histogram { return f.get(name) }

func TestMetricsFollowLedger(t *testing.T) {
	ctx := context.Background()
	f := newFactory()
	s := memory.New()
	l := udhaar.New(s,
		udhaar.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		udhaar.WithPlugin(observability.NewMetricsExtension(f)),
	)
	require.NoError(t, l.Start(ctx))
	defer l.Stop()

	c, err := l.RegisterCustomer(ctx, udhaar.CustomerInput{Name: "Asha", Phone: "9820012345"})
	require.NoError(t, err)
	for _, amount := range []int64{1800, 1200} {
		_, err = l.CreateBill(ctx, udhaar.BillInput{
			CustomerID: c.ID,
			Items: []bill.ItemInput{
				{Name: "a", Quantity: 1, UnitPrice: types.INR(amount)},
			},
		})
		require.NoError(t, err)
	}
	_, err = l.RecordPayment(ctx, udhaar.PaymentInput{CustomerID: c.ID, Amount: types.INR(3500)})
	require.NoError(t, err)

	s.FailNext(udhaar.ErrStoreUnavailable)
	_, err = l.RecordPayment(ctx, udhaar.PaymentInput{CustomerID: c.ID, Amount: types.INR(100)})
	require.Error(t, err)

	assert.Equal(t, 1.0, f.get("udhaar.customer.registered").total)
	assert.Equal(t, 2.0, f.get("udhaar.bill.created").total)
	assert.Equal(t, []float64{1800, 1200}, f.get("udhaar.bill.total_amount").obs)
	assert.Equal(t, 2.0, f.get("udhaar.bill.settled").total)
	assert.Equal(t, 1.0, f.get("udhaar.payment.recorded").total)
	assert.Equal(t, []float64{2}, f.get("udhaar.payment.allocations").obs)
	assert.Equal(t, 3000.0, f.get("udhaar.payment.allocated_amount").total)
	assert.Equal(t, []float64{500}, f.get("udhaar.credit.amount").obs)
	assert.Equal(t, 1.0, f.get("udhaar.store.persist_failures").total)
}

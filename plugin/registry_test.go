package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/udhaar/allocation"
	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/plugin"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

type recorder struct {
	name string

	mu     sync.Mutex
	events []string
	err    error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) add(ev string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) OnInit(context.Context, interface{}) error { return r.add("init") }

func (r *recorder) OnShutdown(context.Context) error { return r.add("shutdown") }

func (r *recorder) OnCustomerRegistered(context.Context, *customer.Customer) error {
	return r.add("customer")
}

func (r *recorder) OnBillCreated(context.Context, *bill.Bill, *transaction.Transaction) error {
	return r.add("bill")
}

func (r *recorder) OnPaymentRecorded(context.Context, *transaction.Transaction, []allocation.Allocation) error {
	return r.add("payment")
}

func (r *recorder) OnBillSettled(context.Context, *bill.Bill) error { return r.add("settled") }

func (r *recorder) OnCreditRecorded(context.Context, id.CustomerID, types.Money, types.Money) error {
	return r.add("credit")
}

func (r *recorder) OnPersistFailed(_ context.Context, op string, _ id.CustomerID, _ error) error {
	return r.add("persist_failed:" + op)
}

type initOnly struct{ calls int }

func (p *initOnly) Name() string { return "init-only" }

func (p *initOnly) OnInit(context.Context, interface{}) error {
	p.calls++
	return nil
}

type policyPlugin struct{ policy allocation.Policy }

func (p policyPlugin) Name() string              { return "policy" }
func (p policyPlugin) Policy() allocation.Policy { return p.policy }

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnShutdown(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type panicPlugin struct{}

func (panicPlugin) Name() string { return "panicky" }

func (panicPlugin) OnBillSettled(context.Context, *bill.Bill) error { panic("boom") }

func quietRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	r := quietRegistry()
	require.NoError(t, r.Register(&recorder{name: "audit"}))

	err := r.Register(&recorder{name: "audit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate registration")
	assert.Equal(t, 1, r.Count())
}

func TestRegistryLookup(t *testing.T) {
	r := quietRegistry()
	a := &recorder{name: "a"}
	b := &initOnly{}
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	assert.Same(t, a, r.Get("a"))
	assert.Nil(t, r.Get("missing"))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name())
	assert.Equal(t, "init-only", list[1].Name())
}

func TestEmitDispatchesOnlyToImplementers(t *testing.T) {
	ctx := context.Background()
	r := quietRegistry()
	rec := &recorder{name: "rec"}
	starter := &initOnly{}
	require.NoError(t, r.Register(rec))
	require.NoError(t, r.Register(starter))

	custID := id.NewCustomerID()
	b := &bill.Bill{ID: id.NewBillID(), CustomerID: custID}
	txn := &transaction.Transaction{ID: id.NewTransactionID(), CustomerID: custID}

	r.EmitInit(ctx, nil)
	r.EmitCustomerRegistered(ctx, &customer.Customer{ID: custID})
	r.EmitBillCreated(ctx, b, txn)
	r.EmitPaymentRecorded(ctx, txn, nil)
	r.EmitBillSettled(ctx, b)
	r.EmitCreditRecorded(ctx, custID, types.INR(100), types.INR(100))
	r.EmitPersistFailed(ctx, "record_payment", custID, errors.New("down"))
	r.EmitShutdown(ctx)

	assert.Equal(t, []string{
		"init", "customer", "bill", "payment", "settled", "credit",
		"persist_failed:record_payment", "shutdown",
	}, rec.seen())
	assert.Equal(t, 1, starter.calls)
}

func TestHookErrorsDoNotStopDispatch(t *testing.T) {
	ctx := context.Background()
	r := quietRegistry()
	failing := &recorder{name: "failing", err: errors.New("nope")}
	ok := &recorder{name: "ok"}
	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(ok))

	r.EmitBillSettled(ctx, &bill.Bill{ID: id.NewBillID()})

	assert.Equal(t, []string{"settled"}, failing.seen())
	assert.Equal(t, []string{"settled"}, ok.seen())
}

func TestHookPanicIsContained(t *testing.T) {
	r := quietRegistry()
	after := &recorder{name: "after"}
	require.NoError(t, r.Register(panicPlugin{}))
	require.NoError(t, r.Register(after))

	assert.NotPanics(t, func() {
		r.EmitBillSettled(context.Background(), &bill.Bill{ID: id.NewBillID()})
	})
	assert.Equal(t, []string{"settled"}, after.seen())
}

func TestHookTimeout(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	require.NoError(t, r.Register(slowPlugin{}))

	start := time.Now()
	r.EmitShutdown(context.Background())
	assert.Less(t, time.Since(start), time.Second)
}

func TestAllocationPolicyPlugin(t *testing.T) {
	r := quietRegistry()
	require.NoError(t, r.Register(policyPlugin{policy: allocation.DueFirst{}}))

	p, ok := r.Policy("due_first")
	require.True(t, ok)
	assert.Equal(t, "due_first", p.Name())

	_, ok = r.Policy("oldest_first")
	assert.False(t, ok)

	err := r.Register(policyPlugin{})
	require.Error(t, err)
	assert.Equal(t, 1, r.Count())
}

package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/customer"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

var (
	cust = id.NewCustomerID()
	t0   = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
)

func mkBill(t *testing.T, seq int64, date time.Time, total, paid int64) *bill.Bill {
	t.Helper()
	b, err := bill.Build(cust, "inr", date, []bill.ItemInput{{Name: "x", Quantity: 1, UnitPrice: types.INR(total)}})
	require.NoError(t, err)
	b.Seq = seq
	if paid > 0 {
		require.NoError(t, b.Apply(types.INR(paid), date))
	}
	return b
}

func TestBillsFilterAndOrder(t *testing.T) {
	b1 := mkBill(t, 1, t0.AddDate(0, 0, 2), 100, 0)
	b2 := mkBill(t, 2, t0, 200, 50)
	b3 := mkBill(t, 3, t0, 300, 300)
	b4 := mkBill(t, 4, t0.AddDate(0, 0, 5), 400, 0)
	all := []*bill.Bill{b1, b2, b3, b4}

	got := Bills(all, bill.ListOpts{})
	assert.Equal(t, []*bill.Bill{b2, b3, b1, b4}, got, "date then insertion order")

	unpaid := Bills(all, bill.ListOpts{Statuses: []bill.Status{bill.StatusPending, bill.StatusPartial}})
	assert.Equal(t, []*bill.Bill{b2, b1, b4}, unpaid)

	ranged := Bills(all, bill.ListOpts{From: t0.AddDate(0, 0, 1), To: t0.AddDate(0, 0, 3)})
	assert.Equal(t, []*bill.Bill{b1}, ranged)

	paged := Bills(all, bill.ListOpts{Limit: 2, Offset: 1})
	assert.Equal(t, []*bill.Bill{b3, b1}, paged)

	assert.Empty(t, Bills(all, bill.ListOpts{Offset: 10}))
}

func TestBillsOverdueFilter(t *testing.T) {
	due := t0.AddDate(0, 0, 1)
	late := mkBill(t, 1, t0, 100, 0)
	late.DueDate = &due
	settled := mkBill(t, 2, t0, 100, 100)
	settled.DueDate = &due
	open := mkBill(t, 3, t0, 100, 0)

	got := Bills([]*bill.Bill{late, settled, open}, bill.ListOpts{OverdueAsOf: t0.AddDate(0, 0, 2)})
	assert.Equal(t, []*bill.Bill{late}, got)
}

func TestTransactionsAndHistory(t *testing.T) {
	entry := func(seq int64, typ transaction.Type, date time.Time, amount int64) *transaction.Transaction {
		return &transaction.Transaction{ID: id.NewTransactionID(), CustomerID: cust, Seq: seq, Type: typ, Date: date, Amount: types.INR(amount)}
	}
	e1 := entry(1, transaction.TypeBill, t0, 1000)
	e2 := entry(2, transaction.TypePayment, t0, 400)
	e3 := entry(3, transaction.TypePayment, t0.AddDate(0, 0, 1), 900)
	journal := []*transaction.Transaction{e3, e2, e1}

	assert.Equal(t, []*transaction.Transaction{e1, e2, e3}, Transactions(journal, transaction.ListOpts{}))
	assert.Equal(t, []*transaction.Transaction{e2, e3}, Transactions(journal, transaction.ListOpts{Type: transaction.TypePayment}))

	h := History("inr", journal)
	require.Len(t, h, 3)
	assert.Equal(t, types.INR(1000), h[0].Balance)
	assert.Equal(t, types.INR(600), h[1].Balance)
	assert.Equal(t, types.INR(-300), h[2].Balance)
}

func TestSearchCustomers(t *testing.T) {
	asha := &customer.Customer{Name: "Asha Devi", Phone: "+91 98765-43210"}
	ravi := &customer.Customer{Name: "Ravi Kumar", Phone: "9123456789"}
	all := []*customer.Customer{asha, ravi}

	tests := []struct {
		term string
		want []*customer.Customer
	}{
		{"", all},
		{"asha", []*customer.Customer{asha}},
		{"KUMAR", []*customer.Customer{ravi}},
		{"a", all},
		{"9198", []*customer.Customer{asha}},
		{"+91 987", []*customer.Customer{asha}},
		{"912", []*customer.Customer{ravi}},
		{"43210", []*customer.Customer{}},
		{"zzz", []*customer.Customer{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchCustomers(all, tt.term))
		})
	}
}

package balance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/transaction"
	"github.com/xraph/udhaar/types"
)

var (
	cust = id.NewCustomerID()
	t0   = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
)

func mkBill(t *testing.T, total, paid int64, due *time.Time) *bill.Bill {
	t.Helper()
	b, err := bill.Build(cust, "inr", t0, []bill.ItemInput{{Name: "x", Quantity: 1, UnitPrice: types.INR(total)}})
	require.NoError(t, err)
	if paid > 0 {
		require.NoError(t, b.Apply(types.INR(paid), t0))
	}
	b.DueDate = due
	return b
}

func payment(amount int64, at time.Time) *transaction.Transaction {
	return &transaction.Transaction{
		ID:         id.NewTransactionID(),
		CustomerID: cust,
		Type:       transaction.TypePayment,
		Amount:     types.INR(amount),
		Date:       at,
	}
}

func TestPending(t *testing.T) {
	bills := []*bill.Bill{mkBill(t, 1000, 0, nil), mkBill(t, 500, 200, nil), mkBill(t, 300, 300, nil)}
	assert.Equal(t, types.INR(1300), Pending("inr", bills))
	assert.Equal(t, types.INR(0), Pending("inr", nil))
}

func TestOverdue(t *testing.T) {
	past := t0.AddDate(0, 0, -1)
	future := t0.AddDate(0, 0, 10)
	bills := []*bill.Bill{
		mkBill(t, 1000, 400, &past),
		mkBill(t, 500, 0, &future),
		mkBill(t, 300, 300, &past),
		mkBill(t, 200, 0, nil),
	}
	assert.Equal(t, types.INR(600), Overdue("inr", bills, t0))
	assert.Equal(t, types.INR(1100), Overdue("inr", bills, future.Add(time.Nanosecond)))
	assert.Equal(t, types.INR(600), Overdue("inr", bills, future), "due date equal to asOf is not overdue")
}

func TestCredit(t *testing.T) {
	bills := []*bill.Bill{mkBill(t, 1000, 1000, nil)}
	journal := []*transaction.Transaction{payment(1300, t0)}
	assert.Equal(t, types.INR(300), Credit("inr", bills, journal))
	assert.Equal(t, types.INR(300), Summarize("inr", cust, bills, journal, t0).Credit)
}

func TestSummarize(t *testing.T) {
	past := t0.AddDate(0, 0, -3)
	bills := []*bill.Bill{mkBill(t, 1000, 1000, nil), mkBill(t, 500, 200, &past)}
	journal := []*transaction.Transaction{
		payment(1200, t0),
		{ID: id.NewTransactionID(), CustomerID: cust, Type: transaction.TypeBill, Amount: types.INR(500), BillID: bills[1].ID, Date: t0.AddDate(0, 0, 1)},
	}

	s := Summarize("inr", cust, bills, journal, t0)
	assert.Equal(t, types.INR(1500), s.Billed)
	assert.Equal(t, types.INR(1200), s.Received)
	assert.Equal(t, types.INR(300), s.Pending)
	assert.Equal(t, types.INR(300), s.Overdue)
	assert.Equal(t, types.INR(0), s.Credit)
	assert.Equal(t, 1, s.ByStatus[bill.StatusPaid])
	assert.Equal(t, 1, s.ByStatus[bill.StatusPartial])
	assert.Equal(t, t0.AddDate(0, 0, 1), s.LastActive)
	assert.True(t, s.HasDues())
	assert.Equal(t, types.INR(300), s.Net())
}

func TestAggregate(t *testing.T) {
	a := Summarize("inr", id.NewCustomerID(), []*bill.Bill{mkBill(t, 1000, 0, nil)}, nil, t0)
	b := Summarize("inr", id.NewCustomerID(), []*bill.Bill{mkBill(t, 400, 400, nil)},
		[]*transaction.Transaction{payment(500, t0)}, t0)

	tot := Aggregate("inr", t0, []Summary{a, b})
	assert.Equal(t, 2, tot.Customers)
	assert.Equal(t, 1, tot.CustomersWithDues)
	assert.Equal(t, types.INR(1000), tot.Pending)
	assert.Equal(t, types.INR(100), tot.Credit)
	assert.Equal(t, 2, tot.Bills)
	assert.Equal(t, 1, tot.ByStatus[bill.StatusPending])
	assert.Equal(t, 0, tot.ByStatus[bill.StatusPartial])
	assert.Equal(t, 1, tot.ByStatus[bill.StatusPaid])
}

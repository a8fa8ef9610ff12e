package allocation

import (
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/types"
)

var (
	cust = id.NewCustomerID()
	t0   = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
)

func newBill(t *testing.T, date time.Time, total int64) *bill.Bill {
	t.Helper()
	b, err := bill.Build(cust, "inr", date, []bill.ItemInput{{Name: "goods", Quantity: 1, UnitPrice: types.INR(total)}})
	require.NoError(t, err)
	return b
}

func TestAllocateOldestFirst(t *testing.T) {
	b1 := newBill(t, t0, 1000)
	b2 := newBill(t, t0.AddDate(0, 0, 1), 500)

	res, err := Allocate(OldestFirst{}, []*bill.Bill{b2, b1}, types.INR(1200), t0)
	require.NoError(t, err)

	assert.Equal(t, types.INR(1000), b1.PaidAmount)
	assert.Equal(t, bill.StatusPaid, b1.Status)
	assert.Equal(t, types.INR(200), b2.PaidAmount)
	assert.Equal(t, bill.StatusPartial, b2.Status)

	assert.Equal(t, types.INR(1200), res.Allocated)
	assert.True(t, res.Unapplied.IsZero())
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, b1.ID, res.Allocations[0].BillID)
	assert.Equal(t, types.INR(1000), res.Allocations[0].BalanceBefore)
	assert.True(t, res.Allocations[0].BalanceAfter.IsZero())
	assert.Equal(t, bill.StatusPending, res.Allocations[0].StatusBefore)
	assert.Equal(t, []id.BillID{b1.ID}, res.Settled())
}

func TestAllocatePartialThenSettle(t *testing.T) {
	b := newBill(t, t0, 1800)

	_, err := Allocate(OldestFirst{}, []*bill.Bill{b}, types.INR(800), t0)
	require.NoError(t, err)
	assert.Equal(t, bill.StatusPartial, b.Status)
	assert.Equal(t, types.INR(1000), b.Remaining())

	res, err := Allocate(OldestFirst{}, []*bill.Bill{b}, types.INR(1000), t0)
	require.NoError(t, err)
	assert.Equal(t, bill.StatusPaid, b.Status)
	assert.True(t, b.Remaining().IsZero())
	assert.True(t, res.Unapplied.IsZero())
}

func TestAllocateOverpayment(t *testing.T) {
	b := newBill(t, t0, 1000)

	res, err := Allocate(OldestFirst{}, []*bill.Bill{b}, types.INR(1300), t0)
	require.NoError(t, err)

	assert.Equal(t, types.INR(1000), b.PaidAmount, "paid never exceeds total")
	assert.Equal(t, bill.StatusPaid, b.Status)
	assert.Equal(t, types.INR(300), res.Unapplied)
	assert.Equal(t, types.INR(1000), res.Allocated)
}

func TestAllocateSkipsPaidBills(t *testing.T) {
	paid := newBill(t, t0, 400)
	require.NoError(t, paid.Apply(types.INR(400), t0))
	open := newBill(t, t0.AddDate(0, 0, 1), 600)

	res, err := Allocate(OldestFirst{}, []*bill.Bill{paid, open}, types.INR(100), t0)
	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, open.ID, res.Allocations[0].BillID)
	assert.Equal(t, types.INR(400), paid.PaidAmount)
}

func TestAllocateNoBills(t *testing.T) {
	res, err := Allocate(OldestFirst{}, nil, types.INR(700), t0)
	require.NoError(t, err)
	assert.Empty(t, res.Allocations)
	assert.Equal(t, types.INR(700), res.Unapplied)
}

func TestAllocateRejectsNonPositive(t *testing.T) {
	b := newBill(t, t0, 100)
	for _, amt := range []int64{0, -50} {
		_, err := Allocate(OldestFirst{}, []*bill.Bill{b}, types.INR(amt), t0)
		assert.ErrorIs(t, err, ErrNonPositiveAmount)
	}
	assert.True(t, b.PaidAmount.IsZero())
}

func TestAllocateSameDateTieBreak(t *testing.T) {
	a := newBill(t, t0, 100)
	b := newBill(t, t0, 100)
	first, second := a, b
	if b.ID.Compare(a.ID) < 0 {
		first, second = b, a
	}

	res, err := Allocate(OldestFirst{}, []*bill.Bill{second, first}, types.INR(150), t0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, res.Allocations[0].BillID)
	assert.Equal(t, bill.StatusPaid, first.Status)
	assert.Equal(t, bill.StatusPartial, second.Status)
}

func TestAllocateDeterministic(t *testing.T) {
	build := func() []*bill.Bill {
		return []*bill.Bill{newBill(t, t0, 300), newBill(t, t0.AddDate(0, 0, 2), 200), newBill(t, t0.AddDate(0, 0, 1), 400)}
	}
	base := build()
	a := cloneAll(base)
	b := cloneAll(base)
	slices.Reverse(b)

	ra, err := Allocate(OldestFirst{}, a, types.INR(650), t0)
	require.NoError(t, err)
	rb, err := Allocate(OldestFirst{}, b, types.INR(650), t0)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}

func TestDueFirst(t *testing.T) {
	noDue := newBill(t, t0, 100)
	late := newBill(t, t0.AddDate(0, 0, 1), 100)
	soon := newBill(t, t0.AddDate(0, 0, 2), 100)
	d1, d2 := t0.AddDate(0, 1, 0), t0.AddDate(0, 0, 5)
	late.DueDate, soon.DueDate = &d1, &d2

	order := DueFirst{}.Order([]*bill.Bill{noDue, late, soon})
	require.Len(t, order, 3)
	assert.Equal(t, []id.BillID{soon.ID, late.ID, noDue.ID}, []id.BillID{order[0].ID, order[1].ID, order[2].ID})
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, "oldest_first", p.Name())

	p, err = PolicyByName("DUE_FIRST")
	require.NoError(t, err)
	assert.Equal(t, "due_first", p.Name())

	_, err = PolicyByName("largest_first")
	assert.Error(t, err)
}

// TestAllocateRandomInvariants drives random bills and payments and checks
// the ledger identities after every step.
func TestAllocateRandomInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var bills []*bill.Bill
	totalPaid := types.INR(0)
	credit := types.INR(0)

	for step := 0; step < 500; step++ {
		if rng.Intn(3) == 0 || len(bills) == 0 {
			bills = append(bills, newBill(t, t0.Add(time.Duration(rng.Intn(1000))*time.Hour), int64(1+rng.Intn(5000))))
			continue
		}
		amount := types.INR(int64(1 + rng.Intn(6000)))
		res, err := Allocate(OldestFirst{}, bills, amount, t0)
		require.NoError(t, err)
		assert.Equal(t, amount, res.Allocated.Add(res.Unapplied))
		totalPaid = totalPaid.Add(amount)
		credit = credit.Add(res.Unapplied)

		sumPaid := types.INR(0)
		for _, b := range bills {
			require.NoError(t, b.Validate())
			sumPaid = sumPaid.Add(b.PaidAmount)
		}
		assert.Equal(t, totalPaid, sumPaid.Add(credit))
		if res.Unapplied.IsPositive() {
			for _, b := range bills {
				assert.Equal(t, bill.StatusPaid, b.Status, "leftover only once every bill is settled")
			}
		}
	}
}

func cloneAll(bills []*bill.Bill) []*bill.Bill {
	out := make([]*bill.Bill, len(bills))
	for i, b := range bills {
		out[i] = b.Clone()
	}
	return out
}

func TestParseCreditPolicy(t *testing.T) {
	p, err := ParseCreditPolicy("")
	require.NoError(t, err)
	assert.Equal(t, CreditStanding, p)

	p, err = ParseCreditPolicy("AUTO_APPLY")
	require.NoError(t, err)
	assert.Equal(t, CreditAutoApply, p)

	_, err = ParseCreditPolicy("refund")
	assert.Error(t, err)
}

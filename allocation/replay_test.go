package allocation

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

// journal is a small helper that posts bills and payments the way the
// ledger does, keeping bills and journal entries side by side.
type journal struct {
	t       *testing.T
	credit  CreditPolicy
	bills   []*bill.Bill
	entries []*transaction.Transaction
	balance types.Money
}

func newJournal(t *testing.T, credit CreditPolicy) *journal {
	return &journal{t: t, credit: credit, balance: types.INR(0)}
}

func (j *journal) seq() int64 { return int64(len(j.entries) + 1) }

func (j *journal) bill(date time.Time, total int64) *bill.Bill {
	b := newBill(j.t, date, total)
	b.Seq = j.seq()
	j.bills = append(j.bills, b)
	j.entries = append(j.entries, &transaction.Transaction{
		Entity:     types.NewEntityAt(date),
		ID:         id.NewTransactionID(),
		CustomerID: cust,
		Seq:        b.Seq,
		Date:       date,
		Type:       transaction.TypeBill,
		Amount:     b.TotalAmount,
		BillID:     b.ID,
	})
	if j.credit == CreditAutoApply && j.balance.IsPositive() {
		res, err := Allocate(OldestFirst{}, j.bills, j.balance, date)
		require.NoError(j.t, err)
		j.balance = res.Unapplied
	}
	return b
}

func (j *journal) pay(date time.Time, amount int64) Result {
	res, err := Allocate(OldestFirst{}, j.bills, types.INR(amount), date)
	require.NoError(j.t, err)
	j.balance = j.balance.Add(res.Unapplied)
	j.entries = append(j.entries, &transaction.Transaction{
		Entity:     types.NewEntityAt(date),
		ID:         id.NewTransactionID(),
		CustomerID: cust,
		Seq:        j.seq(),
		Date:       date,
		Type:       transaction.TypePayment,
		Amount:     types.INR(amount),
		Method:     transaction.MethodCash,
		Unapplied:  res.Unapplied,
	})
	return res
}

func TestReplayReproducesBills(t *testing.T) {
	j := newJournal(t, CreditStanding)
	j.bill(t0, 1000)
	j.pay(t0.Add(time.Hour), 300)
	j.bill(t0.AddDate(0, 0, 1), 500)
	j.pay(t0.AddDate(0, 0, 2), 1000)

	state, err := Replay(OldestFirst{}, CreditStanding, "inr", j.bills, j.entries)
	require.NoError(t, err)
	require.NoError(t, state.Compare(j.bills))
	assert.Equal(t, types.INR(0), state.Credit)
	assert.Len(t, state.Postings, 4)
}

func TestReplayPaymentOnlyReachesEarlierBills(t *testing.T) {
	j := newJournal(t, CreditStanding)
	j.bill(t0, 1000)
	j.pay(t0.Add(time.Hour), 1300)
	late := j.bill(t0.AddDate(0, 0, 1), 200)

	state, err := Replay(OldestFirst{}, CreditStanding, "inr", j.bills, j.entries)
	require.NoError(t, err)
	require.NoError(t, state.Compare(j.bills))
	assert.Equal(t, types.INR(300), state.Credit)
	assert.Equal(t, bill.StatusPending, late.Status, "standing credit is not consumed by new bills")
}

func TestReplayAutoApplyCredit(t *testing.T) {
	j := newJournal(t, CreditAutoApply)
	j.bill(t0, 1000)
	j.pay(t0.Add(time.Hour), 1300)
	late := j.bill(t0.AddDate(0, 0, 1), 200)
	assert.Equal(t, bill.StatusPaid, late.Status)

	state, err := Replay(OldestFirst{}, CreditAutoApply, "inr", j.bills, j.entries)
	require.NoError(t, err)
	require.NoError(t, state.Compare(j.bills))
	assert.Equal(t, types.INR(100), state.Credit)

	standing, err := Replay(OldestFirst{}, CreditStanding, "inr", j.bills, j.entries)
	require.NoError(t, err)
	assert.ErrorIs(t, standing.Compare(j.bills), ErrJournalMismatch)
}

func TestReplayDetectsTampering(t *testing.T) {
	j := newJournal(t, CreditStanding)
	b := j.bill(t0, 1000)
	j.pay(t0.Add(time.Hour), 400)

	tampered := b.Clone()
	tampered.PaidAmount = types.INR(500)
	state, err := Replay(OldestFirst{}, CreditStanding, "inr", j.bills, j.entries)
	require.NoError(t, err)
	assert.ErrorIs(t, state.Compare([]*bill.Bill{tampered}), ErrJournalMismatch)
}

func TestReplayRejectsBrokenJournal(t *testing.T) {
	t.Run("bill without entry", func(t *testing.T) {
		j := newJournal(t, CreditStanding)
		j.bill(t0, 1000)
		orphan := newBill(t, t0, 50)
		_, err := Replay(OldestFirst{}, CreditStanding, "inr", append(j.bills, orphan), j.entries)
		assert.ErrorIs(t, err, ErrJournalMismatch)
	})

	t.Run("entry for unknown bill", func(t *testing.T) {
		j := newJournal(t, CreditStanding)
		j.bill(t0, 1000)
		_, err := Replay(OldestFirst{}, CreditStanding, "inr", nil, j.entries)
		assert.ErrorIs(t, err, ErrJournalMismatch)
	})

	t.Run("amount drift", func(t *testing.T) {
		j := newJournal(t, CreditStanding)
		j.bill(t0, 1000)
		j.entries[0].Amount = types.INR(999)
		_, err := Replay(OldestFirst{}, CreditStanding, "inr", j.bills, j.entries)
		assert.ErrorIs(t, err, ErrJournalMismatch)
	})

	t.Run("unapplied drift", func(t *testing.T) {
		j := newJournal(t, CreditStanding)
		j.bill(t0, 1000)
		j.pay(t0, 1200)
		j.entries[1].Unapplied = types.INR(100)
		_, err := Replay(OldestFirst{}, CreditStanding, "inr", j.bills, j.entries)
		assert.ErrorIs(t, err, ErrJournalMismatch)
	})
}

func TestReplayOrdersBySequence(t *testing.T) {
	j := newJournal(t, CreditStanding)
	j.bill(t0, 1000)
	j.pay(t0, 600)
	j.bill(t0.AddDate(0, 0, 1), 500)
	j.pay(t0.AddDate(0, 0, 1), 700)

	shuffled := []*transaction.Transaction{j.entries[3], j.entries[1], j.entries[2], j.entries[0]}
	state, err := Replay(OldestFirst{}, CreditStanding, "inr", j.bills, shuffled)
	require.NoError(t, err)
	require.NoError(t, state.Compare(j.bills))
}

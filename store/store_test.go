package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/udhaar/bill"
	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/types"
)

func TestRollbackRunsNewestFirst(t *testing.T) {
	var order []int
	var r Rollback
	for i := 1; i <= 3; i++ {
		r.Add(func(context.Context) error {
			order = append(order, i)
			return nil
		})
	}
	require.Equal(t, 3, r.Len())
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.Equal(t, 0, r.Len())
}

func TestRollbackIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var r Rollback
	r.Add(func(ctx context.Context) error { return ctx.Err() })
	assert.NoError(t, r.Run(ctx))
}

func TestRollbackFail(t *testing.T) {
	cause := errors.New("insert failed")
	undoErr := errors.New("delete failed")

	var clean Rollback
	clean.Add(func(context.Context) error { return nil })
	assert.Equal(t, cause, clean.Fail(context.Background(), cause))

	var dirty Rollback
	ran := false
	dirty.Add(func(context.Context) error { ran = true; return nil })
	dirty.Add(func(context.Context) error { return undoErr })
	err := dirty.Fail(context.Background(), cause)
	assert.True(t, ran, "later failures must not stop earlier undo steps")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, undoErr)
	var ce *CompensationError
	assert.ErrorAs(t, err, &ce)
}

func TestMutationBatch(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cust := id.NewCustomerID()
	b := NewBatch(cust, at)
	assert.True(t, b.IsEmpty())
	assert.NotEqual(t, NewBatch(cust, at).ID, b.ID)

	orig, err := bill.Build(cust, "inr", at, []bill.ItemInput{{Name: "x", Quantity: 1, UnitPrice: types.INR(100)}})
	require.NoError(t, err)

	first := orig.Clone()
	require.NoError(t, first.Apply(types.INR(30), at))
	b.UpdateBill(orig, first)

	second := first.Clone()
	require.NoError(t, second.Apply(types.INR(70), at))
	b.UpdateBill(first, second)

	require.Len(t, b.UpdatedBills, 1)
	assert.Equal(t, types.INR(100), b.UpdatedBills[0].PaidAmount)
	assert.True(t, b.PriorBills[orig.ID.String()].PaidAmount.IsZero(), "first pre-image wins")
	assert.Equal(t, 1, b.Size())
	assert.False(t, b.IsEmpty())
}

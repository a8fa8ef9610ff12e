package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/udhaar/id"
	"github.com/xraph/udhaar/types"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodCash, false},
		{"cash", MethodCash, false},
		{" Bank ", MethodBank, false},
		{"CARD", MethodCard, false},
		{"cheque", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMethod(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	payment := func() *Transaction {
		return &Transaction{
			ID:         id.NewTransactionID(),
			CustomerID: id.NewCustomerID(),
			Type:       TypePayment,
			Amount:     types.INR(500),
			Method:     MethodCash,
			Unapplied:  types.INR(0),
		}
	}

	require.NoError(t, payment().Validate())

	zero := payment()
	zero.Amount = types.INR(0)
	assert.ErrorIs(t, zero.Validate(), ErrInvalid)

	withBill := payment()
	withBill.BillID = id.NewBillID()
	assert.ErrorIs(t, withBill.Validate(), ErrInvalid)

	over := payment()
	over.Unapplied = types.INR(501)
	assert.ErrorIs(t, over.Validate(), ErrInvalid)

	unknown := payment()
	unknown.Type = "refund"
	assert.ErrorIs(t, unknown.Validate(), ErrInvalid)

	posting := &Transaction{
		ID:         id.NewTransactionID(),
		CustomerID: id.NewCustomerID(),
		Type:       TypeBill,
		Amount:     types.INR(500),
	}
	assert.ErrorIs(t, posting.Validate(), ErrInvalid)
	posting.BillID = id.NewBillID()
	assert.NoError(t, posting.Validate())
}

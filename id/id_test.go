package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/udhaar/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"CustomerID", id.NewCustomerID, "cust_"},
		{"BillID", id.NewBillID, "bill_"},
		{"BillItemID", id.NewBillItemID, "bitem_"},
		{"TransactionID", id.NewTransactionID, "txn_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixBill)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixBill {
		t.Errorf("expected prefix %q, got %q", id.PrefixBill, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"CustomerID", id.NewCustomerID, id.ParseCustomerID},
		{"BillID", id.NewBillID, id.ParseBillID},
		{"BillItemID", id.NewBillItemID, id.ParseBillItemID},
		{"TransactionID", id.NewTransactionID, id.ParseTransactionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseCustomerID rejects bill_", id.NewBillID().String(), id.ParseCustomerID},
		{"ParseBillID rejects bitem_", id.NewBillItemID().String(), id.ParseBillID},
		{"ParseBillItemID rejects txn_", id.NewTransactionID().String(), id.ParseBillItemID},
		{"ParseTransactionID rejects cust_", id.NewCustomerID().String(), id.ParseTransactionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseWithPrefix(t *testing.T) {
	i := id.NewBillID()
	parsed, err := id.ParseWithPrefix(i.String(), id.PrefixBill)
	if err != nil {
		t.Fatalf("ParseWithPrefix failed: %v", err)
	}
	if parsed.String() != i.String() {
		t.Errorf("mismatch: %q != %q", parsed.String(), i.String())
	}

	_, err = id.ParseWithPrefix(i.String(), id.PrefixCustomer)
	if err == nil {
		t.Error("expected error for wrong prefix")
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	if err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewBillID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	// Nil round-trip.
	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewBillID()
	b := id.NewBillID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewBillID() calls returned the same ID: %q", a.String())
	}
}

func TestCompare(t *testing.T) {
	a, err := id.ParseBillID("bill_01h2xcejqtf2nbrexx3vqjhp41")
	if err != nil {
		t.Fatal(err)
	}
	b, err := id.ParseBillID("bill_01h455vb4pex5vsknk084sn02q")
	if err != nil {
		t.Fatal(err)
	}

	if a.Compare(b) >= 0 {
		t.Errorf("expected %q < %q", a, b)
	}
	if b.Compare(a) <= 0 {
		t.Errorf("expected %q > %q", b, a)
	}
	if a.Compare(a) != 0 {
		t.Error("expected ID to compare equal to itself")
	}
	if id.Nil.Compare(a) >= 0 {
		t.Error("expected Nil to sort first")
	}
}

package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"INR", INR(250000), 250000, "inr", "Rs 2500.00"},
		{"PKR", PKR(12050), 12050, "pkr", "Rs 120.50"},
		{"USD", USD(4900), 4900, "usd", "$49.00"},
		{"New upper-case", New(100, "INR"), 100, "inr", "Rs 1.00"},
		{"Zero INR", Zero("INR"), 0, "inr", "Rs 0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return INR(100).Add(INR(200)) }, INR(300)},
		{"Subtract", func() Money { return INR(500).Subtract(INR(200)) }, INR(300)},
		{"Subtract below zero", func() Money { return INR(100).Subtract(INR(300)) }, INR(-200)},
		{"Multiply", func() Money { return INR(12500).Multiply(3) }, INR(37500)},
		{"Negate", func() Money { return INR(100).Negate() }, INR(-100)},
		{"Complex", func() Money {
			return INR(1000).Add(INR(500)).Multiply(2).Subtract(INR(1000))
		}, INR(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneySubtractNonNegative(t *testing.T) {
	got, err := INR(1800).SubtractNonNegative(INR(800))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(INR(1000)) {
		t.Errorf("got %v, want %v", got, INR(1000))
	}

	exact, err := INR(500).SubtractNonNegative(INR(500))
	if err != nil || !exact.IsZero() {
		t.Errorf("exact subtraction: got %v, %v", exact, err)
	}

	_, err = INR(100).SubtractNonNegative(INR(101))
	var neg *NegativeResultError
	if !errors.As(err, &neg) {
		t.Fatalf("expected NegativeResultError, got %v", err)
	}
	if !neg.Left.Equal(INR(100)) || !neg.Right.Equal(INR(101)) {
		t.Errorf("unexpected operands: %+v", neg)
	}
}

func TestMoneyCheckedArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		op      func() (Money, error)
		want    Money
		wantErr bool
	}{
		{"Add", func() (Money, error) { return INR(100).AddChecked(INR(200)) }, INR(300), false},
		{"Add to max", func() (Money, error) { return INR(math.MaxInt64 - 1).AddChecked(INR(1)) }, INR(math.MaxInt64), false},
		{"Add past max", func() (Money, error) { return INR(math.MaxInt64).AddChecked(INR(1)) }, Money{}, true},
		{"Add past min", func() (Money, error) { return INR(math.MinInt64).AddChecked(INR(-1)) }, Money{}, true},
		{"Multiply", func() (Money, error) { return INR(12500).MultiplyChecked(3) }, INR(37500), false},
		{"Multiply by zero", func() (Money, error) { return INR(math.MaxInt64).MultiplyChecked(0) }, INR(0), false},
		{"Multiply past max", func() (Money, error) { return INR(1<<62 + 1).MultiplyChecked(4) }, Money{}, true},
		{"Multiply min by -1", func() (Money, error) { return INR(math.MinInt64).MultiplyChecked(-1) }, Money{}, true},
		{"Multiply large quantity", func() (Money, error) { return INR(2).MultiplyChecked(math.MaxInt64) }, Money{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Fatalf("expected ErrOutOfRange, got %v, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	_ = INR(100).Add(USD(100))
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", INR(100), INR(100), false, false, true},
		{"Less", INR(50), INR(100), true, false, false},
		{"Greater", INR(200), INR(100), false, true, false},
		{"Zero equal", INR(0), Zero("inr"), false, false, true},
		{"Negative less", INR(-100), INR(100), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyMinMax(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Money
		min, max Money
	}{
		{"First smaller", INR(50), INR(100), INR(50), INR(100)},
		{"Second smaller", INR(100), INR(50), INR(50), INR(100)},
		{"Equal", INR(100), INR(100), INR(100), INR(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if minVal := tt.a.Min(tt.b); !minVal.Equal(tt.min) {
				t.Errorf("Min: got %v, want %v", minVal, tt.min)
			}
			if maxVal := tt.a.Max(tt.b); !maxVal.Equal(tt.max) {
				t.Errorf("Max: got %v, want %v", maxVal, tt.max)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{INR(250000), "2500.00"},
		{INR(100), "1.00"},
		{INR(1), "0.01"},
		{INR(0), "0.00"},
		{INR(-4900), "-49.00"},
		{INR(-1), "-0.01"},
		{New(100, "jpy"), "100"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input   string
		want    Money
		wantErr bool
	}{
		{"2500", INR(250000), false},
		{"120.5", INR(12050), false},
		{"120.50", INR(12050), false},
		{" 0.01 ", INR(1), false},
		{"0.1", INR(10), false},
		{"-3", INR(-300), false},
		{"92233720368547758.07", INR(math.MaxInt64), false},
		{"92233720368547758.08", Money{}, true},
		{"100000000000000000000", Money{}, true},
		{"-100000000000000000000", Money{}, true},
		{"12.505", Money{}, true},
		{"abc", Money{}, true},
		{"", Money{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMoney(tt.input, "INR")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	m := INR(250000)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	expected := `{"amount":250000,"currency":"inr","display":"Rs 2500.00"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !back.Equal(m) {
		t.Errorf("round trip: got %v, want %v", back, m)
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Money
		expected Money
	}{
		{"Empty", []Money{}, Zero("inr")},
		{"Single", []Money{INR(100)}, INR(100)},
		{"Multiple", []Money{INR(100), INR(200), INR(300)}, INR(600)},
		{"With negatives", []Money{INR(100), INR(-50), INR(200)}, INR(250)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sum("inr", tt.values...)
			if !result.Equal(tt.expected) {
				t.Errorf("Sum: got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCurrencySymbols(t *testing.T) {
	tests := []struct {
		currency string
		symbol   string
	}{
		{"inr", "Rs "},
		{"pkr", "Rs "},
		{"usd", "$"},
		{"unknown", "UNKNOWN "},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			got := currencySymbol(tt.currency)
			if got != tt.symbol {
				t.Errorf("Symbol for %s: got %s, want %s", tt.currency, got, tt.symbol)
			}
		})
	}
}

func BenchmarkMoneyAdd(b *testing.B) {
	m1 := INR(100)
	m2 := INR(200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m1.Add(m2)
	}
}

func BenchmarkMoneyString(b *testing.B) {
	m := INR(250000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.String()
	}
}

// Package types provides common types used across Udhaar.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency used when none is configured.
const DefaultCurrency = "inr"

// Money represents a monetary value in the smallest currency unit.
// All arithmetic is integer-only.
//
// Examples:
//   - INR(250000) = Rs 2500.00 (250000 paise)
//   - PKR(12050) = Rs 120.50
//   - USD(4900) = $49.00
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (paise, cents, ...)
	Currency string `json:"currency"` // ISO 4217 lowercase: "inr", "pkr", "usd"
}

// INR creates a Money value in Indian Rupees (paise).
func INR(paise int64) Money { return Money{Amount: paise, Currency: "inr"} }

// PKR creates a Money value in Pakistani Rupees (paisa).
func PKR(paisa int64) Money { return Money{Amount: paisa, Currency: "pkr"} }

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: strings.ToLower(currency)} }

// New returns a Money value of amount minor units in currency.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// ErrOutOfRange is returned when a result does not fit in int64 minor units.
var ErrOutOfRange = errors.New("money: amount out of range")

// NegativeResultError is returned when a subtraction would drive a value
// that must stay non-negative below zero.
type NegativeResultError struct {
	Left  Money
	Right Money
}

func (e *NegativeResultError) Error() string {
	return fmt.Sprintf("money: %s - %s would be negative", e.Left, e.Right)
}

// Arithmetic operations

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// AddChecked is Add that fails with ErrOutOfRange instead of wrapping.
func (m Money) AddChecked(other Money) (Money, error) {
	m.assertSameCurrency(other)
	if (other.Amount > 0 && m.Amount > math.MaxInt64-other.Amount) ||
		(other.Amount < 0 && m.Amount < math.MinInt64-other.Amount) {
		return m, fmt.Errorf("%w: %s + %s", ErrOutOfRange, m, other)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Subtract subtracts another Money value. Panics if currencies don't match.
// The result may be negative; use SubtractNonNegative for guarded balances.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// SubtractNonNegative subtracts other and fails with *NegativeResultError
// instead of producing a value below zero.
func (m Money) SubtractNonNegative(other Money) (Money, error) {
	m.assertSameCurrency(other)
	if other.Amount > m.Amount {
		return m, &NegativeResultError{Left: m, Right: other}
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Multiply multiplies the Money by a quantity.
func (m Money) Multiply(qty int64) Money {
	return Money{Amount: m.Amount * qty, Currency: m.Currency}
}

// MultiplyChecked is Multiply that fails with ErrOutOfRange instead of
// wrapping.
func (m Money) MultiplyChecked(qty int64) (Money, error) {
	if m.Amount != 0 && qty != 0 {
		p := m.Amount * qty
		if p/qty != m.Amount || (qty == -1 && m.Amount == math.MinInt64) {
			return m, fmt.Errorf("%w: %s x %d", ErrOutOfRange, m, qty)
		}
	}
	return Money{Amount: m.Amount * qty, Currency: m.Currency}, nil
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Compare returns -1, 0 or +1. Panics if currencies don't match.
func (m Money) Compare(other Money) int {
	m.assertSameCurrency(other)
	switch {
	case m.Amount < other.Amount:
		return -1
	case m.Amount > other.Amount:
		return 1
	default:
		return 0
	}
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool { return m.Compare(other) < 0 }

// GreaterThan returns true if this Money is greater than other. Panics if currencies don't match.
func (m Money) GreaterThan(other Money) bool { return m.Compare(other) > 0 }

// Min returns the smaller of two Money values. Panics if currencies don't match.
func (m Money) Min(other Money) Money {
	if m.Compare(other) < 0 {
		return m
	}
	return other
}

// Max returns the larger of two Money values. Panics if currencies don't match.
func (m Money) Max(other Money) Money {
	if m.Compare(other) > 0 {
		return m
	}
	return other
}

// Formatting and parsing

// Decimal returns the value in major units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -int32(currencyDecimals(m.Currency)))
}

// FormatMajor returns the major unit string without currency symbol.
// "2500.00" for INR(250000), "100" for JPY-like zero-decimal currencies.
func (m Money) FormatMajor() string {
	return m.Decimal().StringFixed(int32(currencyDecimals(m.Currency)))
}

// String returns a human-readable string with currency symbol.
// Examples: "Rs 2500.00", "$49.00".
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// ParseMoney parses a major-unit string such as "120.50" into Money.
// Values carrying more precision than the currency allows are rejected
// rather than rounded.
func ParseMoney(s, currency string) (Money, error) {
	currency = strings.ToLower(currency)
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}

	minor := d.Shift(int32(currencyDecimals(currency)))
	if !minor.IsInteger() {
		return Money{}, fmt.Errorf("money: parse %q: too many decimal places for %s", s, currency)
	}

	if !minor.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, ErrOutOfRange)
	}

	return Money{Amount: minor.IntPart(), Currency: currency}, nil
}

// Helper functions

// assertSameCurrency panics if currencies don't match.
func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	symbols := map[string]string{
		"inr": "Rs ",
		"pkr": "Rs ",
		"npr": "Rs ",
		"lkr": "Rs ",
		"usd": "$",
		"eur": "€",
		"gbp": "£",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// currencyDecimals returns the number of decimal places for a currency.
func currencyDecimals(currency string) int {
	zeroDecimal := map[string]bool{
		"jpy": true,
		"krw": true,
		"vnd": true,
		"idr": true,
	}
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// Sum calculates the sum of multiple Money values in currency.
// All values must share that currency.
func Sum(currency string, values ...Money) Money {
	result := Zero(currency)
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// internal/pkg/money/money.go

// Package money represents currency amounts as integer minor units
// (paise, cents) so that cart arithmetic is exact.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units. The zero value is zero.
type Money int64

// Zero is the zero amount.
const Zero Money = 0

const minorExponent = -2

// FromMinor wraps a minor-unit amount.
func FromMinor(v int64) Money {
	return Money(v)
}

// FromDecimal converts a major-unit decimal, rounding half away from zero to
// the minor unit.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(-minorExponent).Round(0).IntPart())
}

// Parse reads a major-unit amount such as "5.99" or "150".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), minorExponent)
}

// Times multiplies by a quantity.
func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m < 0
}

// String formats the amount with two decimals, e.g. "162.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string in major units.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		*m = 0
		return nil
	}
	v, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}

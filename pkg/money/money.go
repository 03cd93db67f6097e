// Package money handles fixed-point currency amounts.
//
// Amounts are carried as int64 minor units (cents) everywhere inside the
// engine; decimal strings appear only at the API boundary. Fee math runs
// on shopspring decimals and rounds half-even to the cent.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts a 2-decimal currency string ("99.99") to minor units.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	return d.Shift(2).IntPart(), nil
}

// Format renders minor units as a 2-decimal string.
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// MulRoundHalfEven multiplies minor units by a decimal rate and rounds
// half-even ("banker's rounding") back to minor units. Pure; stable under
// repeated computation.
func MulRoundHalfEven(cents int64, rate decimal.Decimal) int64 {
	return decimal.New(cents, 0).Mul(rate).RoundBank(0).IntPart()
}

// ParseRate parses a fractional rate such as a fee percentage ("0.20").
func ParseRate(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty rate")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("rate %q out of range [0,1]", s)
	}
	return d, nil
}

// Package money wraps decimal arithmetic for two-decimal currency amounts.
// All rounding is half-to-even.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for every amount.
const Scale = 2

// Epsilon is the tolerance used when comparing a paid amount to a total.
var Epsilon = decimal.New(1, -Scale)

// Zero is a convenience zero amount.
var Zero = decimal.Zero

// Round applies banker's rounding at Scale.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Scale)
}

// FromInt builds an amount from whole currency units.
func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// Parse reads a decimal string and rounds it to Scale.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Round(d), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Sum adds amounts and rounds the result.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round(total)
}

// Max returns the larger amount.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller amount.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Positive reports whether d > 0.
func Positive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// Exceeds reports whether a is greater than b by more than Epsilon.
func Exceeds(a, b decimal.Decimal) bool {
	return a.Sub(b).GreaterThan(Epsilon)
}

// Format renders an amount with thousands separators, e.g. 1,250,000.00.
func Format(d decimal.Decimal) string {
	s := Round(d).StringFixed(Scale)
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	intPart, frac := s[:len(s)-Scale-1], s[len(s)-Scale-1:]
	var out []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return sign + string(out) + frac
}

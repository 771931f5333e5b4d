// Package money provides currency-safe arithmetic for the pricing engine.
// Amounts are carried as int64 minor units (cents) so that integer
// quantities never accumulate rounding error; fractional inputs (weights,
// percentages, multipliers) round half-up at the point they enter.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is a monetary value in minor units.
type Money = int64

// FromFloat converts a major-unit amount (e.g. 7.995 dollars) into minor
// units, rounding half-up on the cent. Non-finite input yields 0.
func FromFloat(v float64) Money {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	cents := v * 100
	if cents >= 0 {
		return Money(math.Floor(cents + 0.5))
	}
	return -Money(math.Floor(-cents + 0.5))
}

// Percent applies a basis-point rate to an amount with half-up rounding.
// Percent(10000, 700) == 700 (7% of 100.00).
func Percent(m Money, bps int64) Money {
	if m == 0 || bps == 0 {
		return 0
	}
	product := m * bps
	if product >= 0 {
		return (product + 5000) / 10000
	}
	return -((-product + 5000) / 10000)
}

// ProRata scales amount by part/whole with half-up rounding. A non-positive
// whole yields 0 so split computations over an empty check collapse cleanly.
func ProRata(amount, part, whole Money) Money {
	if whole <= 0 || amount == 0 || part == 0 {
		return 0
	}
	product := amount * part
	if product >= 0 {
		return (product + whole/2) / whole
	}
	return -((-product + whole/2) / whole)
}

// Scale multiplies an amount by an arbitrary factor (weight multipliers,
// price-rule ratios) rounding half-up. Non-finite factors yield 0 and a
// non-negative input never scales below 0.
func Scale(m Money, factor float64) Money {
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return 0
	}
	scaled := float64(m) * factor
	out := FromFloat(scaled / 100)
	if m >= 0 && out < 0 {
		return 0
	}
	return out
}

// Format renders minor units as a plain decimal string ("6650" -> "66.50").
func Format(m Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}

// ParseDecimal parses a decimal major-unit string ("66.50") into minor
// units. At most two fraction digits are accepted.
func ParseDecimal(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	var cents int64
	switch len(frac) {
	case 0:
	case 1:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("money: parse %q: %w", s, err)
		}
		cents = d * 10
	case 2:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("money: parse %q: %w", s, err)
		}
		cents = d
	default:
		return 0, fmt.Errorf("money: parse %q: too many fraction digits", s)
	}
	out := major*100 + cents
	if neg {
		out = -out
	}
	return out, nil
}

// Package core provides money parsing and handling utilities.
//
// Amounts are kept in minor units (cents) and parsed through
// shopspring/decimal so that user input never goes through float64.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// maxCents bounds parsed input well below int64 overflow.
var maxCents = decimal.New(1, 15)

// ParseAmount converts a decimal string to Money with half-up rounding to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Zero is a valid
// amount; negative values, exponents and malformed input are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("0")      -> 0 cents
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.GreaterThanOrEqual(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the major-unit value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders m with exactly two decimals and no currency symbol.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Times(n int) Money {
	return Money{Cents: m.Cents * int64(n)}
}

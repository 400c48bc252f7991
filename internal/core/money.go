// Package core provides money parsing and handling utilities.
//
// This file contains the decimal money type shared by transactions and
// budgets and the parser that turns client supplied amounts into it.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. It is serialized as a bare JSON number.
type Money struct {
	decimal.Decimal
}

// Zero is the additive identity used by the aggregations.
var Zero = Money{Decimal: decimal.Zero}

// NewMoney wraps a decimal.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

// MoneyFromString parses a stored decimal string without range checks.
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return Money{Decimal: d}, nil
}

// Plus returns m + o.
func (m Money) Plus(o Money) Money {
	return Money{Decimal: m.Decimal.Add(o.Decimal)}
}

// Same reports whether both amounts are numerically equal.
func (m Money) Same(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw RawAmount
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	parsed, err := MoneyFromString(string(raw))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// RawAmount holds an amount exactly as the client sent it, before validation.
// A JSON number is kept as its literal text, a JSON string is unquoted, and
// any other value is kept verbatim so that validation can reject it.
type RawAmount string

func (r *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*r = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawAmount(s)
	default:
		*r = RawAmount(data)
	}
	return nil
}

const (
	// maxIntegerDigits bounds the digits left of the decimal point.
	maxIntegerDigits = 15
	// maxFractionDigits bounds the digits right of the decimal point.
	maxFractionDigits = 10
	// maxAmountLength bounds the raw text handed to the decimal parser.
	maxAmountLength = 64
)

// ParseAmount converts a client supplied amount to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and keeps
// the full precision of the input. A comma is only read as a decimal
// separator when no dot is present, so "1,234" is 1.234 and "1,234.50" is
// rejected. Returns ErrInvalidAmount for non-numeric input, for zero or
// negative values and for amounts with more than 15 integer or 10 fraction
// digits once any exponent is expanded.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("1,234")    -> 1.234, nil
//	ParseAmount("1.5e3")    -> 1500, nil
//	ParseAmount("1,234.50") -> ErrInvalidAmount
//	ParseAmount("1e5000")   -> ErrInvalidAmount
//	ParseAmount("0")        -> ErrInvalidAmount
//	ParseAmount("abc")      -> ErrInvalidAmount
func ParseAmount(raw RawAmount) (Money, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || len(s) > maxAmountLength {
		return Money{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if !d.IsPositive() || !withinDigits(d) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Decimal: d}, nil
}

// withinDigits reports whether d fits the integer and fraction digit limits.
// The exponent is checked before the coefficient is formatted.
func withinDigits(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp > maxIntegerDigits || exp < -(maxIntegerDigits+maxFractionDigits) {
		return false
	}
	coef := d.Coefficient().String()
	if len(coef) > maxIntegerDigits+maxFractionDigits {
		return false
	}
	// Trailing zeros of the coefficient carry no fraction digits.
	trimmed := strings.TrimRight(coef, "0")
	exp += int64(len(coef) - len(trimmed))
	if exp < 0 && -exp > maxFractionDigits {
		return false
	}
	return int64(len(trimmed))+exp <= maxIntegerDigits
}

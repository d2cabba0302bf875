// Package types provides common value types.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits persisted for amounts.
const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Round rounds an amount to the persisted scale (half away from zero).
func Round(m Money) Money {
	return m.Round(MoneyScale)
}

// LineTotal returns quantity × unitPrice rounded to the persisted scale.
func LineTotal(quantity int64, unitPrice Money) Money {
	return Round(unitPrice.Mul(decimal.NewFromInt(quantity)))
}

// Percent returns amount × rate / 100 rounded to the persisted scale.
func Percent(amount, rate Money) Money {
	return Round(amount.Mul(rate).Div(hundred))
}

// ValidRate reports whether rate is a percentage in [0, 100].
func ValidRate(rate Money) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}

// Package money converts between the shop platform's decimal currency
// representation and the provider's minor-unit integer representation.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinor converts a shop-side decimal amount to provider minor units,
// rounding half away from zero. The same conversion is applied to every
// amount and tax rate in a payload so that line sums stay consistent.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// ToMajor converts provider minor units back to a shop-side decimal with two
// fraction digits.
func ToMajor(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(hundred).Round(2)
}

// RateToMinor converts a percentage (e.g. 25.0) to the provider's minor-unit
// rate representation (2500).
func RateToMinor(rate decimal.Decimal) int64 {
	return ToMinor(rate)
}

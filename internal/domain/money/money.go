// Package money converts between provider amount encodings and the
// canonical decimal amounts stored on orders and payments.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an upper-case ISO 4217 code.
type Currency string

const (
	USD Currency = "USD"
	RUB Currency = "RUB"
	KZT Currency = "KZT"
)

// SupportedCurrencies are the currencies an order can be priced in.
var SupportedCurrencies = []Currency{USD, RUB, KZT}

// exponents lists currencies whose minor unit is not 1/100.
var exponents = map[Currency]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

// ParseCurrency normalizes a currency code without checking support.
func ParseCurrency(code string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(code)))
}

// NormalizeCurrency returns the supported order currency for code.
func NormalizeCurrency(code string) (Currency, error) {
	cur := ParseCurrency(code)
	for _, supported := range SupportedCurrencies {
		if cur == supported {
			return cur, nil
		}
	}
	return "", fmt.Errorf("unsupported currency: %q", code)
}

// Exponent returns the number of minor-unit digits for cur.
func Exponent(cur Currency) int32 {
	if exp, ok := exponents[ParseCurrency(string(cur))]; ok {
		return exp
	}
	return 2
}

// Canonical rounds amount to the currency precision.
func Canonical(amount decimal.Decimal, cur Currency) decimal.Decimal {
	return amount.Round(Exponent(cur))
}

// FromMinorUnits converts an integer amount in minor units (cents).
func FromMinorUnits(minor int64, cur Currency) decimal.Decimal {
	return decimal.New(minor, -Exponent(cur))
}

// ToMinorUnits converts amount to integer minor units, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal, cur Currency) int64 {
	return amount.Shift(Exponent(cur)).Round(0).IntPart()
}

// ParseDecimal parses a decimal string amount such as "1500.00".
func ParseDecimal(value string, cur Currency) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return Canonical(amount, cur), nil
}

// Format renders amount with exactly the currency precision.
func Format(amount decimal.Decimal, cur Currency) string {
	return amount.StringFixed(Exponent(cur))
}

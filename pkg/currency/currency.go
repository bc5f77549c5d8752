// Package currency provides helpers for parsing and formatting monetary
// values as exact decimals.
package currency

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a currency string into an exact decimal. It strips a
// leading dollar sign, thousands separators and whitespace before parsing,
// so "$1,234.56" and "1234.56" both yield 1234.56.
func ParseAmount(input string) (decimal.Decimal, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(input))

	hasDigit := false
	for _, r := range cleaned {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

// Format renders an amount as a dollar string with exactly two decimal
// places, e.g. "$1234.50".
func Format(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

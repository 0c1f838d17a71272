package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits coins are tracked with.
const AmountScale = 2

// IsValidAmount reports whether d is strictly positive with at most two
// fractional digits.
func IsValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(AmountScale))
}

// ParseAmount parses a decimal string and applies IsValidAmount.
func ParseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !IsValidAmount(d) {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders d with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

package service

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// FormatUSD renders an amount as dollars and cents, e.g. "$1,234.50".
// Amounts beyond int64 cents are grouped by hand instead of wrapping.
func FormatUSD(amount decimal.Decimal) string {
	cents := amount.Shift(2).Round(0)
	if cents.Abs().LessThanOrEqual(maxCents) {
		return money.New(cents.IntPart(), money.USD).Display()
	}

	whole, frac, _ := strings.Cut(amount.Abs().StringFixed(2), ".")

	var b strings.Builder
	if amount.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	b.WriteByte('.')
	b.WriteString(frac)

	return b.String()
}

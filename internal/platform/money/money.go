// Package money holds the fixed-point arithmetic shared by billing, analytics
// and export. Amounts are shopspring decimals rounded to two places.
package money

import (
	"github.com/shopspring/decimal"
)

// TaxRate is the flat GST applied to bills derived from a report.
var TaxRate = decimal.RequireFromString("0.18")

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Tax returns the GST due on subtotal.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Mul(TaxRate))
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Percent returns part/whole*100 rounded to two places, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return Round2(part.Div(whole).Mul(hundred))
}

// String renders an amount with exactly two decimals ("944.00").
func String(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Label renders an amount for printed documents ("Rs. 944.00"). The core PDF
// fonts have no rupee glyph.
func Label(d decimal.Decimal) string {
	return "Rs. " + d.StringFixed(2)
}

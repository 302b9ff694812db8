package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// Amount converts a float amount into a decimal rounded to paise.
func Amount(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// ParseAmount reads a printed money value such as "₹1,200.50" or "Rs. 800".
// ok is false when nothing numeric remains.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "Rs."), "Rs")
	s = nonNumeric.ReplaceAllString(s, "")
	s = strings.TrimLeft(s, ".")
	if s == "" || s == "-" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

/*
points.go - Point amount parsing and formatting

PURPOSE:
  Users type point amounts as "50k", "12,345", or plain numbers. These
  helpers normalize the user form to an integer point count and render
  it back with thousands separators. Decimal arithmetic avoids float
  surprises on inputs like "1.5k".
*/
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePoints parses a user-entered point amount. Accepts thousands
// separators and a trailing "k" multiplier ("50k" -> 50000,
// "1.5k" -> 1500). Unparseable input yields 0 and ok=false.
func ParsePoints(value string) (int64, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	if cleaned == "" {
		return 0, false
	}

	multiplier := decimal.NewFromInt(1)
	if strings.HasSuffix(cleaned, "k") {
		cleaned = strings.TrimSuffix(cleaned, "k")
		multiplier = decimal.NewFromInt(1000)
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	return d.Mul(multiplier).Round(0).IntPart(), true
}

// FormatPoints renders a point count with commas as thousands
// separators, e.g. 1234567 -> "1,234,567".
func FormatPoints(value int64) string {
	s := decimal.NewFromInt(value).Abs().String()
	var b strings.Builder
	if value < 0 {
		b.WriteByte('-')
	}
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// transferBonusPoints computes the partner bonus for a transfer:
// round(points * bonusPercent / 100), rounded to nearest integer.
func transferBonusPoints(points, bonusPercent int64) int64 {
	return decimal.NewFromInt(points).
		Mul(decimal.NewFromInt(bonusPercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

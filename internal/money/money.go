// Package money parses and formats Brazilian real amounts.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse coerces a cell to a number. Empty, non-numeric and NaN cells become 0.
//
// Both separator conventions appear in exports: "1.234,56" and "1234.56".
// When both '.' and ',' are present the rightmost one is the decimal mark.
// A lone comma is a decimal comma. Several dots with no comma are thousands
// separators.
func Parse(s string) float64 {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0
	}
	return d.InexactFloat64()
}

// ParseDecimal is Parse without the zero fallback.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, "R$", "")
	if s == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, false
		}
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Format renders v as "R$ 1.234,56".
func Format(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + "R$ " + groupThousands(intPart) + "," + frac
}

// FormatNumber renders an integer count with dot thousands separators.
func FormatNumber(n int) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	return sign + groupThousands(decimal.NewFromInt(int64(n)).String())
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

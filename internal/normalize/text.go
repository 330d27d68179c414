package normalize

import (
	"strings"
	"unicode"

	"github.com/labrasa/salesdash/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CanonicalText strips diacritics, collapses whitespace and uppercases.
// "  Ponta  Verde " and "PONTA VÊRDE" both become "PONTA VERDE".
func CanonicalText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.Join(strings.Fields(out), " "))
}

// PostalCode keeps the digits of a CEP and left-pads them to 8.
// Cells without digits stay empty so they never turn into "00000000".
func PostalCode(s string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return ""
	}
	if len(digits) < 8 {
		digits = strings.Repeat("0", 8-len(digits)) + digits
	}
	return digits
}

// OrderID trims the cell and drops a spreadsheet float suffix ("12345.0").
func OrderID(s string) string {
	return models.CanonicalOrderID(s)
}

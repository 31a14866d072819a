// Package money normalizes locale-formatted amount strings into exact
// decimal values.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Normalize parses an amount string that may use European separators
// ("1.234,56") or plain decimal notation ("1234.56"). Currency symbols
// and other stray characters are stripped. Parsing is best-effort: any
// string that does not survive cleanup parses to zero, so callers that
// need strictness have to validate the result themselves.
func Normalize(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		// Dots are thousands separators, the comma is the decimal point.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

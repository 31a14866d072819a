package parser

import (
	"strings"
	"time"
)

// Date layouts accepted in statement cells. HTML exports use the
// day-first layout only; spreadsheet cells are tried ISO-first.
const (
	layoutDayFirst = "02.01.2006"
	layoutISO      = "2006-01-02"
)

// Header tokens per column role. Matching is case-insensitive substring
// matching, so "Buchungstag" and "Datum der Wertstellung" both resolve
// to the date role. German and English bank exports are covered.
var (
	dateTokens = []string{"datum", "buchungstag", "valuta", "wertstellung", "date"}
	descTokens = []string{
		"beschreibung", "verwendungszweck", "buchungstext",
		"empfänger", "auftraggeber", "description", "payee", "text",
	}
	amountTokens = []string{"betrag", "umsatz", "summe", "amount", "value"}
)

// columns holds the resolved index of each role within a header row.
type columns struct {
	date, desc, amount int
}

func (c columns) max() int {
	m := c.date
	if c.desc > m {
		m = c.desc
	}
	if c.amount > m {
		m = c.amount
	}
	return m
}

// resolveColumns maps header cells to roles. Each column takes at most
// one role and the date role is checked first, so a "Wertstellung"
// header can never be claimed as an amount column. Returns false unless
// all three roles resolve.
func resolveColumns(headers []string) (columns, bool) {
	cols := columns{date: -1, desc: -1, amount: -1}
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		switch {
		case cols.date == -1 && matchesAny(h, dateTokens):
			cols.date = i
		case cols.desc == -1 && matchesAny(h, descTokens):
			cols.desc = i
		case cols.amount == -1 && matchesAny(h, amountTokens):
			cols.amount = i
		}
	}
	return cols, cols.date >= 0 && cols.desc >= 0 && cols.amount >= 0
}

func matchesAny(header string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(header, t) {
			return true
		}
	}
	return false
}

// parseCellDate tries the accepted string layouts in order.
func parseCellDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{layoutISO, layoutDayFirst} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

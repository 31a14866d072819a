package parser

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/finbook-app/finbook/pkg/money"
	"github.com/finbook-app/finbook/pkg/recurrence"
)

// parseHTML scans every table in document order and extracts rows from
// the first one whose header resolves all three column roles. Tables are
// not scored against each other; the first full match wins.
func (p *Parser) parseHTML(data []byte) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var records []Record
	found := false

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 1 {
			return true
		}

		cols, ok := resolveColumns(headerCells(rows.First()))
		if !ok {
			return true // try the next table
		}
		found = true

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td").Map(func(_ int, c *goquery.Selection) string {
				return strings.TrimSpace(c.Text())
			})
			if len(cells) <= cols.max() {
				return
			}
			// A fixed day-first pattern doubles as the row filter: stray
			// header or footer rows never parse as a date.
			date, err := time.Parse(layoutDayFirst, cells[cols.date])
			if err != nil {
				p.logger.Debug("skipping row without parsable date", "cell", cells[cols.date])
				return
			}
			records = append(records, Record{
				Date:        recurrence.CivilDate(date),
				Description: cells[cols.desc],
				Amount:      money.Normalize(cells[cols.amount]),
			})
		})
		return false // first full match wins
	})

	if !found {
		return nil, fmt.Errorf("%w: no table with date, description and amount columns", ErrUnrecognizedFormat)
	}
	return records, nil
}

// headerCells returns the texts of the first row's header cells, falling
// back to its data cells when the table has no <th> elements.
func headerCells(row *goquery.Selection) []string {
	cells := row.Find("th")
	if cells.Length() == 0 {
		cells = row.Find("td")
	}
	return cells.Map(func(_ int, c *goquery.Selection) string {
		return c.Text()
	})
}

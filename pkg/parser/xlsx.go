package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/finbook-app/finbook/pkg/money"
	"github.com/finbook-app/finbook/pkg/recurrence"
)

// parseXLSX handles .xlsx exports, where cells carry types. Date cells
// may be native date values or strings; amount cells may be numeric or
// locale-formatted strings. The distinction is made by inspecting the
// cell type, never by pattern-matching the rendered text.
func (p *Parser) parseXLSX(data []byte) ([]Record, error) {
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("open xlsx workbook: %w", err)
	}
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnrecognizedFormat)
	}
	sheet := wb.Sheets[0]

	var cols columns
	var records []Record

	rowIdx := 0
	err = sheet.ForEachRow(func(row *xlsx.Row) error {
		idx := rowIdx
		rowIdx++

		if idx == 0 {
			var ok bool
			cols, ok = resolveColumns(rowStrings(row))
			if !ok {
				return fmt.Errorf("%w: header row lacks date, description or amount column", ErrUnrecognizedFormat)
			}
			return nil
		}

		date, ok := p.cellDate(row.GetCell(cols.date))
		if !ok {
			return nil
		}
		amount, ok := p.cellAmount(row.GetCell(cols.amount))
		if !ok {
			return nil
		}
		records = append(records, Record{
			Date:        recurrence.CivilDate(date),
			Description: strings.TrimSpace(row.GetCell(cols.desc).String()),
			Amount:      amount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rowIdx == 0 {
		return nil, fmt.Errorf("%w: empty sheet", ErrUnrecognizedFormat)
	}
	return records, nil
}

// cellDate reads either a native spreadsheet date or a string in one of
// the accepted layouts. Rows without a readable date are skipped.
func (p *Parser) cellDate(cell *xlsx.Cell) (time.Time, bool) {
	if cell.IsTime() {
		t, err := cell.GetTime(false)
		if err == nil {
			return t, true
		}
		p.logger.Debug("skipping row with unreadable date cell", "error", err)
		return time.Time{}, false
	}
	d, ok := parseCellDate(cell.String())
	if !ok {
		p.logger.Debug("skipping row without parsable date", "cell", cell.String())
	}
	return d, ok
}

// cellAmount reads a numeric cell directly and routes string cells
// through the locale normalizer. Rows with an empty amount are skipped.
func (p *Parser) cellAmount(cell *xlsx.Cell) (decimal.Decimal, bool) {
	if cell.Type() == xlsx.CellTypeNumeric {
		f, err := cell.Float()
		if err == nil {
			return decimal.NewFromFloat(f), true
		}
		p.logger.Debug("skipping row with unreadable amount cell", "error", err)
		return decimal.Decimal{}, false
	}
	s := strings.TrimSpace(cell.String())
	if s == "" {
		p.logger.Debug("skipping row without amount")
		return decimal.Decimal{}, false
	}
	return money.Normalize(s), true
}

func rowStrings(row *xlsx.Row) []string {
	var out []string
	_ = row.ForEachCell(func(c *xlsx.Cell) error {
		out = append(out, c.String())
		return nil
	})
	return out
}

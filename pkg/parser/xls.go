package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"

	"github.com/finbook-app/finbook/pkg/money"
	"github.com/finbook-app/finbook/pkg/recurrence"
)

const maxSheetRows = 10000

// parseXLS handles legacy .xls exports. Every cell arrives as a string,
// so dates and amounts go through the same string paths as HTML cells.
func (p *Parser) parseXLS(data []byte) ([]Record, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}

	rows := workbook.ReadAllCells(maxSheetRows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty workbook", ErrUnrecognizedFormat)
	}

	cols, ok := resolveColumns(rows[0])
	if !ok {
		return nil, fmt.Errorf("%w: header row lacks date, description or amount column", ErrUnrecognizedFormat)
	}

	var records []Record
	for _, row := range rows[1:] {
		if len(row) <= cols.max() {
			continue
		}
		date, ok := parseCellDate(row[cols.date])
		if !ok {
			p.logger.Debug("skipping row without parsable date", "cell", row[cols.date])
			continue
		}
		amountCell := strings.TrimSpace(row[cols.amount])
		if amountCell == "" {
			p.logger.Debug("skipping row without amount", "date", row[cols.date])
			continue
		}
		records = append(records, Record{
			Date:        recurrence.CivilDate(date),
			Description: strings.TrimSpace(row[cols.desc]),
			Amount:      money.Normalize(amountCell),
		})
	}
	return records, nil
}

// Package parser extracts transaction candidates from bank statement
// exports. It understands HTML table exports and XLS/XLSX spreadsheet
// exports; in every case the output is an ordered list of
// {date, description, amount} records.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
)

// ErrUnrecognizedFormat means no table or column arrangement in the file
// could be mapped to the date, description and amount roles. It is fatal
// to an import, unlike per-row parse failures which are skipped.
var ErrUnrecognizedFormat = errors.New("unrecognized statement format")

// Record is one candidate transaction extracted from a statement.
type Record struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
}

// Parser turns raw statement bytes into records.
type Parser struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Parser {
	return &Parser{logger: logger}
}

// ProcessBytes dispatches on the filename extension. Rows are processed
// in a single pass; malformed rows are skipped silently (debug-logged),
// a file whose shape cannot be recognized at all fails with
// ErrUnrecognizedFormat.
func (p *Parser) ProcessBytes(data []byte, filename string) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return p.parseHTML(data)
	case ".xls":
		return p.parseXLS(data)
	case ".xlsx":
		return p.parseXLSX(data)
	}
	return nil, fmt.Errorf("%w: unsupported file %q", ErrUnrecognizedFormat, filename)
}

// Descriptions returns the distinct non-empty descriptions of records,
// preserving first-seen order. The result feeds the categorization step.
func Descriptions(records []Record) []string {
	seen := make(map[string]bool, len(records))
	var out []string
	for _, r := range records {
		d := strings.TrimSpace(r.Description)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

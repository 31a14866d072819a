package parser

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

func buildWorkbook(t *testing.T, fill func(sheet *xlsx.Sheet)) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Umsätze")
	require.NoError(t, err)
	fill(sheet)
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func addStringRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func TestParseXLSXTypedCells(t *testing.T) {
	data := buildWorkbook(t, func(sheet *xlsx.Sheet) {
		addStringRow(sheet, "Datum", "Beschreibung", "Betrag")

		// Native date cell plus native numeric amount.
		row := sheet.AddRow()
		row.AddCell().SetDate(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
		row.AddCell().SetString("Supermarkt")
		row.AddCell().SetFloat(-55.25)

		// String date (ISO) plus locale-formatted string amount.
		addStringRow(sheet, "2024-05-03", "Gehalt", "2.500,00")

		// String date, day-first layout.
		addStringRow(sheet, "04.05.2024", "Kiosk", "-2,40")

		// Missing amount: skipped.
		addStringRow(sheet, "05.05.2024", "Leer", "")

		// Unparsable date: skipped.
		addStringRow(sheet, "Summe", "Fußzeile", "123,00")
	})

	p := New(log.New(io.Discard))
	records, err := p.ProcessBytes(data, "umsaetze.xlsx")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Supermarkt", records[0].Description)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("-55.25")),
		"got %s", records[0].Amount)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), records[0].Date)

	assert.Equal(t, "Gehalt", records[1].Description)
	assert.True(t, records[1].Amount.Equal(decimal.RequireFromString("2500")))
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), records[1].Date)

	assert.Equal(t, "Kiosk", records[2].Description)
	assert.Equal(t, time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC), records[2].Date)
}

func TestParseXLSXUnrecognizedHeader(t *testing.T) {
	data := buildWorkbook(t, func(sheet *xlsx.Sheet) {
		addStringRow(sheet, "Spalte A", "Spalte B", "Spalte C")
		addStringRow(sheet, "02.05.2024", "Etwas", "1,00")
	})

	p := New(log.New(io.Discard))
	_, err := p.ProcessBytes(data, "umsaetze.xlsx")
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestDescriptions(t *testing.T) {
	records := []Record{
		{Description: "REWE"},
		{Description: ""},
		{Description: "REWE"},
		{Description: "  "},
		{Description: "Miete"},
	}
	assert.Equal(t, []string{"REWE", "Miete"}, Descriptions(records))
}

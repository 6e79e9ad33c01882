package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"unicode"
)

// utf8BOM makes spreadsheet tools detect accented Spanish text correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter renders a Dataset as UTF-8 CSV. Cells that a spreadsheet would
// read as a formula are prefixed with a quote.
type CSVExporter struct {
	comma rune
}

// NewCSVExporter builds a comma separated exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{comma: ','}
}

// WithComma returns a copy that separates fields with r, e.g. ';' for
// spreadsheets configured with a Spanish locale.
func (e *CSVExporter) WithComma(r rune) *CSVExporter {
	cp := *e
	cp.comma = r
	return &cp
}

// ContentType implements Renderer.
func (e *CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

// Render implements Renderer.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	buf.Write(utf8BOM)
	writer := csv.NewWriter(buf)
	writer.Comma = e.comma
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i := range data.Rows {
		row := data.row(i)
		for j := range row {
			row[j] = neutralizeFormula(row[j])
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// neutralizeFormula keeps negative numbers intact.
func neutralizeFormula(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '@', '\t', '\r':
		return "'" + v
	case '-':
		if len(v) > 1 && unicode.IsDigit(rune(v[1])) {
			return v
		}
		return "'" + v
	}
	return v
}

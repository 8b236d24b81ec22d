package table

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetParser turns raw spreadsheet bytes into a table. The first worksheet
// is used, with the first row as the header.
type SheetParser interface {
	Parse(data []byte) (*Table, error)
}

// XLSXParser reads xlsx workbooks via excelize.
type XLSXParser struct{}

func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

func (p *XLSXParser) Parse(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rawRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rawRows) == 0 {
		return &Table{}, nil
	}

	columns := make([]string, 0, len(rawRows[0]))
	for i, h := range rawRows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		columns = append(columns, h)
	}

	rows := make([][]any, 0, len(rawRows)-1)
	for _, raw := range rawRows[1:] {
		row := make([]any, len(columns))
		for i := range columns {
			if i < len(raw) {
				row[i] = inferCell(raw[i])
			}
		}
		rows = append(rows, row)
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// inferCell converts numeric-looking cell text to float64 so downstream SQL
// aggregation sees numbers, mirroring how the sheet's source types them.
func inferCell(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}
	return s
}

// Package table holds the in-memory tabular representation shared by the
// analysis pipeline and the follow-up engine, plus its storage codec and the
// spreadsheet parsing contract.
package table

import (
	"fmt"
	"sort"
	"strconv"
)

// Table is an ordered set of rows under named columns. Cells are nil, string,
// float64 or bool; anything else is rendered through fmt when displayed.
type Table struct {
	Columns []string
	Rows    [][]any
}

// FromRecords builds a table from uniform map records. Column order is the
// sorted union of keys so repeated loads of the same payload produce the same
// table. Missing keys become nil cells.
func FromRecords(records []map[string]any) *Table {
	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = rec[col]
		}
		rows = append(rows, row)
	}
	return &Table{Columns: columns, Rows: rows}
}

func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) ColumnCount() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// IsEmpty reports whether the table has no rows or no columns.
func (t *Table) IsEmpty() bool {
	return t.RowCount() == 0 || t.ColumnCount() == 0
}

// RowMaps converts the rows back to map records keyed by column name.
func (t *Table) RowMaps() []map[string]any {
	if t == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// CellString renders a cell for prompt output. Nil renders as the empty
// string; floats drop a trailing ".0" so integer counts read naturally.
func CellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		if c == float64(int64(c)) {
			return strconv.FormatInt(int64(c), 10)
		}
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprintf("%v", c)
	}
}

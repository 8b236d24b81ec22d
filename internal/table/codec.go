package table

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const codecVersion = 1

// envelope is the serialized column-major form of a table. Storing values per
// column keeps repeated cell types adjacent, which msgpack packs compactly.
type envelope struct {
	Version int      `msgpack:"version"`
	Columns []string `msgpack:"columns"`
	Values  [][]any  `msgpack:"values"`
}

// Encode serializes the table into its columnar binary form.
func Encode(t *Table) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot encode nil table")
	}
	env := envelope{
		Version: codecVersion,
		Columns: t.Columns,
		Values:  make([][]any, len(t.Columns)),
	}
	for i := range t.Columns {
		col := make([]any, len(t.Rows))
		for j, row := range t.Rows {
			if i < len(row) {
				col[j] = row[i]
			}
		}
		env.Values[i] = col
	}
	return msgpack.Marshal(env)
}

// Decode restores a table from its columnar binary form. Column names, row
// count and cell values round-trip unchanged.
func Decode(data []byte) (*Table, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode table blob: %w", err)
	}
	if env.Version != codecVersion {
		return nil, fmt.Errorf("unsupported table blob version %d", env.Version)
	}
	if len(env.Values) != len(env.Columns) {
		return nil, fmt.Errorf("table blob has %d columns but %d value series", len(env.Columns), len(env.Values))
	}

	rowCount := 0
	if len(env.Values) > 0 {
		rowCount = len(env.Values[0])
	}
	rows := make([][]any, rowCount)
	for j := 0; j < rowCount; j++ {
		row := make([]any, len(env.Columns))
		for i := range env.Columns {
			if j < len(env.Values[i]) {
				row[i] = normalizeCell(env.Values[i][j])
			}
		}
		rows[j] = row
	}
	return &Table{Columns: env.Columns, Rows: rows}, nil
}

// normalizeCell maps msgpack's integer decodings back onto the float64 cell
// type used everywhere else.
func normalizeCell(v any) any {
	switch c := v.(type) {
	case int8:
		return float64(c)
	case int16:
		return float64(c)
	case int32:
		return float64(c)
	case int64:
		return float64(c)
	case int:
		return float64(c)
	case uint8:
		return float64(c)
	case uint16:
		return float64(c)
	case uint32:
		return float64(c)
	case uint64:
		return float64(c)
	case uint:
		return float64(c)
	case float32:
		return float64(c)
	default:
		return v
	}
}

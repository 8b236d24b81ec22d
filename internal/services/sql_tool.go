package services

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/insightlab/backend/internal/table"
	_ "modernc.org/sqlite"
)

const (
	// sqlTableName is the single table exposed to the reasoning loop.
	sqlTableName = "data"

	// sqlResultRowCap bounds how many result rows are rendered back into an
	// observation.
	sqlResultRowCap = 100
)

// openTableDB loads the session's table into an in-memory SQLite database.
// Column types follow the cell values: columns whose non-nil cells are all
// numeric get REAL affinity, everything else TEXT.
func openTableDB(t *table.Table) (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	columnDefs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		columnDefs[i] = fmt.Sprintf("%s %s", quoteIdent(col), columnAffinity(t, i))
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", sqlTableName, strings.Join(columnDefs, ", "))
	if _, err := db.Exec(createStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	insertStmt := fmt.Sprintf("INSERT INTO %s VALUES (%s)", sqlTableName, placeholders)
	stmt, err := db.Prepare(insertStmt)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		args := make([]any, len(t.Columns))
		for i := range t.Columns {
			if i < len(row) {
				args[i] = row[i]
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to insert row: %w", err)
		}
	}
	return db, nil
}

func columnAffinity(t *table.Table, col int) string {
	numeric := false
	for _, row := range t.Rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		if _, ok := row[col].(float64); !ok {
			return "TEXT"
		}
		numeric = true
	}
	if numeric {
		return "REAL"
	}
	return "TEXT"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// tableSchemaLine describes the data table for the system prompt.
func tableSchemaLine(t *table.Table) string {
	return fmt.Sprintf("%s(%s) with %d rows", sqlTableName, strings.Join(t.Columns, ", "), t.RowCount())
}

// executeTableSQL runs one read-only query and renders the result compactly
// for the observation. Query errors come back as errors so the loop can feed
// them to the model instead of aborting.
func executeTableSQL(db *sql.DB, query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", fmt.Errorf("only SELECT queries are allowed")
	}

	rows, err := db.Query(trimmed)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var lines []string
	lines = append(lines, strings.Join(columns, " | "))

	count := 0
	truncated := false
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return "", err
		}
		if count >= sqlResultRowCap {
			truncated = true
			break
		}
		fields := make([]string, len(columns))
		for i, v := range values {
			fields[i] = renderSQLValue(v)
		}
		lines = append(lines, strings.Join(fields, " | "))
		count++
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	if count == 0 {
		return "(no rows)", nil
	}
	if truncated {
		lines = append(lines, fmt.Sprintf("... result truncated at %d rows", sqlResultRowCap))
	}
	return strings.Join(lines, "\n"), nil
}

func renderSQLValue(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(c)
	default:
		return table.CellString(c)
	}
}

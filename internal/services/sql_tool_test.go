package services

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/insightlab/backend/internal/table"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	tbl := &table.Table{
		Columns: []string{"region", "revenue", "note"},
		Rows: [][]any{
			{"west", 100.0, "steady"},
			{"east", 250.0, nil},
			{"north", 50.0, "new market"},
		},
	}
	db, err := openTableDB(tbl)
	if err != nil {
		t.Fatalf("openTableDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExecuteTableSQLSelect(t *testing.T) {
	db := openTestDB(t)

	result, err := executeTableSQL(db, "SELECT region, revenue FROM data ORDER BY revenue DESC")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	lines := strings.Split(result, "\n")
	if lines[0] != "region | revenue" {
		t.Errorf("Unexpected header: %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "east") {
		t.Errorf("Expected east first by revenue, got %q", lines[1])
	}
}

func TestExecuteTableSQLAggregate(t *testing.T) {
	db := openTestDB(t)

	result, err := executeTableSQL(db, "SELECT SUM(revenue) AS total FROM data")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !strings.Contains(result, "400") {
		t.Errorf("Expected summed revenue 400 in result, got %q", result)
	}
}

func TestExecuteTableSQLNoRows(t *testing.T) {
	db := openTestDB(t)

	result, err := executeTableSQL(db, "SELECT * FROM data WHERE revenue > 1000")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result != "(no rows)" {
		t.Errorf("Expected no-rows marker, got %q", result)
	}
}

func TestExecuteTableSQLRejectsWrites(t *testing.T) {
	db := openTestDB(t)

	writes := []string{
		"DELETE FROM data",
		"DROP TABLE data",
		"UPDATE data SET revenue = 0",
		"INSERT INTO data VALUES ('x', 1, 'y')",
	}
	for _, query := range writes {
		if _, err := executeTableSQL(db, query); err == nil {
			t.Errorf("Expected rejection for %q", query)
		}
	}
}

func TestExecuteTableSQLWithCTE(t *testing.T) {
	db := openTestDB(t)

	result, err := executeTableSQL(db, "WITH big AS (SELECT * FROM data WHERE revenue >= 100) SELECT COUNT(*) FROM big")
	if err != nil {
		t.Fatalf("CTE query failed: %v", err)
	}
	if !strings.Contains(result, "2") {
		t.Errorf("Expected count 2, got %q", result)
	}
}

func TestExecuteTableSQLBadQueryReturnsError(t *testing.T) {
	db := openTestDB(t)

	if _, err := executeTableSQL(db, "SELECT nope FROM data"); err == nil {
		t.Error("Expected error for unknown column")
	}
}

func TestColumnAffinity(t *testing.T) {
	tbl := &table.Table{
		Columns: []string{"num", "mixed", "text", "sparse"},
		Rows: [][]any{
			{1.0, 2.0, "a", nil},
			{2.5, "x", "b", nil},
		},
	}

	tests := []struct {
		col      int
		expected string
	}{
		{0, "REAL"},
		{1, "TEXT"},
		{2, "TEXT"},
		{3, "TEXT"},
	}
	for _, tt := range tests {
		if got := columnAffinity(tbl, tt.col); got != tt.expected {
			t.Errorf("Column %d: expected %s, got %s", tt.col, tt.expected, got)
		}
	}
}

func TestTableSchemaLine(t *testing.T) {
	tbl := &table.Table{Columns: []string{"a", "b"}, Rows: [][]any{{1.0, 2.0}}}
	expected := "data(a, b) with 1 rows"
	if got := tableSchemaLine(tbl); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent(`weird "name"`); got != `"weird ""name"""` {
		t.Errorf("Unexpected quoting: %s", got)
	}
}

package testutil

import (
	"database/sql"
	"testing"

	"github.com/coral-mesh/coral-asprof/internal/duckdb"
)

// NewTestDB opens an in-memory DuckDB database closed when the test ends.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := duckdb.OpenDB("")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return db
}

package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	duckdbDriver "github.com/marcboeker/go-duckdb"
)

// bootQueries run on every pooled connection. Failures are ignored so an
// older engine without a setting still opens.
var bootQueries = []string{
	"SET TimeZone = 'UTC'",
}

// InMemory reports whether path selects an in-memory database.
func InMemory(path string) bool {
	return path == "" || path == ":memory:"
}

// OpenDB opens the DuckDB database at path, creating its parent directory
// when needed. An empty path or ":memory:" opens an in-memory database.
func OpenDB(path string) (*sql.DB, error) {
	if !InMemory(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	connector, err := duckdbDriver.NewConnector(path, func(execer driver.ExecerContext) error {
		ctx := context.Background()
		for _, query := range bootQueries {
			if _, err := execer.ExecContext(ctx, query, nil); err != nil {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb %q: %w", path, err)
	}

	return sql.OpenDB(connector), nil
}

package duckdb

import (
	"fmt"
	"strings"
	"time"
)

// Builder constructs SELECT queries with a fluent API.
type Builder struct {
	table   string
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   int
}

type whereClause struct {
	expr string
	args []interface{}
}

type orderClause struct {
	column string
	desc   bool
}

// NewQueryBuilder creates a new query builder for the specified table.
func NewQueryBuilder(table string) *Builder {
	return &Builder{table: table}
}

// Select specifies the columns to retrieve.
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns, columns...)
	return b
}

// Where adds a custom WHERE clause. Multiple calls are combined with AND.
func (b *Builder) Where(expr string, args ...interface{}) *Builder {
	b.where = append(b.where, whereClause{expr: expr, args: args})
	return b
}

// Eq adds an equality filter. An empty string value is skipped so callers
// can pass optional filters through unchanged.
func (b *Builder) Eq(column string, value interface{}) *Builder {
	if str, ok := value.(string); ok && str == "" {
		return b
	}
	return b.Where(fmt.Sprintf("%s = ?", column), value)
}

// Overlapping keeps rows whose [startColumn, endColumn] interval intersects
// [start, end]. A zero start or end leaves that side open.
func (b *Builder) Overlapping(startColumn, endColumn string, start, end time.Time) *Builder {
	if !start.IsZero() {
		b.Where(fmt.Sprintf("%s >= ?", endColumn), start)
	}
	if !end.IsZero() {
		b.Where(fmt.Sprintf("%s <= ?", startColumn), end)
	}
	return b
}

// Lt adds a < comparison.
func (b *Builder) Lt(column string, value interface{}) *Builder {
	return b.Where(fmt.Sprintf("%s < ?", column), value)
}

// OrderBy adds ORDER BY clauses. A "-" prefix sorts descending.
//
//	OrderBy("window_start")          // ASC
//	OrderBy("-window_start")         // DESC
//	OrderBy("event", "-window_end")  // event ASC, window_end DESC
func (b *Builder) OrderBy(columns ...string) *Builder {
	for _, col := range columns {
		desc := strings.HasPrefix(col, "-")
		b.orderBy = append(b.orderBy, orderClause{
			column: strings.TrimPrefix(col, "-"),
			desc:   desc,
		})
	}
	return b
}

// Limit sets the maximum number of rows to return.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Build constructs the SQL query and returns it with its arguments.
func (b *Builder) Build() (string, []interface{}, error) {
	if b.table == "" {
		return "", nil, fmt.Errorf("table name is required")
	}

	var (
		query strings.Builder
		args  []interface{}
	)

	query.WriteString("SELECT ")
	if len(b.columns) == 0 {
		query.WriteString("*")
	} else {
		query.WriteString(strings.Join(b.columns, ", "))
	}

	query.WriteString(" FROM ")
	query.WriteString(b.table)

	if len(b.where) > 0 {
		exprs := make([]string, len(b.where))
		for i, w := range b.where {
			exprs[i] = w.expr
			args = append(args, w.args...)
		}
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(exprs, " AND "))
	}

	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			parts[i] = o.column
			if o.desc {
				parts[i] += " DESC"
			}
		}
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(parts, ", "))
	}

	if b.limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}

	return query.String(), args, nil
}

// Package duckdb opens the local snapshot database and builds the SELECT
// statements used to read it back.
//
//	db, err := duckdb.OpenDB(path)
//
//	query, args, err := duckdb.NewQueryBuilder("asprof_snapshots_local").
//	    Select("session_id", "window_start", "window_end").
//	    Overlapping("window_start", "window_end", start, end).
//	    OrderBy("window_start").
//	    Build()
//
// The builder only generates SQL; callers execute it.
package duckdb

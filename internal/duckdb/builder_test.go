package duckdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleSelect(t *testing.T) {
	q, args, err := NewQueryBuilder("asprof_snapshots_local").Build()

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM asprof_snapshots_local", q)
	assert.Empty(t, args)
}

func TestBuilder_Overlapping(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		wantQuery string
		wantArgs  []interface{}
	}{
		{
			name:      "closed",
			start:     start,
			end:       end,
			wantQuery: "SELECT session_id FROM snaps WHERE window_end >= ? AND window_start <= ?",
			wantArgs:  []interface{}{start, end},
		},
		{
			name:      "open end",
			start:     start,
			wantQuery: "SELECT session_id FROM snaps WHERE window_end >= ?",
			wantArgs:  []interface{}{start},
		},
		{
			name:      "open start",
			end:       end,
			wantQuery: "SELECT session_id FROM snaps WHERE window_start <= ?",
			wantArgs:  []interface{}{end},
		},
		{
			name:      "unbounded",
			wantQuery: "SELECT session_id FROM snaps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args, err := NewQueryBuilder("snaps").
				Select("session_id").
				Overlapping("window_start", "window_end", tt.start, tt.end).
				Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, q)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuilder_EqSkipsEmptyString(t *testing.T) {
	q, args, err := NewQueryBuilder("snaps").
		Eq("session_id", "").
		Eq("event", "itimer").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM snaps WHERE event = ?", q)
	assert.Equal(t, []interface{}{"itimer"}, args)
}

func TestBuilder_OrderAndLimit(t *testing.T) {
	q, args, err := NewQueryBuilder("snaps").
		Select("session_id", "window_start").
		OrderBy("event", "-window_start").
		Limit(10).
		Build()

	require.NoError(t, err)
	assert.Equal(t, "SELECT session_id, window_start FROM snaps ORDER BY event, window_start DESC LIMIT ?", q)
	assert.Equal(t, []interface{}{10}, args)
}

func TestBuilder_BuildIsRepeatable(t *testing.T) {
	b := NewQueryBuilder("snaps").Lt("window_end", 5)

	q1, args1, err := b.Build()
	require.NoError(t, err)
	q2, args2, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
	assert.Equal(t, args1, args2)
	assert.Len(t, args2, 1)
}

func TestBuilder_ErrorNoTable(t *testing.T) {
	_, _, err := NewQueryBuilder("").Build()
	assert.Error(t, err)
}

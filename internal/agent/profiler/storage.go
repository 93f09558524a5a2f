package profiler

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/coral-mesh/coral-asprof/internal/asprof"
	"github.com/coral-mesh/coral-asprof/internal/constants"
	"github.com/coral-mesh/coral-asprof/internal/duckdb"
	"github.com/coral-mesh/coral-asprof/internal/errors"
)

const snapshotsTable = "asprof_snapshots_local"

// SnapshotSink receives snapshots from a ContinuousProfiler.
type SnapshotSink interface {
	Store(ctx context.Context, snapshot *Snapshot) error
}

// StoredSnapshot is a snapshot row read back from storage.
type StoredSnapshot struct {
	Snapshot
	Digest string // xxh3 of RawSamples, hex
}

// Storage keeps snapshots in a local DuckDB table.
type Storage struct {
	db     *sql.DB
	logger zerolog.Logger
	mu     sync.RWMutex
}

var _ SnapshotSink = (*Storage)(nil)

// NewStorage creates the snapshot table if needed.
func NewStorage(db *sql.DB, logger zerolog.Logger) (*Storage, error) {
	s := &Storage{
		db:     db,
		logger: logger.With().Str("component", "snapshot_storage").Logger(),
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Storage) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS ` + snapshotsTable + ` (
			session_id     TEXT      NOT NULL,
			event          TEXT      NOT NULL,
			window_start   TIMESTAMP NOT NULL,
			window_end     TIMESTAMP NOT NULL,
			samples_digest TEXT      NOT NULL,
			raw_samples    TEXT      NOT NULL,
			PRIMARY KEY (session_id, window_start)
		);
		CREATE INDEX IF NOT EXISTS idx_asprof_snapshots_window_end
			ON ` + snapshotsTable + ` (window_end);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Debug().Msg("Snapshot storage schema initialized")

	return nil
}

// Digest returns the hex xxh3 hash of collapsed stack text.
func Digest(raw string) string {
	return strconv.FormatUint(xxh3.HashString(raw), 16)
}

// Store writes one snapshot. A window whose session and start are already
// stored is skipped and logged.
func (s *Storage) Store(ctx context.Context, snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ` + snapshotsTable + ` (
			session_id, event, window_start, window_end, samples_digest, raw_samples
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, window_start) DO NOTHING
	`

	digest := Digest(snapshot.RawSamples)
	result, err := s.db.ExecContext(ctx, query,
		snapshot.SessionID,
		snapshot.EventType.Name,
		snapshot.WindowStart.UTC(),
		snapshot.WindowEnd.UTC(),
		digest,
		snapshot.RawSamples,
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	// Window starts are kept at microsecond precision; a second window that
	// rounds to the same start is dropped by the conflict clause.
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		s.logger.Warn().
			Str("session_id", snapshot.SessionID).
			Time("window_start", snapshot.WindowStart).
			Time("window_end", snapshot.WindowEnd).
			Str("digest", digest).
			Msg("Snapshot window already stored, dropping duplicate")
	}

	return nil
}

// QueryOptions filters snapshot reads. Zero values are unbounded.
type QueryOptions struct {
	SessionID string
	Limit     int
}

// Query returns snapshots whose window overlaps [start, end], oldest first.
// A zero start or end leaves that side open.
func (s *Storage) Query(ctx context.Context, start, end time.Time, opts QueryOptions) ([]StoredSnapshot, error) {
	query, args, err := duckdb.NewQueryBuilder(snapshotsTable).
		Select("session_id", "event", "window_start", "window_end", "samples_digest", "raw_samples").
		Overlapping("window_start", "window_end", start, end).
		Eq("session_id", opts.SessionID).
		OrderBy("window_start", "session_id").
		Limit(opts.Limit).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer errors.DeferClose(s.logger, rows, "failed to close snapshot rows")

	var snapshots []StoredSnapshot
	for rows.Next() {
		var (
			row   StoredSnapshot
			event string
		)
		if err := rows.Scan(
			&row.SessionID,
			&event,
			&row.WindowStart,
			&row.WindowEnd,
			&row.Digest,
			&row.RawSamples,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row.EventType, err = asprof.ParseEventType(event)
		if err != nil {
			s.logger.Warn().Err(err).Str("event", event).Msg("Unknown event in stored snapshot")
			row.EventType = asprof.EventType{ID: -1, Name: event}
		}

		snapshots = append(snapshots, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return snapshots, nil
}

// CleanupOld removes snapshots whose window ended before now minus retention.
func (s *Storage) CleanupOld(ctx context.Context, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).UTC()

	result, err := s.db.ExecContext(ctx, `DELETE FROM `+snapshotsTable+` WHERE window_end < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old snapshots: %w", err)
	}

	rowsDeleted, _ := result.RowsAffected()
	if rowsDeleted > 0 {
		s.logger.Debug().
			Int64("rows_deleted", rowsDeleted).
			Time("cutoff", cutoff).
			Msg("Cleaned up old snapshots")
	}

	return rowsDeleted, nil
}

// RunCleanupLoop deletes expired snapshots every interval until ctx is done.
func (s *Storage) RunCleanupLoop(ctx context.Context, retention, interval time.Duration) {
	if interval <= 0 {
		interval = constants.DefaultCleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("retention", retention).
		Dur("interval", interval).
		Msg("Starting snapshot cleanup loop")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Stopping snapshot cleanup loop")
			return
		case <-ticker.C:
			if _, err := s.CleanupOld(ctx, retention); err != nil {
				s.logger.Error().Err(err).Msg("Failed to cleanup old snapshots")
			}
		}
	}
}

// Package snapshots implements the snapshots command, which lists windows
// stored by record.
package snapshots

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/coral-asprof/internal/agent/profiler"
	"github.com/coral-mesh/coral-asprof/internal/cli/helpers"
	"github.com/coral-mesh/coral-asprof/internal/duckdb"
	"github.com/coral-mesh/coral-asprof/internal/errors"
)

var supportedFormats = []helpers.OutputFormat{helpers.FormatTable, helpers.FormatJSON, helpers.FormatCSV}

// Row is one listed snapshot.
type Row struct {
	SessionID   string        `json:"session_id" header:"SESSION"`
	Event       string        `json:"event" header:"EVENT"`
	WindowStart time.Time     `json:"window_start" header:"START"`
	WindowEnd   time.Time     `json:"window_end"`
	Duration    time.Duration `json:"duration_ns" header:"DURATION"`
	Bytes       int           `json:"bytes" header:"BYTES"`
	Digest      string        `json:"digest" header:"DIGEST"`
	// Repeat is set when the previous window of the same session had
	// identical samples.
	Repeat bool `json:"repeat" header:"REPEAT"`
}

// NewSnapshotsCmd creates the snapshots command.
func NewSnapshotsCmd(opts *helpers.GlobalOptions) *cobra.Command {
	var (
		timeFlags helpers.TimeFlags
		sessionID string
		limit     int
		dbPath    string
		raw       bool
		format    string
	)

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List stored profiling snapshots",
		Long: `Lists snapshots recorded into the local database, oldest first.
With --raw, prints the collapsed stacks of every matching window instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.Storage.Path = dbPath
			}
			if !raw {
				if err := helpers.ValidateFormat(format, supportedFormats); err != nil {
					return err
				}
			}

			window, err := timeFlags.Parse(time.Now())
			if err != nil {
				return err
			}

			logger := helpers.Logger(cfg)

			db, err := duckdb.OpenDB(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer errors.DeferClose(logger, db, "Failed to close snapshot database")

			storage, err := profiler.NewStorage(db, logger)
			if err != nil {
				return fmt.Errorf("failed to open snapshot storage: %w", err)
			}

			stored, err := storage.Query(cmd.Context(), window.Start, window.End, profiler.QueryOptions{
				SessionID: sessionID,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			if raw {
				return writeRaw(cmd.OutOrStdout(), stored)
			}
			return helpers.WriteResult(cmd, format, supportedFormats, toRows(stored))
		},
	}

	timeFlags.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&sessionID, "session", "", "Only show this session")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of snapshots (0 for no limit)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Snapshot database path")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print collapsed stacks instead of a listing")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, supportedFormats)

	return cmd
}

func toRows(stored []profiler.StoredSnapshot) []Row {
	rows := make([]Row, len(stored))
	lastDigest := make(map[string]string)
	for i, s := range stored {
		prev, seen := lastDigest[s.SessionID]
		rows[i] = Row{
			SessionID:   s.SessionID,
			Event:       s.EventType.Name,
			WindowStart: s.WindowStart,
			WindowEnd:   s.WindowEnd,
			Duration:    s.Duration(),
			Bytes:       len(s.RawSamples),
			Digest:      s.Digest,
			Repeat:      seen && prev == s.Digest,
		}
		lastDigest[s.SessionID] = s.Digest
	}
	return rows
}

// writeRaw prints each window's collapsed stacks under a comment header.
func writeRaw(w io.Writer, stored []profiler.StoredSnapshot) error {
	for _, s := range stored {
		if _, err := fmt.Fprintf(w, "# session=%s event=%s start=%s end=%s\n",
			s.SessionID, s.EventType.Name,
			s.WindowStart.Format(time.RFC3339Nano), s.WindowEnd.Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
		if _, err := io.WriteString(w, s.RawSamples); err != nil {
			return err
		}
	}
	return nil
}

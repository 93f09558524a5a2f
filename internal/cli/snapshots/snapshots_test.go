package snapshots

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/coral-asprof/internal/agent/profiler"
	"github.com/coral-mesh/coral-asprof/internal/asprof"
	"github.com/coral-mesh/coral-asprof/internal/cli/helpers"
	"github.com/coral-mesh/coral-asprof/internal/duckdb"
)

func seedDatabase(t *testing.T) (string, time.Time) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "snapshots.duckdb")
	db, err := duckdb.OpenDB(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	storage, err := profiler.NewStorage(db, zerolog.Nop())
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Second).Add(-10 * time.Minute)
	raws := []string{"main;a 1\n", "main;a 1\n", "main;b 3\n"}
	for i, raw := range raws {
		start := base.Add(time.Duration(i) * 10 * time.Second)
		require.NoError(t, storage.Store(context.Background(), &profiler.Snapshot{
			SessionID:   "s1",
			EventType:   asprof.EventCPU,
			WindowStart: start,
			WindowEnd:   start.Add(10 * time.Second),
			RawSamples:  raw,
		}))
	}

	return path, base
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv(helpers.ConfigEnvVar, "")

	cmd := NewSnapshotsCmd(&helpers.GlobalOptions{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestSnapshotsCmd_JSON(t *testing.T) {
	path, _ := seedDatabase(t)

	out := runCmd(t, "--db", path, "-o", "json")

	var rows []Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)

	assert.Equal(t, "cpu", rows[0].Event)
	assert.Equal(t, 10*time.Second, rows[0].Duration)
	assert.False(t, rows[0].Repeat)
	assert.True(t, rows[1].Repeat, "identical samples are flagged")
	assert.False(t, rows[2].Repeat)
	assert.True(t, rows[0].WindowEnd.Equal(rows[1].WindowStart))
}

func TestSnapshotsCmd_Table(t *testing.T) {
	path, _ := seedDatabase(t)

	out := runCmd(t, "--db", path, "--limit", "2")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "SESSION")
	assert.Contains(t, lines[0], "DIGEST")
}

func TestSnapshotsCmd_Raw(t *testing.T) {
	path, base := seedDatabase(t)

	from := base.Add(15 * time.Second).Format(time.RFC3339)
	out := runCmd(t, "--db", path, "--raw", "--from", from)

	assert.Contains(t, out, "# session=s1 event=cpu")
	assert.Contains(t, out, "main;b 3\n")
	assert.Equal(t, 2, strings.Count(out, "# session="))
}

func TestSnapshotsCmd_EmptyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.duckdb")
	out := runCmd(t, "--db", path, "--since", "0")
	assert.Empty(t, out)
}

func TestToRows_RepeatIsPerSession(t *testing.T) {
	stored := []profiler.StoredSnapshot{
		{Snapshot: profiler.Snapshot{SessionID: "a"}, Digest: "d1"},
		{Snapshot: profiler.Snapshot{SessionID: "b"}, Digest: "d1"},
		{Snapshot: profiler.Snapshot{SessionID: "a"}, Digest: "d1"},
	}

	rows := toRows(stored)
	assert.False(t, rows[0].Repeat)
	assert.False(t, rows[1].Repeat)
	assert.True(t, rows[2].Repeat)
}

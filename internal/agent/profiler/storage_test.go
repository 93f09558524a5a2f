package profiler

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/coral-asprof/internal/asprof"
	"github.com/coral-mesh/coral-asprof/internal/testutil"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	storage, err := NewStorage(testutil.NewTestDB(t), testutil.NewTestLogger(t))
	require.NoError(t, err)

	return storage
}

func testSnapshot(sessionID string, start time.Time, d time.Duration, raw string) *Snapshot {
	return &Snapshot{
		SessionID:   sessionID,
		EventType:   asprof.EventITimer,
		WindowStart: start,
		WindowEnd:   start.Add(d),
		RawSamples:  raw,
	}
}

func TestStorage_StoreAndQuery(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := testutil.NewTestContext(t)
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	want := []*Snapshot{
		testSnapshot("s1", base, 10*time.Second, "main;a 1\n"),
		testSnapshot("s1", base.Add(10*time.Second), 10*time.Second, "main;b 2\n"),
		testSnapshot("s1", base.Add(20*time.Second), 10*time.Second, ""),
	}
	for _, snapshot := range want {
		require.NoError(t, storage.Store(ctx, snapshot))
	}

	got, err := storage.Query(ctx, time.Time{}, time.Time{}, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		assert.Equal(t, want[i].SessionID, got[i].SessionID)
		assert.Equal(t, asprof.EventITimer, got[i].EventType)
		assert.True(t, want[i].WindowStart.Equal(got[i].WindowStart), "window start %d", i)
		assert.True(t, want[i].WindowEnd.Equal(got[i].WindowEnd), "window end %d", i)
		assert.Equal(t, want[i].RawSamples, got[i].RawSamples)
		assert.Equal(t, Digest(want[i].RawSamples), got[i].Digest)
	}
}

func TestStorage_StoreIsIdempotent(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	snapshot := testSnapshot("s1", time.Now().UTC().Truncate(time.Second), time.Second, "main 1\n")

	require.NoError(t, storage.Store(ctx, snapshot))
	require.NoError(t, storage.Store(ctx, snapshot))

	got, err := storage.Query(ctx, time.Time{}, time.Time{}, QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStorage_LogsDroppedSubMicrosecondWindow(t *testing.T) {
	var logs bytes.Buffer
	storage, err := NewStorage(testutil.NewTestDB(t), zerolog.New(&logs))
	require.NoError(t, err)

	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, storage.Store(ctx, testSnapshot("s1", start, time.Second, "a 1\n")))
	require.NoError(t, storage.Store(ctx, testSnapshot("s1", start.Add(400*time.Nanosecond), time.Second, "b 1\n")))

	got, err := storage.Query(ctx, time.Time{}, time.Time{}, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a 1\n", got[0].RawSamples)

	assert.Contains(t, logs.String(), "Snapshot window already stored")
	assert.Contains(t, logs.String(), `"session_id":"s1"`)
}

func TestStorage_MinimumWindowsStayDistinct(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	frozen := time.Now().UTC().Truncate(time.Second)
	s := newTestSession(t, newFakeEngine(), func() time.Time { return frozen })
	require.NoError(t, s.Start())

	for i := 0; i < 3; i++ {
		snapshot, err := s.Dump()
		require.NoError(t, err)
		require.NoError(t, storage.Store(ctx, snapshot))
	}

	got, err := storage.Query(ctx, time.Time{}, time.Time{}, QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestStorage_QueryFilters(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)

	for i := 0; i < 6; i++ {
		session := "s1"
		if i%2 == 1 {
			session = "s2"
		}
		start := base.Add(time.Duration(i) * 10 * time.Second)
		require.NoError(t, storage.Store(ctx, testSnapshot(session, start, 10*time.Second, "x 1\n")))
	}

	// Windows [20s,30s] and [30s,40s] touch (25s, 32s).
	got, err := storage.Query(ctx, base.Add(25*time.Second), base.Add(32*time.Second), QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, base.Add(20*time.Second).Equal(got[0].WindowStart))
	assert.True(t, base.Add(30*time.Second).Equal(got[1].WindowStart))

	got, err = storage.Query(ctx, time.Time{}, time.Time{}, QueryOptions{SessionID: "s2"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for _, row := range got {
		assert.Equal(t, "s2", row.SessionID)
	}

	got, err = storage.Query(ctx, time.Time{}, time.Time{}, QueryOptions{Limit: 4})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestStorage_CleanupOld(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, storage.Store(ctx, testSnapshot("old", now.Add(-48*time.Hour), time.Minute, "a 1\n")))
	require.NoError(t, storage.Store(ctx, testSnapshot("new", now.Add(-time.Minute), time.Minute, "b 1\n")))

	deleted, err := storage.CleanupOld(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := storage.Query(ctx, time.Time{}, time.Time{}, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].SessionID)
}

func TestStorage_RunCleanupLoop(t *testing.T) {
	storage, err := NewStorage(testutil.NewTestDB(t), testutil.NewTestLoggerWithOutput(t))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, storage.Store(ctx, testSnapshot("old", now.Add(-48*time.Hour), time.Minute, "a 1\n")))

	done := make(chan struct{})
	go func() {
		storage.RunCleanupLoop(ctx, time.Hour, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := storage.Query(context.Background(), time.Time{}, time.Time{}, QueryOptions{})
		return err == nil && len(got) == 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestStorage_AsSink(t *testing.T) {
	storage := setupTestStorage(t)
	s := newTestSession(t, newFakeEngine(), newStepClock(time.Second).Now)

	p, err := NewContinuousProfiler(context.Background(), s, storage, zerolog.Nop(), ContinuousConfig{
		UploadInterval: time.Hour,
		FlushOnStop:    true,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	p.Stop()

	got, err := storage.Query(context.Background(), time.Time{}, time.Time{}, QueryOptions{SessionID: s.ID()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "main;work;samples 1\n", got[0].RawSamples)
}

func TestDigest(t *testing.T) {
	assert.Equal(t, Digest("main;a 1\n"), Digest("main;a 1\n"))
	assert.NotEqual(t, Digest("main;a 1\n"), Digest("main;a 2\n"))
	assert.NotEmpty(t, Digest(""))
}

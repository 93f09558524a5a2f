package record

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/coral-asprof/internal/agent/profiler"
	"github.com/coral-mesh/coral-asprof/internal/cli/helpers"
	"github.com/coral-mesh/coral-asprof/internal/config"
)

func TestRecordFlags_Apply(t *testing.T) {
	cmd := NewRecordCmd(&helpers.GlobalOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--event", "wall", "--upload-interval", "30s", "--db", "/tmp/x.duckdb"}))

	flags := recordFlags{event: "wall", uploadInterval: 30 * time.Second, dbPath: "/tmp/x.duckdb"}
	cfg := config.DefaultConfig()
	interval := cfg.Interval
	flags.apply(cmd, cfg)

	assert.Equal(t, "wall", cfg.Event)
	assert.Equal(t, 30*time.Second, cfg.UploadInterval)
	assert.Equal(t, "/tmp/x.duckdb", cfg.Storage.Path)
	assert.Equal(t, interval, cfg.Interval, "unset flags keep config values")
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestServeMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := profiler.NewMetrics(registry)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveMetrics(ctx, ln, registry, zerolog.Nop())
	}()

	base := "http://" + ln.Addr().String()

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "coral_asprof_session_starts_total")

	resp, err = http.Get(base + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("metrics server did not shut down")
	}
}

func TestRecordCmd_InvalidConfig(t *testing.T) {
	cmd := NewRecordCmd(&helpers.GlobalOptions{})
	cmd.SetArgs([]string{"--event", "cycles"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event")
}

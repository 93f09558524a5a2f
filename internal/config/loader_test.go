package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/coral-asprof/internal/asprof"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("", false)
	require.NoError(t, err)

	assert.Equal(t, "itimer", cfg.Event)
	assert.Equal(t, asprof.EventITimer, cfg.EventType())
	assert.Equal(t, 10*time.Millisecond, cfg.Interval)
	assert.Equal(t, 10*time.Second, cfg.UploadInterval)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "coral-asprof", cfg.Staging.Namespace)
	assert.True(t, cfg.Staging.Verify)
	assert.NotEmpty(t, cfg.Staging.TempDir)
	assert.Equal(t, "snapshots.duckdb", filepath.Base(cfg.Storage.Path))
	assert.Equal(t, 24*time.Hour, cfg.Storage.Retention)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
event: wall
interval: 20ms
upload_interval: 1m
staging:
  temp_dir: /var/tmp
  verify: false
storage:
  path: /data/snapshots.duckdb
  retention: 2h
metrics:
  addr: 127.0.0.1:9464
log:
  level: debug
  format: json
`)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, asprof.EventWall, cfg.EventType())
	assert.Equal(t, 20*time.Millisecond, cfg.Interval)
	assert.Equal(t, time.Minute, cfg.UploadInterval)
	assert.Equal(t, "/var/tmp", cfg.Staging.TempDir)
	assert.False(t, cfg.Staging.Verify)
	assert.Equal(t, "coral-asprof", cfg.Staging.Namespace, "unset keys keep defaults")
	assert.Equal(t, "/data/snapshots.duckdb", cfg.Storage.Path)
	assert.Equal(t, 2*time.Hour, cfg.Storage.Retention)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "event: wall\ninterval: 20ms\n")

	t.Setenv("CORAL_ASPROF_EVENT", "cpu")
	t.Setenv("CORAL_ASPROF_STAGING_VERIFY", "false")
	t.Setenv("CORAL_ASPROF_STORAGE_RETENTION", "90m")

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, asprof.EventCPU, cfg.EventType())
	assert.Equal(t, 20*time.Millisecond, cfg.Interval)
	assert.False(t, cfg.Staging.Verify)
	assert.Equal(t, 90*time.Minute, cfg.Storage.Retention)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Load(missing, false)
	assert.NoError(t, err)

	_, err = Load(missing, true)
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "event: [unterminated\n")

	_, err := Load(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "event: cache-misses\ninterval: -1s\n")

	_, err := Load(path, true)
	require.Error(t, err)

	var multi *MultiValidationError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 2)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("CORAL_ASPROF_UPLOAD_INTERVAL", "soon")

	_, err := Load("", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORAL_ASPROF_UPLOAD_INTERVAL")
}

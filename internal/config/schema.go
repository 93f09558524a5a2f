// Package config loads coral-asprof configuration from defaults, a YAML
// file and CORAL_ASPROF_* environment variables, in that order.
package config

import "time"

// Config is the complete coral-asprof configuration.
type Config struct {
	// Event is the sampling event (cpu, alloc, lock, wall, itimer).
	Event string `yaml:"event" env:"CORAL_ASPROF_EVENT"`
	// Interval is the engine sampling period.
	Interval time.Duration `yaml:"interval" env:"CORAL_ASPROF_INTERVAL"`
	// UploadInterval is the time between snapshot dumps.
	UploadInterval time.Duration `yaml:"upload_interval" env:"CORAL_ASPROF_UPLOAD_INTERVAL"`
	// ProbeTimeout bounds the libc detection subprocess.
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"CORAL_ASPROF_PROBE_TIMEOUT"`

	Staging StagingConfig `yaml:"staging"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// StagingConfig controls where the native library is written.
type StagingConfig struct {
	TempDir   string `yaml:"temp_dir" env:"CORAL_ASPROF_STAGING_TEMP_DIR"`
	Namespace string `yaml:"namespace" env:"CORAL_ASPROF_STAGING_NAMESPACE"`
	Verify    bool   `yaml:"verify" env:"CORAL_ASPROF_STAGING_VERIFY"`
}

// StorageConfig controls the local snapshot database.
type StorageConfig struct {
	Path            string        `yaml:"path" env:"CORAL_ASPROF_STORAGE_PATH"`
	Retention       time.Duration `yaml:"retention" env:"CORAL_ASPROF_STORAGE_RETENTION"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CORAL_ASPROF_STORAGE_CLEANUP_INTERVAL"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"CORAL_ASPROF_METRICS_ADDR"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level" env:"CORAL_ASPROF_LOG_LEVEL"`
	Format string `yaml:"format" env:"CORAL_ASPROF_LOG_FORMAT"`
}

package config

import (
	"os"
	"path/filepath"

	"github.com/coral-mesh/coral-asprof/internal/constants"
	"github.com/coral-mesh/coral-asprof/internal/logging"
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Event:          constants.DefaultEvent,
		Interval:       constants.DefaultSamplingInterval,
		UploadInterval: constants.DefaultUploadInterval,
		ProbeTimeout:   constants.DefaultProbeTimeout,
		Staging: StagingConfig{
			TempDir:   os.TempDir(),
			Namespace: constants.DefaultStagingNamespace,
			Verify:    true,
		},
		Storage: StorageConfig{
			Path:            defaultDatabasePath(),
			Retention:       constants.DefaultSnapshotRetention,
			CleanupInterval: constants.DefaultCleanupInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
	}
}

// DefaultConfigPath returns ~/.coral-asprof/config.yaml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, constants.DefaultDir, constants.ConfigFile)
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), constants.DefaultSnapshotDatabasePath)
	}
	return filepath.Join(home, constants.DefaultSnapshotDatabasePath)
}

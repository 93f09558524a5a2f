package constants

import "time"

// Sampling defaults.
const (
	// DefaultEvent is the sampling event used when none is configured.
	DefaultEvent = "itimer"

	// DefaultSamplingInterval is the engine sampling period (100Hz).
	DefaultSamplingInterval = 10 * time.Millisecond

	// DefaultUploadInterval is how often the continuous profiler dumps a snapshot.
	DefaultUploadInterval = 10 * time.Second
)

// Timeouts - Default timeout values.
const (
	// DefaultProbeTimeout bounds the libc detection subprocess.
	DefaultProbeTimeout = 2 * time.Second

	// DefaultShutdownTimeout bounds the metrics server shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// Retention defaults.
const (
	// DefaultSnapshotRetention is how long stored snapshots are kept.
	DefaultSnapshotRetention = 24 * time.Hour

	// DefaultCleanupInterval is how often expired snapshots are removed.
	DefaultCleanupInterval = 10 * time.Minute
)

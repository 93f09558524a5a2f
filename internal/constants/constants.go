// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".coral-asprof"

	// DefaultStagingNamespace is appended to the user name to form the
	// per-user staging directory under the system temp root.
	DefaultStagingNamespace = "coral-asprof"

	DefaultSnapshotDatabasePath = DefaultDir + "/" + "snapshots.duckdb"

	// MetricsNamespace prefixes every exported Prometheus metric.
	MetricsNamespace = "coral_asprof"
)

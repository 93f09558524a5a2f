package helpers

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/coral-mesh/coral-asprof/internal/asprof"
	"github.com/coral-mesh/coral-asprof/internal/config"
	"github.com/coral-mesh/coral-asprof/internal/logging"
	"github.com/coral-mesh/coral-asprof/internal/platform"
)

// ConfigEnvVar names an alternative config file location.
const ConfigEnvVar = "CORAL_ASPROF_CONFIG"

// GlobalOptions holds the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// AddFlags registers the persistent flags.
func (o *GlobalOptions) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.ConfigPath, "config", "", "Config file (default $"+ConfigEnvVar+" or ~/.coral-asprof/config.yaml)")
	flags.StringVar(&o.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&o.LogFormat, "log-format", "", "Log format (auto, json, pretty)")
}

// LoadConfig loads configuration. A path given by flag or environment must
// exist; the default path is optional. Log flags override the file.
func (o *GlobalOptions) LoadConfig() (*config.Config, error) {
	path, required := o.ConfigPath, true
	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	if path == "" {
		path, required = config.DefaultConfigPath(), false
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}

	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}

	return cfg, cfg.Validate()
}

// Logger builds the process logger for cfg, writing to stderr.
func Logger(cfg *config.Config) zerolog.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// DeployOptions maps configuration onto library deployment options.
func DeployOptions(cfg *config.Config) asprof.Options {
	return asprof.Options{
		Resolver: platform.ResolverConfig{
			ProbeTimeout: cfg.ProbeTimeout,
		},
		Stager: asprof.StagerConfig{
			TempDir:   cfg.Staging.TempDir,
			Namespace: cfg.Staging.Namespace,
			Verify:    cfg.Staging.Verify,
		},
	}
}

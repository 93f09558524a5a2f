package config

import (
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/coral-asprof/internal/safe"
)

// maxConfigSize caps the config file read.
const maxConfigSize = 1 << 20

// Load builds the configuration from defaults, the YAML file at path and
// the environment, then validates it. A missing file is skipped only when
// required is false.
func Load(path string, required bool) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := mergeFromFile(cfg, path); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func mergeFromFile(cfg *Config, path string) error {
	data, err := safe.ReadFile(path, &safe.ReadFileOptions{MaxSize: maxConfigSize, AllowSymlinks: true})
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}

	return nil
}

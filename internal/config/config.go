package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/vire-ledger/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Storage StorageConfig        `toml:"storage"`
	Report  ReportConfig         `toml:"report"`
	Logging common.LoggingConfig `toml:"logging"`
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Backend string       `toml:"backend"` // "badger" (default) or "memory"
	Badger  BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// ReportConfig contains aggregation policy settings.
type ReportConfig struct {
	DefaultLens string `toml:"default_lens"`
	// IncomeAsExternalFlow controls whether dividend/interest income counts
	// as external capital in the portfolio-total money-weighted return.
	IncomeAsExternalFlow bool `toml:"income_as_external_flow"`
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies VIRE_LEDGER_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if backend := os.Getenv("VIRE_LEDGER_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if badgerPath := os.Getenv("VIRE_LEDGER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if lens := os.Getenv("VIRE_LEDGER_DEFAULT_LENS"); lens != "" {
		config.Report.DefaultLens = lens
	}
	if level := os.Getenv("VIRE_LEDGER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("VIRE_LEDGER_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, dataPath, lens string) {
	if dataPath != "" {
		config.Storage.Badger.Path = dataPath
	}
	if lens != "" {
		config.Report.DefaultLens = lens
	}
}

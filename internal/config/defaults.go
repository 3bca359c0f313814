package config

import "github.com/bobmcallan/vire-ledger/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path: "./data/ledger",
			},
		},
		Report: ReportConfig{
			DefaultLens:          "asset",
			IncomeAsExternalFlow: false,
		},
		Logging: common.LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

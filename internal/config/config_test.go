package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Storage.Backend != "badger" {
		t.Errorf("expected default backend badger, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Badger.Path != "./data/ledger" {
		t.Errorf("expected default badger path ./data/ledger, got %s", cfg.Storage.Badger.Path)
	}
	if cfg.Report.DefaultLens != "asset" {
		t.Errorf("expected default lens asset, got %s", cfg.Report.DefaultLens)
	}
	if cfg.Report.IncomeAsExternalFlow {
		t.Error("expected income_as_external_flow to default to false")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFiles_NoFiles(t *testing.T) {
	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles with no files should not error: %v", err)
	}
	if cfg.Storage.Backend != "badger" {
		t.Errorf("expected default backend badger, got %s", cfg.Storage.Backend)
	}
}

func TestLoadFromFiles_ValidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "test.toml")

	content := `
[storage]
backend = "memory"

[storage.badger]
path = "/tmp/test-ledger"

[report]
default_lens = "geography"
income_as_external_flow = true

[logging]
level = "debug"
`
	if err := os.WriteFile(tomlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(tomlPath)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected backend memory, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Badger.Path != "/tmp/test-ledger" {
		t.Errorf("expected badger path /tmp/test-ledger, got %s", cfg.Storage.Badger.Path)
	}
	if cfg.Report.DefaultLens != "geography" {
		t.Errorf("expected lens geography, got %s", cfg.Report.DefaultLens)
	}
	if !cfg.Report.IncomeAsExternalFlow {
		t.Error("expected income_as_external_flow true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	if err := os.WriteFile(base, []byte("[report]\ndefault_lens = \"asset\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	override := filepath.Join(dir, "override.toml")
	if err := os.WriteFile(override, []byte("[report]\ndefault_lens = \"account\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Report.DefaultLens != "account" {
		t.Errorf("expected later file to win with lens account, got %s", cfg.Report.DefaultLens)
	}
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/path.toml")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromFiles_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(tomlPath, []byte("not [valid toml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromFiles(tomlPath)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VIRE_LEDGER_STORAGE_BACKEND", "memory")
	t.Setenv("VIRE_LEDGER_DEFAULT_LENS", "assettype")
	t.Setenv("VIRE_LEDGER_LOG_LEVEL", "warn")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected env backend memory, got %s", cfg.Storage.Backend)
	}
	if cfg.Report.DefaultLens != "assettype" {
		t.Errorf("expected env lens assettype, got %s", cfg.Report.DefaultLens)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env log level warn, got %s", cfg.Logging.Level)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, "/custom/data", "account")
	if cfg.Storage.Badger.Path != "/custom/data" {
		t.Errorf("expected flag path /custom/data, got %s", cfg.Storage.Badger.Path)
	}
	if cfg.Report.DefaultLens != "account" {
		t.Errorf("expected flag lens account, got %s", cfg.Report.DefaultLens)
	}

	// Empty flags leave config untouched
	ApplyFlagOverrides(cfg, "", "")
	if cfg.Storage.Badger.Path != "/custom/data" {
		t.Errorf("empty flag should not reset path, got %s", cfg.Storage.Badger.Path)
	}
}

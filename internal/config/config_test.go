package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
)

func validConfig() Config {
	return Config{
		LogFormat: "json",
		LogLevel:  "info",
		Profile:   "regional",
		Storage:   StorageConfig{Driver: "sqlite"},
		Ingest:    IngestConfig{BatchSize: 10000},
		Export:    ExportConfig{RowsPerFile: 1048576},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid sqlite config", func(*Config) {}, false},
		{"valid global profile", func(c *Config) { c.Profile = "global" }, false},
		{"valid postgres config", func(c *Config) {
			c.Storage = StorageConfig{Driver: "postgres", Postgres: PostgresConfig{DSN: "postgres://localhost/db"}}
		}, false},
		{"invalid log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"invalid profile", func(c *Config) { c.Profile = "continental" }, true},
		{"invalid driver", func(c *Config) { c.Storage.Driver = "mysql" }, true},
		{"postgres missing dsn", func(c *Config) { c.Storage.Driver = "postgres" }, true},
		{"zero batch size", func(c *Config) { c.Ingest.BatchSize = 0 }, true},
		{"negative rows per file", func(c *Config) { c.Export.RowsPerFile = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs", "nested")
	cfg := validConfig()
	cfg.Output.Dir = dir
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EBIRDSTAT_CONFIG", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Profile != "regional" {
		t.Errorf("profile = %q, want regional", cfg.Profile)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Ingest.BatchSize != 10000 {
		t.Errorf("batch_size = %d, want 10000", cfg.Ingest.BatchSize)
	}
	if cfg.Export.RowsPerFile != 1048576 {
		t.Errorf("rows_per_file = %d, want 1048576", cfg.Export.RowsPerFile)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := `
log_format: json
log_level: debug
profile: global

storage:
  driver: sqlite
  sqlite:
    path: global_bird_analysis.db

ingest:
  batch_size: 500
  reject_invalid_month: true

export:
  rows_per_file: 1000
`
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ParsedProfile() != ebird.ProfileGlobal {
		t.Errorf("profile = %q, want global", cfg.Profile)
	}
	if cfg.Ingest.BatchSize != 500 {
		t.Errorf("batch_size = %d, want 500", cfg.Ingest.BatchSize)
	}
	if cfg.Export.RowsPerFile != 1000 {
		t.Errorf("rows_per_file = %d, want 1000", cfg.Export.RowsPerFile)
	}
	if cfg.DSN() != "global_bird_analysis.db" {
		t.Errorf("DSN() = %q, want global_bird_analysis.db", cfg.DSN())
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelDebug {
		t.Errorf("level = %v, want DEBUG", lvl)
	}

	p := cfg.Policy()
	if p.BreedingDefault != "" || p.ReportRejects || !p.RejectInvalidMonth {
		t.Errorf("Policy() = %+v", p)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := `
storage:
  driver: sqlite
ingest:
  batch_size: 500
`
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EBIRDSTAT_INGEST_BATCH_SIZE", "2500")
	t.Setenv("EBIRDSTAT_PROFILE", "global")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.BatchSize != 2500 {
		t.Errorf("batch_size = %d, want 2500", cfg.Ingest.BatchSize)
	}
	if cfg.Profile != "global" {
		t.Errorf("profile = %q, want global", cfg.Profile)
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("profile: planetary\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("expected validation error")
	}
}

func TestConfig_DSN(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		cfg := Config{Storage: StorageConfig{Driver: "sqlite", SQLite: SQLiteConfig{Path: "/tmp/test.db"}}}
		if dsn := cfg.DSN(); dsn != "/tmp/test.db" {
			t.Errorf("DSN() = %q, want %q", dsn, "/tmp/test.db")
		}
	})

	t.Run("postgres", func(t *testing.T) {
		cfg := Config{Storage: StorageConfig{Driver: "postgres", Postgres: PostgresConfig{DSN: "postgres://localhost/db"}}}
		if dsn := cfg.DSN(); dsn != "postgres://localhost/db" {
			t.Errorf("DSN() = %q, want %q", dsn, "postgres://localhost/db")
		}
	})

	t.Run("regional policy", func(t *testing.T) {
		cfg := validConfig()
		p := cfg.Policy()
		if p.BreedingDefault != ebird.BreedingPlaceholder || !p.ReportRejects {
			t.Errorf("Policy() = %+v", p)
		}
	})
}

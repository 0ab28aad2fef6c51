package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
	"github.com/spf13/viper"
)

// Config is the top-level configuration for ebirdstat.
type Config struct {
	LogFormat string        `mapstructure:"log_format"`
	LogLevel  string        `mapstructure:"log_level"`
	Profile   string        `mapstructure:"profile"` // "regional" or "global"
	Storage   StorageConfig `mapstructure:"storage"`
	Ingest    IngestConfig  `mapstructure:"ingest"`
	Export    ExportConfig  `mapstructure:"export"`
	Output    OutputConfig  `mapstructure:"output"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
}

// StorageConfig defines the database backend.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration.
// An empty Path lets the load command name the file after the input.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// IngestConfig controls parsing and batching.
type IngestConfig struct {
	BatchSize          int  `mapstructure:"batch_size"`
	RejectInvalidMonth bool `mapstructure:"reject_invalid_month"`
}

// ExportConfig controls the part files.
type ExportConfig struct {
	RowsPerFile int `mapstructure:"rows_per_file"`
}

// OutputConfig controls where run directories are created.
// An empty Dir places them in the working directory.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// MetricsConfig controls the optional node_exporter textfile.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load reads configuration from flag path, env vars, then default file paths.
// Precedence: flag → $EBIRDSTAT_CONFIG env → ~/.config/ebirdstat/config.yaml → /etc/ebirdstat/config.yaml
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("log_format", "text")
	v.SetDefault("log_level", "info")
	v.SetDefault("profile", string(ebird.ProfileRegional))
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("ingest.batch_size", 10000)
	v.SetDefault("ingest.reject_invalid_month", false)
	v.SetDefault("export.rows_per_file", 1048576)
	v.SetDefault("output.dir", "")
	v.SetDefault("metrics.textfile", "")

	// Env var support: EBIRDSTAT_STORAGE_DRIVER, EBIRDSTAT_INGEST_BATCH_SIZE, ...
	v.SetEnvPrefix("EBIRDSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv("EBIRDSTAT_CONFIG"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "ebirdstat"))
		}
		v.AddConfigPath("/etc/ebirdstat")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		// Warn if config file is world-readable; it may hold a postgres DSN.
		if cfgPath := v.ConfigFileUsed(); cfgPath != "" {
			if info, err := os.Stat(cfgPath); err == nil {
				perm := info.Mode().Perm()
				if perm&0004 != 0 && v.GetString("storage.postgres.dsn") != "" {
					slog.Warn("config file is world-readable", "path", cfgPath, "permissions", fmt.Sprintf("%04o", perm))
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is complete and correct.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", c.LogFormat)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	if _, err := ebird.ParseProfile(c.Profile); err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be 'sqlite' or 'postgres', got %q", c.Storage.Driver)
	}

	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	if c.Export.RowsPerFile < 1 {
		return fmt.Errorf("export.rows_per_file must be positive, got %d", c.Export.RowsPerFile)
	}

	if c.Output.Dir != "" {
		if err := os.MkdirAll(c.Output.Dir, 0700); err != nil {
			return fmt.Errorf("creating output directory %q: %w", c.Output.Dir, err)
		}
	}

	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q is not a valid level", c.LogLevel)
	}
	return lvl, nil
}

// ParsedProfile returns Profile as an ebird.Profile. Validate has
// already rejected unknown names.
func (c *Config) ParsedProfile() ebird.Profile {
	return ebird.Profile(c.Profile)
}

// Policy returns the parser policy for the configured profile and
// ingest options.
func (c *Config) Policy() ebird.Policy {
	p := c.ParsedProfile().Policy()
	p.RejectInvalidMonth = c.Ingest.RejectInvalidMonth
	return p
}

// DSN returns the appropriate DSN for the configured storage driver.
func (c *Config) DSN() string {
	switch c.Storage.Driver {
	case "sqlite":
		return c.Storage.SQLite.Path
	case "postgres":
		return c.Storage.Postgres.DSN
	default:
		return ""
	}
}

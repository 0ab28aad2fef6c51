package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgFile     string
	logFormat   string
	logLevel    string
	profileName string
)

var rootCmd = &cobra.Command{
	Use:   "ebirdstat",
	Short: "Load eBird extracts into SQL and analyze species trends",
	Long: `ebirdstat streams eBird Basic Dataset extracts (tab-delimited .txt files)
into SQLite or PostgreSQL, exports the loaded table back to CSV parts, and
reports per-species yearly trends, seasonal peaks, breeding evidence and top
locations, optionally scoped to a country, state or county.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "dataset profile: regional or global (overrides config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the persistent flag
// overrides, then installs the configured logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	setupLogging(logFormat, slog.LevelInfo)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("profile") {
		cfg.Profile = profileName
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	lvl, _ := cfg.SlogLevel()
	setupLogging(cfg.LogFormat, lvl)
	return cfg, nil
}

func setupLogging(format string, level slog.Level) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

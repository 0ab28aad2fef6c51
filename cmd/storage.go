package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/config"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/ebird"
	"github.com/SharanyanRaghavan/EBirdAnalysis/internal/store"
)

const (
	stampLayout  = "20060102_150405"
	globalDBName = "global_bird_analysis.db"
)

// runPaths names the artifacts of one load run.
type runPaths struct {
	Dir     string
	DB      string
	Species string
}

// newRunPaths derives the run directory <input>_<stamp> under root (the
// working directory when root is empty) and the files inside it.
func newRunPaths(input, root string, profile ebird.Profile, now time.Time) runPaths {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	stamp := now.Format(stampLayout)
	dir := filepath.Join(root, base+"_"+stamp)

	db := filepath.Join(dir, base+"_"+stamp+".db")
	if profile == ebird.ProfileGlobal {
		db = filepath.Join(dir, globalDBName)
	}
	return runPaths{
		Dir:     dir,
		DB:      db,
		Species: speciesPath(dir, now),
	}
}

// cleanPath trims whitespace and one pair of surrounding quotes, as left
// by drag-and-drop into a terminal.
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) >= 2 && (p[0] == '"' && p[len(p)-1] == '"' || p[0] == '\'' && p[len(p)-1] == '\'') {
		p = p[1 : len(p)-1]
	}
	return p
}

// openExisting opens the database a read command points at. dbPath, when
// set, selects a SQLite file and must already exist.
func openExisting(cfg *config.Config, dbPath string) (store.Store, error) {
	if dbPath != "" {
		cfg.Storage.Driver = "sqlite"
		cfg.Storage.SQLite.Path = dbPath
	}
	if err := requireDSN(cfg); err != nil {
		return nil, err
	}
	if cfg.Storage.Driver == "sqlite" {
		if _, err := os.Stat(cfg.DSN()); err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
	}
	return openStore(cfg)
}

func requireDSN(cfg *config.Config) error {
	if cfg.DSN() == "" {
		return errors.New("no database given: pass --db or set storage.sqlite.path")
	}
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	s, err := store.Open(cfg.Storage.Driver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	slog.Info("database ready", "driver", cfg.Storage.Driver, "dsn", displayDSN(cfg))
	return s, nil
}

func displayDSN(cfg *config.Config) string {
	if cfg.Storage.Driver == "postgres" {
		return redactDSN(cfg.DSN())
	}
	return cfg.DSN()
}

// redactDSN masks the password in a PostgreSQL DSN for safe display.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

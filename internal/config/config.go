// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/atinyakov/accessgate/internal/db"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `env:"SERVER_ADDRESS"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `env:"DATABASE_DSN"`

	// Driver selects the entry store: "postgres" or "sqlite".
	Driver string `env:"DATABASE_DRIVER"`

	// SQLitePath is the database file used when Driver is "sqlite".
	SQLitePath string `env:"SQLITE_PATH"`

	// LogLevel is passed to logger.Init. Empty means the binary default.
	LogLevel string `env:"LOG_LEVEL"`

	// Config is the path to the Config file.
	Config string `env:"CONFIG"`

	// PurgeInterval is how often soft-deleted entries are purged.
	PurgeInterval time.Duration `env:"PURGE_INTERVAL"`

	// PurgeRetention is how long a soft-deleted entry is kept.
	PurgeRetention time.Duration `env:"PURGE_RETENTION"`

	// WizardTTL is how long an idle HTTP enrollment session survives.
	WizardTTL time.Duration `env:"WIZARD_TTL"`
}

// Source returns the data source for Driver: the DSN or the SQLite file.
func (o *Options) Source() string {
	if o.Driver == db.DriverPostgres {
		return o.DatabaseDSN
	}
	return o.SQLitePath
}

// fileOptions mirrors Options in the JSON config file. Durations are strings
// such as "1h" or "720h".
type fileOptions struct {
	Addr           *string `json:"address"`
	DatabaseDSN    *string `json:"database_dsn"`
	Driver         *string `json:"database_driver"`
	SQLitePath     *string `json:"sqlite_path"`
	LogLevel       *string `json:"log_level"`
	PurgeInterval  *string `json:"purge_interval"`
	PurgeRetention *string `json:"purge_retention"`
	WizardTTL      *string `json:"wizard_ttl"`
}

// Parse reads configuration from os.Args, the config file and the environment.
func Parse() (*Options, error) {
	return ParseArgs(os.Args[0], os.Args[1:])
}

// ParseArgs is Parse over an explicit argument list. Flags are applied first,
// then the JSON config file if it exists, then environment variables.
func ParseArgs(name string, args []string) (*Options, error) {
	options := &Options{}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Driver, "driver", db.DriverSQLite, "entry store driver (postgres|sqlite)")
	fs.StringVar(&options.SQLitePath, "sqlite", "accessgate.db", "sqlite database file")
	fs.StringVar(&options.LogLevel, "log-level", "", "log level (default info for the server, error for the client)")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.DurationVar(&options.PurgeInterval, "purge-interval", time.Hour, "soft-delete purge interval")
	fs.DurationVar(&options.PurgeRetention, "purge-retention", 30*24*time.Hour, "soft-delete retention")
	fs.DurationVar(&options.WizardTTL, "wizard-ttl", 15*time.Minute, "idle enrollment session lifetime")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// CONFIG may point somewhere else before the file is read.
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := options.loadFile(options.Config); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(options); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if options.Driver != db.DriverPostgres && options.Driver != db.DriverSQLite {
		return nil, fmt.Errorf("unknown database driver %q", options.Driver)
	}
	return options, nil
}

func (o *Options) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	var f fileOptions
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	setString(&o.Addr, f.Addr)
	setString(&o.DatabaseDSN, f.DatabaseDSN)
	setString(&o.Driver, f.Driver)
	setString(&o.SQLitePath, f.SQLitePath)
	setString(&o.LogLevel, f.LogLevel)
	for _, d := range []struct {
		dst *time.Duration
		src *string
		key string
	}{
		{&o.PurgeInterval, f.PurgeInterval, "purge_interval"},
		{&o.PurgeRetention, f.PurgeRetention, "purge_retention"},
		{&o.WizardTTL, f.WizardTTL, "wizard_ttl"},
	} {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("config file %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

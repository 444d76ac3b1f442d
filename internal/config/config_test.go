package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.json")
}

func TestParseArgs_Defaults(t *testing.T) {
	opts, err := ParseArgs("server", []string{"-c", noConfig(t)})
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", opts.Addr)
	assert.Equal(t, "sqlite", opts.Driver)
	assert.Equal(t, "accessgate.db", opts.SQLitePath)
	assert.Empty(t, opts.LogLevel)
	assert.Equal(t, time.Hour, opts.PurgeInterval)
	assert.Equal(t, 30*24*time.Hour, opts.PurgeRetention)
	assert.Equal(t, 15*time.Minute, opts.WizardTTL)
}

func TestParseArgs_Flags(t *testing.T) {
	opts, err := ParseArgs("server", []string{
		"-c", noConfig(t),
		"-a", ":9090",
		"-d", "postgres://x",
		"-driver", "postgres",
		"-wizard-ttl", "1m",
	})
	require.NoError(t, err)
	assert.Equal(t, ":9090", opts.Addr)
	assert.Equal(t, "postgres://x", opts.DatabaseDSN)
	assert.Equal(t, "postgres", opts.Driver)
	assert.Equal(t, time.Minute, opts.WizardTTL)
	assert.Equal(t, "postgres://x", opts.Source())
}

func TestOptions_SourceSQLite(t *testing.T) {
	opts, err := ParseArgs("client", []string{"-c", noConfig(t), "-sqlite", "local.db", "-d", "postgres://x"})
	require.NoError(t, err)
	assert.Equal(t, "local.db", opts.Source())
}

func TestParseArgs_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"address": ":7000",
		"database_driver": "postgres",
		"database_dsn": "from-file",
		"purge_interval": "10m",
		"log_level": "debug"
	}`), 0o600))

	t.Setenv("DATABASE_DSN", "from-env")
	t.Setenv("PURGE_RETENTION", "48h")

	opts, err := ParseArgs("server", []string{"-config", path, "-a", ":6000"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", opts.Addr)
	assert.Equal(t, "postgres", opts.Driver)
	assert.Equal(t, "from-env", opts.DatabaseDSN)
	assert.Equal(t, 10*time.Minute, opts.PurgeInterval)
	assert.Equal(t, 48*time.Hour, opts.PurgeRetention)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestParseArgs_ConfigEnvSelectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sqlite_path": "/tmp/entries.db"}`), 0o600))
	t.Setenv("CONFIG", path)

	opts, err := ParseArgs("client", nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/entries.db", opts.SQLitePath)
}

func TestParseArgs_Errors(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	badDuration := filepath.Join(t.TempDir(), "dur.json")
	require.NoError(t, os.WriteFile(badDuration, []byte(`{"wizard_ttl": "soon"}`), 0o600))

	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "unknown flag", args: []string{"-nope"}},
		{name: "malformed file", args: []string{"-c", bad}},
		{name: "bad duration in file", args: []string{"-c", badDuration}},
		{name: "unknown driver", args: []string{"-c", noConfig(t), "-driver", "mysql"}},
		{name: "bad env duration", args: []string{"-c", noConfig(t)}, env: map[string]string{"WIZARD_TTL": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := ParseArgs("server", tt.args)
			assert.Error(t, err)
		})
	}
}

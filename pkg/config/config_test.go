package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbook-app/finbook/pkg/categorize"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen-addr", "", "Listen address")
	flags.String("db-path", "", "SQLite database path")
	flags.String("ai-model", "", "Model used for transaction categorization")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestBuildDefaults(t *testing.T) {
	cfg, err := Build("", nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.ListenAddr)
	assert.Equal(t, "finbook.db", cfg.DBPath)
	assert.Equal(t, categorize.DefaultModel, cfg.AIModel)
}

func TestBuildFlagWins(t *testing.T) {
	flags := newFlags(t, "--listen-addr", "127.0.0.1:9999")

	cfg, err := Build("", flags)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
	// Flags left at their zero default do not mask the built-in defaults.
	assert.Equal(t, "finbook.db", cfg.DBPath)
}

func TestBuildFlagBeatsEnv(t *testing.T) {
	t.Setenv("FINBOOK_DB_PATH", "env.db")
	t.Setenv("FINBOOK_LISTEN_ADDR", "10.0.0.1:4000")
	flags := newFlags(t, "--db-path", "flag.db")

	cfg, err := Build("", flags)
	require.NoError(t, err)

	assert.Equal(t, "flag.db", cfg.DBPath)
	assert.Equal(t, "10.0.0.1:4000", cfg.ListenAddr)
}

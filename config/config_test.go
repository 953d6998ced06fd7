package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "test.db", cfg.SQLitePath)
	assert.Equal(t, "gpt-4o", cfg.DefaultModel)
	assert.Equal(t, "stdout", cfg.OTELExporterType)
	assert.False(t, cfg.RunSeed)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	assert.EqualError(t, err, "POSTGRES_DSN is required")
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_HostURLTrimmed(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("HOST_AI_URL", "http://host.local/v1/")
	t.Setenv("RUN_SEED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://host.local/v1", cfg.HostAIURL)
	assert.True(t, cfg.RunSeed)
}

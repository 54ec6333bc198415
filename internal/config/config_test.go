package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Agent.HistoryWindow)
	assert.True(t, cfg.Agent.DomainGuardEnabled)
	assert.Equal(t, "metric", cfg.Agent.DefaultUnits)
	assert.InDelta(t, 0.2, cfg.LLM.ChatTemperature, 1e-9)
	assert.False(t, cfg.LLM.Enabled)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5", cfg.Weather.BaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/history.db")
	t.Setenv("AGENT_DOMAIN_GUARD", "false")
	t.Setenv("SESSION_MEMORY_TTL", "30m")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/history.db", cfg.GetDatabaseDSN())
	assert.False(t, cfg.Agent.DomainGuardEnabled)
	assert.Equal(t, 30*time.Minute, cfg.Agent.SessionMemoryTTL)
	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port, "invalid integer falls back to default")
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestGetDatabaseDSN_Postgres(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5433,
		User:     "agent",
		Password: "secret",
		Database: "weather",
		SSLMode:  "require",
	}}
	assert.Equal(t, "host=db port=5433 user=agent password=secret dbname=weather sslmode=require", cfg.GetDatabaseDSN())

	cfg.Database.DSN = "postgres://u:p@h/db"
	assert.Equal(t, "postgres://u:p@h/db", cfg.GetDatabaseDSN())
}

func TestRequireServing(t *testing.T) {
	cfg := &Config{}
	err := cfg.RequireServing()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "OPENWEATHERMAP_API_KEY")

	cfg.LLM.APIKey = "k"
	cfg.Weather.APIKey = "w"
	assert.NoError(t, cfg.RequireServing())
}

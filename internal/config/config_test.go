package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, int64(100), cfg.Escrow.RegistrationFee)
	assert.Equal(t, "USDC", cfg.Escrow.FeeToken)
	assert.Equal(t, int64(50), cfg.Escrow.BaselineStake)
	assert.Equal(t, 50, cfg.Escrow.MaxBatchSize)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Events.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "cassandra" }},
		{"postgres without host", func(c *Config) {
			c.Store.Backend = "postgres"
			c.Store.Postgres.Host = ""
		}},
		{"redis enabled without host", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Host = ""
		}},
		{"events enabled without url", func(c *Config) {
			c.Events.Enabled = true
			c.Events.URL = ""
		}},
		{"negative registration fee", func(c *Config) { c.Escrow.RegistrationFee = -1 }},
		{"zero baseline stake", func(c *Config) { c.Escrow.BaselineStake = 0 }},
		{"zero batch size", func(c *Config) { c.Escrow.MaxBatchSize = 0 }},
		{"missing owner", func(c *Config) { c.Roles.Owner = "" }},
		{"missing arbitrator", func(c *Config) { c.Roles.Arbitrator = "" }},
		{"automation without interval", func(c *Config) {
			c.Automation.Enabled = true
			c.Automation.PollInterval = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateFillsLoggingDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = ""
	cfg.Logging.Format = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ESCROWD_SERVER_PORT", "9999")
	t.Setenv("ESCROWD_STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_NAME", "ledger")
	t.Setenv("DATABASE_USER", "svc")
	t.Setenv("REDIS_HOST", "cache.internal")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "db.internal", cfg.Store.Postgres.Host)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
}

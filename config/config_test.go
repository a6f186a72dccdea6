package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SESSION_BASE_LIFETIME", "")

	cfg := Load()

	assert.Equal(t, "config-service", cfg.Service.Name)
	assert.Equal(t, "3232", cfg.Service.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 2_419_200_000*time.Millisecond, cfg.Session.BaseLifetime)
	assert.Equal(t, 3, cfg.Session.LongLivedMultiplier)
	assert.Equal(t, 32, cfg.Session.TokenBytes)
	assert.True(t, cfg.Session.SweepOnIssue)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/cfg")
	t.Setenv("SESSION_BASE_LIFETIME", "1h")
	t.Setenv("SESSION_LONG_LIVED_MULTIPLIER", "5")
	t.Setenv("SESSION_SWEEP_INTERVAL", "0s")
	t.Setenv("PASSWORD_BCRYPT_COST", "4")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TRACING_SAMPLE_RATE", "0.25")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Service.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Session.BaseLifetime)
	assert.Equal(t, 5, cfg.Session.LongLivedMultiplier)
	assert.Zero(t, cfg.Session.SweepInterval)
	assert.Equal(t, 4, cfg.Password.BcryptCost)
	assert.True(t, cfg.Tracing.Enabled)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRate, 1e-9)
	require.NoError(t, cfg.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres; c.Database.URL = "" }},
		{"zero lifetime", func(c *Config) { c.Session.BaseLifetime = 0 }},
		{"multiplier below one", func(c *Config) { c.Session.LongLivedMultiplier = 0 }},
		{"short tokens", func(c *Config) { c.Session.TokenBytes = 8 }},
		{"negative sweep", func(c *Config) { c.Session.SweepInterval = -time.Second }},
		{"bcrypt cost", func(c *Config) { c.Password.BcryptCost = 99 }},
		{"no hash slots", func(c *Config) { c.Password.MaxConcurrent = 0 }},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 1.5 }},
		{"shutdown timeout", func(c *Config) { c.Shutdown.Timeout = "soon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			cfg.Database.Driver = DriverSQLite
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_InvalidDurationFailsValidation(t *testing.T) {
	t.Setenv("SESSION_BASE_LIFETIME", "four weeks")

	cfg := Load()
	cfg.Database.Driver = DriverSQLite

	assert.Error(t, cfg.Validate())
}

func TestDurationGetters(t *testing.T) {
	cfg := &Config{Shutdown: ShutdownConfig{Timeout: "3s", ReadinessDrainDelay: "bogus"}}

	assert.Equal(t, 3*time.Second, cfg.GetShutdownTimeoutDuration())
	assert.Zero(t, cfg.GetReadinessDrainDelayDuration())

	cfg.Shutdown.Timeout = ""
	assert.Equal(t, 10*time.Second, cfg.GetShutdownTimeoutDuration())
}

func TestLoad_MalformedValuesFailValidation(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SESSION_TOKEN_BYTES", "thirty-two"},
		{"PASSWORD_BCRYPT_COST", "12x"},
		{"TRACING_ENABLED", "yes please"},
		{"SESSION_SWEEP_ON_ISSUE", "maybe"},
		{"TRACING_SAMPLE_RATE", "half"},
		{"SESSION_SWEEP_INTERVAL", "hourly"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("DB_DRIVER", DriverSQLite)
			t.Setenv(tt.key, tt.value)

			err := Load().Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

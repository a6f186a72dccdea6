// Package config loads service configuration from the environment.
//
// A .env file in the working directory is read first when present; real
// environment variables always win over values from the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the root configuration for the service.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Password  PasswordConfig
	Shutdown  ShutdownConfig

	// loadErrs holds variables that were set but could not be parsed.
	loadErrs []error
}

type ServiceConfig struct {
	Name    string
	Version string
	Env     string
	Port    string
}

type LoggingConfig struct {
	Level string
}

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

type ProfilingConfig struct {
	Enabled  bool
	Endpoint string
}

// DatabaseConfig selects the storage engine and how to reach it.
type DatabaseConfig struct {
	Driver         string
	URL            string
	SQLitePath     string
	MaxConnections int
}

// SessionConfig controls token issuance and expiry.
type SessionConfig struct {
	// BaseLifetime is the short-lived window L. It is also the renewal grant.
	BaseLifetime        time.Duration
	LongLivedMultiplier int
	TokenBytes          int
	// SweepInterval of zero disables the periodic expiry sweep.
	SweepInterval time.Duration
	SweepOnIssue  bool
}

type PasswordConfig struct {
	BcryptCost    int
	MaxConcurrent int
}

type ShutdownConfig struct {
	Timeout             string
	ReadinessDrainDelay string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	// Missing .env is the normal case in containers.
	_ = godotenv.Load()

	var env envReader
	cfg := &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "config-service"),
			Version: getEnv("SERVICE_VERSION", "dev"),
			Env:     getEnv("ENV", "development"),
			Port:    getEnv("PORT", "3232"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tracing: TracingConfig{
			Enabled:    env.getBool("TRACING_ENABLED", false),
			Endpoint:   getEnv("TRACING_ENDPOINT", "localhost:4318"),
			SampleRate: env.getFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Profiling: ProfilingConfig{
			Enabled:  env.getBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PROFILING_ENDPOINT", "http://localhost:4040"),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", DriverSQLite),
			URL:            getEnv("DATABASE_URL", ""),
			SQLitePath:     getEnv("SQLITE_PATH", "config.db"),
			MaxConnections: env.getInt("DB_MAX_CONNECTIONS", 10),
		},
		Session: SessionConfig{
			BaseLifetime:        env.getDuration("SESSION_BASE_LIFETIME", 4*7*24*time.Hour),
			LongLivedMultiplier: env.getInt("SESSION_LONG_LIVED_MULTIPLIER", 3),
			TokenBytes:          env.getInt("SESSION_TOKEN_BYTES", 32),
			SweepInterval:       env.getDuration("SESSION_SWEEP_INTERVAL", time.Hour),
			SweepOnIssue:        env.getBool("SESSION_SWEEP_ON_ISSUE", true),
		},
		Password: PasswordConfig{
			BcryptCost:    env.getInt("PASSWORD_BCRYPT_COST", bcrypt.DefaultCost),
			MaxConcurrent: env.getInt("PASSWORD_MAX_CONCURRENT", runtime.GOMAXPROCS(0)),
		},
		Shutdown: ShutdownConfig{
			Timeout:             getEnv("SHUTDOWN_TIMEOUT", "10s"),
			ReadinessDrainDelay: getEnv("READINESS_DRAIN_DELAY", "0s"),
		},
	}
	cfg.loadErrs = env.errs
	return cfg
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.loadErrs...)

	if c.Service.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DB_DRIVER=postgres"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("DB_MAX_CONNECTIONS must be positive"))
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}

	if c.Session.BaseLifetime <= 0 {
		errs = append(errs, errors.New("SESSION_BASE_LIFETIME must be positive"))
	}
	if c.Session.LongLivedMultiplier < 1 {
		errs = append(errs, errors.New("SESSION_LONG_LIVED_MULTIPLIER must be at least 1"))
	}
	if c.Session.TokenBytes < 16 {
		errs = append(errs, errors.New("SESSION_TOKEN_BYTES must be at least 16"))
	}
	if c.Session.SweepInterval < 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must not be negative"))
	}

	if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("PASSWORD_BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Password.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("PASSWORD_MAX_CONCURRENT must be positive"))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("TRACING_SAMPLE_RATE must be within [0, 1]"))
	}

	if d, err := time.ParseDuration(c.Shutdown.Timeout); err != nil || d < 0 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q", c.Shutdown.Timeout))
	}
	if d, err := time.ParseDuration(c.Shutdown.ReadinessDrainDelay); err != nil || d < 0 {
		errs = append(errs, fmt.Errorf("invalid READINESS_DRAIN_DELAY %q", c.Shutdown.ReadinessDrainDelay))
	}

	return errors.Join(errs...)
}

// GetShutdownTimeoutDuration returns the graceful shutdown timeout,
// falling back to 10s when the value cannot be parsed.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Shutdown.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetReadinessDrainDelayDuration returns how long /ready reports 503
// before the HTTP server stops accepting connections.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.Shutdown.ReadinessDrainDelay)
	if err != nil {
		return 0
	}
	return d
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// envReader parses typed variables. A variable that is set but malformed
// is recorded instead of silently replaced by its default.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

func (e *envReader) fail(key, v, kind string) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q is not a valid %s", key, v, kind))
}

func (e *envReader) getInt(key string, fallback int) int {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, "integer")
		return fallback
	}
	return n
}

func (e *envReader) getBool(key string, fallback bool) bool {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, "boolean")
		return fallback
	}
	return b
}

func (e *envReader) getFloat(key string, fallback float64) float64 {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, "number")
		return fallback
	}
	return f
}

func (e *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, "duration")
		return fallback
	}
	return d
}

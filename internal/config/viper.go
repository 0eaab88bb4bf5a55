// Package config provides Viper-based hierarchical configuration management:
// defaults, then a YAML config file, then BUDGET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. BUDGET_LOG_LEVEL.
const EnvPrefix = "BUDGET"

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Server struct {
		Addr            string        `mapstructure:"addr" yaml:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
		RateLimit       struct {
			RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
			Burst             int     `mapstructure:"burst" yaml:"burst"`
		} `mapstructure:"rate_limit" yaml:"rate_limit"`
	} `mapstructure:"server" yaml:"server"`

	Store struct {
		Backend     string `mapstructure:"backend" yaml:"backend"`
		SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
		PostgresDSN string `mapstructure:"postgres_dsn" yaml:"-"` // Never serialize credentials
		MaxConns    int32  `mapstructure:"max_conns" yaml:"max_conns"`
	} `mapstructure:"store" yaml:"store"`

	Auth struct {
		Backend string       `mapstructure:"backend" yaml:"backend"`
		Tokens  []TokenEntry `mapstructure:"tokens" yaml:"-"`
		Redis   struct {
			Addr      string `mapstructure:"addr" yaml:"addr"`
			Password  string `mapstructure:"password" yaml:"-"`
			DB        int    `mapstructure:"db" yaml:"db"`
			KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
		} `mapstructure:"redis" yaml:"redis"`
	} `mapstructure:"auth" yaml:"auth"`

	Events struct {
		Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
		URL      string `mapstructure:"url" yaml:"-"`
		Exchange string `mapstructure:"exchange" yaml:"exchange"`
		Queue    string `mapstructure:"queue" yaml:"queue"`
	} `mapstructure:"events" yaml:"events"`

	Forecast struct {
		Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
		Trees          int           `mapstructure:"trees" yaml:"trees"`
		MaxDepth       int           `mapstructure:"max_depth" yaml:"max_depth"`
		MinSamplesLeaf int           `mapstructure:"min_samples_leaf" yaml:"min_samples_leaf"`
		Bootstrap      bool          `mapstructure:"bootstrap" yaml:"bootstrap"`
		Seed           *int64        `mapstructure:"seed" yaml:"seed,omitempty"`
	} `mapstructure:"forecast" yaml:"forecast"`

	Import struct {
		Concurrency    int  `mapstructure:"concurrency" yaml:"concurrency"`
		IncludeCredits bool `mapstructure:"include_credits" yaml:"include_credits"`
	} `mapstructure:"import" yaml:"import"`
}

// TokenEntry maps one bearer token to a user ID. Tokens are listed rather
// than keyed because viper lowercases map keys.
type TokenEntry struct {
	Token string `mapstructure:"token" yaml:"-"`
	User  string `mapstructure:"user" yaml:"user"`
}

// TokenMap returns the static tokens as token -> user ID.
func (c *Config) TokenMap() map[string]string {
	out := make(map[string]string, len(c.Auth.Tokens))
	for _, e := range c.Auth.Tokens {
		out[e.Token] = e.User
	}
	return out
}

// Load initializes Viper configuration with hierarchical loading. When
// configFile is set it is read instead of searching the standard locations,
// and a missing file is an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.budget-planner")
		v.AddConfigPath(".budget-planner")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Keys without defaults are invisible to AutomaticEnv during Unmarshal
	for _, key := range []string{"forecast.seed", "auth.redis.password", "events.url"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := v.BindEnv("store.postgres_dsn", EnvPrefix+"_STORE_POSTGRES_DSN", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind DATABASE_URL: %w", err)
	}

	// 4. Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.rate_limit.requests_per_second", 10.0)
	v.SetDefault("server.rate_limit.burst", 20)

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.sqlite_path", "budget.db")
	v.SetDefault("store.max_conns", 5)

	v.SetDefault("auth.backend", "static")
	v.SetDefault("auth.redis.addr", "localhost:6379")
	v.SetDefault("auth.redis.db", 0)
	v.SetDefault("auth.redis.key_prefix", "budget:token:")

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.exchange", "budget")
	v.SetDefault("events.queue", "transaction.created")

	v.SetDefault("forecast.timeout", "10s")
	v.SetDefault("forecast.trees", 100)
	v.SetDefault("forecast.max_depth", 0)
	v.SetDefault("forecast.min_samples_leaf", 1)
	v.SetDefault("forecast.bootstrap", false)

	v.SetDefault("import.concurrency", 4)
	v.SetDefault("import.include_credits", false)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Server.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must not be negative, got: %f", config.Server.RateLimit.RequestsPerSecond)
	}
	if config.Server.RateLimit.RequestsPerSecond > 0 && config.Server.RateLimit.Burst < 1 {
		return fmt.Errorf("server.rate_limit.burst must be at least 1, got: %d", config.Server.RateLimit.Burst)
	}

	switch config.Store.Backend {
	case "memory":
	case "sqlite":
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if config.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn (or DATABASE_URL) is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be 'memory', 'sqlite' or 'postgres')", config.Store.Backend)
	}

	switch config.Auth.Backend {
	case "static":
		seen := make(map[string]bool, len(config.Auth.Tokens))
		for i, e := range config.Auth.Tokens {
			if e.Token == "" || e.User == "" {
				return fmt.Errorf("auth.tokens[%d]: token and user are required", i)
			}
			if seen[e.Token] {
				return fmt.Errorf("auth.tokens[%d]: duplicate token", i)
			}
			seen[e.Token] = true
		}
	case "redis":
		if config.Auth.Redis.Addr == "" {
			return fmt.Errorf("auth.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid auth backend: %s (must be 'static' or 'redis')", config.Auth.Backend)
	}

	if config.Events.Enabled && config.Events.URL == "" {
		return fmt.Errorf("events.url is required when events are enabled")
	}

	if config.Forecast.Timeout < 0 {
		return fmt.Errorf("forecast.timeout must not be negative, got: %s", config.Forecast.Timeout)
	}
	if config.Forecast.Trees < 1 || config.Forecast.Trees > 10000 {
		return fmt.Errorf("forecast.trees must be between 1 and 10000, got: %d", config.Forecast.Trees)
	}
	if config.Forecast.MaxDepth < 0 {
		return fmt.Errorf("forecast.max_depth must not be negative, got: %d", config.Forecast.MaxDepth)
	}
	if config.Forecast.MinSamplesLeaf < 1 {
		return fmt.Errorf("forecast.min_samples_leaf must be at least 1, got: %d", config.Forecast.MinSamplesLeaf)
	}

	if config.Import.Concurrency < 1 || config.Import.Concurrency > 64 {
		return fmt.Errorf("import.concurrency must be between 1 and 64, got: %d", config.Import.Concurrency)
	}

	return nil
}

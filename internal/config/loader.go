package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Set defaults
	cfg := DefaultConfig()

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")

		// Config file is optional if environment variables are set
		if err := viper.ReadInConfig(); err != nil {
			fmt.Printf("Warning: Could not read config file %s: %v. Using defaults and environment variables.\n", configPath, err)
		} else {
			if err := viper.Unmarshal(cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	// Override with environment variables (these take precedence)
	applyEnvironmentOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvironmentOverrides applies environment variable overrides to config
func applyEnvironmentOverrides(cfg *Config) {
	// Server configuration
	if host := os.Getenv("ESCROWD_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("ESCROWD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	// Store configuration
	if backend := os.Getenv("ESCROWD_STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		cfg.Store.Postgres.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			cfg.Store.Postgres.Port = p
		}
	}
	if dbName := os.Getenv("DATABASE_NAME"); dbName != "" {
		cfg.Store.Postgres.Database = dbName
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		cfg.Store.Postgres.User = dbUser
	}
	if dbPassword := os.Getenv("DATABASE_PASSWORD"); dbPassword != "" {
		cfg.Store.Postgres.Password = dbPassword
	}

	// Redis configuration
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.Redis.Host = redisHost
		cfg.Redis.Enabled = true
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			cfg.Redis.Port = p
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}

	// Events configuration
	if natsURL := os.Getenv("ESCROWD_NATS_URL"); natsURL != "" {
		cfg.Events.URL = natsURL
		cfg.Events.Enabled = true
	}

	// Role assignments
	if owner := os.Getenv("ESCROWD_ROLE_OWNER"); owner != "" {
		cfg.Roles.Owner = owner
	}
	if arbitrator := os.Getenv("ESCROWD_ROLE_ARBITRATOR"); arbitrator != "" {
		cfg.Roles.Arbitrator = arbitrator
	}
	if relayer := os.Getenv("ESCROWD_ROLE_RELAYER"); relayer != "" {
		cfg.Roles.Relayer = relayer
	}
	if executor := os.Getenv("ESCROWD_ROLE_EXECUTOR"); executor != "" {
		cfg.Roles.Executor = executor
	}

	// Automation configuration
	if interval := os.Getenv("ESCROWD_AUTOMATION_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Automation.PollInterval = d
		}
	}

	// Logging configuration
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

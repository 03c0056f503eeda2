package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads the environment into the configuration. Apply it before
// programmatic options, since unset variables fall back to their env-default.
//
// Environment variables:
//
//	PORT, ENVIRONMENT                 server
//	DATABASE_URL                      "", "memory" or "postgres(ql)://..."
//	DB_SCHEMA, AUTO_MIGRATE           postgres schema and startup migration
//	CACHE_URL, CACHE_TTL, CACHE_PREFIX
//	JWT_SECRET, API_KEY_SHA256        auth
//	LOG_LEVEL, MAX_VERSION_RETRIES, ENABLE_EVENT_LOGGING
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return applyDatabaseURL(c)
	}
}

// applyDatabaseURL derives the database type from the URL scheme.
func applyDatabaseURL(c *ServerConfig) error {
	switch {
	case c.DatabaseURL == "" || c.DatabaseURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(c.DatabaseURL, "postgresql://"), strings.HasPrefix(c.DatabaseURL, "postgres://"):
		c.DatabaseType = "postgres"
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}
	return nil
}

// LoadServerConfig loads configuration from the environment only.
func LoadServerConfig() (*ServerConfig, error) {
	return Load(WithEnv())
}

// EnvHelp returns the cleanenv description of every supported variable.
func EnvHelp() string {
	var cfg ServerConfig
	help, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return help
}

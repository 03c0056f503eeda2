package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/cache"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
	repopg "github.com/tendant/simple-cms/pkg/simplecms/repo/postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		DatabaseType:       "memory",
		DBSchema:           "cms",
		CacheTTL:           5 * time.Minute,
		CachePrefix:        "simplecms:tree",
		LogLevel:           "info",
		MaxVersionRetries:  5,
		EnableEventLogging: true,
	}
}

// ServerConfig represents server configuration for the simple-cms service.
// The env tags are read by WithEnv.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string // "memory", "postgres"; derived from DatabaseURL by WithEnv
	DBSchema     string `env:"DB_SCHEMA" env-default:"cms"`
	AutoMigrate  bool   `env:"AUTO_MIGRATE" env-default:"false"`

	// Tree cache: "" (disabled), "memory://" or "redis://host:port/db"
	CacheURL    string        `env:"CACHE_URL"`
	CacheTTL    time.Duration `env:"CACHE_TTL" env-default:"5m"`
	CachePrefix string        `env:"CACHE_PREFIX" env-default:"simplecms:tree"`

	// Auth
	JWTSecret    string `env:"JWT_SECRET"`
	APIKeySHA256 string `env:"API_KEY_SHA256"`

	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	MaxVersionRetries  int    `env:"MAX_VERSION_RETRIES" env-default:"5"`
	EnableEventLogging bool   `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.MaxVersionRetries < 1 {
		return errors.New("max_version_retries must be at least 1")
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.CacheURL != "" && !strings.HasPrefix(c.CacheURL, "memory://") &&
		!strings.HasPrefix(c.CacheURL, "redis://") && !strings.HasPrefix(c.CacheURL, "rediss://") {
		return fmt.Errorf("unsupported cache_url %q (use 'memory://' or 'redis://...')", c.CacheURL)
	}

	return nil
}

// Runtime holds the resources built from a ServerConfig.
type Runtime struct {
	Service simplecms.Service
	Logger  *slog.Logger
	Pool    *pgxpool.Pool // nil for the memory repository

	closers []func()
}

// Close releases the pool and cache connections.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context) (*Runtime, error) {
	logger, err := c.NewLogger()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Logger: logger}

	options := []simplecms.Option{
		simplecms.WithLogger(logger),
		simplecms.WithMaxRetries(c.MaxVersionRetries),
	}

	// Set up repository
	repo, err := c.buildRepository(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, simplecms.WithRepository(repo))

	// Set up tree cache
	treeCache, err := cache.FromURL(ctx, c.CacheURL, c.CachePrefix, c.CacheTTL)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build tree cache: %w", err)
	}
	if treeCache != nil {
		if closer, ok := treeCache.(interface{ Close() error }); ok {
			rt.closers = append(rt.closers, func() { _ = closer.Close() })
		}
		options = append(options, simplecms.WithTreeCache(treeCache))
	}

	// Set up event sink and hooks
	if c.EnableEventLogging {
		options = append(options, simplecms.WithEventSink(simplecms.NewLoggingEventSink(logger)))
	} else {
		options = append(options, simplecms.WithEventSink(simplecms.NewNoopEventSink()))
	}
	options = append(options, simplecms.WithHooks(simplecms.LoggingHooks(logger)))

	svc, err := simplecms.New(options...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc
	return rt, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, rt *Runtime) (simplecms.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := NewPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		rt.Pool = pool
		rt.closers = append(rt.closers, pool.Close)

		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				return nil, err
			}
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// NewPool opens a pgx pool whose sessions use schema as search_path. The
// schema is created when missing.
func NewPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		ident := pgx.Identifier{schema}.Sanitize()
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if _, err := conn.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident); err != nil {
				return err
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+ident)
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// NewLogger builds the process logger: JSON in production, text elsewhere.
func (c *ServerConfig) NewLogger() (*slog.Logger, error) {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts)), nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

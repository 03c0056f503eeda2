package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tendant/simple-cms/pkg/simplecms/config"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/postgres"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: migrate [up|status|down]\n\n%s", config.EnvHelp())
}

func main() {
	flag.Usage = usage
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}
	if cfg.DatabaseType != "postgres" {
		slog.Error("DATABASE_URL must point at Postgres to run migrations")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := config.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema)
	if err != nil {
		slog.Error("Failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	switch command {
	case "up":
		err = postgres.Migrate(ctx, pool)
	case "status":
		err = postgres.MigrationStatus(ctx, pool)
	case "down":
		err = postgres.Rollback(ctx, pool)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Migration failed", "command", command, "schema", cfg.DBSchema, "err", err)
		os.Exit(1)
	}
	slog.Info("Migration complete", "command", command, "schema", cfg.DBSchema)
}

package main

// Run database migrations:
//   go run ./cmd/migrate            apply pending migrations
//   go run ./cmd/migrate --status   list applied migrations
//   go run ./cmd/migrate --down     roll back the latest migration

import (
	"context"
	"os"

	"github.com/spf13/pflag"

	"cv-tailor/internal/shared/config"
	"cv-tailor/internal/shared/storage/db"
	"cv-tailor/internal/shared/telemetry"
)

func main() {
	var (
		configPath string
		down       bool
		status     bool
	)
	pflag.StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "Path to a YAML config file")
	pflag.BoolVar(&down, "down", false, "Roll back the most recent migration")
	pflag.BoolVar(&status, "status", false, "Print migration status")
	pflag.Parse()

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fail("config.load_failed", err)
	}
	ctx := context.Background()

	opts := db.DefaultMigrateOptions().Merge(db.Options(cfg.DBPool))
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		fail("migrate.connect_failed", err)
	}
	defer sqlDB.Close()

	switch {
	case status:
		err = db.MigrationStatus(ctx, sqlDB)
	case down:
		err = db.RollbackMigration(ctx, sqlDB)
	default:
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		sqlDB.Close()
		fail("migrate.failed", err)
	}
	telemetry.Info("migrate.done", map[string]any{"down": down, "status": status})
}

func fail(msg string, err error) {
	telemetry.Error(msg, map[string]any{"error": err.Error()})
	os.Exit(1)
}

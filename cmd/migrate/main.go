package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sonaskin/storefront-backend/pkg/config"
	"github.com/sonaskin/storefront-backend/pkg/db"
	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty uses the migrations built into the binary")
	name := flag.String("name", "", "migration name (create)")
	version := flag.String("version", "", "target version YYYYMMDDHHMMSS (version)")
	flag.Parse()

	if err := run(*cmd, *dir, *name, *version); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(cmd, dir, name, version string) error {
	// create and validate work on files only and need no config
	switch cmd {
	case "create":
		if name == "" {
			return fmt.Errorf("-name is required")
		}
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if dir == "" {
			dir = migrate.DefaultDir
		}
		if err := migrate.ValidateDir(dir); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.FromConfig("migrate", cfg.App)
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	// the SQL files target Postgres; SQLite gets its schema from the models
	if dbClient.Driver() == db.DriverSQLite {
		if cmd != "up" {
			return fmt.Errorf("sqlite only supports -cmd=up")
		}
		if err := migrate.AutoMigrateModels(dbClient.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema bootstrapped from models")
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}
	src := migrate.Dir(dir)

	switch cmd {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, src, cmd)
	case "version":
		if version == "" {
			return fmt.Errorf("-version is required")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, src, version)
	default:
		return fmt.Errorf("unknown command")
	}
	if err != nil {
		return err
	}
	logg.Info(ctx, "migrate finished")
	return nil
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/cmlabs-hris/plan-billing/internal/config"
	"github.com/cmlabs-hris/plan-billing/migrations"
	"github.com/golang-migrate/migrate/v4"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.Info("Connecting to database", "host", cfg.Database.Host, "port", cfg.Database.Port, "name", cfg.Database.Name)

	m, err := migrations.New(cfg.DatabaseURL())
	if err != nil {
		slog.Error("Failed to initialise migrations", "error", err)
		os.Exit(1)
	}

	err = runCommand(m, os.Args[1], os.Args[2:])

	if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
		slog.Warn("Failed to close migration resources", "source_error", sourceErr, "db_error", dbErr)
	}
	if err != nil {
		slog.Error("Migration command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func runCommand(m *migrate.Migrate, command string, args []string) error {
	switch command {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No change: database is up to date")
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("Migrations applied")

	case "down":
		if err := m.Steps(-1); err != nil {
			return err
		}
		slog.Info("Rolled back the last migration")

	case "goto":
		if len(args) < 1 {
			return errors.New("goto needs a version number")
		}
		version, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		err = m.Migrate(uint(version))
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No change: database already at version", "version", version)
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("Migrated to version", "version", version)

	case "status":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			slog.Info("No migrations applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("Current migration version", "version", version, "dirty", dirty)

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: go run ./cmd/migrate [command]")
	fmt.Println("Commands:")
	fmt.Println("  up            apply all pending migrations")
	fmt.Println("  down          roll back the last migration")
	fmt.Println("  goto VERSION  migrate up or down to VERSION")
	fmt.Println("  status        print the current migration version")
}

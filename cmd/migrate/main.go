package main

import (
	"errors"
	"flag"
	"io/fs"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/liamcoop/mathgen/internal/config"
	"github.com/liamcoop/mathgen/internal/logger"
	"github.com/liamcoop/mathgen/migrations"
)

type migrateEnv struct {
	DatabaseURL string `env:"DATABASE_URL"`
}

func main() {
	var databaseURL string
	var command string

	flag.StringVar(&databaseURL, "database", "", "Database URL (defaults to DATABASE_URL)")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatal("failed to load .env", "error", err.Error())
	}

	if databaseURL == "" {
		var e migrateEnv
		if err := config.ParseEnv(&e); err != nil {
			logger.Fatal("invalid environment", "error", err.Error())
		}
		databaseURL = e.DatabaseURL
	}
	if databaseURL == "" {
		logger.Fatal("database URL is required, use -database or DATABASE_URL")
	}

	m, err := migrations.New(databaseURL)
	if err != nil {
		logger.Fatal("failed to open migrations", "error", err.Error())
	}
	defer m.Close()

	switch command {
	case "up":
		logger.Info("running migrations up")
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("database is up to date")
			return
		}
		if err != nil {
			logger.Fatal("failed to run migrations", "error", err.Error())
		}
		logger.Info("migrations completed")

	case "down":
		logger.Info("rolling back migrations")
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("failed to roll back migrations", "error", err.Error())
		}
		logger.Info("rollback completed")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			logger.Fatal("failed to get version", "error", err.Error())
		}
		logger.Info("current version", "version", version, "dirty", dirty)

	case "force":
		if flag.NArg() < 1 {
			logger.Fatal("force requires a version number: -command force <version>")
		}
		version, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			logger.Fatal("invalid version number", "error", err.Error())
		}
		if err := m.Force(version); err != nil {
			logger.Fatal("failed to force version", "error", err.Error())
		}
		logger.Info("forced version", "version", version)

	default:
		logger.Fatal("unknown command, use up, down, version or force", "command", command)
	}
}

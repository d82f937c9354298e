package main

import (
	"errors"
	"log/slog"
	"os"

	"trivia-rooms/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, nil)))

	dir := pflag.String("dir", "db/migrations", "directory holding the migration files")
	down := pflag.Bool("down", false, "roll back the most recent migration instead of applying")
	pflag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fatal("DATABASE_URL is not set", nil)
	}

	m, err := migrate.New("file://"+*dir, dsn)
	if err != nil {
		fatal("migration setup failed", err)
	}
	defer m.Close()

	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fatal("database migration failed", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		fatal("read migration version failed", err)
	}
	slog.Info("database migrations applied", "version", version, "dirty", dirty, "down", *down)
}

func fatal(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
	} else {
		slog.Error(msg)
	}
	os.Exit(1)
}

package main

import (
	"context"
	"log/slog"
	"os"

	"trivia-rooms/internal/config"
	"trivia-rooms/internal/db"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, nil)))

	filePath := pflag.StringP("file", "f", "questions.csv", "path to questions csv")
	pflag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}

	conn, err := db.Open(os.Getenv("DATABASE_URL"))
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(conn); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	inserted, err := db.LoadQuestions(context.Background(), conn, *filePath)
	if err != nil {
		slog.Error("failed to load questions", "file", *filePath, "error", err)
		os.Exit(1)
	}
	slog.Info("questions loaded", "file", *filePath, "inserted", inserted)
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
)

var migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, nil)))

	name := pflag.StringP("name", "n", "", "migration name, lower snake case")
	dir := pflag.String("dir", filepath.Join("db", "migrations"), "directory to create the migration in")
	pflag.Parse()

	if *name == "" {
		fatal("migration name is required", nil)
	}
	if !migrationName.MatchString(*name) {
		fatal("migration name must be lower snake case", fmt.Errorf("got %q", *name))
	}

	version := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", version, *name)
	upPath := filepath.Join(*dir, base+".up.sql")
	downPath := filepath.Join(*dir, base+".down.sql")

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		fatal("create migrations dir", err)
	}
	if err := writeFile(upPath, "-- "+*name+" up\n"); err != nil {
		fatal("create up migration", err)
	}
	if err := writeFile(downPath, "-- "+*name+" down\n"); err != nil {
		fatal("create down migration", err)
	}

	slog.Info("migration created", "up", upPath, "down", downPath)
}

func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func fatal(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
	} else {
		slog.Error(msg)
	}
	os.Exit(1)
}

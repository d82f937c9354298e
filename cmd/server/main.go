package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"trivia-rooms/internal/config"
	"trivia-rooms/internal/db"
	"trivia-rooms/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const releaseVersion = "0.1.0"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:           "trivia-rooms",
		Short:         "Room-based multiplayer quiz server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromViper(v)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	config.BindFlags(cmd.Flags(), v)
	return cmd
}

func run(parent context.Context, cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	opts := server.Options{Logger: logger}
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.ConfigurePool(conn, db.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		}); err != nil {
			return fmt.Errorf("configure pool: %w", err)
		}
		if err := db.Migrate(conn); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
		opts.Questions = bankQuestions{bank: db.NewQuestionBank(conn)}
		opts.Verifier = credentialVerifier(db.NewUserStore(conn))
		logger.Info("question bank connected")
	} else {
		logger.Warn("DATABASE_URL is not set, using built-in questions and no login")
	}

	srv := server.New(cfg, opts)
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.RunSweeper(ctx)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr, "version", releaseVersion)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	srv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: lvl, TimeFormat: time.Kitchen}))
}

// bankQuestions adapts the postgres question bank to the game server.
type bankQuestions struct {
	bank *db.QuestionBank
}

func (b bankQuestions) Fetch(ctx context.Context, count int, category string) ([]server.Question, error) {
	records, err := b.bank.Fetch(ctx, count, category)
	if err != nil {
		return nil, err
	}
	questions := make([]server.Question, 0, len(records))
	for _, record := range records {
		questions = append(questions, server.Question{
			Text:         record.Text,
			Options:      []string(record.Options),
			CorrectIndex: record.CorrectIndex,
			Category:     record.Category,
		})
	}
	return questions, nil
}

func (b bankQuestions) Categories(ctx context.Context) ([]string, error) {
	return b.bank.Categories(ctx)
}

func credentialVerifier(users *db.UserStore) server.CredentialVerifier {
	return server.CredentialVerifierFunc(func(ctx context.Context, username, password string) error {
		_, err := users.VerifyCredentials(ctx, username, password)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, db.ErrUserNotFound), errors.Is(err, db.ErrInvalidPassword):
			return server.ErrInvalidCredentials
		case errors.Is(err, db.ErrUsersNotAvailable):
			return server.ErrAuthUnavailable
		default:
			return err
		}
	})
}

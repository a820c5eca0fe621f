package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/learnquest/learnquest/internal/curriculum"
	"github.com/learnquest/learnquest/internal/generator"
	"github.com/learnquest/learnquest/internal/leaderboard"
	"github.com/learnquest/learnquest/internal/platform/cache"
	"github.com/learnquest/learnquest/internal/platform/config"
	"github.com/learnquest/learnquest/internal/platform/database"
	"github.com/learnquest/learnquest/internal/progress"
	"github.com/learnquest/learnquest/internal/resolver"
	"github.com/learnquest/learnquest/internal/studybuddy"
	"github.com/learnquest/learnquest/internal/syllabus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redis, err := cache.New(ctx, cfg.Cache.URL)
	if err != nil {
		slog.Error("failed to connect to cache", "error", err)
		os.Exit(1)
	}
	defer redis.Close()

	if _, err := db.Pool.Exec(ctx, progress.Schema); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	repo, err := curriculum.NewPostgresRepository(db.Pool)
	if err != nil {
		slog.Error("failed to create curriculum repository", "error", err)
		os.Exit(1)
	}
	store, err := progress.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create progress store", "error", err)
		os.Exit(1)
	}

	gen, err := generator.NewHTTPClient(cfg.Generator.URL,
		generator.WithRetries(cfg.Generator.Retries),
		generator.WithBaseDelay(cfg.Generator.BaseDelay),
	)
	if err != nil {
		slog.Error("failed to create generation client", "error", err)
		os.Exit(1)
	}

	board := leaderboard.NewRedisBoard(redis.Client)

	srv := &server{
		repo:      repo,
		store:     store,
		resolver:  resolver.New(repo, gen, resolver.NewRedisSessionCache(redis.Client, cfg.Cache.SessionTTL)),
		evaluator: progress.NewEvaluator(store, progress.WithThreshold(cfg.Mastery.PassThreshold), progress.WithXPReporter(leaderboard.Reporter{Board: board})),
		board:     board,
		syllabus:  syllabus.NewService(repo, gen),
		buddy:     studybuddy.NewHandler(gen),
		ready: func(ctx context.Context) error {
			if err := db.HealthCheck(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
			if err := redis.HealthCheck(ctx); err != nil {
				return fmt.Errorf("cache: %w", err)
			}
			return nil
		},
	}

	if cfg.SeedsDir != "" {
		if _, err := syllabus.ImportDir(ctx, repo, cfg.SeedsDir); err != nil {
			slog.Error("failed to import curriculum seeds", "error", err)
			os.Exit(1)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // content generation can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

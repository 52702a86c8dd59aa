package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duckhunthq/duckhunt/internal/chat"
	"github.com/duckhunthq/duckhunt/internal/config"
	"github.com/duckhunthq/duckhunt/internal/database"
	"github.com/duckhunthq/duckhunt/internal/hunt"
	"github.com/duckhunthq/duckhunt/internal/levels"
	"github.com/duckhunthq/duckhunt/internal/llm"
	"github.com/duckhunthq/duckhunt/internal/migrations"
	"github.com/duckhunthq/duckhunt/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	store := server.NewSQLiteStore(db)
	docs := levels.NewStorage(cfg.DataDir)

	// --- Chat ---
	gen := llm.NewClient(llm.Config{
		APIKey:        cfg.LLMAPIKey,
		BaseURL:       cfg.LLMBaseURL,
		BasicModel:    cfg.LLMBasicModel,
		AdvancedModel: cfg.LLMAdvancedModel,
	})
	ctrl := chat.NewController(store, docs, gen, hunt.DefaultTiers(), hunt.NameLeakDetector{},
		chat.Config{Attempts: cfg.LLMAttempts, Backoff: cfg.LLMBackoff}, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger:       logger,
		DB:           db,
		Store:        store,
		Docs:         docs,
		Chat:         ctrl,
		AdminKeyHash: cfg.AdminKeyHash,
		FrontendURL:  cfg.FrontendURL,
		Rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

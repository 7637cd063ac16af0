package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/config"
	"github.com/Simplici0/dealfinder/internal/db"
	"github.com/Simplici0/dealfinder/internal/logging"
	"github.com/Simplici0/dealfinder/internal/migrations"
	"github.com/Simplici0/dealfinder/internal/repository"
	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/search"
	"github.com/Simplici0/dealfinder/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.Server.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDev() {
		applied, err := migrations.Up(ctx, database)
		if err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
		logger.Info("database migrated", zap.Int("applied", applied))
	}

	stats, err := seed.Run(ctx, database, seed.Config{Defaults: cfg.TCOAssumptions})
	if err != nil {
		logger.Fatal("failed to seed database", zap.Error(err))
	}
	logger.Info("database seeded", zap.Int("inserts", stats.Inserts), zap.Int("updates", stats.Updates))

	srv, err := newServer(serverDeps{
		Config:   cfg,
		Logger:   logger,
		Feed:     buildFeed(cfg, database, logger),
		Defaults: repository.NewDefaults(database),
	})
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildFeed wires the marketplace search. Without credentials every search
// fails with the configuration error so that the table shows why.
func buildFeed(cfg config.Config, database *sql.DB, logger *zap.Logger) results.Feed {
	svc, err := search.FromConfig(cfg, database, logger)
	if err != nil {
		logger.Warn("marketplace search disabled", zap.Error(err))
		return search.Unavailable{Err: err}
	}
	return svc
}

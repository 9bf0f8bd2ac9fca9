package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/brokerstatements/internal/config"
	"github.com/JonMunkholm/brokerstatements/internal/core"
	_ "github.com/JonMunkholm/brokerstatements/internal/core/formats" // Register all formats
	"github.com/JonMunkholm/brokerstatements/internal/logging"
	"github.com/JonMunkholm/brokerstatements/internal/metrics"
	"github.com/JonMunkholm/brokerstatements/internal/registry"
	"github.com/JonMunkholm/brokerstatements/internal/web"
)

func main() {
	// Load .env file if it exists; real environment variables win
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if cfg.Parse.OverridesFile != "" {
		ov, err := core.LoadOverrides(cfg.Parse.OverridesFile)
		if err != nil {
			slog.Error("failed to load format overrides", "error", err)
			os.Exit(1)
		}
		if err := core.ApplyOverrides(ov); err != nil {
			slog.Error("failed to apply format overrides", "error", err)
			os.Exit(1)
		}
		slog.Info("format overrides applied", "file", cfg.Parse.OverridesFile)
	}

	slog.Info("formats registered",
		"count", core.FormatCount(),
		"brokers", len(core.Brokers()),
	)
	for _, f := range core.All() {
		slog.Debug("format", "key", f.Key, "broker", f.Broker)
	}

	ctx := context.Background()
	deps := web.Deps{
		Limiter: core.NewParseLimiter(cfg.Parse.MaxConcurrent, cfg.Parse.MaxWaitTime),
		Metrics: metrics.New(),
	}

	if cfg.Database.Enabled() {
		pool, err := connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to registry database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := registry.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare registry schema", "error", err)
			os.Exit(1)
		}
		deps.Registrar = pg
		deps.DB = pool
	} else {
		slog.Warn("DATABASE_URL not set, security ids live in memory and reset on restart")
		deps.Registrar = registry.NewMemory()
	}

	server := web.NewServer(cfg, deps)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := deps.Limiter.Status(); status.Active > 0 {
			slog.Info("waiting for parses to complete", "active", status.Active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connect opens and verifies the registry connection pool.
func connect(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("connected to registry database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

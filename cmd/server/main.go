package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/bodymetrics/internal/config"
	"github.com/JonMunkholm/bodymetrics/internal/core"
	_ "github.com/JonMunkholm/bodymetrics/internal/core/charts" // Register all charts
	"github.com/JonMunkholm/bodymetrics/internal/logging"
	"github.com/JonMunkholm/bodymetrics/internal/store"
	"github.com/JonMunkholm/bodymetrics/internal/web"
	"github.com/JonMunkholm/bodymetrics/internal/web/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store_backend", cfg.Store.Backend,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	blob, closeBlob, err := store.Open(ctx, store.Options{
		Backend:   cfg.Store.Backend,
		Path:      cfg.Store.Path,
		RedisURL:  cfg.Store.RedisURL,
		SQLDriver: cfg.Store.SQLDriver,
		SQLDSN:    cfg.Store.SQLDSN,
		SQLTable:  cfg.Store.SQLTable,
		S3Bucket:  cfg.Store.S3Bucket,
		S3Region:  cfg.Backup.Region,
		S3Prefix:  cfg.Store.S3Prefix,
		Key:       cfg.Store.Key,
	})
	if err != nil {
		slog.Error("failed to open client database", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeBlob()

	clients := store.New(blob)

	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	core.ImportTimeout = cfg.Import.Timeout
	service := core.NewService(clients, limiter, core.ServiceConfig{
		MaxFiles:     cfg.Import.MaxFiles,
		ParseWorkers: cfg.Import.ParseWorkers,
	})

	slog.Info("charts registered",
		"count", core.ChartCount(),
		"groups", len(core.Groups()),
	)

	var opts []web.Option

	jobCtx, cancelJobs := context.WithCancel(context.Background())

	if cfg.Backup.S3Bucket != "" {
		archive, err := store.NewS3Archive(ctx, cfg.Backup.S3Bucket, cfg.Backup.Region, cfg.Backup.S3Prefix)
		if err != nil {
			slog.Error("failed to configure backup archive", "error", err)
			os.Exit(1)
		}
		opts = append(opts, web.WithArchive(archive))
		go clients.StartArchiveScheduler(jobCtx, archive, cfg.Backup.Interval)
	}

	if cfg.Rate.Enabled && cfg.Rate.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.Rate.RedisURL)
		if err != nil {
			slog.Error("failed to parse rate limit redis url", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		opts = append(opts, web.WithRateCounter(middleware.NewRedisRateCounter(rdb, cfg.Rate.ImportsPerMinute)))
		slog.Info("rate limits shared through redis", "addr", redisOpts.Addr)
	}

	server := web.NewServer(service, clients, cfg, opts...)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		closeBlob()
		os.Exit(1)
	}
	slog.Info("server stopped")
}

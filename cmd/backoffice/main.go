package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/consigna/backoffice/cmd/backoffice/cli"
	"github.com/consigna/backoffice/internal/app"
	"github.com/consigna/backoffice/internal/observability"
	"github.com/consigna/backoffice/internal/platform/cache"
	"github.com/consigna/backoffice/internal/platform/db"
	"github.com/consigna/backoffice/internal/reporting"
	reportinghttp "github.com/consigna/backoffice/internal/reporting/http"
	"github.com/consigna/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("serve", slog.Any("error", err))
		os.Exit(1)
	}
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	jobsCLI := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, cfg.WarmupWindowDays)
	defer func() {
		_ = jobsCLI.Close()
	}()
	return jobsCLI.Run(ctx, args, os.Stdout)
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLifetime})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	checks := map[string]app.ReadinessCheck{"postgres": pool.Ping}

	var reportCache *reporting.Cache
	if cfg.ReportCacheEnabled {
		redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.Warn("report cache disabled", slog.Any("error", err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
			reportCache = reporting.NewCache(redisClient, cfg.ReportCacheTTL)
		}
	}

	service := reporting.NewService(
		reporting.NewRepository(pool),
		reportCache,
		reporting.WithInstrumentation(reporting.NewInstrumentation(metrics.Registerer())),
		reporting.WithComputeTimeout(cfg.ReportTimeout),
	)
	if err := service.WatchInvalidations(ctx); err != nil {
		logger.Warn("report cache invalidation listener", slog.Any("error", err))
	}
	reportHandler := reportinghttp.NewHandler(logger, service, cfg.ReportTimeout)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		ReportHandler: reportHandler,
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
		Checks:        checks,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}


package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/meridian-fin/meridian-fin/internal/app"
	"github.com/meridian-fin/meridian-fin/internal/assets"
	"github.com/meridian-fin/meridian-fin/internal/fx"
	"github.com/meridian-fin/meridian-fin/internal/ledger"
	"github.com/meridian-fin/meridian-fin/internal/observability"
	"github.com/meridian-fin/meridian-fin/internal/platform/cache"
	"github.com/meridian-fin/meridian-fin/internal/platform/db"
	"github.com/meridian-fin/meridian-fin/internal/statements"
	statementshttp "github.com/meridian-fin/meridian-fin/internal/statements/http"
	"github.com/meridian-fin/meridian-fin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if err := godotenv.Load(); err != nil {
		slog.Default().Debug("no .env file, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	if err := statementshttp.SetupCacheMetrics(metrics.Registerer()); err != nil {
		logger.Warn("register cache metrics", slog.Any("error", err))
	}

	ledgerRepo := ledger.NewRepository(dbpool)
	assetsService := assets.NewService(assets.NewRepository(dbpool))
	rateSource := fx.NewRateCache(redisClient, fx.NewPgSource(dbpool), cfg.RateCacheTTL)
	rateService := fx.NewService(rateSource)

	generator := statements.NewService(ledgerRepo, ledgerRepo, assetsService, rateService, statements.Settings{
		FunctionalCurrency:    cfg.ReportingCurrency,
		MaterialityThreshold:  cfg.ReportingMateriality,
		RoundingPrecision:     cfg.ReportingPrecision,
		AccountingStandard:    cfg.ReportingStandard,
		ExternalAuditRequired: cfg.ExternalAuditRequired,
	}, logger)

	snapshotStore := statements.NewSnapshotRepository(dbpool)
	snapshotService := statements.NewSnapshotService(snapshotStore, generator, logger)

	statementCache := statementshttp.NewCache(redisClient, cfg.StatementCacheTTL)
	if err := statementCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	statementsHandler := statementshttp.NewHandler(logger, generator, snapshotService, statementCache, jobsClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		StatementsHandler: statementsHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
		Pool:              dbpool,
		Redis:             redisClient,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

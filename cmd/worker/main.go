package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/meridian-fin/meridian-fin/internal/app"
	"github.com/meridian-fin/meridian-fin/internal/assets"
	"github.com/meridian-fin/meridian-fin/internal/fx"
	"github.com/meridian-fin/meridian-fin/internal/ledger"
	"github.com/meridian-fin/meridian-fin/internal/platform/cache"
	"github.com/meridian-fin/meridian-fin/internal/platform/db"
	"github.com/meridian-fin/meridian-fin/internal/statements"
	statementshttp "github.com/meridian-fin/meridian-fin/internal/statements/http"
	"github.com/meridian-fin/meridian-fin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	ledgerRepo := ledger.NewRepository(pool)
	assetsService := assets.NewService(assets.NewRepository(pool))
	rateSource := fx.NewRateCache(redisClient, fx.NewPgSource(pool), cfg.RateCacheTTL)
	rateService := fx.NewService(rateSource)

	generator := statements.NewService(ledgerRepo, ledgerRepo, assetsService, rateService, statements.Settings{
		FunctionalCurrency:    cfg.ReportingCurrency,
		MaterialityThreshold:  cfg.ReportingMateriality,
		RoundingPrecision:     cfg.ReportingPrecision,
		AccountingStandard:    cfg.ReportingStandard,
		ExternalAuditRequired: cfg.ExternalAuditRequired,
	}, logger)

	snapshotStore := statements.NewSnapshotRepository(pool)
	snapshotService := statements.NewSnapshotService(snapshotStore, generator, logger)
	statementCache := statementshttp.NewCache(redisClient, cfg.StatementCacheTTL)

	snapshotJob := jobs.NewSnapshotBuildJob(snapshotService, logger, nil)
	warmupJob := jobs.NewStatementsWarmupJob(generator, statementCache, pool, logger, nil)
	integrityJob := jobs.NewLedgerIntegrityJob(generator, pool, logger, nil)

	warmupTask, err := jobs.NewStatementsWarmupTask("active")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	integrityTask, err := jobs.NewLedgerIntegrityTask("")
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStatementSnapshot, Handler: snapshotJob.Handle},
			{Type: jobs.TaskStatementsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

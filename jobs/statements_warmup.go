package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-fin/meridian-fin/internal/jobs"
	"github.com/meridian-fin/meridian-fin/internal/shared"
	"github.com/meridian-fin/meridian-fin/internal/statements"
	statementshttp "github.com/meridian-fin/meridian-fin/internal/statements/http"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// StatementsWarmupJob pre-populates the statement response cache for every
// company that has journal activity, and reaps snapshots stranded in
// IN_PROGRESS by a worker restart.
type StatementsWarmupJob struct {
	Statements *statements.Service
	Cache      *statementshttp.Cache
	Pool       *pgxpool.Pool
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewStatementsWarmupJob wires dependencies for the warmup handler.
func NewStatementsWarmupJob(svc *statements.Service, cache *statementshttp.Cache, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatementsWarmupJob {
	return &StatementsWarmupJob{
		Statements: svc,
		Cache:      cache,
		Pool:       pool,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes statement warmup tasks.
func (j *StatementsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("statements warmup: handler not configured")
	}
	var payload StatementsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.PeriodScope == "" {
		payload.PeriodScope = "active"
	}

	tracker := j.metrics().Track(TaskStatementsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("period_scope", payload.PeriodScope))
	logger.Info("starting statements warmup")

	if reaped, err := j.reapStalledSnapshots(ctx); err != nil {
		logger.Warn("reap stalled snapshots", slog.Any("error", err))
	} else if reaped > 0 {
		logger.Info("reaped stalled snapshots", slog.Int64("count", reaped))
	}

	companies, err := j.fetchCompanies(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load warmup companies", slog.Any("error", err))
		return resultErr
	}
	if len(companies) == 0 {
		logger.Info("no companies discovered for warmup")
		return resultErr
	}

	now := j.now()
	warmed := 0
	for _, companyID := range companies {
		if err := j.warmCompany(ctx, companyID, now); err != nil {
			resultErr = err
			logger.Error("warm company", slog.Int64("company_id", companyID), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed statements warmup", slog.Int("companies", warmed), slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *StatementsWarmupJob) warmCompany(ctx context.Context, companyID int64, now time.Time) error {
	if j.Statements == nil {
		return nil
	}
	// Tighten each company's run with a timeout to avoid long-running jobs.
	companyCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	period, err := statements.PeriodForMonths(shared.MonthCode(now), 1)
	if err != nil {
		return err
	}
	prior, err := statements.PeriodForMonths(shared.MonthCode(now.AddDate(0, -1, 0)), 1)
	if err != nil {
		return err
	}
	req := statements.Request{
		CompanyID: companyID,
		Period:    period,
		Prior:     &prior,
	}
	return j.Cache.Warm(companyCtx, j.Statements, req)
}

func (j *StatementsWarmupJob) fetchCompanies(ctx context.Context) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("statements warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT company_id FROM journal_entries WHERE company_id > 0 ORDER BY company_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]int64, 0)
	for rows.Next() {
		var companyID int64
		if err := rows.Scan(&companyID); err != nil {
			return nil, err
		}
		companies = append(companies, companyID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

// reapStalledSnapshots fails snapshot builds that have sat IN_PROGRESS for
// over an hour, which only happens when a worker died mid-build.
func (j *StatementsWarmupJob) reapStalledSnapshots(ctx context.Context) (int64, error) {
	if j.Pool == nil {
		return 0, nil
	}
	cmd, err := j.Pool.Exec(ctx, `
		UPDATE statement_snapshots
		SET status = 'FAILED', error_message = 'build interrupted by worker restart', updated_at = now()
		WHERE status = 'IN_PROGRESS' AND updated_at < now() - interval '1 hour'`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (j *StatementsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStatementsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskStatementsWarmup))
}

func (j *StatementsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *StatementsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-fin/meridian-fin/internal/jobs"
	"github.com/meridian-fin/meridian-fin/internal/shared"
	"github.com/meridian-fin/meridian-fin/internal/statements"
)

// LedgerIntegrityJob runs a trial balance per company and flags any month
// where posted debits and credits diverge.
type LedgerIntegrityJob struct {
	Statements *statements.Service
	Pool       *pgxpool.Pool
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewLedgerIntegrityJob initialises the integrity sweep handler.
func NewLedgerIntegrityJob(svc *statements.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Statements: svc,
		Pool:       pool,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity sweep.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Statements == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	monthCode := payload.Period
	if monthCode == "" {
		monthCode = shared.MonthCode(start)
	}
	period, err := statements.PeriodForMonths(monthCode, 1)
	if err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLedgerIntegrity)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("period", monthCode))
	logger.Info("starting ledger integrity sweep")

	companies, err := j.fetchCompanies(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load companies", slog.Any("error", err))
		return resultErr
	}

	imbalanced := 0
	for _, companyID := range companies {
		res, err := j.Statements.GenerateTrialBalance(ctx, statements.Request{CompanyID: companyID, Period: period})
		if err != nil {
			resultErr = err
			logger.Error("trial balance", slog.Int64("company_id", companyID), slog.Any("error", err))
			return resultErr
		}
		if res.Data.Balanced {
			continue
		}
		imbalanced++
		difference := res.Data.TotalDebit - res.Data.TotalCredit
		severity := "LOW"
		if math.Abs(difference) >= 1 {
			severity = "HIGH"
		}
		logger.Warn("ledger out of balance",
			slog.Int64("company_id", companyID),
			slog.String("severity", severity),
			slog.Float64("total_debit", res.Data.TotalDebit),
			slog.Float64("total_credit", res.Data.TotalCredit),
			slog.Float64("difference", difference),
		)
		j.metrics().AddImbalances(severity, companyID, 1)
	}

	logger.Info("completed ledger integrity sweep",
		slog.Int("companies", len(companies)),
		slog.Int("imbalanced", imbalanced),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *LedgerIntegrityJob) fetchCompanies(ctx context.Context) ([]int64, error) {
	if j.Pool == nil {
		return nil, errors.New("ledger integrity: pool not configured")
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

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}

func (j *LedgerIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LedgerIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

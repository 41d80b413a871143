package statements

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/meridian-fin/meridian-fin/internal/assets"
	"github.com/meridian-fin/meridian-fin/internal/ledger"
)

// ChartProvider supplies the full chart of accounts.
type ChartProvider interface {
	GetAllAccounts(ctx context.Context) ([]ledger.Account, error)
}

// LedgerProvider supplies posted journal entries. A zero start means "since
// inception"; position windows depend on it.
type LedgerProvider interface {
	GetEntriesForPeriod(ctx context.Context, companyID int64, start, end time.Time) ([]ledger.JournalEntry, error)
}

// AdjustmentProvider supplies derived, non-ledger amounts for a window.
type AdjustmentProvider interface {
	PeriodAdjustments(ctx context.Context, companyID int64, start, end time.Time) (assets.Adjustments, error)
}

// RateProvider supplies the closing FX rate used for presentation conversion.
type RateProvider interface {
	ClosingRate(ctx context.Context, from, to string, asOf time.Time) (float64, error)
}

// Service generates financial statements. It fetches one immutable snapshot
// per call, derives every window from it in memory, and hands the result to
// pure builders; two calls over the same ledger produce identical statements.
type Service struct {
	chart       ChartProvider
	ledger      LedgerProvider
	adjustments AdjustmentProvider
	rates       RateProvider
	formatter   Formatter
	classifier  Classifier
	validator   Validator
	settings    Settings
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs a statement generation service. The adjustment and
// rate providers may be nil: adjustments then contribute nothing and any
// conversion request fails with ErrRateUnavailable.
func NewService(chart ChartProvider, led LedgerProvider, adj AdjustmentProvider, rates RateProvider, settings Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.RoundingPrecision <= 0 {
		settings.RoundingPrecision = 2
	}
	if settings.AccountingStandard == "" {
		settings.AccountingStandard = "IFRS"
	}
	return &Service{
		chart:       chart,
		ledger:      led,
		adjustments: adj,
		rates:       rates,
		formatter:   NewTextFormatter(language.English, settings.RoundingPrecision),
		classifier:  NewClassifier(),
		settings:    settings,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// snapshot is everything one generation call reads. Collaborators are never
// touched again after it is assembled.
type snapshot struct {
	ctx        Context
	accounts   []ledger.Account
	entries    []ledger.JournalEntry
	adj        assets.Adjustments
	priorAdj   assets.Adjustments
	openingAdj assets.Adjustments
	rate       float64
	warnings   []string
}

func (s *Service) fetch(ctx context.Context, req Request) (snapshot, error) {
	if err := req.Validate(); err != nil {
		return snapshot{}, err
	}

	snap := snapshot{rate: 1}
	snap.ctx = Context{
		Current:       req.Period,
		Prior:         req.Prior,
		Currency:      s.settings.FunctionalCurrency,
		Materiality:   s.settings.MaterialityThreshold,
		Precision:     s.settings.RoundingPrecision,
		Standard:      s.settings.AccountingStandard,
		AuditRequired: s.settings.ExternalAuditRequired,
		CompanyID:     req.CompanyID,
		CompanyName:   req.CompanyName,
	}
	if req.MaterialityOverride != nil && *req.MaterialityOverride >= 0 {
		snap.ctx.Materiality = *req.MaterialityOverride
	}

	convert := req.PresentationCurrency != "" && req.PresentationCurrency != s.settings.FunctionalCurrency
	if convert {
		if s.rates == nil {
			return snapshot{}, ErrRateUnavailable
		}
		snap.ctx.Currency = req.PresentationCurrency
	}

	entriesThrough := req.Period.End
	if req.Prior != nil && req.Prior.End.After(entriesThrough) {
		entriesThrough = req.Prior.End
	}
	openingCutoff := req.Period.Start.Add(-time.Nanosecond)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := s.chart.GetAllAccounts(gctx)
		if err != nil {
			return fmt.Errorf("chart of accounts: %w", err)
		}
		snap.accounts = accounts
		return nil
	})
	g.Go(func() error {
		entries, err := s.ledger.GetEntriesForPeriod(gctx, req.CompanyID, time.Time{}, entriesThrough)
		if err != nil {
			return fmt.Errorf("journal entries: %w", err)
		}
		snap.entries = entries
		return nil
	})
	if s.adjustments != nil {
		g.Go(func() error {
			adj, err := s.adjustments.PeriodAdjustments(gctx, req.CompanyID, req.Period.Start, req.Period.End)
			if err != nil {
				return fmt.Errorf("period adjustments: %w", err)
			}
			snap.adj = adj
			return nil
		})
		g.Go(func() error {
			adj, err := s.adjustments.PeriodAdjustments(gctx, req.CompanyID, time.Time{}, openingCutoff)
			if err != nil {
				return fmt.Errorf("opening adjustments: %w", err)
			}
			snap.openingAdj = adj
			return nil
		})
		if req.Prior != nil {
			prior := *req.Prior
			g.Go(func() error {
				adj, err := s.adjustments.PeriodAdjustments(gctx, req.CompanyID, prior.Start, prior.End)
				if err != nil {
					return fmt.Errorf("prior adjustments: %w", err)
				}
				snap.priorAdj = adj
				return nil
			})
		}
	}
	if convert {
		g.Go(func() error {
			rate, err := s.rates.ClosingRate(gctx, s.settings.FunctionalCurrency, req.PresentationCurrency, req.Period.End)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrRateUnavailable, err)
			}
			if rate <= 0 {
				return fmt.Errorf("%w: non-positive rate %f", ErrRateUnavailable, rate)
			}
			snap.rate = rate
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}

	if len(snap.accounts) == 0 {
		return snapshot{}, fmt.Errorf("chart of accounts: %w", ledger.ErrEmptyChart)
	}
	if orphans := OrphanLines(snap.accounts, snap.entries, Through(entriesThrough)); orphans > 0 {
		snap.warnings = append(snap.warnings,
			fmt.Sprintf("%d journal lines reference accounts missing from the chart and were ignored", orphans))
	}
	return snap, nil
}

func (s *Service) calc(snap snapshot) *calc {
	return newCalc(snap.ctx, s.formatter, s.classifier,
		snap.accounts, snap.entries, snap.adj, snap.priorAdj, snap.openingAdj, snap.rate)
}

func (s *Service) metadata(ctx Context, st StatementType) Metadata {
	return Metadata{
		ReportID:    uuid.New(),
		CompanyID:   ctx.CompanyID,
		CompanyName: ctx.CompanyName,
		Statement:   st,
		Period:      ctx.Current,
		Prior:       ctx.Prior,
		Currency:    ctx.Currency,
		Standard:    ctx.Standard,
		PreparedAt:  s.now(),
	}
}

func newResult[T any](s *Service, snap snapshot, st StatementType, data T, findings []Finding, started time.Time) Result[T] {
	res := Result[T]{
		Data:       data,
		Metadata:   s.metadata(snap.ctx, st),
		Validation: findings,
		Warnings:   snap.warnings,
		DurationMS: s.now().Sub(started).Milliseconds(),
	}
	s.logger.Debug("statement generated",
		"statement", st,
		"company_id", snap.ctx.CompanyID,
		"period", snap.ctx.Current.Label(),
		"findings", len(findings),
		"duration_ms", res.DurationMS,
	)
	return res
}

// GenerateProfitLoss builds the statement of profit or loss.
func (s *Service) GenerateProfitLoss(ctx context.Context, req Request) (Result[ProfitLossData], error) {
	started := s.now()
	snap, err := s.fetch(ctx, req)
	if err != nil {
		return Result[ProfitLossData]{}, err
	}
	data := s.calc(snap).buildProfitLoss()
	return newResult(s, snap, StatementTypeProfitLoss, data, s.validator.ProfitLoss(snap.ctx, data), started), nil
}

// GenerateBalanceSheet builds the statement of financial position.
func (s *Service) GenerateBalanceSheet(ctx context.Context, req Request) (Result[BalanceSheetData], error) {
	started := s.now()
	snap, err := s.fetch(ctx, req)
	if err != nil {
		return Result[BalanceSheetData]{}, err
	}
	data := s.calc(snap).buildBalanceSheet()
	return newResult(s, snap, StatementTypeBalanceSheet, data, s.validator.BalanceSheet(snap.ctx, data), started), nil
}

// GenerateCashFlow builds the statement of cash flows using the requested
// method, defaulting to indirect.
func (s *Service) GenerateCashFlow(ctx context.Context, req Request) (Result[CashFlowData], error) {
	started := s.now()
	snap, err := s.fetch(ctx, req)
	if err != nil {
		return Result[CashFlowData]{}, err
	}
	c := s.calc(snap)
	pl := c.buildProfitLoss()
	data := c.buildCashFlow(pl, req.Method)
	return newResult(s, snap, StatementTypeCashFlow, data, s.validator.CashFlow(snap.ctx, data, pl), started), nil
}

// GenerateEquityChanges builds the statement of changes in equity.
func (s *Service) GenerateEquityChanges(ctx context.Context, req Request) (Result[EquityChangesData], error) {
	started := s.now()
	snap, err := s.fetch(ctx, req)
	if err != nil {
		return Result[EquityChangesData]{}, err
	}
	c := s.calc(snap)
	data := c.buildEquityChanges(c.buildProfitLoss())
	return newResult(s, snap, StatementTypeEquityChanges, data, s.validator.EquityChanges(snap.ctx, data), started), nil
}

// GenerateTrialBalance builds the per-account control schedule.
func (s *Service) GenerateTrialBalance(ctx context.Context, req Request) (Result[TrialBalanceData], error) {
	started := s.now()
	snap, err := s.fetch(ctx, req)
	if err != nil {
		return Result[TrialBalanceData]{}, err
	}
	data := s.calc(snap).buildTrialBalance()
	return newResult(s, snap, StatementTypeTrialBalance, data, s.validator.TrialBalance(data), started), nil
}

// GeneratePackage builds the four mandatory statements from one snapshot and
// proves them against each other. A single fetch guarantees every statement
// in the package reads identical ledger data.
func (s *Service) GeneratePackage(ctx context.Context, req Request) (Package, error) {
	started := s.now()
	snap, err := s.fetch(ctx, req)
	if err != nil {
		return Package{}, err
	}
	c := s.calc(snap)
	pl := c.buildProfitLoss()
	bs := c.buildBalanceSheet()
	cf := c.buildCashFlow(pl, req.Method)
	eq := c.buildEquityChanges(pl)

	pkg := Package{
		Metadata:      s.metadata(snap.ctx, StatementTypePackage),
		ProfitLoss:    newResult(s, snap, StatementTypeProfitLoss, pl, s.validator.ProfitLoss(snap.ctx, pl), started),
		BalanceSheet:  newResult(s, snap, StatementTypeBalanceSheet, bs, s.validator.BalanceSheet(snap.ctx, bs), started),
		CashFlow:      newResult(s, snap, StatementTypeCashFlow, cf, s.validator.CashFlow(snap.ctx, cf, pl), started),
		EquityChanges: newResult(s, snap, StatementTypeEquityChanges, eq, s.validator.EquityChanges(snap.ctx, eq), started),
		CrossChecks:   s.validator.CrossChecks(pl, bs, cf, eq),
		DurationMS:    s.now().Sub(started).Milliseconds(),
	}
	s.logger.Info("statement package generated",
		"company_id", snap.ctx.CompanyID,
		"period", snap.ctx.Current.Label(),
		"cross_checks", len(pkg.CrossChecks),
		"duration_ms", pkg.DurationMS,
	)
	return pkg, nil
}

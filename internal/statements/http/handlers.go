package statementshttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/meridian-fin/meridian-fin/internal/ledger"
	"github.com/meridian-fin/meridian-fin/internal/platform/httpx"
	"github.com/meridian-fin/meridian-fin/internal/shared"
	"github.com/meridian-fin/meridian-fin/internal/statements"
)

const generateTimeout = 15 * time.Second

var errBadQuery = errors.New("invalid query parameter")

// StatementService defines the generation contract used by the handler.
type StatementService interface {
	GenerateProfitLoss(ctx context.Context, req statements.Request) (statements.Result[statements.ProfitLossData], error)
	GenerateBalanceSheet(ctx context.Context, req statements.Request) (statements.Result[statements.BalanceSheetData], error)
	GenerateCashFlow(ctx context.Context, req statements.Request) (statements.Result[statements.CashFlowData], error)
	GenerateEquityChanges(ctx context.Context, req statements.Request) (statements.Result[statements.EquityChangesData], error)
	GenerateTrialBalance(ctx context.Context, req statements.Request) (statements.Result[statements.TrialBalanceData], error)
	GeneratePackage(ctx context.Context, req statements.Request) (statements.Package, error)
}

// SnapshotService defines the archive contract used by the handler.
type SnapshotService interface {
	Trigger(ctx context.Context, req statements.SnapshotRequest) (statements.Snapshot, error)
	GetSnapshot(ctx context.Context, id int64) (statements.Snapshot, error)
	ListSnapshots(ctx context.Context, filters statements.SnapshotFilters) ([]statements.Snapshot, int, error)
	LoadPayload(ctx context.Context, id int64) (json.RawMessage, error)
}

// SnapshotEnqueuer hands accepted snapshot requests to the worker queue.
type SnapshotEnqueuer interface {
	EnqueueStatementSnapshot(ctx context.Context, snapshotID int64) (*asynq.TaskInfo, error)
}

// Handler wires the statement API endpoints.
type Handler struct {
	logger    *slog.Logger
	service   StatementService
	snapshots SnapshotService
	cache     *Cache
	jobs      SnapshotEnqueuer
	validator *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs the statements HTTP handler. Cache and jobs client
// may be nil; generation then runs uncached and snapshot builds wait for the
// worker's periodic sweep.
func NewHandler(logger *slog.Logger, service StatementService, snapshots SnapshotService, cache *Cache, jobsClient SnapshotEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		snapshots: snapshots,
		cache:     cache,
		jobs:      jobsClient,
		validator: validator.New(),
		rateLimit: httprate.LimitByIP(10, time.Minute),
	}
}

// MountRoutes registers the statement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profit-loss", h.handleProfitLoss)
	r.Get("/balance-sheet", h.handleBalanceSheet)
	r.Get("/cash-flow", h.handleCashFlow)
	r.Get("/equity-changes", h.handleEquityChanges)
	r.Get("/trial-balance", h.handleTrialBalance)
	r.Get("/package", h.handlePackage)

	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/snapshots", h.handleSnapshotCreate)
	})
	r.Get("/snapshots", h.handleSnapshotList)
	r.Get("/snapshots/{id}", h.handleSnapshotGet)
}

func (h *Handler) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	respondStatement(h, w, r, "profit_loss", h.service.GenerateProfitLoss)
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	respondStatement(h, w, r, "balance_sheet", h.service.GenerateBalanceSheet)
}

func (h *Handler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	respondStatement(h, w, r, "cash_flow", h.service.GenerateCashFlow)
}

func (h *Handler) handleEquityChanges(w http.ResponseWriter, r *http.Request) {
	respondStatement(h, w, r, "equity_changes", h.service.GenerateEquityChanges)
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	respondStatement(h, w, r, "trial_balance", h.service.GenerateTrialBalance)
}

func (h *Handler) handlePackage(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseStatementQuery(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	var pkg statements.Package
	err = h.fetchCached(ctx, "package", req, &pkg, func(ctx context.Context) (interface{}, error) {
		return h.service.GeneratePackage(ctx, req)
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pkg)
}

// respondStatement runs the shared parse/cache/respond pipeline for one
// statement endpoint.
func respondStatement[T any](h *Handler, w http.ResponseWriter, r *http.Request, kind string, gen func(context.Context, statements.Request) (statements.Result[T], error)) {
	req, err := h.parseStatementQuery(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	var res statements.Result[T]
	err = h.fetchCached(ctx, kind, req, &res, func(ctx context.Context) (interface{}, error) {
		return gen(ctx, req)
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// fetchCached resolves one statement response through the version-keyed cache
// with a singleflight guard so concurrent identical requests share one build.
func (h *Handler) fetchCached(ctx context.Context, kind string, req statements.Request, dest any, loader func(context.Context) (interface{}, error)) error {
	key, err := h.cache.BuildKey(ctx, statementKeyParts(kind, req)...)
	if err != nil {
		return err
	}
	start := time.Now()
	missed := false
	raw, err, _ := singleflightBuild(ctx, key, func(ctx context.Context) (interface{}, error) {
		var payload json.RawMessage
		err := h.cache.FetchJSON(ctx, key, &payload, func(ctx context.Context) (interface{}, error) {
			missed = true
			return loader(ctx)
		})
		if err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return err
	}
	period := req.Period.Label()
	if missed {
		recordCacheMiss(kind, req.CompanyID, period)
		observeGenerateDuration(kind, req.CompanyID, period, time.Since(start))
	} else {
		recordCacheHit(kind, req.CompanyID, period)
	}
	return json.Unmarshal(raw.(json.RawMessage), dest)
}

func (h *Handler) handleSnapshotCreate(w http.ResponseWriter, r *http.Request) {
	var body snapshotCreateRequest
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(body); err != nil {
		h.respondError(w, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		h.respondError(w, err)
		return
	}
	snap, err := h.snapshots.Trigger(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if h.jobs != nil {
		if _, err := h.jobs.EnqueueStatementSnapshot(r.Context(), snap.ID); err != nil {
			h.logger.Warn("enqueue statement snapshot", slog.Int64("snapshot_id", snap.ID), slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusAccepted, snapshotFromDomain(snap, false))
}

func (h *Handler) handleSnapshotGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "snapshot id must be numeric")
		return
	}
	snap, err := h.snapshots.GetSnapshot(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snapshotFromDomain(snap, snap.Status == statements.SnapshotReady))
}

func (h *Handler) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseSnapshotFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	snaps, total, err := h.snapshots.ListSnapshots(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	vm := snapshotListVM{
		Items: make([]snapshotVM, 0, len(snaps)),
		Meta:  shared.NewPagination(filters.Page, filters.Limit, total),
	}
	for _, snap := range snaps {
		vm.Items = append(vm.Items, snapshotFromDomain(snap, false))
	}
	httpx.JSON(w, http.StatusOK, vm)
}

func (h *Handler) parseStatementQuery(r *http.Request) (statements.Request, error) {
	q := r.URL.Query()
	sq := statementQuery{
		CompanyName: strings.TrimSpace(q.Get("company_name")),
		Period:      strings.TrimSpace(q.Get("period")),
		Currency:    strings.ToUpper(strings.TrimSpace(q.Get("currency"))),
		Method:      strings.ToLower(strings.TrimSpace(q.Get("method"))),
		Prior:       boolParam(q.Get("prior")),
	}
	if v := q.Get("company"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return statements.Request{}, fmt.Errorf("%w: company", errBadQuery)
		}
		sq.Company = id
	}
	if v := q.Get("months"); v != "" {
		months, err := strconv.Atoi(v)
		if err != nil {
			return statements.Request{}, fmt.Errorf("%w: months", errBadQuery)
		}
		sq.Months = months
	}
	if v := q.Get("materiality"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return statements.Request{}, fmt.Errorf("%w: materiality", errBadQuery)
		}
		sq.Materiality = &m
	}
	if err := h.validator.Struct(sq); err != nil {
		return statements.Request{}, err
	}
	return sq.toRequest()
}

func (h *Handler) parseSnapshotFilters(r *http.Request) (statements.SnapshotFilters, error) {
	q := r.URL.Query()
	filters := statements.SnapshotFilters{
		Statement: statements.StatementType(strings.ToUpper(strings.TrimSpace(q.Get("statement")))),
		Status:    statements.SnapshotStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
	}
	if filters.Statement != "" && !filters.Statement.Valid() {
		return statements.SnapshotFilters{}, fmt.Errorf("%w: %q", statements.ErrUnknownStatement, filters.Statement)
	}
	if v := q.Get("company"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return statements.SnapshotFilters{}, fmt.Errorf("%w: company", errBadQuery)
		}
		filters.CompanyID = id
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return statements.SnapshotFilters{}, fmt.Errorf("%w: page", errBadQuery)
		}
		filters.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return statements.SnapshotFilters{}, fmt.Errorf("%w: limit", errBadQuery)
		}
		filters.Limit = limit
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}
	return filters, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verrs.Error())
	case errors.Is(err, errBadQuery),
		errors.Is(err, statements.ErrCompanyRequired),
		errors.Is(err, statements.ErrInvalidPeriod),
		errors.Is(err, statements.ErrUnknownMethod),
		errors.Is(err, statements.ErrUnknownStatement):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, statements.ErrSnapshotNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, statements.ErrSnapshotExists):
		httpx.Problem(w, http.StatusConflict, "Already Requested", err.Error())
	case errors.Is(err, statements.ErrRateUnavailable),
		errors.Is(err, ledger.ErrEmptyChart):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Cannot Generate", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "statement generation timed out")
	default:
		h.logger.Error("statements api", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func boolParam(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

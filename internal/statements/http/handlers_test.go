package statementshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-fin/meridian-fin/internal/statements"
	_ "github.com/meridian-fin/meridian-fin/testing"
)

type stubGenerator struct {
	calls   int
	lastReq statements.Request
	profit  float64
	err     error
}

func (s *stubGenerator) record(req statements.Request) error {
	s.calls++
	s.lastReq = req
	return s.err
}

func (s *stubGenerator) metadata(req statements.Request, st statements.StatementType) statements.Metadata {
	return statements.Metadata{
		CompanyID:   req.CompanyID,
		CompanyName: req.CompanyName,
		Statement:   st,
		Period:      req.Period,
		Prior:       req.Prior,
		Currency:    "EUR",
		Standard:    "IFRS",
		PreparedAt:  time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC),
	}
}

func (s *stubGenerator) GenerateProfitLoss(ctx context.Context, req statements.Request) (statements.Result[statements.ProfitLossData], error) {
	if err := s.record(req); err != nil {
		return statements.Result[statements.ProfitLossData]{}, err
	}
	return statements.Result[statements.ProfitLossData]{
		Data:     statements.ProfitLossData{ProfitForPeriod: statements.Metric{Label: "Profit for the period", Amount: s.profit}},
		Metadata: s.metadata(req, statements.StatementTypeProfitLoss),
	}, nil
}

func (s *stubGenerator) GenerateBalanceSheet(ctx context.Context, req statements.Request) (statements.Result[statements.BalanceSheetData], error) {
	if err := s.record(req); err != nil {
		return statements.Result[statements.BalanceSheetData]{}, err
	}
	return statements.Result[statements.BalanceSheetData]{
		Data:     statements.BalanceSheetData{TotalAssets: statements.Metric{Label: "Total assets", Amount: 134000}},
		Metadata: s.metadata(req, statements.StatementTypeBalanceSheet),
	}, nil
}

func (s *stubGenerator) GenerateCashFlow(ctx context.Context, req statements.Request) (statements.Result[statements.CashFlowData], error) {
	if err := s.record(req); err != nil {
		return statements.Result[statements.CashFlowData]{}, err
	}
	return statements.Result[statements.CashFlowData]{
		Metadata: s.metadata(req, statements.StatementTypeCashFlow),
	}, nil
}

func (s *stubGenerator) GenerateEquityChanges(ctx context.Context, req statements.Request) (statements.Result[statements.EquityChangesData], error) {
	if err := s.record(req); err != nil {
		return statements.Result[statements.EquityChangesData]{}, err
	}
	return statements.Result[statements.EquityChangesData]{
		Metadata: s.metadata(req, statements.StatementTypeEquityChanges),
	}, nil
}

func (s *stubGenerator) GenerateTrialBalance(ctx context.Context, req statements.Request) (statements.Result[statements.TrialBalanceData], error) {
	if err := s.record(req); err != nil {
		return statements.Result[statements.TrialBalanceData]{}, err
	}
	return statements.Result[statements.TrialBalanceData]{
		Data:     statements.TrialBalanceData{Balanced: true},
		Metadata: s.metadata(req, statements.StatementTypeTrialBalance),
	}, nil
}

func (s *stubGenerator) GeneratePackage(ctx context.Context, req statements.Request) (statements.Package, error) {
	if err := s.record(req); err != nil {
		return statements.Package{}, err
	}
	return statements.Package{Metadata: s.metadata(req, statements.StatementTypePackage)}, nil
}

type stubArchive struct {
	snap        statements.Snapshot
	list        []statements.Snapshot
	total       int
	lastTrigger statements.SnapshotRequest
	lastFilters statements.SnapshotFilters
	triggerErr  error
	getErr      error
}

func (s *stubArchive) Trigger(ctx context.Context, req statements.SnapshotRequest) (statements.Snapshot, error) {
	s.lastTrigger = req
	if s.triggerErr != nil {
		return statements.Snapshot{}, s.triggerErr
	}
	return s.snap, nil
}

func (s *stubArchive) GetSnapshot(ctx context.Context, id int64) (statements.Snapshot, error) {
	if s.getErr != nil {
		return statements.Snapshot{}, s.getErr
	}
	return s.snap, nil
}

func (s *stubArchive) ListSnapshots(ctx context.Context, filters statements.SnapshotFilters) ([]statements.Snapshot, int, error) {
	s.lastFilters = filters
	return s.list, s.total, nil
}

func (s *stubArchive) LoadPayload(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.snap.Payload, nil
}

type stubEnqueuer struct {
	ids []int64
	err error
}

func (s *stubEnqueuer) EnqueueStatementSnapshot(ctx context.Context, snapshotID int64) (*asynq.TaskInfo, error) {
	s.ids = append(s.ids, snapshotID)
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{}, nil
}

type testRig struct {
	router   chi.Router
	gen      *stubGenerator
	archive  *stubArchive
	enqueuer *stubEnqueuer
	cache    *Cache
}

func newTestRig(t *testing.T, withRedis bool) (*testRig, func()) {
	t.Helper()
	gen := &stubGenerator{profit: 45000}
	archive := &stubArchive{}
	enqueuer := &stubEnqueuer{}

	var cache *Cache
	cleanup := func() {}
	if withRedis {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cache = NewCache(client, time.Minute)
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
	}

	handler := NewHandler(nil, gen, archive, cache, enqueuer)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return &testRig{router: router, gen: gen, archive: archive, enqueuer: enqueuer, cache: cache}, cleanup
}

func (rig *testRig) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	rig.router.ServeHTTP(rr, req)
	return rr
}

func TestProfitLossEndpoint(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	rr := rig.get(t, "/profit-loss?company=1&period=2025-06")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res statements.Result[statements.ProfitLossData]
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Data.ProfitForPeriod.Amount != 45000 {
		t.Fatalf("expected profit 45000, got %.2f", res.Data.ProfitForPeriod.Amount)
	}
	if rig.gen.lastReq.CompanyID != 1 {
		t.Fatalf("expected company 1, got %d", rig.gen.lastReq.CompanyID)
	}
	if got := rig.gen.lastReq.Period.Label(); got != "2025-06" {
		t.Fatalf("expected period 2025-06, got %s", got)
	}
}

func TestStatementQueryValidation(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	cases := []string{
		"/profit-loss?period=2025-06",                          // missing company
		"/profit-loss?company=abc&period=2025-06",              // non-numeric company
		"/profit-loss?company=1",                               // missing period
		"/profit-loss?company=1&period=junk",                   // unparseable period
		"/profit-loss?company=1&period=2025-06&months=120",     // span too long
		"/profit-loss?company=1&period=2025-06&method=weird",   // unknown method
		"/profit-loss?company=1&period=2025-06&currency=EURO",  // bad currency code
		"/profit-loss?company=1&period=2025-06&materiality=-5", // negative threshold
	}
	for _, target := range cases {
		rr := rig.get(t, target)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/problem+json") {
			t.Fatalf("%s: expected problem+json, got %s", target, ct)
		}
	}
	if rig.gen.calls != 0 {
		t.Fatalf("expected no generation for invalid queries, got %d", rig.gen.calls)
	}
}

func TestCashFlowQuerySpansWindows(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	rr := rig.get(t, "/cash-flow?company=2&period=2025-06&months=6&prior=true&method=direct")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	req := rig.gen.lastReq
	if req.Method != statements.MethodDirect {
		t.Fatalf("expected direct method, got %q", req.Method)
	}
	if got := req.Period.Label(); got != "2025-01..2025-06" {
		t.Fatalf("unexpected window %s", got)
	}
	if req.Prior == nil {
		t.Fatalf("expected a prior window")
	}
	if got := req.Prior.Label(); got != "2024-07..2024-12" {
		t.Fatalf("unexpected prior window %s", got)
	}
}

func TestStatementResponsesCached(t *testing.T) {
	rig, cleanup := newTestRig(t, true)
	defer cleanup()

	for i := 0; i < 2; i++ {
		rr := rig.get(t, "/balance-sheet?company=1&period=2025-06")
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
	if rig.gen.calls != 1 {
		t.Fatalf("expected one generation behind the cache, got %d", rig.gen.calls)
	}

	if err := rig.cache.Bump(context.Background()); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	rr := rig.get(t, "/balance-sheet?company=1&period=2025-06")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 after bump, got %d", rr.Code)
	}
	if rig.gen.calls != 2 {
		t.Fatalf("expected regeneration after bump, got %d calls", rig.gen.calls)
	}
}

func TestGenerateErrorsMapToProblems(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	rig.gen.err = statements.ErrRateUnavailable
	rr := rig.get(t, "/trial-balance?company=1&period=2025-06&currency=USD")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing rate, got %d", rr.Code)
	}
	var problem struct {
		Title  string `json:"title"`
		Status int    `json:"status"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if problem.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected problem status 422, got %d", problem.Status)
	}
}

func TestPackageEndpoint(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	rr := rig.get(t, "/package?company=3&period=2025-06&prior=true")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var pkg statements.Package
	if err := json.Unmarshal(rr.Body.Bytes(), &pkg); err != nil {
		t.Fatalf("decode package: %v", err)
	}
	if pkg.Metadata.CompanyID != 3 {
		t.Fatalf("expected company 3, got %d", pkg.Metadata.CompanyID)
	}
	if pkg.Metadata.Statement != statements.StatementTypePackage {
		t.Fatalf("unexpected statement type %s", pkg.Metadata.Statement)
	}
}

func TestSnapshotCreateAccepted(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	rig.archive.snap = statements.Snapshot{
		ID:        11,
		CompanyID: 1,
		Statement: statements.StatementTypePackage,
		Status:    statements.SnapshotPending,
	}
	body := `{"company_id":1,"statement":"PACKAGE","period":"2025-06","prior":true}`
	req := httptest.NewRequest(http.MethodPost, "/snapshots", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	rig.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	if rig.archive.lastTrigger.CompanyID != 1 || rig.archive.lastTrigger.Statement != statements.StatementTypePackage {
		t.Fatalf("unexpected trigger request %+v", rig.archive.lastTrigger)
	}
	if rig.archive.lastTrigger.Method != statements.MethodIndirect {
		t.Fatalf("expected default indirect method, got %q", rig.archive.lastTrigger.Method)
	}
	if len(rig.enqueuer.ids) != 1 || rig.enqueuer.ids[0] != 11 {
		t.Fatalf("expected snapshot 11 enqueued, got %v", rig.enqueuer.ids)
	}
	var vm snapshotVM
	if err := json.Unmarshal(rr.Body.Bytes(), &vm); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if vm.Status != string(statements.SnapshotPending) {
		t.Fatalf("expected PENDING, got %s", vm.Status)
	}
	if len(vm.Payload) != 0 {
		t.Fatalf("payload must not be returned on create")
	}
}

func TestSnapshotCreateRejectsUnknownStatement(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	body := `{"company_id":1,"statement":"WEEKLY_FLASH","period":"2025-06"}`
	req := httptest.NewRequest(http.MethodPost, "/snapshots", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	rig.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(rig.enqueuer.ids) != 0 {
		t.Fatalf("nothing should be enqueued for invalid bodies")
	}
}

func TestSnapshotCreateConflict(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	rig.archive.triggerErr = statements.ErrSnapshotExists
	body := `{"company_id":1,"statement":"PACKAGE","period":"2025-06"}`
	req := httptest.NewRequest(http.MethodPost, "/snapshots", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	rig.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestSnapshotGetMapsNotFound(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	rig.archive.getErr = statements.ErrSnapshotNotFound
	rr := rig.get(t, "/snapshots/42")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = rig.get(t, "/snapshots/abc")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rr.Code)
	}
}

func TestSnapshotGetPayloadOnlyWhenReady(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	payload := json.RawMessage(`{"metadata":{"company_id":1}}`)
	rig.archive.snap = statements.Snapshot{
		ID:        7,
		CompanyID: 1,
		Statement: statements.StatementTypePackage,
		Status:    statements.SnapshotInProgress,
		Payload:   payload,
	}
	rr := rig.get(t, "/snapshots/7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var vm snapshotVM
	if err := json.Unmarshal(rr.Body.Bytes(), &vm); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(vm.Payload) != 0 {
		t.Fatalf("payload must be withheld while building")
	}

	rig.archive.snap.Status = statements.SnapshotReady
	rr = rig.get(t, "/snapshots/7")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	vm = snapshotVM{}
	if err := json.Unmarshal(rr.Body.Bytes(), &vm); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(vm.Payload) == 0 {
		t.Fatalf("expected payload once READY")
	}
}

func TestSnapshotListPassesFilters(t *testing.T) {
	rig, cleanup := newTestRig(t, false)
	defer cleanup()

	rig.archive.list = []statements.Snapshot{{ID: 1, Status: statements.SnapshotReady, Statement: statements.StatementTypePackage}}
	rig.archive.total = 9
	rr := rig.get(t, "/snapshots?company=3&statement=PACKAGE&status=READY&page=2&limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	f := rig.archive.lastFilters
	if f.CompanyID != 3 || f.Statement != statements.StatementTypePackage || f.Status != statements.SnapshotReady {
		t.Fatalf("unexpected filters %+v", f)
	}
	if f.Page != 2 || f.Limit != 5 {
		t.Fatalf("unexpected paging %+v", f)
	}
	var vm snapshotListVM
	if err := json.Unmarshal(rr.Body.Bytes(), &vm); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if vm.Meta.Total != 9 || len(vm.Items) != 1 {
		t.Fatalf("unexpected list payload %+v", vm)
	}
	if vm.Meta.Page != 2 || vm.Meta.PerPage != 5 || vm.Meta.TotalPages != 2 {
		t.Fatalf("unexpected paging meta %+v", vm.Meta)
	}

	rr = rig.get(t, "/snapshots?statement=WEEKLY")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown statement filter, got %d", rr.Code)
	}
}

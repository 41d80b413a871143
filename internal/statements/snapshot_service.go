package statements

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// SnapshotStore persists archive records and payloads.
type SnapshotStore interface {
	Insert(ctx context.Context, req SnapshotRequest) (Snapshot, error)
	Get(ctx context.Context, id int64) (Snapshot, error)
	List(ctx context.Context, filters SnapshotFilters) ([]Snapshot, int, error)
	UpdateStatus(ctx context.Context, id int64, status SnapshotStatus) error
	SavePayload(ctx context.Context, id int64, payload []byte, errMsg string) error
	LoadPayload(ctx context.Context, id int64) (json.RawMessage, error)
}

// SnapshotService coordinates archive triggers and builds. Triggering only
// enqueues a PENDING record; the build itself runs in the background worker.
type SnapshotService struct {
	store  SnapshotStore
	gen    *Service
	logger *slog.Logger
}

// NewSnapshotService constructs the archive service around a generation
// service and a store.
func NewSnapshotService(store SnapshotStore, gen *Service, logger *slog.Logger) *SnapshotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotService{store: store, gen: gen, logger: logger}
}

// Trigger validates and enqueues an archive build.
func (s *SnapshotService) Trigger(ctx context.Context, req SnapshotRequest) (Snapshot, error) {
	if err := req.Validate(); err != nil {
		return Snapshot{}, err
	}
	snap, err := s.store.Insert(ctx, req)
	if err != nil {
		return Snapshot{}, err
	}
	s.logger.Info("statement snapshot queued",
		"snapshot_id", snap.ID,
		"company_id", snap.CompanyID,
		"statement", snap.Statement,
		"period", snap.Period.Label(),
	)
	return snap, nil
}

// GetSnapshot returns archive metadata by id.
func (s *SnapshotService) GetSnapshot(ctx context.Context, id int64) (Snapshot, error) {
	return s.store.Get(ctx, id)
}

// ListSnapshots fetches recent archive records.
func (s *SnapshotService) ListSnapshots(ctx context.Context, filters SnapshotFilters) ([]Snapshot, int, error) {
	return s.store.List(ctx, filters)
}

// LoadPayload returns a previously generated archive body.
func (s *SnapshotService) LoadPayload(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.store.LoadPayload(ctx, id)
}

// Process builds the archive payload for one snapshot. Failures are recorded
// on the record and returned so the job runner can decide about retries.
func (s *SnapshotService) Process(ctx context.Context, id int64) error {
	snap, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.UpdateStatus(ctx, snap.ID, SnapshotInProgress); err != nil {
		return err
	}
	payload, err := s.build(ctx, snap)
	if err != nil {
		_ = s.store.SavePayload(ctx, snap.ID, nil, err.Error())
		_ = s.store.UpdateStatus(ctx, snap.ID, SnapshotFailed)
		s.logger.Error("statement snapshot failed", "snapshot_id", snap.ID, "error", err)
		return err
	}
	if err := s.store.SavePayload(ctx, snap.ID, payload, ""); err != nil {
		_ = s.store.UpdateStatus(ctx, snap.ID, SnapshotFailed)
		return err
	}
	if err := s.store.UpdateStatus(ctx, snap.ID, SnapshotReady); err != nil {
		return err
	}
	s.logger.Info("statement snapshot ready",
		"snapshot_id", snap.ID,
		"statement", snap.Statement,
		"bytes", len(payload),
	)
	return nil
}

func (s *SnapshotService) build(ctx context.Context, snap Snapshot) ([]byte, error) {
	req := Request{
		CompanyID:   snap.CompanyID,
		CompanyName: snap.CompanyName,
		Period:      snap.Period,
		Prior:       snap.Prior,
		Method:      snap.Method,
	}
	var out any
	var err error
	switch snap.Statement {
	case StatementTypeProfitLoss:
		out, err = s.gen.GenerateProfitLoss(ctx, req)
	case StatementTypeBalanceSheet:
		out, err = s.gen.GenerateBalanceSheet(ctx, req)
	case StatementTypeCashFlow:
		out, err = s.gen.GenerateCashFlow(ctx, req)
	case StatementTypeEquityChanges:
		out, err = s.gen.GenerateEquityChanges(ctx, req)
	case StatementTypeTrialBalance:
		out, err = s.gen.GenerateTrialBalance(ctx, req)
	case StatementTypePackage:
		out, err = s.gen.GeneratePackage(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatement, snap.Statement)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

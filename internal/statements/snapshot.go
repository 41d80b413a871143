package statements

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SnapshotStatus enumerates the archive lifecycle values.
type SnapshotStatus string

const (
	// SnapshotPending indicates the build is queued.
	SnapshotPending SnapshotStatus = "PENDING"
	// SnapshotInProgress indicates the build is executing.
	SnapshotInProgress SnapshotStatus = "IN_PROGRESS"
	// SnapshotReady indicates the payload can be served.
	SnapshotReady SnapshotStatus = "READY"
	// SnapshotFailed indicates the build errored.
	SnapshotFailed SnapshotStatus = "FAILED"
)

// Snapshot is one persisted statement archive. Once READY the payload is
// immutable: regenerating the same scope requires a new snapshot.
type Snapshot struct {
	ID          int64
	CompanyID   int64
	CompanyName string
	Statement   StatementType
	Period      Period
	Prior       *Period
	Method      CashFlowMethod
	Status      SnapshotStatus
	Error       string
	Payload     json.RawMessage
	RequestedBy int64
	GeneratedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SnapshotRequest captures a trigger for an archive build.
type SnapshotRequest struct {
	CompanyID   int64
	CompanyName string
	Statement   StatementType
	Period      Period
	Prior       *Period
	Method      CashFlowMethod
	RequestedBy int64
}

// Validate ensures the request scopes a buildable archive.
func (r SnapshotRequest) Validate() error {
	if r.CompanyID <= 0 {
		return ErrCompanyRequired
	}
	if !r.Statement.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatement, r.Statement)
	}
	if err := r.Period.Validate(); err != nil {
		return err
	}
	if r.Prior != nil {
		if err := r.Prior.Validate(); err != nil {
			return fmt.Errorf("prior period: %w", err)
		}
	}
	if r.Method != "" && !r.Method.Valid() {
		return ErrUnknownMethod
	}
	return nil
}

// SnapshotFilters narrows and pages snapshot listings.
type SnapshotFilters struct {
	CompanyID int64
	Statement StatementType
	Status    SnapshotStatus
	Page      int
	Limit     int
}

var (
	// ErrSnapshotNotFound occurs when a snapshot id resolves to nothing.
	ErrSnapshotNotFound = errors.New("statements: snapshot not found")
	// ErrSnapshotExists occurs when the same scope was already requested.
	ErrSnapshotExists = errors.New("statements: snapshot already requested")
	// ErrUnknownStatement occurs when a snapshot names no producible statement.
	ErrUnknownStatement = errors.New("statements: unknown statement type")
)

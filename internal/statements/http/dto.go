package statementshttp

import (
	"encoding/json"
	"time"

	"github.com/meridian-fin/meridian-fin/internal/shared"
	"github.com/meridian-fin/meridian-fin/internal/statements"
)

// statementQuery captures the statement endpoints' query string.
type statementQuery struct {
	Company     int64    `validate:"required,gt=0"`
	CompanyName string   `validate:"omitempty,max=200"`
	Period      string   `validate:"required"`
	Months      int      `validate:"gte=0,lte=60"`
	Prior       bool     `validate:"-"`
	Currency    string   `validate:"omitempty,len=3,alpha"`
	Method      string   `validate:"omitempty,oneof=direct indirect"`
	Materiality *float64 `validate:"omitempty,gte=0"`
}

func (q statementQuery) toRequest() (statements.Request, error) {
	period, err := statements.PeriodForMonths(q.Period, q.Months)
	if err != nil {
		return statements.Request{}, err
	}
	req := statements.Request{
		CompanyID:            q.Company,
		CompanyName:          q.CompanyName,
		Period:               period,
		Method:               statements.CashFlowMethod(q.Method),
		PresentationCurrency: q.Currency,
		MaterialityOverride:  q.Materiality,
	}
	if q.Prior {
		prior, err := priorWindow(period, q.Months)
		if err != nil {
			return statements.Request{}, err
		}
		req.Prior = &prior
	}
	return req, nil
}

// priorWindow derives the comparative window of the same length ending the
// month before the current one starts.
func priorWindow(period statements.Period, months int) (statements.Period, error) {
	if months < 1 {
		months = 1
	}
	endCode := shared.MonthCode(period.Start.AddDate(0, -1, 0))
	return statements.PeriodForMonths(endCode, months)
}

// snapshotCreateRequest is the POST /snapshots body.
type snapshotCreateRequest struct {
	CompanyID   int64  `json:"company_id" validate:"required,gt=0"`
	CompanyName string `json:"company_name" validate:"omitempty,max=200"`
	Statement   string `json:"statement" validate:"required,oneof=PROFIT_LOSS BALANCE_SHEET CASH_FLOW EQUITY_CHANGES TRIAL_BALANCE PACKAGE"`
	Period      string `json:"period" validate:"required"`
	Months      int    `json:"months" validate:"gte=0,lte=60"`
	Prior       bool   `json:"prior"`
	Method      string `json:"method" validate:"omitempty,oneof=direct indirect"`
	RequestedBy int64  `json:"requested_by" validate:"omitempty,gt=0"`
}

func (b snapshotCreateRequest) toRequest() (statements.SnapshotRequest, error) {
	period, err := statements.PeriodForMonths(b.Period, b.Months)
	if err != nil {
		return statements.SnapshotRequest{}, err
	}
	method := statements.CashFlowMethod(b.Method)
	if method == "" {
		method = statements.MethodIndirect
	}
	req := statements.SnapshotRequest{
		CompanyID:   b.CompanyID,
		CompanyName: b.CompanyName,
		Statement:   statements.StatementType(b.Statement),
		Period:      period,
		Method:      method,
		RequestedBy: b.RequestedBy,
	}
	if b.Prior {
		prior, err := priorWindow(period, b.Months)
		if err != nil {
			return statements.SnapshotRequest{}, err
		}
		req.Prior = &prior
	}
	return req, nil
}

// snapshotVM is the archive record as served over the API.
type snapshotVM struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"company_id"`
	CompanyName string          `json:"company_name,omitempty"`
	Statement   string          `json:"statement"`
	Period      string          `json:"period"`
	Prior       string          `json:"prior,omitempty"`
	Method      string          `json:"method,omitempty"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	RequestedBy int64           `json:"requested_by,omitempty"`
	GeneratedAt *time.Time      `json:"generated_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func snapshotFromDomain(snap statements.Snapshot, includePayload bool) snapshotVM {
	vm := snapshotVM{
		ID:          snap.ID,
		CompanyID:   snap.CompanyID,
		CompanyName: snap.CompanyName,
		Statement:   string(snap.Statement),
		Period:      snap.Period.Label(),
		Method:      string(snap.Method),
		Status:      string(snap.Status),
		Error:       snap.Error,
		RequestedBy: snap.RequestedBy,
		GeneratedAt: snap.GeneratedAt,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
	if snap.Prior != nil {
		vm.Prior = snap.Prior.Label()
	}
	if includePayload {
		vm.Payload = snap.Payload
	}
	return vm
}

// snapshotListVM pages archive records.
type snapshotListVM struct {
	Items []snapshotVM      `json:"items"`
	Meta  shared.Pagination `json:"meta"`
}

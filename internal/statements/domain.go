package statements

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-fin/meridian-fin/internal/shared"
)

// StatementType enumerates the statements the engine produces.
type StatementType string

const (
	StatementTypeProfitLoss    StatementType = "PROFIT_LOSS"
	StatementTypeBalanceSheet  StatementType = "BALANCE_SHEET"
	StatementTypeCashFlow      StatementType = "CASH_FLOW"
	StatementTypeEquityChanges StatementType = "EQUITY_CHANGES"
	StatementTypeTrialBalance  StatementType = "TRIAL_BALANCE"
	StatementTypePackage       StatementType = "PACKAGE"
)

// CashFlowMethod selects the operating-activities presentation.
type CashFlowMethod string

const (
	MethodIndirect CashFlowMethod = "indirect"
	MethodDirect   CashFlowMethod = "direct"
)

// Valid reports whether the method is one of the two presentations.
func (m CashFlowMethod) Valid() bool {
	return m == MethodIndirect || m == MethodDirect
}

// Valid reports whether the type names a statement the engine produces.
func (t StatementType) Valid() bool {
	switch t {
	case StatementTypeProfitLoss, StatementTypeBalanceSheet, StatementTypeCashFlow,
		StatementTypeEquityChanges, StatementTypeTrialBalance, StatementTypePackage:
		return true
	}
	return false
}

// Period is a reporting window, inclusive on both ends. A zero Start means
// "since inception" and is used for position windows.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodForMonths builds a period ending with the month of the given code and
// spanning the requested number of months.
func PeriodForMonths(endCode string, months int) (Period, error) {
	end, err := shared.ParseMonth(endCode)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, endCode)
	}
	if months < 1 {
		months = 1
	}
	start := shared.MonthStart(end).AddDate(0, -(months - 1), 0)
	return Period{Start: start, End: shared.MonthEnd(end)}, nil
}

// Through builds a position window covering everything up to end.
func Through(end time.Time) Period {
	return Period{End: end}
}

// Validate checks the window ordering.
func (p Period) Validate() error {
	if p.End.IsZero() {
		return ErrInvalidPeriod
	}
	if !p.Start.IsZero() && p.Start.After(p.End) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains reports whether d lies inside the window.
func (p Period) Contains(d time.Time) bool {
	if d.After(p.End) {
		return false
	}
	return p.Start.IsZero() || !d.Before(p.Start)
}

// OpeningCutoff is the position window strictly before the period start.
func (p Period) OpeningCutoff() Period {
	return Period{End: p.Start.Add(-time.Nanosecond)}
}

// Label renders the window as month codes for logs and metadata.
func (p Period) Label() string {
	from := shared.MonthCode(p.Start)
	to := shared.MonthCode(p.End)
	if from == to {
		return to
	}
	return from + ".." + to
}

// ParsePeriodLabel is the inverse of Label: it accepts a single month code
// or a "from..to" span and rebuilds the full-month window.
func ParsePeriodLabel(label string) (Period, error) {
	from, to, spanned := strings.Cut(label, "..")
	if !spanned {
		to = from
	}
	start, err := shared.ParseMonth(from)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	end, err := shared.ParseMonth(to)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, label)
	}
	p := Period{Start: shared.MonthStart(start), End: shared.MonthEnd(end)}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Settings carries company-level reporting configuration.
type Settings struct {
	FunctionalCurrency    string
	MaterialityThreshold  float64
	RoundingPrecision     int32
	ConsolidationRequired bool
	AccountingStandard    string
	ExternalAuditRequired bool
}

// Context is the immutable per-call calculation context. It is assembled
// once per generation call and shared by every builder in the cascade.
type Context struct {
	Current       Period
	Prior         *Period
	Currency      string
	Materiality   float64
	Precision     int32
	Standard      string
	AuditRequired bool
	CompanyID     int64
	CompanyName   string
}

// HasPrior reports whether a comparative period is present.
func (c Context) HasPrior() bool {
	return c.Prior != nil
}

// Item is one statement line.
type Item struct {
	Code        string   `json:"code,omitempty"`
	Name        string   `json:"name"`
	Current     float64  `json:"current"`
	Prior       *float64 `json:"prior,omitempty"`
	Variance    *float64 `json:"variance,omitempty"`
	VariancePct *float64 `json:"variance_pct,omitempty"`
	CurrentFmt  string   `json:"current_fmt"`
	PriorFmt    string   `json:"prior_fmt,omitempty"`
	Level       int      `json:"level"`
	IFRSRef     string   `json:"ifrs_ref,omitempty"`
	Material    bool     `json:"material"`
}

// Section groups items under a statement heading. Total always includes
// sub-materiality balances even though their items are suppressed.
type Section struct {
	Name        string   `json:"name"`
	Items       []Item   `json:"items"`
	Total       float64  `json:"total"`
	PriorTotal  *float64 `json:"prior_total,omitempty"`
	Variance    *float64 `json:"variance,omitempty"`
	VariancePct *float64 `json:"variance_pct,omitempty"`
	TotalFmt    string   `json:"total_fmt"`
}

// Metric is a derived statement figure such as gross profit or total assets.
type Metric struct {
	Label       string   `json:"label"`
	Amount      float64  `json:"amount"`
	Prior       *float64 `json:"prior,omitempty"`
	Variance    *float64 `json:"variance,omitempty"`
	VariancePct *float64 `json:"variance_pct,omitempty"`
	MarginPct   float64  `json:"margin_pct"`
	AmountFmt   string   `json:"amount_fmt"`
}

// Severity classifies validation findings.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is a non-fatal validation observation. Findings never abort
// generation and never mutate statement data.
type Finding struct {
	Statement  StatementType `json:"statement"`
	Rule       string        `json:"rule"`
	Severity   Severity      `json:"severity"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
	IFRSRef    string        `json:"ifrs_ref,omitempty"`
}

// Metadata identifies one generated statement.
type Metadata struct {
	ReportID    uuid.UUID     `json:"report_id"`
	CompanyID   int64         `json:"company_id"`
	CompanyName string        `json:"company_name"`
	Statement   StatementType `json:"statement"`
	Period      Period        `json:"period"`
	Prior       *Period       `json:"prior,omitempty"`
	Currency    string        `json:"currency"`
	Standard    string        `json:"standard"`
	PreparedAt  time.Time     `json:"prepared_at"`
}

// Result wraps one generated statement with its metadata and findings.
type Result[T any] struct {
	Data       T         `json:"data"`
	Metadata   Metadata  `json:"metadata"`
	Validation []Finding `json:"validation"`
	Warnings   []string  `json:"warnings,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// ProfitLossData is the statement of profit or loss.
type ProfitLossData struct {
	Revenue           Section `json:"revenue"`
	CostOfSales       Section `json:"cost_of_sales"`
	OperatingExpenses Section `json:"operating_expenses"`
	FinanceIncome     Section `json:"finance_income"`
	FinanceCosts      Section `json:"finance_costs"`
	TaxExpense        Section `json:"tax_expense"`
	GrossProfit       Metric  `json:"gross_profit"`
	OperatingProfit   Metric  `json:"operating_profit"`
	ProfitBeforeTax   Metric  `json:"profit_before_tax"`
	ProfitForPeriod   Metric  `json:"profit_for_period"`
}

// BalanceSheetData is the statement of financial position.
type BalanceSheetData struct {
	CurrentAssets             Section `json:"current_assets"`
	NonCurrentAssets          Section `json:"non_current_assets"`
	CurrentLiabilities        Section `json:"current_liabilities"`
	NonCurrentLiabilities     Section `json:"non_current_liabilities"`
	Equity                    Section `json:"equity"`
	TotalAssets               Metric  `json:"total_assets"`
	TotalLiabilities          Metric  `json:"total_liabilities"`
	TotalEquity               Metric  `json:"total_equity"`
	TotalLiabilitiesAndEquity Metric  `json:"total_liabilities_and_equity"`
	CashOpening               float64 `json:"cash_opening"`
	CashClosing               float64 `json:"cash_closing"`
}

// CashReconciliation records the cash-flow agreement check.
type CashReconciliation struct {
	NetCashFlow  float64 `json:"net_cash_flow"`
	OpeningCash  float64 `json:"opening_cash"`
	ClosingCash  float64 `json:"closing_cash"`
	CashMovement float64 `json:"cash_movement"`
	Difference   float64 `json:"difference"`
	Reconciled   bool    `json:"reconciled"`
}

// CashFlowData is the statement of cash flows.
type CashFlowData struct {
	Method         CashFlowMethod     `json:"method"`
	Operating      Section            `json:"operating"`
	Investing      Section            `json:"investing"`
	Financing      Section            `json:"financing"`
	NetCashFlow    Metric             `json:"net_cash_flow"`
	OpeningCash    float64            `json:"opening_cash"`
	ClosingCash    float64            `json:"closing_cash"`
	Reconciliation CashReconciliation `json:"reconciliation"`
}

// EquityComponent is one column of the statement of changes in equity.
type EquityComponent struct {
	Code              string  `json:"code,omitempty"`
	Name              string  `json:"name"`
	IFRSRef           string  `json:"ifrs_ref,omitempty"`
	Opening           float64 `json:"opening"`
	Profit            float64 `json:"profit"`
	OCI               float64 `json:"oci"`
	Dividends         float64 `json:"dividends"`
	ShareTransactions float64 `json:"share_transactions"`
	Other             float64 `json:"other"`
	Closing           float64 `json:"closing"`
	ClosingFmt        string  `json:"closing_fmt"`
}

// EquityChangesData is the statement of changes in equity.
type EquityChangesData struct {
	Components []EquityComponent `json:"components"`
	Total      EquityComponent   `json:"total"`
}

// TrialBalanceRow is one account line of the trial balance.
type TrialBalanceRow struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Opening float64 `json:"opening"`
	Debit   float64 `json:"debit"`
	Credit  float64 `json:"credit"`
	Closing float64 `json:"closing"`
}

// TrialBalanceData lists per-account movements with control totals.
type TrialBalanceData struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  float64           `json:"total_debit"`
	TotalCredit float64           `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
}

// Package bundles the four mandatory statements generated from one snapshot.
type Package struct {
	Metadata      Metadata                  `json:"metadata"`
	ProfitLoss    Result[ProfitLossData]    `json:"profit_loss"`
	BalanceSheet  Result[BalanceSheetData]  `json:"balance_sheet"`
	CashFlow      Result[CashFlowData]      `json:"cash_flow"`
	EquityChanges Result[EquityChangesData] `json:"equity_changes"`
	CrossChecks   []Finding                 `json:"cross_checks"`
	DurationMS    int64                     `json:"duration_ms"`
}

var (
	// ErrInvalidPeriod indicates a missing or inverted reporting window.
	ErrInvalidPeriod = errors.New("statements: period invalid")
	// ErrCompanyRequired indicates a request without a company scope.
	ErrCompanyRequired = errors.New("statements: company required")
	// ErrUnknownMethod indicates an unsupported cash-flow method.
	ErrUnknownMethod = errors.New("statements: unknown cash flow method")
	// ErrRateUnavailable indicates presentation conversion without a usable rate.
	ErrRateUnavailable = errors.New("statements: presentation rate unavailable")
)

// Request scopes one generation call.
type Request struct {
	CompanyID            int64
	CompanyName          string
	Period               Period
	Prior                *Period
	Method               CashFlowMethod
	PresentationCurrency string
	MaterialityOverride  *float64
}

// Validate checks the request structurally. Business oddities (zero revenue,
// missing comparatives) are findings, not errors.
func (r Request) Validate() error {
	if r.CompanyID <= 0 {
		return ErrCompanyRequired
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

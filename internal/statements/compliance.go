package statements

import (
	"fmt"
	"math"
)

// Rule identifiers carried on findings. Stable strings: clients filter and
// suppress on them, so renaming one is a breaking change.
const (
	RuleComparative       = "IAS1_COMPARATIVE"
	RuleRevenueAbsent     = "REVENUE_ABSENT"
	RuleMinLineItems      = "IAS1_MIN_LINE_ITEMS"
	RuleBalanceEquation   = "BS_EQUATION"
	RuleCashReconcile     = "CASH_RECONCILIATION"
	RuleCashFlowClasses   = "CF_CLASSIFICATION"
	RuleEquityArticulates = "EQUITY_ARTICULATION"
	RuleTrialBalance      = "TB_BALANCE"
	RulePeriodOrder       = "PERIOD_ORDER"
)

// Validator evaluates IFRS presentation rules against built statements.
// It is stateless; every method is additive and order-independent, and no
// rule ever mutates statement data. Error-severity findings mean the
// statement is not presentation-ready, but generation still returns it.
type Validator struct{}

func (Validator) common(ctx Context, st StatementType) []Finding {
	var findings []Finding
	if !ctx.HasPrior() {
		findings = append(findings, Finding{
			Statement:  st,
			Rule:       RuleComparative,
			Severity:   SeverityWarning,
			Message:    "no comparative period supplied; IFRS requires prior-period figures",
			Suggestion: "generate with a prior period covering the preceding reporting window",
			IFRSRef:    "IAS 1.38",
		})
		return findings
	}
	if !ctx.Prior.End.Before(ctx.Current.Start) {
		findings = append(findings, Finding{
			Statement: st,
			Rule:      RulePeriodOrder,
			Severity:  SeverityWarning,
			Message: fmt.Sprintf("prior period ending %s does not precede current period starting %s",
				ctx.Prior.End.Format("2006-01-02"), ctx.Current.Start.Format("2006-01-02")),
			IFRSRef: "IAS 1.38",
		})
	}
	return findings
}

// ProfitLoss checks the income statement.
func (v Validator) ProfitLoss(ctx Context, data ProfitLossData) []Finding {
	findings := v.common(ctx, StatementTypeProfitLoss)
	if almostZero(data.Revenue.Total) {
		findings = append(findings, Finding{
			Statement:  StatementTypeProfitLoss,
			Rule:       RuleRevenueAbsent,
			Severity:   SeverityInfo,
			Message:    "no revenue recorded in the period",
			Suggestion: "verify the reporting window and the revenue account mappings",
		})
	}
	return findings
}

// BalanceSheet checks the statement of financial position.
func (v Validator) BalanceSheet(ctx Context, data BalanceSheetData) []Finding {
	findings := v.common(ctx, StatementTypeBalanceSheet)
	gap := data.TotalAssets.Amount - data.TotalLiabilitiesAndEquity.Amount
	if math.Abs(gap) >= reconcileTolerance {
		findings = append(findings, Finding{
			Statement: StatementTypeBalanceSheet,
			Rule:      RuleBalanceEquation,
			Severity:  SeverityError,
			Message: fmt.Sprintf("assets %.2f do not equal liabilities plus equity %.2f (difference %.2f)",
				data.TotalAssets.Amount, data.TotalLiabilitiesAndEquity.Amount, gap),
			Suggestion: "check for unbalanced journal entries or accounts missing a statement classification",
			IFRSRef:    "IAS 1.54",
		})
	}
	for _, sec := range []Section{data.CurrentAssets, data.NonCurrentAssets, data.CurrentLiabilities, data.NonCurrentLiabilities, data.Equity} {
		if len(sec.Items) == 0 && !almostZero(sec.Total) {
			findings = append(findings, Finding{
				Statement:  StatementTypeBalanceSheet,
				Rule:       RuleMinLineItems,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("%s carries %.2f but presents no line items", sec.Name, sec.Total),
				Suggestion: "lower the materiality threshold or review the section's account mappings",
				IFRSRef:    "IAS 1.54",
			})
		}
	}
	return findings
}

// CashFlow checks the statement of cash flows. The income statement is part
// of the facts because classification consistency is judged against revenue.
func (v Validator) CashFlow(ctx Context, data CashFlowData, pl ProfitLossData) []Finding {
	findings := v.common(ctx, StatementTypeCashFlow)
	if !data.Reconciliation.Reconciled {
		findings = append(findings, Finding{
			Statement: StatementTypeCashFlow,
			Rule:      RuleCashReconcile,
			Severity:  SeverityError,
			Message: fmt.Sprintf("net cash flow %.2f does not explain the cash movement %.2f (difference %.2f)",
				data.Reconciliation.NetCashFlow, data.Reconciliation.CashMovement, data.Reconciliation.Difference),
			Suggestion: "review balance-sheet accounts not classified as receivables, payables or cash",
			IFRSRef:    "IAS 7.45",
		})
	}
	if len(data.Operating.Items) == 0 && !almostZero(pl.Revenue.Total) {
		findings = append(findings, Finding{
			Statement: StatementTypeCashFlow,
			Rule:      RuleCashFlowClasses,
			Severity:  SeverityInfo,
			Message:   "revenue was recorded but no operating cash flows were classified",
			IFRSRef:   "IAS 7.14",
		})
	}
	return findings
}

// EquityChanges checks the statement of changes in equity.
func (v Validator) EquityChanges(ctx Context, data EquityChangesData) []Finding {
	findings := v.common(ctx, StatementTypeEquityChanges)
	for _, comp := range data.Components {
		expected := comp.Opening + comp.Profit + comp.OCI + comp.Dividends + comp.ShareTransactions + comp.Other
		if !articulates(expected, comp.Closing) {
			findings = append(findings, Finding{
				Statement: StatementTypeEquityChanges,
				Rule:      RuleEquityArticulates,
				Severity:  SeverityError,
				Message: fmt.Sprintf("component %q closes at %.2f but its movements sum to %.2f",
					comp.Name, comp.Closing, expected),
				IFRSRef: "IAS 1.106",
			})
		}
	}
	return findings
}

// TrialBalance checks the control totals.
func (Validator) TrialBalance(data TrialBalanceData) []Finding {
	if data.Balanced {
		return nil
	}
	return []Finding{{
		Statement: StatementTypeTrialBalance,
		Rule:      RuleTrialBalance,
		Severity:  SeverityError,
		Message: fmt.Sprintf("debits %.2f do not equal credits %.2f",
			data.TotalDebit, data.TotalCredit),
		Suggestion: "inspect journal entries posted with unequal line totals",
	}}
}

// CrossChecks proves the statements of one package against each other:
// profit into equity, equity totals into the balance sheet, and cash flow
// endpoints into balance-sheet cash.
func (Validator) CrossChecks(pl ProfitLossData, bs BalanceSheetData, cf CashFlowData, eq EquityChangesData) []Finding {
	var findings []Finding
	if !articulates(eq.Total.Profit, pl.ProfitForPeriod.Amount) {
		findings = append(findings, Finding{
			Statement: StatementTypePackage,
			Rule:      RuleEquityArticulates,
			Severity:  SeverityError,
			Message: fmt.Sprintf("profit for the period %.2f differs from the equity statement's profit column %.2f",
				pl.ProfitForPeriod.Amount, eq.Total.Profit),
			IFRSRef: "IAS 1.106",
		})
	}
	if !articulates(eq.Total.Closing, bs.TotalEquity.Amount) {
		findings = append(findings, Finding{
			Statement: StatementTypePackage,
			Rule:      RuleEquityArticulates,
			Severity:  SeverityError,
			Message: fmt.Sprintf("closing equity %.2f differs from balance-sheet equity %.2f",
				eq.Total.Closing, bs.TotalEquity.Amount),
			IFRSRef: "IAS 1.106",
		})
	}
	if !articulates(cf.OpeningCash, bs.CashOpening) || !articulates(cf.ClosingCash, bs.CashClosing) {
		findings = append(findings, Finding{
			Statement: StatementTypePackage,
			Rule:      RuleCashReconcile,
			Severity:  SeverityError,
			Message: fmt.Sprintf("cash flow endpoints %.2f/%.2f differ from balance-sheet cash %.2f/%.2f",
				cf.OpeningCash, cf.ClosingCash, bs.CashOpening, bs.CashClosing),
			IFRSRef: "IAS 7.45",
		})
	}
	return findings
}

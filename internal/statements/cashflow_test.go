package statements

import (
	"math"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/meridian-fin/meridian-fin/internal/assets"
	"github.com/meridian-fin/meridian-fin/internal/ledger"
)

func TestCashFlowIndirectReconciles(t *testing.T) {
	c := newTestCalc(calcOptions{})
	cf := c.buildCashFlow(c.buildProfitLoss(), MethodIndirect)

	if cf.Operating.Total != 40000 {
		t.Fatalf("operating: got %v want 40000", cf.Operating.Total)
	}
	if cf.Investing.Total != 0 {
		t.Fatalf("investing: got %v want 0", cf.Investing.Total)
	}
	if cf.Financing.Total != -11000 {
		t.Fatalf("financing: got %v want -11000", cf.Financing.Total)
	}
	if cf.NetCashFlow.Amount != 29000 {
		t.Fatalf("net cash flow: got %v want 29000", cf.NetCashFlow.Amount)
	}
	if cf.OpeningCash != 51000 || cf.ClosingCash != 80000 {
		t.Fatalf("cash endpoints: got %v/%v want 51000/80000", cf.OpeningCash, cf.ClosingCash)
	}
	if !cf.Reconciliation.Reconciled {
		t.Fatalf("expected reconciled, difference %v", cf.Reconciliation.Difference)
	}
	if cf.Reconciliation.Difference != 0 {
		t.Fatalf("difference: got %v want 0", cf.Reconciliation.Difference)
	}
	if cf.Reconciliation.CashMovement != 29000 {
		t.Fatalf("cash movement: got %v want 29000", cf.Reconciliation.CashMovement)
	}
}

func TestCashFlowWorkingCapitalRows(t *testing.T) {
	c := newTestCalc(calcOptions{})
	cf := c.buildCashFlow(c.buildProfitLoss(), MethodIndirect)

	rows := map[string]float64{}
	for _, item := range cf.Operating.Items {
		rows[item.Name] = item.Current
	}
	if got := rows["Profit for the period"]; got != 45000 {
		t.Fatalf("profit row: got %v want 45000", got)
	}
	if got := rows["(Increase) decrease in trade receivables"]; got != -20000 {
		t.Fatalf("receivables row: got %v want -20000", got)
	}
	if got := rows["Increase (decrease) in trade payables"]; got != 15000 {
		t.Fatalf("payables row: got %v want 15000", got)
	}
}

func TestCashFlowDirectEqualsIndirect(t *testing.T) {
	c := newTestCalc(calcOptions{})
	pl := c.buildProfitLoss()
	indirect := c.buildCashFlow(pl, MethodIndirect)
	direct := c.buildCashFlow(pl, MethodDirect)

	if direct.Operating.Total != indirect.Operating.Total {
		t.Fatalf("methods disagree: direct %v indirect %v", direct.Operating.Total, indirect.Operating.Total)
	}
	if direct.NetCashFlow.Amount != indirect.NetCashFlow.Amount {
		t.Fatalf("net cash flow disagrees: direct %v indirect %v", direct.NetCashFlow.Amount, indirect.NetCashFlow.Amount)
	}

	rows := map[string]float64{}
	for _, item := range direct.Operating.Items {
		rows[item.Name] = item.Current
	}
	if got := rows["Cash receipts from customers"]; got != 102000 {
		t.Fatalf("receipts: got %v want 102000", got)
	}
	if got := rows["Cash payments to suppliers and employees"]; got != -50000 {
		t.Fatalf("payments: got %v want -50000", got)
	}
	if got := rows["Interest paid"]; got != -3000 {
		t.Fatalf("interest paid: got %v want -3000", got)
	}
	if got := rows["Income taxes paid"]; got != -9000 {
		t.Fatalf("taxes paid: got %v want -9000", got)
	}
}

func TestCashFlowDerivedAdjustmentsCancel(t *testing.T) {
	c := newTestCalc(calcOptions{
		adj:        assets.Adjustments{Depreciation: 2400, DisposalGain: 500},
		openingAdj: assets.Adjustments{AccumulatedDepreciation: 1500},
	})
	pl := c.buildProfitLoss()
	cf := c.buildCashFlow(pl, MethodIndirect)

	// Depreciation and the disposal gain are non-cash: the profit line
	// carries them, the add-back rows remove them, the total is unchanged.
	if cf.Operating.Total != 40000 {
		t.Fatalf("operating with adjustments: got %v want 40000", cf.Operating.Total)
	}
	if !cf.Reconciliation.Reconciled {
		t.Fatalf("expected reconciled, difference %v", cf.Reconciliation.Difference)
	}

	rows := map[string]float64{}
	for _, item := range cf.Operating.Items {
		rows[item.Name] = item.Current
	}
	if got := rows["Depreciation and amortisation"]; got != 2400 {
		t.Fatalf("depreciation add-back: got %v want 2400", got)
	}
	if got := rows["Gain on disposal of non-current assets"]; got != -500 {
		t.Fatalf("gain removal: got %v want -500", got)
	}
}

func TestCashFlowUnclassifiedAccountBreaksReconciliation(t *testing.T) {
	chart := append(testChart(), ledger.Account{
		ID: 15, Code: "2100", Name: "Accrued expenses",
		Type: ledger.AccountTypeLiability, Category: "Current Liabilities",
	})
	entries := append(testEntries(),
		entry(day(2025, time.December, 1), dr(accSalaries, 200), cr(15, 200)),
	)
	c := newCalc(testContext(false), NewTextFormatter(language.English, 2), NewClassifier(),
		chart, entries, assets.Adjustments{}, assets.Adjustments{}, assets.Adjustments{}, 1)
	pl := c.buildProfitLoss()
	cf := c.buildCashFlow(pl, MethodIndirect)

	if cf.Reconciliation.Reconciled {
		t.Fatalf("expected reconciliation failure")
	}
	if got := math.Abs(cf.Reconciliation.Difference); got != 200 {
		t.Fatalf("difference magnitude: got %v want 200", got)
	}

	findings := Validator{}.CashFlow(testContext(false), cf, pl)
	var found bool
	for _, f := range findings {
		if f.Rule == RuleCashReconcile && f.Severity == SeverityError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an error finding for the failed reconciliation, got %+v", findings)
	}
}

func TestCashFlowPriorColumn(t *testing.T) {
	c := newTestCalc(calcOptions{withPrior: true})
	cf := c.buildCashFlow(c.buildProfitLoss(), MethodIndirect)

	if cf.Operating.PriorTotal == nil || *cf.Operating.PriorTotal != 10000 {
		t.Fatalf("prior operating: got %v want 10000", cf.Operating.PriorTotal)
	}
	if cf.Investing.PriorTotal == nil || *cf.Investing.PriorTotal != -24000 {
		t.Fatalf("prior investing: got %v want -24000", cf.Investing.PriorTotal)
	}
	if cf.Financing.PriorTotal == nil || *cf.Financing.PriorTotal != 65000 {
		t.Fatalf("prior financing: got %v want 65000", cf.Financing.PriorTotal)
	}
	if cf.NetCashFlow.Prior == nil || *cf.NetCashFlow.Prior != 51000 {
		t.Fatalf("prior net cash flow: got %v want 51000", cf.NetCashFlow.Prior)
	}
}

func TestCashFlowInvalidMethodFallsBackToIndirect(t *testing.T) {
	c := newTestCalc(calcOptions{})
	cf := c.buildCashFlow(c.buildProfitLoss(), CashFlowMethod("bogus"))
	if cf.Method != MethodIndirect {
		t.Fatalf("method: got %q want %q", cf.Method, MethodIndirect)
	}
}

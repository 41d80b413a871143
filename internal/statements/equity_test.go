package statements

import (
	"math"
	"testing"

	"golang.org/x/text/language"

	"github.com/meridian-fin/meridian-fin/internal/assets"
	"github.com/meridian-fin/meridian-fin/internal/ledger"
)

func TestEquityChangesArticulation(t *testing.T) {
	c := newTestCalc(calcOptions{withPrior: true})
	pl := c.buildProfitLoss()
	eq := c.buildEquityChanges(pl)

	var result *EquityComponent
	for i := range eq.Components {
		if eq.Components[i].Name == "Unappropriated result" {
			result = &eq.Components[i]
		}
	}
	if result == nil {
		t.Fatalf("missing the result component")
	}
	if result.Opening != 20000 {
		t.Fatalf("result opening: got %v want 20000", result.Opening)
	}
	if result.Profit != 45000 {
		t.Fatalf("result profit: got %v want 45000", result.Profit)
	}
	if result.Closing != 65000 {
		t.Fatalf("result closing: got %v want 65000", result.Closing)
	}
	if got := result.Opening + result.Profit; math.Abs(got-result.Closing) >= 0.01 {
		t.Fatalf("component does not articulate: %v + %v != %v", result.Opening, result.Profit, result.Closing)
	}
}

func TestEquityChangesResultComponentIFRSRef(t *testing.T) {
	c := newTestCalc(calcOptions{withPrior: true})
	eq := c.buildEquityChanges(c.buildProfitLoss())

	for i := range eq.Components {
		if eq.Components[i].Name == "Unappropriated result" {
			if got := eq.Components[i].IFRSRef; got != "IAS 1.106" {
				t.Fatalf("result component reference: got %q want %q", got, "IAS 1.106")
			}
			return
		}
	}
	t.Fatalf("missing the result component")
}

func TestEquityChangesRoutesMovements(t *testing.T) {
	c := newTestCalc(calcOptions{withPrior: true})
	eq := c.buildEquityChanges(c.buildProfitLoss())

	var dividends, shareCap *EquityComponent
	for i := range eq.Components {
		switch eq.Components[i].Code {
		case "3100":
			dividends = &eq.Components[i]
		case "3000":
			shareCap = &eq.Components[i]
		}
	}
	if dividends == nil || dividends.Dividends != -6000 {
		t.Fatalf("dividend column: got %+v want -6000", dividends)
	}
	if dividends.Closing != -6000 {
		t.Fatalf("dividend closing: got %v want -6000", dividends.Closing)
	}
	if shareCap == nil || shareCap.Opening != 50000 || shareCap.Closing != 50000 {
		t.Fatalf("share capital: got %+v", shareCap)
	}
	if shareCap.ShareTransactions != 0 {
		t.Fatalf("share transactions: got %v want 0", shareCap.ShareTransactions)
	}
}

func TestEquityChangesTotalMatchesBalanceSheet(t *testing.T) {
	c := newTestCalc(calcOptions{withPrior: true})
	pl := c.buildProfitLoss()
	eq := c.buildEquityChanges(pl)
	bs := c.buildBalanceSheet()

	if math.Abs(eq.Total.Closing-bs.TotalEquity.Amount) >= 0.01 {
		t.Fatalf("equity statement %v disagrees with balance sheet %v", eq.Total.Closing, bs.TotalEquity.Amount)
	}
	if eq.Total.Closing != 109000 {
		t.Fatalf("total closing equity: got %v want 109000", eq.Total.Closing)
	}
	if eq.Total.Opening != 70000 {
		t.Fatalf("total opening equity: got %v want 70000", eq.Total.Opening)
	}
	if eq.Total.Dividends != -6000 {
		t.Fatalf("total dividends: got %v want -6000", eq.Total.Dividends)
	}
}

func TestEquityChangesWithDerivedAdjustments(t *testing.T) {
	c := newTestCalc(calcOptions{
		adj:        assets.Adjustments{Depreciation: 2400, DisposalGain: 500},
		openingAdj: assets.Adjustments{AccumulatedDepreciation: 1500},
	})
	pl := c.buildProfitLoss()
	eq := c.buildEquityChanges(pl)
	bs := c.buildBalanceSheet()

	var result *EquityComponent
	for i := range eq.Components {
		if eq.Components[i].Name == "Unappropriated result" {
			result = &eq.Components[i]
		}
	}
	if result == nil {
		t.Fatalf("missing the result component")
	}
	// Opening carries the accumulated depreciation snapshot: 20,000 - 1,500.
	if result.Opening != 18500 {
		t.Fatalf("result opening: got %v want 18500", result.Opening)
	}
	if result.Profit != 43100 {
		t.Fatalf("result profit: got %v want 43100", result.Profit)
	}
	if result.Closing != 61600 {
		t.Fatalf("result closing: got %v want 61600", result.Closing)
	}
	if math.Abs(eq.Total.Closing-bs.TotalEquity.Amount) >= 0.01 {
		t.Fatalf("equity statement %v disagrees with balance sheet %v", eq.Total.Closing, bs.TotalEquity.Amount)
	}

	findings := Validator{}.EquityChanges(testContext(false), eq)
	for _, f := range findings {
		if f.Rule == RuleEquityArticulates {
			t.Fatalf("unexpected articulation finding: %+v", f)
		}
	}
}

func TestEquityChangesSkipsDormantAccounts(t *testing.T) {
	chart := append(testChart(), ledger.Account{
		ID: 16, Code: "3200", Name: "Legal reserve", Type: ledger.AccountTypeEquity, Category: "Equity",
	})
	c := newCalc(testContext(false), NewTextFormatter(language.English, 2), NewClassifier(),
		chart, testEntries(), assets.Adjustments{}, assets.Adjustments{}, assets.Adjustments{}, 1)
	eq := c.buildEquityChanges(c.buildProfitLoss())

	// Share capital, dividends and the result component. The reserve never
	// moved and never had a balance, so it gets no row.
	if len(eq.Components) != 3 {
		t.Fatalf("components: got %d want 3", len(eq.Components))
	}
	for _, comp := range eq.Components {
		if comp.Code == "3200" {
			t.Fatalf("dormant account must not produce a component")
		}
	}
}

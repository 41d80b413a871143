package statements

import (
	"time"

	"golang.org/x/text/language"

	"github.com/meridian-fin/meridian-fin/internal/assets"
	"github.com/meridian-fin/meridian-fin/internal/ledger"
)

// Shared two-year fixture: a small trading company with credit sales, a
// machine purchase, a bank loan and a dividend. Every entry balances, so the
// derived statements must balance too.

const (
	accCash       int64 = 1
	accAR         int64 = 2
	accPPE        int64 = 3
	accAP         int64 = 4
	accLoan       int64 = 5
	accShareCap   int64 = 6
	accDividends  int64 = 7
	accRevenue    int64 = 8
	accInterestIn int64 = 9
	accCOGS       int64 = 10
	accSalaries   int64 = 11
	accRent       int64 = 12
	accInterestEx int64 = 13
	accTax        int64 = 14
)

func testChart() []ledger.Account {
	return []ledger.Account{
		{ID: accCash, Code: "1000", Name: "Cash at bank", Type: ledger.AccountTypeAsset, Category: "Current Assets"},
		{ID: accAR, Code: "1100", Name: "Trade receivables", Type: ledger.AccountTypeAsset, Category: "Current Assets"},
		{ID: accPPE, Code: "1500", Name: "Plant and machinery", Type: ledger.AccountTypeAsset, Category: "Non-Current Assets"},
		{ID: accAP, Code: "2000", Name: "Trade payables", Type: ledger.AccountTypeLiability, Category: "Current Liabilities"},
		{ID: accLoan, Code: "2500", Name: "Bank loan", Type: ledger.AccountTypeLiability, Category: "Non-Current Liabilities"},
		{ID: accShareCap, Code: "3000", Name: "Share capital", Type: ledger.AccountTypeEquity, Category: "Equity"},
		{ID: accDividends, Code: "3100", Name: "Dividends declared", Type: ledger.AccountTypeEquity, Category: "Equity"},
		{ID: accRevenue, Code: "4000", Name: "Product revenue", Type: ledger.AccountTypeRevenue, Category: "Operating Revenue"},
		{ID: accInterestIn, Code: "4100", Name: "Interest income", Type: ledger.AccountTypeRevenue, Category: "Finance Income"},
		{ID: accCOGS, Code: "5000", Name: "Cost of goods sold", Type: ledger.AccountTypeExpense, Category: "Cost of Sales"},
		{ID: accSalaries, Code: "6000", Name: "Salaries and wages", Type: ledger.AccountTypeExpense, Category: "Operating Expenses"},
		{ID: accRent, Code: "6100", Name: "Rent expense", Type: ledger.AccountTypeExpense, Category: "Operating Expenses"},
		{ID: accInterestEx, Code: "7000", Name: "Interest expense", Type: ledger.AccountTypeExpense, Category: "Finance Costs"},
		{ID: accTax, Code: "8000", Name: "Income tax expense", Type: ledger.AccountTypeExpense, Category: "Tax"},
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dr(account int64, amount float64) ledger.JournalLine {
	return ledger.JournalLine{AccountID: account, Debit: amount}
}

func cr(account int64, amount float64) ledger.JournalLine {
	return ledger.JournalLine{AccountID: account, Credit: amount}
}

func entry(date time.Time, lines ...ledger.JournalLine) ledger.JournalEntry {
	return ledger.JournalEntry{CompanyID: 1, Date: date, Lines: lines}
}

// testEntries covers 2024 (prior) and 2025 (current).
//
// 2025 ledger results: revenue 120,000, finance income 2,000, cost of sales
// 40,000, operating expenses 25,000, finance costs 3,000, tax 9,000.
// Cash moves from 51,000 to 80,000; receivables grow 20,000; payables grow
// 15,000; the loan amortises 5,000 and a 6,000 dividend is paid.
func testEntries() []ledger.JournalEntry {
	return []ledger.JournalEntry{
		// 2024: incorporation, first trades, machine purchase, loan drawdown.
		entry(day(2024, time.January, 15), dr(accCash, 50000), cr(accShareCap, 50000)),
		entry(day(2024, time.March, 10), dr(accAR, 30000), cr(accRevenue, 30000)),
		entry(day(2024, time.April, 5), dr(accCash, 20000), cr(accAR, 20000)),
		entry(day(2024, time.May, 20), dr(accPPE, 24000), cr(accCash, 24000)),
		entry(day(2024, time.June, 30), dr(accCOGS, 10000), cr(accCash, 10000)),
		entry(day(2024, time.September, 15), dr(accCash, 15000), cr(accLoan, 15000)),
		// 2025: the reporting year.
		entry(day(2025, time.January, 20), dr(accAR, 120000), cr(accRevenue, 120000)),
		entry(day(2025, time.February, 10), dr(accCash, 100000), cr(accAR, 100000)),
		entry(day(2025, time.March, 5), dr(accCOGS, 40000), cr(accAP, 40000)),
		entry(day(2025, time.April, 12), dr(accAP, 25000), cr(accCash, 25000)),
		entry(day(2025, time.May, 31), dr(accSalaries, 20000), cr(accCash, 20000)),
		entry(day(2025, time.June, 15), dr(accRent, 5000), cr(accCash, 5000)),
		entry(day(2025, time.July, 31), dr(accCash, 2000), cr(accInterestIn, 2000)),
		entry(day(2025, time.August, 20), dr(accInterestEx, 3000), cr(accCash, 3000)),
		entry(day(2025, time.September, 30), dr(accTax, 9000), cr(accCash, 9000)),
		entry(day(2025, time.October, 15), dr(accDividends, 6000), cr(accCash, 6000)),
		entry(day(2025, time.November, 10), dr(accLoan, 5000), cr(accCash, 5000)),
	}
}

func currentYear() Period {
	return Period{Start: day(2025, time.January, 1), End: day(2025, time.December, 31)}
}

func priorYear() Period {
	return Period{Start: day(2024, time.January, 1), End: day(2024, time.December, 31)}
}

func testContext(withPrior bool) Context {
	ctx := Context{
		Current:     currentYear(),
		Currency:    "EUR",
		Materiality: 0,
		Precision:   2,
		Standard:    "IFRS",
		CompanyID:   1,
		CompanyName: "Meridian Trading BV",
	}
	if withPrior {
		prior := priorYear()
		ctx.Prior = &prior
	}
	return ctx
}

type calcOptions struct {
	withPrior   bool
	materiality float64
	adj         assets.Adjustments
	priorAdj    assets.Adjustments
	openingAdj  assets.Adjustments
	rate        float64
}

func newTestCalc(opts calcOptions) *calc {
	ctx := testContext(opts.withPrior)
	ctx.Materiality = opts.materiality
	rate := opts.rate
	if rate == 0 {
		rate = 1
	}
	return newCalc(ctx, NewTextFormatter(language.English, 2), NewClassifier(),
		testChart(), testEntries(), opts.adj, opts.priorAdj, opts.openingAdj, rate)
}

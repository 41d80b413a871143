package statements

import (
	"strings"

	"github.com/meridian-fin/meridian-fin/internal/ledger"
)

// SectionKind names a classifiable statement section or account subset.
type SectionKind string

const (
	KindRevenue               SectionKind = "REVENUE"
	KindCostOfSales           SectionKind = "COST_OF_SALES"
	KindOperatingExpenses     SectionKind = "OPERATING_EXPENSES"
	KindFinanceIncome         SectionKind = "FINANCE_INCOME"
	KindFinanceCosts          SectionKind = "FINANCE_COSTS"
	KindTaxExpense            SectionKind = "TAX_EXPENSE"
	KindCurrentAssets         SectionKind = "CURRENT_ASSETS"
	KindNonCurrentAssets      SectionKind = "NON_CURRENT_ASSETS"
	KindCurrentLiabilities    SectionKind = "CURRENT_LIABILITIES"
	KindNonCurrentLiabilities SectionKind = "NON_CURRENT_LIABILITIES"
	KindEquity                SectionKind = "EQUITY"

	// Subsets consumed by the cash-flow and equity builders.
	KindCashAndEquivalents SectionKind = "CASH_AND_EQUIVALENTS"
	KindTradeReceivables   SectionKind = "TRADE_RECEIVABLES"
	KindTradePayables      SectionKind = "TRADE_PAYABLES"
	KindDividends          SectionKind = "DIVIDENDS"
	KindShareCapital       SectionKind = "SHARE_CAPITAL"
	KindOCIReserves        SectionKind = "OCI_RESERVES"
)

// Classifier assigns chart accounts to statement sections. Explicit category
// labels win; account-name substrings are the fallback. Matching is mutually
// exclusive within one Classify pass but deliberately not across kinds: an
// account such as "Interest on tax arrears" lands in both finance costs and
// tax expense. All heuristics live in this file; swapping the strategy means
// replacing this type only.
type Classifier struct{}

// NewClassifier constructs Classifier.
func NewClassifier() Classifier {
	return Classifier{}
}

// Classify returns the accounts belonging to kind, preserving chart order.
func (c Classifier) Classify(accounts []ledger.Account, kind SectionKind) []ledger.Account {
	pred := predicates[kind]
	if pred == nil {
		return nil
	}
	var out []ledger.Account
	for _, a := range accounts {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}

var predicates = map[SectionKind]func(ledger.Account) bool{
	KindRevenue:               isOperatingRevenue,
	KindCostOfSales:           isCostOfSales,
	KindOperatingExpenses:     isOperatingExpense,
	KindFinanceIncome:         isFinanceIncome,
	KindFinanceCosts:          isFinanceCost,
	KindTaxExpense:            isTaxExpense,
	KindCurrentAssets:         isCurrentAsset,
	KindNonCurrentAssets:      isNonCurrentAsset,
	KindCurrentLiabilities:    isCurrentLiability,
	KindNonCurrentLiabilities: isNonCurrentLiability,
	KindEquity:                isEquity,
	KindCashAndEquivalents:    isCashEquivalent,
	KindTradeReceivables:      isReceivable,
	KindTradePayables:         isPayable,
	KindDividends:             isDividend,
	KindShareCapital:          isShareCapital,
	KindOCIReserves:           isOCIReserve,
}

func categoryHas(a ledger.Account, labels ...string) bool {
	cat := strings.ToLower(a.Category)
	sub := strings.ToLower(a.Subcategory)
	for _, l := range labels {
		if strings.Contains(cat, l) || strings.Contains(sub, l) {
			return true
		}
	}
	return false
}

func nameHas(a ledger.Account, subs ...string) bool {
	name := strings.ToLower(a.Name)
	for _, s := range subs {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func isFinanceIncome(a ledger.Account) bool {
	if a.Type != ledger.AccountTypeRevenue {
		return false
	}
	if categoryHas(a, "finance income") {
		return true
	}
	return nameHas(a, "interest", "dividend received", "investment income", "exchange gain")
}

func isOperatingRevenue(a ledger.Account) bool {
	return a.Type == ledger.AccountTypeRevenue && !isFinanceIncome(a)
}

func isCostOfSales(a ledger.Account) bool {
	if a.Type != ledger.AccountTypeExpense {
		return false
	}
	if categoryHas(a, "cost of sales", "cost of goods") {
		return true
	}
	return nameHas(a, "cost of", "cogs")
}

func isFinanceCost(a ledger.Account) bool {
	if a.Type != ledger.AccountTypeExpense {
		return false
	}
	if categoryHas(a, "finance cost") {
		return true
	}
	return nameHas(a, "interest", "finance cost", "borrowing")
}

func isTaxExpense(a ledger.Account) bool {
	if a.Type != ledger.AccountTypeExpense {
		return false
	}
	if categoryHas(a, "tax") {
		return true
	}
	return nameHas(a, "tax")
}

func isOperatingExpense(a ledger.Account) bool {
	if a.Type != ledger.AccountTypeExpense {
		return false
	}
	return !isCostOfSales(a) && !isFinanceCost(a) && !isTaxExpense(a)
}

func isCurrentAsset(a ledger.Account) bool {
	if a.Type != ledger.AccountTypeAsset {
		return false
	}
	if categoryHas(a, "non-current", "non current", "fixed asset") {
		return false
	}
	if categoryHas(a, "current") {
		return true
	}
	return nameHas(a, "cash", "bank", "receivable", "debtor", "inventory", "stock", "prepaid", "prepayment")
}

func isNonCurrentAsset(a ledger.Account) bool {
	return a.Type == ledger.AccountTypeAsset && !isCurrentAsset(a)
}

func isCurrentLiability(a ledger.Account) bool {
	if a.Type != ledger.AccountTypeLiability {
		return false
	}
	if categoryHas(a, "non-current", "non current", "long-term", "long term") {
		return false
	}
	if categoryHas(a, "current") {
		return true
	}
	if nameHas(a, "loan", "borrowing", "bond", "lease", "mortgage", "long-term", "long term") {
		return false
	}
	return true
}

func isNonCurrentLiability(a ledger.Account) bool {
	return a.Type == ledger.AccountTypeLiability && !isCurrentLiability(a)
}

func isEquity(a ledger.Account) bool {
	return a.Type == ledger.AccountTypeEquity
}

func isCashEquivalent(a ledger.Account) bool {
	if a.Type != ledger.AccountTypeAsset {
		return false
	}
	if categoryHas(a, "cash and cash equivalents", "cash equivalents") {
		return true
	}
	return nameHas(a, "cash", "bank", "money market", "petty")
}

func isReceivable(a ledger.Account) bool {
	return a.Type == ledger.AccountTypeAsset && nameHas(a, "receivable", "debtor")
}

func isPayable(a ledger.Account) bool {
	return a.Type == ledger.AccountTypeLiability && nameHas(a, "payable", "creditor")
}

func isDividend(a ledger.Account) bool {
	return a.Type == ledger.AccountTypeEquity && nameHas(a, "dividend", "distribution")
}

func isShareCapital(a ledger.Account) bool {
	return a.Type == ledger.AccountTypeEquity &&
		nameHas(a, "share capital", "share premium", "capital stock", "common stock", "paid-in capital")
}

func isOCIReserve(a ledger.Account) bool {
	return a.Type == ledger.AccountTypeEquity &&
		nameHas(a, "revaluation", "translation", "hedging", "comprehensive", "fair value reserve")
}

package statements

import (
	"github.com/meridian-fin/meridian-fin/internal/ledger"
)

// Aggregate folds journal lines dated inside the window into per-account
// signed balances. Asset and expense accounts accumulate debit minus credit;
// liability, equity and revenue accounts accumulate credit minus debit.
// Lines referencing accounts absent from the chart are skipped; OrphanLines
// counts them for the caller's warnings.
//
// The fold is deterministic and order-independent: addition over the same
// line set yields the same balances whatever the entry ordering.
func Aggregate(accounts []ledger.Account, entries []ledger.JournalEntry, window Period) map[int64]float64 {
	balances := make(map[int64]float64, len(accounts))
	types := make(map[int64]ledger.AccountType, len(accounts))
	for _, a := range accounts {
		balances[a.ID] = 0
		types[a.ID] = a.Type
	}
	for _, entry := range entries {
		if !window.Contains(entry.Date) {
			continue
		}
		for _, line := range entry.Lines {
			typ, known := types[line.AccountID]
			if !known {
				continue
			}
			if typ.DebitNormal() {
				balances[line.AccountID] += line.Debit - line.Credit
			} else {
				balances[line.AccountID] += line.Credit - line.Debit
			}
		}
	}
	return balances
}

// GrossMovements folds journal lines dated inside the window into unsigned
// per-account debit and credit totals. Unlike Aggregate it keeps both sides
// separately, which the trial balance needs for its control totals.
func GrossMovements(entries []ledger.JournalEntry, window Period) (debits, credits map[int64]float64) {
	debits = make(map[int64]float64)
	credits = make(map[int64]float64)
	for _, entry := range entries {
		if !window.Contains(entry.Date) {
			continue
		}
		for _, line := range entry.Lines {
			debits[line.AccountID] += line.Debit
			credits[line.AccountID] += line.Credit
		}
	}
	return debits, credits
}

// OrphanLines counts journal lines inside the window that reference accounts
// missing from the chart. Those lines are ignored by Aggregate; the count
// feeds a generation warning rather than an error.
func OrphanLines(accounts []ledger.Account, entries []ledger.JournalEntry, window Period) int {
	known := make(map[int64]struct{}, len(accounts))
	for _, a := range accounts {
		known[a.ID] = struct{}{}
	}
	var orphans int
	for _, entry := range entries {
		if !window.Contains(entry.Date) {
			continue
		}
		for _, line := range entry.Lines {
			if _, ok := known[line.AccountID]; !ok {
				orphans++
			}
		}
	}
	return orphans
}

// sum totals the balances of the given accounts.
func sum(accounts []ledger.Account, balances map[int64]float64) float64 {
	var total float64
	for _, a := range accounts {
		total += balances[a.ID]
	}
	return total
}

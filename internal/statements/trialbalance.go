package statements

import "math"

// buildTrialBalance lists every account carrying a balance or window
// activity, with gross debit and credit movements. Materiality does not
// apply here: the trial balance is a control schedule, not a presentation
// statement, so suppressing small rows would defeat its purpose.
func (c *calc) buildTrialBalance() TrialBalanceData {
	data := TrialBalanceData{Rows: []TrialBalanceRow{}}
	var totalDebit, totalCredit float64
	for _, acc := range c.accounts {
		row := TrialBalanceRow{
			Code:    acc.Code,
			Name:    acc.Name,
			Type:    string(acc.Type),
			Opening: c.round(c.opening[acc.ID]),
			Debit:   c.round(c.debits[acc.ID]),
			Credit:  c.round(c.credits[acc.ID]),
			Closing: c.round(c.closing[acc.ID]),
		}
		if almostZero(row.Opening) && almostZero(row.Debit) && almostZero(row.Credit) && almostZero(row.Closing) {
			continue
		}
		totalDebit += c.debits[acc.ID]
		totalCredit += c.credits[acc.ID]
		data.Rows = append(data.Rows, row)
	}
	data.TotalDebit = c.round(totalDebit)
	data.TotalCredit = c.round(totalCredit)
	data.Balanced = math.Abs(totalDebit-totalCredit) < reconcileTolerance
	return data
}

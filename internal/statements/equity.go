package statements

import "github.com/meridian-fin/meridian-fin/internal/ledger"

const labelTotalEquity = "Total equity"

// buildEquityChanges walks every equity account, routes its window movement
// into the column matching its role, and closes with the synthetic result
// component that carries the profit the income statement reported.
func (c *calc) buildEquityChanges(pl ProfitLossData) EquityChangesData {
	dividendIDs := idSet(c.classifier.Classify(c.accounts, KindDividends))
	shareIDs := idSet(c.classifier.Classify(c.accounts, KindShareCapital))
	ociIDs := idSet(c.classifier.Classify(c.accounts, KindOCIReserves))

	var components []EquityComponent
	var opening, oci, dividends, shares, other, closing float64

	for _, acc := range c.classifier.Classify(c.accounts, KindEquity) {
		open := c.opening[acc.ID]
		move := c.closing[acc.ID] - open
		if almostZero(open) && almostZero(move) {
			continue
		}
		comp := EquityComponent{
			Code:    acc.Code,
			Name:    acc.Name,
			Opening: c.round(open),
			Closing: c.round(open + move),
		}
		switch {
		case dividendIDs[acc.ID]:
			comp.Dividends = c.round(move)
			dividends += move
		case shareIDs[acc.ID]:
			comp.ShareTransactions = c.round(move)
			shares += move
		case ociIDs[acc.ID]:
			comp.OCI = c.round(move)
			oci += move
		default:
			comp.Other = c.round(move)
			other += move
		}
		comp.ClosingFmt = c.fmtAmt(comp.Closing)
		components = append(components, comp)
		opening += open
		closing += open + move
	}

	openingResult := c.ledgerResult(c.opening) - c.openingAdj.AccumulatedDepreciation
	profit := pl.ProfitForPeriod.Amount
	result := EquityComponent{
		Name:    labelUnappropriated,
		IFRSRef: "IAS 1.106",
		Opening: c.round(openingResult),
		Profit:  profit,
		Closing: c.round(openingResult) + profit,
	}
	result.ClosingFmt = c.fmtAmt(result.Closing)
	components = append(components, result)

	total := EquityComponent{
		Name:              labelTotalEquity,
		Opening:           c.round(opening) + result.Opening,
		Profit:            profit,
		OCI:               c.round(oci),
		Dividends:         c.round(dividends),
		ShareTransactions: c.round(shares),
		Other:             c.round(other),
		Closing:           c.round(closing) + result.Closing,
	}
	total.ClosingFmt = c.fmtAmt(total.Closing)

	return EquityChangesData{Components: components, Total: total}
}

func idSet(accounts []ledger.Account) map[int64]bool {
	if len(accounts) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(accounts))
	for _, acc := range accounts {
		set[acc.ID] = true
	}
	return set
}

package statements

const (
	labelCurrentAssets  = "Current Assets"
	labelNonCurrAssets  = "Non-current Assets"
	labelCurrentLiab    = "Current Liabilities"
	labelNonCurrLiab    = "Non-current Liabilities"
	labelEquity         = "Equity"
	labelUnappropriated = "Unappropriated result"
)

// buildBalanceSheet assembles the statement of financial position from
// closing positions. Three synthetic lines keep the accounting equation
// exact after derived adjustments: accumulated derived depreciation reduces
// non-current assets, the net disposal settlement sits in current assets,
// and the cumulative ledger result adjusted for both lands in equity.
func (c *calc) buildBalanceSheet() BalanceSheetData {
	disposalNet := c.adj.DisposalGain - c.adj.DisposalLoss
	priorDisposalNet := c.priorAdj.DisposalGain - c.priorAdj.DisposalLoss

	var ncaExtras, caExtras, eqExtras []syntheticRow
	if c.adj.AccumulatedDepreciation > 0 || c.priorAdj.AccumulatedDepreciation > 0 {
		ncaExtras = append(ncaExtras, syntheticRow{
			name:    "Accumulated depreciation",
			amount:  -c.adj.AccumulatedDepreciation,
			prior:   c.priorAmount(-c.priorAdj.AccumulatedDepreciation),
			ifrsRef: "IAS 16.73",
		})
	}
	if !almostZero(disposalNet) || !almostZero(priorDisposalNet) {
		caExtras = append(caExtras, syntheticRow{
			name:    "Disposal settlement receivable",
			amount:  disposalNet,
			prior:   c.priorAmount(priorDisposalNet),
			ifrsRef: "IAS 16.68",
		})
	}
	result := c.ledgerResult(c.closing) - c.adj.AccumulatedDepreciation + disposalNet
	var priorResult *float64
	if c.ctx.HasPrior() {
		priorResult = ptr(c.ledgerResult(c.priorClosing) - c.priorAdj.AccumulatedDepreciation + priorDisposalNet)
	}
	eqExtras = append(eqExtras, syntheticRow{
		name:    labelUnappropriated,
		amount:  result,
		prior:   priorResult,
		ifrsRef: "IAS 1.54(r)",
	})

	ca := c.section(labelCurrentAssets, KindCurrentAssets, c.closing, c.priorClosing, caExtras...)
	nca := c.section(labelNonCurrAssets, KindNonCurrentAssets, c.closing, c.priorClosing, ncaExtras...)
	cl := c.section(labelCurrentLiab, KindCurrentLiabilities, c.closing, c.priorClosing)
	ncl := c.section(labelNonCurrLiab, KindNonCurrentLiabilities, c.closing, c.priorClosing)
	eq := c.section(labelEquity, KindEquity, c.closing, c.priorClosing, eqExtras...)

	totalAssets := ca.Total + nca.Total
	totalLiab := cl.Total + ncl.Total
	totalEquity := eq.Total

	var priorAssets, priorLiab, priorEquity, priorTLE *float64
	if c.ctx.HasPrior() {
		pa := *ca.PriorTotal + *nca.PriorTotal
		pl := *cl.PriorTotal + *ncl.PriorTotal
		pe := *eq.PriorTotal
		pt := pl + pe
		priorAssets, priorLiab, priorEquity, priorTLE = &pa, &pl, &pe, &pt
	}

	cashAccounts := c.classifier.Classify(c.accounts, KindCashAndEquivalents)

	return BalanceSheetData{
		CurrentAssets:             ca,
		NonCurrentAssets:          nca,
		CurrentLiabilities:        cl,
		NonCurrentLiabilities:     ncl,
		Equity:                    eq,
		TotalAssets:               c.metric("Total assets", totalAssets, priorAssets, 0),
		TotalLiabilities:          c.metric("Total liabilities", totalLiab, priorLiab, 0),
		TotalEquity:               c.metric("Total equity", totalEquity, priorEquity, 0),
		TotalLiabilitiesAndEquity: c.metric("Total liabilities and equity", totalLiab+totalEquity, priorTLE, 0),
		CashOpening:               c.round(sum(cashAccounts, c.opening)),
		CashClosing:               c.round(sum(cashAccounts, c.closing)),
	}
}

package statements

const (
	labelOperating = "Operating Activities"
	labelInvesting = "Investing Activities"
	labelFinancing = "Financing Activities"
)

// buildCashFlow assembles the statement of cash flows. Operating activities
// come in two presentations that total identically: the indirect method
// works back from profit for the period, the direct method recomposes the
// same flows as gross receipts and payments. Investing and financing are
// position movements of non-current asset, non-current liability and equity
// accounts and are shared by both methods. Derived adjustments cancel inside
// operating (the profit line carries them, the add-backs remove them), so
// net cash flow reflects ledger movements only and can be reconciled against
// the cash balance delta.
func (c *calc) buildCashFlow(pl ProfitLossData, method CashFlowMethod) CashFlowData {
	if !method.Valid() {
		method = MethodIndirect
	}
	cash := c.classifier.Classify(c.accounts, KindCashAndEquivalents)
	openingCash := sum(cash, c.opening)
	closingCash := sum(cash, c.closing)

	deltaAR := c.subsetDelta(KindTradeReceivables, c.closing, c.opening)
	deltaAP := c.subsetDelta(KindTradePayables, c.closing, c.opening)
	var priorDeltaAR, priorDeltaAP float64
	if c.ctx.HasPrior() {
		priorDeltaAR = c.subsetDelta(KindTradeReceivables, c.priorClosing, c.priorOpening)
		priorDeltaAP = c.subsetDelta(KindTradePayables, c.priorClosing, c.priorOpening)
	}

	var operating Section
	if method == MethodDirect {
		operating = c.directOperating(pl, deltaAR, deltaAP, priorDeltaAR, priorDeltaAP)
	} else {
		operating = c.indirectOperating(pl, deltaAR, deltaAP, priorDeltaAR, priorDeltaAP)
	}
	investing := c.movementSection(labelInvesting, KindNonCurrentAssets, -1)
	financing := c.financingSection()

	net := operating.Total + investing.Total + financing.Total
	var priorNet *float64
	if c.ctx.HasPrior() {
		pn := *operating.PriorTotal + *investing.PriorTotal + *financing.PriorTotal
		priorNet = &pn
	}

	return CashFlowData{
		Method:         method,
		Operating:      operating,
		Investing:      investing,
		Financing:      financing,
		NetCashFlow:    c.metric("Net cash flow", net, priorNet, 0),
		OpeningCash:    c.round(openingCash),
		ClosingCash:    c.round(closingCash),
		Reconciliation: ReconcileCash(net, c.round(openingCash), c.round(closingCash)),
	}
}

// indirectOperating starts from profit for the period, removes non-cash
// derived amounts and applies working-capital deltas: an increase in
// receivables consumes cash, an increase in payables releases it.
func (c *calc) indirectOperating(pl ProfitLossData, deltaAR, deltaAP, priorDeltaAR, priorDeltaAP float64) Section {
	rows := []syntheticRow{{
		name:      "Profit for the period",
		amount:    pl.ProfitForPeriod.Amount,
		prior:     pl.ProfitForPeriod.Prior,
		ifrsRef:   "IAS 7.18(b)",
		mandatory: true,
	}}
	if c.adj.Depreciation > 0 || c.priorAdj.Depreciation > 0 {
		rows = append(rows, syntheticRow{
			name:      "Depreciation and amortisation",
			amount:    c.adj.Depreciation,
			prior:     c.priorAmount(c.priorAdj.Depreciation),
			ifrsRef:   "IAS 7.20(b)",
			mandatory: true,
		})
	}
	if c.adj.DisposalGain > 0 || c.priorAdj.DisposalGain > 0 {
		rows = append(rows, syntheticRow{
			name:      "Gain on disposal of non-current assets",
			amount:    -c.adj.DisposalGain,
			prior:     c.priorAmount(-c.priorAdj.DisposalGain),
			ifrsRef:   "IAS 7.20(b)",
			mandatory: true,
		})
	}
	if c.adj.DisposalLoss > 0 || c.priorAdj.DisposalLoss > 0 {
		rows = append(rows, syntheticRow{
			name:      "Loss on disposal of non-current assets",
			amount:    c.adj.DisposalLoss,
			prior:     c.priorAmount(c.priorAdj.DisposalLoss),
			ifrsRef:   "IAS 7.20(b)",
			mandatory: true,
		})
	}
	rows = append(rows,
		syntheticRow{
			name:      "(Increase) decrease in trade receivables",
			amount:    -deltaAR,
			prior:     c.priorAmount(-priorDeltaAR),
			mandatory: true,
		},
		syntheticRow{
			name:      "Increase (decrease) in trade payables",
			amount:    deltaAP,
			prior:     c.priorAmount(priorDeltaAP),
			mandatory: true,
		},
	)
	return c.sectionFromRows(labelOperating, rows)
}

// directOperating recomposes the identical operating total as gross flows:
// receipts from customers, payments to suppliers and employees, interest and
// income taxes paid.
func (c *calc) directOperating(pl ProfitLossData, deltaAR, deltaAP, priorDeltaAR, priorDeltaAP float64) Section {
	ledgerFinanceIncome := pl.FinanceIncome.Total - c.adj.DisposalGain
	ledgerOpex := pl.OperatingExpenses.Total - c.adj.Depreciation
	ledgerFinanceCosts := pl.FinanceCosts.Total - c.adj.DisposalLoss

	receipts := pl.Revenue.Total + ledgerFinanceIncome - deltaAR
	payments := -(pl.CostOfSales.Total + ledgerOpex - deltaAP)
	interest := -ledgerFinanceCosts
	taxes := -pl.TaxExpense.Total

	var priorReceipts, priorPayments, priorInterest, priorTaxes *float64
	if c.ctx.HasPrior() {
		pFinanceIncome := *pl.FinanceIncome.PriorTotal - c.priorAdj.DisposalGain
		pOpex := *pl.OperatingExpenses.PriorTotal - c.priorAdj.Depreciation
		pFinanceCosts := *pl.FinanceCosts.PriorTotal - c.priorAdj.DisposalLoss
		priorReceipts = ptr(*pl.Revenue.PriorTotal + pFinanceIncome - priorDeltaAR)
		priorPayments = ptr(-(*pl.CostOfSales.PriorTotal + pOpex - priorDeltaAP))
		priorInterest = ptr(-pFinanceCosts)
		priorTaxes = ptr(-*pl.TaxExpense.PriorTotal)
	}

	rows := []syntheticRow{
		{name: "Cash receipts from customers", amount: receipts, prior: priorReceipts, ifrsRef: "IAS 7.19(a)", mandatory: true},
		{name: "Cash payments to suppliers and employees", amount: payments, prior: priorPayments, ifrsRef: "IAS 7.19(a)", mandatory: true},
		{name: "Interest paid", amount: interest, prior: priorInterest, ifrsRef: "IAS 7.31", mandatory: true},
		{name: "Income taxes paid", amount: taxes, prior: priorTaxes, ifrsRef: "IAS 7.35", mandatory: true},
	}
	return c.sectionFromRows(labelOperating, rows)
}

// movementRows lists the window movement of every account of a kind. The
// sign factor turns asset growth into an outflow for investing.
func (c *calc) movementRows(kind SectionKind, sign float64) []syntheticRow {
	var rows []syntheticRow
	for _, a := range c.classifier.Classify(c.accounts, kind) {
		delta := (c.closing[a.ID] - c.opening[a.ID]) * sign
		var prior *float64
		if c.ctx.HasPrior() {
			prior = ptr((c.priorClosing[a.ID] - c.priorOpening[a.ID]) * sign)
		}
		if almostZero(delta) && (prior == nil || almostZero(*prior)) {
			continue
		}
		rows = append(rows, syntheticRow{
			code:   a.Code,
			name:   a.Name,
			amount: delta,
			prior:  prior,
			level:  c.depth[a.ID],
		})
	}
	return rows
}

func (c *calc) movementSection(name string, kind SectionKind, sign float64) Section {
	return c.sectionFromRows(name, c.movementRows(kind, sign))
}

// financingSection merges non-current liability and equity movements: new
// borrowings and share issues bring cash in, repayments and dividends take
// it out.
func (c *calc) financingSection() Section {
	rows := c.movementRows(KindNonCurrentLiabilities, 1)
	rows = append(rows, c.movementRows(KindEquity, 1)...)
	return c.sectionFromRows(labelFinancing, rows)
}

package statements

// Section and metric labels shared across builders and validators.
const (
	labelRevenue       = "Revenue"
	labelCostOfSales   = "Cost of Sales"
	labelOpex          = "Operating Expenses"
	labelFinanceIncome = "Finance Income"
	labelFinanceCosts  = "Finance Costs"
	labelTaxExpense    = "Tax Expense"
)

// buildProfitLoss assembles the statement of profit or loss. Derived
// adjustments surface as synthetic lines only when strictly positive:
// depreciation inside operating expenses, disposal gains under finance
// income, disposal losses under finance costs. The profit chain and all
// margins come from the presented (rounded) section totals, so the statement
// is internally consistent to the cent.
func (c *calc) buildProfitLoss() ProfitLossData {
	var opexExtras, incomeExtras, costExtras []syntheticRow
	if c.adj.Depreciation > 0 || c.priorAdj.Depreciation > 0 {
		opexExtras = append(opexExtras, syntheticRow{
			name:    "Depreciation and amortisation",
			amount:  c.adj.Depreciation,
			prior:   c.priorAmount(c.priorAdj.Depreciation),
			ifrsRef: "IAS 16.48",
		})
	}
	if c.adj.DisposalGain > 0 || c.priorAdj.DisposalGain > 0 {
		incomeExtras = append(incomeExtras, syntheticRow{
			name:    "Gain on disposal of non-current assets",
			amount:  c.adj.DisposalGain,
			prior:   c.priorAmount(c.priorAdj.DisposalGain),
			ifrsRef: "IAS 16.68",
		})
	}
	if c.adj.DisposalLoss > 0 || c.priorAdj.DisposalLoss > 0 {
		costExtras = append(costExtras, syntheticRow{
			name:    "Loss on disposal of non-current assets",
			amount:  c.adj.DisposalLoss,
			prior:   c.priorAmount(c.priorAdj.DisposalLoss),
			ifrsRef: "IAS 16.68",
		})
	}

	revenue := c.section(labelRevenue, KindRevenue, c.currentFlow, c.priorFlow)
	cos := c.section(labelCostOfSales, KindCostOfSales, c.currentFlow, c.priorFlow)
	opex := c.section(labelOpex, KindOperatingExpenses, c.currentFlow, c.priorFlow, opexExtras...)
	finIncome := c.section(labelFinanceIncome, KindFinanceIncome, c.currentFlow, c.priorFlow, incomeExtras...)
	finCosts := c.section(labelFinanceCosts, KindFinanceCosts, c.currentFlow, c.priorFlow, costExtras...)
	tax := c.section(labelTaxExpense, KindTaxExpense, c.currentFlow, c.priorFlow)

	gross := revenue.Total - cos.Total
	operating := gross - opex.Total
	beforeTax := operating + finIncome.Total - finCosts.Total
	forPeriod := beforeTax - tax.Total

	var priorGross, priorOperating, priorBeforeTax, priorForPeriod *float64
	if c.ctx.HasPrior() {
		pg := *revenue.PriorTotal - *cos.PriorTotal
		po := pg - *opex.PriorTotal
		pb := po + *finIncome.PriorTotal - *finCosts.PriorTotal
		pf := pb - *tax.PriorTotal
		priorGross, priorOperating, priorBeforeTax, priorForPeriod = &pg, &po, &pb, &pf
	}

	return ProfitLossData{
		Revenue:           revenue,
		CostOfSales:       cos,
		OperatingExpenses: opex,
		FinanceIncome:     finIncome,
		FinanceCosts:      finCosts,
		TaxExpense:        tax,
		GrossProfit:       c.metric("Gross profit", gross, priorGross, revenue.Total),
		OperatingProfit:   c.metric("Operating profit", operating, priorOperating, revenue.Total),
		ProfitBeforeTax:   c.metric("Profit before tax", beforeTax, priorBeforeTax, revenue.Total),
		ProfitForPeriod:   c.metric("Profit for the period", forPeriod, priorForPeriod, revenue.Total),
	}
}

// priorAmount exposes a prior-window derived amount for synthetic rows, nil
// when no comparative period is present.
func (c *calc) priorAmount(v float64) *float64 {
	if !c.ctx.HasPrior() {
		return nil
	}
	return ptr(v)
}

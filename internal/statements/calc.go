package statements

import (
	"math"

	"github.com/meridian-fin/meridian-fin/internal/assets"
	"github.com/meridian-fin/meridian-fin/internal/ledger"
)

// calc holds one generation call's immutable snapshot and the balance maps
// derived from it. Everything downstream of newCalc is pure: builders read
// these maps and never touch the collaborators again.
type calc struct {
	ctx        Context
	fm         Formatter
	classifier Classifier
	accounts   []ledger.Account
	depth      map[int64]int

	currentFlow  map[int64]float64
	closing      map[int64]float64
	opening      map[int64]float64
	priorFlow    map[int64]float64
	priorClosing map[int64]float64
	priorOpening map[int64]float64
	debits       map[int64]float64
	credits      map[int64]float64

	adj        assets.Adjustments
	priorAdj   assets.Adjustments
	openingAdj assets.Adjustments
}

func newCalc(ctx Context, fm Formatter, cls Classifier, accounts []ledger.Account, entries []ledger.JournalEntry, adj, priorAdj, openingAdj assets.Adjustments, rate float64) *calc {
	c := &calc{
		ctx:        ctx,
		fm:         fm,
		classifier: cls,
		accounts:   accounts,
		depth:      chartDepth(accounts),
		adj:        adj,
		priorAdj:   priorAdj,
		openingAdj: openingAdj,
	}
	c.currentFlow = Aggregate(accounts, entries, ctx.Current)
	c.closing = Aggregate(accounts, entries, Through(ctx.Current.End))
	c.opening = Aggregate(accounts, entries, ctx.Current.OpeningCutoff())
	c.debits, c.credits = GrossMovements(entries, ctx.Current)
	if ctx.Prior != nil {
		c.priorFlow = Aggregate(accounts, entries, *ctx.Prior)
		c.priorClosing = Aggregate(accounts, entries, Through(ctx.Prior.End))
		c.priorOpening = Aggregate(accounts, entries, ctx.Prior.OpeningCutoff())
	}
	if rate > 0 && rate != 1 {
		c.scale(rate)
	}
	// Derived amounts can carry sub-cent fractions (straight-line charges
	// rarely divide evenly). Normalising them to the reporting precision once,
	// before any builder runs, keeps every cross-statement identity exact.
	c.adj = c.normalizeAdjustments(c.adj)
	c.priorAdj = c.normalizeAdjustments(c.priorAdj)
	c.openingAdj = c.normalizeAdjustments(c.openingAdj)
	// The closing accumulated figure must extend the opening one by exactly
	// the window charge, or the balance sheet and the equity statement drift
	// apart by rounding remainders.
	c.adj.AccumulatedDepreciation = c.openingAdj.AccumulatedDepreciation + c.adj.Depreciation
	return c
}

// scale converts every balance into the presentation currency using the
// consumed closing rate, re-snapping to the reporting precision so converted
// statements stay internally additive.
func (c *calc) scale(rate float64) {
	for _, m := range []map[int64]float64{c.currentFlow, c.closing, c.opening, c.priorFlow, c.priorClosing, c.priorOpening, c.debits, c.credits} {
		for id := range m {
			m[id] = Round(m[id]*rate, c.ctx.Precision)
		}
	}
	c.adj = scaleAdjustments(c.adj, rate)
	c.priorAdj = scaleAdjustments(c.priorAdj, rate)
	c.openingAdj = scaleAdjustments(c.openingAdj, rate)
}

func scaleAdjustments(a assets.Adjustments, rate float64) assets.Adjustments {
	return assets.Adjustments{
		Depreciation:            a.Depreciation * rate,
		DisposalGain:            a.DisposalGain * rate,
		DisposalLoss:            a.DisposalLoss * rate,
		AccumulatedDepreciation: a.AccumulatedDepreciation * rate,
	}
}

func (c *calc) normalizeAdjustments(a assets.Adjustments) assets.Adjustments {
	return assets.Adjustments{
		Depreciation:            c.round(a.Depreciation),
		DisposalGain:            c.round(a.DisposalGain),
		DisposalLoss:            c.round(a.DisposalLoss),
		AccumulatedDepreciation: c.round(a.AccumulatedDepreciation),
	}
}

// chartDepth resolves each account's depth in the parent chain, clamped to
// a small bound so malformed charts with cycles cannot spin.
func chartDepth(accounts []ledger.Account) map[int64]int {
	parents := make(map[int64]*int64, len(accounts))
	for _, a := range accounts {
		parents[a.ID] = a.ParentID
	}
	depth := make(map[int64]int, len(accounts))
	for _, a := range accounts {
		d := 0
		cur := a.ParentID
		for cur != nil && d < 8 {
			d++
			next, ok := parents[*cur]
			if !ok {
				break
			}
			cur = next
		}
		depth[a.ID] = d
	}
	return depth
}

func (c *calc) round(v float64) float64 {
	return Round(v, c.ctx.Precision)
}

func (c *calc) fmtAmt(v float64) string {
	return c.fm.Format(Round(v, c.ctx.Precision), c.ctx.Currency)
}

// syntheticRow is a derived statement line that has no backing account.
// Mandatory rows are statement captions (profit, gross receipts) that stay
// visible regardless of materiality; only per-account movement rows may be
// suppressed.
type syntheticRow struct {
	code      string
	name      string
	amount    float64
	prior     *float64
	ifrsRef   string
	level     int
	mandatory bool
}

// section assembles a statement section from classified accounts plus any
// synthetic rows. Account balances below the materiality threshold stay out
// of Items but always count toward Total. Synthetic rows bypass materiality:
// they exist because something must be disclosed.
func (c *calc) section(name string, kind SectionKind, cur, prior map[int64]float64, extras ...syntheticRow) Section {
	return c.sectionOf(name, c.classifier.Classify(c.accounts, kind), cur, prior, extras...)
}

func (c *calc) sectionOf(name string, accounts []ledger.Account, cur, prior map[int64]float64, extras ...syntheticRow) Section {
	sec := Section{Name: name, Items: []Item{}}
	hasPrior := c.ctx.HasPrior()
	var total, priorTotal float64
	for _, a := range accounts {
		amount := cur[a.ID]
		total += amount
		var priorAmt float64
		if prior != nil {
			priorAmt = prior[a.ID]
			priorTotal += priorAmt
		}
		if math.Abs(amount) < c.ctx.Materiality {
			continue
		}
		item := Item{
			Code:       a.Code,
			Name:       a.Name,
			Current:    c.round(amount),
			CurrentFmt: c.fmtAmt(amount),
			Level:      c.depth[a.ID],
			IFRSRef:    a.IFRSRef,
			Material:   true,
		}
		if hasPrior {
			item.Prior = ptr(c.round(priorAmt))
			item.PriorFmt = c.fmtAmt(priorAmt)
			item.Variance, item.VariancePct = variance(amount, priorAmt, c.ctx.Precision)
		}
		sec.Items = append(sec.Items, item)
	}
	for _, row := range extras {
		total += row.amount
		item := Item{
			Code:       row.code,
			Name:       row.name,
			Current:    c.round(row.amount),
			CurrentFmt: c.fmtAmt(row.amount),
			Level:      row.level,
			IFRSRef:    row.ifrsRef,
			Material:   true,
		}
		if hasPrior {
			var priorAmt float64
			if row.prior != nil {
				priorAmt = *row.prior
			}
			priorTotal += priorAmt
			item.Prior = ptr(c.round(priorAmt))
			item.PriorFmt = c.fmtAmt(priorAmt)
			item.Variance, item.VariancePct = variance(row.amount, priorAmt, c.ctx.Precision)
		}
		sec.Items = append(sec.Items, item)
	}
	c.finishSection(&sec, total, priorTotal, hasPrior)
	return sec
}

// sectionFromRows builds an all-synthetic section, used by the cash flow
// statement whose lines are computed rather than classified.
func (c *calc) sectionFromRows(name string, rows []syntheticRow) Section {
	sec := Section{Name: name, Items: []Item{}}
	hasPrior := c.ctx.HasPrior()
	var total, priorTotal float64
	for _, row := range rows {
		total += row.amount
		var priorAmt float64
		if row.prior != nil {
			priorAmt = *row.prior
		}
		priorTotal += priorAmt
		if !row.mandatory && math.Abs(row.amount) < c.ctx.Materiality {
			continue
		}
		item := Item{
			Code:       row.code,
			Name:       row.name,
			Current:    c.round(row.amount),
			CurrentFmt: c.fmtAmt(row.amount),
			Level:      row.level,
			IFRSRef:    row.ifrsRef,
			Material:   true,
		}
		if hasPrior {
			item.Prior = ptr(c.round(priorAmt))
			item.PriorFmt = c.fmtAmt(priorAmt)
			item.Variance, item.VariancePct = variance(row.amount, priorAmt, c.ctx.Precision)
		}
		sec.Items = append(sec.Items, item)
	}
	c.finishSection(&sec, total, priorTotal, hasPrior)
	return sec
}

func (c *calc) finishSection(sec *Section, total, priorTotal float64, hasPrior bool) {
	sec.Total = c.round(total)
	sec.TotalFmt = c.fmtAmt(total)
	if hasPrior {
		sec.PriorTotal = ptr(c.round(priorTotal))
		sec.Variance, sec.VariancePct = variance(total, priorTotal, c.ctx.Precision)
	}
}

// metric wraps a derived figure with its prior comparison and revenue margin.
func (c *calc) metric(label string, amount float64, prior *float64, revenue float64) Metric {
	m := Metric{
		Label:     label,
		Amount:    c.round(amount),
		MarginPct: Round(safePercent(amount, revenue), 2),
		AmountFmt: c.fmtAmt(amount),
	}
	if c.ctx.HasPrior() && prior != nil {
		m.Prior = ptr(c.round(*prior))
		m.Variance, m.VariancePct = variance(amount, *prior, c.ctx.Precision)
	}
	return m
}

// ledgerResult is the cumulative revenue-minus-expense position for the
// given balance map, i.e. earnings retained in the ledger through that
// window's end.
func (c *calc) ledgerResult(pos map[int64]float64) float64 {
	var r float64
	for _, a := range c.accounts {
		switch a.Type {
		case ledger.AccountTypeRevenue:
			r += pos[a.ID]
		case ledger.AccountTypeExpense:
			r -= pos[a.ID]
		}
	}
	return r
}

// subsetDelta is the window movement of a classified subset, computed from
// positions (closing minus opening).
func (c *calc) subsetDelta(kind SectionKind, closing, opening map[int64]float64) float64 {
	accounts := c.classifier.Classify(c.accounts, kind)
	return sum(accounts, closing) - sum(accounts, opening)
}

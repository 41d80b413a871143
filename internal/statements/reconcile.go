package statements

import "math"

// reconcileTolerance is the largest absolute difference still treated as a
// rounding artefact rather than a reconciliation failure.
const reconcileTolerance = 0.01

// ReconcileCash proves the net cash flow against the movement on the cash
// balances. Difference carries the signed gap so a failed reconciliation is
// diagnosable from the statement itself.
func ReconcileCash(netCashFlow, openingCash, closingCash float64) CashReconciliation {
	movement := closingCash - openingCash
	diff := netCashFlow - movement
	return CashReconciliation{
		OpeningCash:  openingCash,
		ClosingCash:  closingCash,
		NetCashFlow:  netCashFlow,
		CashMovement: Round(movement, 2),
		Difference:   Round(diff, 2),
		Reconciled:   math.Abs(diff) < reconcileTolerance,
	}
}

// articulates reports whether two statement figures agree within tolerance.
func articulates(a, b float64) bool {
	return math.Abs(a-b) < reconcileTolerance
}

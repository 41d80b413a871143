package assets

import (
	"errors"
	"time"
)

// FixedAsset models one register row. Depreciation here is straight line
// over UsefulLifeMonths down to ResidualValue, charged from the acquisition
// month through the earlier of end-of-life and disposal.
type FixedAsset struct {
	ID               int64
	CompanyID        int64
	Code             string
	Name             string
	Cost             float64
	ResidualValue    float64
	UsefulLifeMonths int
	AcquiredAt       time.Time
	DisposedAt       *time.Time
	DisposalPrice    *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Adjustments carries the non-ledger derived amounts for a period. All
// values are non-negative; zero means absent. AccumulatedDepreciation is the
// register-wide total charged through the period end, used for positions
// rather than flows.
type Adjustments struct {
	Depreciation            float64
	DisposalGain            float64
	DisposalLoss            float64
	AccumulatedDepreciation float64
}

var (
	// ErrAssetNotFound indicates a missing register row.
	ErrAssetNotFound = errors.New("assets: asset not found")
)

// MonthlyDepreciation returns the straight-line charge for one month in
// service, zero when the asset cannot depreciate.
func (a FixedAsset) MonthlyDepreciation() float64 {
	if a.UsefulLifeMonths <= 0 {
		return 0
	}
	base := a.Cost - a.ResidualValue
	if base <= 0 {
		return 0
	}
	return base / float64(a.UsefulLifeMonths)
}

// monthIndex counts whole months from the acquisition month to t's month,
// zero for the acquisition month itself.
func (a FixedAsset) monthIndex(t time.Time) int {
	return (t.Year()-a.AcquiredAt.Year())*12 + int(t.Month()) - int(a.AcquiredAt.Month())
}

// AccumulatedDepreciation returns total depreciation charged through asOf,
// capped at the depreciable base. The acquisition month takes a full charge.
func (a FixedAsset) AccumulatedDepreciation(asOf time.Time) float64 {
	if asOf.Before(a.AcquiredAt) {
		return 0
	}
	months := a.monthIndex(asOf) + 1
	if months > a.UsefulLifeMonths {
		months = a.UsefulLifeMonths
	}
	if months <= 0 {
		return 0
	}
	if a.DisposedAt != nil && a.DisposedAt.Before(asOf) {
		disposed := a.monthIndex(*a.DisposedAt) + 1
		if disposed < months {
			months = disposed
		}
	}
	return float64(months) * a.MonthlyDepreciation()
}

// CarryingAmount is cost less accumulated depreciation as of a date.
func (a FixedAsset) CarryingAmount(asOf time.Time) float64 {
	return a.Cost - a.AccumulatedDepreciation(asOf)
}

// DisposalGainLoss splits the disposal result into a gain and a loss, one of
// which is always zero. Returns zeros when the asset is not disposed.
func (a FixedAsset) DisposalGainLoss() (gain, loss float64) {
	if a.DisposedAt == nil || a.DisposalPrice == nil {
		return 0, 0
	}
	diff := *a.DisposalPrice - a.CarryingAmount(*a.DisposedAt)
	if diff >= 0 {
		return diff, 0
	}
	return 0, -diff
}

// DepreciationFor returns the charge attributable to the window [start, end].
// Months are charged when the asset is in service for them: acquired on or
// before the month, not past end of life, not past disposal.
func (a FixedAsset) DepreciationFor(start, end time.Time) float64 {
	if end.Before(start) || end.Before(a.AcquiredAt) {
		return 0
	}
	monthly := a.MonthlyDepreciation()
	if monthly == 0 {
		return 0
	}
	var total float64
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		idx := a.monthIndex(cur)
		inLife := idx >= 0 && idx < a.UsefulLifeMonths
		beforeDisposal := a.DisposedAt == nil || a.monthIndex(*a.DisposedAt) >= idx
		if inLife && beforeDisposal {
			total += monthly
		}
		cur = cur.AddDate(0, 1, 0)
	}
	return total
}

package statements

import (
	"math"

	"github.com/shopspring/decimal"
)

const epsilon = 1e-9

// almostZero treats sub-epsilon magnitudes as zero to keep ratios stable.
func almostZero(v float64) bool {
	return math.Abs(v) < epsilon
}

// sanitize coerces NaN and infinities to zero. Every computed amount passes
// through here before it can reach a result.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	v = sanitize(v)
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// safePercent returns value/total expressed as a percentage, zero when the
// denominator is zero or the ratio degenerates.
func safePercent(value, total float64) float64 {
	if almostZero(total) {
		return 0
	}
	return sanitize(value / total * 100)
}

// variance returns the absolute and percentage change between a current and
// prior figure. The absolute pointer is always set; the percentage is nil
// when the prior figure is zero.
func variance(current, prior float64, places int32) (*float64, *float64) {
	abs := Round(current-prior, places)
	if almostZero(prior) {
		return &abs, nil
	}
	pct := Round((current-prior)/prior*100, 2)
	return &abs, &pct
}

// ptr copies v to the heap for optional fields.
func ptr(v float64) *float64 {
	return &v
}

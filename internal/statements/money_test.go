package statements

import (
	"math"
	"testing"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		want   float64
	}{
		{2.344, 2, 2.34},
		{2.345, 2, 2.35},
		{-2.345, 2, -2.35},
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{1234.5678, 2, 1234.57},
		{math.NaN(), 2, 0},
		{math.Inf(1), 2, 0},
	}
	for _, tc := range cases {
		if got := Round(tc.in, tc.places); got != tc.want {
			t.Fatalf("Round(%v, %d) = %v want %v", tc.in, tc.places, got, tc.want)
		}
	}
}

func TestSafePercent(t *testing.T) {
	if got := Round(safePercent(80000, 120000), 2); got != 66.67 {
		t.Fatalf("got %v want 66.67", got)
	}
	if got := safePercent(-500, 0); got != 0 {
		t.Fatalf("zero denominator: got %v want 0", got)
	}
	if got := safePercent(0, 0); got != 0 {
		t.Fatalf("zero over zero: got %v want 0", got)
	}
}

func TestVariance(t *testing.T) {
	abs, pct := variance(80000, 20000, 2)
	if abs == nil || *abs != 60000 {
		t.Fatalf("abs: got %v want 60000", abs)
	}
	if pct == nil || *pct != 300 {
		t.Fatalf("pct: got %v want 300", pct)
	}

	abs, pct = variance(500, 0, 2)
	if abs == nil || *abs != 500 {
		t.Fatalf("abs against zero prior: got %v", abs)
	}
	if pct != nil {
		t.Fatalf("pct against zero prior must be nil, got %v", *pct)
	}
}

package assets

import (
	"context"
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyDepreciation(t *testing.T) {
	a := FixedAsset{Cost: 12000, ResidualValue: 0, UsefulLifeMonths: 60}
	if got := a.MonthlyDepreciation(); got != 200 {
		t.Fatalf("MonthlyDepreciation = %v, want 200", got)
	}
	zeroLife := FixedAsset{Cost: 12000, UsefulLifeMonths: 0}
	if got := zeroLife.MonthlyDepreciation(); got != 0 {
		t.Fatalf("zero life should not depreciate, got %v", got)
	}
	residualAboveCost := FixedAsset{Cost: 100, ResidualValue: 150, UsefulLifeMonths: 12}
	if got := residualAboveCost.MonthlyDepreciation(); got != 0 {
		t.Fatalf("residual above cost should not depreciate, got %v", got)
	}
}

func TestDepreciationForWindow(t *testing.T) {
	a := FixedAsset{Cost: 2400, UsefulLifeMonths: 24, AcquiredAt: date(2025, time.March, 15)}
	// Acquisition month charges in full, months before acquisition do not.
	got := a.DepreciationFor(date(2025, time.January, 1), date(2025, time.June, 30))
	if got != 400 {
		t.Fatalf("DepreciationFor = %v, want 400 (Mar..Jun)", got)
	}
	// Past end of life nothing accrues.
	tail := a.DepreciationFor(date(2027, time.April, 1), date(2027, time.December, 31))
	if tail != 0 {
		t.Fatalf("expired asset accrued %v", tail)
	}
}

func TestDepreciationStopsAtDisposal(t *testing.T) {
	disposed := date(2025, time.April, 10)
	a := FixedAsset{Cost: 1200, UsefulLifeMonths: 12, AcquiredAt: date(2025, time.January, 1), DisposedAt: &disposed}
	got := a.DepreciationFor(date(2025, time.January, 1), date(2025, time.December, 31))
	// January through April inclusive.
	if got != 400 {
		t.Fatalf("DepreciationFor = %v, want 400", got)
	}
}

func TestDisposalGainLoss(t *testing.T) {
	disposed := date(2025, time.June, 30)
	price := 900.0
	a := FixedAsset{Cost: 1200, UsefulLifeMonths: 12, AcquiredAt: date(2025, time.January, 1), DisposedAt: &disposed, DisposalPrice: &price}
	// Six months charged: carrying 1200 - 600 = 600, price 900 -> gain 300.
	gain, loss := a.DisposalGainLoss()
	if math.Abs(gain-300) > 1e-9 || loss != 0 {
		t.Fatalf("DisposalGainLoss = (%v, %v), want (300, 0)", gain, loss)
	}
	cheap := 450.0
	a.DisposalPrice = &cheap
	gain, loss = a.DisposalGainLoss()
	if gain != 0 || math.Abs(loss-150) > 1e-9 {
		t.Fatalf("DisposalGainLoss = (%v, %v), want (0, 150)", gain, loss)
	}
}

type memoryAssetRepo struct {
	rows []FixedAsset
}

func (m *memoryAssetRepo) ListByCompany(ctx context.Context, companyID int64) ([]FixedAsset, error) {
	return m.rows, nil
}

func TestPeriodAdjustments(t *testing.T) {
	disposed := date(2025, time.May, 20)
	price := 500.0
	repo := &memoryAssetRepo{rows: []FixedAsset{
		{Cost: 2400, UsefulLifeMonths: 24, AcquiredAt: date(2025, time.January, 1)},
		{Cost: 1200, UsefulLifeMonths: 12, AcquiredAt: date(2024, time.June, 1), DisposedAt: &disposed, DisposalPrice: &price},
	}}
	svc := NewService(repo)
	adj, err := svc.PeriodAdjustments(context.Background(), 1, date(2025, time.May, 1), date(2025, time.May, 31))
	if err != nil {
		t.Fatalf("PeriodAdjustments: %v", err)
	}
	// First asset: 100 for May. Second: 100 for May (disposal month charges).
	if math.Abs(adj.Depreciation-200) > 1e-9 {
		t.Fatalf("Depreciation = %v, want 200", adj.Depreciation)
	}
	// Accumulated through May 31: 500 (Jan..May) + 1200 (full life).
	if math.Abs(adj.AccumulatedDepreciation-1700) > 1e-9 {
		t.Fatalf("AccumulatedDepreciation = %v, want 1700", adj.AccumulatedDepreciation)
	}
	// Second asset carrying at disposal: 1200 - 12*100 capped at life -> charged
	// Jun 2024..May 2025 = 12 months = 1200, carrying 0, price 500 -> gain 500.
	if math.Abs(adj.DisposalGain-500) > 1e-9 || adj.DisposalLoss != 0 {
		t.Fatalf("DisposalGain/Loss = %v/%v, want 500/0", adj.DisposalGain, adj.DisposalLoss)
	}
}

func TestPeriodAdjustmentsSkipsDisposalsOutsideWindow(t *testing.T) {
	disposed := date(2025, time.February, 5)
	price := 10.0
	repo := &memoryAssetRepo{rows: []FixedAsset{
		{Cost: 600, UsefulLifeMonths: 6, AcquiredAt: date(2025, time.January, 1), DisposedAt: &disposed, DisposalPrice: &price},
	}}
	svc := NewService(repo)
	adj, err := svc.PeriodAdjustments(context.Background(), 1, date(2025, time.March, 1), date(2025, time.March, 31))
	if err != nil {
		t.Fatalf("PeriodAdjustments: %v", err)
	}
	if adj.DisposalGain != 0 || adj.DisposalLoss != 0 {
		t.Fatalf("disposal outside window must not contribute, got %+v", adj)
	}
}

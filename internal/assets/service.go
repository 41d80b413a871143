package assets

import (
	"context"
	"fmt"
	"time"
)

// Repository abstracts register access for the service.
type Repository interface {
	ListByCompany(ctx context.Context, companyID int64) ([]FixedAsset, error)
}

// Service derives period adjustments from the register.
type Service struct {
	repo Repository
}

// NewService constructs Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// PeriodAdjustments sums straight-line depreciation for the window and the
// gains and losses of assets disposed inside it.
func (s *Service) PeriodAdjustments(ctx context.Context, companyID int64, start, end time.Time) (Adjustments, error) {
	rows, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return Adjustments{}, fmt.Errorf("assets: list register: %w", err)
	}
	var adj Adjustments
	for _, asset := range rows {
		adj.Depreciation += asset.DepreciationFor(start, end)
		adj.AccumulatedDepreciation += asset.AccumulatedDepreciation(end)
		if asset.DisposedAt == nil {
			continue
		}
		disposed := *asset.DisposedAt
		if disposed.Before(start) || disposed.After(end) {
			continue
		}
		gain, loss := asset.DisposalGainLoss()
		adj.DisposalGain += gain
		adj.DisposalLoss += loss
	}
	return adj, nil
}

package fx

import (
	"context"
	"fmt"
	"time"
)

// Service resolves rates for statement presentation conversion.
type Service struct {
	source Source
}

// NewService constructs Service over a source, typically a RateCache.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// ClosingRate resolves the closing rate converting from one currency to
// another as of a date. Identical currencies convert at 1.
func (s *Service) ClosingRate(ctx context.Context, from, to string, asOf time.Time) (float64, error) {
	if from == to {
		return 1, nil
	}
	rate, err := s.source.Rate(ctx, PairOf(from, to), asOf)
	if err != nil {
		return 0, fmt.Errorf("fx: closing rate %s->%s: %w", from, to, err)
	}
	if rate.Closing <= 0 {
		return 0, fmt.Errorf("fx: closing rate %s->%s not positive", from, to)
	}
	return rate.Closing, nil
}

// AverageRate resolves the period average rate, falling back to closing when
// the source row carries no average.
func (s *Service) AverageRate(ctx context.Context, from, to string, asOf time.Time) (float64, error) {
	if from == to {
		return 1, nil
	}
	rate, err := s.source.Rate(ctx, PairOf(from, to), asOf)
	if err != nil {
		return 0, fmt.Errorf("fx: average rate %s->%s: %w", from, to, err)
	}
	if rate.Average > 0 {
		return rate.Average, nil
	}
	if rate.Closing > 0 {
		return rate.Closing, nil
	}
	return 0, fmt.Errorf("fx: average rate %s->%s not positive", from, to)
}

package cli

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-fin/meridian-fin/internal/fx"
)

// RateStore is the slice of the FX repository the ops commands depend on.
type RateStore interface {
	MonthRate(ctx context.Context, pair string, month time.Time) (fx.Rate, error)
	UpsertRates(ctx context.Context, rates []fx.Rate) error
}

// CacheInvalidator bumps the statement response cache. Backfilled rates
// change converted statements, so cached responses must not outlive them.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// FXOpsCLI offers operational helpers for the fx_rates table backing
// statement presentation conversion.
type FXOpsCLI struct {
	store       RateStore
	invalidator CacheInvalidator
}

// NewFXOpsCLI constructs the helper around a rate store.
func NewFXOpsCLI(store RateStore) (*FXOpsCLI, error) {
	if store == nil {
		return nil, errors.New("fx cli: rate store is required")
	}
	return &FXOpsCLI{store: store}, nil
}

// WithCacheInvalidator attaches the statement cache so successful backfills
// invalidate stale converted statements. Nil leaves backfill cache-agnostic.
func (c *FXOpsCLI) WithCacheInvalidator(inv CacheInvalidator) *FXOpsCLI {
	c.invalidator = inv
	return c
}

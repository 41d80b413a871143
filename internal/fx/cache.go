package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Source yields the rate effective on a date for a pair.
type Source interface {
	Rate(ctx context.Context, pair string, asOf time.Time) (Rate, error)
}

// RateCache decorates a Source with a TTL'd Redis cache. The cache object is
// owned by the caller and shared by reference; a nil client degrades to
// direct source reads.
type RateCache struct {
	client *redis.Client
	source Source
	ttl    time.Duration
}

// NewRateCache constructs RateCache.
func NewRateCache(client *redis.Client, source Source, ttl time.Duration) *RateCache {
	return &RateCache{client: client, source: source, ttl: ttl}
}

func rateKey(pair string, asOf time.Time) string {
	return strings.Join([]string{"fx", "rate", pair, asOf.Format("2006-01-02")}, ":")
}

// Rate returns the cached rate, loading and storing it on a miss.
func (c *RateCache) Rate(ctx context.Context, pair string, asOf time.Time) (Rate, error) {
	if !ValidPair(pair) {
		return Rate{}, ErrBadPair
	}
	if c == nil {
		return Rate{}, errors.New("fx: rate cache not initialised")
	}
	if c.client == nil {
		return c.source.Rate(ctx, pair, asOf)
	}
	key := rateKey(pair, asOf)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached Rate
		if uerr := json.Unmarshal(payload, &cached); uerr == nil {
			return cached, nil
		}
		// Fall through on a corrupt payload and overwrite it.
	} else if err != redis.Nil {
		return Rate{}, fmt.Errorf("fx: cache read: %w", err)
	}
	rate, err := c.source.Rate(ctx, pair, asOf)
	if err != nil {
		return Rate{}, err
	}
	raw, err := json.Marshal(rate)
	if err != nil {
		return Rate{}, fmt.Errorf("fx: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return Rate{}, fmt.Errorf("fx: cache write: %w", err)
	}
	return rate, nil
}

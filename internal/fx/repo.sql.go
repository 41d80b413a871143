package fx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgSource reads consumed rates from the fx_rates table.
type PgSource struct {
	pool *pgxpool.Pool
}

// NewPgSource constructs PgSource.
func NewPgSource(pool *pgxpool.Pool) *PgSource {
	return &PgSource{pool: pool}
}

// Rate returns the latest rate row effective on or before asOf.
func (s *PgSource) Rate(ctx context.Context, pair string, asOf time.Time) (Rate, error) {
	var r Rate
	err := s.pool.QueryRow(ctx, `SELECT pair, closing, average, as_of
FROM fx_rates WHERE pair = $1 AND as_of <= $2 ORDER BY as_of DESC LIMIT 1`, pair, asOf).
		Scan(&r.Pair, &r.Closing, &r.Average, &r.AsOf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, ErrRateNotFound
		}
		return Rate{}, fmt.Errorf("fx: load rate: %w", err)
	}
	return r, nil
}

// MonthRate returns the latest rate row dated inside the given month. Rate
// serves any later date, so statement conversion keeps working on a stale
// row; this stricter lookup exists for the ops tooling that checks month
// coverage before close.
func (s *PgSource) MonthRate(ctx context.Context, pair string, month time.Time) (Rate, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	var r Rate
	err := s.pool.QueryRow(ctx, `SELECT pair, closing, average, as_of
FROM fx_rates WHERE pair = $1 AND as_of >= $2 AND as_of <= $3 ORDER BY as_of DESC LIMIT 1`, pair, start, end).
		Scan(&r.Pair, &r.Closing, &r.Average, &r.AsOf)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, ErrRateNotFound
		}
		return Rate{}, fmt.Errorf("fx: load month rate: %w", err)
	}
	return r, nil
}

// UpsertRates writes sourced rate rows, replacing values on a (pair, as_of)
// conflict. Closing must be positive; average may be zero when the source
// carries none.
func (s *PgSource) UpsertRates(ctx context.Context, rates []Rate) error {
	if s == nil || s.pool == nil {
		return errors.New("fx: source not initialised")
	}
	if len(rates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	const query = `
INSERT INTO fx_rates (pair, closing, average, as_of)
VALUES ($1, $2, $3, $4)
ON CONFLICT (pair, as_of)
DO UPDATE SET closing = EXCLUDED.closing, average = EXCLUDED.average`
	for _, rate := range rates {
		pair := strings.ToUpper(strings.TrimSpace(rate.Pair))
		if !ValidPair(pair) {
			return fmt.Errorf("fx: upsert: %w: %q", ErrBadPair, rate.Pair)
		}
		if rate.AsOf.IsZero() {
			return fmt.Errorf("fx: upsert: as_of required for %s", pair)
		}
		if rate.Closing <= 0 {
			return fmt.Errorf("fx: upsert: closing must be positive for %s %s", pair, rate.AsOf.Format("2006-01-02"))
		}
		if rate.Average < 0 {
			return fmt.Errorf("fx: upsert: average must not be negative for %s %s", pair, rate.AsOf.Format("2006-01-02"))
		}
		batch.Queue(query, pair, rate.Closing, rate.Average, rate.AsOf)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range rates {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("fx: upsert rates: %w", err)
		}
	}
	return nil
}

package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository reads the fixed-asset register.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const assetColumns = `id, company_id, code, name, cost, residual_value, useful_life_months, acquired_at, disposed_at, disposal_price, created_at, updated_at`

// ListByCompany returns the register for one company ordered by code.
func (r *PgRepository) ListByCompany(ctx context.Context, companyID int64) ([]FixedAsset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE company_id = $1 ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("assets: list register: %w", err)
	}
	defer rows.Close()
	var out []FixedAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get returns one register row.
func (r *PgRepository) Get(ctx context.Context, id int64) (FixedAsset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id = $1`, id)
	a, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FixedAsset{}, ErrAssetNotFound
		}
		return FixedAsset{}, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (FixedAsset, error) {
	var a FixedAsset
	err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Cost, &a.ResidualValue, &a.UsefulLifeMonths,
		&a.AcquiredAt, &a.DisposedAt, &a.DisposalPrice, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return FixedAsset{}, err
	}
	return a, nil
}

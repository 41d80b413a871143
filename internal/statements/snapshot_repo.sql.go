package statements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-fin/meridian-fin/internal/shared"
)

const snapshotColumns = `id, company_id, company_name, statement, period_code,
	COALESCE(prior_code, ''), method, status, COALESCE(error_message, ''),
	payload, requested_by, generated_at, created_at, updated_at`

// SnapshotRepository persists statement archives in PostgreSQL. The
// statement_snapshots table carries a unique index over the request scope
// (company, statement, period, prior, method) so duplicate triggers surface
// as conflicts instead of double builds.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository constructs a repository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Insert enqueues a PENDING snapshot record.
func (r *SnapshotRepository) Insert(ctx context.Context, req SnapshotRequest) (Snapshot, error) {
	priorCode := ""
	if req.Prior != nil {
		priorCode = req.Prior.Label()
	}
	snap := Snapshot{
		CompanyID:   req.CompanyID,
		CompanyName: req.CompanyName,
		Statement:   req.Statement,
		Period:      req.Period,
		Prior:       req.Prior,
		Method:      req.Method,
		Status:      SnapshotPending,
		RequestedBy: req.RequestedBy,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO statement_snapshots (company_id, company_name, statement, period_code, prior_code, method, status, requested_by)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, 'PENDING', $7)
		RETURNING id, created_at, updated_at`,
		req.CompanyID, req.CompanyName, string(req.Statement), req.Period.Label(), priorCode, string(req.Method), req.RequestedBy,
	).Scan(&snap.ID, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Snapshot{}, ErrSnapshotExists
		}
		return Snapshot{}, err
	}
	return snap, nil
}

// Get loads a snapshot by id.
func (r *SnapshotRepository) Get(ctx context.Context, id int64) (Snapshot, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM statement_snapshots WHERE id = $1`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, err
	}
	return snap, nil
}

// List returns a page of snapshots plus the unpaged total.
func (r *SnapshotRepository) List(ctx context.Context, filters SnapshotFilters) ([]Snapshot, int, error) {
	page := shared.NewPagination(filters.Page, filters.Limit, 0)

	var conditions []string
	var args []any
	argPos := 1
	if filters.CompanyID != 0 {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argPos))
		args = append(args, filters.CompanyID)
		argPos++
	}
	if filters.Statement != "" {
		conditions = append(conditions, fmt.Sprintf("statement = $%d", argPos))
		args = append(args, string(filters.Statement))
		argPos++
	}
	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(filters.Status))
		argPos++
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM statement_snapshots %s`, whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM statement_snapshots %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		snapshotColumns, whereClause, argPos, argPos+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, 0, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return snaps, total, nil
}

// UpdateStatus transitions the lifecycle state.
func (r *SnapshotRepository) UpdateStatus(ctx context.Context, id int64, status SnapshotStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE statement_snapshots SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// SavePayload stores the build output, or the failure message when errMsg is
// non-empty. generated_at is only stamped on success.
func (r *SnapshotRepository) SavePayload(ctx context.Context, id int64, payload []byte, errMsg string) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE statement_snapshots
		SET payload = $2,
		    error_message = NULLIF($3, ''),
		    generated_at = CASE WHEN $3 = '' THEN now() ELSE NULL END,
		    updated_at = now()
		WHERE id = $1`,
		id, payload, errMsg)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

// LoadPayload returns the stored archive body without the metadata columns.
func (r *SnapshotRepository) LoadPayload(ctx context.Context, id int64) (json.RawMessage, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM statement_snapshots WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return payload, nil
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var (
		snap       Snapshot
		periodCode string
		priorCode  string
		payload    []byte
	)
	if err := row.Scan(&snap.ID, &snap.CompanyID, &snap.CompanyName, &snap.Statement, &periodCode,
		&priorCode, &snap.Method, &snap.Status, &snap.Error,
		&payload, &snap.RequestedBy, &snap.GeneratedAt, &snap.CreatedAt, &snap.UpdatedAt); err != nil {
		return Snapshot{}, err
	}
	snap.Payload = payload
	period, err := ParsePeriodLabel(periodCode)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %d: %w", snap.ID, err)
	}
	snap.Period = period
	if priorCode != "" {
		prior, err := ParsePeriodLabel(priorCode)
		if err != nil {
			return Snapshot{}, fmt.Errorf("snapshot %d: %w", snap.ID, err)
		}
		snap.Prior = &prior
	}
	return snap, nil
}

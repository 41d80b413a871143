package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-fin/meridian-fin/internal/platform/db"
)

// Repository reads chart and journal data. All methods are read-only; the
// reporting engine never posts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAllAccounts returns the full chart ordered by code.
func (r *Repository) GetAllAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, type, category, subcategory, ifrs_ref, parent_id, is_active, created_at, updated_at
FROM accounts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list accounts: %w", err)
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.Subcategory, &a.IFRSRef, &a.ParentID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetEntriesForPeriod returns entries dated inside [start, end] with their
// lines. A zero start means "since inception". Both queries run inside one
// repeatable-read transaction so the entry set and its lines are a single
// consistent snapshot.
func (r *Repository) GetEntriesForPeriod(ctx context.Context, companyID int64, start, end time.Time) ([]JournalEntry, error) {
	if r == nil {
		return nil, errors.New("ledger: repository not initialised")
	}

	conds := []string{"e.date <= $1"}
	args := []any{end}
	if !start.IsZero() {
		args = append(args, start)
		conds = append(conds, fmt.Sprintf("e.date >= $%d", len(args)))
	}
	if companyID > 0 {
		args = append(args, companyID)
		conds = append(conds, fmt.Sprintf("e.company_id = $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var entries []JournalEntry
	err := db.WithSnapshotTx(ctx, r.pool, func(tx pgx.Tx) error {
		var index map[int64]int
		var err error
		entries, index, err = scanEntries(ctx, tx, where, args)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return attachLines(ctx, tx, where, args, entries, index)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func scanEntries(ctx context.Context, tx pgx.Tx, where string, args []any) ([]JournalEntry, map[int64]int, error) {
	rows, err := tx.Query(ctx, `SELECT e.id, e.number, e.company_id, e.date, e.memo
FROM journal_entries e WHERE `+where+` ORDER BY e.date, e.number`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: list entries: %w", err)
	}
	defer rows.Close()
	var entries []JournalEntry
	index := make(map[int64]int)
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Number, &e.CompanyID, &e.Date, &e.Memo); err != nil {
			return nil, nil, fmt.Errorf("ledger: scan entry: %w", err)
		}
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	return entries, index, rows.Err()
}

func attachLines(ctx context.Context, tx pgx.Tx, where string, args []any, entries []JournalEntry, index map[int64]int) error {
	rows, err := tx.Query(ctx, `SELECT l.id, l.je_id, l.account_id, l.debit, l.credit
FROM journal_lines l JOIN journal_entries e ON e.id = l.je_id
WHERE `+where+` ORDER BY l.je_id, l.id`, args...)
	if err != nil {
		return fmt.Errorf("ledger: list lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.Debit, &l.Credit); err != nil {
			return fmt.Errorf("ledger: scan line: %w", err)
		}
		if pos, ok := index[l.JournalID]; ok {
			entries[pos].Lines = append(entries[pos].Lines, l)
		}
	}
	return rows.Err()
}

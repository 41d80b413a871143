package ledger

import (
	"errors"
	"time"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// DebitNormal reports whether the type accumulates balance as debit minus
// credit. Liability, equity and revenue accounts are credit normal.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Valid reports whether the type is one of the five ledger categories.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Category and Subcategory carry
// free-text presentation labels maintained alongside the chart; IFRSRef is an
// optional standard reference shown on statement line items.
type Account struct {
	ID          int64
	Code        string
	Name        string
	Type        AccountType
	Category    string
	Subcategory string
	IFRSRef     string
	ParentID    *int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JournalEntry captures a posted entry with its lines. Entries arrive here
// already balanced; this module never mutates them.
type JournalEntry struct {
	ID        int64
	Number    int64
	CompanyID int64
	Date      time.Time
	Memo      string
	Lines     []JournalLine
}

// JournalLine stores the debit or credit amount for an account.
type JournalLine struct {
	ID        int64
	JournalID int64
	AccountID int64
	Debit     float64
	Credit    float64
}

var (
	// ErrAccountNotFound indicates a missing chart node.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrEmptyChart indicates the chart of accounts has no rows.
	ErrEmptyChart = errors.New("ledger: chart of accounts empty")
)

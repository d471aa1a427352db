package accounting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the storage operations available inside a transaction.
// Every read and write is scoped by company.
type TxRepository interface {
	AccountStore
	JournalStore
	LedgerStore
	PeriodStore
	ListCompanyIDs(ctx context.Context) ([]int64, error)
}

// AccountStore persists the chart of accounts.
type AccountStore interface {
	InsertAccount(ctx context.Context, account Account) (Account, error)
	GetAccount(ctx context.Context, companyID, id int64) (Account, error)
	GetAccountByCode(ctx context.Context, companyID int64, code string) (Account, error)
	// LockAccounts returns the requested accounts locked for update in ascending id order.
	// Unknown ids are omitted from the result.
	LockAccounts(ctx context.Context, companyID int64, ids []int64) ([]Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]Account, error)
	UpdateAccountBalance(ctx context.Context, companyID, id int64, balance decimal.Decimal) error
	SetAccountActive(ctx context.Context, companyID, id int64, active bool) error
	DeleteAccount(ctx context.Context, companyID, id int64) error
}

// JournalStore persists journal entries and their lines.
type JournalStore interface {
	NextEntryNumber(ctx context.Context, companyID int64) (string, error)
	InsertJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	GetJournalEntry(ctx context.Context, companyID, id int64) (JournalEntry, error)
	GetJournalEntryForUpdate(ctx context.Context, companyID, id int64) (JournalEntry, error)
	// UpdateJournalEntry rewrites header fields and replaces every line.
	UpdateJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	DeleteJournalEntry(ctx context.Context, companyID, id int64) error
	ListJournalEntries(ctx context.Context, filter JournalFilter) ([]JournalEntry, error)
	FindJournalBySource(ctx context.Context, companyID int64, entryType EntryType, sourceID uuid.UUID) (JournalEntry, bool, error)
}

// LedgerStore persists ledger rows.
type LedgerStore interface {
	// LatestLedgerRow returns the last row of an account in ledger order whose
	// transaction date is not after asOf. A nil asOf means the newest row.
	LatestLedgerRow(ctx context.Context, companyID, accountID int64, asOf *time.Time) (LedgerRow, bool, error)
	InsertLedgerRow(ctx context.Context, row LedgerRow) (LedgerRow, error)
	// ListLedgerRowsAfter returns rows of the same account that sort after row, ascending.
	ListLedgerRowsAfter(ctx context.Context, row LedgerRow) ([]LedgerRow, error)
	UpdateLedgerRunningBalance(ctx context.Context, companyID, rowID int64, balance decimal.Decimal) error
	ListLedgerRows(ctx context.Context, filter LedgerFilter) ([]LedgerRow, error)
	CountLedgerRows(ctx context.Context, companyID, accountID int64) (int, error)
	SumLedgerActivity(ctx context.Context, filter ActivityFilter) ([]AccountActivity, error)
}

// PeriodStore persists fiscal periods.
type PeriodStore interface {
	InsertPeriod(ctx context.Context, period Period) (Period, error)
	GetPeriod(ctx context.Context, companyID, id int64) (Period, error)
	GetPeriodForUpdate(ctx context.Context, companyID, id int64) (Period, error)
	UpdatePeriod(ctx context.Context, period Period) (Period, error)
	DeletePeriod(ctx context.Context, companyID, id int64) error
	ListPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error)
	// FindOverlappingPeriod returns a period other than excludeID intersecting [start, end].
	FindOverlappingPeriod(ctx context.Context, companyID int64, start, end time.Time, excludeID int64) (Period, bool, error)
	// FindPeriodForDate returns the period containing date, restricted to statuses when given.
	FindPeriodForDate(ctx context.Context, companyID int64, date time.Time, statuses []PeriodStatus) (Period, bool, error)
	// LockPeriodsFrom returns every period ending on or after date, ordered by
	// start date and share-locked until the transaction ends.
	LockPeriodsFrom(ctx context.Context, companyID int64, date time.Time) ([]Period, error)
}

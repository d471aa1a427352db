// Package postgres persists the ledger in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists accounting entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

var _ accounting.TxRepository = (*txRepository)(nil)

// WithTx executes fn within a repeatable-read transaction, replaying it on
// serialization failures.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, accounting.TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("accounting repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) ListCompanyIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT DISTINCT company_id FROM ledger_accounts ORDER BY company_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// accounts

const accountColumns = `id, company_id, code, name, type, sub_type, normal_balance, balance::text, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (accounting.Account, error) {
	var a accounting.Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.NormalBalance, &a.Balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func collectAccounts(rows pgx.Rows) ([]accounting.Account, error) {
	defer rows.Close()
	var accounts []accounting.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *txRepository) InsertAccount(ctx context.Context, a accounting.Account) (accounting.Account, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_accounts (company_id, code, name, type, sub_type, normal_balance, balance, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING `+accountColumns,
		a.CompanyID, a.Code, a.Name, a.Type, a.SubType, a.NormalBalance, a.Balance, a.IsActive, a.CreatedAt, a.UpdatedAt)
	inserted, err := scanAccount(row)
	if db.IsUniqueViolation(err) {
		return accounting.Account{}, &accounting.ConflictError{Entity: "account", Message: "code " + a.Code + " already exists"}
	}
	return inserted, err
}

func (r *txRepository) GetAccount(ctx context.Context, companyID, id int64) (accounting.Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM ledger_accounts WHERE company_id = $1 AND id = $2`, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return accounting.Account{}, &accounting.NotFoundError{Entity: "account", ID: id}
	}
	return a, err
}

func (r *txRepository) GetAccountByCode(ctx context.Context, companyID int64, code string) (accounting.Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM ledger_accounts WHERE company_id = $1 AND code = $2`, companyID, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return accounting.Account{}, &accounting.NotFoundError{Entity: "account", Key: code}
	}
	return a, err
}

func (r *txRepository) LockAccounts(ctx context.Context, companyID int64, ids []int64) ([]accounting.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM ledger_accounts
WHERE company_id = $1 AND id = ANY($2) ORDER BY id FOR UPDATE`, companyID, ids)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (r *txRepository) ListAccounts(ctx context.Context, filter accounting.AccountFilter) ([]accounting.Account, error) {
	var types []string
	for _, t := range filter.Types {
		types = append(types, string(t))
	}
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM ledger_accounts
WHERE company_id = $1
  AND ($2::text[] IS NULL OR type = ANY($2))
  AND (NOT $3 OR is_active)
ORDER BY code`, filter.CompanyID, types, filter.ActiveOnly)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (r *txRepository) UpdateAccountBalance(ctx context.Context, companyID, id int64, balance decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE ledger_accounts SET balance = $3, updated_at = NOW() WHERE company_id = $1 AND id = $2`, companyID, id, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &accounting.NotFoundError{Entity: "account", ID: id}
	}
	return nil
}

func (r *txRepository) SetAccountActive(ctx context.Context, companyID, id int64, active bool) error {
	tag, err := r.tx.Exec(ctx, `UPDATE ledger_accounts SET is_active = $3, updated_at = NOW() WHERE company_id = $1 AND id = $2`, companyID, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &accounting.NotFoundError{Entity: "account", ID: id}
	}
	return nil
}

func (r *txRepository) DeleteAccount(ctx context.Context, companyID, id int64) error {
	var referenced bool
	if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id = $1)`, id).Scan(&referenced); err != nil {
		return err
	}
	if referenced {
		return &accounting.ConflictError{Entity: "account", Message: "account is referenced by journal entries"}
	}
	tag, err := r.tx.Exec(ctx, `DELETE FROM ledger_accounts WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &accounting.NotFoundError{Entity: "account", ID: id}
	}
	return nil
}

// journal entries

const entryColumns = `id, company_id, number, entry_date, reference_number, description, entry_type, source_id, status, is_closing,
total_debit::text, total_credit::text, created_by, posted_by, posted_at, voided_by, voided_at, created_at, updated_at`

func scanEntry(row pgx.Row) (accounting.JournalEntry, error) {
	var e accounting.JournalEntry
	err := row.Scan(&e.ID, &e.CompanyID, &e.Number, &e.Date, &e.ReferenceNumber, &e.Description, &e.Type, &e.SourceID, &e.Status, &e.IsClosing,
		&e.TotalDebit, &e.TotalCredit, &e.CreatedBy, &e.PostedBy, &e.PostedAt, &e.VoidedBy, &e.VoidedAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *txRepository) NextEntryNumber(ctx context.Context, companyID int64) (string, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_sequences (company_id, last_value) VALUES ($1, 1)
ON CONFLICT (company_id) DO UPDATE SET last_value = journal_sequences.last_value + 1
RETURNING last_value`, companyID).Scan(&next)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JE-%06d", next), nil
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, e accounting.JournalEntry) (accounting.JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (company_id, number, entry_date, reference_number, description, entry_type, source_id, status, is_closing,
total_debit, total_credit, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14) RETURNING id`,
		e.CompanyID, e.Number, e.Date, e.ReferenceNumber, e.Description, e.Type, e.SourceID, e.Status, e.IsClosing,
		e.TotalDebit, e.TotalCredit, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	if err := row.Scan(&e.ID); err != nil {
		if db.IsUniqueViolation(err) {
			return accounting.JournalEntry{}, &accounting.ConflictError{Entity: "journal entry", Message: "source already recorded"}
		}
		return accounting.JournalEntry{}, err
	}
	lines, err := r.replaceLines(ctx, e.ID, e.Lines)
	if err != nil {
		return accounting.JournalEntry{}, err
	}
	e.Lines = lines
	return e, nil
}

func (r *txRepository) replaceLines(ctx context.Context, entryID int64, lines []accounting.JournalLine) ([]accounting.JournalLine, error) {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE journal_entry_id = $1`, entryID); err != nil {
		return nil, err
	}
	out := make([]accounting.JournalLine, 0, len(lines))
	for i, line := range lines {
		line.JournalID = entryID
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (journal_entry_id, line_no, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, entryID, i+1, line.AccountID, line.Debit, line.Credit, line.Description).Scan(&line.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (r *txRepository) loadLines(ctx context.Context, entryID int64) ([]accounting.JournalLine, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, journal_entry_id, account_id, debit::text, credit::text, description
FROM journal_lines WHERE journal_entry_id = $1 ORDER BY line_no`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []accounting.JournalLine
	for rows.Next() {
		var l accounting.JournalLine
		if err := rows.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.Debit, &l.Credit, &l.Description); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *txRepository) getEntry(ctx context.Context, companyID, id int64, forUpdate bool) (accounting.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE company_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	e, err := scanEntry(r.tx.QueryRow(ctx, query, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return accounting.JournalEntry{}, &accounting.NotFoundError{Entity: "journal entry", ID: id}
	}
	if err != nil {
		return accounting.JournalEntry{}, err
	}
	e.Lines, err = r.loadLines(ctx, e.ID)
	return e, err
}

func (r *txRepository) GetJournalEntry(ctx context.Context, companyID, id int64) (accounting.JournalEntry, error) {
	return r.getEntry(ctx, companyID, id, false)
}

func (r *txRepository) GetJournalEntryForUpdate(ctx context.Context, companyID, id int64) (accounting.JournalEntry, error) {
	return r.getEntry(ctx, companyID, id, true)
}

func (r *txRepository) UpdateJournalEntry(ctx context.Context, e accounting.JournalEntry) (accounting.JournalEntry, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE journal_entries SET entry_date = $3, reference_number = $4, description = $5, status = $6,
total_debit = $7, total_credit = $8, posted_by = $9, posted_at = $10, voided_by = $11, voided_at = $12, updated_at = $13
WHERE company_id = $1 AND id = $2`,
		e.CompanyID, e.ID, e.Date, e.ReferenceNumber, e.Description, e.Status,
		e.TotalDebit, e.TotalCredit, e.PostedBy, e.PostedAt, e.VoidedBy, e.VoidedAt, e.UpdatedAt)
	if err != nil {
		return accounting.JournalEntry{}, err
	}
	if tag.RowsAffected() == 0 {
		return accounting.JournalEntry{}, &accounting.NotFoundError{Entity: "journal entry", ID: e.ID}
	}
	if e.Status == accounting.JournalStatusDraft {
		lines, err := r.replaceLines(ctx, e.ID, e.Lines)
		if err != nil {
			return accounting.JournalEntry{}, err
		}
		e.Lines = lines
	}
	return e, nil
}

func (r *txRepository) DeleteJournalEntry(ctx context.Context, companyID, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &accounting.NotFoundError{Entity: "journal entry", ID: id}
	}
	return nil
}

func (r *txRepository) ListJournalEntries(ctx context.Context, filter accounting.JournalFilter) ([]accounting.JournalEntry, error) {
	conds := []string{"company_id = $1"}
	args := []any{filter.CompanyID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Type != "" {
		add("entry_type = $%d", filter.Type)
	}
	if filter.From != nil {
		add("entry_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("entry_date <= $%d", *filter.To)
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM journal_entries WHERE %s ORDER BY entry_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		entryColumns, strings.Join(conds, " AND "), len(args)-1, len(args))
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var entries []accounting.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Lines, err = r.loadLines(ctx, entries[i].ID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (r *txRepository) FindJournalBySource(ctx context.Context, companyID int64, entryType accounting.EntryType, sourceID uuid.UUID) (accounting.JournalEntry, bool, error) {
	e, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE company_id = $1 AND entry_type = $2 AND source_id = $3`, companyID, entryType, sourceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return accounting.JournalEntry{}, false, nil
	}
	if err != nil {
		return accounting.JournalEntry{}, false, err
	}
	return e, true, nil
}

// ledger rows

const rowColumns = `id, company_id, account_id, journal_entry_id, entry_number, transaction_date, description,
debit::text, credit::text, running_balance::text, is_closing, created_at`

func scanRow(row pgx.Row) (accounting.LedgerRow, error) {
	var l accounting.LedgerRow
	err := row.Scan(&l.ID, &l.CompanyID, &l.AccountID, &l.JournalEntryID, &l.EntryNumber, &l.TransactionDate, &l.Description,
		&l.Debit, &l.Credit, &l.RunningBalance, &l.IsClosing, &l.CreatedAt)
	return l, err
}

func collectLedgerRows(rows pgx.Rows) ([]accounting.LedgerRow, error) {
	defer rows.Close()
	var out []accounting.LedgerRow
	for rows.Next() {
		l, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *txRepository) LatestLedgerRow(ctx context.Context, companyID, accountID int64, asOf *time.Time) (accounting.LedgerRow, bool, error) {
	l, err := scanRow(r.tx.QueryRow(ctx, `SELECT `+rowColumns+` FROM ledger_rows
WHERE company_id = $1 AND account_id = $2 AND ($3::timestamptz IS NULL OR transaction_date <= $3)
ORDER BY transaction_date DESC, created_at DESC, id DESC LIMIT 1`, companyID, accountID, asOf))
	if errors.Is(err, pgx.ErrNoRows) {
		return accounting.LedgerRow{}, false, nil
	}
	if err != nil {
		return accounting.LedgerRow{}, false, err
	}
	return l, true, nil
}

func (r *txRepository) InsertLedgerRow(ctx context.Context, l accounting.LedgerRow) (accounting.LedgerRow, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO ledger_rows (company_id, account_id, journal_entry_id, entry_number, transaction_date, description,
debit, credit, running_balance, is_closing)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at`,
		l.CompanyID, l.AccountID, l.JournalEntryID, l.EntryNumber, l.TransactionDate, l.Description,
		l.Debit, l.Credit, l.RunningBalance, l.IsClosing).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return accounting.LedgerRow{}, err
	}
	return l, nil
}

func (r *txRepository) ListLedgerRowsAfter(ctx context.Context, l accounting.LedgerRow) ([]accounting.LedgerRow, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+rowColumns+` FROM ledger_rows
WHERE company_id = $1 AND account_id = $2 AND (transaction_date, created_at, id) > ($3, $4, $5)
ORDER BY transaction_date, created_at, id`, l.CompanyID, l.AccountID, l.TransactionDate, l.CreatedAt, l.ID)
	if err != nil {
		return nil, err
	}
	return collectLedgerRows(rows)
}

func (r *txRepository) UpdateLedgerRunningBalance(ctx context.Context, companyID, rowID int64, balance decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE ledger_rows SET running_balance = $3 WHERE company_id = $1 AND id = $2`, companyID, rowID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &accounting.NotFoundError{Entity: "ledger row", ID: rowID}
	}
	return nil
}

func (r *txRepository) ListLedgerRows(ctx context.Context, filter accounting.LedgerFilter) ([]accounting.LedgerRow, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+rowColumns+` FROM ledger_rows
WHERE company_id = $1
  AND ($2::bigint = 0 OR account_id = $2)
  AND ($3::bigint = 0 OR journal_entry_id = $3)
  AND ($4::timestamptz IS NULL OR transaction_date >= $4)
  AND ($5::timestamptz IS NULL OR transaction_date <= $5)
ORDER BY transaction_date, created_at, id`, filter.CompanyID, filter.AccountID, filter.JournalEntryID, filter.From, filter.To)
	if err != nil {
		return nil, err
	}
	return collectLedgerRows(rows)
}

func (r *txRepository) CountLedgerRows(ctx context.Context, companyID, accountID int64) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_rows WHERE company_id = $1 AND account_id = $2`, companyID, accountID).Scan(&count)
	return count, err
}

func (r *txRepository) SumLedgerActivity(ctx context.Context, filter accounting.ActivityFilter) ([]accounting.AccountActivity, error) {
	rows, err := r.tx.Query(ctx, `SELECT account_id, COALESCE(SUM(debit), 0)::text, COALESCE(SUM(credit), 0)::text
FROM ledger_rows
WHERE company_id = $1
  AND ($2::timestamptz IS NULL OR transaction_date >= $2)
  AND ($3::timestamptz IS NULL OR transaction_date <= $3)
  AND (NOT $4 OR NOT is_closing)
GROUP BY account_id
ORDER BY account_id`, filter.CompanyID, filter.From, filter.To, filter.ExcludeClosing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []accounting.AccountActivity
	for rows.Next() {
		var a accounting.AccountActivity
		if err := rows.Scan(&a.AccountID, &a.Debit, &a.Credit); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// periods

const periodColumns = `id, company_id, name, period_type, fiscal_year, start_date, end_date, status, closed_by, closed_at,
closing_journal_entry_id, notes, created_at, updated_at`

func scanPeriod(row pgx.Row) (accounting.Period, error) {
	var p accounting.Period
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Type, &p.FiscalYear, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedBy, &p.ClosedAt,
		&p.ClosingJournalEntryID, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectPeriods(rows pgx.Rows) ([]accounting.Period, error) {
	defer rows.Close()
	var out []accounting.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *txRepository) InsertPeriod(ctx context.Context, p accounting.Period) (accounting.Period, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO accounting_periods (company_id, name, period_type, fiscal_year, start_date, end_date, status, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		p.CompanyID, p.Name, p.Type, p.FiscalYear, p.StartDate, p.EndDate, p.Status, p.Notes, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return accounting.Period{}, err
	}
	return p, nil
}

func (r *txRepository) getPeriod(ctx context.Context, companyID, id int64, forUpdate bool) (accounting.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM accounting_periods WHERE company_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanPeriod(r.tx.QueryRow(ctx, query, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return accounting.Period{}, &accounting.NotFoundError{Entity: "period", ID: id}
	}
	return p, err
}

func (r *txRepository) GetPeriod(ctx context.Context, companyID, id int64) (accounting.Period, error) {
	return r.getPeriod(ctx, companyID, id, false)
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, companyID, id int64) (accounting.Period, error) {
	return r.getPeriod(ctx, companyID, id, true)
}

func (r *txRepository) UpdatePeriod(ctx context.Context, p accounting.Period) (accounting.Period, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE accounting_periods SET name = $3, period_type = $4, start_date = $5, end_date = $6, status = $7,
closed_by = $8, closed_at = $9, closing_journal_entry_id = $10, notes = $11, updated_at = $12
WHERE company_id = $1 AND id = $2`,
		p.CompanyID, p.ID, p.Name, p.Type, p.StartDate, p.EndDate, p.Status,
		p.ClosedBy, p.ClosedAt, p.ClosingJournalEntryID, p.Notes, p.UpdatedAt)
	if err != nil {
		return accounting.Period{}, err
	}
	if tag.RowsAffected() == 0 {
		return accounting.Period{}, &accounting.NotFoundError{Entity: "period", ID: p.ID}
	}
	return p, nil
}

func (r *txRepository) DeletePeriod(ctx context.Context, companyID, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM accounting_periods WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &accounting.NotFoundError{Entity: "period", ID: id}
	}
	return nil
}

func (r *txRepository) ListPeriods(ctx context.Context, filter accounting.PeriodFilter) ([]accounting.Period, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE company_id = $1
  AND ($2::int = 0 OR fiscal_year = $2)
  AND ($3::text = '' OR status = $3)
ORDER BY start_date`, filter.CompanyID, filter.FiscalYear, string(filter.Status))
	if err != nil {
		return nil, err
	}
	return collectPeriods(rows)
}

func (r *txRepository) FindOverlappingPeriod(ctx context.Context, companyID int64, start, end time.Time, excludeID int64) (accounting.Period, bool, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE company_id = $1 AND id <> $4 AND start_date <= $3::date AND end_date >= $2::date
ORDER BY start_date LIMIT 1`, companyID, start, end, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return accounting.Period{}, false, nil
	}
	if err != nil {
		return accounting.Period{}, false, err
	}
	return p, true, nil
}

func (r *txRepository) FindPeriodForDate(ctx context.Context, companyID int64, date time.Time, statuses []accounting.PeriodStatus) (accounting.Period, bool, error) {
	var filter []string
	for _, s := range statuses {
		filter = append(filter, string(s))
	}
	p, err := scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE company_id = $1 AND $2::date BETWEEN start_date AND end_date
  AND ($3::text[] IS NULL OR status = ANY($3))
ORDER BY start_date LIMIT 1`, companyID, date, filter))
	if errors.Is(err, pgx.ErrNoRows) {
		return accounting.Period{}, false, nil
	}
	if err != nil {
		return accounting.Period{}, false, err
	}
	return p, true, nil
}

func (r *txRepository) LockPeriodsFrom(ctx context.Context, companyID int64, date time.Time) ([]accounting.Period, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE company_id = $1 AND end_date >= $2::date
ORDER BY start_date
FOR SHARE`, companyID, accounting.LedgerDay(date))
	if err != nil {
		return nil, err
	}
	return collectPeriods(rows)
}

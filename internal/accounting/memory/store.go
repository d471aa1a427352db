// Package memory provides a transactional in-memory ledger store for
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// Store runs every transaction under a single writer lock against a private
// copy of the state. The copy replaces the committed state only when the
// callback succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

type sourceKey struct {
	companyID int64
	entryType accounting.EntryType
	sourceID  uuid.UUID
}

type state struct {
	accounts  map[int64]accounting.Account
	entries   map[int64]accounting.JournalEntry
	sources   map[sourceKey]int64
	rows      map[int64]accounting.LedgerRow
	rowIndex  map[int64][]int64 // account id -> row ids in ledger order
	periods   map[int64]accounting.Period
	sequences map[int64]int64

	nextAccountID int64
	nextEntryID   int64
	nextLineID    int64
	nextRowID     int64
	nextPeriodID  int64
}

func newState() *state {
	return &state{
		accounts:  make(map[int64]accounting.Account),
		entries:   make(map[int64]accounting.JournalEntry),
		sources:   make(map[sourceKey]int64),
		rows:      make(map[int64]accounting.LedgerRow),
		rowIndex:  make(map[int64][]int64),
		periods:   make(map[int64]accounting.Period),
		sequences: make(map[int64]int64),
	}
}

func (s *state) clone() *state {
	out := &state{
		accounts:      make(map[int64]accounting.Account, len(s.accounts)),
		entries:       make(map[int64]accounting.JournalEntry, len(s.entries)),
		sources:       make(map[sourceKey]int64, len(s.sources)),
		rows:          make(map[int64]accounting.LedgerRow, len(s.rows)),
		rowIndex:      make(map[int64][]int64, len(s.rowIndex)),
		periods:       make(map[int64]accounting.Period, len(s.periods)),
		sequences:     make(map[int64]int64, len(s.sequences)),
		nextAccountID: s.nextAccountID,
		nextEntryID:   s.nextEntryID,
		nextLineID:    s.nextLineID,
		nextRowID:     s.nextRowID,
		nextPeriodID:  s.nextPeriodID,
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	for k, v := range s.sources {
		out.sources[k] = v
	}
	for k, v := range s.rows {
		out.rows[k] = v
	}
	for k, v := range s.rowIndex {
		out.rowIndex[k] = append([]int64(nil), v...)
	}
	for k, v := range s.periods {
		out.periods[k] = v
	}
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	return out
}

// WithTx runs fn against a snapshot and commits it when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, accounting.TxRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(ctx, &tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// SetAccountBalance overwrites a cached balance outside the ledger. It exists
// to simulate drift in tests and maintenance tooling.
func (s *Store) SetAccountBalance(companyID, accountID int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.state.accounts[accountID]
	if !ok || account.CompanyID != companyID {
		return &accounting.NotFoundError{Entity: "account", ID: accountID}
	}
	account.Balance = balance
	s.state.accounts[accountID] = account
	return nil
}

type tx struct {
	st  *state
	now func() time.Time
}

var _ accounting.TxRepository = (*tx)(nil)

func cloneEntry(entry accounting.JournalEntry) accounting.JournalEntry {
	entry.Lines = append([]accounting.JournalLine(nil), entry.Lines...)
	return entry
}

func (t *tx) ListCompanyIDs(ctx context.Context) ([]int64, error) {
	seen := make(map[int64]struct{})
	for _, account := range t.st.accounts {
		seen[account.CompanyID] = struct{}{}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// accounts

func (t *tx) InsertAccount(ctx context.Context, account accounting.Account) (accounting.Account, error) {
	for _, existing := range t.st.accounts {
		if existing.CompanyID == account.CompanyID && existing.Code == account.Code {
			return accounting.Account{}, &accounting.ConflictError{Entity: "account", Message: "code " + account.Code + " already exists"}
		}
	}
	t.st.nextAccountID++
	account.ID = t.st.nextAccountID
	t.st.accounts[account.ID] = account
	return account, nil
}

func (t *tx) GetAccount(ctx context.Context, companyID, id int64) (accounting.Account, error) {
	account, ok := t.st.accounts[id]
	if !ok || account.CompanyID != companyID {
		return accounting.Account{}, &accounting.NotFoundError{Entity: "account", ID: id}
	}
	return account, nil
}

func (t *tx) GetAccountByCode(ctx context.Context, companyID int64, code string) (accounting.Account, error) {
	for _, account := range t.st.accounts {
		if account.CompanyID == companyID && account.Code == code {
			return account, nil
		}
	}
	return accounting.Account{}, &accounting.NotFoundError{Entity: "account", Key: code}
}

func (t *tx) LockAccounts(ctx context.Context, companyID int64, ids []int64) ([]accounting.Account, error) {
	out := make([]accounting.Account, 0, len(ids))
	for _, id := range ids {
		if account, ok := t.st.accounts[id]; ok && account.CompanyID == companyID {
			out = append(out, account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) ListAccounts(ctx context.Context, filter accounting.AccountFilter) ([]accounting.Account, error) {
	types := make(map[accounting.AccountType]bool, len(filter.Types))
	for _, typ := range filter.Types {
		types[typ] = true
	}
	var out []accounting.Account
	for _, account := range t.st.accounts {
		if account.CompanyID != filter.CompanyID {
			continue
		}
		if len(types) > 0 && !types[account.Type] {
			continue
		}
		if filter.ActiveOnly && !account.IsActive {
			continue
		}
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (t *tx) UpdateAccountBalance(ctx context.Context, companyID, id int64, balance decimal.Decimal) error {
	account, err := t.GetAccount(ctx, companyID, id)
	if err != nil {
		return err
	}
	account.Balance = balance
	account.UpdatedAt = t.now()
	t.st.accounts[id] = account
	return nil
}

func (t *tx) SetAccountActive(ctx context.Context, companyID, id int64, active bool) error {
	account, err := t.GetAccount(ctx, companyID, id)
	if err != nil {
		return err
	}
	account.IsActive = active
	account.UpdatedAt = t.now()
	t.st.accounts[id] = account
	return nil
}

func (t *tx) DeleteAccount(ctx context.Context, companyID, id int64) error {
	if _, err := t.GetAccount(ctx, companyID, id); err != nil {
		return err
	}
	for _, entry := range t.st.entries {
		for _, line := range entry.Lines {
			if line.AccountID == id {
				return &accounting.ConflictError{Entity: "account", Message: fmt.Sprintf("account is referenced by journal entry %s", entry.Number)}
			}
		}
	}
	delete(t.st.accounts, id)
	delete(t.st.rowIndex, id)
	return nil
}

// journal entries

func (t *tx) NextEntryNumber(ctx context.Context, companyID int64) (string, error) {
	t.st.sequences[companyID]++
	return fmt.Sprintf("JE-%06d", t.st.sequences[companyID]), nil
}

func (t *tx) InsertJournalEntry(ctx context.Context, entry accounting.JournalEntry) (accounting.JournalEntry, error) {
	if entry.SourceID != nil {
		key := sourceKey{companyID: entry.CompanyID, entryType: entry.Type, sourceID: *entry.SourceID}
		if _, exists := t.st.sources[key]; exists {
			return accounting.JournalEntry{}, &accounting.ConflictError{Entity: "journal entry", Message: "source already recorded"}
		}
	}
	t.st.nextEntryID++
	entry.ID = t.st.nextEntryID
	entry = t.assignLines(entry)
	t.st.entries[entry.ID] = entry
	if entry.SourceID != nil {
		t.st.sources[sourceKey{companyID: entry.CompanyID, entryType: entry.Type, sourceID: *entry.SourceID}] = entry.ID
	}
	return cloneEntry(entry), nil
}

func (t *tx) assignLines(entry accounting.JournalEntry) accounting.JournalEntry {
	lines := make([]accounting.JournalLine, len(entry.Lines))
	for i, line := range entry.Lines {
		t.st.nextLineID++
		line.ID = t.st.nextLineID
		line.JournalID = entry.ID
		lines[i] = line
	}
	entry.Lines = lines
	return entry
}

func (t *tx) GetJournalEntry(ctx context.Context, companyID, id int64) (accounting.JournalEntry, error) {
	entry, ok := t.st.entries[id]
	if !ok || entry.CompanyID != companyID {
		return accounting.JournalEntry{}, &accounting.NotFoundError{Entity: "journal entry", ID: id}
	}
	return cloneEntry(entry), nil
}

func (t *tx) GetJournalEntryForUpdate(ctx context.Context, companyID, id int64) (accounting.JournalEntry, error) {
	return t.GetJournalEntry(ctx, companyID, id)
}

func (t *tx) UpdateJournalEntry(ctx context.Context, entry accounting.JournalEntry) (accounting.JournalEntry, error) {
	if _, err := t.GetJournalEntry(ctx, entry.CompanyID, entry.ID); err != nil {
		return accounting.JournalEntry{}, err
	}
	entry = t.assignLines(entry)
	t.st.entries[entry.ID] = entry
	return cloneEntry(entry), nil
}

func (t *tx) DeleteJournalEntry(ctx context.Context, companyID, id int64) error {
	entry, err := t.GetJournalEntry(ctx, companyID, id)
	if err != nil {
		return err
	}
	if entry.SourceID != nil {
		delete(t.st.sources, sourceKey{companyID: entry.CompanyID, entryType: entry.Type, sourceID: *entry.SourceID})
	}
	delete(t.st.entries, id)
	return nil
}

func (t *tx) ListJournalEntries(ctx context.Context, filter accounting.JournalFilter) ([]accounting.JournalEntry, error) {
	var out []accounting.JournalEntry
	for _, entry := range t.st.entries {
		if entry.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.Type != "" && entry.Type != filter.Type {
			continue
		}
		if filter.From != nil && entry.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.Date.After(*filter.To) {
			continue
		}
		out = append(out, cloneEntry(entry))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (t *tx) FindJournalBySource(ctx context.Context, companyID int64, entryType accounting.EntryType, sourceID uuid.UUID) (accounting.JournalEntry, bool, error) {
	id, ok := t.st.sources[sourceKey{companyID: companyID, entryType: entryType, sourceID: sourceID}]
	if !ok {
		return accounting.JournalEntry{}, false, nil
	}
	return cloneEntry(t.st.entries[id]), true, nil
}

// ledger rows

func (t *tx) LatestLedgerRow(ctx context.Context, companyID, accountID int64, asOf *time.Time) (accounting.LedgerRow, bool, error) {
	ids := t.st.rowIndex[accountID]
	for i := len(ids) - 1; i >= 0; i-- {
		row := t.st.rows[ids[i]]
		if row.CompanyID != companyID {
			continue
		}
		if asOf != nil && row.TransactionDate.After(*asOf) {
			continue
		}
		return row, true, nil
	}
	return accounting.LedgerRow{}, false, nil
}

func (t *tx) InsertLedgerRow(ctx context.Context, row accounting.LedgerRow) (accounting.LedgerRow, error) {
	t.st.nextRowID++
	row.ID = t.st.nextRowID
	if row.CreatedAt.IsZero() {
		row.CreatedAt = t.now()
	}
	t.st.rows[row.ID] = row
	ids := t.st.rowIndex[row.AccountID]
	pos := sort.Search(len(ids), func(i int) bool {
		return row.Before(t.st.rows[ids[i]])
	})
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = row.ID
	t.st.rowIndex[row.AccountID] = ids
	return row, nil
}

func (t *tx) ListLedgerRowsAfter(ctx context.Context, row accounting.LedgerRow) ([]accounting.LedgerRow, error) {
	var out []accounting.LedgerRow
	for _, id := range t.st.rowIndex[row.AccountID] {
		candidate := t.st.rows[id]
		if candidate.CompanyID == row.CompanyID && row.Before(candidate) {
			out = append(out, candidate)
		}
	}
	return out, nil
}

func (t *tx) UpdateLedgerRunningBalance(ctx context.Context, companyID, rowID int64, balance decimal.Decimal) error {
	row, ok := t.st.rows[rowID]
	if !ok || row.CompanyID != companyID {
		return &accounting.NotFoundError{Entity: "ledger row", ID: rowID}
	}
	row.RunningBalance = balance
	t.st.rows[rowID] = row
	return nil
}

func (t *tx) ListLedgerRows(ctx context.Context, filter accounting.LedgerFilter) ([]accounting.LedgerRow, error) {
	var out []accounting.LedgerRow
	for _, row := range t.st.rows {
		if row.CompanyID != filter.CompanyID {
			continue
		}
		if filter.AccountID > 0 && row.AccountID != filter.AccountID {
			continue
		}
		if filter.JournalEntryID > 0 && row.JournalEntryID != filter.JournalEntryID {
			continue
		}
		if filter.From != nil && row.TransactionDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && row.TransactionDate.After(*filter.To) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (t *tx) CountLedgerRows(ctx context.Context, companyID, accountID int64) (int, error) {
	count := 0
	for _, id := range t.st.rowIndex[accountID] {
		if t.st.rows[id].CompanyID == companyID {
			count++
		}
	}
	return count, nil
}

func (t *tx) SumLedgerActivity(ctx context.Context, filter accounting.ActivityFilter) ([]accounting.AccountActivity, error) {
	totals := make(map[int64]*accounting.AccountActivity)
	for _, row := range t.st.rows {
		if row.CompanyID != filter.CompanyID {
			continue
		}
		if filter.ExcludeClosing && row.IsClosing {
			continue
		}
		if filter.From != nil && row.TransactionDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && row.TransactionDate.After(*filter.To) {
			continue
		}
		agg, ok := totals[row.AccountID]
		if !ok {
			agg = &accounting.AccountActivity{AccountID: row.AccountID, Debit: decimal.Zero, Credit: decimal.Zero}
			totals[row.AccountID] = agg
		}
		agg.Debit = agg.Debit.Add(row.Debit)
		agg.Credit = agg.Credit.Add(row.Credit)
	}
	out := make([]accounting.AccountActivity, 0, len(totals))
	for _, agg := range totals {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// periods

func (t *tx) InsertPeriod(ctx context.Context, period accounting.Period) (accounting.Period, error) {
	t.st.nextPeriodID++
	period.ID = t.st.nextPeriodID
	t.st.periods[period.ID] = period
	return period, nil
}

func (t *tx) GetPeriod(ctx context.Context, companyID, id int64) (accounting.Period, error) {
	period, ok := t.st.periods[id]
	if !ok || period.CompanyID != companyID {
		return accounting.Period{}, &accounting.NotFoundError{Entity: "period", ID: id}
	}
	return period, nil
}

func (t *tx) GetPeriodForUpdate(ctx context.Context, companyID, id int64) (accounting.Period, error) {
	return t.GetPeriod(ctx, companyID, id)
}

func (t *tx) UpdatePeriod(ctx context.Context, period accounting.Period) (accounting.Period, error) {
	if _, err := t.GetPeriod(ctx, period.CompanyID, period.ID); err != nil {
		return accounting.Period{}, err
	}
	t.st.periods[period.ID] = period
	return period, nil
}

func (t *tx) DeletePeriod(ctx context.Context, companyID, id int64) error {
	if _, err := t.GetPeriod(ctx, companyID, id); err != nil {
		return err
	}
	delete(t.st.periods, id)
	return nil
}

func (t *tx) ListPeriods(ctx context.Context, filter accounting.PeriodFilter) ([]accounting.Period, error) {
	var out []accounting.Period
	for _, period := range t.st.periods {
		if period.CompanyID != filter.CompanyID {
			continue
		}
		if filter.FiscalYear > 0 && period.FiscalYear != filter.FiscalYear {
			continue
		}
		if filter.Status != "" && period.Status != filter.Status {
			continue
		}
		out = append(out, period)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (t *tx) FindOverlappingPeriod(ctx context.Context, companyID int64, start, end time.Time, excludeID int64) (accounting.Period, bool, error) {
	periods, _ := t.ListPeriods(ctx, accounting.PeriodFilter{CompanyID: companyID})
	for _, period := range periods {
		if period.ID == excludeID {
			continue
		}
		if period.Overlaps(start, end) {
			return period, true, nil
		}
	}
	return accounting.Period{}, false, nil
}

func (t *tx) FindPeriodForDate(ctx context.Context, companyID int64, date time.Time, statuses []accounting.PeriodStatus) (accounting.Period, bool, error) {
	periods, _ := t.ListPeriods(ctx, accounting.PeriodFilter{CompanyID: companyID})
	for _, period := range periods {
		if !period.Contains(date) {
			continue
		}
		if len(statuses) == 0 {
			return period, true, nil
		}
		for _, status := range statuses {
			if period.Status == status {
				return period, true, nil
			}
		}
	}
	return accounting.Period{}, false, nil
}

func (t *tx) LockPeriodsFrom(ctx context.Context, companyID int64, date time.Time) ([]accounting.Period, error) {
	periods, _ := t.ListPeriods(ctx, accounting.PeriodFilter{CompanyID: companyID})
	day := accounting.LedgerDay(date)
	out := periods[:0]
	for _, period := range periods {
		if !accounting.LedgerDay(period.EndDate).Before(day) {
			out = append(out, period)
		}
	}
	return out, nil
}

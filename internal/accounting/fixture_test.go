package accounting_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/memory"
	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

const (
	companyID int64 = 1
	actorID   int64 = 42
)

var fixedNow = time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *accounting.Service
	store *memory.Store

	cash    accounting.Account
	payable accounting.Account
	revenue accounting.Account
	expense accounting.Account
}

func newFixture(t *testing.T, cfg accounting.ServiceConfig) *fixture {
	t.Helper()
	store := memory.New()
	return newFixtureWithRepo(t, store, store, cfg)
}

func newFixtureWithRepo(t *testing.T, store *memory.Store, repo accounting.RepositoryPort, cfg accounting.ServiceConfig) *fixture {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	svc := accounting.NewService(repo, cfg)
	svc.WithNow(func() time.Time { return fixedNow })

	f := &fixture{svc: svc, store: store}
	f.cash = f.account(t, "1100", "Cash", accounting.AccountTypeAsset)
	f.payable = f.account(t, "2100", "Accounts Payable", accounting.AccountTypeLiability)
	f.revenue = f.account(t, "4100", "Sales", accounting.AccountTypeRevenue)
	f.expense = f.account(t, "5100", "Rent", accounting.AccountTypeExpense)
	return f
}

func (f *fixture) account(t *testing.T, code, name string, typ accounting.AccountType) accounting.Account {
	t.Helper()
	account, err := f.svc.CreateAccount(context.Background(), accounting.CreateAccountInput{
		CompanyID: companyID,
		Code:      code,
		Name:      name,
		Type:      typ,
	})
	require.NoError(t, err)
	return account
}

func (f *fixture) draft(t *testing.T, date time.Time, lines ...accounting.JournalLineInput) accounting.JournalEntry {
	t.Helper()
	entry, err := f.svc.CreateJournalEntry(context.Background(), accounting.CreateJournalInput{
		CompanyID:   companyID,
		ActorID:     actorID,
		Date:        date,
		Description: "test entry",
		Lines:       lines,
	})
	require.NoError(t, err)
	return entry
}

func (f *fixture) post(t *testing.T, date time.Time, lines ...accounting.JournalLineInput) accounting.JournalEntry {
	t.Helper()
	entry := f.draft(t, date, lines...)
	posted, err := f.svc.PostJournalEntry(context.Background(), companyID, entry.ID, actorID)
	require.NoError(t, err)
	return posted
}

func (f *fixture) balance(t *testing.T, account accounting.Account) decimal.Decimal {
	t.Helper()
	got, err := f.svc.AccountBalanceAsOf(context.Background(), companyID, account.ID, nil)
	require.NoError(t, err)
	return got.Balance
}

func (f *fixture) cached(t *testing.T, account accounting.Account) decimal.Decimal {
	t.Helper()
	got, err := f.svc.GetAccount(context.Background(), companyID, account.ID)
	require.NoError(t, err)
	return got.Balance
}

func (f *fixture) rows(t *testing.T, account accounting.Account) []accounting.LedgerRow {
	t.Helper()
	rows, err := f.svc.ListLedgerRows(context.Background(), accounting.LedgerFilter{CompanyID: companyID, AccountID: account.ID})
	require.NoError(t, err)
	return rows
}

// requireReplay re-sums the account's rows in ledger order and compares every
// stored running balance.
func (f *fixture) requireReplay(t *testing.T, account accounting.Account) {
	t.Helper()
	running := decimal.Zero
	for _, row := range f.rows(t, account) {
		running = running.Add(account.NormalBalance.SignedDelta(row.Debit, row.Credit))
		require.True(t, running.Equal(row.RunningBalance), "row %d of %s: want %s got %s", row.ID, account.Code, running, row.RunningBalance)
	}
	require.True(t, running.Equal(f.cached(t, account)), "cached balance of %s", account.Code)
}

func debit(account accounting.Account, amount string) accounting.JournalLineInput {
	return accounting.JournalLineInput{AccountID: account.ID, Debit: dec(amount), Credit: decimal.Zero}
}

func credit(account accounting.Account, amount string) accounting.JournalLineInput {
	return accounting.JournalLineInput{AccountID: account.ID, Debit: decimal.Zero, Credit: dec(amount)}
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s got %s", want, got)
}

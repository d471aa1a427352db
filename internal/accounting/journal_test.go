package accounting_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

func TestCreateJournalEntryComputesTotals(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})

	entry := f.draft(t, day(2025, 1, 10), debit(f.cash, "100"), credit(f.revenue, "100"))

	require.Equal(t, accounting.JournalStatusDraft, entry.Status)
	require.Equal(t, accounting.EntryTypeManual, entry.Type)
	require.Equal(t, "JE-000001", entry.Number)
	requireAmount(t, "100", entry.TotalDebit)
	requireAmount(t, "100", entry.TotalCredit)
	require.Len(t, entry.Lines, 2)
	require.Empty(t, f.rows(t, f.cash), "drafts never reach the ledger")
}

func TestCreateJournalEntryRejectsUnbalanced(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})

	_, err := f.svc.CreateJournalEntry(context.Background(), accounting.CreateJournalInput{
		CompanyID: companyID,
		Date:      day(2025, 1, 10),
		Lines:     []accounting.JournalLineInput{debit(f.cash, "100"), credit(f.revenue, "90")},
	})
	require.ErrorIs(t, err, accounting.ErrValidation)
	var unbalanced *accounting.UnbalancedEntryError
	require.True(t, errors.As(err, &unbalanced))
	require.Contains(t, err.Error(), "100")
	require.Contains(t, err.Error(), "90")

	entries, err := f.svc.ListJournalEntries(context.Background(), accounting.JournalFilter{CompanyID: companyID})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestCreateJournalEntryToleratesRoundingGap(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})

	entry := f.draft(t, day(2025, 1, 10), debit(f.cash, "100.01"), credit(f.revenue, "100"))
	requireAmount(t, "100.01", entry.TotalDebit)
}

func TestCreateJournalEntryLineValidation(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})
	other, err := f.svc.CreateAccount(context.Background(), accounting.CreateAccountInput{
		CompanyID: 2, Code: "1100", Name: "Cash", Type: accounting.AccountTypeAsset,
	})
	require.NoError(t, err)

	cases := []struct {
		name  string
		lines []accounting.JournalLineInput
		want  string
	}{
		{name: "no lines", want: "at least one line"},
		{
			name:  "both sides",
			lines: []accounting.JournalLineInput{{AccountID: f.cash.ID, Debit: dec("5"), Credit: dec("5")}},
			want:  "exactly one of debit or credit",
		},
		{
			name:  "negative",
			lines: []accounting.JournalLineInput{{AccountID: f.cash.ID, Debit: dec("-5")}, credit(f.revenue, "5")},
			want:  "cannot be negative",
		},
		{
			name:  "sub-cent precision beyond storage",
			lines: []accounting.JournalLineInput{debit(f.cash, "0.00001"), credit(f.revenue, "0.00001")},
			want:  "at most 4 decimal places",
		},
		{
			name:  "foreign account",
			lines: []accounting.JournalLineInput{debit(other, "5"), credit(f.revenue, "5")},
			want:  "does not exist for this company",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateJournalEntry(context.Background(), accounting.CreateJournalInput{
				CompanyID: companyID,
				Date:      day(2025, 1, 10),
				Lines:     tc.lines,
			})
			require.ErrorIs(t, err, accounting.ErrValidation)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCreateJournalEntryRejectsArchivedAccount(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})
	_, err := f.svc.ArchiveAccount(context.Background(), companyID, f.expense.ID, actorID)
	require.NoError(t, err)

	_, err = f.svc.CreateJournalEntry(context.Background(), accounting.CreateJournalInput{
		CompanyID: companyID,
		Date:      day(2025, 1, 10),
		Lines:     []accounting.JournalLineInput{debit(f.expense, "5"), credit(f.cash, "5")},
	})
	require.ErrorIs(t, err, accounting.ErrValidation)
	require.Contains(t, err.Error(), "5100 is archived")
}

func TestCreateJournalEntryRejectsDuplicateSource(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})
	source := uuid.New()
	input := accounting.CreateJournalInput{
		CompanyID: companyID,
		Date:      day(2025, 1, 10),
		Type:      accounting.EntryTypeAutoInvoice,
		SourceID:  &source,
		Lines:     []accounting.JournalLineInput{debit(f.cash, "10"), credit(f.revenue, "10")},
	}

	first, err := f.svc.CreateJournalEntry(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, accounting.EntryTypeAutoInvoice, first.Type)

	_, err = f.svc.CreateJournalEntry(context.Background(), input)
	require.ErrorIs(t, err, accounting.ErrConflict)
	require.Contains(t, err.Error(), first.Number)

	input.SourceID = nil
	_, err = f.svc.CreateJournalEntry(context.Background(), input)
	require.ErrorIs(t, err, accounting.ErrValidation)
}

func TestPostJournalEntryAppendsRows(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})
	entry := f.draft(t, day(2025, 1, 10), debit(f.cash, "100"), credit(f.revenue, "100"))

	posted, err := f.svc.PostJournalEntry(context.Background(), companyID, entry.ID, actorID)
	require.NoError(t, err)
	require.Equal(t, accounting.JournalStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedBy)
	require.Equal(t, actorID, *posted.PostedBy)
	require.NotNil(t, posted.PostedAt)

	requireAmount(t, "100", f.balance(t, f.cash))
	requireAmount(t, "100", f.balance(t, f.revenue))
	requireAmount(t, "100", f.cached(t, f.cash))
	requireAmount(t, "100", f.cached(t, f.revenue))

	rows, err := f.svc.ListLedgerRows(context.Background(), accounting.LedgerFilter{CompanyID: companyID, JournalEntryID: entry.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, entry.Number, row.EntryNumber)
		require.Equal(t, "test entry", row.Description)
	}
}

func TestVoidJournalEntryRestoresBalances(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})
	f.post(t, day(2025, 1, 5), debit(f.cash, "30"), credit(f.revenue, "30"))
	entry := f.post(t, day(2025, 1, 10), debit(f.cash, "100"), credit(f.revenue, "100"))

	voided, err := f.svc.VoidJournalEntry(context.Background(), companyID, entry.ID, actorID)
	require.NoError(t, err)
	require.Equal(t, accounting.JournalStatusVoid, voided.Status)
	require.NotNil(t, voided.VoidedAt)
	require.True(t, voided.VoidedAt.Equal(fixedNow))

	requireAmount(t, "30", f.balance(t, f.cash))
	requireAmount(t, "30", f.balance(t, f.revenue))

	rows, err := f.svc.ListLedgerRows(context.Background(), accounting.LedgerFilter{CompanyID: companyID, JournalEntryID: entry.ID})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	var reversals int
	for _, row := range rows {
		if row.EntryNumber != entry.Number+"-VOID" {
			continue
		}
		reversals++
		require.Equal(t, "VOID: test entry", row.Description)
		require.True(t, row.TransactionDate.Equal(day(2025, 2, 10)))
		if row.AccountID == f.cash.ID {
			requireAmount(t, "100", row.Credit)
		} else {
			requireAmount(t, "100", row.Debit)
		}
	}
	require.Equal(t, 2, reversals)
	f.requireReplay(t, f.cash)
	f.requireReplay(t, f.revenue)
}

func TestJournalStateMachine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, accounting.ServiceConfig{})
	posted := f.post(t, day(2025, 1, 10), debit(f.cash, "10"), credit(f.revenue, "10"))
	desc := "changed"

	_, err := f.svc.UpdateJournalEntry(ctx, accounting.UpdateJournalInput{CompanyID: companyID, EntryID: posted.ID, Description: &desc})
	require.ErrorIs(t, err, accounting.ErrInvalidState)
	require.Contains(t, err.Error(), "Only draft entries can be updated")

	err = f.svc.DeleteJournalEntry(ctx, companyID, posted.ID, actorID)
	require.ErrorIs(t, err, accounting.ErrInvalidState)
	require.Contains(t, err.Error(), "Only draft entries can be deleted")

	_, err = f.svc.PostJournalEntry(ctx, companyID, posted.ID, actorID)
	require.ErrorIs(t, err, accounting.ErrInvalidState)

	draft := f.draft(t, day(2025, 1, 11), debit(f.cash, "10"), credit(f.revenue, "10"))
	_, err = f.svc.VoidJournalEntry(ctx, companyID, draft.ID, actorID)
	require.ErrorIs(t, err, accounting.ErrInvalidState)
	require.Contains(t, err.Error(), "Only posted entries can be voided")

	_, err = f.svc.VoidJournalEntry(ctx, companyID, posted.ID, actorID)
	require.NoError(t, err)
	_, err = f.svc.VoidJournalEntry(ctx, companyID, posted.ID, actorID)
	require.ErrorIs(t, err, accounting.ErrInvalidState)

	require.Len(t, f.rows(t, f.cash), 2, "failed transitions must not write rows")
	requireAmount(t, "0", f.balance(t, f.cash))
}

func TestUpdateJournalEntryReplacesSuppliedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, accounting.ServiceConfig{})
	draft := f.draft(t, day(2025, 1, 10), debit(f.cash, "10"), credit(f.revenue, "10"))
	ref := "INV-7"

	updated, err := f.svc.UpdateJournalEntry(ctx, accounting.UpdateJournalInput{
		CompanyID:       companyID,
		EntryID:         draft.ID,
		ReferenceNumber: &ref,
		Lines:           []accounting.JournalLineInput{debit(f.expense, "25"), credit(f.payable, "25")},
	})
	require.NoError(t, err)
	require.Equal(t, "INV-7", updated.ReferenceNumber)
	require.Equal(t, "test entry", updated.Description)
	require.True(t, updated.Date.Equal(draft.Date))
	requireAmount(t, "25", updated.TotalDebit)
	require.Len(t, updated.Lines, 2)
	require.Equal(t, f.expense.ID, updated.Lines[0].AccountID)

	_, err = f.svc.UpdateJournalEntry(ctx, accounting.UpdateJournalInput{
		CompanyID: companyID,
		EntryID:   draft.ID,
		Lines:     []accounting.JournalLineInput{debit(f.expense, "25"), credit(f.payable, "20")},
	})
	require.ErrorIs(t, err, accounting.ErrValidation)

	got, err := f.svc.GetJournalEntry(ctx, companyID, draft.ID)
	require.NoError(t, err)
	requireAmount(t, "25", got.TotalCredit)
}

func TestDeleteJournalEntryRemovesDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, accounting.ServiceConfig{})
	draft := f.draft(t, day(2025, 1, 10), debit(f.cash, "10"), credit(f.revenue, "10"))

	require.NoError(t, f.svc.DeleteJournalEntry(ctx, companyID, draft.ID, actorID))
	_, err := f.svc.GetJournalEntry(ctx, companyID, draft.ID)
	require.ErrorIs(t, err, accounting.ErrNotFound)
}

func TestJournalEntriesAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, accounting.ServiceConfig{})
	entry := f.post(t, day(2025, 1, 10), debit(f.cash, "10"), credit(f.revenue, "10"))

	_, err := f.svc.GetJournalEntry(ctx, 2, entry.ID)
	require.ErrorIs(t, err, accounting.ErrNotFound)
	_, err = f.svc.VoidJournalEntry(ctx, 2, entry.ID, actorID)
	require.ErrorIs(t, err, accounting.ErrNotFound)
	_, err = f.svc.AccountBalanceAsOf(ctx, 2, f.cash.ID, nil)
	require.ErrorIs(t, err, accounting.ErrNotFound)
}

func TestListJournalEntriesFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, accounting.ServiceConfig{})
	f.post(t, day(2025, 1, 10), debit(f.cash, "10"), credit(f.revenue, "10"))
	f.draft(t, day(2025, 2, 3), debit(f.cash, "20"), credit(f.revenue, "20"))

	posted, err := f.svc.ListJournalEntries(ctx, accounting.JournalFilter{CompanyID: companyID, Status: accounting.JournalStatusPosted})
	require.NoError(t, err)
	require.Len(t, posted, 1)

	from := day(2025, 2, 1)
	february, err := f.svc.ListJournalEntries(ctx, accounting.JournalFilter{CompanyID: companyID, From: &from})
	require.NoError(t, err)
	require.Len(t, february, 1)
	require.Equal(t, accounting.JournalStatusDraft, february[0].Status)

	_, err = f.svc.ListJournalEntries(ctx, accounting.JournalFilter{})
	require.ErrorIs(t, err, accounting.ErrValidation)
}

func TestBackdatedPostRestatesLaterRows(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})
	f.post(t, day(2025, 1, 10), debit(f.cash, "100"), credit(f.revenue, "100"))
	f.post(t, day(2025, 1, 20), debit(f.cash, "40"), credit(f.revenue, "40"))
	f.post(t, day(2025, 1, 5), debit(f.cash, "25"), credit(f.revenue, "25"))

	rows := f.rows(t, f.cash)
	require.Len(t, rows, 3)
	requireAmount(t, "25", rows[0].RunningBalance)
	requireAmount(t, "125", rows[1].RunningBalance)
	requireAmount(t, "165", rows[2].RunningBalance)
	requireAmount(t, "165", f.cached(t, f.cash))

	asOf := day(2025, 1, 12)
	got, err := f.svc.AccountBalanceAsOf(context.Background(), companyID, f.cash.ID, &asOf)
	require.NoError(t, err)
	requireAmount(t, "125", got.Balance)

	before := day(2025, 1, 1)
	got, err = f.svc.AccountBalanceAsOf(context.Background(), companyID, f.cash.ID, &before)
	require.NoError(t, err)
	requireAmount(t, "0", got.Balance)

	f.requireReplay(t, f.cash)
	f.requireReplay(t, f.revenue)
}

func TestConcurrentPostsSerializePerAccount(t *testing.T) {
	const n = 20
	f := newFixture(t, accounting.ServiceConfig{})
	drafts := make([]accounting.JournalEntry, n)
	for i := range drafts {
		drafts[i] = f.draft(t, day(2025, 1, 1+i%28), debit(f.cash, "10"), credit(f.revenue, "10"))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, entry := range drafts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.PostJournalEntry(context.Background(), companyID, entry.ID, actorID)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	requireAmount(t, "200", f.balance(t, f.cash))
	requireAmount(t, "200", f.balance(t, f.revenue))
	f.requireReplay(t, f.cash)
	f.requireReplay(t, f.revenue)
}

func TestSignFollowsNormalBalance(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})
	contra, err := f.svc.CreateAccount(context.Background(), accounting.CreateAccountInput{
		CompanyID:     companyID,
		Code:          "1190",
		Name:          "Accumulated Depreciation",
		Type:          accounting.AccountTypeAsset,
		SubType:       accounting.SubTypeContraAsset,
		NormalBalance: accounting.NormalBalanceCredit,
	})
	require.NoError(t, err)

	f.post(t, day(2025, 1, 10), debit(f.expense, "60"), credit(contra, "60"))

	requireAmount(t, "60", f.balance(t, contra))
	requireAmount(t, "60", f.balance(t, f.expense))
}

func TestAmountsWithTrailingZerosAreAccepted(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})
	entry := f.post(t, day(2025, 1, 10), debit(f.cash, "33.333500"), credit(f.revenue, "33.3335"))
	requireAmount(t, "33.3335", entry.TotalDebit)
	requireAmount(t, "33.3335", f.balance(t, f.cash))
}

func TestEntryDatesAreStoredAsDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, accounting.ServiceConfig{})
	entry := f.draft(t, time.Date(2025, 1, 10, 17, 45, 0, 0, time.UTC), debit(f.cash, "10"), credit(f.revenue, "10"))
	require.True(t, entry.Date.Equal(day(2025, 1, 10)))

	later := time.Date(2025, 1, 12, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	updated, err := f.svc.UpdateJournalEntry(ctx, accounting.UpdateJournalInput{CompanyID: companyID, EntryID: entry.ID, Date: &later})
	require.NoError(t, err)
	require.True(t, updated.Date.Equal(day(2025, 1, 12)))

	_, err = f.svc.PostJournalEntry(ctx, companyID, entry.ID, actorID)
	require.NoError(t, err)
	for _, row := range f.rows(t, f.cash) {
		require.True(t, row.TransactionDate.Equal(day(2025, 1, 12)))
	}

	// a void late in the day still counts for that day
	f.svc.WithNow(func() time.Time { return time.Date(2025, 1, 20, 23, 15, 0, 0, time.UTC) })
	_, err = f.svc.VoidJournalEntry(ctx, companyID, entry.ID, actorID)
	require.NoError(t, err)
	asOf := day(2025, 1, 20)
	got, err := f.svc.AccountBalanceAsOf(ctx, companyID, f.cash.ID, &asOf)
	require.NoError(t, err)
	requireAmount(t, "0", got.Balance)
	tb, err := f.svc.TrialBalance(ctx, companyID, &asOf)
	require.NoError(t, err)
	requireAmount(t, "20", tb.TotalDebit)
}

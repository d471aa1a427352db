package accounting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

func TestCreateAccountDefaultsNormalBalance(t *testing.T) {
	f := newFixture(t, accounting.ServiceConfig{})

	require.Equal(t, accounting.NormalBalanceDebit, f.cash.NormalBalance)
	require.Equal(t, accounting.NormalBalanceDebit, f.expense.NormalBalance)
	require.Equal(t, accounting.NormalBalanceCredit, f.payable.NormalBalance)
	require.Equal(t, accounting.NormalBalanceCredit, f.revenue.NormalBalance)
	require.True(t, f.cash.IsActive)
	requireAmount(t, "0", f.cash.Balance)
}

func TestCreateAccountValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, accounting.ServiceConfig{})

	_, err := f.svc.CreateAccount(ctx, accounting.CreateAccountInput{CompanyID: companyID, Code: "1100", Name: "Cash again", Type: accounting.AccountTypeAsset})
	require.ErrorIs(t, err, accounting.ErrConflict)

	_, err = f.svc.CreateAccount(ctx, accounting.CreateAccountInput{CompanyID: companyID, Code: "9000", Name: "Odd", Type: "SUSPENSE"})
	require.ErrorIs(t, err, accounting.ErrValidation)

	_, err = f.svc.CreateAccount(ctx, accounting.CreateAccountInput{
		CompanyID: companyID, Code: "1300", Name: "Misfiled", Type: accounting.AccountTypeAsset, SubType: accounting.SubTypeOperatingRevenue,
	})
	require.ErrorIs(t, err, accounting.ErrValidation)

	same, err := f.svc.CreateAccount(ctx, accounting.CreateAccountInput{CompanyID: 2, Code: "1100", Name: "Cash", Type: accounting.AccountTypeAsset})
	require.NoError(t, err)
	require.Equal(t, int64(2), same.CompanyID)
}

func TestArchiveAccountHidesFromActiveListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, accounting.ServiceConfig{})

	archived, err := f.svc.ArchiveAccount(ctx, companyID, f.payable.ID, actorID)
	require.NoError(t, err)
	require.False(t, archived.IsActive)
	_, err = f.svc.ArchiveAccount(ctx, companyID, f.payable.ID, actorID)
	require.NoError(t, err)

	active, err := f.svc.ListAccounts(ctx, accounting.AccountFilter{CompanyID: companyID, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 3)
	all, err := f.svc.ListAccounts(ctx, accounting.AccountFilter{CompanyID: companyID})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "1100", all[0].Code)
}

func TestDeleteAccountRequiresEmptyLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, accounting.ServiceConfig{})
	f.post(t, day(2025, 1, 10), debit(f.cash, "10"), credit(f.revenue, "10"))

	err := f.svc.DeleteAccount(ctx, companyID, f.cash.ID, actorID)
	require.ErrorIs(t, err, accounting.ErrConflict)
	require.Contains(t, err.Error(), "archive it instead")

	require.NoError(t, f.svc.DeleteAccount(ctx, companyID, f.payable.ID, actorID))
	_, err = f.svc.GetAccount(ctx, companyID, f.payable.ID)
	require.ErrorIs(t, err, accounting.ErrNotFound)
}

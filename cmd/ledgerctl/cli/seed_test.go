package cli

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/memory"
)

func TestSeedIsRerunnable(t *testing.T) {
	ctx := context.Background()
	svc := accounting.NewService(memory.New(), accounting.ServiceConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	first, err := Seed(ctx, svc, 3, 2025)
	require.NoError(t, err)
	require.Equal(t, len(defaultChart), first.AccountsCreated)
	require.Equal(t, 12, first.PeriodsCreated)

	second, err := Seed(ctx, svc, 3, 2025)
	require.NoError(t, err)
	require.Zero(t, second.AccountsCreated)
	require.Equal(t, len(defaultChart), second.AccountsSkipped)
	require.Equal(t, 12, second.PeriodsSkipped)

	periods, err := svc.ListPeriods(ctx, accounting.PeriodFilter{CompanyID: 3, FiscalYear: 2025})
	require.NoError(t, err)
	require.Len(t, periods, 12)
	require.Equal(t, "February 2025", periods[1].Name)
	require.Equal(t, 28, periods[1].EndDate.Day())

	contra, err := svc.ListAccounts(ctx, accounting.AccountFilter{CompanyID: 3, Types: []accounting.AccountType{accounting.AccountTypeAsset}})
	require.NoError(t, err)
	for _, account := range contra {
		if account.SubType == accounting.SubTypeContraAsset {
			require.Equal(t, accounting.NormalBalanceCredit, account.NormalBalance)
		}
	}
}

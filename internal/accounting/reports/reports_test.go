package reports

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestBuildTrialBalance(t *testing.T) {
	accounts := []AccountBalance{
		{Code: "1000", Name: "Cash", Type: "ASSET", NormalBalance: "DEBIT", Debit: d("1200"), Credit: d("150")},
		{Code: "1001", Name: "Bank", Type: "ASSET", NormalBalance: "DEBIT", Debit: d("100"), Credit: d("50")},
		{Code: "2000", Name: "Accounts Payable", Type: "LIABILITY", NormalBalance: "CREDIT", Debit: d("10"), Credit: d("1100")},
	}

	tb := BuildTrialBalance(accounts)
	require.Len(t, tb.Groups, 2)
	require.True(t, tb.TotalDebit.Equal(d("1310")), tb.TotalDebit.String())
	require.True(t, tb.TotalCredit.Equal(d("1300")), tb.TotalCredit.String())
	require.False(t, tb.Balanced)
	require.Equal(t, "1000", tb.Groups[0].Accounts[0].Code)
	require.True(t, tb.Groups[1].Accounts[0].Closing.Equal(d("1090")))
}

func TestBuildTrialBalanceWithinTolerance(t *testing.T) {
	tb := BuildTrialBalance([]AccountBalance{
		{Code: "1000", NormalBalance: "DEBIT", Debit: d("100.01")},
		{Code: "4000", NormalBalance: "CREDIT", Credit: d("100")},
	})
	require.True(t, tb.Balanced)
}

func TestBuildProfitAndLoss(t *testing.T) {
	accounts := []AccountBalance{
		{Code: "4000", Name: "Sales", Type: "REVENUE", NormalBalance: "CREDIT", Credit: d("1200")},
		{Code: "4900", Name: "Sales Returns", Type: "REVENUE", NormalBalance: "DEBIT", Debit: d("200")},
		{Code: "5000", Name: "COGS", Type: "EXPENSE", NormalBalance: "DEBIT", Debit: d("300")},
		{Code: "5100", Name: "Marketing", Type: "EXPENSE", NormalBalance: "DEBIT", Debit: d("200")},
	}

	pl := BuildProfitAndLoss(accounts)
	require.True(t, pl.Revenue.Total.Equal(d("1000")), pl.Revenue.Total.String())
	require.True(t, pl.Expense.Total.Equal(d("500")), pl.Expense.Total.String())
	require.True(t, pl.NetIncome.Equal(d("500")), pl.NetIncome.String())
	require.True(t, pl.Revenue.Accounts[1].Amount.Equal(d("-200")))
}

func TestBuildBalanceSheet(t *testing.T) {
	accounts := []AccountBalance{
		{Code: "1000", Name: "Cash", Type: "ASSET", NormalBalance: "DEBIT", Debit: d("700"), Credit: d("20")},
		{Code: "1500", Name: "Accumulated Depreciation", Type: "ASSET", NormalBalance: "CREDIT", Credit: d("50")},
		{Code: "2000", Name: "AP", Type: "LIABILITY", NormalBalance: "CREDIT", Debit: d("10"), Credit: d("40")},
		{Code: "3000", Name: "Equity", Type: "EQUITY", NormalBalance: "CREDIT", Credit: d("500")},
		{Code: "4000", Name: "Sales", Type: "REVENUE", NormalBalance: "CREDIT", Credit: d("300")},
		{Code: "5000", Name: "Rent", Type: "EXPENSE", NormalBalance: "DEBIT", Debit: d("200")},
	}

	bs := BuildBalanceSheet(accounts)
	require.True(t, bs.Assets.Total.Equal(d("630")), bs.Assets.Total.String())
	require.True(t, bs.Liabilities.Total.Equal(d("30")), bs.Liabilities.Total.String())
	require.True(t, bs.CurrentEarnings.Equal(d("100")), bs.CurrentEarnings.String())
	require.True(t, bs.Equity.Total.Equal(d("600")), bs.Equity.Total.String())
	require.True(t, bs.TotalLiabilitiesAndEquity.Equal(d("630")))
	require.True(t, bs.Balanced)
}

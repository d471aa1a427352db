package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// LedgerSeeder is the part of the ledger service the seeder needs.
type LedgerSeeder interface {
	CreateAccount(ctx context.Context, input accounting.CreateAccountInput) (accounting.Account, error)
	CreatePeriod(ctx context.Context, input accounting.CreatePeriodInput) (accounting.Period, error)
}

type seedAccount struct {
	code    string
	name    string
	typ     accounting.AccountType
	subType accounting.AccountSubType
	normal  accounting.NormalBalance
}

// defaultChart is a small Indonesian trading company chart.
var defaultChart = []seedAccount{
	{"1110", "Kas", accounting.AccountTypeAsset, accounting.SubTypeCurrentAsset, ""},
	{"1120", "Bank BCA", accounting.AccountTypeAsset, accounting.SubTypeCurrentAsset, ""},
	{"1130", "Bank Mandiri", accounting.AccountTypeAsset, accounting.SubTypeCurrentAsset, ""},
	{"1210", "Piutang Usaha", accounting.AccountTypeAsset, accounting.SubTypeCurrentAsset, ""},
	{"1220", "Piutang Karyawan", accounting.AccountTypeAsset, accounting.SubTypeCurrentAsset, ""},
	{"1310", "Persediaan Barang Dagang", accounting.AccountTypeAsset, accounting.SubTypeCurrentAsset, ""},
	{"1410", "Peralatan Kantor", accounting.AccountTypeAsset, accounting.SubTypeFixedAsset, ""},
	{"1420", "Kendaraan", accounting.AccountTypeAsset, accounting.SubTypeFixedAsset, ""},
	{"1490", "Akumulasi Penyusutan", accounting.AccountTypeAsset, accounting.SubTypeContraAsset, accounting.NormalBalanceCredit},
	{"2110", "Hutang Usaha", accounting.AccountTypeLiability, accounting.SubTypeCurrentLiability, ""},
	{"2120", "Hutang Pajak", accounting.AccountTypeLiability, accounting.SubTypeCurrentLiability, ""},
	{"2130", "Hutang Gaji", accounting.AccountTypeLiability, accounting.SubTypeCurrentLiability, ""},
	{"3100", "Modal Disetor", accounting.AccountTypeEquity, accounting.SubTypeOwnerEquity, ""},
	{accounting.RetainedEarningsCode, "Laba Ditahan", accounting.AccountTypeEquity, accounting.SubTypeRetainedEarnings, ""},
	{"4100", "Pendapatan Penjualan", accounting.AccountTypeRevenue, accounting.SubTypeOperatingRevenue, ""},
	{"4200", "Pendapatan Lain-lain", accounting.AccountTypeRevenue, accounting.SubTypeOtherRevenue, ""},
	{"4300", "Retur Penjualan", accounting.AccountTypeRevenue, accounting.SubTypeContraRevenue, accounting.NormalBalanceDebit},
	{"5100", "Beban Pokok Penjualan", accounting.AccountTypeExpense, accounting.SubTypeCostOfSales, ""},
	{"5210", "Beban Gaji", accounting.AccountTypeExpense, accounting.SubTypeOperatingExpense, ""},
	{"5220", "Beban Sewa", accounting.AccountTypeExpense, accounting.SubTypeOperatingExpense, ""},
	{"5230", "Beban Listrik & Air", accounting.AccountTypeExpense, accounting.SubTypeOperatingExpense, ""},
	{"5300", "Beban Administrasi", accounting.AccountTypeExpense, accounting.SubTypeOtherExpense, ""},
}

// SeedResult counts what a seed run created and what already existed.
type SeedResult struct {
	AccountsCreated int
	AccountsSkipped int
	PeriodsCreated  int
	PeriodsSkipped  int
}

// Seed creates the default chart of accounts and twelve monthly periods for
// year. Records that already exist are skipped so the command can be rerun.
func Seed(ctx context.Context, ledger LedgerSeeder, companyID int64, year int) (SeedResult, error) {
	var result SeedResult
	for _, a := range defaultChart {
		_, err := ledger.CreateAccount(ctx, accounting.CreateAccountInput{
			CompanyID:     companyID,
			Code:          a.code,
			Name:          a.name,
			Type:          a.typ,
			SubType:       a.subType,
			NormalBalance: a.normal,
		})
		switch {
		case errors.Is(err, accounting.ErrConflict):
			result.AccountsSkipped++
		case err != nil:
			return result, fmt.Errorf("seed account %s: %w", a.code, err)
		default:
			result.AccountsCreated++
		}
	}

	for month := 1; month <= 12; month++ {
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		_, err := ledger.CreatePeriod(ctx, accounting.CreatePeriodInput{
			CompanyID:  companyID,
			Name:       start.Format("January 2006"),
			Type:       accounting.PeriodTypeMonth,
			FiscalYear: year,
			StartDate:  start,
			EndDate:    end,
		})
		switch {
		case errors.Is(err, accounting.ErrConflict):
			result.PeriodsSkipped++
		case err != nil:
			return result, fmt.Errorf("seed period %s: %w", start.Format("2006-01"), err)
		default:
			result.PeriodsCreated++
		}
	}
	return result, nil
}

package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	CurrentEarnings           decimal.Decimal     `json:"current_earnings"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"total_liabilities_and_equity"`
	Balanced                  bool                `json:"balanced"`
}

// BuildBalanceSheet aggregates balances into assets, liabilities, and equity
// sections. Revenue and expense not yet closed into retained earnings are
// reported as current earnings inside equity.
func BuildBalanceSheet(accounts []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}
	earnings := decimal.Zero

	for _, acc := range accounts {
		switch strings.ToUpper(acc.Type) {
		case "ASSET":
			row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.presented("DEBIT")}
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case "LIABILITY":
			row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.presented("CREDIT")}
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case "EQUITY":
			row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.presented("CREDIT")}
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		case "REVENUE":
			earnings = earnings.Add(acc.presented("CREDIT"))
		case "EXPENSE":
			earnings = earnings.Sub(acc.presented("DEBIT"))
		}
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Code < assets.Accounts[j].Code })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Code < liabilities.Accounts[j].Code })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Code < equity.Accounts[j].Code })
	equity.Total = equity.Total.Add(earnings)

	total := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		CurrentEarnings:           earnings,
		TotalLiabilitiesAndEquity: total,
		Balanced:                  assets.Total.Sub(total).Abs().LessThanOrEqual(balanceTolerance),
	}
}

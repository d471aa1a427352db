package reports

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var balanceTolerance = decimal.New(1, -2)

// AccountBalance models a general ledger account with aggregated activity.
type AccountBalance struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	NormalBalance string          `json:"normal_balance"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

// Closing computes the balance on the account's own normal side.
func (a AccountBalance) Closing() decimal.Decimal {
	if strings.EqualFold(a.NormalBalance, "CREDIT") {
		return a.Credit.Sub(a.Debit)
	}
	return a.Debit.Sub(a.Credit)
}

// presented returns the closing balance as it reads in a section whose natural
// side is side. Contra accounts come out negative.
func (a AccountBalance) presented(side string) decimal.Decimal {
	if strings.EqualFold(a.NormalBalance, side) {
		return a.Closing()
	}
	return a.Closing().Neg()
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// TrialBalanceAccount represents a row inside a trial balance group.
type TrialBalanceAccount struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	NormalBalance string          `json:"normal_balance"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Closing       decimal.Decimal `json:"closing"`
}

// TrialBalanceGroup aggregates accounts for presentation.
type TrialBalanceGroup struct {
	Key      string                `json:"key"`
	Accounts []TrialBalanceAccount `json:"accounts"`
	Debit    decimal.Decimal       `json:"debit"`
	Credit   decimal.Decimal       `json:"credit"`
}

// TrialBalance lists posted totals per account and the grand totals.
type TrialBalance struct {
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Balanced    bool                `json:"balanced"`
}

// BuildTrialBalance converts account activity into grouped trial balance data.
func BuildTrialBalance(accounts []AccountBalance) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	for _, acc := range accounts {
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key, Debit: decimal.Zero, Credit: decimal.Zero}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Accounts = append(grp.Accounts, TrialBalanceAccount{
			Code:          acc.Code,
			Name:          acc.Name,
			NormalBalance: acc.NormalBalance,
			Debit:         acc.Debit,
			Credit:        acc.Credit,
			Closing:       acc.Closing(),
		})
		grp.Debit = grp.Debit.Add(acc.Debit)
		grp.Credit = grp.Credit.Add(acc.Credit)
	}

	sort.Strings(keys)
	result := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Accounts, func(i, j int) bool {
			return grp.Accounts[i].Code < grp.Accounts[j].Code
		})
		result.Groups = append(result.Groups, *grp)
		result.TotalDebit = result.TotalDebit.Add(grp.Debit)
		result.TotalCredit = result.TotalCredit.Add(grp.Credit)
	}
	result.Balanced = result.TotalDebit.Sub(result.TotalCredit).Abs().LessThanOrEqual(balanceTolerance)
	return result
}

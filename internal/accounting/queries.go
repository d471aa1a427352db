package accounting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

// TrialBalance returns posted totals per account up to asOf, or all time when nil.
func (s *Service) TrialBalance(ctx context.Context, companyID int64, asOf *time.Time) (reports.TrialBalance, error) {
	return cachedReport(ctx, s, companyID, func(ctx context.Context) (reports.TrialBalance, error) {
		balances, err := s.accountActivity(ctx, ActivityFilter{CompanyID: companyID, To: asOf})
		if err != nil {
			return reports.TrialBalance{}, err
		}
		return reports.BuildTrialBalance(balances), nil
	}, "trial_balance", dateKey(asOf))
}

// ProfitAndLoss summarises revenue and expense for [from, to], ignoring closing entries.
func (s *Service) ProfitAndLoss(ctx context.Context, companyID int64, from, to time.Time) (reports.ProfitAndLoss, error) {
	if to.Before(from) {
		return reports.ProfitAndLoss{}, validationErr("report end date must not be before start date")
	}
	return cachedReport(ctx, s, companyID, func(ctx context.Context) (reports.ProfitAndLoss, error) {
		balances, err := s.accountActivity(ctx, ActivityFilter{CompanyID: companyID, From: &from, To: &to, ExcludeClosing: true})
		if err != nil {
			return reports.ProfitAndLoss{}, err
		}
		return reports.BuildProfitAndLoss(balances), nil
	}, "profit_and_loss", dateKey(&from), dateKey(&to))
}

// BalanceSheet reports assets, liabilities and equity as of a date. Every
// figure is the account's running balance at the end of that day.
func (s *Service) BalanceSheet(ctx context.Context, companyID int64, asOf time.Time) (reports.BalanceSheet, error) {
	return cachedReport(ctx, s, companyID, func(ctx context.Context) (reports.BalanceSheet, error) {
		balances, err := s.runningBalances(ctx, companyID, asOf)
		if err != nil {
			return reports.BalanceSheet{}, err
		}
		return reports.BuildBalanceSheet(balances), nil
	}, "balance_sheet", dateKey(&asOf))
}

func (s *Service) accountActivity(ctx context.Context, filter ActivityFilter) ([]reports.AccountBalance, error) {
	if filter.CompanyID <= 0 {
		return nil, validationErr("company is required")
	}
	filter.From = dayPtr(filter.From)
	filter.To = dayPtr(filter.To)
	var balances []reports.AccountBalance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accounts, err := tx.ListAccounts(ctx, AccountFilter{CompanyID: filter.CompanyID})
		if err != nil {
			return err
		}
		activity, err := tx.SumLedgerActivity(ctx, filter)
		if err != nil {
			return err
		}
		byAccount := make(map[int64]AccountActivity, len(activity))
		for _, a := range activity {
			byAccount[a.AccountID] = a
		}
		balances = make([]reports.AccountBalance, 0, len(accounts))
		for _, account := range accounts {
			a, ok := byAccount[account.ID]
			if !ok && !account.IsActive {
				continue
			}
			balances = append(balances, reports.AccountBalance{
				Code:          account.Code,
				Name:          account.Name,
				Type:          string(account.Type),
				NormalBalance: string(account.NormalBalance),
				Debit:         a.Debit,
				Credit:        a.Credit,
			})
		}
		return nil
	})
	return balances, err
}

// runningBalances reads every account through balanceAsOf and expresses the
// signed balance as a one-sided debit or credit.
func (s *Service) runningBalances(ctx context.Context, companyID int64, asOf time.Time) ([]reports.AccountBalance, error) {
	day := LedgerDay(asOf)
	var balances []reports.AccountBalance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accounts, err := tx.ListAccounts(ctx, AccountFilter{CompanyID: companyID})
		if err != nil {
			return err
		}
		balances = make([]reports.AccountBalance, 0, len(accounts))
		for _, account := range accounts {
			balance, err := balanceAsOf(ctx, tx, companyID, account.ID, &day)
			if err != nil {
				return err
			}
			if balance.IsZero() && !account.IsActive {
				continue
			}
			row := reports.AccountBalance{
				Code:          account.Code,
				Name:          account.Name,
				Type:          string(account.Type),
				NormalBalance: string(account.NormalBalance),
				Debit:         decimal.Zero,
				Credit:        decimal.Zero,
			}
			if (account.NormalBalance == NormalBalanceDebit) == !balance.IsNegative() {
				row.Debit = balance.Abs()
			} else {
				row.Credit = balance.Abs()
			}
			balances = append(balances, row)
		}
		return nil
	})
	return balances, err
}

// cachedReport serves a report from the versioned cache and collapses
// concurrent builds of the same key.
func cachedReport[T any](ctx context.Context, s *Service, companyID int64, build func(context.Context) (T, error), parts ...string) (T, error) {
	var zero T
	if companyID <= 0 {
		return zero, validationErr("company is required")
	}
	if s.cache == nil {
		return build(ctx)
	}
	key, err := s.cache.BuildKey(ctx, companyID, parts...)
	if err != nil {
		return zero, err
	}
	v, err, _ := s.reports.Do(key, func() (any, error) {
		var out T
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return build(ctx)
		})
		return out, err
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := LedgerDay(*t)
	return &day
}

func dateKey(t *time.Time) string {
	if t == nil {
		return "latest"
	}
	return t.UTC().Format("2006-01-02")
}

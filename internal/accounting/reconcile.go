package accounting

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ReconcileResult reports the outcome for one account.
type ReconcileResult struct {
	AccountID       int64           `json:"account_id"`
	AccountCode     string          `json:"account_code"`
	Reconciled      bool            `json:"reconciled"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	ActualBalance   decimal.Decimal `json:"actual_balance"`
	Difference      decimal.Decimal `json:"difference"`
}

// ReconcileFailure records an account that could not be reconciled.
type ReconcileFailure struct {
	AccountID   int64  `json:"account_id"`
	AccountCode string `json:"account_code"`
	Error       string `json:"error"`
}

// ReconcileSummary aggregates a company-wide reconciliation run.
type ReconcileSummary struct {
	CompanyID  int64              `json:"company_id"`
	Checked    int                `json:"checked"`
	Reconciled int                `json:"reconciled"`
	Failed     int                `json:"failed"`
	TotalDrift decimal.Decimal    `json:"total_drift"`
	Results    []ReconcileResult  `json:"results"`
	Failures   []ReconcileFailure `json:"failures,omitempty"`
}

// ReconcileAccountBalance rewrites the cached balance of an account from its
// latest ledger row when the two differ by more than the tolerance.
func (s *Service) ReconcileAccountBalance(ctx context.Context, companyID, accountID int64) (ReconcileResult, error) {
	var result ReconcileResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockAccounts(ctx, companyID, []int64{accountID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return &NotFoundError{Entity: "account", ID: accountID}
		}
		account := locked[0]
		actual, err := balanceAsOf(ctx, tx, companyID, accountID, nil)
		if err != nil {
			return err
		}
		diff := actual.Sub(account.Balance)
		result = ReconcileResult{
			AccountID:       account.ID,
			AccountCode:     account.Code,
			PreviousBalance: account.Balance,
			ActualBalance:   actual,
			Difference:      diff,
		}
		if diff.Abs().LessThanOrEqual(BalanceTolerance) {
			result.Difference = decimal.Zero
			return nil
		}
		result.Reconciled = true
		return tx.UpdateAccountBalance(ctx, companyID, accountID, actual)
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	if result.Reconciled {
		if s.metrics != nil {
			s.metrics.DriftCorrected(companyID, result.Difference.Abs())
		}
		s.logger.Warn("account balance drift corrected",
			slog.Int64("company_id", companyID),
			slog.String("account", result.AccountCode),
			slog.String("previous", result.PreviousBalance.StringFixed(2)),
			slog.String("actual", result.ActualBalance.StringFixed(2)))
	}
	return result, nil
}

// ReconcileAllAccountBalances reconciles every account of the company, each in
// its own transaction. Failures are collected and never stop the batch.
func (s *Service) ReconcileAllAccountBalances(ctx context.Context, companyID int64) (ReconcileSummary, error) {
	accounts, err := s.ListAccounts(ctx, AccountFilter{CompanyID: companyID})
	if err != nil {
		return ReconcileSummary{}, err
	}
	type outcome struct {
		result ReconcileResult
		err    error
	}
	outcomes := make([]outcome, len(accounts))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, account := range accounts {
		g.Go(func() error {
			res, err := s.ReconcileAccountBalance(ctx, companyID, account.ID)
			outcomes[i] = outcome{result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	summary := ReconcileSummary{CompanyID: companyID, TotalDrift: decimal.Zero}
	for i, out := range outcomes {
		summary.Checked++
		if out.err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, ReconcileFailure{
				AccountID:   accounts[i].ID,
				AccountCode: accounts[i].Code,
				Error:       out.err.Error(),
			})
			s.logger.Error("reconcile account", slog.Int64("company_id", companyID), slog.String("account", accounts[i].Code), slog.Any("error", out.err))
			continue
		}
		if out.result.Reconciled {
			summary.Reconciled++
			summary.TotalDrift = summary.TotalDrift.Add(out.result.Difference.Abs())
		}
		summary.Results = append(summary.Results, out.result)
	}
	if summary.Reconciled > 0 {
		s.invalidateReports(ctx, companyID)
	}
	return summary, nil
}

// ListCompanyIDs returns every company that owns at least one account.
func (s *Service) ListCompanyIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		ids, err = tx.ListCompanyIDs(ctx)
		return err
	})
	return ids, err
}

package accounting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// balanceAsOf returns the running balance of the last row dated on or before
// the day of asOf, or the newest row when asOf is nil. Accounts without rows
// are zero. Posting, close, reconciliation and balance queries all go through here.
func balanceAsOf(ctx context.Context, tx LedgerStore, companyID, accountID int64, asOf *time.Time) (decimal.Decimal, error) {
	if asOf != nil {
		day := LedgerDay(*asOf)
		asOf = &day
	}
	row, found, err := tx.LatestLedgerRow(ctx, companyID, accountID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if !found {
		return decimal.Zero, nil
	}
	return row.RunningBalance, nil
}

// appendLedgerRow inserts row for account, restates the running balance of
// every later row and refreshes the cached account balance from the tail.
// The caller must hold the account lock.
func appendLedgerRow(ctx context.Context, tx TxRepository, account Account, row LedgerRow) (LedgerRow, error) {
	date := row.TransactionDate
	opening, err := balanceAsOf(ctx, tx, account.CompanyID, account.ID, &date)
	if err != nil {
		return LedgerRow{}, err
	}
	row.CompanyID = account.CompanyID
	row.AccountID = account.ID
	row.RunningBalance = opening.Add(account.NormalBalance.SignedDelta(row.Debit, row.Credit))
	inserted, err := tx.InsertLedgerRow(ctx, row)
	if err != nil {
		return LedgerRow{}, err
	}
	tail, err := restateFollowingRows(ctx, tx, account, inserted)
	if err != nil {
		return LedgerRow{}, err
	}
	if err := tx.UpdateAccountBalance(ctx, account.CompanyID, account.ID, tail); err != nil {
		return LedgerRow{}, err
	}
	return inserted, nil
}

// restateFollowingRows recomputes running balances after from and returns the
// balance of the account's last row.
func restateFollowingRows(ctx context.Context, tx LedgerStore, account Account, from LedgerRow) (decimal.Decimal, error) {
	later, err := tx.ListLedgerRowsAfter(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}
	balance := from.RunningBalance
	for _, row := range later {
		balance = balance.Add(account.NormalBalance.SignedDelta(row.Debit, row.Credit))
		if row.RunningBalance.Equal(balance) {
			continue
		}
		if err := tx.UpdateLedgerRunningBalance(ctx, account.CompanyID, row.ID, balance); err != nil {
			return decimal.Zero, err
		}
	}
	return balance, nil
}

func lineDescription(entry JournalEntry, line JournalLine) string {
	if line.Description != "" {
		return line.Description
	}
	return entry.Description
}

// AccountBalanceAsOf returns the account balance on a date, or the latest
// balance when asOf is nil.
func (s *Service) AccountBalanceAsOf(ctx context.Context, companyID, accountID int64, asOf *time.Time) (AccountBalance, error) {
	var result AccountBalance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetAccount(ctx, companyID, accountID)
		if err != nil {
			return err
		}
		balance, err := balanceAsOf(ctx, tx, companyID, accountID, asOf)
		if err != nil {
			return err
		}
		result = AccountBalance{Account: account, AsOf: asOf, Balance: balance}
		return nil
	})
	return result, err
}

// ListLedgerRows returns ledger rows for an account or a journal entry in ledger order.
func (s *Service) ListLedgerRows(ctx context.Context, filter LedgerFilter) ([]LedgerRow, error) {
	if filter.CompanyID <= 0 {
		return nil, validationErr("company is required")
	}
	if filter.AccountID <= 0 && filter.JournalEntryID <= 0 {
		return nil, validationErr("account or journal entry is required")
	}
	var rows []LedgerRow
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if filter.AccountID > 0 {
			if _, err := tx.GetAccount(ctx, filter.CompanyID, filter.AccountID); err != nil {
				return err
			}
		}
		var err error
		rows, err = tx.ListLedgerRows(ctx, filter)
		return err
	})
	return rows, err
}

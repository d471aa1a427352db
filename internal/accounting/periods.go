package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CreatePeriod registers an open period after checking it does not overlap another.
func (s *Service) CreatePeriod(ctx context.Context, input CreatePeriodInput) (Period, error) {
	if err := input.Validate(); err != nil {
		return Period{}, err
	}
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, overlaps, err := tx.FindOverlappingPeriod(ctx, input.CompanyID, input.StartDate, input.EndDate, 0)
		if err != nil {
			return err
		}
		if overlaps {
			return &PeriodOverlapError{Existing: existing}
		}
		now := s.now()
		period, err = tx.InsertPeriod(ctx, Period{
			CompanyID:  input.CompanyID,
			Name:       strings.TrimSpace(input.Name),
			Type:       input.Type,
			FiscalYear: input.FiscalYear,
			StartDate:  input.StartDate,
			EndDate:    input.EndDate,
			Status:     PeriodStatusOpen,
			Notes:      input.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.recordAudit(ctx, input.CompanyID, input.ActorID, "period.create", "period", period.ID, map[string]any{"name": period.Name})
	return period, nil
}

// UpdatePeriod edits descriptive fields of a period that is not locked. Dates
// may only move while the period is open.
func (s *Service) UpdatePeriod(ctx context.Context, input UpdatePeriodInput) (Period, error) {
	if err := input.Validate(); err != nil {
		return Period{}, err
	}
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, input.CompanyID, input.PeriodID)
		if err != nil {
			return err
		}
		if current.Status == PeriodStatusLocked {
			return periodStateErr(current, msgLockedPeriodEdit)
		}
		if input.changesDates() {
			if current.Status != PeriodStatusOpen {
				return periodStateErr(current, msgOnlyOpenDateShift)
			}
			if input.StartDate != nil {
				current.StartDate = *input.StartDate
			}
			if input.EndDate != nil {
				current.EndDate = *input.EndDate
			}
			if err := validatePeriodRange(current.StartDate, current.EndDate); err != nil {
				return err
			}
			existing, overlaps, err := tx.FindOverlappingPeriod(ctx, current.CompanyID, current.StartDate, current.EndDate, current.ID)
			if err != nil {
				return err
			}
			if overlaps {
				return &PeriodOverlapError{Existing: existing}
			}
		}
		if input.Name != nil {
			current.Name = strings.TrimSpace(*input.Name)
		}
		if input.Type != nil {
			current.Type = *input.Type
		}
		if input.Notes != nil {
			current.Notes = *input.Notes
		}
		current.UpdatedAt = s.now()
		period, err = tx.UpdatePeriod(ctx, current)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	return period, nil
}

// DeletePeriod removes an open period.
func (s *Service) DeletePeriod(ctx context.Context, companyID, periodID, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, companyID, periodID)
		if err != nil {
			return err
		}
		if current.Status != PeriodStatusOpen {
			return periodStateErr(current, msgOnlyOpenDelete)
		}
		return tx.DeletePeriod(ctx, companyID, periodID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, companyID, actorID, "period.delete", "period", periodID, nil)
	return nil
}

// GetPeriod returns one period.
func (s *Service) GetPeriod(ctx context.Context, companyID, periodID int64) (Period, error) {
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		period, err = tx.GetPeriod(ctx, companyID, periodID)
		return err
	})
	return period, err
}

// ListPeriods returns periods ordered by start date.
func (s *Service) ListPeriods(ctx context.Context, filter PeriodFilter) ([]Period, error) {
	if filter.CompanyID <= 0 {
		return nil, validationErr("company is required")
	}
	var periods []Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		periods, err = tx.ListPeriods(ctx, filter)
		return err
	})
	return periods, err
}

// FindPeriodForDate returns the period containing date. With closedOnly the
// lookup is restricted to Closed and Locked periods.
func (s *Service) FindPeriodForDate(ctx context.Context, companyID int64, date time.Time, closedOnly bool) (Period, bool, error) {
	var statuses []PeriodStatus
	if closedOnly {
		statuses = []PeriodStatus{PeriodStatusClosed, PeriodStatusLocked}
	}
	var (
		period Period
		found  bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		period, found, err = tx.FindPeriodForDate(ctx, companyID, date, statuses)
		return err
	})
	return period, found, err
}

// IsDateInClosedPeriod reports whether date falls inside a Closed or Locked period.
func (s *Service) IsDateInClosedPeriod(ctx context.Context, companyID int64, date time.Time) (bool, error) {
	_, found, err := s.FindPeriodForDate(ctx, companyID, date, true)
	return found, err
}

// closedPeriodFrom returns the first Closed or Locked period other than skipID
// that ends on or after date. A ledger row dated there would restate balances
// of that period. The periods stay share-locked until the caller commits, so a
// concurrent close waits for it.
func closedPeriodFrom(ctx context.Context, tx TxRepository, companyID int64, date time.Time, skipID int64) (Period, bool, error) {
	periods, err := tx.LockPeriodsFrom(ctx, companyID, date)
	if err != nil {
		return Period{}, false, err
	}
	for _, period := range periods {
		if period.ID == skipID {
			continue
		}
		if period.Status == PeriodStatusClosed || period.Status == PeriodStatusLocked {
			return period, true, nil
		}
	}
	return Period{}, false, nil
}

// ClosePeriod zeroes every revenue and expense account into retained earnings
// with a posted closing entry dated at the period end, then marks the period closed.
func (s *Service) ClosePeriod(ctx context.Context, companyID, periodID, actorID int64) (Period, error) {
	release, err := s.acquirePeriodLock(ctx, companyID, periodID)
	if err != nil {
		return Period{}, err
	}
	defer release()

	var (
		period    Period
		netIncome decimal.Decimal
		rows      int
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, companyID, periodID)
		if err != nil {
			return err
		}
		if current.Status != PeriodStatusOpen {
			return periodStateErr(current, msgOnlyOpenClose)
		}
		later, found, err := closedPeriodFrom(ctx, tx, companyID, current.EndDate, current.ID)
		if err != nil {
			return err
		}
		if found {
			return periodStateErr(later, msgLaterPeriodClosed)
		}
		plan, err := s.buildClosingPlan(ctx, tx, current)
		if err != nil {
			return err
		}
		netIncome = plan.NetIncome
		if len(plan.Lines) > 0 {
			entry, err := s.createEntryTx(ctx, tx, CreateJournalInput{
				CompanyID:   companyID,
				ActorID:     actorID,
				Date:        LedgerDay(current.EndDate),
				Description: fmt.Sprintf("Closing entry for %s", current.Name),
				Type:        EntryTypeManual,
				Lines:       plan.Lines,
			}, true)
			if err != nil {
				return err
			}
			entry, rows, err = s.postEntryTx(ctx, tx, entry, actorID)
			if err != nil {
				return err
			}
			current.ClosingJournalEntryID = &entry.ID
		}
		now := s.now()
		current.Status = PeriodStatusClosed
		current.ClosedBy = &actorID
		current.ClosedAt = &now
		current.UpdatedAt = now
		period, err = tx.UpdatePeriod(ctx, current)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.rowsAppended("close", rows)
	s.invalidateReports(ctx, companyID)
	s.recordAudit(ctx, companyID, actorID, "period.close", "period", periodID, map[string]any{"net_income": netIncome.StringFixed(2)})
	s.logger.Info("period closed", slog.Int64("company_id", companyID), slog.String("period", period.Name), slog.String("net_income", netIncome.StringFixed(2)))
	return period, nil
}

type closingPlan struct {
	Lines     []JournalLineInput
	NetIncome decimal.Decimal
}

func (s *Service) buildClosingPlan(ctx context.Context, tx TxRepository, period Period) (closingPlan, error) {
	plan := closingPlan{NetIncome: decimal.Zero}
	accounts, err := tx.ListAccounts(ctx, AccountFilter{
		CompanyID:  period.CompanyID,
		Types:      []AccountType{AccountTypeRevenue, AccountTypeExpense},
		ActiveOnly: true,
	})
	if err != nil {
		return plan, err
	}
	endDate := LedgerDay(period.EndDate)
	for _, account := range accounts {
		balance, err := balanceAsOf(ctx, tx, period.CompanyID, account.ID, &endDate)
		if err != nil {
			return plan, err
		}
		if balance.IsZero() {
			continue
		}
		if account.NormalBalance == NormalBalanceCredit {
			plan.NetIncome = plan.NetIncome.Add(balance)
		} else {
			plan.NetIncome = plan.NetIncome.Sub(balance)
		}
		plan.Lines = append(plan.Lines, zeroingLine(account, balance))
	}
	if len(plan.Lines) == 0 || plan.NetIncome.IsZero() {
		return plan, nil
	}
	retained, err := s.ensureRetainedEarnings(ctx, tx, period.CompanyID)
	if err != nil {
		return plan, err
	}
	line := JournalLineInput{AccountID: retained.ID, Description: "Net income to retained earnings", Debit: decimal.Zero, Credit: decimal.Zero}
	if plan.NetIncome.IsPositive() {
		line.Credit = plan.NetIncome
	} else {
		line.Debit = plan.NetIncome.Neg()
	}
	plan.Lines = append(plan.Lines, line)
	return plan, nil
}

// zeroingLine builds the line that moves balance back to zero on the account's own side.
func zeroingLine(account Account, balance decimal.Decimal) JournalLineInput {
	line := JournalLineInput{
		AccountID:   account.ID,
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
		Description: "Close " + account.Code + " " + account.Name,
	}
	amount := balance.Abs()
	reduceOnDebit := account.NormalBalance == NormalBalanceCredit
	if balance.IsNegative() {
		reduceOnDebit = !reduceOnDebit
	}
	if reduceOnDebit {
		line.Debit = amount
	} else {
		line.Credit = amount
	}
	return line
}

func (s *Service) ensureRetainedEarnings(ctx context.Context, tx TxRepository, companyID int64) (Account, error) {
	account, err := tx.GetAccountByCode(ctx, companyID, RetainedEarningsCode)
	if err == nil {
		if account.Type != AccountTypeEquity {
			return Account{}, validationErr("account %s must be an equity account to receive retained earnings", RetainedEarningsCode)
		}
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}
	now := s.now()
	account, err = tx.InsertAccount(ctx, Account{
		CompanyID:     companyID,
		Code:          RetainedEarningsCode,
		Name:          "Retained Earnings",
		Type:          AccountTypeEquity,
		SubType:       SubTypeRetainedEarnings,
		NormalBalance: NormalBalanceCredit,
		Balance:       decimal.Zero,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return Account{}, err
	}
	s.logger.Info("retained earnings account created", slog.Int64("company_id", companyID))
	return account, nil
}

// ReopenPeriod voids the closing entry of a closed period and reopens it.
func (s *Service) ReopenPeriod(ctx context.Context, companyID, periodID, actorID int64) (Period, error) {
	release, err := s.acquirePeriodLock(ctx, companyID, periodID)
	if err != nil {
		return Period{}, err
	}
	defer release()

	var (
		period Period
		rows   int
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, companyID, periodID)
		if err != nil {
			return err
		}
		if current.Status != PeriodStatusClosed {
			return periodStateErr(current, msgOnlyClosedReopen)
		}
		later, found, err := closedPeriodFrom(ctx, tx, companyID, current.EndDate, current.ID)
		if err != nil {
			return err
		}
		if found {
			return periodStateErr(later, msgLaterPeriodClosed)
		}
		if current.ClosingJournalEntryID != nil {
			closing, err := tx.GetJournalEntryForUpdate(ctx, companyID, *current.ClosingJournalEntryID)
			if err != nil {
				return err
			}
			if closing.Status == JournalStatusPosted {
				if _, rows, err = s.voidEntryTx(ctx, tx, closing, actorID); err != nil {
					return err
				}
			}
		}
		current.Status = PeriodStatusOpen
		current.ClosedBy = nil
		current.ClosedAt = nil
		current.ClosingJournalEntryID = nil
		current.UpdatedAt = s.now()
		period, err = tx.UpdatePeriod(ctx, current)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.rowsAppended("reopen", rows)
	s.invalidateReports(ctx, companyID)
	s.recordAudit(ctx, companyID, actorID, "period.reopen", "period", periodID, nil)
	s.logger.Info("period reopened", slog.Int64("company_id", companyID), slog.String("period", period.Name))
	return period, nil
}

// LockPeriod makes a closed period permanent.
func (s *Service) LockPeriod(ctx context.Context, companyID, periodID, actorID int64) (Period, error) {
	release, err := s.acquirePeriodLock(ctx, companyID, periodID)
	if err != nil {
		return Period{}, err
	}
	defer release()

	var period Period
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, companyID, periodID)
		if err != nil {
			return err
		}
		if current.Status != PeriodStatusClosed {
			return periodStateErr(current, msgOnlyClosedLock)
		}
		current.Status = PeriodStatusLocked
		current.UpdatedAt = s.now()
		period, err = tx.UpdatePeriod(ctx, current)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.recordAudit(ctx, companyID, actorID, "period.lock", "period", periodID, nil)
	s.logger.Info("period locked", slog.Int64("company_id", companyID), slog.String("period", period.Name))
	return period, nil
}

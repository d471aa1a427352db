package accounting

import (
	"context"
	"log/slog"
	"strings"
)

// CreateJournalEntry validates and stores a new draft entry. Drafts never touch the ledger.
func (s *Service) CreateJournalEntry(ctx context.Context, input CreateJournalInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.createEntryTx(ctx, tx, input, false)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, input.CompanyID, input.ActorID, "journal.create", "journal_entry", entry.ID, map[string]any{
		"number": entry.Number,
		"type":   string(entry.Type),
		"debit":  entry.TotalDebit.StringFixed(2),
	})
	return entry, nil
}

func (s *Service) createEntryTx(ctx context.Context, tx TxRepository, input CreateJournalInput, closing bool) (JournalEntry, error) {
	totalDebit, totalCredit, err := ValidateLines(input.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	if _, err := loadLineAccounts(ctx, tx, input.CompanyID, input.Lines, !closing); err != nil {
		return JournalEntry{}, err
	}
	entryType := input.Type
	if entryType == "" {
		entryType = EntryTypeManual
	}
	if input.SourceID != nil {
		existing, found, err := tx.FindJournalBySource(ctx, input.CompanyID, entryType, *input.SourceID)
		if err != nil {
			return JournalEntry{}, err
		}
		if found {
			return JournalEntry{}, &ConflictError{Entity: "journal entry", Message: "source already recorded as " + existing.Number}
		}
	}
	number, err := tx.NextEntryNumber(ctx, input.CompanyID)
	if err != nil {
		return JournalEntry{}, err
	}
	now := s.now()
	return tx.InsertJournalEntry(ctx, JournalEntry{
		CompanyID:       input.CompanyID,
		Number:          number,
		Date:            LedgerDay(input.Date),
		ReferenceNumber: strings.TrimSpace(input.ReferenceNumber),
		Description:     strings.TrimSpace(input.Description),
		Type:            entryType,
		SourceID:        input.SourceID,
		Status:          JournalStatusDraft,
		IsClosing:       closing,
		Lines:           inputsToLines(input.Lines),
		TotalDebit:      totalDebit,
		TotalCredit:     totalCredit,
		CreatedBy:       input.ActorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

// UpdateJournalEntry edits a draft entry.
func (s *Service) UpdateJournalEntry(ctx context.Context, input UpdateJournalInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetJournalEntryForUpdate(ctx, input.CompanyID, input.EntryID)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return journalStateErr(current, msgOnlyDraftUpdate)
		}
		if input.Date != nil {
			current.Date = LedgerDay(*input.Date)
		}
		if input.ReferenceNumber != nil {
			current.ReferenceNumber = strings.TrimSpace(*input.ReferenceNumber)
		}
		if input.Description != nil {
			current.Description = strings.TrimSpace(*input.Description)
		}
		if input.Lines != nil {
			totalDebit, totalCredit, err := ValidateLines(input.Lines)
			if err != nil {
				return err
			}
			if _, err := loadLineAccounts(ctx, tx, input.CompanyID, input.Lines, true); err != nil {
				return err
			}
			current.Lines = inputsToLines(input.Lines)
			current.TotalDebit = totalDebit
			current.TotalCredit = totalCredit
		}
		current.UpdatedAt = s.now()
		entry, err = tx.UpdateJournalEntry(ctx, current)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// DeleteJournalEntry removes a draft entry.
func (s *Service) DeleteJournalEntry(ctx context.Context, companyID, entryID, actorID int64) error {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetJournalEntryForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return journalStateErr(current, msgOnlyDraftDelete)
		}
		number = current.Number
		return tx.DeleteJournalEntry(ctx, companyID, entryID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, companyID, actorID, "journal.delete", "journal_entry", entryID, map[string]any{"number": number})
	return nil
}

// PostJournalEntry moves a draft to posted and appends one ledger row per line.
func (s *Service) PostJournalEntry(ctx context.Context, companyID, entryID, actorID int64) (JournalEntry, error) {
	var (
		entry JournalEntry
		rows  int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetJournalEntryForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		entry, rows, err = s.postEntryTx(ctx, tx, current, actorID)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.rowsAppended("post", rows)
	s.invalidateReports(ctx, companyID)
	s.recordAudit(ctx, companyID, actorID, "journal.post", "journal_entry", entry.ID, map[string]any{"number": entry.Number})
	s.logger.Info("journal posted", slog.Int64("company_id", companyID), slog.String("number", entry.Number), slog.Int("rows", rows))
	return entry, nil
}

func (s *Service) postEntryTx(ctx context.Context, tx TxRepository, entry JournalEntry, actorID int64) (JournalEntry, int, error) {
	if entry.Status != JournalStatusDraft {
		return JournalEntry{}, 0, journalStateErr(entry, msgOnlyDraftPost)
	}
	inputs := linesToInputs(entry.Lines)
	if _, _, err := ValidateLines(inputs); err != nil {
		return JournalEntry{}, 0, err
	}
	entryDay := LedgerDay(entry.Date)
	if !entry.IsClosing {
		period, closed, err := closedPeriodFrom(ctx, tx, entry.CompanyID, entryDay, 0)
		if err != nil {
			return JournalEntry{}, 0, err
		}
		if closed && period.Contains(entryDay) {
			return JournalEntry{}, 0, periodStateErr(period, msgClosedPeriodPost)
		}
		if closed {
			return JournalEntry{}, 0, periodStateErr(period, msgBeforeClosedPost)
		}
	}
	accounts, err := loadLineAccounts(ctx, tx, entry.CompanyID, inputs, !entry.IsClosing)
	if err != nil {
		return JournalEntry{}, 0, err
	}
	for _, line := range entry.Lines {
		_, err := appendLedgerRow(ctx, tx, accounts[line.AccountID], LedgerRow{
			JournalEntryID:  entry.ID,
			EntryNumber:     entry.Number,
			TransactionDate: entryDay,
			Description:     lineDescription(entry, line),
			Debit:           line.Debit,
			Credit:          line.Credit,
			IsClosing:       entry.IsClosing,
		})
		if err != nil {
			return JournalEntry{}, 0, err
		}
	}
	now := s.now()
	entry.Status = JournalStatusPosted
	entry.PostedBy = &actorID
	entry.PostedAt = &now
	entry.UpdatedAt = now
	updated, err := tx.UpdateJournalEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, 0, err
	}
	return updated, len(entry.Lines), nil
}

// VoidJournalEntry reverses a posted entry by appending mirrored rows dated
// today. The original rows are left untouched. A void is refused when today
// falls in or before a closed period, and closing entries are only reversed by
// ReopenPeriod.
func (s *Service) VoidJournalEntry(ctx context.Context, companyID, entryID, actorID int64) (JournalEntry, error) {
	var (
		entry JournalEntry
		rows  int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetJournalEntryForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		if current.IsClosing {
			return journalStateErr(current, msgClosingEntryVoid)
		}
		entry, rows, err = s.voidEntryTx(ctx, tx, current, actorID)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.rowsAppended("void", rows)
	s.invalidateReports(ctx, companyID)
	s.recordAudit(ctx, companyID, actorID, "journal.void", "journal_entry", entry.ID, map[string]any{"number": entry.Number})
	s.logger.Info("journal voided", slog.Int64("company_id", companyID), slog.String("number", entry.Number))
	return entry, nil
}

func (s *Service) voidEntryTx(ctx context.Context, tx TxRepository, entry JournalEntry, actorID int64) (JournalEntry, int, error) {
	if entry.Status != JournalStatusPosted {
		return JournalEntry{}, 0, journalStateErr(entry, msgOnlyPostedVoid)
	}
	now := s.now()
	// closing entries revert on their own date so the period end balances go with them
	reversalDate := LedgerDay(now)
	if entry.IsClosing {
		reversalDate = LedgerDay(entry.Date)
	} else {
		period, closed, err := closedPeriodFrom(ctx, tx, entry.CompanyID, reversalDate, 0)
		if err != nil {
			return JournalEntry{}, 0, err
		}
		if closed {
			return JournalEntry{}, 0, periodStateErr(period, msgClosedPeriodVoid)
		}
	}
	accounts, err := loadLineAccounts(ctx, tx, entry.CompanyID, linesToInputs(entry.Lines), false)
	if err != nil {
		return JournalEntry{}, 0, err
	}
	for _, line := range entry.Lines {
		_, err := appendLedgerRow(ctx, tx, accounts[line.AccountID], LedgerRow{
			JournalEntryID:  entry.ID,
			EntryNumber:     entry.Number + "-VOID",
			TransactionDate: reversalDate,
			Description:     "VOID: " + lineDescription(entry, line),
			Debit:           line.Credit,
			Credit:          line.Debit,
			IsClosing:       entry.IsClosing,
		})
		if err != nil {
			return JournalEntry{}, 0, err
		}
	}
	entry.Status = JournalStatusVoid
	entry.VoidedBy = &actorID
	entry.VoidedAt = &now
	entry.UpdatedAt = now
	updated, err := tx.UpdateJournalEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, 0, err
	}
	return updated, len(entry.Lines), nil
}

// GetJournalEntry returns an entry with its lines.
func (s *Service) GetJournalEntry(ctx context.Context, companyID, entryID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetJournalEntry(ctx, companyID, entryID)
		return err
	})
	return entry, err
}

// ListJournalEntries returns entries newest first.
func (s *Service) ListJournalEntries(ctx context.Context, filter JournalFilter) ([]JournalEntry, error) {
	if filter.CompanyID <= 0 {
		return nil, validationErr("company is required")
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	var entries []JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = tx.ListJournalEntries(ctx, filter)
		return err
	})
	return entries, err
}

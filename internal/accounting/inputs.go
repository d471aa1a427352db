package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAccountInput registers a chart of accounts node.
type CreateAccountInput struct {
	CompanyID int64
	Code      string
	Name      string
	Type      AccountType
	SubType   AccountSubType
	// NormalBalance overrides the type default, e.g. for contra accounts.
	NormalBalance NormalBalance
}

// Validate ensures the account definition is consistent.
func (in CreateAccountInput) Validate() error {
	if in.CompanyID <= 0 {
		return validationErr("company is required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return validationErr("account code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return validationErr("account name is required")
	}
	if !in.Type.Valid() {
		return validationErr("unknown account type %q", in.Type)
	}
	if in.NormalBalance != "" && !in.NormalBalance.Valid() {
		return validationErr("unknown normal balance %q", in.NormalBalance)
	}
	if !in.SubType.AllowedFor(in.Type) {
		return validationErr("sub type %q is not allowed for %s accounts", in.SubType, in.Type)
	}
	return nil
}

// JournalLineInput is a single line of a journal draft.
type JournalLineInput struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// CreateJournalInput describes a new draft entry.
type CreateJournalInput struct {
	CompanyID       int64
	ActorID         int64
	Date            time.Time
	ReferenceNumber string
	Description     string
	Type            EntryType
	SourceID        *uuid.UUID
	Lines           []JournalLineInput
}

// Validate checks header fields, every line and the balance of the draft.
func (in CreateJournalInput) Validate() error {
	if in.CompanyID <= 0 {
		return validationErr("company is required")
	}
	if in.Date.IsZero() {
		return validationErr("entry date is required")
	}
	entryType := in.Type
	if entryType == "" {
		entryType = EntryTypeManual
	}
	if !entryType.Valid() {
		return validationErr("unknown entry type %q", in.Type)
	}
	if entryType != EntryTypeManual && in.SourceID == nil {
		return validationErr("automated entries require a source id")
	}
	_, _, err := ValidateLines(in.Lines)
	return err
}

// UpdateJournalInput edits a draft. Nil fields are left untouched; a non-nil
// Lines slice replaces every line.
type UpdateJournalInput struct {
	CompanyID       int64
	EntryID         int64
	Date            *time.Time
	ReferenceNumber *string
	Description     *string
	Lines           []JournalLineInput
}

// Validate checks the fields that are being changed.
func (in UpdateJournalInput) Validate() error {
	if in.CompanyID <= 0 {
		return validationErr("company is required")
	}
	if in.EntryID <= 0 {
		return validationErr("entry id is required")
	}
	if in.Date != nil && in.Date.IsZero() {
		return validationErr("entry date is required")
	}
	if in.Lines != nil {
		if _, _, err := ValidateLines(in.Lines); err != nil {
			return err
		}
	}
	return nil
}

// ValidateLines enforces one populated side per line and the balance tolerance.
// It returns the debit and credit totals.
func ValidateLines(lines []JournalLineInput) (decimal.Decimal, decimal.Decimal, error) {
	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	if len(lines) == 0 {
		return totalDebit, totalCredit, validationErr("journal entry requires at least one line")
	}
	for i, line := range lines {
		if line.AccountID <= 0 {
			return totalDebit, totalCredit, &LineError{Index: i, Reason: "account is required"}
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return totalDebit, totalCredit, &LineError{Index: i, Reason: "amounts cannot be negative"}
		}
		if line.Debit.IsPositive() == line.Credit.IsPositive() {
			return totalDebit, totalCredit, &LineError{Index: i, Reason: "exactly one of debit or credit must be set"}
		}
		if !line.Debit.Equal(line.Debit.Truncate(AmountScale)) || !line.Credit.Equal(line.Credit.Truncate(AmountScale)) {
			return totalDebit, totalCredit, &LineError{Index: i, Reason: fmt.Sprintf("amounts allow at most %d decimal places", AmountScale)}
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if totalDebit.Sub(totalCredit).Abs().GreaterThan(BalanceTolerance) {
		return totalDebit, totalCredit, &UnbalancedEntryError{TotalDebit: totalDebit, TotalCredit: totalCredit}
	}
	return totalDebit, totalCredit, nil
}

func linesToInputs(lines []JournalLine) []JournalLineInput {
	out := make([]JournalLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLineInput{
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return out
}

func inputsToLines(lines []JournalLineInput) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return out
}

// CreatePeriodInput defines a new fiscal period.
type CreatePeriodInput struct {
	CompanyID  int64
	ActorID    int64
	Name       string
	Type       PeriodType
	FiscalYear int
	StartDate  time.Time
	EndDate    time.Time
	Notes      string
}

// Validate ensures the period window is well formed.
func (in CreatePeriodInput) Validate() error {
	if in.CompanyID <= 0 {
		return validationErr("company is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return validationErr("period name is required")
	}
	if !in.Type.Valid() {
		return validationErr("unknown period type %q", in.Type)
	}
	if in.FiscalYear <= 0 {
		return validationErr("fiscal year is required")
	}
	return validatePeriodRange(in.StartDate, in.EndDate)
}

// UpdatePeriodInput edits an existing period. Nil fields are left untouched.
type UpdatePeriodInput struct {
	CompanyID int64
	PeriodID  int64
	ActorID   int64
	Name      *string
	Type      *PeriodType
	Notes     *string
	StartDate *time.Time
	EndDate   *time.Time
}

// Validate checks the changed fields.
func (in UpdatePeriodInput) Validate() error {
	if in.CompanyID <= 0 {
		return validationErr("company is required")
	}
	if in.PeriodID <= 0 {
		return validationErr("period id is required")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return validationErr("period name is required")
	}
	if in.Type != nil && !in.Type.Valid() {
		return validationErr("unknown period type %q", *in.Type)
	}
	return nil
}

func (in UpdatePeriodInput) changesDates() bool {
	return in.StartDate != nil || in.EndDate != nil
}

func validatePeriodRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return validationErr("period start and end dates are required")
	}
	if !start.Before(end) {
		return validationErr("period start date must be before end date")
	}
	return nil
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	CompanyID  int64
	Types      []AccountType
	ActiveOnly bool
}

// JournalFilter narrows journal listings.
type JournalFilter struct {
	CompanyID int64
	Status    JournalStatus
	Type      EntryType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// LedgerFilter selects ledger rows for one account or one journal entry.
type LedgerFilter struct {
	CompanyID      int64
	AccountID      int64
	JournalEntryID int64
	From           *time.Time
	To             *time.Time
}

// ActivityFilter selects the ledger rows that feed reports.
type ActivityFilter struct {
	CompanyID      int64
	From           *time.Time
	To             *time.Time
	ExcludeClosing bool
}

// PeriodFilter narrows period listings.
type PeriodFilter struct {
	CompanyID  int64
	FiscalYear int
	Status     PeriodStatus
}

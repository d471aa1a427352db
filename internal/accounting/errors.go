package accounting

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation indicates malformed or inconsistent input.
	ErrValidation = errors.New("accounting: validation failed")
	// ErrNotFound indicates a missing account, entry or period.
	ErrNotFound = errors.New("accounting: not found")
	// ErrInvalidState indicates the action is not allowed in the current status.
	ErrInvalidState = errors.New("accounting: invalid state")
	// ErrConflict indicates a uniqueness or concurrency conflict.
	ErrConflict = errors.New("accounting: conflict")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// UnbalancedEntryError reports journal totals that differ by more than the tolerance.
type UnbalancedEntryError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("accounting: journal entry is unbalanced: debit %s, credit %s",
		e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2))
}

func (e *UnbalancedEntryError) Unwrap() error { return ErrValidation }

// LineError reports an invalid journal line by position.
type LineError struct {
	Index  int
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("accounting: line %d: %s", e.Index+1, e.Reason)
}

func (e *LineError) Unwrap() error { return ErrValidation }

// NotFoundError names the missing record.
type NotFoundError struct {
	Entity string
	ID     int64
	Key    string
}

func (e *NotFoundError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("accounting: %s %q not found", e.Entity, e.Key)
	}
	return fmt.Sprintf("accounting: %s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateError is returned when a transition is not allowed from the current status.
type StateError struct {
	Entity  string
	ID      int64
	Status  string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("accounting: %s (%s %d is %s)", e.Message, e.Entity, e.ID, e.Status)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// ConflictError reports a uniqueness violation or a concurrent modification.
type ConflictError struct {
	Entity  string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("accounting: %s: %s", e.Entity, e.Message)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PeriodOverlapError is returned when a period range intersects an existing one.
type PeriodOverlapError struct {
	Existing Period
}

func (e *PeriodOverlapError) Error() string {
	return fmt.Sprintf("accounting: period overlaps %q (%s to %s)", e.Existing.Name,
		e.Existing.StartDate.Format("2006-01-02"), e.Existing.EndDate.Format("2006-01-02"))
}

func (e *PeriodOverlapError) Unwrap() error { return ErrConflict }

// state transition messages
const (
	msgOnlyDraftUpdate   = "Only draft entries can be updated"
	msgOnlyDraftPost     = "Only draft entries can be posted"
	msgOnlyDraftDelete   = "Only draft entries can be deleted"
	msgOnlyPostedVoid    = "Only posted entries can be voided"
	msgClosedPeriodPost  = "Entries cannot be posted into a closed period"
	msgBeforeClosedPost  = "Entries cannot be posted before a closed period"
	msgClosedPeriodVoid  = "Entries cannot be voided while the void date falls in or before a closed period"
	msgClosingEntryVoid  = "Closing entries are voided by reopening their period"
	msgLaterPeriodClosed = "A later period is already closed"
	msgOnlyOpenClose     = "Only open periods can be closed"
	msgOnlyClosedReopen  = "Only closed periods can be reopened"
	msgOnlyClosedLock    = "Only closed periods can be locked"
	msgOnlyOpenDelete    = "Only open periods can be deleted"
	msgLockedPeriodEdit  = "Locked periods cannot be modified"
	msgOnlyOpenDateShift = "Period dates can only change while open"
)

func journalStateErr(entry JournalEntry, msg string) error {
	return &StateError{Entity: "journal entry", ID: entry.ID, Status: string(entry.Status), Message: msg}
}

func periodStateErr(period Period, msg string) error {
	return &StateError{Entity: "period", ID: period.ID, Status: string(period.Status), Message: msg}
}

package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

type createAccountRequest struct {
	Code          string `json:"code" validate:"required,max=32"`
	Name          string `json:"name" validate:"required,max=200"`
	Type          string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	SubType       string `json:"sub_type"`
	NormalBalance string `json:"normal_balance" validate:"omitempty,oneof=DEBIT CREDIT"`
}

type journalLineRequest struct {
	AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" validate:"max=500"`
}

type createJournalRequest struct {
	Date            string               `json:"date" validate:"required,datetime=2006-01-02"`
	ReferenceNumber string               `json:"reference_number" validate:"max=64"`
	Description     string               `json:"description" validate:"max=500"`
	EntryType       string               `json:"entry_type" validate:"omitempty,oneof=MANUAL AUTO_INVOICE AUTO_BILL AUTO_PAYMENT"`
	SourceID        *uuid.UUID           `json:"source_id"`
	Lines           []journalLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updateJournalRequest struct {
	Date            *string              `json:"date" validate:"omitempty,datetime=2006-01-02"`
	ReferenceNumber *string              `json:"reference_number" validate:"omitempty,max=64"`
	Description     *string              `json:"description" validate:"omitempty,max=500"`
	Lines           []journalLineRequest `json:"lines" validate:"omitempty,min=1,dive"`
}

type createPeriodRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Type       string `json:"period_type" validate:"required,oneof=MONTH QUARTER YEAR CUSTOM"`
	FiscalYear int    `json:"fiscal_year" validate:"required,gt=0"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Notes      string `json:"notes"`
}

type updatePeriodRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	Type      *string `json:"period_type" validate:"omitempty,oneof=MONTH QUARTER YEAR CUSTOM"`
	StartDate *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     *string `json:"notes"`
}

func toLineInputs(lines []journalLineRequest) []accounting.JournalLineInput {
	if lines == nil {
		return nil
	}
	out := make([]accounting.JournalLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, accounting.JournalLineInput{
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return out
}

type accountView struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	SubType       string          `json:"sub_type,omitempty"`
	NormalBalance string          `json:"normal_balance"`
	Balance       decimal.Decimal `json:"balance"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func newAccountView(a accounting.Account) accountView {
	return accountView{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		Type:          string(a.Type),
		SubType:       string(a.SubType),
		NormalBalance: string(a.NormalBalance),
		Balance:       a.Balance,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

type balanceView struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	AsOf      *string         `json:"as_of"`
	Balance   decimal.Decimal `json:"balance"`
}

func newBalanceView(b accounting.AccountBalance) balanceView {
	view := balanceView{AccountID: b.Account.ID, Code: b.Account.Code, Balance: b.Balance}
	if b.AsOf != nil {
		s := b.AsOf.Format(dateLayout)
		view.AsOf = &s
	}
	return view
}

type journalLineView struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

type journalView struct {
	ID              int64             `json:"id"`
	EntryNumber     string            `json:"entry_number"`
	Date            string            `json:"date"`
	ReferenceNumber string            `json:"reference_number,omitempty"`
	Description     string            `json:"description"`
	EntryType       string            `json:"entry_type"`
	SourceID        *uuid.UUID        `json:"source_id,omitempty"`
	Status          string            `json:"status"`
	IsClosing       bool              `json:"is_closing"`
	TotalDebit      decimal.Decimal   `json:"total_debit"`
	TotalCredit     decimal.Decimal   `json:"total_credit"`
	Lines           []journalLineView `json:"lines"`
	CreatedBy       int64             `json:"created_by"`
	PostedBy        *int64            `json:"posted_by,omitempty"`
	PostedAt        *time.Time        `json:"posted_at,omitempty"`
	VoidedBy        *int64            `json:"voided_by,omitempty"`
	VoidedAt        *time.Time        `json:"voided_at,omitempty"`
}

func newJournalView(e accounting.JournalEntry) journalView {
	lines := make([]journalLineView, 0, len(e.Lines))
	for _, line := range e.Lines {
		lines = append(lines, journalLineView{
			ID:          line.ID,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return journalView{
		ID:              e.ID,
		EntryNumber:     e.Number,
		Date:            e.Date.Format(dateLayout),
		ReferenceNumber: e.ReferenceNumber,
		Description:     e.Description,
		EntryType:       string(e.Type),
		SourceID:        e.SourceID,
		Status:          string(e.Status),
		IsClosing:       e.IsClosing,
		TotalDebit:      e.TotalDebit,
		TotalCredit:     e.TotalCredit,
		Lines:           lines,
		CreatedBy:       e.CreatedBy,
		PostedBy:        e.PostedBy,
		PostedAt:        e.PostedAt,
		VoidedBy:        e.VoidedBy,
		VoidedAt:        e.VoidedAt,
	}
}

type ledgerRowView struct {
	ID              int64           `json:"id"`
	AccountID       int64           `json:"account_id"`
	JournalEntryID  int64           `json:"journal_entry_id"`
	EntryNumber     string          `json:"entry_number"`
	TransactionDate string          `json:"transaction_date"`
	Description     string          `json:"description"`
	Debit           decimal.Decimal `json:"debit"`
	Credit          decimal.Decimal `json:"credit"`
	RunningBalance  decimal.Decimal `json:"running_balance"`
	IsClosing       bool            `json:"is_closing"`
}

func newLedgerViews(rows []accounting.LedgerRow) []ledgerRowView {
	out := make([]ledgerRowView, 0, len(rows))
	for _, row := range rows {
		out = append(out, ledgerRowView{
			ID:              row.ID,
			AccountID:       row.AccountID,
			JournalEntryID:  row.JournalEntryID,
			EntryNumber:     row.EntryNumber,
			TransactionDate: row.TransactionDate.Format(dateLayout),
			Description:     row.Description,
			Debit:           row.Debit,
			Credit:          row.Credit,
			RunningBalance:  row.RunningBalance,
			IsClosing:       row.IsClosing,
		})
	}
	return out
}

type periodView struct {
	ID                    int64      `json:"id"`
	Name                  string     `json:"name"`
	PeriodType            string     `json:"period_type"`
	FiscalYear            int        `json:"fiscal_year"`
	StartDate             string     `json:"start_date"`
	EndDate               string     `json:"end_date"`
	Status                string     `json:"status"`
	ClosedBy              *int64     `json:"closed_by,omitempty"`
	ClosedAt              *time.Time `json:"closed_at,omitempty"`
	ClosingJournalEntryID *int64     `json:"closing_journal_entry_id,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
}

func newPeriodView(p accounting.Period) periodView {
	return periodView{
		ID:                    p.ID,
		Name:                  p.Name,
		PeriodType:            string(p.Type),
		FiscalYear:            p.FiscalYear,
		StartDate:             p.StartDate.Format(dateLayout),
		EndDate:               p.EndDate.Format(dateLayout),
		Status:                string(p.Status),
		ClosedBy:              p.ClosedBy,
		ClosedAt:              p.ClosedAt,
		ClosingJournalEntryID: p.ClosingJournalEntryID,
		Notes:                 p.Notes,
	}
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

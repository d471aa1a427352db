package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DefaultNormalBalance returns the side on which accounts of this type usually grow.
func (t AccountType) DefaultNormalBalance() NormalBalance {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return NormalBalanceDebit
	}
	return NormalBalanceCredit
}

// NormalBalance is the side on which an account balance increases.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "DEBIT"
	NormalBalanceCredit NormalBalance = "CREDIT"
)

// Valid reports whether n is DEBIT or CREDIT.
func (n NormalBalance) Valid() bool {
	return n == NormalBalanceDebit || n == NormalBalanceCredit
}

// SignedDelta returns the change a debit/credit pair applies to a balance kept
// on side n. This is the only place the ledger decides a sign.
func (n NormalBalance) SignedDelta(debit, credit decimal.Decimal) decimal.Decimal {
	if n == NormalBalanceDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// AccountSubType classifies accounts within a type. Close and report logic
// match on these tags only.
type AccountSubType string

const (
	SubTypeNone              AccountSubType = ""
	SubTypeCurrentAsset      AccountSubType = "CURRENT_ASSET"
	SubTypeFixedAsset        AccountSubType = "FIXED_ASSET"
	SubTypeContraAsset       AccountSubType = "CONTRA_ASSET"
	SubTypeCurrentLiability  AccountSubType = "CURRENT_LIABILITY"
	SubTypeLongTermLiability AccountSubType = "LONG_TERM_LIABILITY"
	SubTypeOwnerEquity       AccountSubType = "OWNER_EQUITY"
	SubTypeRetainedEarnings  AccountSubType = "RETAINED_EARNINGS"
	SubTypeOperatingRevenue  AccountSubType = "OPERATING_REVENUE"
	SubTypeOtherRevenue      AccountSubType = "OTHER_REVENUE"
	SubTypeContraRevenue     AccountSubType = "CONTRA_REVENUE"
	SubTypeCostOfSales       AccountSubType = "COST_OF_SALES"
	SubTypeOperatingExpense  AccountSubType = "OPERATING_EXPENSE"
	SubTypeOtherExpense      AccountSubType = "OTHER_EXPENSE"
)

var subTypesByType = map[AccountType][]AccountSubType{
	AccountTypeAsset:     {SubTypeCurrentAsset, SubTypeFixedAsset, SubTypeContraAsset},
	AccountTypeLiability: {SubTypeCurrentLiability, SubTypeLongTermLiability},
	AccountTypeEquity:    {SubTypeOwnerEquity, SubTypeRetainedEarnings},
	AccountTypeRevenue:   {SubTypeOperatingRevenue, SubTypeOtherRevenue, SubTypeContraRevenue},
	AccountTypeExpense:   {SubTypeCostOfSales, SubTypeOperatingExpense, SubTypeOtherExpense},
}

// AllowedFor reports whether the sub type may be attached to an account of type t.
func (s AccountSubType) AllowedFor(t AccountType) bool {
	if s == SubTypeNone {
		return true
	}
	for _, candidate := range subTypesByType[t] {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsContra reports whether the sub type marks a contra account.
func (s AccountSubType) IsContra() bool {
	return s == SubTypeContraAsset || s == SubTypeContraRevenue
}

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "DRAFT"
	JournalStatusPosted JournalStatus = "POSTED"
	JournalStatusVoid   JournalStatus = "VOID"
)

// EntryType tells manual entries apart from postings raised by other modules.
type EntryType string

const (
	EntryTypeManual      EntryType = "MANUAL"
	EntryTypeAutoInvoice EntryType = "AUTO_INVOICE"
	EntryTypeAutoBill    EntryType = "AUTO_BILL"
	EntryTypeAutoPayment EntryType = "AUTO_PAYMENT"
)

// Valid reports whether e is a known entry type.
func (e EntryType) Valid() bool {
	switch e {
	case EntryTypeManual, EntryTypeAutoInvoice, EntryTypeAutoBill, EntryTypeAutoPayment:
		return true
	}
	return false
}

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
	PeriodStatusLocked PeriodStatus = "LOCKED"
)

// PeriodType describes the length of a fiscal period.
type PeriodType string

const (
	PeriodTypeMonth   PeriodType = "MONTH"
	PeriodTypeQuarter PeriodType = "QUARTER"
	PeriodTypeYear    PeriodType = "YEAR"
	PeriodTypeCustom  PeriodType = "CUSTOM"
)

// Valid reports whether p is a known period type.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodTypeMonth, PeriodTypeQuarter, PeriodTypeYear, PeriodTypeCustom:
		return true
	}
	return false
}

// RetainedEarningsCode is the account code used by period close.
const RetainedEarningsCode = "3200"

// BalanceTolerance is the largest debit/credit gap still treated as balanced.
var BalanceTolerance = decimal.New(1, -2)

// AmountScale is the number of decimal places stored for line amounts.
const AmountScale = 4

// Account models a chart of accounts node.
type Account struct {
	ID            int64
	CompanyID     int64
	Code          string
	Name          string
	Type          AccountType
	SubType       AccountSubType
	NormalBalance NormalBalance
	// Balance caches the running balance of the account's latest ledger row.
	Balance   decimal.Decimal
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JournalEntry captures a balanced set of lines for one business event.
type JournalEntry struct {
	ID              int64
	CompanyID       int64
	Number          string
	Date            time.Time
	ReferenceNumber string
	Description     string
	Type            EntryType
	SourceID        *uuid.UUID
	Status          JournalStatus
	IsClosing       bool
	Lines           []JournalLine
	TotalDebit      decimal.Decimal
	TotalCredit     decimal.Decimal
	CreatedBy       int64
	PostedBy        *int64
	PostedAt        *time.Time
	VoidedBy        *int64
	VoidedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID          int64
	JournalID   int64
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// LedgerRow is the posted effect of one journal line on one account.
type LedgerRow struct {
	ID              int64
	CompanyID       int64
	AccountID       int64
	JournalEntryID  int64
	EntryNumber     string
	TransactionDate time.Time
	Description     string
	Debit           decimal.Decimal
	Credit          decimal.Decimal
	RunningBalance  decimal.Decimal
	IsClosing       bool
	CreatedAt       time.Time
}

// Before reports whether r sorts before o in ledger order:
// (transaction date, created at, id) ascending.
func (r LedgerRow) Before(o LedgerRow) bool {
	if !r.TransactionDate.Equal(o.TransactionDate) {
		return r.TransactionDate.Before(o.TransactionDate)
	}
	if !r.CreatedAt.Equal(o.CreatedAt) {
		return r.CreatedAt.Before(o.CreatedAt)
	}
	return r.ID < o.ID
}

// Period represents a fiscal period window.
type Period struct {
	ID                    int64
	CompanyID             int64
	Name                  string
	Type                  PeriodType
	FiscalYear            int
	StartDate             time.Time
	EndDate               time.Time
	Status                PeriodStatus
	ClosedBy              *int64
	ClosedAt              *time.Time
	ClosingJournalEntryID *int64
	Notes                 string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Contains reports whether date falls inside the period, both ends inclusive.
func (p Period) Contains(date time.Time) bool {
	day := LedgerDay(date)
	return !day.Before(LedgerDay(p.StartDate)) && !day.After(LedgerDay(p.EndDate))
}

// Overlaps reports whether [start, end] intersects the period.
func (p Period) Overlaps(start, end time.Time) bool {
	return !LedgerDay(start).After(LedgerDay(p.EndDate)) && !LedgerDay(end).Before(LedgerDay(p.StartDate))
}

// LedgerDay returns the UTC calendar day of t. Entry dates, ledger rows and
// as-of bounds are all compared at this granularity.
func LedgerDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AccountActivity aggregates posted debits and credits of one account.
type AccountActivity struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// AccountBalance is an account balance at a point in time.
type AccountBalance struct {
	Account Account
	AsOf    *time.Time
	Balance decimal.Decimal
}

package ledger

import (
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalSourceType identifies the document kind a journal entry was
// posted from. (SourceType, SourceID) is unique per posted entry, which
// is what makes posting idempotent.
type JournalSourceType string

const (
	JournalSourceDocument JournalSourceType = "DOCUMENT"
	JournalSourcePayment  JournalSourceType = "PAYMENT"
	JournalSourceReversal JournalSourceType = "REVERSAL"
)

// IsValid checks if the source type is valid
func (s JournalSourceType) IsValid() bool {
	return s == JournalSourceDocument || s == JournalSourcePayment || s == JournalSourceReversal
}

// String returns the string representation of JournalSourceType
func (s JournalSourceType) String() string {
	return string(s)
}

// JournalLine is one debit or credit leg of a journal entry. Exactly
// one of Debit and Credit is positive; the other is zero.
type JournalLine struct {
	ID          uuid.UUID       `json:"id"`
	LineNo      int             `json:"line_no"`
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// NewDebitLine creates a debit leg
func NewDebitLine(accountCode string, amount decimal.Decimal) JournalLine {
	return JournalLine{ID: uuid.New(), AccountCode: accountCode, Debit: amount, Credit: decimal.Zero}
}

// NewCreditLine creates a credit leg
func NewCreditLine(accountCode string, amount decimal.Decimal) JournalLine {
	return JournalLine{ID: uuid.New(), AccountCode: accountCode, Debit: decimal.Zero, Credit: amount}
}

func (l JournalLine) validate() error {
	if l.AccountCode == "" {
		return shared.NewDomainError("INVALID_ACCOUNT_CODE", "Journal line account code cannot be empty")
	}
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return shared.NewDomainError("INVALID_LINE_AMOUNT", "Journal line amounts cannot be negative")
	}
	if l.Debit.IsPositive() && l.Credit.IsPositive() {
		return shared.NewDomainError("INVALID_LINE_AMOUNT", "Journal line cannot carry both a debit and a credit")
	}
	if l.Debit.IsZero() && l.Credit.IsZero() {
		return shared.NewDomainError("INVALID_LINE_AMOUNT", "Journal line must carry a debit or a credit")
	}
	return nil
}

// JournalEntry is a balanced double-entry record. Once posted it is
// owned by the ledger and immutable; corrections are made by posting a
// reversal, never by editing in place.
type JournalEntry struct {
	shared.TenantAggregateRoot
	EntryNumber  string
	EntryDate    time.Time
	Currency     valueobject.Currency
	Memo         string
	Posted       bool
	PostedAt     *time.Time
	ReversalOfID *uuid.UUID
	SourceType   JournalSourceType
	SourceID     uuid.UUID
	Lines        []JournalLine
}

// NewJournalEntry constructs a journal entry and enforces the balance
// invariant before the entry is considered constructable.
func NewJournalEntry(
	tenantID uuid.UUID,
	entryNumber string,
	entryDate time.Time,
	currency valueobject.Currency,
	memo string,
	sourceType JournalSourceType,
	sourceID uuid.UUID,
	lines []JournalLine,
) (*JournalEntry, error) {
	if entryNumber == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY_NUMBER", "Entry number cannot be empty")
	}
	if entryDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ENTRY_DATE", "Entry date is required")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("Invalid currency code %q", currency))
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_TYPE", "Journal source type is not valid")
	}
	if sourceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SOURCE_ID", "Journal source ID cannot be empty")
	}
	if len(lines) < 2 {
		return nil, shared.NewDomainError("INVALID_LINES", "A journal entry needs at least two lines")
	}

	debits := decimal.Zero
	credits := decimal.Zero
	for i := range lines {
		if err := lines[i].validate(); err != nil {
			return nil, err
		}
		lines[i].LineNo = i + 1
		debits = debits.Add(lines[i].Debit)
		credits = credits.Add(lines[i].Credit)
	}
	if !debits.Equal(credits) {
		return nil, &UnbalancedEntryError{EntryNumber: entryNumber, Debits: debits, Credits: credits}
	}

	entry := &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		EntryNumber:         entryNumber,
		EntryDate:           entryDate,
		Currency:            currency,
		Memo:                memo,
		SourceType:          sourceType,
		SourceID:            sourceID,
		Lines:               lines,
	}
	entry.AddDomainEvent(NewJournalEntryCreatedEvent(entry))
	return entry, nil
}

// MarkPosted stamps the entry as posted. Posted entries are immutable.
func (e *JournalEntry) MarkPosted() error {
	if e.Posted {
		return shared.NewDomainError("ALREADY_POSTED", "Journal entry is already posted")
	}
	now := time.Now()
	e.Posted = true
	e.PostedAt = &now
	e.UpdatedAt = now
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalEntryPostedEvent(e))
	return nil
}

// TotalDebits returns the sum of all debit legs
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// TotalCredits returns the sum of all credit legs
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// IsBalanced reports whether debits equal credits
func (e *JournalEntry) IsBalanced() bool {
	return e.TotalDebits().Equal(e.TotalCredits())
}

// IsReversal reports whether this entry reverses another
func (e *JournalEntry) IsReversal() bool {
	return e.ReversalOfID != nil
}

// Reverse builds a new entry that exactly negates this one: every
// line's debit and credit swapped, memo referencing the original,
// linked through ReversalOfID. The original entry is not touched; the
// ledger is append-only.
func (e *JournalEntry) Reverse(entryNumber string, entryDate time.Time) (*JournalEntry, error) {
	if !e.Posted {
		return nil, shared.NewDomainError("NOT_POSTED", "Only a posted journal entry can be reversed")
	}

	swapped := make([]JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		swapped[i] = JournalLine{
			ID:          uuid.New(),
			AccountCode: l.AccountCode,
			Debit:       l.Credit,
			Credit:      l.Debit,
		}
	}

	memo := fmt.Sprintf("%s (reversal of %s)", e.Memo, e.EntryNumber)
	reversal, err := NewJournalEntry(e.TenantID, entryNumber, entryDate, e.Currency, memo, JournalSourceReversal, e.ID, swapped)
	if err != nil {
		return nil, err
	}
	originalID := e.ID
	reversal.ReversalOfID = &originalID
	return reversal, nil
}

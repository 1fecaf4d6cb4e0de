package ledger

import (
	"github.com/finledger/backend/internal/domain/shared"
)

// Event type constants for the JournalEntry aggregate
const (
	EventTypeJournalEntryCreated  = "ledger.journal_entry.created"
	EventTypeJournalEntryPosted   = "ledger.journal_entry.posted"
	EventTypeJournalEntryReversed = "ledger.journal_entry.reversed"

	aggregateTypeJournalEntry = "JournalEntry"
)

// JournalEntryCreatedEvent is raised when a balanced entry is constructed
type JournalEntryCreatedEvent struct {
	shared.BaseDomainEvent
	EntryNumber string `json:"entry_number"`
}

// NewJournalEntryCreatedEvent creates a JournalEntryCreatedEvent
func NewJournalEntryCreatedEvent(e *JournalEntry) *JournalEntryCreatedEvent {
	return &JournalEntryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryCreated, aggregateTypeJournalEntry, e.ID, e.TenantID),
		EntryNumber:     e.EntryNumber,
	}
}

// JournalEntryPostedEvent is raised when an entry is posted to the ledger
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	EntryNumber string `json:"entry_number"`
}

// NewJournalEntryPostedEvent creates a JournalEntryPostedEvent
func NewJournalEntryPostedEvent(e *JournalEntry) *JournalEntryPostedEvent {
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryPosted, aggregateTypeJournalEntry, e.ID, e.TenantID),
		EntryNumber:     e.EntryNumber,
	}
}

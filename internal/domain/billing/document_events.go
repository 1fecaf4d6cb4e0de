package billing

import (
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants for the Document aggregate
const (
	EventTypeDocumentCreated   = "billing.document.created"
	EventTypeDocumentSubmitted = "billing.document.submitted"
	EventTypeDocumentApproved  = "billing.document.approved"
	EventTypeDocumentRejected  = "billing.document.rejected"
	EventTypeDocumentPosted    = "billing.document.posted"
	EventTypeDocumentPaid      = "billing.document.paid"

	aggregateTypeDocument = "Document"
)

// DocumentCreatedEvent is raised when a document is created
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string       `json:"document_number"`
	DocumentType   DocumentType `json:"document_type"`
}

// NewDocumentCreatedEvent creates a DocumentCreatedEvent
func NewDocumentCreatedEvent(d *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentNumber:  d.DocumentNumber,
		DocumentType:    d.Type,
	}
}

// DocumentSubmittedEvent is raised when a document enters approval
type DocumentSubmittedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string `json:"document_number"`
}

// NewDocumentSubmittedEvent creates a DocumentSubmittedEvent
func NewDocumentSubmittedEvent(d *Document) *DocumentSubmittedEvent {
	return &DocumentSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentSubmitted, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentNumber:  d.DocumentNumber,
	}
}

// DocumentApprovedEvent is raised when a pending document is approved
type DocumentApprovedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string    `json:"document_number"`
	ApproverID     uuid.UUID `json:"approver_id"`
}

// NewDocumentApprovedEvent creates a DocumentApprovedEvent
func NewDocumentApprovedEvent(d *Document, approverID uuid.UUID) *DocumentApprovedEvent {
	return &DocumentApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentApproved, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentNumber:  d.DocumentNumber,
		ApproverID:      approverID,
	}
}

// DocumentRejectedEvent is raised when a pending document is rejected
type DocumentRejectedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string    `json:"document_number"`
	ApproverID     uuid.UUID `json:"approver_id"`
}

// NewDocumentRejectedEvent creates a DocumentRejectedEvent
func NewDocumentRejectedEvent(d *Document, approverID uuid.UUID) *DocumentRejectedEvent {
	return &DocumentRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentRejected, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentNumber:  d.DocumentNumber,
		ApproverID:      approverID,
	}
}

// DocumentPostedEvent is raised when the ledger poster posts a document
type DocumentPostedEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string     `json:"document_number"`
	JournalEntryID *uuid.UUID `json:"journal_entry_id"`
}

// NewDocumentPostedEvent creates a DocumentPostedEvent
func NewDocumentPostedEvent(d *Document) *DocumentPostedEvent {
	return &DocumentPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentPosted, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentNumber:  d.DocumentNumber,
		JournalEntryID:  d.JournalEntryID,
	}
}

// DocumentPaidEvent is raised when the document balance reaches zero
type DocumentPaidEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string `json:"document_number"`
}

// NewDocumentPaidEvent creates a DocumentPaidEvent
func NewDocumentPaidEvent(d *Document) *DocumentPaidEvent {
	return &DocumentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentPaid, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentNumber:  d.DocumentNumber,
	}
}

package billing

import (
	"context"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentFilter defines filtering options for document queries
type DocumentFilter struct {
	shared.Filter
	Type           *DocumentType
	PartyID        *uuid.UUID
	ApprovalStatus *ApprovalStatus
	PostingStatus  *PostingStatus
	PaymentStatus  *PaymentStatus
}

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	// FindByIDForTenant finds a document with its lines for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Document, error)

	// FindByNumber finds a document by its number for a tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (*Document, error)

	// FindAllForTenant finds documents for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter DocumentFilter) ([]Document, error)

	// Save creates or updates a document and its lines
	Save(ctx context.Context, document *Document) error

	// SaveWithLock saves with optimistic locking (version compare-and-set).
	// This is the concurrency control for posting and allocation.
	SaveWithLock(ctx context.Context, document *Document) error

	// ExistsByNumber checks if a document number exists for a tenant
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (bool, error)

	// GenerateDocumentNumber generates a unique document number for a tenant
	GenerateDocumentNumber(ctx context.Context, tenantID uuid.UUID, docType DocumentType) (string, error)
}

// ApprovalRecordRepository defines the interface for approval record persistence
type ApprovalRecordRepository interface {
	// FindByIDForTenant finds an approval record for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ApprovalRecord, error)

	// FindPendingByDocument finds the open approval record for a document, if any
	FindPendingByDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*ApprovalRecord, error)

	// FindByDocument lists all approval records for a document
	FindByDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]ApprovalRecord, error)

	// Save creates or updates an approval record
	Save(ctx context.Context, record *ApprovalRecord) error
}

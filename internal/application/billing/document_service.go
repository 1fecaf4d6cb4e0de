package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/procurement"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DocumentService handles document lifecycle: creation, submission and
// the approval state machine. Posting is the ledger service's job.
type DocumentService struct {
	documents billing.DocumentRepository
	approvals billing.ApprovalRecordRepository
	issues    procurement.MatchingIssueRepository
	registry  *valueobject.TaxRegistry
	logger    *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documents billing.DocumentRepository,
	approvals billing.ApprovalRecordRepository,
	issues procurement.MatchingIssueRepository,
	registry *valueobject.TaxRegistry,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documents: documents,
		approvals: approvals,
		issues:    issues,
		registry:  registry,
		logger:    logger,
	}
}

// LineItemRequest is one line of a document creation request
type LineItemRequest struct {
	Description   string          `json:"description" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice     decimal.Decimal `json:"unit_price" binding:"required"`
	TaxRateCode   string          `json:"tax_rate_code"`
	AccountCode   string          `json:"account_code"`
	POLineID      *uuid.UUID      `json:"po_line_id"`
	ReceiptLineID *uuid.UUID      `json:"receipt_line_id"`
}

// CreateDocumentRequest represents a request to create a document
type CreateDocumentRequest struct {
	TenantID        uuid.UUID
	DocumentNumber  string
	Type            billing.DocumentType
	PartyID         uuid.UUID
	PartyName       string
	Currency        valueobject.Currency
	Jurisdiction    string
	IssueDate       time.Time
	DueDate         *time.Time
	PurchaseOrderID *uuid.UUID
	GoodsReceiptID  *uuid.UUID
	Lines           []LineItemRequest
}

// CreateDocumentResult reports the created document and any lines that
// were recorded but excluded from totals.
type CreateDocumentResult struct {
	DocumentID     uuid.UUID               `json:"document_id"`
	DocumentNumber string                  `json:"document_number"`
	Rejections     []billing.LineRejection `json:"rejections,omitempty"`
}

// CreateDocument creates a draft document. Tax rates are snapshotted
// from the jurisdiction schedule at creation time; a document with no
// valid lines is rejected outright, nothing is persisted.
func (s *DocumentService) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*CreateDocumentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "create")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentType, string(req.Type),
		telemetry.SpanAttrCurrency, string(req.Currency),
	)

	documentNumber := req.DocumentNumber
	if documentNumber == "" {
		generated, err := s.documents.GenerateDocumentNumber(ctx, req.TenantID, req.Type)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to generate document number: %w", err)
		}
		documentNumber = generated
	} else {
		exists, err := s.documents.ExistsByNumber(ctx, req.TenantID, documentNumber)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to check document number: %w", err)
		}
		if exists {
			err := shared.NewDomainError("DUPLICATE_DOCUMENT_NUMBER", fmt.Sprintf("Document number %s already exists", documentNumber))
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	lines := make([]billing.LineItem, 0, len(req.Lines))
	for i, lr := range req.Lines {
		line := billing.NewLineItem(i+1, lr.Description, lr.Quantity, lr.UnitPrice, decimal.Zero)
		line.AccountCode = lr.AccountCode
		line.POLineID = lr.POLineID
		line.ReceiptLineID = lr.ReceiptLineID
		if lr.TaxRateCode != "" {
			taxRate, err := s.registry.Lookup(req.Jurisdiction, lr.TaxRateCode)
			if err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			line.TaxRateCode = taxRate.Code
			if taxRate.Charges() {
				line.TaxRate = taxRate.Rate
			}
		}
		lines = append(lines, line)
	}

	doc, err := billing.NewDocument(
		req.TenantID, documentNumber, req.Type,
		req.PartyID, req.PartyName, req.Currency, req.Jurisdiction,
		req.IssueDate, req.DueDate, lines,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	doc.PurchaseOrderID = req.PurchaseOrderID
	doc.GoodsReceiptID = req.GoodsReceiptID

	if err := s.documents.Save(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	_, rejections := doc.ValidLines()
	telemetry.SetAttribute(span, telemetry.SpanAttrDocumentNumber, documentNumber)

	return &CreateDocumentResult{
		DocumentID:     doc.ID,
		DocumentNumber: documentNumber,
		Rejections:     rejections,
	}, nil
}

// Submit moves a draft document into PENDING_APPROVAL and opens an
// approval record for it.
func (s *DocumentService) Submit(ctx context.Context, tenantID, documentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "submit")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrDocumentID, documentID.String())

	doc, err := s.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := doc.SubmitForApproval(); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	record, err := billing.NewApprovalRecord(tenantID, doc.ID, 1)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.documents.SaveWithLock(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save document: %w", err)
	}
	if err := s.approvals.Save(ctx, record); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save approval record: %w", err)
	}
	return nil
}

// DecisionRequest represents an approve or reject call. The caller has
// already verified the approver is authorized; only state legality is
// enforced here.
type DecisionRequest struct {
	TenantID   uuid.UUID
	DocumentID uuid.UUID
	ApproverID uuid.UUID
	Comments   string
}

// Approve moves a pending document to APPROVED. Vendor bills are gated
// on their three-way match outcome: MATCHED passes, EXCEPTION passes
// only once every issue is resolved or superseded.
func (s *DocumentService) Approve(ctx context.Context, req DecisionRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "approve")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrDocumentID, req.DocumentID.String())

	doc, err := s.loadDocument(ctx, req.TenantID, req.DocumentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if doc.Type == billing.DocumentTypeVendorBill {
		if err := s.checkMatchGate(ctx, doc); err != nil {
			telemetry.RecordError(span, err)
			return err
		}
	}

	if err := doc.Approve(req.ApproverID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.decideApprovalRecord(ctx, req, true); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.documents.SaveWithLock(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Reject moves a pending document to REJECTED
func (s *DocumentService) Reject(ctx context.Context, req DecisionRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "reject")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrDocumentID, req.DocumentID.String())

	doc, err := s.loadDocument(ctx, req.TenantID, req.DocumentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := doc.Reject(req.ApproverID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.decideApprovalRecord(ctx, req, false); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := s.documents.SaveWithLock(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// ReturnToDraft reopens a rejected document for editing
func (s *DocumentService) ReturnToDraft(ctx context.Context, tenantID, documentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "return_to_draft")
	defer span.End()

	doc, err := s.loadDocument(ctx, tenantID, documentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := doc.ReturnToDraft(); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.documents.SaveWithLock(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument loads a document for a tenant
func (s *DocumentService) GetDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*billing.Document, error) {
	return s.loadDocument(ctx, tenantID, documentID)
}

// ListDocuments lists documents for a tenant with filtering
func (s *DocumentService) ListDocuments(ctx context.Context, tenantID uuid.UUID, filter billing.DocumentFilter) ([]billing.Document, error) {
	return s.documents.FindAllForTenant(ctx, tenantID, filter)
}

func (s *DocumentService) loadDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*billing.Document, error) {
	doc, err := s.documents.FindByIDForTenant(ctx, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return nil, shared.NewDomainError("DOCUMENT_NOT_FOUND", "Document not found")
	}
	return doc, nil
}

// checkMatchGate enforces the three-way match gate on vendor bills:
// approval requires MATCHED, or EXCEPTION with zero open issues.
func (s *DocumentService) checkMatchGate(ctx context.Context, doc *billing.Document) error {
	switch doc.MatchStatus {
	case billing.MatchStatusMatched:
		return nil
	case billing.MatchStatusException:
		open, err := s.issues.FindOpenByBill(ctx, doc.TenantID, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to check matching issues: %w", err)
		}
		if len(open) > 0 {
			return shared.NewDomainError("OPEN_MATCHING_ISSUES",
				fmt.Sprintf("Vendor bill has %d unresolved matching issues", len(open)))
		}
		return nil
	default:
		return shared.NewDomainError("NOT_MATCHED", "Vendor bill must pass three-way match before approval")
	}
}

func (s *DocumentService) decideApprovalRecord(ctx context.Context, req DecisionRequest, approved bool) error {
	record, err := s.approvals.FindPendingByDocument(ctx, req.TenantID, req.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to get approval record: %w", err)
	}
	if record == nil {
		s.logger.Warn("no pending approval record for document",
			zap.String("document_id", req.DocumentID.String()),
		)
		return nil
	}
	if approved {
		err = record.Approve(req.ApproverID, req.Comments)
	} else {
		err = record.Reject(req.ApproverID, req.Comments)
	}
	if err != nil {
		return err
	}
	if err := s.approvals.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save approval record: %w", err)
	}
	return nil
}

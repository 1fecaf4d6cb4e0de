package billing

import (
	"context"
	"testing"
	"time"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/procurement"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockDocumentRepository is a mock implementation of billing.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Document, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (*billing.Document, error) {
	args := m.Called(ctx, tenantID, documentNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.DocumentFilter) ([]billing.Document, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]billing.Document), args.Error(1)
}

func (m *MockDocumentRepository) Save(ctx context.Context, document *billing.Document) error {
	args := m.Called(ctx, document)
	return args.Error(0)
}

func (m *MockDocumentRepository) SaveWithLock(ctx context.Context, document *billing.Document) error {
	args := m.Called(ctx, document)
	return args.Error(0)
}

func (m *MockDocumentRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, documentNumber string) (bool, error) {
	args := m.Called(ctx, tenantID, documentNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) GenerateDocumentNumber(ctx context.Context, tenantID uuid.UUID, docType billing.DocumentType) (string, error) {
	args := m.Called(ctx, tenantID, docType)
	return args.String(0), args.Error(1)
}

// MockApprovalRecordRepository is a mock implementation of billing.ApprovalRecordRepository
type MockApprovalRecordRepository struct {
	mock.Mock
}

func (m *MockApprovalRecordRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.ApprovalRecord, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRecordRepository) FindPendingByDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*billing.ApprovalRecord, error) {
	args := m.Called(ctx, tenantID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRecordRepository) FindByDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]billing.ApprovalRecord, error) {
	args := m.Called(ctx, tenantID, documentID)
	return args.Get(0).([]billing.ApprovalRecord), args.Error(1)
}

func (m *MockApprovalRecordRepository) Save(ctx context.Context, record *billing.ApprovalRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockMatchingIssueRepository is a mock implementation of procurement.MatchingIssueRepository
type MockMatchingIssueRepository struct {
	mock.Mock
}

func (m *MockMatchingIssueRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.MatchingIssue, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.MatchingIssue), args.Error(1)
}

func (m *MockMatchingIssueRepository) FindByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]*procurement.MatchingIssue, error) {
	args := m.Called(ctx, tenantID, billID)
	return args.Get(0).([]*procurement.MatchingIssue), args.Error(1)
}

func (m *MockMatchingIssueRepository) FindOpenByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]*procurement.MatchingIssue, error) {
	args := m.Called(ctx, tenantID, billID)
	return args.Get(0).([]*procurement.MatchingIssue), args.Error(1)
}

func (m *MockMatchingIssueRepository) Save(ctx context.Context, issue *procurement.MatchingIssue) error {
	args := m.Called(ctx, issue)
	return args.Error(0)
}

// =============================================================================
// Fixtures
// =============================================================================

type documentFixture struct {
	documents *MockDocumentRepository
	approvals *MockApprovalRecordRepository
	issues    *MockMatchingIssueRepository
	service   *DocumentService
	tenantID  uuid.UUID
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	std, err := valueobject.NewTaxRate("STD", decimal.NewFromFloat(0.05), "AE", valueobject.TaxCategoryStandard)
	require.NoError(t, err)
	zero, err := valueobject.NewTaxRate("ZERO", decimal.Zero, "AE", valueobject.TaxCategoryZero)
	require.NoError(t, err)
	schedule, err := valueobject.NewTaxSchedule("AE", std, zero)
	require.NoError(t, err)

	f := &documentFixture{
		documents: new(MockDocumentRepository),
		approvals: new(MockApprovalRecordRepository),
		issues:    new(MockMatchingIssueRepository),
		tenantID:  uuid.New(),
	}
	f.service = NewDocumentService(f.documents, f.approvals, f.issues,
		valueobject.NewTaxRegistry(schedule), zap.NewNop())
	return f
}

func (f *documentFixture) createRequest(lines ...LineItemRequest) CreateDocumentRequest {
	return CreateDocumentRequest{
		TenantID:     f.tenantID,
		Type:         billing.DocumentTypeARInvoice,
		PartyID:      uuid.New(),
		PartyName:    "Acme Trading LLC",
		Currency:     valueobject.AED,
		Jurisdiction: "AE",
		IssueDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines:        lines,
	}
}

func consultingLine(taxCode string) LineItemRequest {
	return LineItemRequest{
		Description: "Consulting services",
		Quantity:    decimal.NewFromInt(10),
		UnitPrice:   decimal.NewFromInt(100),
		TaxRateCode: taxCode,
	}
}

func (f *documentFixture) pendingDocument(t *testing.T, docType billing.DocumentType) *billing.Document {
	t.Helper()
	line := billing.NewLineItem(1, "Consulting services",
		decimal.NewFromInt(10), decimal.NewFromInt(100), decimal.NewFromFloat(0.05))
	doc, err := billing.NewDocument(f.tenantID, "INV-2026-001", docType,
		uuid.New(), "Acme Trading LLC", valueobject.AED, "AE",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, []billing.LineItem{line})
	require.NoError(t, err)
	require.NoError(t, doc.SubmitForApproval())
	return doc
}

func pendingRecord(t *testing.T, tenantID, documentID uuid.UUID) *billing.ApprovalRecord {
	t.Helper()
	record, err := billing.NewApprovalRecord(tenantID, documentID, 1)
	require.NoError(t, err)
	return record
}

// =============================================================================
// CreateDocument
// =============================================================================

func TestCreateDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots the tax rate at creation", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.documents.On("GenerateDocumentNumber", mock.Anything, f.tenantID, billing.DocumentTypeARInvoice).Return("INV-2026-000007", nil)
		f.documents.On("Save", mock.Anything, mock.AnythingOfType("*billing.Document")).Return(nil)

		result, err := f.service.CreateDocument(ctx, f.createRequest(consultingLine("STD")))
		require.NoError(t, err)

		assert.Equal(t, "INV-2026-000007", result.DocumentNumber)
		assert.Empty(t, result.Rejections)

		saved := f.documents.Calls[1].Arguments.Get(1).(*billing.Document)
		require.Len(t, saved.Lines, 1)
		assert.Equal(t, "STD", saved.Lines[0].TaxRateCode)
		assert.Equal(t, "0.05", saved.Lines[0].TaxRate.String())
	})

	t.Run("zero-rated line keeps the code but charges nothing", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.documents.On("GenerateDocumentNumber", mock.Anything, f.tenantID, billing.DocumentTypeARInvoice).Return("INV-2026-000008", nil)
		f.documents.On("Save", mock.Anything, mock.AnythingOfType("*billing.Document")).Return(nil)

		_, err := f.service.CreateDocument(ctx, f.createRequest(consultingLine("ZERO")))
		require.NoError(t, err)

		saved := f.documents.Calls[1].Arguments.Get(1).(*billing.Document)
		assert.Equal(t, "ZERO", saved.Lines[0].TaxRateCode)
		assert.True(t, saved.Lines[0].TaxRate.IsZero())
	})

	t.Run("rejects a duplicate document number", func(t *testing.T) {
		f := newDocumentFixture(t)
		req := f.createRequest(consultingLine("STD"))
		req.DocumentNumber = "INV-2026-000001"
		f.documents.On("ExistsByNumber", mock.Anything, f.tenantID, "INV-2026-000001").Return(true, nil)

		_, err := f.service.CreateDocument(ctx, req)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "DUPLICATE_DOCUMENT_NUMBER", domainErr.Code)
		f.documents.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unknown tax code fails before anything persists", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.documents.On("GenerateDocumentNumber", mock.Anything, f.tenantID, billing.DocumentTypeARInvoice).Return("INV-2026-000009", nil)

		_, err := f.service.CreateDocument(ctx, f.createRequest(consultingLine("LUXURY")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no tax rate")
		f.documents.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("reports rejected lines alongside the created document", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.documents.On("GenerateDocumentNumber", mock.Anything, f.tenantID, billing.DocumentTypeARInvoice).Return("INV-2026-000010", nil)
		f.documents.On("Save", mock.Anything, mock.AnythingOfType("*billing.Document")).Return(nil)

		bad := LineItemRequest{Description: "", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)}
		result, err := f.service.CreateDocument(ctx, f.createRequest(consultingLine("STD"), bad))
		require.NoError(t, err)

		require.Len(t, result.Rejections, 1)
		assert.Equal(t, 1, result.Rejections[0].Index)
	})

	t.Run("document with no valid lines is rejected outright", func(t *testing.T) {
		f := newDocumentFixture(t)
		f.documents.On("GenerateDocumentNumber", mock.Anything, f.tenantID, billing.DocumentTypeARInvoice).Return("INV-2026-000011", nil)

		bad := LineItemRequest{Description: "", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)}
		_, err := f.service.CreateDocument(ctx, f.createRequest(bad))
		var empty *billing.EmptyDocumentError
		require.ErrorAs(t, err, &empty)
		f.documents.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

// =============================================================================
// Submit / Approve / Reject
// =============================================================================

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("opens an approval record", func(t *testing.T) {
		f := newDocumentFixture(t)
		line := billing.NewLineItem(1, "Consulting", decimal.NewFromInt(10), decimal.NewFromInt(100), decimal.Zero)
		doc, err := billing.NewDocument(f.tenantID, "INV-2026-001", billing.DocumentTypeARInvoice,
			uuid.New(), "Acme", valueobject.AED, "AE", time.Now(), nil, []billing.LineItem{line})
		require.NoError(t, err)

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, doc.ID).Return(doc, nil)
		f.documents.On("SaveWithLock", mock.Anything, doc).Return(nil)
		f.approvals.On("Save", mock.Anything, mock.AnythingOfType("*billing.ApprovalRecord")).Return(nil)

		require.NoError(t, f.service.Submit(ctx, f.tenantID, doc.ID))
		assert.Equal(t, billing.ApprovalStatusPendingApproval, doc.ApprovalStatus)

		record := f.approvals.Calls[0].Arguments.Get(1).(*billing.ApprovalRecord)
		assert.Equal(t, doc.ID, record.DocumentID)
		assert.True(t, record.IsPending())
	})

	t.Run("cannot submit twice", func(t *testing.T) {
		f := newDocumentFixture(t)
		doc := f.pendingDocument(t, billing.DocumentTypeARInvoice)

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, doc.ID).Return(doc, nil)

		err := f.service.Submit(ctx, f.tenantID, doc.ID)
		assert.Error(t, err)
		f.approvals.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("approves a pending invoice", func(t *testing.T) {
		f := newDocumentFixture(t)
		doc := f.pendingDocument(t, billing.DocumentTypeARInvoice)
		record := pendingRecord(t, f.tenantID, doc.ID)
		approverID := uuid.New()

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, doc.ID).Return(doc, nil)
		f.approvals.On("FindPendingByDocument", mock.Anything, f.tenantID, doc.ID).Return(record, nil)
		f.approvals.On("Save", mock.Anything, record).Return(nil)
		f.documents.On("SaveWithLock", mock.Anything, doc).Return(nil)

		err := f.service.Approve(ctx, DecisionRequest{
			TenantID: f.tenantID, DocumentID: doc.ID,
			ApproverID: approverID, Comments: "looks good",
		})
		require.NoError(t, err)
		assert.Equal(t, billing.ApprovalStatusApproved, doc.ApprovalStatus)
		assert.Equal(t, billing.ApprovalDecisionApproved, record.Decision)
	})

	t.Run("missing pending record does not block the decision", func(t *testing.T) {
		f := newDocumentFixture(t)
		doc := f.pendingDocument(t, billing.DocumentTypeARInvoice)

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, doc.ID).Return(doc, nil)
		f.approvals.On("FindPendingByDocument", mock.Anything, f.tenantID, doc.ID).Return(nil, nil)
		f.documents.On("SaveWithLock", mock.Anything, doc).Return(nil)

		err := f.service.Approve(ctx, DecisionRequest{
			TenantID: f.tenantID, DocumentID: doc.ID, ApproverID: uuid.New(),
		})
		require.NoError(t, err)
		assert.Equal(t, billing.ApprovalStatusApproved, doc.ApprovalStatus)
	})

	t.Run("unmatched vendor bill cannot be approved", func(t *testing.T) {
		f := newDocumentFixture(t)
		bill := f.pendingDocument(t, billing.DocumentTypeVendorBill)

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, bill.ID).Return(bill, nil)

		err := f.service.Approve(ctx, DecisionRequest{
			TenantID: f.tenantID, DocumentID: bill.ID, ApproverID: uuid.New(),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_MATCHED", domainErr.Code)
	})

	t.Run("open matching issues block approval", func(t *testing.T) {
		f := newDocumentFixture(t)
		bill := f.pendingDocument(t, billing.DocumentTypeVendorBill)
		require.NoError(t, bill.SetMatchStatus(billing.MatchStatusException))
		open := procurement.NewMatchingIssue(f.tenantID, bill.ID, uuid.New(), 1,
			procurement.IssueTypePriceVariance, procurement.IssueSeverityMedium,
			decimal.NewFromInt(100), decimal.NewFromInt(110), decimal.NewFromInt(10))

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, bill.ID).Return(bill, nil)
		f.issues.On("FindOpenByBill", mock.Anything, f.tenantID, bill.ID).Return([]*procurement.MatchingIssue{open}, nil)

		err := f.service.Approve(ctx, DecisionRequest{
			TenantID: f.tenantID, DocumentID: bill.ID, ApproverID: uuid.New(),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OPEN_MATCHING_ISSUES", domainErr.Code)
	})

	t.Run("exception with all issues closed passes the gate", func(t *testing.T) {
		f := newDocumentFixture(t)
		bill := f.pendingDocument(t, billing.DocumentTypeVendorBill)
		require.NoError(t, bill.SetMatchStatus(billing.MatchStatusException))

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, bill.ID).Return(bill, nil)
		f.issues.On("FindOpenByBill", mock.Anything, f.tenantID, bill.ID).Return([]*procurement.MatchingIssue{}, nil)
		f.approvals.On("FindPendingByDocument", mock.Anything, f.tenantID, bill.ID).Return(nil, nil)
		f.documents.On("SaveWithLock", mock.Anything, bill).Return(nil)

		err := f.service.Approve(ctx, DecisionRequest{
			TenantID: f.tenantID, DocumentID: bill.ID, ApproverID: uuid.New(),
		})
		require.NoError(t, err)
		assert.Equal(t, billing.ApprovalStatusApproved, bill.ApprovalStatus)
	})

	t.Run("matched vendor bill passes the gate", func(t *testing.T) {
		f := newDocumentFixture(t)
		bill := f.pendingDocument(t, billing.DocumentTypeVendorBill)
		require.NoError(t, bill.SetMatchStatus(billing.MatchStatusMatched))

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, bill.ID).Return(bill, nil)
		f.approvals.On("FindPendingByDocument", mock.Anything, f.tenantID, bill.ID).Return(nil, nil)
		f.documents.On("SaveWithLock", mock.Anything, bill).Return(nil)

		err := f.service.Approve(ctx, DecisionRequest{
			TenantID: f.tenantID, DocumentID: bill.ID, ApproverID: uuid.New(),
		})
		require.NoError(t, err)
		f.issues.AssertNotCalled(t, "FindOpenByBill", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	doc := f.pendingDocument(t, billing.DocumentTypeARInvoice)
	record := pendingRecord(t, f.tenantID, doc.ID)

	f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, doc.ID).Return(doc, nil)
	f.approvals.On("FindPendingByDocument", mock.Anything, f.tenantID, doc.ID).Return(record, nil)
	f.approvals.On("Save", mock.Anything, record).Return(nil)
	f.documents.On("SaveWithLock", mock.Anything, doc).Return(nil)

	err := f.service.Reject(ctx, DecisionRequest{
		TenantID: f.tenantID, DocumentID: doc.ID,
		ApproverID: uuid.New(), Comments: "wrong party",
	})
	require.NoError(t, err)
	assert.Equal(t, billing.ApprovalStatusRejected, doc.ApprovalStatus)
	assert.Equal(t, billing.ApprovalDecisionRejected, record.Decision)
}

func TestReturnToDraft(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	doc := f.pendingDocument(t, billing.DocumentTypeARInvoice)
	require.NoError(t, doc.Reject(uuid.New()))

	f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, doc.ID).Return(doc, nil)
	f.documents.On("SaveWithLock", mock.Anything, doc).Return(nil)

	require.NoError(t, f.service.ReturnToDraft(ctx, f.tenantID, doc.ID))
	assert.Equal(t, billing.ApprovalStatusDraft, doc.ApprovalStatus)
}

func TestGetDocument(t *testing.T) {
	ctx := context.Background()
	f := newDocumentFixture(t)
	docID := uuid.New()
	f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, docID).Return(nil, nil)

	_, err := f.service.GetDocument(ctx, f.tenantID, docID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", domainErr.Code)
}

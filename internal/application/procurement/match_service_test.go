package procurement

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

// MockPurchaseOrderRepository is a mock implementation of procurement.PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Save(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockGoodsReceiptRepository is a mock implementation of procurement.GoodsReceiptRepository
type MockGoodsReceiptRepository struct {
	mock.Mock
}

func (m *MockGoodsReceiptRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.GoodsReceipt, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.GoodsReceipt), args.Error(1)
}

func (m *MockGoodsReceiptRepository) FindByPurchaseOrder(ctx context.Context, tenantID, purchaseOrderID uuid.UUID) ([]procurement.GoodsReceipt, error) {
	args := m.Called(ctx, tenantID, purchaseOrderID)
	return args.Get(0).([]procurement.GoodsReceipt), args.Error(1)
}

func (m *MockGoodsReceiptRepository) Save(ctx context.Context, receipt *procurement.GoodsReceipt) error {
	args := m.Called(ctx, receipt)
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

type matchServiceFixture struct {
	documents *MockDocumentRepository
	orders    *MockPurchaseOrderRepository
	receipts  *MockGoodsReceiptRepository
	issues    *MockMatchingIssueRepository
	service   *MatchService
	tenantID  uuid.UUID
}

func newMatchServiceFixture(t *testing.T) *matchServiceFixture {
	t.Helper()
	matcher, err := procurement.NewMatcher(decimal.NewFromInt(5))
	require.NoError(t, err)

	f := &matchServiceFixture{
		documents: new(MockDocumentRepository),
		orders:    new(MockPurchaseOrderRepository),
		receipts:  new(MockGoodsReceiptRepository),
		issues:    new(MockMatchingIssueRepository),
		tenantID:  uuid.New(),
	}
	f.service = NewMatchService(f.documents, f.orders, f.receipts, f.issues, matcher, zap.NewNop())
	return f
}

// linkedBill builds a vendor bill billing billPrice against a PO agreed
// at poPrice, with matching receipt quantities.
func (f *matchServiceFixture) linkedBill(t *testing.T, poPrice, billPrice float64) (*billing.Document, *procurement.PurchaseOrder, *procurement.GoodsReceipt) {
	t.Helper()
	supplierID := uuid.New()

	poLine := procurement.NewPOLine(1, "Industrial valves", decimal.NewFromInt(10), decimal.NewFromFloat(poPrice))
	po, err := procurement.NewPurchaseOrder(f.tenantID, "PO-2026-001", supplierID, "Valves Inc",
		valueobject.AED, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), []procurement.POLine{poLine})
	require.NoError(t, err)

	receiptLine := procurement.NewReceiptLine(1, poLine.ID, decimal.NewFromInt(10))
	receipt, err := procurement.NewGoodsReceipt(f.tenantID, "GR-2026-001", po.ID,
		time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), "warehouse", []procurement.ReceiptLine{receiptLine})
	require.NoError(t, err)

	billLine := billing.NewLineItem(1, "Industrial valves",
		decimal.NewFromInt(10), decimal.NewFromFloat(billPrice), decimal.NewFromFloat(0.05))
	billLine.POLineID = &poLine.ID
	billLine.ReceiptLineID = &receiptLine.ID

	bill, err := billing.NewDocument(f.tenantID, "BILL-2026-001", billing.DocumentTypeVendorBill,
		supplierID, "Valves Inc", valueobject.AED, "AE",
		time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), nil, []billing.LineItem{billLine})
	require.NoError(t, err)
	bill.PurchaseOrderID = &po.ID
	bill.GoodsReceiptID = &receipt.ID

	return bill, po, receipt
}

// =============================================================================
// RunMatch
// =============================================================================

func TestRunMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("clean match marks the bill matched", func(t *testing.T) {
		f := newMatchServiceFixture(t)
		bill, po, receipt := f.linkedBill(t, 100, 100)

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, bill.ID).Return(bill, nil)
		f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, po.ID).Return(po, nil)
		f.receipts.On("FindByIDForTenant", mock.Anything, f.tenantID, receipt.ID).Return(receipt, nil)
		f.issues.On("FindOpenByBill", mock.Anything, f.tenantID, bill.ID).Return([]*procurement.MatchingIssue{}, nil)
		f.documents.On("SaveWithLock", mock.Anything, bill).Return(nil)

		result, err := f.service.RunMatch(ctx, RunMatchRequest{TenantID: f.tenantID, BillID: bill.ID})
		require.NoError(t, err)

		assert.Equal(t, billing.MatchStatusMatched, result.MatchStatus)
		assert.Equal(t, billing.MatchStatusMatched, bill.MatchStatus)
		assert.True(t, result.Result.WithinTolerance)
		assert.Zero(t, result.Superseded)
		f.issues.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("price variance raises an issue and flags an exception", func(t *testing.T) {
		f := newMatchServiceFixture(t)
		bill, po, receipt := f.linkedBill(t, 100, 110)

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, bill.ID).Return(bill, nil)
		f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, po.ID).Return(po, nil)
		f.receipts.On("FindByIDForTenant", mock.Anything, f.tenantID, receipt.ID).Return(receipt, nil)
		f.issues.On("FindOpenByBill", mock.Anything, f.tenantID, bill.ID).Return([]*procurement.MatchingIssue{}, nil)
		f.issues.On("Save", mock.Anything, mock.AnythingOfType("*procurement.MatchingIssue")).Return(nil)
		f.documents.On("SaveWithLock", mock.Anything, bill).Return(nil)

		result, err := f.service.RunMatch(ctx, RunMatchRequest{TenantID: f.tenantID, BillID: bill.ID})
		require.NoError(t, err)

		assert.Equal(t, billing.MatchStatusException, result.MatchStatus)
		require.Len(t, result.Result.Issues, 1)
		assert.Equal(t, procurement.IssueTypePriceVariance, result.Result.Issues[0].Type)
		f.issues.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("rerun supersedes open issues", func(t *testing.T) {
		f := newMatchServiceFixture(t)
		bill, po, receipt := f.linkedBill(t, 100, 110)
		stale := procurement.NewMatchingIssue(f.tenantID, bill.ID, uuid.New(), 1,
			procurement.IssueTypePriceVariance, procurement.IssueSeverityMedium,
			decimal.NewFromInt(100), decimal.NewFromInt(120), decimal.NewFromInt(20))

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, bill.ID).Return(bill, nil)
		f.orders.On("FindByIDForTenant", mock.Anything, f.tenantID, po.ID).Return(po, nil)
		f.receipts.On("FindByIDForTenant", mock.Anything, f.tenantID, receipt.ID).Return(receipt, nil)
		f.issues.On("FindOpenByBill", mock.Anything, f.tenantID, bill.ID).Return([]*procurement.MatchingIssue{stale}, nil)
		f.issues.On("Save", mock.Anything, mock.AnythingOfType("*procurement.MatchingIssue")).Return(nil)
		f.documents.On("SaveWithLock", mock.Anything, bill).Return(nil)

		result, err := f.service.RunMatch(ctx, RunMatchRequest{TenantID: f.tenantID, BillID: bill.ID})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Superseded)
		assert.Equal(t, procurement.IssueStatusSuperseded, stale.Status)
		// one save for the superseded issue, one for the fresh one
		f.issues.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("bill without links is an exception without repo lookups", func(t *testing.T) {
		f := newMatchServiceFixture(t)
		bill, _, _ := f.linkedBill(t, 100, 100)
		bill.PurchaseOrderID = nil
		bill.GoodsReceiptID = nil

		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, bill.ID).Return(bill, nil)
		f.issues.On("FindOpenByBill", mock.Anything, f.tenantID, bill.ID).Return([]*procurement.MatchingIssue{}, nil)
		f.issues.On("Save", mock.Anything, mock.AnythingOfType("*procurement.MatchingIssue")).Return(nil)
		f.documents.On("SaveWithLock", mock.Anything, bill).Return(nil)

		result, err := f.service.RunMatch(ctx, RunMatchRequest{TenantID: f.tenantID, BillID: bill.ID})
		require.NoError(t, err)

		assert.Equal(t, billing.MatchStatusException, result.MatchStatus)
		assert.Equal(t, procurement.IssueTypeNoPO, result.Result.Issues[0].Type)
		f.orders.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
		f.receipts.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bill not found", func(t *testing.T) {
		f := newMatchServiceFixture(t)
		billID := uuid.New()
		f.documents.On("FindByIDForTenant", mock.Anything, f.tenantID, billID).Return(nil, nil)

		_, err := f.service.RunMatch(ctx, RunMatchRequest{TenantID: f.tenantID, BillID: billID})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "BILL_NOT_FOUND", domainErr.Code)
	})
}

// =============================================================================
// ResolveIssue / ListIssues
// =============================================================================

func TestResolveIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves an open issue", func(t *testing.T) {
		f := newMatchServiceFixture(t)
		issue := procurement.NewMatchingIssue(f.tenantID, uuid.New(), uuid.New(), 1,
			procurement.IssueTypePriceVariance, procurement.IssueSeverityLow,
			decimal.NewFromInt(100), decimal.NewFromInt(105), decimal.NewFromInt(5))
		resolverID := uuid.New()

		f.issues.On("FindByIDForTenant", mock.Anything, f.tenantID, issue.ID).Return(issue, nil)
		f.issues.On("Save", mock.Anything, issue).Return(nil)

		err := f.service.ResolveIssue(ctx, ResolveIssueRequest{
			TenantID:   f.tenantID,
			IssueID:    issue.ID,
			ResolverID: resolverID,
			Notes:      "price increase agreed with supplier",
		})
		require.NoError(t, err)
		assert.Equal(t, procurement.IssueStatusResolved, issue.Status)
	})

	t.Run("requires a resolution note", func(t *testing.T) {
		f := newMatchServiceFixture(t)
		issue := procurement.NewMatchingIssue(f.tenantID, uuid.New(), uuid.New(), 1,
			procurement.IssueTypePriceVariance, procurement.IssueSeverityLow,
			decimal.NewFromInt(100), decimal.NewFromInt(105), decimal.NewFromInt(5))

		f.issues.On("FindByIDForTenant", mock.Anything, f.tenantID, issue.ID).Return(issue, nil)

		err := f.service.ResolveIssue(ctx, ResolveIssueRequest{
			TenantID:   f.tenantID,
			IssueID:    issue.ID,
			ResolverID: uuid.New(),
		})
		assert.Error(t, err)
		f.issues.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("issue not found", func(t *testing.T) {
		f := newMatchServiceFixture(t)
		issueID := uuid.New()
		f.issues.On("FindByIDForTenant", mock.Anything, f.tenantID, issueID).Return(nil, nil)

		err := f.service.ResolveIssue(ctx, ResolveIssueRequest{
			TenantID:   f.tenantID,
			IssueID:    issueID,
			ResolverID: uuid.New(),
			Notes:      "n/a",
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ISSUE_NOT_FOUND", domainErr.Code)
	})
}

func TestListIssues(t *testing.T) {
	ctx := context.Background()
	f := newMatchServiceFixture(t)
	billID := uuid.New()
	issue := procurement.NewMatchingIssue(f.tenantID, billID, uuid.New(), 1,
		procurement.IssueTypeQuantityVariance, procurement.IssueSeverityHigh,
		decimal.NewFromInt(10), decimal.NewFromInt(12), decimal.NewFromInt(2))

	f.issues.On("FindByBill", mock.Anything, f.tenantID, billID).Return([]*procurement.MatchingIssue{issue}, nil)

	issues, err := f.service.ListIssues(ctx, f.tenantID, billID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, issue.ID, issues[0].ID)
}

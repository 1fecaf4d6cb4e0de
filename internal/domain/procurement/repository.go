package procurement

import (
	"context"

	"github.com/google/uuid"
)

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByIDForTenant finds a purchase order with its lines for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseOrder, error)

	// FindByNumber finds a purchase order by number for a tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*PurchaseOrder, error)

	// Save creates or updates a purchase order and its lines
	Save(ctx context.Context, order *PurchaseOrder) error
}

// GoodsReceiptRepository defines the interface for goods receipt persistence
type GoodsReceiptRepository interface {
	// FindByIDForTenant finds a goods receipt with its lines for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*GoodsReceipt, error)

	// FindByPurchaseOrder finds receipts recorded against a purchase order
	FindByPurchaseOrder(ctx context.Context, tenantID, purchaseOrderID uuid.UUID) ([]GoodsReceipt, error)

	// Save creates or updates a goods receipt and its lines
	Save(ctx context.Context, receipt *GoodsReceipt) error
}

// MatchingIssueRepository defines the interface for matching issue persistence
type MatchingIssueRepository interface {
	// FindByIDForTenant finds a matching issue for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*MatchingIssue, error)

	// FindByBill finds all issues recorded against a vendor bill
	FindByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]*MatchingIssue, error)

	// FindOpenByBill finds issues still blocking approval of a vendor bill
	FindOpenByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]*MatchingIssue, error)

	// Save creates or updates a matching issue
	Save(ctx context.Context, issue *MatchingIssue) error
}

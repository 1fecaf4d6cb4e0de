package persistence

import (
	"context"
	"errors"

	"github.com/finledger/backend/internal/domain/procurement"
	"github.com/finledger/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPurchaseOrderRepository implements procurement.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByIDForTenant finds a purchase order with its lines for a tenant
func (r *GormPurchaseOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a purchase order by number for a tenant
func (r *GormPurchaseOrderRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		First(&model, "order_number = ? AND tenant_id = ?", orderNumber, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a purchase order and its lines
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *procurement.PurchaseOrder) error {
	model := models.PurchaseOrderModelFromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("purchase_order_id = ?", model.ID).Delete(&models.POLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormPurchaseOrderRepository implements the interface
var _ procurement.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)

// GormGoodsReceiptRepository implements procurement.GoodsReceiptRepository using GORM
type GormGoodsReceiptRepository struct {
	db *gorm.DB
}

// NewGormGoodsReceiptRepository creates a new GormGoodsReceiptRepository
func NewGormGoodsReceiptRepository(db *gorm.DB) *GormGoodsReceiptRepository {
	return &GormGoodsReceiptRepository{db: db}
}

// FindByIDForTenant finds a goods receipt with its lines for a tenant
func (r *GormGoodsReceiptRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.GoodsReceipt, error) {
	var model models.GoodsReceiptModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPurchaseOrder finds receipts recorded against a purchase order
func (r *GormGoodsReceiptRepository) FindByPurchaseOrder(ctx context.Context, tenantID, purchaseOrderID uuid.UUID) ([]procurement.GoodsReceipt, error) {
	var dbModels []models.GoodsReceiptModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND purchase_order_id = ?", tenantID, purchaseOrderID).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Order("received_date ASC").
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	receipts := make([]procurement.GoodsReceipt, 0, len(dbModels))
	for i := range dbModels {
		receipts = append(receipts, *dbModels[i].ToDomain())
	}
	return receipts, nil
}

// Save creates or updates a goods receipt and its lines
func (r *GormGoodsReceiptRepository) Save(ctx context.Context, receipt *procurement.GoodsReceipt) error {
	model := models.GoodsReceiptModelFromDomain(receipt)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("goods_receipt_id = ?", model.ID).Delete(&models.ReceiptLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormGoodsReceiptRepository implements the interface
var _ procurement.GoodsReceiptRepository = (*GormGoodsReceiptRepository)(nil)

// GormMatchingIssueRepository implements procurement.MatchingIssueRepository using GORM
type GormMatchingIssueRepository struct {
	db *gorm.DB
}

// NewGormMatchingIssueRepository creates a new GormMatchingIssueRepository
func NewGormMatchingIssueRepository(db *gorm.DB) *GormMatchingIssueRepository {
	return &GormMatchingIssueRepository{db: db}
}

// FindByIDForTenant finds a matching issue for a tenant
func (r *GormMatchingIssueRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.MatchingIssue, error) {
	var model models.MatchingIssueModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBill finds all issues recorded against a vendor bill
func (r *GormMatchingIssueRepository) FindByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]*procurement.MatchingIssue, error) {
	var dbModels []models.MatchingIssueModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bill_id = ?", tenantID, billID).
		Order("bill_line_no ASC, created_at ASC").
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	issues := make([]*procurement.MatchingIssue, 0, len(dbModels))
	for i := range dbModels {
		issues = append(issues, dbModels[i].ToDomain())
	}
	return issues, nil
}

// FindOpenByBill finds issues still blocking approval of a vendor bill
func (r *GormMatchingIssueRepository) FindOpenByBill(ctx context.Context, tenantID, billID uuid.UUID) ([]*procurement.MatchingIssue, error) {
	var dbModels []models.MatchingIssueModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bill_id = ? AND status = ?", tenantID, billID, procurement.IssueStatusOpen).
		Order("bill_line_no ASC, created_at ASC").
		Find(&dbModels).Error; err != nil {
		return nil, err
	}

	issues := make([]*procurement.MatchingIssue, 0, len(dbModels))
	for i := range dbModels {
		issues = append(issues, dbModels[i].ToDomain())
	}
	return issues, nil
}

// Save creates or updates a matching issue
func (r *GormMatchingIssueRepository) Save(ctx context.Context, issue *procurement.MatchingIssue) error {
	model := models.MatchingIssueModelFromDomain(issue)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormMatchingIssueRepository implements the interface
var _ procurement.MatchingIssueRepository = (*GormMatchingIssueRepository)(nil)

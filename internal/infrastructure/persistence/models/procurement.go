package models

import (
	"time"

	"github.com/finledger/backend/internal/domain/procurement"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate.
type PurchaseOrderModel struct {
	TenantAggregateModel
	OrderNumber string                          `gorm:"type:varchar(50);not null;uniqueIndex:idx_po_tenant_number,priority:2"`
	SupplierID  uuid.UUID                       `gorm:"type:uuid;not null;index"`
	Supplier    string                          `gorm:"type:varchar(200);not null"`
	Currency    string                          `gorm:"type:varchar(3);not null"`
	OrderDate   time.Time                       `gorm:"not null"`
	Status      procurement.PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Lines       []POLineModel                   `gorm:"foreignKey:PurchaseOrderID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// POLineModel is the persistence model for one purchase order line.
type POLineModel struct {
	BaseModel
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo          int             `gorm:"not null"`
	Description     string          `gorm:"type:varchar(500);not null"`
	OrderedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (POLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the persistence model to a domain PurchaseOrder.
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	lines := make([]procurement.POLine, 0, len(m.Lines))
	for _, lm := range m.Lines {
		lines = append(lines, procurement.POLine{
			ID:              lm.ID,
			LineNo:          lm.LineNo,
			Description:     lm.Description,
			OrderedQuantity: lm.OrderedQuantity,
			UnitPrice:       lm.UnitPrice,
		})
	}
	return &procurement.PurchaseOrder{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		OrderNumber:         m.OrderNumber,
		SupplierID:          m.SupplierID,
		Supplier:            m.Supplier,
		Currency:            valueobject.Currency(m.Currency),
		OrderDate:           m.OrderDate,
		Status:              m.Status,
		Lines:               lines,
	}
}

// FromDomain populates the persistence model from a domain PurchaseOrder.
func (m *PurchaseOrderModel) FromDomain(po *procurement.PurchaseOrder) {
	m.FromDomainTenantAggregateRoot(po.TenantAggregateRoot)
	m.OrderNumber = po.OrderNumber
	m.SupplierID = po.SupplierID
	m.Supplier = po.Supplier
	m.Currency = string(po.Currency)
	m.OrderDate = po.OrderDate
	m.Status = po.Status

	m.Lines = make([]POLineModel, 0, len(po.Lines))
	for _, line := range po.Lines {
		m.Lines = append(m.Lines, POLineModel{
			BaseModel:       BaseModel{ID: line.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
			PurchaseOrderID: po.ID,
			LineNo:          line.LineNo,
			Description:     line.Description,
			OrderedQuantity: line.OrderedQuantity,
			UnitPrice:       line.UnitPrice,
		})
	}
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder.
func PurchaseOrderModelFromDomain(po *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(po)
	return m
}

// GoodsReceiptModel is the persistence model for the GoodsReceipt aggregate.
type GoodsReceiptModel struct {
	TenantAggregateModel
	ReceiptNumber   string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_receipt_tenant_number,priority:2"`
	PurchaseOrderID uuid.UUID          `gorm:"type:uuid;not null;index"`
	ReceivedDate    time.Time          `gorm:"not null"`
	ReceivedBy      string             `gorm:"type:varchar(200)"`
	Lines           []ReceiptLineModel `gorm:"foreignKey:GoodsReceiptID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (GoodsReceiptModel) TableName() string {
	return "goods_receipts"
}

// ReceiptLineModel is the persistence model for one goods receipt line.
type ReceiptLineModel struct {
	BaseModel
	GoodsReceiptID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo           int             `gorm:"not null"`
	POLineID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ReceiptLineModel) TableName() string {
	return "goods_receipt_lines"
}

// ToDomain converts the persistence model to a domain GoodsReceipt.
func (m *GoodsReceiptModel) ToDomain() *procurement.GoodsReceipt {
	lines := make([]procurement.ReceiptLine, 0, len(m.Lines))
	for _, lm := range m.Lines {
		lines = append(lines, procurement.ReceiptLine{
			ID:               lm.ID,
			LineNo:           lm.LineNo,
			POLineID:         lm.POLineID,
			ReceivedQuantity: lm.ReceivedQuantity,
		})
	}
	return &procurement.GoodsReceipt{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		ReceiptNumber:       m.ReceiptNumber,
		PurchaseOrderID:     m.PurchaseOrderID,
		ReceivedDate:        m.ReceivedDate,
		ReceivedBy:          m.ReceivedBy,
		Lines:               lines,
	}
}

// FromDomain populates the persistence model from a domain GoodsReceipt.
func (m *GoodsReceiptModel) FromDomain(gr *procurement.GoodsReceipt) {
	m.FromDomainTenantAggregateRoot(gr.TenantAggregateRoot)
	m.ReceiptNumber = gr.ReceiptNumber
	m.PurchaseOrderID = gr.PurchaseOrderID
	m.ReceivedDate = gr.ReceivedDate
	m.ReceivedBy = gr.ReceivedBy

	m.Lines = make([]ReceiptLineModel, 0, len(gr.Lines))
	for _, line := range gr.Lines {
		m.Lines = append(m.Lines, ReceiptLineModel{
			BaseModel:        BaseModel{ID: line.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
			GoodsReceiptID:   gr.ID,
			LineNo:           line.LineNo,
			POLineID:         line.POLineID,
			ReceivedQuantity: line.ReceivedQuantity,
		})
	}
}

// GoodsReceiptModelFromDomain creates a new persistence model from a domain GoodsReceipt.
func GoodsReceiptModelFromDomain(gr *procurement.GoodsReceipt) *GoodsReceiptModel {
	m := &GoodsReceiptModel{}
	m.FromDomain(gr)
	return m
}

// MatchingIssueModel is the persistence model for the MatchingIssue aggregate.
type MatchingIssueModel struct {
	TenantAggregateModel
	BillID      uuid.UUID                 `gorm:"type:uuid;not null;index:idx_issue_bill_status,priority:1"`
	BillLineID  uuid.UUID                 `gorm:"type:uuid;not null"`
	BillLineNo  int                       `gorm:"not null"`
	Type        procurement.IssueType     `gorm:"type:varchar(30);not null"`
	Severity    procurement.IssueSeverity `gorm:"type:varchar(20);not null"`
	Expected    decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	Actual      decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	Delta       decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	VariancePct decimal.Decimal           `gorm:"type:decimal(9,4);not null"`
	Status      procurement.IssueStatus   `gorm:"type:varchar(20);not null;default:'OPEN';index:idx_issue_bill_status,priority:2"`
	ResolvedBy  *uuid.UUID                `gorm:"type:uuid"`
	ResolvedAt  *time.Time
	Notes       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MatchingIssueModel) TableName() string {
	return "matching_issues"
}

// ToDomain converts the persistence model to a domain MatchingIssue.
func (m *MatchingIssueModel) ToDomain() *procurement.MatchingIssue {
	return &procurement.MatchingIssue{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		BillID:              m.BillID,
		BillLineID:          m.BillLineID,
		BillLineNo:          m.BillLineNo,
		Type:                m.Type,
		Severity:            m.Severity,
		Expected:            m.Expected,
		Actual:              m.Actual,
		Delta:               m.Delta,
		VariancePct:         m.VariancePct,
		Status:              m.Status,
		ResolvedBy:          m.ResolvedBy,
		ResolvedAt:          m.ResolvedAt,
		Notes:               m.Notes,
	}
}

// FromDomain populates the persistence model from a domain MatchingIssue.
func (m *MatchingIssueModel) FromDomain(mi *procurement.MatchingIssue) {
	m.FromDomainTenantAggregateRoot(mi.TenantAggregateRoot)
	m.BillID = mi.BillID
	m.BillLineID = mi.BillLineID
	m.BillLineNo = mi.BillLineNo
	m.Type = mi.Type
	m.Severity = mi.Severity
	m.Expected = mi.Expected
	m.Actual = mi.Actual
	m.Delta = mi.Delta
	m.VariancePct = mi.VariancePct
	m.Status = mi.Status
	m.ResolvedBy = mi.ResolvedBy
	m.ResolvedAt = mi.ResolvedAt
	m.Notes = mi.Notes
}

// MatchingIssueModelFromDomain creates a new persistence model from a domain MatchingIssue.
func MatchingIssueModelFromDomain(mi *procurement.MatchingIssue) *MatchingIssueModel {
	m := &MatchingIssueModel{}
	m.FromDomain(mi)
	return m
}

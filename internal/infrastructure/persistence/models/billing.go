package models

import (
	"time"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for the Document aggregate root.
type DocumentModel struct {
	TenantAggregateModel
	DocumentNumber    string                 `gorm:"type:varchar(50);not null;uniqueIndex:idx_document_tenant_number,priority:2"`
	Type              billing.DocumentType   `gorm:"type:varchar(20);not null;index"`
	PartyID           uuid.UUID              `gorm:"type:uuid;not null;index"`
	PartyName         string                 `gorm:"type:varchar(200);not null"`
	Currency          string                 `gorm:"type:varchar(3);not null"`
	Jurisdiction      string                 `gorm:"type:varchar(10);not null"`
	IssueDate         time.Time              `gorm:"not null;index"`
	DueDate           *time.Time             `gorm:"index"`
	ApprovalStatus    billing.ApprovalStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	PostingStatus     billing.PostingStatus  `gorm:"type:varchar(20);not null;default:'UNPOSTED';index"`
	PaymentStatus     billing.PaymentStatus  `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	MatchStatus       billing.MatchStatus    `gorm:"type:varchar(20);not null;default:'NOT_MATCHED'"`
	PaidAmount        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	PurchaseOrderID   *uuid.UUID             `gorm:"type:uuid;index"`
	GoodsReceiptID    *uuid.UUID             `gorm:"type:uuid;index"`
	PostedAt          *time.Time
	PostingRate       decimal.Decimal     `gorm:"type:decimal(18,8);not null;default:0"`
	BaseCurrencyTotal decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	JournalEntryID    *uuid.UUID          `gorm:"type:uuid;index"`
	Lines             []DocumentLineModel `gorm:"foreignKey:DocumentID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// DocumentLineModel is the persistence model for one document line item.
type DocumentLineModel struct {
	BaseModel
	DocumentID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo        int             `gorm:"not null"`
	Description   string          `gorm:"type:varchar(500);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRateCode   string          `gorm:"type:varchar(30)"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(9,6);not null;default:0"`
	AccountCode   string          `gorm:"type:varchar(30)"`
	POLineID      *uuid.UUID      `gorm:"type:uuid;index"`
	ReceiptLineID *uuid.UUID      `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (DocumentLineModel) TableName() string {
	return "document_lines"
}

// ToDomain converts the persistence model to a domain Document aggregate.
func (m *DocumentModel) ToDomain() *billing.Document {
	lines := make([]billing.LineItem, 0, len(m.Lines))
	for _, lm := range m.Lines {
		lines = append(lines, billing.LineItem{
			ID:            lm.ID,
			LineNo:        lm.LineNo,
			Description:   lm.Description,
			Quantity:      lm.Quantity,
			UnitPrice:     lm.UnitPrice,
			TaxRateCode:   lm.TaxRateCode,
			TaxRate:       lm.TaxRate,
			AccountCode:   lm.AccountCode,
			POLineID:      lm.POLineID,
			ReceiptLineID: lm.ReceiptLineID,
		})
	}
	return &billing.Document{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		DocumentNumber:      m.DocumentNumber,
		Type:                m.Type,
		PartyID:             m.PartyID,
		PartyName:           m.PartyName,
		Currency:            valueobject.Currency(m.Currency),
		Jurisdiction:        m.Jurisdiction,
		IssueDate:           m.IssueDate,
		DueDate:             m.DueDate,
		ApprovalStatus:      m.ApprovalStatus,
		PostingStatus:       m.PostingStatus,
		PaymentStatus:       m.PaymentStatus,
		MatchStatus:         m.MatchStatus,
		Lines:               lines,
		PaidAmount:          m.PaidAmount,
		PurchaseOrderID:     m.PurchaseOrderID,
		GoodsReceiptID:      m.GoodsReceiptID,
		PostedAt:            m.PostedAt,
		PostingRate:         m.PostingRate,
		BaseCurrencyTotal:   m.BaseCurrencyTotal,
		JournalEntryID:      m.JournalEntryID,
	}
}

// FromDomain populates the persistence model from a domain Document aggregate.
func (m *DocumentModel) FromDomain(d *billing.Document) {
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	m.DocumentNumber = d.DocumentNumber
	m.Type = d.Type
	m.PartyID = d.PartyID
	m.PartyName = d.PartyName
	m.Currency = string(d.Currency)
	m.Jurisdiction = d.Jurisdiction
	m.IssueDate = d.IssueDate
	m.DueDate = d.DueDate
	m.ApprovalStatus = d.ApprovalStatus
	m.PostingStatus = d.PostingStatus
	m.PaymentStatus = d.PaymentStatus
	m.MatchStatus = d.MatchStatus
	m.PaidAmount = d.PaidAmount
	m.PurchaseOrderID = d.PurchaseOrderID
	m.GoodsReceiptID = d.GoodsReceiptID
	m.PostedAt = d.PostedAt
	m.PostingRate = d.PostingRate
	m.BaseCurrencyTotal = d.BaseCurrencyTotal
	m.JournalEntryID = d.JournalEntryID

	m.Lines = make([]DocumentLineModel, 0, len(d.Lines))
	for _, line := range d.Lines {
		m.Lines = append(m.Lines, DocumentLineModel{
			BaseModel:     BaseModel{ID: line.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
			DocumentID:    d.ID,
			LineNo:        line.LineNo,
			Description:   line.Description,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			TaxRateCode:   line.TaxRateCode,
			TaxRate:       line.TaxRate,
			AccountCode:   line.AccountCode,
			POLineID:      line.POLineID,
			ReceiptLineID: line.ReceiptLineID,
		})
	}
}

// DocumentModelFromDomain creates a new persistence model from a domain Document.
func DocumentModelFromDomain(d *billing.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}

// ApprovalRecordModel is the persistence model for the ApprovalRecord aggregate.
type ApprovalRecordModel struct {
	TenantAggregateModel
	DocumentID  uuid.UUID                `gorm:"type:uuid;not null;index"`
	Level       int                      `gorm:"not null;default:1"`
	Decision    billing.ApprovalDecision `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ApproverID  *uuid.UUID               `gorm:"type:uuid;index"`
	Comments    string                   `gorm:"type:text"`
	SubmittedAt time.Time                `gorm:"not null"`
	DecidedAt   *time.Time
}

// TableName returns the table name for GORM
func (ApprovalRecordModel) TableName() string {
	return "approval_records"
}

// ToDomain converts the persistence model to a domain ApprovalRecord.
func (m *ApprovalRecordModel) ToDomain() *billing.ApprovalRecord {
	return &billing.ApprovalRecord{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		DocumentID:          m.DocumentID,
		Level:               m.Level,
		Decision:            m.Decision,
		ApproverID:          m.ApproverID,
		Comments:            m.Comments,
		SubmittedAt:         m.SubmittedAt,
		DecidedAt:           m.DecidedAt,
	}
}

// FromDomain populates the persistence model from a domain ApprovalRecord.
func (m *ApprovalRecordModel) FromDomain(r *billing.ApprovalRecord) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.DocumentID = r.DocumentID
	m.Level = r.Level
	m.Decision = r.Decision
	m.ApproverID = r.ApproverID
	m.Comments = r.Comments
	m.SubmittedAt = r.SubmittedAt
	m.DecidedAt = r.DecidedAt
}
